package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Storage     StorageConfig
	Attachments AttachmentConfig
	Log         LogConfig
	CORS        CORSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// StorageConfig selects and configures the key-value backend.
type StorageConfig struct {
	Backend        string `mapstructure:"backend"`
	Capacity       string `mapstructure:"capacity"`
	CapacityBytes  int64  `mapstructure:"-"`
	Path           string `mapstructure:"path"`
	RedisAddr      string `mapstructure:"redis_addr"`
	RedisPassword  string `mapstructure:"redis_password"`
	RedisDB        int    `mapstructure:"redis_db"`
	RedisPrefix    string `mapstructure:"redis_prefix"`
	CollectionKey  string `mapstructure:"collection_key"`
	FilterStateKey string `mapstructure:"filter_state_key"`
}

// AttachmentConfig holds per-invoice attachment limits.
type AttachmentConfig struct {
	MaxFileSize       string `mapstructure:"max_file_size"`
	MaxTotalSize      string `mapstructure:"max_total_size"`
	MaxFiles          int    `mapstructure:"max_files"`
	EncodeConcurrency int    `mapstructure:"encode_concurrency"`

	maxFileSizeBytes  int64
	maxTotalSizeBytes int64
}

// MaxFileSizeBytes returns the parsed per-file limit.
func (c *AttachmentConfig) MaxFileSizeBytes() int64 { return c.maxFileSizeBytes }

// MaxTotalSizeBytes returns the parsed per-invoice storage budget.
func (c *AttachmentConfig) MaxTotalSizeBytes() int64 { return c.maxTotalSizeBytes }

// NewAttachmentConfig builds an AttachmentConfig from byte counts, mostly for tests and tools.
func NewAttachmentConfig(maxFileSize, maxTotalSize int64, maxFiles int) AttachmentConfig {
	return AttachmentConfig{
		MaxFileSize:       units.BytesSize(float64(maxFileSize)),
		MaxTotalSize:      units.BytesSize(float64(maxTotalSize)),
		MaxFiles:          maxFiles,
		EncodeConcurrency: 4,
		maxFileSizeBytes:  maxFileSize,
		maxTotalSizeBytes: maxTotalSize,
	}
}

// DefaultAttachmentConfig returns the deployment defaults: 10MB per file, 50MB per invoice, one file.
func DefaultAttachmentConfig() AttachmentConfig {
	return NewAttachmentConfig(10*units.MiB, 50*units.MiB, 1)
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from environment variables with the INVOICESTORE_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INVOICESTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.environment", "development")

	// Storage defaults
	v.SetDefault("storage.backend", "filesystem")
	v.SetDefault("storage.capacity", "5MB")
	v.SetDefault("storage.path", ".data/invoicestore")
	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("storage.redis_password", "")
	v.SetDefault("storage.redis_db", 0)
	v.SetDefault("storage.redis_prefix", "invoicestore:")
	v.SetDefault("storage.collection_key", "invoices")
	v.SetDefault("storage.filter_state_key", "invoice_filters")

	// Attachment defaults
	v.SetDefault("attachments.max_file_size", "10MB")
	v.SetDefault("attachments.max_total_size", "50MB")
	v.SetDefault("attachments.max_files", 1)
	v.SetDefault("attachments.encode_concurrency", 4)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	envBindings := map[string]string{
		"server.port":                    "INVOICESTORE_SERVER_PORT",
		"server.read_timeout":            "INVOICESTORE_SERVER_READ_TIMEOUT",
		"server.write_timeout":           "INVOICESTORE_SERVER_WRITE_TIMEOUT",
		"server.environment":             "INVOICESTORE_SERVER_ENVIRONMENT",
		"storage.backend":                "INVOICESTORE_STORAGE_BACKEND",
		"storage.capacity":               "INVOICESTORE_STORAGE_CAPACITY",
		"storage.path":                   "INVOICESTORE_STORAGE_PATH",
		"storage.redis_addr":             "INVOICESTORE_STORAGE_REDIS_ADDR",
		"storage.redis_password":         "INVOICESTORE_STORAGE_REDIS_PASSWORD",
		"storage.redis_db":               "INVOICESTORE_STORAGE_REDIS_DB",
		"storage.redis_prefix":           "INVOICESTORE_STORAGE_REDIS_PREFIX",
		"storage.collection_key":         "INVOICESTORE_STORAGE_COLLECTION_KEY",
		"storage.filter_state_key":       "INVOICESTORE_STORAGE_FILTER_STATE_KEY",
		"attachments.max_file_size":      "INVOICESTORE_ATTACHMENTS_MAX_FILE_SIZE",
		"attachments.max_total_size":     "INVOICESTORE_ATTACHMENTS_MAX_TOTAL_SIZE",
		"attachments.max_files":          "INVOICESTORE_ATTACHMENTS_MAX_FILES",
		"attachments.encode_concurrency": "INVOICESTORE_ATTACHMENTS_ENCODE_CONCURRENCY",
		"log.level":                      "INVOICESTORE_LOG_LEVEL",
		"log.format":                     "INVOICESTORE_LOG_FORMAT",
		"cors.allowed_origins":           "INVOICESTORE_CORS_ALLOWED_ORIGINS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	cfg.Server = ServerConfig{
		Port:         v.GetString("server.port"),
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.Storage = StorageConfig{
		Backend:        strings.ToLower(v.GetString("storage.backend")),
		Capacity:       v.GetString("storage.capacity"),
		Path:           v.GetString("storage.path"),
		RedisAddr:      v.GetString("storage.redis_addr"),
		RedisPassword:  v.GetString("storage.redis_password"),
		RedisDB:        v.GetInt("storage.redis_db"),
		RedisPrefix:    v.GetString("storage.redis_prefix"),
		CollectionKey:  v.GetString("storage.collection_key"),
		FilterStateKey: v.GetString("storage.filter_state_key"),
	}
	cfg.Attachments = AttachmentConfig{
		MaxFileSize:       v.GetString("attachments.max_file_size"),
		MaxTotalSize:      v.GetString("attachments.max_total_size"),
		MaxFiles:          v.GetInt("attachments.max_files"),
		EncodeConcurrency: v.GetInt("attachments.encode_concurrency"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{AllowedOrigins: corsOrigins}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) finalize() error {
	switch c.Storage.Backend {
	case "memory", "filesystem", "sqlite", "redis":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	capacity, err := parseSize("storage.capacity", c.Storage.Capacity, true)
	if err != nil {
		return err
	}
	c.Storage.CapacityBytes = capacity

	if c.Storage.CollectionKey == "" || c.Storage.FilterStateKey == "" {
		return fmt.Errorf("storage keys must not be empty")
	}
	if c.Storage.CollectionKey == c.Storage.FilterStateKey {
		return fmt.Errorf("collection key and filter state key must differ")
	}

	if c.Attachments.maxFileSizeBytes, err = parseSize("attachments.max_file_size", c.Attachments.MaxFileSize, false); err != nil {
		return err
	}
	if c.Attachments.maxTotalSizeBytes, err = parseSize("attachments.max_total_size", c.Attachments.MaxTotalSize, false); err != nil {
		return err
	}
	if c.Attachments.MaxFiles < 1 {
		return fmt.Errorf("attachments.max_files must be at least 1")
	}
	if c.Attachments.EncodeConcurrency < 1 {
		c.Attachments.EncodeConcurrency = 1
	}
	return nil
}

// parseSize reads sizes such as "10MB" using binary units, so 10MB is 10*1024*1024 bytes.
// An empty or zero value is only accepted when allowZero is set and means "unlimited".
func parseSize(key, value string, allowZero bool) (int64, error) {
	if strings.TrimSpace(value) == "" {
		if allowZero {
			return 0, nil
		}
		return 0, fmt.Errorf("%s is required", key)
	}
	size, err := units.RAMInBytes(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if size < 0 || (size == 0 && !allowZero) {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return size, nil
}
