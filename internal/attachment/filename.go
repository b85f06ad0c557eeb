package attachment

import (
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	maxFilenameBytes = 255
	fallbackFilename = "download"
)

var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true, "COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true, "LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// SanitizeFilename makes name safe to offer as a download filename on any OS.
// Directory components are dropped, reserved and control characters become "_",
// leading and trailing dots and spaces are trimmed, Windows device names are
// prefixed and the result is capped at 255 bytes keeping the extension.
func SanitizeFilename(name string) string {
	name = norm.NFC.String(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	name = strings.Map(func(r rune) rune {
		switch {
		case r == utf8.RuneError, unicode.IsControl(r):
			return '_'
		case strings.ContainsRune(`<>:"|?*`, r):
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(name, ". ")
	if name == "" {
		return fallbackFilename
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if reservedNames[strings.ToUpper(strings.TrimRight(base, " "))] {
		base = "_" + base
	}

	if len(base)+len(ext) > maxFilenameBytes {
		if len(ext) >= maxFilenameBytes {
			ext = ""
		}
		base = truncateBytes(base, maxFilenameBytes-len(ext))
	}
	name = base + ext
	if strings.Trim(name, ". ") == "" {
		return fallbackFilename
	}
	return name
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
