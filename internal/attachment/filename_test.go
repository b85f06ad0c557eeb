package attachment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "invoice.pdf", "invoice.pdf"},
		{"unix traversal", "../../etc/passwd", "passwd"},
		{"windows path", `C:\Users\me\scan.png`, "scan.png"},
		{"reserved characters", `a<b>c:d"e|f?g*.txt`, "a_b_c_d_e_f_g_.txt"},
		{"control characters", "tab\there\x00.txt", "tab_here_.txt"},
		{"leading and trailing dots", "..hidden.pdf. ", "hidden.pdf"},
		{"device name", "con.txt", "_con.txt"},
		{"device name without extension", "LPT1", "_LPT1"},
		{"not a device name", "console.txt", "console.txt"},
		{"empty", "", "download"},
		{"only dots", "...", "download"},
		{"only separators", "///", "download"},
		{"unicode kept", "factura_año.pdf", "factura_año.pdf"},
		{"decomposed unicode normalised", "a\u0301.txt", "\u00e1.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFilename(tt.input))
		})
	}
}

func TestSanitizeFilename_CapsLengthKeepingExtension(t *testing.T) {
	got := SanitizeFilename(strings.Repeat("é", 200) + ".pdf")
	assert.LessOrEqual(t, len(got), 255)
	assert.True(t, strings.HasSuffix(got, ".pdf"))
	assert.True(t, strings.HasPrefix(got, "é"))
	assert.NotContains(t, got, "\ufffd")
}
