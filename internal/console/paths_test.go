package console_test

import (
	"strconv"
	"testing"
	"time"

	"flota_console/internal/console"

	"github.com/stretchr/testify/assert"
)

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

// TestSanitizeFileName - base is lowercased with runs collapsed
func TestSanitizeFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       string
		wantBase string
		wantExt  string
	}{
		{"plain", "factura.pdf", "factura", "pdf"},
		{"spaces and accents", "Guía de Despacho.PDF", "gu_a_de_despacho", "PDF"},
		{"runs collapse", "a -- b.png", "a_b", "png"},
		{"last dot wins", "backup.tar.gz", "backup_tar", "gz"},
		{"no extension", "LEEME", "leeme", ""},
		{"dotfile", ".env", "env", ""},
		{"empty base", "###.jpg", "_", "jpg"},
		{"nothing left", "", "archivo", ""},
		{"path stripped", `C:\fotos\IMG 01.jpeg`, "img_01", "jpeg"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			base, ext := console.SanitizeFileName(tt.in)
			assert.Equal(t, tt.wantBase, base)
			assert.Equal(t, tt.wantExt, ext)
		})
	}
}

// TestStoragePath - category/parent/base_ms.ext
func TestStoragePath(t *testing.T) {
	t.Parallel()

	now := time.UnixMilli(1717425000123)
	assert.Equal(t, "combustible/55/boleta_1717425000123.jpg", console.StoragePath("combustible", "55", "Boleta.jpg", now))
	assert.Equal(t, "ordenes/7/leeme_1717425000123", console.StoragePath("ordenes", "7", "LEEME", now))
}
