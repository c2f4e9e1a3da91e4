package storage_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"flota_console/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLocalStorage_RoundTrip - save, read back, delete
func TestLocalStorage_RoundTrip(t *testing.T) {
	t.Parallel()

	s, err := storage.NewLocalStorage(storage.Config{BasePath: t.TempDir(), Bucket: "adjuntos_ordenes", BaseURL: "http://cdn.local/files"})
	require.NoError(t, err)

	ctx := context.Background()
	key := "ordenes/12/factura_1700000000000.pdf"
	require.NoError(t, s.Save(ctx, key, strings.NewReader("%PDF-1.4"), "application/pdf"))

	ok, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := s.Get(ctx, key)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(body))

	u, err := s.PublicURL(key)
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.local/files/ordenes/12/factura_1700000000000.pdf", u)

	require.NoError(t, s.Delete(ctx, key))
	ok, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestLocalStorage_RejectsEscapingKeys - keys cannot leave the bucket
func TestLocalStorage_RejectsEscapingKeys(t *testing.T) {
	t.Parallel()

	s, err := storage.NewLocalStorage(storage.Config{BasePath: t.TempDir()})
	require.NoError(t, err)

	err = s.Save(context.Background(), "../../etc/passwd", strings.NewReader("x"), "text/plain")
	assert.ErrorIs(t, err, storage.ErrInvalidKey)

	_, err = s.PublicURL("")
	assert.ErrorIs(t, err, storage.ErrInvalidKey)
}

// TestPublicURLOr - derivation failures fall back to "#"
func TestPublicURLOr(t *testing.T) {
	t.Parallel()

	s, err := storage.NewLocalStorage(storage.Config{BasePath: t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, "#", storage.PublicURLOr(s, ""))
	assert.Equal(t, "#", storage.PublicURLOr(nil, "a/b.pdf"))
	assert.Equal(t, "/files/a/b.pdf", storage.PublicURLOr(s, "a/b.pdf"))
}

// TestPublicURLOr_PrivateBucket - private object stores hand out presigned links
func TestPublicURLOr_PrivateBucket(t *testing.T) {
	t.Parallel()

	private, err := storage.NewS3Storage(storage.Config{Bucket: "adjuntos_ordenes", Region: "sa-east-1", AccessKey: "AKIDEXAMPLE", SecretKey: "secret"})
	require.NoError(t, err)
	assert.True(t, private.Private())

	u := storage.PublicURLOr(private, "ordenes/1/a.pdf")
	assert.Contains(t, u, "ordenes/1/a.pdf")
	assert.Contains(t, u, "X-Amz-Signature=")
	assert.Contains(t, u, "X-Amz-Expires=900")
	assert.Equal(t, "#", storage.PublicURLOr(private, "../a.pdf"))

	public, err := storage.NewS3Storage(storage.Config{Bucket: "adjuntos_ordenes", Region: "sa-east-1", AccessKey: "AKIDEXAMPLE", SecretKey: "secret", PublicRead: true})
	require.NoError(t, err)
	assert.False(t, public.Private())
	assert.Equal(t, "https://adjuntos_ordenes.s3.sa-east-1.amazonaws.com/ordenes/1/a.pdf", storage.PublicURLOr(public, "ordenes/1/a.pdf"))
}

// TestNewStorage_ObjectStores - S3 and R2 build without network access
func TestNewStorage_ObjectStores(t *testing.T) {
	t.Parallel()

	s3, err := storage.NewStorage(storage.Config{Type: "s3", Bucket: "adjuntos_ordenes", Region: "sa-east-1"})
	require.NoError(t, err)
	u, err := s3.PublicURL("ordenes/1/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://adjuntos_ordenes.s3.sa-east-1.amazonaws.com/ordenes/1/a.pdf", u)

	r2, err := storage.NewStorage(storage.Config{Type: "cloudflare_r2", Bucket: "adjuntos", Endpoint: "https://acc.r2.cloudflarestorage.com", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)
	u, err = r2.PublicURL("mantenimiento/3/foto.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://adjuntos.r2.dev/mantenimiento/3/foto.jpg", u)

	_, err = storage.NewStorage(storage.Config{Type: "cloudflare_r2", Bucket: "x"})
	assert.Error(t, err)

	_, err = storage.NewStorage(storage.Config{Type: "ftp"})
	assert.Error(t, err)
}
