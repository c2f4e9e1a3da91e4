package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"flota_console/internal/logger"
)

// Storage is the object store holding attachment bytes. Keys are
// slash-separated paths such as "ordenes/12/factura_1700000000000.pdf".
type Storage interface {
	// Save writes the object at key.
	Save(ctx context.Context, key string, reader io.Reader, contentType string) error

	// Get opens the object at key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)

	// PublicURL derives the public link of an object without a network call.
	PublicURL(key string) (string, error)

	// SignedURL returns a temporary link for private buckets.
	SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Config holds storage configuration
type Config struct {
	Type       string // local, s3, cloudflare_r2
	BasePath   string // local root directory
	BaseURL    string // public URL base
	Bucket     string // S3/R2 bucket, local sub-directory
	Region     string // S3
	AccessKey  string
	SecretKey  string
	Endpoint   string // R2 or custom S3
	UseSSL     bool
	PublicRead bool // upload with public-read ACL
}

// SignedURLExpiry is the lifetime of links handed out for private objects.
const SignedURLExpiry = 15 * time.Minute

// ErrInvalidKey is returned for empty keys or keys escaping the bucket.
var ErrInvalidKey = errors.New("invalid storage key")

// NewStorage creates a new storage instance based on configuration
func NewStorage(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "local", "":
		return NewLocalStorage(cfg)
	case "s3":
		return NewS3Storage(cfg)
	case "cloudflare_r2":
		return NewCloudflareR2Storage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// PublicURLOr returns the link of key, or "#" when it cannot be derived.
// Stores reporting Private() hand out a presigned link instead.
func PublicURLOr(s Storage, key string) string {
	if s == nil {
		return "#"
	}
	op := "public_url"
	var (
		u   string
		err error
	)
	if p, ok := s.(interface{ Private() bool }); ok && p.Private() {
		op = "signed_url"
		u, err = s.SignedURL(context.Background(), key, SignedURLExpiry)
	} else {
		u, err = s.PublicURL(key)
	}
	if err != nil || u == "" {
		if err != nil {
			logger.StorageLog(op, key, err)
		}
		return "#"
	}
	return u
}

// cleanKey normalises a key and rejects empty or parent-escaping keys.
func cleanKey(key string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
