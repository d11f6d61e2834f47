// Package media persists uploaded files to a public file store and reports
// the URL each file is served from.
package media

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"inkwell/internal/config"

	"github.com/google/uuid"
)

// Backend names accepted by MEDIA_BACKEND.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
	BackendMinio = "minio"
)

const maxBaseNameLength = 80

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Store writes an object under key and returns the URL it is served from.
// Relative URLs are resolved against the request origin by the caller.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Backend() string
}

// NewStore builds the store selected by cfg.MediaBackend.
func NewStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.MediaBackend {
	case "", BackendLocal:
		return NewLocalStore(cfg.MediaRoot, cfg.MediaPublicURL)
	case BackendS3:
		return NewS3Store(ctx, S3Options{
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			UseSSL:          cfg.S3UseSSL,
		})
	case BackendMinio:
		return NewMinioStore(ctx, MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	default:
		return nil, fmt.Errorf("unsupported media backend %q", cfg.MediaBackend)
	}
}

// ObjectKey derives a collision-free key that keeps a readable form of the
// declared file name: "<uuid>-<name>".
func ObjectKey(declaredName string) string {
	name := SanitizeName(declaredName)
	if name == "" {
		return uuid.NewString()
	}
	return uuid.NewString() + "-" + name
}

// SanitizeName reduces a client-supplied file name to a safe base name.
func SanitizeName(declaredName string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(declaredName), `\`, "/"))
	if base == "." || base == "/" {
		return ""
	}

	base = unsafeNameChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if len(base) <= maxBaseNameLength {
		return base
	}

	ext := path.Ext(base)
	if len(ext) >= maxBaseNameLength {
		ext = ""
	}
	return base[:maxBaseNameLength-len(ext)] + ext
}

// PreviewKey is the key of the generated preview for key.
func PreviewKey(key string) string {
	return strings.TrimSuffix(key, path.Ext(key)) + ".preview.webp"
}
