package service

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"inkwell/internal/config"
	"inkwell/internal/media"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"
)

const DefaultMaxUploadSizeMB = 10

type UploadInput struct {
	Filename    string
	ContentType string
	Content     []byte
	// ImagesOnly restricts the upload to raster images.
	ImagesOnly bool
}

// Upload describes a stored file.
type Upload struct {
	URL         string `json:"url"`
	PreviewURL  string `json:"preview_url,omitempty"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// MediaService accepts uploaded files and writes them to a media.Store.
type MediaService struct {
	store              media.Store
	maxUploadSizeBytes int64
	previews           bool
}

func NewMediaService(store media.Store, cfg *config.Config) *MediaService {
	maxUploadSizeMB := DefaultMaxUploadSizeMB
	previews := false
	if cfg != nil {
		if cfg.MediaMaxUploadMB > 0 {
			maxUploadSizeMB = cfg.MediaMaxUploadMB
		}
		previews = cfg.MediaPreviews
	}
	return &MediaService{
		store:              store,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
		previews:           previews,
	}
}

// MaxUploadBytes is the largest accepted file.
func (s *MediaService) MaxUploadBytes() int64 {
	return s.maxUploadSizeBytes
}

// Upload stores in.Content and returns its public URL. The stored type is
// sniffed from the bytes; the declared type is ignored.
func (s *MediaService) Upload(ctx context.Context, in UploadInput) (_ *Upload, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "MediaService", "Upload")
	defer func() {
		observability.EndSpan(span, err)
		middleware.Uploads.WithLabelValues(s.store.Backend(), uploadOutcome(err)).Inc()
	}()

	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	detected := normalizeContentType(http.DetectContentType(in.Content))
	if !isAllowedMediaType(detected) {
		return nil, models.NewValidationError("Unsupported file type")
	}
	if in.ImagesOnly && !isRasterImage(detected) {
		return nil, models.NewValidationError("File must be an image")
	}

	key := media.ObjectKey(in.Filename)
	url, err := s.store.Put(ctx, key, detected, in.Content)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "media write failed",
			slog.String("key", key),
			slog.String("backend", s.store.Backend()),
			slog.String("error", err.Error()))
		return nil, models.NewIOError(err)
	}

	out := &Upload{
		URL:         url,
		Key:         key,
		ContentType: detected,
		Size:        int64(len(in.Content)),
	}
	if s.previews && strings.HasPrefix(detected, "image/") {
		out.PreviewURL = s.storePreview(ctx, key, in.Content)
	}
	return out, nil
}

// storePreview writes a downscaled copy of large images. Failures only
// cost the preview.
func (s *MediaService) storePreview(ctx context.Context, key string, data []byte) string {
	preview, ok, err := media.Preview(data)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "preview encode failed", slog.String("key", key), slog.String("error", err.Error()))
		return ""
	}
	if !ok {
		return ""
	}
	url, err := s.store.Put(ctx, media.PreviewKey(key), "image/webp", preview)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "preview write failed", slog.String("key", key), slog.String("error", err.Error()))
		return ""
	}
	return url
}

func isRasterImage(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/gif", "image/webp", "image/bmp":
		return true
	}
	return false
}

func isAllowedMediaType(contentType string) bool {
	switch {
	case isRasterImage(contentType):
		return true
	case strings.HasPrefix(contentType, "video/"), strings.HasPrefix(contentType, "audio/"):
		return true
	case contentType == "application/pdf":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func uploadOutcome(err error) string {
	switch models.ErrorCode(err) {
	case "":
		if err != nil {
			return "error"
		}
		return "stored"
	case models.CodeValidation:
		return "rejected"
	case models.CodeIO:
		return "io_error"
	default:
		return "error"
	}
}
