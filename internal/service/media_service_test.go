package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"inkwell/internal/config"
	"inkwell/internal/media"
	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaService_Upload(t *testing.T) {
	store := newMemoryStore()
	svc := NewMediaService(store, &config.Config{MediaMaxUploadMB: 1})

	out, err := svc.Upload(context.Background(), UploadInput{
		Filename:    "My Cover.png",
		ContentType: "application/octet-stream",
		Content:     testutil.PNG(t, 20, 10),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out.Key, "-My_Cover.png"))
	assert.Equal(t, "/uploads/"+out.Key, out.URL)
	assert.Equal(t, "image/png", out.ContentType)
	assert.Empty(t, out.PreviewURL)
	assert.Equal(t, "image/png", store.types[out.Key])
}

func TestMediaService_UploadErrors(t *testing.T) {
	tests := []struct {
		name     string
		content  []byte
		storeErr error
		wantCode string
	}{
		{"no file", nil, nil, models.CodeValidation},
		{"too large", make([]byte, 1024*1024+1), nil, models.CodeValidation},
		{"html rejected", []byte("<!DOCTYPE html><html><script>alert(1)</script></html>"), nil, models.CodeValidation},
		{"svg rejected", []byte(`<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg"></svg>`), nil, models.CodeValidation},
		{"write failure", []byte("%PDF-1.4 minimal"), errors.New("disk full"), models.CodeIO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			store.err = tt.storeErr
			svc := NewMediaService(store, &config.Config{MediaMaxUploadMB: 1})

			_, err := svc.Upload(context.Background(), UploadInput{Filename: "f", Content: tt.content})
			assert.Equal(t, tt.wantCode, models.ErrorCode(err))
			assert.Empty(t, store.objects)
		})
	}
}

func TestMediaService_Preview(t *testing.T) {
	store := newMemoryStore()
	svc := NewMediaService(store, &config.Config{MediaMaxUploadMB: 5, MediaPreviews: true})

	out, err := svc.Upload(context.Background(), UploadInput{Filename: "wide.png", Content: testutil.PNG(t, 1600, 200)})
	require.NoError(t, err)
	assert.Equal(t, "/uploads/"+media.PreviewKey(out.Key), out.PreviewURL)
	assert.Equal(t, "image/webp", store.types[media.PreviewKey(out.Key)])
	assert.Len(t, store.objects, 2)
}

func TestMediaService_Defaults(t *testing.T) {
	svc := NewMediaService(newMemoryStore(), nil)
	assert.Equal(t, int64(DefaultMaxUploadSizeMB*1024*1024), svc.MaxUploadBytes())
}

func TestMediaService_ImagesOnly(t *testing.T) {
	store := newMemoryStore()
	svc := NewMediaService(store, &config.Config{MediaMaxUploadMB: 1})
	ctx := context.Background()

	_, err := svc.Upload(ctx, UploadInput{Filename: "cv.pdf", Content: []byte("%PDF-1.4 minimal"), ImagesOnly: true})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	assert.Empty(t, store.objects)

	out, err := svc.Upload(ctx, UploadInput{Filename: "me.png", Content: testutil.PNG(t, 4, 4), ImagesOnly: true})
	require.NoError(t, err)
	assert.Equal(t, "image/png", out.ContentType)

	// the general upload path still takes documents
	_, err = svc.Upload(ctx, UploadInput{Filename: "cv.pdf", Content: []byte("%PDF-1.4 minimal")})
	assert.NoError(t, err)
}
