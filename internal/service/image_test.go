package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/monfournisseur/internal/domain"
	"github.com/DukeRupert/monfournisseur/internal/storage"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// imageServer serves a PNG at /photo.png, HTML at /page and 404 elsewhere.
func imageServer(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	photo := pngBytes(t, 1200, 600)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		switch r.URL.Path {
		case "/photo.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write(photo)
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newImageService(t *testing.T, srv *httptest.Server, images ...string) (ImageService, storage.Storage) {
	t.Helper()
	store, _ := newLocalStore(t)
	var urls []string
	for _, path := range images {
		urls = append(urls, srv.URL+path)
	}
	products := productMap{"fp-001": {ID: "fp-001", Images: append(urls, "https://evil.example.com/x.png")}}
	svc := NewImageService(products, store, NewImagingProcessor(), ImageServiceConfig{
		AllowedHosts: []string{"127.0.0.1"},
	}, discardLogger())
	return svc, store
}

func TestImageService_GeneratesAndCaches(t *testing.T) {
	srv, hits := imageServer(t)
	svc, store := newImageService(t, srv, "/photo.png")
	ctx := context.Background()

	rc, info, err := svc.Thumbnail(ctx, "fp-001", 0)
	require.NoError(t, err)
	first, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)

	assert.Equal(t, "image/jpeg", info.ContentType)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(first))
	require.NoError(t, err)
	assert.Equal(t, ThumbnailMaxSize, cfg.Width)
	assert.Equal(t, ThumbnailMaxSize/2, cfg.Height)

	ok, err := store.Exists(ctx, storage.ProductThumbnailKey("fp-001", 0))
	require.NoError(t, err)
	assert.True(t, ok)

	rc, _, err = svc.Thumbnail(ctx, "fp-001", 0)
	require.NoError(t, err)
	second, _ := io.ReadAll(rc)
	rc.Close()

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits), "second request served from storage")
}

func TestImageService_Errors(t *testing.T) {
	srv, _ := imageServer(t)
	svc, _ := newImageService(t, srv, "/missing.png", "/page")
	ctx := context.Background()

	tests := []struct {
		name      string
		productID string
		index     int
		wantCode  string
	}{
		{"unknown product", "nope", 0, domain.ENOTFOUND},
		{"negative index", "fp-001", -1, domain.ENOTFOUND},
		{"index out of range", "fp-001", 9, domain.ENOTFOUND},
		{"upstream 404", "fp-001", 0, domain.EEXTERNAL},
		{"not an image", "fp-001", 1, domain.EEXTERNAL},
		{"host not allowed", "fp-001", 2, domain.ENOTFOUND},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Thumbnail(ctx, tt.productID, tt.index)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, domain.ErrorCode(err))
		})
	}
}

func TestImagingProcessor_KeepsSmallImages(t *testing.T) {
	thumb, w, h, err := NewImagingProcessor().GenerateThumbnail(bytes.NewReader(pngBytes(t, 200, 100)), 480, 480)
	require.NoError(t, err)
	assert.Equal(t, 200, w)
	assert.Equal(t, 100, h)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Width)
}

func TestImagingProcessor_RejectsGarbage(t *testing.T) {
	_, _, _, err := NewImagingProcessor().GenerateThumbnail(bytes.NewReader([]byte("not an image")), 480, 480)
	assert.Error(t, err)
}
