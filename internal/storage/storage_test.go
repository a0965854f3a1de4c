package storage

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLocal(t *testing.T) (*LocalStorage, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewLocalStorage(LocalConfig{BasePath: dir}, discardLogger())
	require.NoError(t, err)
	return s, dir
}

func TestLeadArchiveKey(t *testing.T) {
	at := time.Date(2024, time.March, 5, 23, 30, 0, 0, time.FixedZone("WAT", 3600))
	assert.Equal(t, "leads/2024/03/05/MF-1234.json", LeadArchiveKey("MF-1234", at))
	assert.Equal(t, "leads/2024/03/05/a-b-c.json", LeadArchiveKey("a/b/c", at))
	assert.Equal(t, "leads/2024/03/05/_.json", LeadArchiveKey(" ", at))
}

func TestProductThumbnailKey(t *testing.T) {
	assert.Equal(t, "products/fp-001/thumbnails/2.jpg", ProductThumbnailKey("fp-001", 2))
	assert.Equal(t, "products/--x/thumbnails/0.jpg", ProductThumbnailKey("..x", 0))
}

func TestLocalStorage_PutGet(t *testing.T) {
	s, dir := newLocal(t)
	ctx := context.Background()
	key := "leads/2024/03/05/MF-1.json"

	require.NoError(t, s.Put(ctx, key, strings.NewReader(`{"ok":true}`), PutOptions{}))

	_, err := os.Stat(filepath.Join(dir, "leads", "2024", "03", "05", "MF-1.json"))
	require.NoError(t, err)

	rc, info, err := s.Get(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)

	assert.Equal(t, `{"ok":true}`, string(body))
	assert.Equal(t, int64(11), info.Size)
	assert.Equal(t, "application/json", info.ContentType)

	ok, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalStorage_Overwrite(t *testing.T) {
	s, _ := newLocal(t)
	ctx := context.Background()
	key := "products/fp-001/thumbnails/0.jpg"

	require.NoError(t, s.Put(ctx, key, strings.NewReader("a"), PutOptions{}))

	err := s.Put(ctx, key, strings.NewReader("b"), PutOptions{})
	assert.ErrorIs(t, err, ErrKeyExists)

	require.NoError(t, s.Put(ctx, key, strings.NewReader("c"), PutOptions{Overwrite: true}))
	rc, _, err := s.Get(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "c", string(body))
}

func TestLocalStorage_TooLargeLeavesNothing(t *testing.T) {
	s, _ := newLocal(t)
	ctx := context.Background()

	err := s.Put(ctx, "big.jpg", strings.NewReader("0123456789"), PutOptions{MaxSize: 4})
	assert.ErrorIs(t, err, ErrTooLarge)

	ok, err := s.Exists(ctx, "big.jpg")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStorage_Missing(t *testing.T) {
	s, _ := newLocal(t)

	_, _, err := s.Get(context.Background(), "nope.json")
	assert.True(t, IsNotFound(err))

	ok, err := s.Exists(context.Background(), "nope.json")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStorage_InvalidKeys(t *testing.T) {
	s, _ := newLocal(t)
	ctx := context.Background()

	for _, key := range []string{"", "/etc/passwd", "../escape", "a/../../b", "a//b", `a\b`} {
		err := s.Put(ctx, key, strings.NewReader("x"), PutOptions{})
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}

func TestLocalStorage_CanceledContext(t *testing.T) {
	s, _ := newLocal(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Put(ctx, "a.json", strings.NewReader("x"), PutOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(Config{Provider: "ftp"}, discardLogger())
	assert.Error(t, err)
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "image/png", DetectContentType("image/png", "x.jpg"))
	assert.Equal(t, "image/jpeg", DetectContentType("", "a/b.JPG"))
	assert.Equal(t, "application/json", DetectContentType("", "lead.json"))
	assert.Equal(t, "application/octet-stream", DetectContentType("", "blob"))
}

func TestIsDecodableImage(t *testing.T) {
	assert.True(t, IsDecodableImage("image/jpeg"))
	assert.True(t, IsDecodableImage("image/PNG; charset=binary"))
	assert.False(t, IsDecodableImage("image/webp"))
	assert.False(t, IsDecodableImage("text/html"))
}

// fakeR2 answers path-style S3 requests for a single bucket.
func fakeR2(t *testing.T, objects map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/bucket/")
		body, ok := objects[key]
		if !ok {
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("ETag", `"abc"`)
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestR2Storage_ExistsAndGet(t *testing.T) {
	srv := fakeR2(t, map[string]string{"products/fp-001/thumbnails/0.jpg": "jpeg-bytes"})

	s, err := NewR2Storage(R2Config{
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		BucketName:      "bucket",
		Endpoint:        srv.URL,
	}, discardLogger())
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := s.Exists(ctx, "products/fp-001/thumbnails/0.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, "products/fp-001/thumbnails/9.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	rc, info, err := s.Get(ctx, "products/fp-001/thumbnails/0.jpg")
	require.NoError(t, err)
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "jpeg-bytes", string(body))
	assert.Equal(t, "image/jpeg", info.ContentType)

	_, _, err = s.Get(ctx, "products/fp-001/thumbnails/9.jpg")
	assert.True(t, IsNotFound(err))
}

func TestNewR2Storage_RequiresBucket(t *testing.T) {
	_, err := NewR2Storage(R2Config{AccountID: "acc"}, discardLogger())
	assert.Error(t, err)
}
