package handler

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/monfournisseur/internal/catalog"
	"github.com/DukeRupert/monfournisseur/internal/csrf"
	"github.com/DukeRupert/monfournisseur/internal/domain"
	"github.com/DukeRupert/monfournisseur/internal/leadapi/mock"
	"github.com/DukeRupert/monfournisseur/internal/service"
	"github.com/DukeRupert/monfournisseur/internal/storage"
	"github.com/DukeRupert/monfournisseur/web"
)

const testCSRFToken = "test-csrf-token"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubImages serves fixed thumbnails.
type stubImages struct {
	body []byte
	err  error
}

func (s *stubImages) Thumbnail(ctx context.Context, productID string, index int) (io.ReadCloser, storage.ObjectInfo, error) {
	if s.err != nil {
		return nil, storage.ObjectInfo{}, s.err
	}
	return io.NopCloser(bytes.NewReader(s.body)), storage.ObjectInfo{
		Key:          storage.ProductThumbnailKey(productID, index),
		Size:         int64(len(s.body)),
		ContentType:  "image/jpeg",
		LastModified: time.Now(),
	}, nil
}

type testApp struct {
	mux      *http.ServeMux
	provider *mock.Provider
	images   *stubImages
}

func noLimit(next http.Handler) http.Handler { return next }

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	logger := discardLogger()

	cat, err := catalog.Load("")
	require.NoError(t, err)

	renderer, err := NewRenderer(RendererConfig{FS: web.Templates(), Logger: logger})
	require.NoError(t, err)

	provider := mock.New(logger)
	provider.RequestID = "MF-TEST1"
	images := &stubImages{body: []byte("jpeg-bytes")}

	calc := service.NewCalculatorService(cat, domain.DefaultMaxOrderQuantity, logger)
	leads := service.NewLeadService(provider, nil, logger)

	mux := http.NewServeMux()
	NewPageHandler(cat, calc, images, renderer, logger).RegisterRoutes(mux)
	NewLeadHandler(leads, calc, renderer, logger, false).RegisterRoutes(mux, noLimit)
	NewAPIHandler(cat, calc, leads, logger).RegisterRoutes(mux, noLimit)

	return &testApp{mux: mux, provider: provider, images: images}
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.mux.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) get(path string) *httptest.ResponseRecorder {
	return a.do(httptest.NewRequest(http.MethodGet, path, nil))
}

// postForm sends a form with a matching CSRF cookie and field.
func (a *testApp) postForm(path string, form url.Values, headers ...string) *httptest.ResponseRecorder {
	if form.Get(csrf.FormFieldName) == "" {
		form.Set(csrf.FormFieldName, testCSRFToken)
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: csrf.CookieName, Value: testCSRFToken})
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return a.do(req)
}
