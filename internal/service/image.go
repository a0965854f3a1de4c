package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/DukeRupert/monfournisseur/internal/domain"
	"github.com/DukeRupert/monfournisseur/internal/metrics"
	"github.com/DukeRupert/monfournisseur/internal/storage"
)

// maxSourceImageBytes bounds a downloaded product photo.
const maxSourceImageBytes = 10 << 20

// thumbnailCacheControl lets browsers and R2 keep thumbnails for a week.
const thumbnailCacheControl = "public, max-age=604800"

// ImageService serves product thumbnails, generating them on first use.
type ImageService interface {
	// Thumbnail returns the JPEG thumbnail of the index-th product image.
	// The caller closes the reader.
	Thumbnail(ctx context.Context, productID string, index int) (io.ReadCloser, storage.ObjectInfo, error)
}

// ImageServiceConfig configures source image fetching.
type ImageServiceConfig struct {
	AllowedHosts []string      // Hosts product images may be fetched from
	FetchTimeout time.Duration // Defaults to 10s
}

type imageService struct {
	products     ProductSource
	store        storage.Storage
	processor    ThumbnailProcessor
	httpClient   *http.Client
	allowedHosts map[string]bool
	logger       *slog.Logger
}

// NewImageService creates an ImageService caching thumbnails in store.
func NewImageService(products ProductSource, store storage.Storage, processor ThumbnailProcessor, cfg ImageServiceConfig, logger *slog.Logger) ImageService {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	hosts := make(map[string]bool, len(cfg.AllowedHosts))
	for _, h := range cfg.AllowedHosts {
		hosts[strings.ToLower(strings.TrimSpace(h))] = true
	}
	return &imageService{
		products:     products,
		store:        store,
		processor:    processor,
		httpClient:   &http.Client{Timeout: timeout},
		allowedHosts: hosts,
		logger:       logger,
	}
}

func (s *imageService) Thumbnail(ctx context.Context, productID string, index int) (io.ReadCloser, storage.ObjectInfo, error) {
	const op = "image.thumbnail"

	p, err := s.products.ByID(productID)
	if err != nil {
		return nil, storage.ObjectInfo{}, err
	}
	if index < 0 || index >= len(p.Images) {
		return nil, storage.ObjectInfo{}, domain.NotFound(op, "Image", strconv.Itoa(index))
	}

	key := storage.ProductThumbnailKey(p.ID, index)
	rc, info, err := s.store.Get(ctx, key)
	if err == nil {
		metrics.ThumbnailServed(metrics.ThumbnailHit)
		return rc, info, nil
	}
	if !storage.IsNotFound(err) {
		s.logger.Warn("thumbnail cache read failed, regenerating", "key", key, "error", err)
	}

	thumb, err := s.generate(ctx, p.Images[index])
	if err != nil {
		metrics.ThumbnailServed(metrics.ThumbnailFailed)
		s.logger.Warn("thumbnail generation failed",
			"op", op,
			"product_id", p.ID,
			"index", index,
			"error", err,
		)
		return nil, storage.ObjectInfo{}, err
	}
	metrics.ThumbnailServed(metrics.ThumbnailGenerated)

	err = s.store.Put(ctx, key, bytes.NewReader(thumb), storage.PutOptions{
		ContentType:  "image/jpeg",
		CacheControl: thumbnailCacheControl,
		Overwrite:    true,
	})
	if err != nil {
		// Serving the fresh thumbnail still works without the cache.
		s.logger.Error("failed to cache thumbnail", "key", key, "error", err)
	}

	return io.NopCloser(bytes.NewReader(thumb)), storage.ObjectInfo{
		Key:          key,
		Size:         int64(len(thumb)),
		ContentType:  "image/jpeg",
		LastModified: time.Now().UTC(),
	}, nil
}

// generate downloads a source image and resizes it.
func (s *imageService) generate(ctx context.Context, rawURL string) ([]byte, error) {
	const op = "image.fetch"

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return nil, domain.Invalid(op, "Adresse d'image invalide")
	}
	if !s.allowedHosts[strings.ToLower(u.Hostname())] {
		return nil, domain.NotFound(op, "Image", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to build image request")
	}
	req.Header.Set("Accept", "image/jpeg,image/png;q=0.9,image/gif;q=0.8")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, domain.External(err, op, "Image du produit indisponible")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.External(fmt.Errorf("status %d", resp.StatusCode), op, "Image du produit indisponible")
	}
	if ct := resp.Header.Get("Content-Type"); !storage.IsDecodableImage(ct) {
		return nil, domain.External(fmt.Errorf("content type %q", ct), op, "Format d'image non pris en charge")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceImageBytes+1))
	if err != nil {
		return nil, domain.External(err, op, "Image du produit indisponible")
	}
	if len(body) > maxSourceImageBytes {
		return nil, domain.Errorf(domain.ETOOLARGE, op, "Image du produit trop volumineuse")
	}

	thumb, _, _, err := s.processor.GenerateThumbnail(bytes.NewReader(body), ThumbnailMaxSize, ThumbnailMaxSize)
	if err != nil {
		return nil, domain.External(err, op, "Image du produit illisible")
	}
	return thumb, nil
}
