// Package storage persists the service's blobs: archived lead requests and
// cached product thumbnails.
//
// Two backends implement Storage:
// - LocalStorage: files under a directory, for development
// - R2Storage: Cloudflare R2 (S3-compatible), for production
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Storage is a flat key/value blob store.
type Storage interface {
	// Put stores data at key. Without opts.Overwrite an existing key
	// yields ErrKeyExists.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get opens the object at key. The caller closes the reader.
	// A missing key yields ErrNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Exists reports whether an object is stored at key.
	Exists(ctx context.Context, key string) (bool, error)
}

// PutOptions configures how an object is stored.
type PutOptions struct {
	ContentType  string // Detected from the key extension when empty
	CacheControl string // Forwarded to R2, ignored locally
	MaxSize      int64  // ErrTooLarge above this many bytes; 0 means no limit
	Overwrite    bool
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
}

const (
	ProviderLocal = "local"
	ProviderR2    = "r2"
)

// LocalConfig holds configuration for local filesystem storage.
type LocalConfig struct {
	BasePath string // e.g. "./storage"
}

// R2Config holds configuration for Cloudflare R2 storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string // Defaults to "auto"
	Endpoint        string // Overrides the account endpoint, mostly for tests
}

// Config selects and configures a backend.
type Config struct {
	Provider string
	Local    LocalConfig
	R2       R2Config
}

// New creates the configured backend.
func New(cfg Config, logger *slog.Logger) (Storage, error) {
	switch cfg.Provider {
	case ProviderLocal, "":
		return NewLocalStorage(cfg.Local, logger)
	case ProviderR2:
		return NewR2Storage(cfg.R2, logger)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}

// =============================================================================
// Keys
// =============================================================================

// LeadArchiveKey is where an accepted lead is archived.
// Format: leads/YYYY/MM/DD/{requestID}.json
func LeadArchiveKey(requestID string, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("leads/%04d/%02d/%02d/%s.json", at.Year(), int(at.Month()), at.Day(), segment(requestID))
}

// ProductThumbnailKey is where the thumbnail of a product image is cached.
// Format: products/{productID}/thumbnails/{index}.jpg
func ProductThumbnailKey(productID string, index int) string {
	return fmt.Sprintf("products/%s/thumbnails/%d.jpg", segment(productID), index)
}

// segment makes an identifier safe to use as one key component.
func segment(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "_"
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}

// validKey rejects empty keys, absolute keys and parent references.
func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}
