package service

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/monfournisseur/internal/catalog"
	"github.com/DukeRupert/monfournisseur/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Load("")
	require.NoError(t, err)
	return c
}

// productMap is a ProductSource over hand-built products.
type productMap map[string]*domain.FeaturedProduct

func (m productMap) ByID(id string) (*domain.FeaturedProduct, error) {
	p, ok := m[id]
	if !ok {
		return nil, domain.NotFound("test.by_id", "Produit", id)
	}
	cp := *p
	return &cp, nil
}
