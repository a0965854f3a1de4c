// Package catalog serves the static reference data of the landing page:
// featured products and the page copy. The data ships embedded in the
// binary and is validated once at startup.
package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/DukeRupert/monfournisseur/internal/domain"
)

//go:embed data/*.json
var dataFS embed.FS

// productFile is the on-disk shape of the products document.
type productFile struct {
	Carousel *domain.CarouselConfig  `json:"carousel,omitempty"`
	Products []domain.FeaturedProduct `json:"products"`
}

// Stats summarizes the featured products.
type Stats struct {
	Total    int `json:"total"`
	Popular  int `json:"popular"`
	Trending int `json:"trending"`
	InStock  int `json:"inStock"`
}

// Catalog is an immutable, validated set of products and page content.
// It is safe for concurrent use.
type Catalog struct {
	products []domain.FeaturedProduct
	byID     map[string]int
	content  domain.Content
	carousel domain.CarouselConfig
}

// Load reads the embedded data. A non-empty productsPath replaces the
// embedded product document with a file from disk.
func Load(productsPath string) (*Catalog, error) {
	var (
		raw []byte
		err error
	)
	if productsPath != "" {
		raw, err = os.ReadFile(productsPath)
	} else {
		raw, err = dataFS.ReadFile("data/products.json")
	}
	if err != nil {
		return nil, fmt.Errorf("read products: %w", err)
	}

	contentRaw, err := dataFS.ReadFile("data/content.json")
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}

	return Parse(raw, contentRaw)
}

// Parse builds a catalog from product and content JSON documents.
func Parse(productsJSON, contentJSON []byte) (*Catalog, error) {
	var pf productFile
	if err := json.Unmarshal(productsJSON, &pf); err != nil {
		return nil, fmt.Errorf("parse products: %w", err)
	}

	var content domain.Content
	if err := json.Unmarshal(contentJSON, &content); err != nil {
		return nil, fmt.Errorf("parse content: %w", err)
	}
	if err := content.Validate(); err != nil {
		return nil, fmt.Errorf("invalid content: %w", err)
	}

	return New(pf.Products, content, pf.Carousel)
}

// New validates products and content and returns a catalog.
// A nil carousel uses the default slider configuration.
func New(products []domain.FeaturedProduct, content domain.Content, carousel *domain.CarouselConfig) (*Catalog, error) {
	c := &Catalog{
		products: make([]domain.FeaturedProduct, 0, len(products)),
		byID:     make(map[string]int, len(products)),
		content:  content,
		carousel: domain.DefaultCarouselConfig(),
	}
	if carousel != nil {
		c.carousel = *carousel
	}

	for i := range products {
		p := products[i]
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("invalid product at index %d: %w", i, err)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %q", p.ID)
		}
		if p.Pricing.Currency == "" {
			p.Pricing.Currency = domain.DefaultCurrency
		}
		if p.Pricing.ExchangeRate == 0 {
			p.Pricing.ExchangeRate = domain.DefaultExchangeRate
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}

	return c, nil
}

// Products returns every product in catalog order.
func (c *Catalog) Products() []domain.FeaturedProduct {
	out := make([]domain.FeaturedProduct, len(c.products))
	copy(out, c.products)
	return out
}

// ByID returns the product with the given id.
func (c *Catalog) ByID(id string) (*domain.FeaturedProduct, error) {
	i, ok := c.byID[id]
	if !ok {
		return nil, domain.NotFound("catalog.by_id", "Produit", id)
	}
	p := c.products[i]
	return &p, nil
}

// Filter returns the products matching the filter.
func (c *Catalog) Filter(f domain.ProductFilter) []domain.FeaturedProduct {
	var out []domain.FeaturedProduct
	for i := range c.products {
		if f.Matches(&c.products[i]) {
			out = append(out, c.products[i])
		}
	}
	return out
}

// ByCategory returns the products of one category.
func (c *Catalog) ByCategory(cat domain.ProductCategory) []domain.FeaturedProduct {
	var out []domain.FeaturedProduct
	for _, p := range c.products {
		if p.Category == cat {
			out = append(out, p)
		}
	}
	return out
}

// Stats counts products per showcase badge.
func (c *Catalog) Stats() Stats {
	s := Stats{Total: len(c.products)}
	for _, p := range c.products {
		if p.IsPopular {
			s.Popular++
		}
		if p.IsTrending {
			s.Trending++
		}
		if p.InStock {
			s.InStock++
		}
	}
	return s
}

// AveragePrice is the rounded mean reference unit price, 0 when empty.
func (c *Catalog) AveragePrice() int64 {
	if len(c.products) == 0 {
		return 0
	}
	var sum int64
	for _, p := range c.products {
		sum += p.Pricing.TotalPrice
	}
	n := int64(len(c.products))
	// round half up
	return (2*sum + n) / (2 * n)
}

// Content returns the landing page copy.
func (c *Catalog) Content() domain.Content {
	return c.content
}

// Carousel returns the slider configuration.
func (c *Catalog) Carousel() domain.CarouselConfig {
	return c.carousel
}
