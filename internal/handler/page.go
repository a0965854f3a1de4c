package handler

import (
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/DukeRupert/monfournisseur/internal/catalog"
	"github.com/DukeRupert/monfournisseur/internal/domain"
	"github.com/DukeRupert/monfournisseur/internal/service"
	"github.com/DukeRupert/monfournisseur/internal/templ/components/calculator"
)

// =============================================================================
// Template Data Types
// =============================================================================

// FilterOption is one tab above the product showcase.
type FilterOption struct {
	Value  domain.ProductFilter
	Label  string
	Count  int
	Active bool
	URL    string
}

// HomePageData contains data for the landing page.
type HomePageData struct {
	Content      domain.Content
	Products     []*domain.FeaturedProduct
	Filter       domain.ProductFilter
	Filters      []FilterOption
	Stats        catalog.Stats
	AveragePrice int64
	Carousel     domain.CarouselConfig
}

// ProductPageData contains data for the product detail page.
type ProductPageData struct {
	Product    *domain.FeaturedProduct
	Thumbnails []string      // Thumbnail URLs, one per product image
	Calculator template.HTML // Rendered calculator panel
	LeadURL    string
}

// =============================================================================
// Handler Configuration
// =============================================================================

// PageHandler serves the landing page, the product pages and their
// calculator fragments.
type PageHandler struct {
	catalog    Catalog
	calculator service.CalculatorService
	images     service.ImageService
	renderer   TemplateRenderer
	logger     *slog.Logger
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(
	cat Catalog,
	calc service.CalculatorService,
	images service.ImageService,
	renderer TemplateRenderer,
	logger *slog.Logger,
) *PageHandler {
	return &PageHandler{
		catalog:    cat,
		calculator: calc,
		images:     images,
		renderer:   renderer,
		logger:     logger,
	}
}

// RegisterRoutes registers the page routes.
//
// Routes:
// - GET  /                            -> Home
// - GET  /produits/{id}               -> Product
// - POST /produits/{id}/calculateur   -> Calculate
// - GET  /produits/{id}/images/{index} -> Thumbnail
func (h *PageHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Home)
	mux.HandleFunc("GET /produits/{id}", h.Product)
	mux.HandleFunc("POST /produits/{id}/calculateur", h.Calculate)
	mux.HandleFunc("GET /produits/{id}/images/{index}", h.Thumbnail)
}

// =============================================================================
// GET / - Landing page
// =============================================================================

// Home renders the landing page. The ?filtre= query narrows the showcase.
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	filter := domain.ParseProductFilter(r.URL.Query().Get("filtre"))

	products := h.catalog.Filter(filter)
	data := HomePageData{
		Content:      h.catalog.Content(),
		Products:     productPointers(products),
		Filter:       filter,
		Filters:      h.filterOptions(filter),
		Stats:        h.catalog.Stats(),
		AveragePrice: h.catalog.AveragePrice(),
		Carousel:     h.catalog.Carousel(),
	}

	h.renderer.RenderHTTP(w, "public/home", data)
}

func (h *PageHandler) filterOptions(active domain.ProductFilter) []FilterOption {
	stats := h.catalog.Stats()
	counts := map[domain.ProductFilter]int{
		domain.FilterAll:      stats.Total,
		domain.FilterPopular:  stats.Popular,
		domain.FilterTrending: stats.Trending,
	}

	var out []FilterOption
	for _, f := range []domain.ProductFilter{domain.FilterAll, domain.FilterPopular, domain.FilterTrending} {
		u := "/"
		if f != domain.FilterAll {
			u = "/?filtre=" + url.QueryEscape(string(f))
		}
		out = append(out, FilterOption{
			Value:  f,
			Label:  f.Label(),
			Count:  counts[f],
			Active: f == active,
			URL:    u + "#produits",
		})
	}
	return out
}

func productPointers(products []domain.FeaturedProduct) []*domain.FeaturedProduct {
	out := make([]*domain.FeaturedProduct, len(products))
	for i := range products {
		out[i] = &products[i]
	}
	return out
}

// =============================================================================
// GET /produits/{id} - Product detail
// =============================================================================

// Product renders the product page with the calculator at its initial
// state, or at ?quantite= when given.
func (h *PageHandler) Product(w http.ResponseWriter, r *http.Request) {
	quantity, _ := strconv.Atoi(r.URL.Query().Get("quantite"))

	quote, err := h.calculator.Quote(r.Context(), r.PathValue("id"), quantity)
	if err != nil {
		renderErrorPage(w, r, h.renderer, h.logger, err)
		return
	}
	h.renderProduct(w, r, quote)
}

func (h *PageHandler) renderProduct(w http.ResponseWriter, r *http.Request, quote *service.Quote) {
	panel := panelData(quote)
	html, err := renderComponent(r.Context(), calculator.Panel(panel))
	if err != nil {
		InternalErrorResponse(w, r, h.logger, err)
		return
	}

	p := quote.Product
	thumbs := make([]string, len(p.Images))
	for i := range p.Images {
		thumbs[i] = thumbnailURL(p.ID, i)
	}

	h.renderer.RenderHTTP(w, "public/product", ProductPageData{
		Product:    p,
		Thumbnails: thumbs,
		Calculator: html,
		LeadURL:    panel.LeadURL(),
	})
}

func thumbnailURL(productID string, index int) string {
	return fmt.Sprintf("/produits/%s/images/%d", url.PathEscape(productID), index)
}

// =============================================================================
// POST /produits/{id}/calculateur - Calculator action
// =============================================================================

// Calculate applies one calculator action. htmx requests get the panel
// fragment; plain form posts get the whole product page.
func (h *PageHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("calculator.parse", "Requête invalide"))
		return
	}

	name, raw := calculator.SplitAction(r.PostForm.Get("action"), r.PostForm.Get("raw"))
	action, err := domain.ParseCalculatorAction(name)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	quantity, _ := strconv.Atoi(r.PostForm.Get("quantity"))
	step, _ := strconv.Atoi(r.PostForm.Get("step"))
	state := domain.QuantityState{Quantity: quantity, Step: step}

	quote, err := h.calculator.Apply(r.Context(), r.PathValue("id"), state, action, raw)
	if err != nil {
		renderErrorPage(w, r, h.renderer, h.logger, err)
		return
	}

	if r.Header.Get("HX-Request") != "true" {
		h.renderProduct(w, r, quote)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := calculator.Panel(panelData(quote)).Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render calculator panel", "error", err, "product_id", quote.Product.ID)
	}
}

// =============================================================================
// GET /produits/{id}/images/{index} - Thumbnail
// =============================================================================

// Thumbnail streams a cached or freshly generated product thumbnail.
func (h *PageHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.NotFound("image.thumbnail", "Image", r.PathValue("index")))
		return
	}

	rc, info, err := h.images.Thumbnail(r.Context(), id, index)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("thumbnail write interrupted", "product_id", id, "index", index, "error", err)
	}
}
