// Package handler contains the HTTP handlers of the Mon Fournisseur site:
// server-rendered pages, htmx fragments and the JSON API.
package handler

import (
	"bytes"
	"context"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"

	"github.com/DukeRupert/monfournisseur/internal/catalog"
	"github.com/DukeRupert/monfournisseur/internal/domain"
	"github.com/DukeRupert/monfournisseur/internal/service"
	"github.com/DukeRupert/monfournisseur/internal/templ/components/calculator"
)

// Catalog is the read-only reference data the pages and the API show.
// *catalog.Catalog implements it.
type Catalog interface {
	Products() []domain.FeaturedProduct
	ByID(id string) (*domain.FeaturedProduct, error)
	Filter(f domain.ProductFilter) []domain.FeaturedProduct
	Stats() catalog.Stats
	AveragePrice() int64
	Content() domain.Content
	Carousel() domain.CarouselConfig
}

// Flash represents a message displayed above a form.
//
// The Type field determines styling in templates:
// - "success" -> green background
// - "error"   -> red background
// - "info"    -> blue background
type Flash struct {
	Type    string // "success", "error", or "info"
	Message string
}

// ErrorPageData contains data for the error page.
type ErrorPageData struct {
	Status  int
	Title   string
	Message string
}

// renderErrorPage answers with the error page for HTML requests and with
// the JSON error shape otherwise.
func renderErrorPage(w http.ResponseWriter, r *http.Request, renderer TemplateRenderer, logger *slog.Logger, err error) {
	if acceptsJSON(r) || renderer == nil {
		ErrorResponse(w, r, logger, err)
		return
	}

	code := domain.ErrorCode(err)
	status := ErrorCodeToHTTPStatus(code)
	logError(logger, r, err, code, domain.ErrorOp(err), status)

	title := "Une erreur est survenue"
	switch status {
	case http.StatusNotFound:
		title = "Page introuvable"
	case http.StatusForbidden:
		title = "Requête refusée"
	case http.StatusTooManyRequests:
		title = "Trop de demandes"
	}

	renderer.RenderHTTPStatus(w, status, "public/error", ErrorPageData{
		Status:  status,
		Title:   title,
		Message: domain.ErrorMessage(err),
	})
}

// panelData converts a quote into what the calculator component shows.
func panelData(q *service.Quote) calculator.PanelData {
	return calculator.PanelData{
		ProductID:    q.Product.ID,
		State:        q.State,
		Result:       q.Result,
		NextTiers:    q.NextTiers,
		Suggestion:   q.Suggestion,
		CanIncrease:  q.CanIncrease,
		CanDecrease:  q.CanDecrease,
		MinQuantity:  q.Product.MinOrderQuantity,
		EffectiveMax: q.EffectiveMax,
		MaxLabel:     q.Product.MaxOrderLabel(),
	}
}

// renderComponent renders a templ component for embedding in an
// html/template page.
func renderComponent(ctx context.Context, c templ.Component) (template.HTML, error) {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
