package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/DukeRupert/monfournisseur/internal/domain"
	"github.com/DukeRupert/monfournisseur/internal/service"
)

// maxLeadBodyBytes bounds the JSON body of a lead submission.
const maxLeadBodyBytes = 64 << 10

// ProductListResponse is the body of GET /api/produits.
type ProductListResponse struct {
	Data []domain.FeaturedProduct `json:"data"`
	Meta ProductListMeta          `json:"meta"`
}

// ProductListMeta describes the filtered list.
type ProductListMeta struct {
	Filter       domain.ProductFilter `json:"filter"`
	Count        int                  `json:"count"`
	Total        int                  `json:"total"`
	AveragePrice int64                `json:"averagePrice"`
}

// QuoteResponse is the body of GET /api/produits/{id}/devis.
type QuoteResponse struct {
	Data *service.Quote `json:"data"`
}

// LeadResponse is the body of a successful POST /api/demandes.
type LeadResponse struct {
	Data struct {
		RequestID   string    `json:"request_id"`
		SubmittedAt time.Time `json:"submitted_at"`
	} `json:"data"`
}

// APIHandler serves the JSON API used by non-browser clients.
type APIHandler struct {
	catalog    Catalog
	calculator service.CalculatorService
	leads      service.LeadService
	logger     *slog.Logger
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(
	cat Catalog,
	calc service.CalculatorService,
	leads service.LeadService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		catalog:    cat,
		calculator: calc,
		leads:      leads,
		logger:     logger,
	}
}

// RegisterRoutes registers the API routes. limit wraps lead submission.
//
// Routes:
// - GET  /api/produits             -> Products
// - GET  /api/produits/{id}/devis  -> Quote
// - POST /api/demandes             -> SubmitLead (rate limited)
func (h *APIHandler) RegisterRoutes(mux *http.ServeMux, limit func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /api/produits", h.Products)
	mux.HandleFunc("GET /api/produits/{id}/devis", h.Quote)
	mux.Handle("POST /api/demandes", limit(http.HandlerFunc(h.SubmitLead)))
}

// Products lists the catalog, filtered by ?filtre=.
func (h *APIHandler) Products(w http.ResponseWriter, r *http.Request) {
	filter := domain.ParseProductFilter(r.URL.Query().Get("filtre"))
	products := h.catalog.Filter(filter)
	if products == nil {
		products = []domain.FeaturedProduct{}
	}

	writeJSON(w, http.StatusOK, ProductListResponse{
		Data: products,
		Meta: ProductListMeta{
			Filter:       filter,
			Count:        len(products),
			Total:        h.catalog.Stats().Total,
			AveragePrice: h.catalog.AveragePrice(),
		},
	})
}

// Quote prices ?quantite= units of a product. Without a quantity the
// initial state is returned; out-of-range quantities are clamped.
func (h *APIHandler) Quote(w http.ResponseWriter, r *http.Request) {
	quantity := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("quantite")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid("api.quote", "La quantité doit être un nombre entier."))
			return
		}
		quantity = n
	}

	quote, err := h.calculator.Quote(r.Context(), r.PathValue("id"), quantity)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, QuoteResponse{Data: quote})
}

// SubmitLead validates and forwards a JSON lead.
func (h *APIHandler) SubmitLead(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxLeadBodyBytes)

	var form domain.LeadForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrorResponse(w, r, h.logger, domain.Errorf(domain.ETOOLARGE, "api.lead", "Demande trop volumineuse."))
			return
		}
		ErrorResponse(w, r, h.logger, domain.Invalid("api.lead", "Corps JSON invalide."))
		return
	}

	receipt, err := h.leads.Submit(r.Context(), form)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			ValidationErrorResponse(w, r, h.logger, err)
			return
		}
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var resp LeadResponse
	resp.Data.RequestID = receipt.RequestID
	resp.Data.SubmittedAt = receipt.SubmittedAt
	writeJSON(w, http.StatusCreated, resp)
}
