package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/DukeRupert/monfournisseur/internal/csrf"
	"github.com/DukeRupert/monfournisseur/internal/domain"
	"github.com/DukeRupert/monfournisseur/internal/phone"
	"github.com/DukeRupert/monfournisseur/internal/service"
)

// Form actions of the multi-step lead form.
const (
	leadActionNext       = "next"
	leadActionBack       = "back"
	leadActionSubmit     = "submit"
	leadActionAddLink    = "add_link"
	leadActionRemoveLink = "remove_link_" // followed by the link index
)

// maxPrefillNotes bounds the notes accepted from the query string.
const maxPrefillNotes = 500

// =============================================================================
// Template Data Types
// =============================================================================

// StepView is one entry of the form progress bar.
type StepView struct {
	Number  domain.FormStep
	Title   string
	Current bool
	Done    bool
}

// LeadPageData contains data for the lead form page.
type LeadPageData struct {
	Form       domain.LeadForm
	Step       domain.FormStep
	Steps      []StepView
	Errors     map[string]string // Field-level validation errors
	Urgencies  []domain.Urgency
	CanAddLink bool
	Flash      *Flash
	CSRFToken  string

	// Normalized values shown on the review step
	ReviewWhatsApp string
	ReviewContact  string
	ReviewLinks    []string
}

// LeadSuccessData contains data for the confirmation page.
type LeadSuccessData struct {
	Receipt        *domain.LeadReceipt
	WhatsAppNumber string
}

// =============================================================================
// Handler Configuration
// =============================================================================

// LeadHandler serves the multi-step lead form.
type LeadHandler struct {
	leads         service.LeadService
	calculator    service.CalculatorService
	renderer      TemplateRenderer
	logger        *slog.Logger
	secureCookies bool
}

// NewLeadHandler creates a new LeadHandler.
func NewLeadHandler(
	leads service.LeadService,
	calc service.CalculatorService,
	renderer TemplateRenderer,
	logger *slog.Logger,
	secureCookies bool,
) *LeadHandler {
	return &LeadHandler{
		leads:         leads,
		calculator:    calc,
		renderer:      renderer,
		logger:        logger,
		secureCookies: secureCookies,
	}
}

// RegisterRoutes registers the lead form routes. limit wraps the POST
// route with rate limiting.
//
// Routes:
// - GET  /demande -> Show
// - POST /demande -> Submit (rate limited, CSRF protected)
func (h *LeadHandler) RegisterRoutes(mux *http.ServeMux, limit func(http.Handler) http.Handler) {
	protect := csrf.Protect(http.HandlerFunc(h.csrfFailed))

	mux.HandleFunc("GET /demande", h.Show)
	mux.Handle("POST /demande", limit(protect(http.HandlerFunc(h.Submit))))
}

// =============================================================================
// GET /demande - Show form
// =============================================================================

// Show renders the first step. ?product=<id>&quantity=<n> prefills the
// form from a catalog product; budget, notes and urgency add to it.
func (h *LeadHandler) Show(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var (
		prefill domain.ProductPrefill
		flash   *Flash
	)
	if productID := query.Get("product"); productID != "" {
		quantity, _ := strconv.Atoi(query.Get("quantity"))
		quote, err := h.calculator.Quote(r.Context(), productID, quantity)
		if err != nil {
			h.logger.Info("lead prefill skipped", "product_id", productID, "error", err)
		} else {
			prefill = quote.Prefill
			flash = &Flash{
				Type:    "info",
				Message: "Votre demande est préremplie pour " + quote.Product.Name + ".",
			}
		}
	}
	applyPrefillQuery(&prefill, query)

	h.renderForm(w, r, http.StatusOK, prefill.Form(), nil, flash)
}

// applyPrefillQuery copies the optional budget, notes and urgency
// parameters. Invalid values are ignored.
func applyPrefillQuery(pf *domain.ProductPrefill, query url.Values) {
	if budget, err := strconv.ParseInt(strings.TrimSpace(query.Get("budget")), 10, 64); err == nil && budget > 0 {
		pf.Budget = budget
	}
	if notes := strings.TrimSpace(query.Get("notes")); notes != "" {
		if runes := []rune(notes); len(runes) > maxPrefillNotes {
			notes = string(runes[:maxPrefillNotes])
		}
		pf.Notes = notes
	}
	if raw := query.Get("urgency"); raw != "" {
		if u, ok := domain.ParseUrgency(raw); ok {
			pf.Urgency = u
		}
	}
}

// =============================================================================
// POST /demande - Navigate or submit
// =============================================================================

// Submit handles every button of the form: step navigation, link list
// edits and the final submission.
func (h *LeadHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderErrorPage(w, r, h.renderer, h.logger, domain.Invalid("lead.parse", "Formulaire invalide."))
		return
	}

	form := parseLeadForm(r)
	action := r.PostForm.Get("action")

	switch {
	case action == leadActionBack:
		form.Step = domain.ClampStep(int(form.Step) - 1)
		h.renderForm(w, r, http.StatusOK, form, nil, nil)

	case action == leadActionAddLink:
		if len(form.ProductLinks) < domain.MaxProductLinks {
			form.ProductLinks = append(form.ProductLinks, "")
		}
		h.renderForm(w, r, http.StatusOK, form, nil, nil)

	case strings.HasPrefix(action, leadActionRemoveLink):
		i, err := strconv.Atoi(strings.TrimPrefix(action, leadActionRemoveLink))
		if err == nil && i >= 0 && i < len(form.ProductLinks) {
			form.ProductLinks = append(form.ProductLinks[:i], form.ProductLinks[i+1:]...)
		}
		if len(form.ProductLinks) == 0 {
			form.ProductLinks = []string{""}
		}
		h.renderForm(w, r, http.StatusOK, form, nil, nil)

	case action == leadActionNext:
		if err := form.ValidateStep(form.Step); err != nil {
			h.renderInvalid(w, r, form, err)
			return
		}
		form.Step = domain.ClampStep(int(form.Step) + 1)
		h.renderForm(w, r, http.StatusOK, form, nil, nil)

	default:
		h.submit(w, r, form)
	}
}

func (h *LeadHandler) submit(w http.ResponseWriter, r *http.Request, form domain.LeadForm) {
	receipt, err := h.leads.Submit(r.Context(), form)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			form.Step = firstInvalidStep(ve)
			h.renderInvalid(w, r, form, err)
			return
		}

		code := domain.ErrorCode(err)
		status := ErrorCodeToHTTPStatus(code)
		logError(h.logger, r, err, code, domain.ErrorOp(err), status)

		form.Step = domain.StepReview
		h.renderForm(w, r, status, form, nil, &Flash{
			Type:    "error",
			Message: domain.ErrorMessage(err),
		})
		return
	}

	h.logger.Info("lead submitted",
		"request_id", receipt.RequestID,
		"urgency", form.Urgency,
		"links", len(form.Links()),
	)

	h.renderer.RenderHTTP(w, "public/demande_success", LeadSuccessData{
		Receipt:        receipt,
		WhatsAppNumber: phone.Normalize(form.WhatsAppNumber),
	})
}

func (h *LeadHandler) renderInvalid(w http.ResponseWriter, r *http.Request, form domain.LeadForm, err error) {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		renderErrorPage(w, r, h.renderer, h.logger, err)
		return
	}
	h.logger.Info("lead form validation failed", "step", int(form.Step), "fields", ve.FieldNames())
	h.renderForm(w, r, http.StatusUnprocessableEntity, form, ve.Fields, &Flash{
		Type:    "error",
		Message: domain.ErrorMessage(err),
	})
}

func (h *LeadHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, form domain.LeadForm, errs map[string]string, flash *Flash) {
	token, err := csrf.EnsureToken(w, r, h.secureCookies)
	if err != nil {
		InternalErrorResponse(w, r, h.logger, err)
		return
	}

	if len(form.ProductLinks) == 0 {
		form.ProductLinks = []string{""}
	}
	step := domain.ClampStep(int(form.Step))
	form.Step = step

	data := LeadPageData{
		Form:       form,
		Step:       step,
		Steps:      stepViews(step),
		Errors:     errs,
		Urgencies:  domain.AllUrgencies(),
		CanAddLink: len(form.ProductLinks) < domain.MaxProductLinks,
		Flash:      flash,
		CSRFToken:  token,
	}
	if data.Errors == nil {
		data.Errors = map[string]string{}
	}
	if step == domain.StepReview {
		data.ReviewWhatsApp = phone.Format(phone.Normalize(form.WhatsAppNumber))
		data.ReviewContact = phone.Format(phone.Normalize(form.ContactNumber))
		data.ReviewLinks = form.Links()
	}

	h.renderer.RenderHTTPStatus(w, status, "public/demande", data)
}

func (h *LeadHandler) csrfFailed(w http.ResponseWriter, r *http.Request) {
	h.logger.Warn("csrf validation failed", "path", r.URL.Path)
	renderErrorPage(w, r, h.renderer, h.logger,
		domain.Forbidden("lead.csrf", "Votre session a expiré. Rechargez la page et réessayez."))
}

// parseLeadForm reads the posted fields, keeping them as typed.
func parseLeadForm(r *http.Request) domain.LeadForm {
	step, _ := strconv.Atoi(r.PostForm.Get("step"))
	links := append([]string(nil), r.PostForm["product_links"]...)
	if len(links) > domain.MaxProductLinks+1 {
		links = links[:domain.MaxProductLinks+1]
	}

	return domain.LeadForm{
		WhatsAppNumber: r.PostForm.Get(domain.FieldWhatsApp),
		ContactNumber:  r.PostForm.Get(domain.FieldContact),
		ProductLinks:   links,
		Description:    r.PostForm.Get(domain.FieldDescription),
		Urgency:        r.PostForm.Get(domain.FieldUrgency),
		Step:           domain.ClampStep(step),
	}
}

// firstInvalidStep is the earliest step showing one of the failing fields.
func firstInvalidStep(ve *domain.ValidationError) domain.FormStep {
	if ve.Has(domain.FieldWhatsApp) || ve.Has(domain.FieldContact) {
		return domain.StepContact
	}
	for _, name := range ve.FieldNames() {
		if strings.HasPrefix(name, domain.FieldProductLinks) || name == domain.FieldDescription {
			return domain.StepProduct
		}
	}
	return domain.StepReview
}

func stepViews(current domain.FormStep) []StepView {
	var out []StepView
	for s := domain.StepContact; s <= domain.LastFormStep; s++ {
		out = append(out, StepView{
			Number:  s,
			Title:   s.Title(),
			Current: s == current,
			Done:    s < current,
		})
	}
	return out
}
