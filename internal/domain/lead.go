package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/DukeRupert/monfournisseur/internal/phone"
)

// MaxProductLinks bounds the number of links in one request.
const MaxProductLinks = 10

// MaxDescriptionLength bounds the free-text description.
const MaxDescriptionLength = 2000

var productLinkPattern = regexp.MustCompile(`^(http|https)://([a-zA-Z0-9-]+\.)+[a-zA-Z]{2,}(/\S*)?$`)

// ValidProductLink reports whether s is an absolute http(s) URL with a
// dotted host and an alphabetic TLD.
func ValidProductLink(s string) bool {
	return productLinkPattern.MatchString(strings.TrimSpace(s))
}

// Urgency is the requested processing speed of a lead.
type Urgency string

const (
	UrgencyNormal  Urgency = "normal"
	UrgencyUrgent  Urgency = "urgent"
	UrgencyExpress Urgency = "express"
)

// AllUrgencies lists urgencies in display order.
func AllUrgencies() []Urgency {
	return []Urgency{UrgencyNormal, UrgencyUrgent, UrgencyExpress}
}

// ParseUrgency maps form input to an urgency. Empty input is normal.
func ParseUrgency(s string) (Urgency, bool) {
	switch u := Urgency(strings.ToLower(strings.TrimSpace(s))); u {
	case "":
		return UrgencyNormal, true
	case UrgencyNormal, UrgencyUrgent, UrgencyExpress:
		return u, true
	}
	return "", false
}

func (u Urgency) Label() string {
	switch u {
	case UrgencyUrgent:
		return "Urgent"
	case UrgencyExpress:
		return "Express"
	default:
		return "Normal"
	}
}

func (u Urgency) Description() string {
	switch u {
	case UrgencyUrgent:
		return "Traitement prioritaire sous 24h"
	case UrgencyExpress:
		return "Traitement immédiat et expédition express"
	default:
		return "Traitement standard sous 48h"
	}
}

// LeadRequest is the normalized payload sent to the lead endpoint.
type LeadRequest struct {
	WhatsAppNumber string   `json:"whatsapp_number"`
	ContactNumber  string   `json:"contact_number"`
	ProductLinks   []string `json:"product_links"`
	Description    string   `json:"description,omitempty"`
	Urgency        Urgency  `json:"urgency"`
}

// LeadReceipt confirms an accepted lead.
type LeadReceipt struct {
	RequestID   string    `json:"request_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// =============================================================================
// Multi-step form
// =============================================================================

// FormStep is a page of the lead form.
type FormStep int

const (
	StepContact FormStep = 1
	StepProduct FormStep = 2
	StepReview  FormStep = 3
)

// LastFormStep is the step that submits.
const LastFormStep = StepReview

// ClampStep keeps a step within the form.
func ClampStep(n int) FormStep {
	if n < int(StepContact) {
		return StepContact
	}
	if n > int(LastFormStep) {
		return LastFormStep
	}
	return FormStep(n)
}

func (s FormStep) Title() string {
	switch s {
	case StepContact:
		return "Vos coordonnées"
	case StepProduct:
		return "Votre produit"
	default:
		return "Récapitulatif"
	}
}

// Field names shared by the form, the JSON API and validation errors.
const (
	FieldWhatsApp     = "whatsapp_number"
	FieldContact      = "contact_number"
	FieldProductLinks = "product_links"
	FieldDescription  = "description"
	FieldUrgency      = "urgency"
)

// LinkField names the error key of the i-th link.
func LinkField(i int) string {
	return fmt.Sprintf("%s[%d]", FieldProductLinks, i)
}

// LeadForm is the raw lead form input. It is kept as typed so it can be
// re-rendered after a failed submission.
type LeadForm struct {
	WhatsAppNumber string   `json:"whatsapp_number"`
	ContactNumber  string   `json:"contact_number"`
	ProductLinks   []string `json:"product_links"`
	Description    string   `json:"description"`
	Urgency        string   `json:"urgency"`
	Step           FormStep `json:"-"`
}

// Links returns the non-empty trimmed product links.
func (f LeadForm) Links() []string {
	var out []string
	for _, l := range f.ProductLinks {
		if t := strings.TrimSpace(l); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ValidateStep checks only the fields collected on the given step.
func (f LeadForm) ValidateStep(step FormStep) error {
	ve := &ValidationError{Op: "lead.validate"}
	switch step {
	case StepContact:
		f.validateContact(ve)
	case StepProduct:
		f.validateProduct(ve)
	default:
		f.validateContact(ve)
		f.validateProduct(ve)
		f.validateUrgency(ve)
	}
	return ve.OrNil()
}

// Validate checks every field.
func (f LeadForm) Validate() error {
	return f.ValidateStep(StepReview)
}

// ToRequest validates the form and returns the normalized payload.
func (f LeadForm) ToRequest() (LeadRequest, error) {
	if err := f.Validate(); err != nil {
		return LeadRequest{}, err
	}
	urgency, _ := ParseUrgency(f.Urgency)
	links := f.Links()
	if links == nil {
		links = []string{}
	}
	return LeadRequest{
		WhatsAppNumber: phone.Normalize(f.WhatsAppNumber),
		ContactNumber:  phone.Normalize(f.ContactNumber),
		ProductLinks:   links,
		Description:    strings.TrimSpace(f.Description),
		Urgency:        urgency,
	}, nil
}

func (f LeadForm) validateContact(ve *ValidationError) {
	validatePhone(ve, FieldWhatsApp, f.WhatsAppNumber, "Le numéro WhatsApp")
	validatePhone(ve, FieldContact, f.ContactNumber, "Le numéro de contact")
}

func validatePhone(ve *ValidationError, field, raw, label string) {
	if strings.TrimSpace(raw) == "" {
		ve.Add(field, label+" est requis")
		return
	}
	if !phone.IsValid(phone.Normalize(raw)) {
		ve.Add(field, label+" doit être un numéro ivoirien valide (+225 suivi de 8 à 10 chiffres)")
	}
}

func (f LeadForm) validateProduct(ve *ValidationError) {
	links := f.Links()
	description := strings.TrimSpace(f.Description)

	if len(links) == 0 && description == "" {
		ve.Add(FieldProductLinks, "Ajoutez au moins un lien produit ou une description")
	}
	if len(links) > MaxProductLinks {
		ve.Add(FieldProductLinks, fmt.Sprintf("%d liens maximum par demande", MaxProductLinks))
	}

	// keyed by input position so the message lands under the right field
	for i, raw := range f.ProductLinks {
		link := strings.TrimSpace(raw)
		if link != "" && !ValidProductLink(link) {
			ve.Add(LinkField(i), "Lien invalide : utilisez une adresse complète commençant par http:// ou https://")
		}
	}

	if len([]rune(description)) > MaxDescriptionLength {
		ve.Add(FieldDescription, fmt.Sprintf("La description ne doit pas dépasser %d caractères", MaxDescriptionLength))
	}
}

func (f LeadForm) validateUrgency(ve *ValidationError) {
	if _, ok := ParseUrgency(f.Urgency); !ok {
		ve.Add(FieldUrgency, "Urgence invalide")
	}
}

// =============================================================================
// Prefill from a product
// =============================================================================

// ProductPrefill carries what the product view hands to the lead form.
type ProductPrefill struct {
	ProductID      string
	ProductName    string
	ProductURL     string
	Quantity       int
	Specifications string
	Urgency        Urgency
	Budget         int64
	Notes          string
}

// PrefillFromProduct builds a prefill for q units of the product.
func PrefillFromProduct(p *FeaturedProduct, q int) ProductPrefill {
	return ProductPrefill{
		ProductID:      p.ID,
		ProductName:    p.Name,
		ProductURL:     p.OriginalURL,
		Quantity:       q,
		Specifications: p.SpecificationSummary(),
		Urgency:        UrgencyNormal,
	}
}

// Form turns the prefill into initial lead form input.
func (pf ProductPrefill) Form() LeadForm {
	var b strings.Builder
	if pf.ProductName != "" {
		fmt.Fprintf(&b, "Produit : %s", pf.ProductName)
		if pf.ProductID != "" {
			fmt.Fprintf(&b, " (réf. %s)", pf.ProductID)
		}
		b.WriteString("\n")
	}
	if pf.Quantity > 0 {
		fmt.Fprintf(&b, "Quantité : %d\n", pf.Quantity)
	}
	if pf.Specifications != "" {
		fmt.Fprintf(&b, "Spécifications : %s\n", pf.Specifications)
	}
	if pf.Budget > 0 {
		fmt.Fprintf(&b, "Budget : %s\n", FormatFCFA(pf.Budget))
	}
	if pf.Notes != "" {
		fmt.Fprintf(&b, "Notes : %s\n", pf.Notes)
	}

	links := []string{""}
	if pf.ProductURL != "" {
		links = []string{pf.ProductURL}
	}
	urgency := pf.Urgency
	if urgency == "" {
		urgency = UrgencyNormal
	}

	return LeadForm{
		ProductLinks: links,
		Description:  strings.TrimSpace(b.String()),
		Urgency:      string(urgency),
		Step:         StepContact,
	}
}
