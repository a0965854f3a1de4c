// Package calculator provides the price calculator components rendered on
// the product page and returned as htmx fragments.
package calculator

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Oudwins/tailwind-merge-go"

	"github.com/DukeRupert/monfournisseur/internal/domain"
)

// PanelID is the element swapped by htmx on every calculator action.
const PanelID = "calculateur"

// PanelData contains everything the calculator panel displays.
type PanelData struct {
	ProductID    string
	State        domain.QuantityState
	Result       domain.CalculatorResult
	NextTiers    []domain.PricingTier
	Suggestion   *domain.NextTierSuggestion
	CanIncrease  bool
	CanDecrease  bool
	MinQuantity  int
	EffectiveMax int
	MaxLabel     string // "illimité" when the product has no ceiling
}

// Endpoint is the URL the panel posts its actions to.
func (d PanelData) Endpoint() string {
	return "/produits/" + url.PathEscape(d.ProductID) + "/calculateur"
}

// LeadURL opens the lead form prefilled with the current quantity.
func (d PanelData) LeadURL() string {
	q := url.Values{}
	q.Set("product", d.ProductID)
	q.Set("quantity", fmt.Sprint(d.State.Quantity))
	return "/demande?" + q.Encode()
}

// ButtonVariant selects the style of a calculator button.
type ButtonVariant string

const (
	ButtonPrimary   ButtonVariant = "primary"
	ButtonSecondary ButtonVariant = "secondary"
	ButtonActive    ButtonVariant = "active"
)

const buttonBase = "inline-flex items-center justify-center rounded-md px-3 py-2 text-sm font-medium transition-colors disabled:cursor-not-allowed disabled:opacity-50"

var buttonVariants = map[ButtonVariant]string{
	ButtonPrimary:   "bg-orange-600 text-white hover:bg-orange-700",
	ButtonSecondary: "bg-white text-gray-700 ring-1 ring-gray-300 hover:bg-gray-50",
	ButtonActive:    "bg-orange-100 text-orange-800 ring-1 ring-orange-600",
}

// ButtonClass merges the base, variant and extra classes. Later classes
// override conflicting earlier ones.
func ButtonClass(variant ButtonVariant, extra ...string) string {
	classes := append([]string{buttonBase, buttonVariants[variant]}, extra...)
	return twmerge.Merge(classes...)
}

func stepVariant(step, active int) ButtonVariant {
	if step == domain.NormalizeStep(active) {
		return ButtonActive
	}
	return ButtonSecondary
}

func stepPressed(step, active int) string {
	return strconv.FormatBool(step == domain.NormalizeStep(active))
}

type costRow struct {
	Label  string
	Amount int64
}

// costRows lists the breakdown in display order.
func costRows(b domain.Breakdown) []costRow {
	return []costRow{
		{"Produits", b.Products},
		{"Transport", b.Shipping},
		{"Frais de service", b.Service},
		{"Douane", b.Customs},
	}
}

func fcfa(amount int64) string { return domain.FormatFCFA(amount) }

func count(n int) string { return domain.FormatInt(int64(n)) }

// StepActionValue encodes a step button as a single form value, since a
// submit button carries one name and one value.
func StepActionValue(step int) string {
	return string(domain.ActionStep) + ":" + strconv.Itoa(step)
}

// SplitAction decodes a submitted action value into the action name and
// its raw argument. For "step:10" the argument is the step; other actions
// keep the fallback (the typed quantity).
func SplitAction(value, fallback string) (string, string) {
	if name, arg, ok := strings.Cut(value, ":"); ok {
		return name, arg
	}
	return value, fallback
}
