package domain

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultMaxOrderQuantity caps quantities of products without a ceiling.
const DefaultMaxOrderQuantity = 1000

// NextTierLimit is the number of upcoming tiers shown under the calculator.
const NextTierLimit = 3

// StepOptions are the increment magnitudes offered by the calculator.
var StepOptions = []int{1, 10, 50, 100, 500, 1000}

// CalculatorResult is the price breakdown for one quantity.
type CalculatorResult struct {
	Quantity          int          `json:"quantity"`
	UnitPrice         int64        `json:"unitPrice"`
	TotalPrice        int64        `json:"totalPrice"`
	ShippingTotal     int64        `json:"shippingTotal"`
	ServiceTotal      int64        `json:"serviceTotal"`
	CustomsTotal      int64        `json:"customsTotal"`
	GrandTotal        int64        `json:"grandTotal"`
	Savings           int64        `json:"savings"`
	SavingsPercentage float64      `json:"savingsPercentage"`
	ApplicableTier    *PricingTier `json:"applicableTier,omitempty"`
	Breakdown         Breakdown    `json:"breakdown"`
}

// Breakdown splits a total into its cost components. It is always computed
// from the flat per-unit components, so with a discount tier it does not sum
// to the grand total.
type Breakdown struct {
	Products int64 `json:"products"`
	Shipping int64 `json:"shipping"`
	Service  int64 `json:"service"`
	Customs  int64 `json:"customs"`
}

// Sum adds the components.
func (b Breakdown) Sum() int64 {
	return b.Products + b.Shipping + b.Service + b.Customs
}

// NextTierSuggestion is the incentive to reach the nearest cheaper tier.
type NextTierSuggestion struct {
	Tier           PricingTier `json:"tier"`
	QuantityNeeded int         `json:"quantityNeeded"`
	TotalSavings   int64       `json:"totalSavings"`
	SavingsPerUnit int64       `json:"savingsPerUnit"`
}

// ResolveTier returns the first tier containing q, or nil.
// On overlapping data the earliest matching tier wins.
func ResolveTier(tiers []PricingTier, q int) *PricingTier {
	for i := range tiers {
		if tiers[i].Contains(q) {
			t := tiers[i]
			return &t
		}
	}
	return nil
}

// Calculate prices q units of the product. It never fails: without a
// matching tier the reference total price is used.
func Calculate(p *FeaturedProduct, q int) CalculatorResult {
	pr := p.Pricing
	qty := int64(q)

	tier := ResolveTier(pr.Tiers, q)
	unitPrice := pr.TotalPrice
	if tier != nil {
		unitPrice = tier.UnitPrice
	}

	totalPrice := unitPrice * qty
	baseTotal := pr.TotalPrice * qty

	savings := baseTotal - totalPrice
	if savings < 0 {
		savings = 0
	}

	breakdown := Breakdown{
		Products: pr.BasePriceFCFA * qty,
		Shipping: pr.ShippingCost * qty,
		Service:  pr.ServiceFee * qty,
		Customs:  pr.CustomsFees * qty,
	}

	return CalculatorResult{
		Quantity:          q,
		UnitPrice:         unitPrice,
		TotalPrice:        totalPrice,
		ShippingTotal:     breakdown.Shipping,
		ServiceTotal:      breakdown.Service,
		CustomsTotal:      breakdown.Customs,
		GrandTotal:        totalPrice,
		Savings:           savings,
		SavingsPercentage: Percentage(savings, baseTotal),
		ApplicableTier:    tier,
		Breakdown:         breakdown,
	}
}

// Percentage returns part/whole*100 rounded to two decimals, clamped at 0.
// A non-positive whole yields 0.
func Percentage(part, whole int64) float64 {
	if whole <= 0 || part <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(part).
		Div(decimal.NewFromInt(whole)).
		Mul(decimal.NewFromInt(100)).
		Round(2)
	f, _ := pct.Float64()
	return f
}

// NextTiers returns up to limit tiers starting above q, in ascending order.
func NextTiers(tiers []PricingTier, q int, limit int) []PricingTier {
	var out []PricingTier
	for _, t := range tiers {
		if t.MinQuantity > q {
			out = append(out, t)
		}
	}
	sortTiers(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SuggestNextTier describes the savings of the nearest tier above q,
// or nil when q is already in the last tier.
func SuggestNextTier(p *FeaturedProduct, q int) *NextTierSuggestion {
	next := NextTiers(p.Pricing.Tiers, q, 1)
	if len(next) == 0 {
		return nil
	}
	t := next[0]
	minQty := int64(t.MinQuantity)
	potential := p.Pricing.TotalPrice*minQty - t.UnitPrice*minQty

	perUnit := decimal.NewFromInt(potential).
		Div(decimal.NewFromInt(minQty)).
		Round(0).
		IntPart()

	return &NextTierSuggestion{
		Tier:           t,
		QuantityNeeded: t.MinQuantity - q,
		TotalSavings:   potential,
		SavingsPerUnit: perUnit,
	}
}

// ValidateTiers checks that tiers start at 1 or more, ascend without
// overlapping, and that only the last tier may be unbounded.
func ValidateTiers(tiers []PricingTier) error {
	const op = "pricing.validate_tiers"

	for i, t := range tiers {
		if t.MinQuantity < 1 {
			return Errorf(EINVALID, op, "tier %d: minQuantity must be at least 1", i+1)
		}
		if t.MaxQuantity != nil && *t.MaxQuantity < t.MinQuantity {
			return Errorf(EINVALID, op, "tier %d: maxQuantity %d below minQuantity %d", i+1, *t.MaxQuantity, t.MinQuantity)
		}
		if t.UnitPrice < 0 {
			return Errorf(EINVALID, op, "tier %d: unitPrice must not be negative", i+1)
		}
		if i == 0 {
			continue
		}
		prev := tiers[i-1]
		if prev.MaxQuantity == nil {
			return Errorf(EINVALID, op, "tier %d: unbounded tier must be last", i)
		}
		if t.MinQuantity <= *prev.MaxQuantity {
			return Errorf(EINVALID, op, "tier %d: overlaps previous tier ending at %d", i+1, *prev.MaxQuantity)
		}
	}
	return nil
}

func sortTiers(tiers []PricingTier) {
	// insertion sort; tier lists are a handful of entries
	for i := 1; i < len(tiers); i++ {
		for j := i; j > 0 && tiers[j].MinQuantity < tiers[j-1].MinQuantity; j-- {
			tiers[j], tiers[j-1] = tiers[j-1], tiers[j]
		}
	}
}

// =============================================================================
// Quantity state
// =============================================================================

// QuantityState is the calculator state owned by the caller.
type QuantityState struct {
	Quantity int `json:"quantity"`
	Step     int `json:"step"`
}

// CalculatorAction is a user action on the quantity controls.
type CalculatorAction string

const (
	ActionIncrease CalculatorAction = "increase"
	ActionDecrease CalculatorAction = "decrease"
	ActionInput    CalculatorAction = "input"  // typing in the quantity field
	ActionCommit   CalculatorAction = "commit" // leaving the quantity field
	ActionStep     CalculatorAction = "step"
	ActionReset    CalculatorAction = "reset"
)

// ParseCalculatorAction validates an action name.
func ParseCalculatorAction(s string) (CalculatorAction, error) {
	a := CalculatorAction(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case ActionIncrease, ActionDecrease, ActionInput, ActionCommit, ActionStep, ActionReset:
		return a, nil
	}
	return "", Errorf(EINVALID, "calculator.action", "action inconnue %q", s)
}

// Calculator applies the quantity clamping rules. The zero value clamps
// unbounded products at DefaultMaxOrderQuantity.
type Calculator struct {
	DefaultMax      int
	InitialQuantity int
}

// NewCalculator creates a calculator with the given ceiling for products
// without a max order quantity.
func NewCalculator(defaultMax int) Calculator {
	return Calculator{DefaultMax: defaultMax, InitialQuantity: 1}
}

// EffectiveMax is the product ceiling used for clamping.
func (c Calculator) EffectiveMax(p *FeaturedProduct) int {
	if p.MaxOrderQuantity != nil && *p.MaxOrderQuantity > 0 {
		return *p.MaxOrderQuantity
	}
	if c.DefaultMax > 0 {
		return c.DefaultMax
	}
	return DefaultMaxOrderQuantity
}

// Initial returns the starting state for a product.
func (c Calculator) Initial(p *FeaturedProduct) QuantityState {
	q := c.InitialQuantity
	if q <= 0 {
		q = 1
	}
	return QuantityState{Quantity: c.SetQuantity(p, q), Step: 1}
}

// Increase adds the step, capped at the effective maximum. The quantity is
// brought into range first, so client-supplied state cannot overflow.
func (c Calculator) Increase(p *FeaturedProduct, s QuantityState) QuantityState {
	s.Step = NormalizeStep(s.Step)
	q, ceiling := c.SetQuantity(p, s.Quantity), c.EffectiveMax(p)
	if s.Step > ceiling-q {
		q = ceiling
	} else {
		q += s.Step
	}
	s.Quantity = c.SetQuantity(p, q)
	return s
}

// Decrease subtracts the step, floored at the minimum order quantity.
func (c Calculator) Decrease(p *FeaturedProduct, s QuantityState) QuantityState {
	s.Step = NormalizeStep(s.Step)
	q := c.SetQuantity(p, s.Quantity)
	if s.Step > q-p.MinOrderQuantity {
		q = p.MinOrderQuantity
	} else {
		q -= s.Step
	}
	s.Quantity = q
	return s
}

// SetQuantity clamps a requested quantity into [min, effective max].
func (c Calculator) SetQuantity(p *FeaturedProduct, requested int) int {
	return max(p.MinOrderQuantity, min(requested, c.EffectiveMax(p)))
}

// ApplyInput handles typing: only positive numbers change the quantity.
func (c Calculator) ApplyInput(p *FeaturedProduct, current int, raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v <= 0 {
		return current
	}
	return c.SetQuantity(p, v)
}

// CommitInput handles leaving the field: anything non-numeric or below
// the minimum resets to the minimum order quantity.
func (c Calculator) CommitInput(p *FeaturedProduct, raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < p.MinOrderQuantity {
		return p.MinOrderQuantity
	}
	return c.SetQuantity(p, v)
}

// CanIncrease reports whether another step fits under the maximum.
func (c Calculator) CanIncrease(p *FeaturedProduct, s QuantityState) bool {
	q := c.SetQuantity(p, s.Quantity)
	return NormalizeStep(s.Step) <= c.EffectiveMax(p)-q
}

// CanDecrease reports whether another step stays above the minimum.
func (c Calculator) CanDecrease(p *FeaturedProduct, s QuantityState) bool {
	q := c.SetQuantity(p, s.Quantity)
	return NormalizeStep(s.Step) <= q-p.MinOrderQuantity
}

// Apply runs one action against the state. raw carries the typed
// quantity for input/commit and the step value for step.
func (c Calculator) Apply(p *FeaturedProduct, s QuantityState, action CalculatorAction, raw string) QuantityState {
	s.Step = NormalizeStep(s.Step)
	switch action {
	case ActionIncrease:
		return c.Increase(p, s)
	case ActionDecrease:
		return c.Decrease(p, s)
	case ActionInput:
		s.Quantity = c.ApplyInput(p, s.Quantity, raw)
	case ActionCommit:
		s.Quantity = c.CommitInput(p, raw)
	case ActionStep:
		if v, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			s.Step = NormalizeStep(v)
		}
	case ActionReset:
		return c.Initial(p)
	}
	return s
}

// NormalizeStep replaces non-positive steps with 1.
func NormalizeStep(step int) int {
	if step <= 0 {
		return 1
	}
	return step
}
