// Package service contains the business logic of the sourcing site.
package service

import (
	"context"
	"log/slog"

	"github.com/DukeRupert/monfournisseur/internal/domain"
	"github.com/DukeRupert/monfournisseur/internal/metrics"
)

// ProductSource looks up catalog products.
type ProductSource interface {
	ByID(id string) (*domain.FeaturedProduct, error)
}

// Quote is everything the calculator panel shows for one state.
type Quote struct {
	Product      *domain.FeaturedProduct    `json:"-"`
	State        domain.QuantityState       `json:"state"`
	Result       domain.CalculatorResult    `json:"result"`
	NextTiers    []domain.PricingTier       `json:"nextTiers"`
	Suggestion   *domain.NextTierSuggestion `json:"suggestion,omitempty"`
	CanIncrease  bool                       `json:"canIncrease"`
	CanDecrease  bool                       `json:"canDecrease"`
	EffectiveMax int                        `json:"effectiveMax"`
	Prefill      domain.ProductPrefill      `json:"-"`
}

// CalculatorService prices catalog products and drives the quantity
// controls.
type CalculatorService interface {
	// Quote prices quantity units of a product. A non-positive quantity
	// yields the initial state; others are clamped to the product limits.
	Quote(ctx context.Context, productID string, quantity int) (*Quote, error)

	// Apply runs one calculator action against a caller-held state.
	Apply(ctx context.Context, productID string, state domain.QuantityState, action domain.CalculatorAction, raw string) (*Quote, error)
}

type calculatorService struct {
	products ProductSource
	calc     domain.Calculator
	logger   *slog.Logger
}

// NewCalculatorService creates a CalculatorService. defaultMax caps
// products without a max order quantity.
func NewCalculatorService(products ProductSource, defaultMax int, logger *slog.Logger) CalculatorService {
	return &calculatorService{
		products: products,
		calc:     domain.NewCalculator(defaultMax),
		logger:   logger,
	}
}

func (s *calculatorService) Quote(ctx context.Context, productID string, quantity int) (*Quote, error) {
	p, err := s.products.ByID(productID)
	if err != nil {
		return nil, err
	}

	state := s.calc.Initial(p)
	if quantity > 0 {
		state.Quantity = s.calc.SetQuantity(p, quantity)
	}
	return s.quote(p, state), nil
}

func (s *calculatorService) Apply(ctx context.Context, productID string, state domain.QuantityState, action domain.CalculatorAction, raw string) (*Quote, error) {
	p, err := s.products.ByID(productID)
	if err != nil {
		return nil, err
	}

	// A tampered or stale state is clamped before the action runs.
	if state.Quantity <= 0 {
		state = s.calc.Initial(p)
	} else {
		state.Quantity = s.calc.SetQuantity(p, state.Quantity)
	}

	next := s.calc.Apply(p, state, action, raw)

	s.logger.Debug("calculator action",
		"product_id", p.ID,
		"action", action,
		"from", state.Quantity,
		"to", next.Quantity,
		"step", next.Step,
	)
	return s.quote(p, next), nil
}

func (s *calculatorService) quote(p *domain.FeaturedProduct, state domain.QuantityState) *Quote {
	result := domain.Calculate(p, state.Quantity)

	tierLabel := ""
	if result.ApplicableTier != nil {
		tierLabel = result.ApplicableTier.Label()
	}
	metrics.QuoteComputed(tierLabel)

	return &Quote{
		Product:      p,
		State:        state,
		Result:       result,
		NextTiers:    domain.NextTiers(p.Pricing.Tiers, state.Quantity, domain.NextTierLimit),
		Suggestion:   domain.SuggestNextTier(p, state.Quantity),
		CanIncrease:  s.calc.CanIncrease(p, state),
		CanDecrease:  s.calc.CanDecrease(p, state),
		EffectiveMax: s.calc.EffectiveMax(p),
		Prefill:      domain.PrefillFromProduct(p, state.Quantity),
	}
}
