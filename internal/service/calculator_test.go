package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/monfournisseur/internal/domain"
)

func TestCalculatorService_Quote(t *testing.T) {
	svc := NewCalculatorService(loadCatalog(t), domain.DefaultMaxOrderQuantity, discardLogger())
	ctx := context.Background()

	tests := []struct {
		name          string
		quantity      int
		wantQuantity  int
		wantUnitPrice int64
		wantNext      []int // min quantities of upcoming tiers
		wantNeeded    int   // 0 means no suggestion
		canIncrease   bool
		canDecrease   bool
	}{
		{"initial state", 0, 1, 912915, []int{5, 10, 20}, 4, true, false},
		{"second tier", 7, 7, 875000, []int{10, 20}, 3, true, true},
		{"clamped to max", 999, 50, 820000, nil, 0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := svc.Quote(ctx, "fp-001", tt.quantity)
			require.NoError(t, err)

			assert.Equal(t, tt.wantQuantity, q.State.Quantity)
			assert.Equal(t, 1, q.State.Step)
			assert.Equal(t, tt.wantUnitPrice, q.Result.UnitPrice)
			assert.Equal(t, 50, q.EffectiveMax)
			assert.Equal(t, tt.canIncrease, q.CanIncrease)
			assert.Equal(t, tt.canDecrease, q.CanDecrease)

			var mins []int
			for _, tier := range q.NextTiers {
				mins = append(mins, tier.MinQuantity)
			}
			assert.Equal(t, tt.wantNext, mins)

			if tt.wantNeeded == 0 {
				assert.Nil(t, q.Suggestion)
			} else {
				require.NotNil(t, q.Suggestion)
				assert.Equal(t, tt.wantNeeded, q.Suggestion.QuantityNeeded)
			}
			assert.Equal(t, "fp-001", q.Prefill.ProductID)
			assert.Equal(t, tt.wantQuantity, q.Prefill.Quantity)
		})
	}
}

func TestCalculatorService_QuoteSavings(t *testing.T) {
	svc := NewCalculatorService(loadCatalog(t), domain.DefaultMaxOrderQuantity, discardLogger())

	q, err := svc.Quote(context.Background(), "fp-001", 7)
	require.NoError(t, err)

	assert.Equal(t, int64(6125000), q.Result.TotalPrice)
	assert.Equal(t, int64(265405), q.Result.Savings)
	assert.InDelta(t, 4.15, q.Result.SavingsPercentage, 0.001)
}

func TestCalculatorService_Apply(t *testing.T) {
	svc := NewCalculatorService(loadCatalog(t), domain.DefaultMaxOrderQuantity, discardLogger())
	ctx := context.Background()

	tests := []struct {
		name   string
		state  domain.QuantityState
		action domain.CalculatorAction
		raw    string
		want   domain.QuantityState
	}{
		{"increase capped", domain.QuantityState{Quantity: 45, Step: 10}, domain.ActionIncrease, "", domain.QuantityState{Quantity: 50, Step: 10}},
		{"decrease floored", domain.QuantityState{Quantity: 3, Step: 10}, domain.ActionDecrease, "", domain.QuantityState{Quantity: 1, Step: 10}},
		{"input ignores garbage", domain.QuantityState{Quantity: 8, Step: 1}, domain.ActionInput, "abc", domain.QuantityState{Quantity: 8, Step: 1}},
		{"input clamps", domain.QuantityState{Quantity: 8, Step: 1}, domain.ActionInput, "70", domain.QuantityState{Quantity: 50, Step: 1}},
		{"commit resets garbage", domain.QuantityState{Quantity: 8, Step: 1}, domain.ActionCommit, "", domain.QuantityState{Quantity: 1, Step: 1}},
		{"step change", domain.QuantityState{Quantity: 8, Step: 1}, domain.ActionStep, "100", domain.QuantityState{Quantity: 8, Step: 100}},
		{"reset", domain.QuantityState{Quantity: 30, Step: 50}, domain.ActionReset, "", domain.QuantityState{Quantity: 1, Step: 1}},
		{"tampered state is clamped first", domain.QuantityState{Quantity: 5000, Step: 1}, domain.ActionDecrease, "", domain.QuantityState{Quantity: 49, Step: 1}},
		{"zero state starts over", domain.QuantityState{}, domain.ActionIncrease, "", domain.QuantityState{Quantity: 2, Step: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := svc.Apply(ctx, "fp-001", tt.state, tt.action, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.State)
			assert.Equal(t, tt.want.Quantity, q.Result.Quantity)
		})
	}
}

func TestCalculatorService_UnboundedUsesDefaultMax(t *testing.T) {
	p := &domain.FeaturedProduct{
		ID:               "fp-x",
		MinOrderQuantity: 2,
		Pricing:          domain.ProductPricing{TotalPrice: 1000},
	}
	svc := NewCalculatorService(productMap{"fp-x": p}, 300, discardLogger())

	q, err := svc.Quote(context.Background(), "fp-x", 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, 300, q.State.Quantity)
	assert.Equal(t, 300, q.EffectiveMax)
	assert.Nil(t, q.Result.ApplicableTier)
	assert.Equal(t, int64(300_000), q.Result.GrandTotal)

	q, err = svc.Quote(context.Background(), "fp-x", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, q.State.Quantity, "initial quantity respects the minimum")
}

func TestCalculatorService_UnknownProduct(t *testing.T) {
	svc := NewCalculatorService(loadCatalog(t), domain.DefaultMaxOrderQuantity, discardLogger())

	_, err := svc.Quote(context.Background(), "nope", 1)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))

	_, err = svc.Apply(context.Background(), "nope", domain.QuantityState{Quantity: 1}, domain.ActionIncrease, "")
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}
