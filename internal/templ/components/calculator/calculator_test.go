package calculator

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/monfournisseur/internal/domain"
)

func samplePanel() PanelData {
	max9 := 9
	return PanelData{
		ProductID: "fp-001",
		State:     domain.QuantityState{Quantity: 5, Step: 10},
		Result: domain.CalculatorResult{
			Quantity:          5,
			UnitPrice:         875000,
			GrandTotal:        4375000,
			Savings:           189575,
			SavingsPercentage: 4.15,
			ApplicableTier:    &domain.PricingTier{MinQuantity: 5, MaxQuantity: &max9, UnitPrice: 875000},
		},
		NextTiers:    []domain.PricingTier{{MinQuantity: 10, UnitPrice: 850000}},
		Suggestion:   &domain.NextTierSuggestion{QuantityNeeded: 5, TotalSavings: 629150, SavingsPerUnit: 62915},
		CanIncrease:  true,
		CanDecrease:  false,
		MinQuantity:  1,
		EffectiveMax: 50,
		MaxLabel:     "50",
	}
}

func render(t *testing.T, d PanelData) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Panel(d).Render(context.Background(), &buf))
	return buf.String()
}

func TestPanel(t *testing.T) {
	html := render(t, samplePanel())

	assert.Contains(t, html, `id="calculateur"`)
	assert.Contains(t, html, `hx-post="/produits/fp-001/calculateur"`)
	assert.Contains(t, html, `name="quantity" value="5"`)
	assert.Contains(t, html, "875\u00a0000\u00a0FCFA")
	assert.Contains(t, html, "5-9 unités")
	assert.Contains(t, html, "4,2\u00a0%")
	assert.Contains(t, html, "Ajoutez 5 unité(s)")
	assert.Contains(t, html, "À partir de 10 unités")
	assert.Contains(t, html, `href="/demande?product=fp-001&amp;quantity=5"`)
	assert.Contains(t, html, `value="decrease" aria-label="Diminuer"`)
	assert.Contains(t, html, `aria-label="Diminuer" class=`)
}

func TestPanel_DisabledButtons(t *testing.T) {
	d := samplePanel()
	html := render(t, d)
	assert.Regexp(t, `value="decrease"[^>]* disabled>`, html)
	assert.NotRegexp(t, `value="increase"[^>]* disabled>`, html)

	d.CanIncrease = false
	d.CanDecrease = true
	html = render(t, d)
	assert.Regexp(t, `value="increase"[^>]* disabled>`, html)
	assert.NotRegexp(t, `value="decrease"[^>]* disabled>`, html)
}

func TestPanel_NoSavingsNoSuggestion(t *testing.T) {
	d := samplePanel()
	d.Result.Savings = 0
	d.Result.ApplicableTier = nil
	d.Suggestion = nil
	d.NextTiers = nil

	html := render(t, d)
	assert.NotContains(t, html, "Vous économisez")
	assert.NotContains(t, html, "Palier appliqué")
	assert.NotContains(t, html, "Ajoutez")
	assert.NotContains(t, html, "À partir de")
}

func TestPanel_EscapesProductID(t *testing.T) {
	d := samplePanel()
	d.ProductID = `"><script>`
	html := render(t, d)
	assert.NotContains(t, html, "<script>")
}

func TestPanel_EscapesText(t *testing.T) {
	d := samplePanel()
	d.MaxLabel = "<b>50</b>"
	html := render(t, d)
	assert.Contains(t, html, "Maximum : &lt;b&gt;50&lt;/b&gt;")
	assert.Contains(t, html, `hx-vals="{&#34;action&#34;:&#34;input&#34;}"`)
}

func TestStepSelector(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, StepSelector(50).Render(context.Background(), &buf))
	html := buf.String()

	for _, step := range domain.StepOptions {
		assert.Contains(t, html, `value="`+StepActionValue(step)+`"`)
	}
	assert.Contains(t, html, `value="step:50" aria-pressed="true"`)
	assert.Contains(t, html, `value="step:1" aria-pressed="false"`)
	assert.Contains(t, html, "+1\u00a0000")
}

func TestSplitAction(t *testing.T) {
	tests := []struct {
		value, fallback string
		wantName        string
		wantRaw         string
	}{
		{"step:100", "7", "step", "100"},
		{"increase", "7", "increase", "7"},
		{"input", "12", "input", "12"},
		{"", "3", "", "3"},
	}
	for _, tt := range tests {
		name, raw := SplitAction(tt.value, tt.fallback)
		assert.Equal(t, tt.wantName, name, tt.value)
		assert.Equal(t, tt.wantRaw, raw, tt.value)
	}
}

func TestButtonClass(t *testing.T) {
	class := ButtonClass(ButtonSecondary, "px-2 py-1")
	assert.Contains(t, class, "px-2")
	assert.Contains(t, class, "py-1")
	assert.NotContains(t, class, "px-3")
	assert.NotContains(t, class, "py-2")
}
