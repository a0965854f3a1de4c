package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/monfournisseur/internal/domain"
	"github.com/DukeRupert/monfournisseur/internal/leadapi"
)

func TestAPIProducts(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		query   string
		wantIDs []string
	}{
		{"", []string{"fp-001", "fp-002", "fp-003"}},
		{"?filtre=trending", []string{"fp-001", "fp-003"}},
		{"?filtre=inconnu", []string{"fp-001", "fp-002", "fp-003"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := app.get("/api/produits" + tt.query)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var resp ProductListResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

			var ids []string
			for _, p := range resp.Data {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, len(tt.wantIDs), resp.Meta.Count)
			assert.Equal(t, 3, resp.Meta.Total)
		})
	}
}

func TestAPIQuote(t *testing.T) {
	app := newTestApp(t)

	rec := app.get("/api/produits/fp-001/devis?quantite=5")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			State  domain.QuantityState    `json:"state"`
			Result domain.CalculatorResult `json:"result"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	r := resp.Data.Result
	assert.Equal(t, 5, resp.Data.State.Quantity)
	assert.Equal(t, int64(875000), r.UnitPrice)
	assert.Equal(t, int64(4375000), r.TotalPrice)
	assert.Equal(t, int64(189575), r.Savings)
	require.NotNil(t, r.ApplicableTier)
	assert.Equal(t, 5, r.ApplicableTier.MinQuantity)
}

func TestAPIQuote_ClampsAndDefaults(t *testing.T) {
	app := newTestApp(t)

	var resp struct {
		Data struct {
			State domain.QuantityState `json:"state"`
		} `json:"data"`
	}

	rec := app.get("/api/produits/fp-001/devis?quantite=1000")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 50, resp.Data.State.Quantity)

	rec = app.get("/api/produits/fp-001/devis")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Data.State.Quantity)
}

func TestAPIQuote_Errors(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		path       string
		wantStatus int
		wantCode   string
	}{
		{"/api/produits/fp-001/devis?quantite=beaucoup", http.StatusBadRequest, domain.EINVALID},
		{"/api/produits/inconnu/devis", http.StatusNotFound, domain.ENOTFOUND},
	}
	for _, tt := range tests {
		rec := app.get(tt.path)
		assert.Equal(t, tt.wantStatus, rec.Code, tt.path)

		var body JSONError
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, tt.wantCode, body.Error.Code, tt.path)
	}
}

func postJSON(app *testApp, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return app.do(req)
}

func TestAPISubmitLead(t *testing.T) {
	app := newTestApp(t)

	rec := postJSON(app, "/api/demandes", `{
		"whatsapp_number": "0708091011",
		"contact_number": "+225 05 06 07 08 09",
		"product_links": ["https://item.taobao.com/item.htm?id=1"],
		"urgency": "express"
	}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp LeadResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "MF-TEST1", resp.Data.RequestID)
	assert.False(t, resp.Data.SubmittedAt.IsZero())

	require.Len(t, app.provider.Submitted, 1)
	assert.Equal(t, domain.UrgencyExpress, app.provider.Submitted[0].Urgency)
}

func TestAPISubmitLead_Validation(t *testing.T) {
	app := newTestApp(t)

	rec := postJSON(app, "/api/demandes", `{"whatsapp_number": "123", "contact_number": "", "product_links": []}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body JSONError
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, domain.EINVALID, body.Error.Code)
	assert.Contains(t, body.Error.Fields, domain.FieldWhatsApp)
	assert.Contains(t, body.Error.Fields, domain.FieldContact)
	assert.Contains(t, body.Error.Fields, domain.FieldProductLinks)
	assert.Equal(t, 0, app.provider.Calls())
}

func TestAPISubmitLead_BadBodies(t *testing.T) {
	app := newTestApp(t)

	rec := postJSON(app, "/api/demandes", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	huge := `{"description": "` + strings.Repeat("a", maxLeadBodyBytes) + `"}`
	rec = postJSON(app, "/api/demandes", huge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAPISubmitLead_RemoteFailure(t *testing.T) {
	app := newTestApp(t)
	app.provider.SubmitError = &leadapi.RemoteError{StatusCode: 503}

	rec := postJSON(app, "/api/demandes", `{
		"whatsapp_number": "0708091011",
		"contact_number": "0506070809",
		"description": "Pièces détachées"
	}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var body JSONError
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, domain.EEXTERNAL, body.Error.Code)
	assert.Equal(t, leadapi.UserMessage(app.provider.SubmitError), body.Error.Message)
}
