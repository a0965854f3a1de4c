package mock

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/monfournisseur/internal/domain"
	"github.com/DukeRupert/monfournisseur/internal/leadapi"
)

var _ leadapi.Submitter = (*Provider)(nil)

// Provider is an in-process lead endpoint for development and tests.
type Provider struct {
	logger *slog.Logger

	mu sync.Mutex

	// Configurable responses for testing
	SubmitError error
	RequestID   string

	// Call tracking for testing
	SubmitCalls int
	Submitted   []domain.LeadRequest
}

// New creates a mock lead provider.
func New(logger *slog.Logger) *Provider {
	return &Provider{logger: logger}
}

// Submit records the lead and returns a generated MF- reference.
func (p *Provider) Submit(ctx context.Context, req domain.LeadRequest) (*domain.LeadReceipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.SubmitCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.SubmitError != nil {
		return nil, p.SubmitError
	}
	p.Submitted = append(p.Submitted, req)

	id := p.RequestID
	if id == "" {
		id = fmt.Sprintf("MF-%s", strings.ToUpper(uuid.NewString()[:8]))
	}

	p.logger.Info("mock lead accepted",
		"request_id", id,
		"urgency", req.Urgency,
		"links", len(req.ProductLinks),
	)

	return &domain.LeadReceipt{RequestID: id, SubmittedAt: time.Now().UTC()}, nil
}

// Calls returns the number of Submit calls.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.SubmitCalls
}
