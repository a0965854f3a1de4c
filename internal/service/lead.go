package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/DukeRupert/monfournisseur/internal/domain"
	"github.com/DukeRupert/monfournisseur/internal/leadapi"
	"github.com/DukeRupert/monfournisseur/internal/metrics"
	"github.com/DukeRupert/monfournisseur/internal/storage"
)

// LeadService validates and forwards lead requests.
type LeadService interface {
	// Submit validates the form, sends the normalized request and
	// archives it. Validation failures never reach the endpoint.
	Submit(ctx context.Context, form domain.LeadForm) (*domain.LeadReceipt, error)
}

// archivedLead is the JSON document kept for every accepted lead.
type archivedLead struct {
	Request domain.LeadRequest `json:"request"`
	Receipt domain.LeadReceipt `json:"receipt"`
}

type leadService struct {
	submitter leadapi.Submitter
	archive   storage.Storage // nil disables archiving
	logger    *slog.Logger
	now       func() time.Time
}

// NewLeadService creates a LeadService. archive may be nil.
func NewLeadService(submitter leadapi.Submitter, archive storage.Storage, logger *slog.Logger) LeadService {
	return &leadService{
		submitter: submitter,
		archive:   archive,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *leadService) Submit(ctx context.Context, form domain.LeadForm) (*domain.LeadReceipt, error) {
	const op = "lead.submit"

	req, err := form.ToRequest()
	if err != nil {
		metrics.LeadSubmitted(metrics.LeadInvalid, 0)
		return nil, err
	}

	start := s.now()
	receipt, err := s.submitter.Submit(ctx, req)
	elapsed := s.now().Sub(start)
	if err != nil {
		status := metrics.LeadFailed
		var remote *leadapi.RemoteError
		if errors.As(err, &remote) {
			status = metrics.LeadRejected
		}
		metrics.LeadSubmitted(status, elapsed)

		s.logger.Warn("lead submission failed",
			"op", op,
			"status", status,
			"urgency", req.Urgency,
			"error", err,
		)
		return nil, domain.External(err, op, leadapi.UserMessage(err))
	}
	metrics.LeadSubmitted(metrics.LeadAccepted, elapsed)

	if receipt.SubmittedAt.IsZero() {
		receipt.SubmittedAt = s.now().UTC()
	}

	s.logger.Info("lead submitted",
		"op", op,
		"request_id", receipt.RequestID,
		"urgency", req.Urgency,
		"links", len(req.ProductLinks),
		"duration_ms", elapsed.Milliseconds(),
	)

	s.archiveLead(ctx, req, *receipt)
	return receipt, nil
}

// archiveLead stores the accepted lead. Failures are only logged: the
// lead has already been delivered.
func (s *leadService) archiveLead(ctx context.Context, req domain.LeadRequest, receipt domain.LeadReceipt) {
	if s.archive == nil {
		return
	}

	data, err := json.MarshalIndent(archivedLead{Request: req, Receipt: receipt}, "", "  ")
	if err != nil {
		s.logger.Error("failed to encode lead archive", "request_id", receipt.RequestID, "error", err)
		return
	}

	key := storage.LeadArchiveKey(receipt.RequestID, receipt.SubmittedAt)
	err = s.archive.Put(ctx, key, bytes.NewReader(data), storage.PutOptions{
		ContentType: "application/json",
	})
	if err != nil {
		s.logger.Error("failed to archive lead",
			"request_id", receipt.RequestID,
			"key", key,
			"error", err,
		)
		return
	}
	s.logger.Debug("lead archived", "request_id", receipt.RequestID, "key", key)
}
