package leadapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/monfournisseur/internal/domain"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 64 << 10

// Client posts lead requests as JSON to a fixed endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// ClientConfig configures the HTTP client.
type ClientConfig struct {
	Endpoint string
	APIKey   string        // Optional, sent as a bearer token
	Timeout  time.Duration // Defaults to 15s
}

// NewClient creates a lead endpoint client.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint:   strings.TrimSpace(cfg.Endpoint),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		now:        time.Now,
	}
}

// Submit sends one lead request. It makes exactly one attempt.
func (c *Client) Submit(ctx context.Context, lead domain.LeadRequest) (*domain.LeadReceipt, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("lead endpoint url is empty")
	}

	body, err := json.Marshal(lead)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lead: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("lead endpoint unreachable", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}

	c.logger.Debug("lead endpoint responded",
		"status", resp.StatusCode,
		"duration_ms", c.now().Sub(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var er errorResponse
		_ = json.Unmarshal(raw, &er)
		return nil, &RemoteError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(er.Message),
		}
	}

	var sr successResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if strings.TrimSpace(sr.Data.RequestID) == "" {
		return nil, ErrMalformedResponse
	}

	return &domain.LeadReceipt{
		RequestID:   sr.Data.RequestID,
		SubmittedAt: c.now().UTC(),
	}, nil
}
