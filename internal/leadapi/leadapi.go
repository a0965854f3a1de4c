// Package leadapi submits lead requests to the sourcing team's intake endpoint.
package leadapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/DukeRupert/monfournisseur/internal/domain"
)

// Submitter delivers a validated lead request and returns its receipt.
type Submitter interface {
	Submit(ctx context.Context, req domain.LeadRequest) (*domain.LeadReceipt, error)
}

// Errors returned by submitters. Remote rejections are *RemoteError.
var (
	// ErrUnavailable indicates the endpoint could not be reached
	ErrUnavailable = errors.New("lead endpoint unavailable")

	// ErrMalformedResponse indicates a 2xx response without a request id
	ErrMalformedResponse = errors.New("lead endpoint returned a malformed response")
)

// RemoteError is a non-2xx answer from the endpoint. Message is the
// endpoint's own explanation, meant to be shown to the user as is.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("lead endpoint returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("lead endpoint returned status %d: %s", e.StatusCode, e.Message)
}

// UserMessage returns the text to display for a submission failure.
func UserMessage(err error) string {
	var re *RemoteError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	if errors.Is(err, ErrUnavailable) {
		return "Le service est momentanément indisponible. Veuillez réessayer dans quelques instants."
	}
	return "L'envoi de votre demande a échoué. Veuillez réessayer."
}

// Response envelopes of the endpoint.
type successResponse struct {
	Data struct {
		RequestID string `json:"request_id"`
	} `json:"data"`
}

type errorResponse struct {
	Message string `json:"message"`
}
