package metrics

import "time"

// Lead outcomes
const (
	LeadAccepted = "accepted"
	LeadInvalid  = "invalid"
	LeadRejected = "rejected" // the endpoint answered with an error
	LeadFailed   = "failed"   // the endpoint could not be reached
)

// Thumbnail outcomes
const (
	ThumbnailHit       = "hit"
	ThumbnailGenerated = "generated"
	ThumbnailFailed    = "failed"
)

// QuoteComputed records a quote priced under the given tier label.
// An empty label means the reference price applied.
func QuoteComputed(tier string) {
	if tier == "" {
		tier = "base"
	}
	QuotesTotal.WithLabelValues(tier).Inc()
}

// LeadSubmitted records the outcome of a lead submission. A zero
// duration means the endpoint was never called.
func LeadSubmitted(status string, duration time.Duration) {
	LeadsTotal.WithLabelValues(status).Inc()
	if duration > 0 {
		LeadSubmitDuration.Observe(duration.Seconds())
	}
}

// ThumbnailServed records how a thumbnail request was answered.
func ThumbnailServed(status string) {
	ThumbnailsTotal.WithLabelValues(status).Inc()
}

// RateLimited records a rejected request.
func RateLimited(scope string) {
	RateLimitedTotal.WithLabelValues(scope).Inc()
}
