// Package leadstore defines the persistence boundary for completed intake
// leads.
//
// The orchestrator dispatches exactly one SaveLead per settled call and only
// logs the result; retry and backoff policy belong to the implementation
// behind the interface, never to the call path.
package leadstore

import (
	"context"
	"time"
)

// Lead is the final intake record for one call.
type Lead struct {
	// CallID is the telephony provider's call identifier.
	CallID string

	// CallerNumber is the caller-ID phone number, when known.
	CallerNumber string

	// Fields maps lead field names to their extracted values. Unfilled
	// fields are simply absent.
	Fields map[string]string

	// Transcript is the full speaker-prefixed conversation text.
	Transcript string

	// ReceivedAt is when the call settled.
	ReceivedAt time.Time
}

// Saver persists leads. Implementations must be safe for concurrent use.
type Saver interface {
	// SaveLead writes the lead. Writing the same CallID twice must not
	// produce a duplicate record.
	SaveLead(ctx context.Context, lead Lead) error
}
