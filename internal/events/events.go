// Package events fans lifecycle notifications out to interested consumers
// (dashboards, webhook bridges). Publishing is best-effort: the ledger emits
// after its transaction commits and never fails an operation over a lost
// event.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/meshcompute/clearing/internal/db/models"
)

// Event is the envelope published for every committed phase transition
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	JobID     uint            `json:"job_id"`
	FromPhase models.JobPhase `json:"from_phase"`
	ToPhase   models.JobPhase `json:"to_phase"`
	Actor     string          `json:"actor"`
	Amount    int64           `json:"amount,omitempty"`
	At        time.Time       `json:"at"`
}

// NewEvent builds an event envelope with a fresh ID
func NewEvent(eventType string, jobID uint, from, to models.JobPhase, actor string, amount int64) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		JobID:     jobID,
		FromPhase: from,
		ToPhase:   to,
		Actor:     actor,
		Amount:    amount,
		At:        time.Now().UTC(),
	}
}

// Publisher delivers events to a transport
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NoopPublisher drops every event; used when no transport is configured
type NoopPublisher struct{}

// Publish implements Publisher
func (NoopPublisher) Publish(context.Context, Event) error { return nil }

// Close implements Publisher
func (NoopPublisher) Close() error { return nil }
