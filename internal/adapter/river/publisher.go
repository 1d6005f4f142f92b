package river

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/riverqueue/river"

	"github.com/lessonforge/lessonforge/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// EventJobArgs carries the data needed to process a lifecycle event
// asynchronously. River serializes this as JSON into its job queue table. It
// includes a snapshot of the status record at publish time, so the worker
// never needs to query the database.
type EventJobArgs struct {
	Event      string    `json:"event"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Status     string    `json:"status"`
	RecordID   string    `json:"record_id"`
	Note       string    `json:"note,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (EventJobArgs) Kind() string { return "lifecycle.event" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EventPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues a lifecycle event as an async job in River.
func (p *Publisher) Publish(ctx context.Context, event domain.Event, rec domain.StatusRecord) error {
	_, err := p.client.Insert(ctx, EventJobArgs{
		Event:      string(event),
		EntityType: string(rec.EntityType),
		EntityID:   rec.EntityID,
		Status:     string(rec.Status),
		RecordID:   rec.ID,
		Note:       rec.Note,
		OccurredAt: rec.CreatedAt,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing event job: %w", err)
	}
	return nil
}
