package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lessonforge/lessonforge/internal/domain"
)

// Ledger is the lifecycle engine shared by every entity type: an append-only
// status history plus transition validation against the entity type's table.
// It performs no cross-entity reasoning; multi-entity atomicity is the
// coordinator's job.
type Ledger struct {
	store     domain.LedgerStore
	validator domain.TransitionValidator
	publisher domain.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewLedger creates a ledger over the given store and validator.
func NewLedger(store domain.LedgerStore, validator domain.TransitionValidator, publisher domain.EventPublisher, logger *zap.Logger) *Ledger {
	return &Ledger{
		store:     store,
		validator: validator,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register opens an entity's history with its initial status. Fails with
// ErrAlreadyRegistered when the entity already has records.
func (l *Ledger) Register(ctx context.Context, t domain.EntityType, entityID string, initial domain.Status) (domain.StatusRecord, error) {
	if !domain.KnownEntityType(t) {
		return domain.StatusRecord{}, fmt.Errorf("unknown entity type %q", t)
	}

	if _, err := l.store.Latest(ctx, t, entityID); err == nil {
		return domain.StatusRecord{}, domain.ErrAlreadyRegistered
	} else if !errors.Is(err, domain.ErrEntityNotFound) {
		return domain.StatusRecord{}, fmt.Errorf("reading current status: %w", err)
	}

	rec := domain.StatusRecord{
		ID:         generateID(),
		EntityType: t,
		EntityID:   entityID,
		Status:     initial,
		CreatedAt:  l.now(),
	}

	stored, err := l.store.Append(ctx, rec)
	if err != nil {
		return domain.StatusRecord{}, fmt.Errorf("appending status record: %w", err)
	}

	return stored, nil
}

// CurrentStatus resolves an entity's current status from its latest record.
func (l *Ledger) CurrentStatus(ctx context.Context, t domain.EntityType, entityID string) (domain.Status, error) {
	rec, err := l.store.Latest(ctx, t, entityID)
	if err != nil {
		return "", err
	}
	return rec.Status, nil
}

// RecordTransition applies event to the entity's current status. Fails with
// a TransitionError when the current status has no such event in the table,
// or ErrEntityNotFound when the entity has no history. On success it appends
// and returns the new record and publishes a domain event.
func (l *Ledger) RecordTransition(ctx context.Context, t domain.EntityType, entityID string, event domain.Event, note string) (domain.StatusRecord, error) {
	latest, err := l.store.Latest(ctx, t, entityID)
	if err != nil {
		return domain.StatusRecord{}, err
	}

	next, err := l.validator.Apply(ctx, t, latest.Status, event)
	if err != nil {
		return domain.StatusRecord{}, err
	}

	rec := domain.StatusRecord{
		ID:         generateID(),
		EntityType: t,
		EntityID:   entityID,
		Status:     next,
		Event:      event,
		Note:       note,
		CreatedAt:  l.now(),
	}

	stored, err := l.store.Append(ctx, rec)
	if err != nil {
		return domain.StatusRecord{}, fmt.Errorf("appending status record: %w", err)
	}

	// The record is already durable; a lost event is a delivery gap, not a
	// state corruption, so publishing failures do not fail the transition.
	if err := l.publisher.Publish(ctx, event, stored); err != nil {
		l.logger.Warn("publishing domain event failed",
			zap.String("entity_type", string(t)),
			zap.String("entity_id", entityID),
			zap.String("event", string(event)),
			zap.Error(err),
		)
	}

	return stored, nil
}

// History returns every status record for the entity, oldest first.
func (l *Ledger) History(ctx context.Context, t domain.EntityType, entityID string) ([]domain.StatusRecord, error) {
	return l.store.History(ctx, t, entityID)
}
