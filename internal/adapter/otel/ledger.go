package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lessonforge/lessonforge/internal/domain"
)

const tracerName = "github.com/lessonforge/lessonforge/internal/adapter/otel"

// TracingLedgerStore wraps a domain.LedgerStore with OpenTelemetry tracing.
// Each method creates a span with semantic attributes and records errors.
type TracingLedgerStore struct {
	next   domain.LedgerStore
	tracer trace.Tracer
}

// Compile-time check: TracingLedgerStore implements domain.LedgerStore.
var _ domain.LedgerStore = (*TracingLedgerStore)(nil)

// NewTracingLedgerStore creates a tracing decorator around the given store.
func NewTracingLedgerStore(next domain.LedgerStore) *TracingLedgerStore {
	return &TracingLedgerStore{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (s *TracingLedgerStore) Append(ctx context.Context, rec domain.StatusRecord) (domain.StatusRecord, error) {
	ctx, span := s.tracer.Start(ctx, "LedgerStore.Append",
		trace.WithAttributes(
			attribute.String("entity.type", string(rec.EntityType)),
			attribute.String("entity.id", rec.EntityID),
			attribute.String("record.status", string(rec.Status)),
			attribute.String("record.event", string(rec.Event)),
		),
	)
	defer span.End()

	stored, err := s.next.Append(ctx, rec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int64("record.seq", stored.Seq))
	}
	return stored, err
}

func (s *TracingLedgerStore) Latest(ctx context.Context, t domain.EntityType, entityID string) (domain.StatusRecord, error) {
	ctx, span := s.tracer.Start(ctx, "LedgerStore.Latest",
		trace.WithAttributes(
			attribute.String("entity.type", string(t)),
			attribute.String("entity.id", entityID),
		),
	)
	defer span.End()

	rec, err := s.next.Latest(ctx, t, entityID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return rec, err
}

func (s *TracingLedgerStore) History(ctx context.Context, t domain.EntityType, entityID string) ([]domain.StatusRecord, error) {
	ctx, span := s.tracer.Start(ctx, "LedgerStore.History",
		trace.WithAttributes(
			attribute.String("entity.type", string(t)),
			attribute.String("entity.id", entityID),
		),
	)
	defer span.End()

	recs, err := s.next.History(ctx, t, entityID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("result.count", len(recs)))
	}
	return recs, err
}
