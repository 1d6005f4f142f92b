package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lessonforge/lessonforge/internal/domain"
)

// directoryLimit caps how many candidate teachers one request fans out to.
const directoryLimit = 25

// QuoteBroker turns one lesson request into one quote per eligible teacher.
// Generation is idempotent: quotes already produced for a request are
// returned unchanged.
type QuoteBroker struct {
	requests  domain.LessonRequestRepository
	quotes    domain.QuoteRepository
	directory domain.TeacherDirectory
	ledger    *Ledger
	locks     *RequestLocks
	logger    *zap.Logger
	now       func() time.Time
}

// NewQuoteBroker creates a broker with the given collaborators. The locks
// registry must be shared with the acceptance coordinator so generation and
// acceptance for one request exclude each other.
func NewQuoteBroker(
	requests domain.LessonRequestRepository,
	quotes domain.QuoteRepository,
	directory domain.TeacherDirectory,
	ledger *Ledger,
	locks *RequestLocks,
	logger *zap.Logger,
) *QuoteBroker {
	return &QuoteBroker{
		requests:  requests,
		quotes:    quotes,
		directory: directory,
		ledger:    ledger,
		locks:     locks,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateLessonRequest persists a new lesson request.
func (b *QuoteBroker) CreateLessonRequest(ctx context.Context, studentID, lessonType string, startTime time.Time, durationMinutes int, addressID string) (domain.LessonRequest, error) {
	req := domain.LessonRequest{
		ID:              generateID(),
		StudentID:       studentID,
		LessonType:      lessonType,
		StartTime:       startTime,
		DurationMinutes: durationMinutes,
		AddressID:       addressID,
		CreatedAt:       b.now(),
	}

	if err := b.requests.CreateLessonRequest(ctx, req); err != nil {
		return domain.LessonRequest{}, fmt.Errorf("creating lesson request: %w", err)
	}

	return req, nil
}

// GetLessonRequest returns a lesson request by ID.
func (b *QuoteBroker) GetLessonRequest(ctx context.Context, id string) (domain.LessonRequest, error) {
	return b.requests.GetLessonRequest(ctx, id)
}

// QuotesByRequest returns every quote generated for a request.
func (b *QuoteBroker) QuotesByRequest(ctx context.Context, lessonRequestID string) ([]domain.Quote, error) {
	return b.quotes.QuotesByRequest(ctx, lessonRequestID)
}

// GenerateQuotes produces one quote per teacher able to give the request's
// lesson type. A teacher with no rate for the type is skipped; if nobody
// survives, it fails with ErrNoAvailableTeachers. A second caller for the
// same request gets the first caller's quotes back, not duplicates.
func (b *QuoteBroker) GenerateQuotes(ctx context.Context, lessonRequestID string) ([]domain.Quote, error) {
	unlock := b.locks.Lock(lessonRequestID)
	defer unlock()

	existing, err := b.quotes.QuotesByRequest(ctx, lessonRequestID)
	if err != nil {
		return nil, fmt.Errorf("checking existing quotes: %w", err)
	}
	if len(existing) > 0 {
		return existing, nil
	}

	req, err := b.requests.GetLessonRequest(ctx, lessonRequestID)
	if err != nil {
		return nil, err
	}

	listings, err := b.directory.FindAvailable(ctx, req.LessonType, directoryLimit)
	if err != nil {
		return nil, fmt.Errorf("querying teacher directory: %w", err)
	}

	// The directory may return the same teacher twice; a set keeps the
	// uniqueness constraint from ever firing on our own input.
	seen := make(map[string]bool, len(listings))
	now := b.now()
	quotes := make([]domain.Quote, 0, len(listings))

	for _, listing := range listings {
		if seen[listing.TeacherID] {
			continue
		}
		seen[listing.TeacherID] = true

		rate, ok := listing.RatesByType[req.LessonType]
		if !ok {
			// Partial matching failure is tolerated, not fatal.
			b.logger.Warn("teacher has no rate for lesson type, skipping",
				zap.String("teacher_id", listing.TeacherID),
				zap.String("lesson_type", req.LessonType),
				zap.String("lesson_request_id", req.ID),
			)
			continue
		}

		q := domain.NewQuote(generateID(), req, listing.TeacherID, rate, now)

		if err := b.quotes.CreateQuote(ctx, q); err != nil {
			var dup *domain.DuplicateQuoteError
			if errors.As(err, &dup) {
				// Another process inserted quotes between our existence
				// check and now. One bounded retry: hand back its result.
				return b.retryExisting(ctx, lessonRequestID)
			}
			return nil, &domain.PersistenceError{Op: "creating quote", Err: err}
		}

		if _, err := b.ledger.Register(ctx, domain.EntityQuote, q.ID, domain.QuoteCreated); err != nil {
			// A quote row without ledger history is unreadable and would be
			// handed back by the idempotency check forever. Unwind the whole
			// batch so a later call regenerates it from scratch.
			b.rollbackBatch(ctx, q, quotes)
			return nil, fmt.Errorf("registering quote %s: %w", q.ID, err)
		}

		quotes = append(quotes, q)
	}

	if len(quotes) == 0 {
		return nil, domain.ErrNoAvailableTeachers
	}

	b.logger.Info("quotes generated",
		zap.String("lesson_request_id", req.ID),
		zap.String("lesson_type", req.LessonType),
		zap.Int("count", len(quotes)),
	)

	return quotes, nil
}

// rollbackBatch unwinds a generation run whose ledger write failed partway.
// The unregistered quote row is deleted outright; quotes already registered
// get a rejected record before their rows go, keeping the append-only
// history consistent with the rows that remain (none). Each step is
// best-effort and logged: the run already failed, this only limits the
// damage.
func (b *QuoteBroker) rollbackBatch(ctx context.Context, unregistered domain.Quote, registered []domain.Quote) {
	if err := b.quotes.DeleteQuote(ctx, unregistered.ID); err != nil {
		b.logger.Error("rolling back unregistered quote failed",
			zap.String("quote_id", unregistered.ID),
			zap.String("lesson_request_id", unregistered.LessonRequestID),
			zap.Error(err),
		)
	}

	for _, q := range registered {
		if _, err := b.ledger.RecordTransition(ctx, domain.EntityQuote, q.ID, domain.EventReject, "generation aborted"); err != nil {
			b.logger.Warn("rejecting rolled-back quote failed",
				zap.String("quote_id", q.ID), zap.Error(err))
		}
		if err := b.quotes.DeleteQuote(ctx, q.ID); err != nil {
			b.logger.Error("rolling back registered quote failed",
				zap.String("quote_id", q.ID),
				zap.String("lesson_request_id", q.LessonRequestID),
				zap.Error(err),
			)
		}
	}
}

// retryExisting is the single bounded retry after a lost insert race.
func (b *QuoteBroker) retryExisting(ctx context.Context, lessonRequestID string) ([]domain.Quote, error) {
	existing, err := b.quotes.QuotesByRequest(ctx, lessonRequestID)
	if err != nil {
		return nil, fmt.Errorf("re-reading quotes after conflict: %w", err)
	}
	if len(existing) == 0 {
		return nil, &domain.ConcurrentConflictError{LessonRequestID: lessonRequestID}
	}
	return existing, nil
}
