package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lessonforge/lessonforge/internal/domain"
)

// AcceptResult is the outcome of a successful acceptance: the booked lesson
// and the sibling quotes that were expired alongside it.
type AcceptResult struct {
	Lesson          domain.Lesson
	ExpiredQuoteIDs []string
}

// Coordinator settles the fate of a whole quote batch: exactly one quote is
// accepted, every live sibling is expired, and exactly one lesson is booked.
// All of it runs inside the per-request critical section so two acceptance
// attempts on the same request can never both win.
type Coordinator struct {
	quotes  domain.QuoteRepository
	lessons domain.LessonRepository
	ledger  *Ledger
	locks   *RequestLocks
	logger  *zap.Logger
	now     func() time.Time
}

// NewCoordinator creates a coordinator sharing the broker's lock registry.
func NewCoordinator(
	quotes domain.QuoteRepository,
	lessons domain.LessonRepository,
	ledger *Ledger,
	locks *RequestLocks,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		quotes:  quotes,
		lessons: lessons,
		ledger:  ledger,
		locks:   locks,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// GetQuote returns a quote by ID.
func (c *Coordinator) GetQuote(ctx context.Context, id string) (domain.Quote, error) {
	return c.quotes.GetQuote(ctx, id)
}

// GetLesson returns a lesson by ID.
func (c *Coordinator) GetLesson(ctx context.Context, id string) (domain.Lesson, error) {
	return c.lessons.GetLesson(ctx, id)
}

// AcceptQuote accepts one quote, expires its live siblings, and books the
// lesson. On a lesson persistence failure the quote's acceptance is undone
// by a corrective revert record; siblings already expired stay expired, and
// the caller retries by regenerating quotes, not by accepting a sibling.
func (c *Coordinator) AcceptQuote(ctx context.Context, quoteID string) (AcceptResult, error) {
	quote, err := c.quotes.GetQuote(ctx, quoteID)
	if err != nil {
		return AcceptResult{}, err
	}

	unlock := c.locks.Lock(quote.LessonRequestID)
	defer unlock()

	if quote.Expired(c.now()) {
		return AcceptResult{}, &domain.QuoteExpiredError{QuoteID: quote.ID, ExpiresAt: quote.ExpiresAt}
	}

	// Status must be re-read inside the critical section: a concurrent
	// acceptance may have resolved this quote while we waited on the lock.
	current, err := c.ledger.CurrentStatus(ctx, domain.EntityQuote, quote.ID)
	if err != nil {
		return AcceptResult{}, err
	}
	if current != domain.QuoteCreated {
		return AcceptResult{}, &domain.AlreadyResolvedError{QuoteID: quote.ID, Status: current}
	}

	if _, err := c.ledger.RecordTransition(ctx, domain.EntityQuote, quote.ID, domain.EventAccept, ""); err != nil {
		return AcceptResult{}, err
	}

	expiredIDs := c.expireSiblings(ctx, quote)

	lesson := domain.NewLesson(generateID(), quote.ID, c.now())
	if err := c.lessons.CreateLesson(ctx, lesson); err != nil {
		c.compensate(ctx, quote)
		return AcceptResult{}, &domain.PersistenceError{Op: "creating lesson", Err: err}
	}

	if _, err := c.ledger.Register(ctx, domain.EntityLesson, lesson.ID, domain.LessonRequested); err != nil {
		c.discardLesson(ctx, lesson)
		c.compensate(ctx, quote)
		return AcceptResult{}, &domain.PersistenceError{Op: "registering lesson", Err: err}
	}

	c.logger.Info("quote accepted",
		zap.String("quote_id", quote.ID),
		zap.String("lesson_request_id", quote.LessonRequestID),
		zap.String("lesson_id", lesson.ID),
		zap.Int("expired_siblings", len(expiredIDs)),
	)

	return AcceptResult{Lesson: lesson, ExpiredQuoteIDs: expiredIDs}, nil
}

// expireSiblings moves every sibling still in a non-terminal status to
// expired. A sibling that fails to transition (e.g. resolved through another
// path between read and write) is logged and skipped, not fatal.
func (c *Coordinator) expireSiblings(ctx context.Context, accepted domain.Quote) []string {
	siblings, err := c.quotes.QuotesByRequest(ctx, accepted.LessonRequestID)
	if err != nil {
		c.logger.Error("listing sibling quotes failed",
			zap.String("lesson_request_id", accepted.LessonRequestID),
			zap.Error(err),
		)
		return nil
	}

	var expired []string
	for _, sib := range siblings {
		if sib.ID == accepted.ID {
			continue
		}

		status, err := c.ledger.CurrentStatus(ctx, domain.EntityQuote, sib.ID)
		if err != nil {
			c.logger.Warn("reading sibling status failed, skipping",
				zap.String("quote_id", sib.ID), zap.Error(err))
			continue
		}
		if status != domain.QuoteCreated {
			continue
		}

		if _, err := c.ledger.RecordTransition(ctx, domain.EntityQuote, sib.ID, domain.EventExpire, "sibling accepted"); err != nil {
			c.logger.Warn("expiring sibling failed, skipping",
				zap.String("quote_id", sib.ID), zap.Error(err))
			continue
		}
		expired = append(expired, sib.ID)
	}

	return expired
}

// discardLesson removes a lesson row whose ledger registration failed. The
// row must not survive the failed acceptance: its quote_id uniqueness would
// otherwise make every retry of the same quote fail on the insert.
func (c *Coordinator) discardLesson(ctx context.Context, lesson domain.Lesson) {
	if err := c.lessons.DeleteLesson(ctx, lesson.ID); err != nil {
		c.logger.Error("discarding unregistered lesson failed",
			zap.String("lesson_id", lesson.ID),
			zap.String("quote_id", lesson.QuoteID),
			zap.Error(err),
		)
	}
}

// compensate undoes an acceptance whose lesson could not be persisted. The
// ledger is append-only, so the undo is a new corrective record, never a
// rewrite of history.
func (c *Coordinator) compensate(ctx context.Context, quote domain.Quote) {
	if _, err := c.ledger.RecordTransition(ctx, domain.EntityQuote, quote.ID, domain.EventRevert, "lesson creation failed"); err != nil {
		// Nothing left to do in-band. The quote stays accepted with no
		// lesson; surface loudly for operator intervention.
		c.logger.Error("compensating revert failed",
			zap.String("quote_id", quote.ID),
			zap.String("lesson_request_id", quote.LessonRequestID),
			zap.Error(err),
		)
	}
}
