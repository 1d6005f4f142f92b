package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lessonforge/lessonforge/internal/domain"
)

// CreateLessonRequest persists an immutable lesson request row.
func (r *Repository) CreateLessonRequest(ctx context.Context, req domain.LessonRequest) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO lesson_requests (id, student_id, lesson_type, start_time, duration_minutes, address_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.StudentID, req.LessonType,
		req.StartTime.UTC().Format(timeFormat), req.DurationMinutes, req.AddressID,
		req.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting lesson request: %w", err)
	}
	return nil
}

// GetLessonRequest fetches a lesson request by ID.
func (r *Repository) GetLessonRequest(ctx context.Context, id string) (domain.LessonRequest, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, student_id, lesson_type, start_time, duration_minutes, address_id, created_at
		 FROM lesson_requests WHERE id = ?`, id,
	)

	var req domain.LessonRequest
	var startTime, createdAt string
	err := row.Scan(&req.ID, &req.StudentID, &req.LessonType, &startTime, &req.DurationMinutes, &req.AddressID, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.LessonRequest{}, domain.ErrEntityNotFound
		}
		return domain.LessonRequest{}, fmt.Errorf("scanning lesson request: %w", err)
	}

	req.StartTime, _ = time.Parse(timeFormat, startTime)
	req.CreatedAt, _ = time.Parse(timeFormat, createdAt)

	return req, nil
}

// CreateQuote persists a quote. The UNIQUE (lesson_request_id, teacher_id)
// constraint is the cross-process guard against duplicate generation; a
// violation maps to DuplicateQuoteError so the broker can hand back the
// winner's batch instead of failing.
func (r *Repository) CreateQuote(ctx context.Context, q domain.Quote) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO quotes (id, lesson_request_id, teacher_id, hourly_rate_cents, cost_cents, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.LessonRequestID, q.TeacherID, q.HourlyRateCents, q.CostCents,
		q.CreatedAt.UTC().Format(timeFormat), q.ExpiresAt.UTC().Format(timeFormat),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.DuplicateQuoteError{LessonRequestID: q.LessonRequestID, TeacherID: q.TeacherID}
		}
		return fmt.Errorf("inserting quote: %w", err)
	}
	return nil
}

// GetQuote fetches a quote by ID.
func (r *Repository) GetQuote(ctx context.Context, id string) (domain.Quote, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, lesson_request_id, teacher_id, hourly_rate_cents, cost_cents, created_at, expires_at
		 FROM quotes WHERE id = ?`, id,
	)

	q, err := scanQuote(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Quote{}, domain.ErrEntityNotFound
		}
		return domain.Quote{}, fmt.Errorf("scanning quote: %w", err)
	}

	return q, nil
}

// QuotesByRequest lists every quote for a lesson request, oldest first.
func (r *Repository) QuotesByRequest(ctx context.Context, lessonRequestID string) ([]domain.Quote, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, lesson_request_id, teacher_id, hourly_rate_cents, cost_cents, created_at, expires_at
		 FROM quotes WHERE lesson_request_id = ?
		 ORDER BY created_at ASC, id ASC`,
		lessonRequestID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing quotes: %w", err)
	}
	defer rows.Close()

	var out []domain.Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning quote row: %w", err)
		}
		out = append(out, q)
	}

	return out, rows.Err()
}

// DeleteQuote removes a quote row. Used when the ledger registration after
// the insert fails; the row must go so a retry can regenerate the batch.
func (r *Repository) DeleteQuote(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM quotes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting quote: %w", err)
	}
	return nil
}

// CreateLesson persists the booked lesson. The UNIQUE quote_id constraint
// keeps the lesson 1:1 with its accepted quote.
func (r *Repository) CreateLesson(ctx context.Context, l domain.Lesson) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO lessons (id, quote_id, created_at) VALUES (?, ?, ?)`,
		l.ID, l.QuoteID, l.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting lesson: %w", err)
	}
	return nil
}

// GetLesson fetches a lesson by ID.
func (r *Repository) GetLesson(ctx context.Context, id string) (domain.Lesson, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, quote_id, created_at FROM lessons WHERE id = ?`, id,
	)

	var l domain.Lesson
	var createdAt string
	err := row.Scan(&l.ID, &l.QuoteID, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Lesson{}, domain.ErrEntityNotFound
		}
		return domain.Lesson{}, fmt.Errorf("scanning lesson: %w", err)
	}

	l.CreatedAt, _ = time.Parse(timeFormat, createdAt)

	return l, nil
}

// DeleteLesson removes a lesson row. Without it a lesson whose ledger
// registration failed would pin the quote_id uniqueness forever.
func (r *Repository) DeleteLesson(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM lessons WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting lesson: %w", err)
	}
	return nil
}

func scanQuote(s scanner) (domain.Quote, error) {
	var q domain.Quote
	var createdAt, expiresAt string

	err := s.Scan(&q.ID, &q.LessonRequestID, &q.TeacherID, &q.HourlyRateCents, &q.CostCents, &createdAt, &expiresAt)
	if err != nil {
		return domain.Quote{}, err
	}

	q.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	q.ExpiresAt, _ = time.Parse(timeFormat, expiresAt)

	return q, nil
}
