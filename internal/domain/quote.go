package domain

import "time"

// QuoteTTL is the window after which an unaccepted quote can no longer be
// accepted.
const QuoteTTL = 24 * time.Hour

// LessonRequest is the student-originated demand a batch of quotes is
// generated against. Immutable once created.
type LessonRequest struct {
	ID              string
	StudentID       string
	LessonType      string
	StartTime       time.Time
	DurationMinutes int
	AddressID       string
	CreatedAt       time.Time
}

// Quote is a priced, time-bounded offer from one teacher for one lesson
// request. Its current status lives in the ledger, never on the struct, so a
// stale copy cannot masquerade as the truth.
type Quote struct {
	ID              string
	LessonRequestID string
	TeacherID       string
	HourlyRateCents int64
	CostCents       int64
	CreatedAt       time.Time
	ExpiresAt       time.Time
}

// NewQuote prices a quote for the given request and teacher rate.
func NewQuote(id string, req LessonRequest, teacherID string, hourlyRateCents int64, now time.Time) Quote {
	return Quote{
		ID:              id,
		LessonRequestID: req.ID,
		TeacherID:       teacherID,
		HourlyRateCents: hourlyRateCents,
		CostCents:       LessonCostCents(hourlyRateCents, req.DurationMinutes),
		CreatedAt:       now,
		ExpiresAt:       now.Add(QuoteTTL),
	}
}

// Expired reports whether the quote can no longer be accepted as of now.
func (q Quote) Expired(now time.Time) bool {
	return now.After(q.ExpiresAt)
}

// LessonCostCents computes hourlyRateCents * durationMinutes / 60 rounded to
// the nearest cent, halves to even. Integer arithmetic throughout so a
// half-cent boundary is exact, never a float artifact.
func LessonCostCents(hourlyRateCents int64, durationMinutes int) int64 {
	n := hourlyRateCents * int64(durationMinutes)
	q, r := n/60, n%60
	switch {
	case 2*r > 60:
		return q + 1
	case 2*r == 60:
		if q%2 != 0 {
			return q + 1
		}
		return q
	default:
		return q
	}
}
