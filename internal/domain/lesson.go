package domain

import "time"

// Lesson is the booked outcome of exactly one accepted quote. Its lifecycle
// status is tracked in the ledger under EntityLesson.
type Lesson struct {
	ID        string
	QuoteID   string
	CreatedAt time.Time
}

// NewLesson creates the lesson booked for an accepted quote.
func NewLesson(id, quoteID string, now time.Time) Lesson {
	return Lesson{ID: id, QuoteID: quoteID, CreatedAt: now}
}

// Teacher is a roster entry the directory matches against lesson requests.
type Teacher struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// HourlyRate is a teacher's price for one lesson type. Whether the rate is
// offered at all is its ledger lifecycle (active/inactive), not a flag here.
type HourlyRate struct {
	ID         string
	TeacherID  string
	LessonType string
	RateCents  int64
	CreatedAt  time.Time
}

// Objective is a student learning goal. Included as a plain lifecycle
// consumer: all of its state logic is the objective transition table.
type Objective struct {
	ID        string
	StudentID string
	Title     string
	CreatedAt time.Time
}

// TeacherListing is one directory match: a teacher and their hourly rate in
// cents per lesson type.
type TeacherListing struct {
	TeacherID   string
	RatesByType map[string]int64
}
