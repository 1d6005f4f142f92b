package domain

import "context"

// LedgerStore is the durable append-only store behind the lifecycle ledger.
// Append assigns Seq and returns the stored record. Latest and History fail
// with ErrEntityNotFound when the entity has no records.
type LedgerStore interface {
	Append(ctx context.Context, rec StatusRecord) (StatusRecord, error)
	Latest(ctx context.Context, t EntityType, entityID string) (StatusRecord, error)
	History(ctx context.Context, t EntityType, entityID string) ([]StatusRecord, error)
}

// TransitionValidator checks an event against an entity type's transition
// table and returns the resulting status.
type TransitionValidator interface {
	Apply(ctx context.Context, t EntityType, current Status, event Event) (Status, error)
}

// LessonRequestRepository defines the persistence contract for lesson requests.
type LessonRequestRepository interface {
	CreateLessonRequest(ctx context.Context, req LessonRequest) error
	GetLessonRequest(ctx context.Context, id string) (LessonRequest, error)
}

// QuoteRepository defines the persistence contract for quotes. CreateQuote
// must enforce uniqueness on (LessonRequestID, TeacherID) and fail with
// DuplicateQuoteError on a violation; that constraint is what makes
// concurrent quote generation safe across processes. DeleteQuote exists only
// to undo an insert whose ledger registration failed, so a half-created
// batch never survives.
type QuoteRepository interface {
	CreateQuote(ctx context.Context, q Quote) error
	GetQuote(ctx context.Context, id string) (Quote, error)
	QuotesByRequest(ctx context.Context, lessonRequestID string) ([]Quote, error)
	DeleteQuote(ctx context.Context, id string) error
}

// LessonRepository defines the persistence contract for booked lessons.
// DeleteLesson is the compensation path: a lesson row whose ledger
// registration failed must not survive, or the quote_id uniqueness would
// block every retry of the acceptance.
type LessonRepository interface {
	CreateLesson(ctx context.Context, l Lesson) error
	GetLesson(ctx context.Context, id string) (Lesson, error)
	DeleteLesson(ctx context.Context, id string) error
}

// TeacherDirectory returns candidate teachers able to give lessons of the
// given type, with their hourly rates per type.
type TeacherDirectory interface {
	FindAvailable(ctx context.Context, lessonType string, limit int) ([]TeacherListing, error)
}

// RosterRepository defines the persistence contract for teachers and their
// hourly rate records.
type RosterRepository interface {
	CreateTeacher(ctx context.Context, t Teacher) error
	CreateHourlyRate(ctx context.Context, r HourlyRate) error
	GetHourlyRate(ctx context.Context, id string) (HourlyRate, error)
}

// ObjectiveRepository defines the persistence contract for objectives.
type ObjectiveRepository interface {
	CreateObjective(ctx context.Context, o Objective) error
	GetObjective(ctx context.Context, id string) (Objective, error)
}

// EventPublisher emits a domain event for every status record written. The
// excluded delivery layer (notifications, recommendation streams) consumes
// these; the core only ever pushes discrete, already-computed facts.
type EventPublisher interface {
	Publish(ctx context.Context, event Event, rec StatusRecord) error
}
