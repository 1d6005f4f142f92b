package app_test

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/lessonforge/lessonforge/internal/app"
	"github.com/lessonforge/lessonforge/internal/domain"
)

// --- Mocks shared by the app package tests ---

// memStore is an in-memory append-only LedgerStore. failAppend, when set,
// is consulted before each append so tests can fail selected writes.
type memStore struct {
	mu         sync.Mutex
	recs       []domain.StatusRecord
	seq        int64
	failAppend func(rec domain.StatusRecord) error
}

func (m *memStore) Append(_ context.Context, rec domain.StatusRecord) (domain.StatusRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAppend != nil {
		if err := m.failAppend(rec); err != nil {
			return domain.StatusRecord{}, err
		}
	}
	m.seq++
	rec.Seq = m.seq
	m.recs = append(m.recs, rec)
	return rec, nil
}

func (m *memStore) Latest(_ context.Context, t domain.EntityType, entityID string) (domain.StatusRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.recs) - 1; i >= 0; i-- {
		if m.recs[i].EntityType == t && m.recs[i].EntityID == entityID {
			return m.recs[i], nil
		}
	}
	return domain.StatusRecord{}, domain.ErrEntityNotFound
}

func (m *memStore) History(_ context.Context, t domain.EntityType, entityID string) ([]domain.StatusRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.StatusRecord
	for _, rec := range m.recs {
		if rec.EntityType == t && rec.EntityID == entityID {
			out = append(out, rec)
		}
	}
	if len(out) == 0 {
		return nil, domain.ErrEntityNotFound
	}
	return out, nil
}

// tableValidator validates directly against the domain tables.
type tableValidator struct{}

func (tableValidator) Apply(_ context.Context, t domain.EntityType, current domain.Status, event domain.Event) (domain.Status, error) {
	if dst, ok := domain.ResultingStatus(t, current, event); ok {
		return dst, nil
	}
	return "", &domain.TransitionError{EntityType: t, Event: event, Current: current}
}

// capturePublisher records published events.
type capturePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

type publishedEvent struct {
	event domain.Event
	rec   domain.StatusRecord
}

func (p *capturePublisher) Publish(_ context.Context, e domain.Event, rec domain.StatusRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{event: e, rec: rec})
	return nil
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// memRepo is an in-memory implementation of the persistence ports.
type memRepo struct {
	mu         sync.Mutex
	requests   map[string]domain.LessonRequest
	quotes     map[string]domain.Quote
	lessons    map[string]domain.Lesson
	teachers   map[string]domain.Teacher
	rates      map[string]domain.HourlyRate
	objectives map[string]domain.Objective

	failCreateLesson error
	// onCreateQuote runs under the repo lock before the normal insert logic;
	// returning a non-nil error short-circuits CreateQuote with it.
	onCreateQuote func(q domain.Quote) error
}

func newMemRepo() *memRepo {
	return &memRepo{
		requests:   make(map[string]domain.LessonRequest),
		quotes:     make(map[string]domain.Quote),
		lessons:    make(map[string]domain.Lesson),
		teachers:   make(map[string]domain.Teacher),
		rates:      make(map[string]domain.HourlyRate),
		objectives: make(map[string]domain.Objective),
	}
}

func (m *memRepo) CreateLessonRequest(_ context.Context, req domain.LessonRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[req.ID] = req
	return nil
}

func (m *memRepo) GetLessonRequest(_ context.Context, id string) (domain.LessonRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return domain.LessonRequest{}, domain.ErrEntityNotFound
	}
	return req, nil
}

func (m *memRepo) CreateQuote(_ context.Context, q domain.Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.onCreateQuote != nil {
		if err := m.onCreateQuote(q); err != nil {
			return err
		}
	}
	for _, existing := range m.quotes {
		if existing.LessonRequestID == q.LessonRequestID && existing.TeacherID == q.TeacherID {
			return &domain.DuplicateQuoteError{LessonRequestID: q.LessonRequestID, TeacherID: q.TeacherID}
		}
	}
	m.quotes[q.ID] = q
	return nil
}

func (m *memRepo) GetQuote(_ context.Context, id string) (domain.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[id]
	if !ok {
		return domain.Quote{}, domain.ErrEntityNotFound
	}
	return q, nil
}

func (m *memRepo) QuotesByRequest(_ context.Context, lessonRequestID string) ([]domain.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Quote
	for _, q := range m.quotes {
		if q.LessonRequestID == lessonRequestID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memRepo) DeleteQuote(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.quotes, id)
	return nil
}

func (m *memRepo) CreateLesson(_ context.Context, l domain.Lesson) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateLesson != nil {
		return m.failCreateLesson
	}
	m.lessons[l.ID] = l
	return nil
}

func (m *memRepo) GetLesson(_ context.Context, id string) (domain.Lesson, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lessons[id]
	if !ok {
		return domain.Lesson{}, domain.ErrEntityNotFound
	}
	return l, nil
}

func (m *memRepo) DeleteLesson(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lessons, id)
	return nil
}

func (m *memRepo) CreateTeacher(_ context.Context, teacher domain.Teacher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teachers[teacher.ID] = teacher
	return nil
}

func (m *memRepo) CreateHourlyRate(_ context.Context, r domain.HourlyRate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates[r.ID] = r
	return nil
}

func (m *memRepo) GetHourlyRate(_ context.Context, id string) (domain.HourlyRate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rates[id]
	if !ok {
		return domain.HourlyRate{}, domain.ErrEntityNotFound
	}
	return r, nil
}

func (m *memRepo) CreateObjective(_ context.Context, o domain.Objective) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objectives[o.ID] = o
	return nil
}

func (m *memRepo) GetObjective(_ context.Context, id string) (domain.Objective, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objectives[id]
	if !ok {
		return domain.Objective{}, domain.ErrEntityNotFound
	}
	return o, nil
}

// stubDirectory returns a fixed set of listings.
type stubDirectory struct {
	listings []domain.TeacherListing
	err      error
}

func (d *stubDirectory) FindAvailable(_ context.Context, _ string, _ int) ([]domain.TeacherListing, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.listings, nil
}

// newTestLedger builds a ledger over fresh in-memory collaborators.
func newTestLedger() (*app.Ledger, *memStore, *capturePublisher) {
	store := &memStore{}
	pub := &capturePublisher{}
	ledger := app.NewLedger(store, tableValidator{}, pub, zap.NewNop())
	return ledger, store, pub
}
