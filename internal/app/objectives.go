package app

import (
	"context"
	"fmt"
	"time"

	"github.com/lessonforge/lessonforge/internal/domain"
)

// ObjectiveService manages student learning objectives. It holds no status
// logic of its own; everything after creation is the objective transition
// table applied through the ledger.
type ObjectiveService struct {
	repo   domain.ObjectiveRepository
	ledger *Ledger
	now    func() time.Time
}

// NewObjectiveService creates an objective service.
func NewObjectiveService(repo domain.ObjectiveRepository, ledger *Ledger) *ObjectiveService {
	return &ObjectiveService{
		repo:   repo,
		ledger: ledger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create persists an objective and opens its ledger history.
func (s *ObjectiveService) Create(ctx context.Context, studentID, title string) (domain.Objective, error) {
	obj := domain.Objective{
		ID:        generateID(),
		StudentID: studentID,
		Title:     title,
		CreatedAt: s.now(),
	}

	if err := s.repo.CreateObjective(ctx, obj); err != nil {
		return domain.Objective{}, fmt.Errorf("creating objective: %w", err)
	}

	if _, err := s.ledger.Register(ctx, domain.EntityObjective, obj.ID, domain.ObjectiveCreated); err != nil {
		return domain.Objective{}, fmt.Errorf("registering objective %s: %w", obj.ID, err)
	}

	return obj, nil
}

// Get returns an objective by ID.
func (s *ObjectiveService) Get(ctx context.Context, id string) (domain.Objective, error) {
	return s.repo.GetObjective(ctx, id)
}
