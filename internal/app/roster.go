package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lessonforge/lessonforge/internal/domain"
)

// RosterService manages teachers and their hourly rate records. Each rate
// opens its ledger history as active; deactivation is a plain lifecycle
// transition, which is how a teacher drops out of the directory for a type.
type RosterService struct {
	repo   domain.RosterRepository
	ledger *Ledger
	logger *zap.Logger
	now    func() time.Time
}

// NewRosterService creates a roster service.
func NewRosterService(repo domain.RosterRepository, ledger *Ledger, logger *zap.Logger) *RosterService {
	return &RosterService{
		repo:   repo,
		ledger: ledger,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// AddTeacher registers a teacher with hourly rates per lesson type.
func (s *RosterService) AddTeacher(ctx context.Context, name string, ratesByType map[string]int64) (domain.Teacher, []domain.HourlyRate, error) {
	teacher := domain.Teacher{ID: generateID(), Name: name, CreatedAt: s.now()}

	if err := s.repo.CreateTeacher(ctx, teacher); err != nil {
		return domain.Teacher{}, nil, fmt.Errorf("creating teacher: %w", err)
	}

	rates := make([]domain.HourlyRate, 0, len(ratesByType))
	for lessonType, cents := range ratesByType {
		rate, err := s.AddHourlyRate(ctx, teacher.ID, lessonType, cents)
		if err != nil {
			return domain.Teacher{}, nil, err
		}
		rates = append(rates, rate)
	}

	s.logger.Info("teacher added",
		zap.String("teacher_id", teacher.ID),
		zap.Int("rates", len(rates)),
	)

	return teacher, rates, nil
}

// AddHourlyRate creates one rate record and opens it active in the ledger.
func (s *RosterService) AddHourlyRate(ctx context.Context, teacherID, lessonType string, rateCents int64) (domain.HourlyRate, error) {
	rate := domain.HourlyRate{
		ID:         generateID(),
		TeacherID:  teacherID,
		LessonType: lessonType,
		RateCents:  rateCents,
		CreatedAt:  s.now(),
	}

	if err := s.repo.CreateHourlyRate(ctx, rate); err != nil {
		return domain.HourlyRate{}, fmt.Errorf("creating hourly rate: %w", err)
	}

	if _, err := s.ledger.Register(ctx, domain.EntityHourlyRate, rate.ID, domain.RateActive); err != nil {
		return domain.HourlyRate{}, fmt.Errorf("registering hourly rate %s: %w", rate.ID, err)
	}

	return rate, nil
}

// GetHourlyRate returns a rate record by ID.
func (s *RosterService) GetHourlyRate(ctx context.Context, id string) (domain.HourlyRate, error) {
	return s.repo.GetHourlyRate(ctx, id)
}
