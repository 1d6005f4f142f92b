package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lessonforge/lessonforge/internal/domain"
)

// CreateTeacher persists a roster entry.
func (r *Repository) CreateTeacher(ctx context.Context, t domain.Teacher) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO teachers (id, name, created_at) VALUES (?, ?, ?)`,
		t.ID, t.Name, t.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting teacher: %w", err)
	}
	return nil
}

// CreateHourlyRate persists one teacher's rate for one lesson type.
func (r *Repository) CreateHourlyRate(ctx context.Context, rate domain.HourlyRate) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO hourly_rates (id, teacher_id, lesson_type, rate_cents, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rate.ID, rate.TeacherID, rate.LessonType, rate.RateCents,
		rate.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting hourly rate: %w", err)
	}
	return nil
}

// GetHourlyRate fetches a rate record by ID.
func (r *Repository) GetHourlyRate(ctx context.Context, id string) (domain.HourlyRate, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, teacher_id, lesson_type, rate_cents, created_at
		 FROM hourly_rates WHERE id = ?`, id,
	)

	var rate domain.HourlyRate
	var createdAt string
	err := row.Scan(&rate.ID, &rate.TeacherID, &rate.LessonType, &rate.RateCents, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.HourlyRate{}, domain.ErrEntityNotFound
		}
		return domain.HourlyRate{}, fmt.Errorf("scanning hourly rate: %w", err)
	}

	rate.CreatedAt, _ = time.Parse(timeFormat, createdAt)

	return rate, nil
}

// CreateObjective persists a student objective.
func (r *Repository) CreateObjective(ctx context.Context, o domain.Objective) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO objectives (id, student_id, title, created_at) VALUES (?, ?, ?, ?)`,
		o.ID, o.StudentID, o.Title, o.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting objective: %w", err)
	}
	return nil
}

// GetObjective fetches an objective by ID.
func (r *Repository) GetObjective(ctx context.Context, id string) (domain.Objective, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, student_id, title, created_at FROM objectives WHERE id = ?`, id,
	)

	var o domain.Objective
	var createdAt string
	err := row.Scan(&o.ID, &o.StudentID, &o.Title, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Objective{}, domain.ErrEntityNotFound
		}
		return domain.Objective{}, fmt.Errorf("scanning objective: %w", err)
	}

	o.CreatedAt, _ = time.Parse(timeFormat, createdAt)

	return o, nil
}

// FindAvailable lists teachers with a currently active rate for the lesson
// type. A rate's current status is its latest status record, so deactivated
// rates drop out of the directory without any flag on the row itself.
func (r *Repository) FindAvailable(ctx context.Context, lessonType string, limit int) ([]domain.TeacherListing, error) {
	rows, err := r.db.QueryContext(ctx,
		`WITH current AS (
		     SELECT hr.id, hr.teacher_id, hr.lesson_type, hr.rate_cents
		     FROM hourly_rates hr
		     WHERE (
		         SELECT sr.status FROM status_records sr
		         WHERE sr.entity_type = ? AND sr.entity_id = hr.id
		         ORDER BY sr.created_at DESC, sr.seq DESC
		         LIMIT 1
		     ) = ?
		 ),
		 eligible AS (
		     SELECT teacher_id FROM current
		     WHERE lesson_type = ?
		     ORDER BY teacher_id ASC
		     LIMIT ?
		 )
		 SELECT c.teacher_id, c.lesson_type, c.rate_cents
		 FROM current c
		 JOIN eligible e ON e.teacher_id = c.teacher_id`,
		string(domain.EntityHourlyRate), string(domain.RateActive),
		lessonType, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying directory: %w", err)
	}
	defer rows.Close()

	byTeacher := make(map[string]domain.TeacherListing)
	var order []string

	for rows.Next() {
		var teacherID, rateType string
		var cents int64
		if err := rows.Scan(&teacherID, &rateType, &cents); err != nil {
			return nil, fmt.Errorf("scanning directory row: %w", err)
		}

		listing, ok := byTeacher[teacherID]
		if !ok {
			listing = domain.TeacherListing{TeacherID: teacherID, RatesByType: make(map[string]int64)}
			order = append(order, teacherID)
		}
		listing.RatesByType[rateType] = cents
		byTeacher[teacherID] = listing
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.TeacherListing, 0, len(order))
	for _, id := range order {
		out = append(out, byTeacher[id])
	}

	return out, nil
}
