package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lessonforge/lessonforge/internal/domain"
)

// Append stores a status record and returns it with its assigned sequence
// number. Records are insert-only; there is no update or delete path.
func (r *Repository) Append(ctx context.Context, rec domain.StatusRecord) (domain.StatusRecord, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO status_records (id, entity_type, entity_id, status, event, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.EntityType), rec.EntityID, string(rec.Status),
		string(rec.Event), rec.Note, rec.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return domain.StatusRecord{}, fmt.Errorf("inserting status record: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return domain.StatusRecord{}, fmt.Errorf("reading record sequence: %w", err)
	}
	rec.Seq = seq

	return rec, nil
}

// Latest returns the entity's current record: latest created_at, ties broken
// by insertion order.
func (r *Repository) Latest(ctx context.Context, t domain.EntityType, entityID string) (domain.StatusRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT seq, id, entity_type, entity_id, status, event, note, created_at
		 FROM status_records
		 WHERE entity_type = ? AND entity_id = ?
		 ORDER BY created_at DESC, seq DESC
		 LIMIT 1`,
		string(t), entityID,
	)

	rec, err := scanStatusRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.StatusRecord{}, domain.ErrEntityNotFound
		}
		return domain.StatusRecord{}, fmt.Errorf("scanning status record: %w", err)
	}

	return rec, nil
}

// History returns every record for the entity, oldest first.
func (r *Repository) History(ctx context.Context, t domain.EntityType, entityID string) ([]domain.StatusRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, id, entity_type, entity_id, status, event, note, created_at
		 FROM status_records
		 WHERE entity_type = ? AND entity_id = ?
		 ORDER BY created_at ASC, seq ASC`,
		string(t), entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing status records: %w", err)
	}
	defer rows.Close()

	var out []domain.StatusRecord
	for rows.Next() {
		rec, err := scanStatusRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning status record row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(out) == 0 {
		return nil, domain.ErrEntityNotFound
	}

	return out, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanStatusRecord(s scanner) (domain.StatusRecord, error) {
	var rec domain.StatusRecord
	var entityType, status, event, createdAt string

	err := s.Scan(&rec.Seq, &rec.ID, &entityType, &rec.EntityID, &status, &event, &rec.Note, &createdAt)
	if err != nil {
		return domain.StatusRecord{}, err
	}

	rec.EntityType = domain.EntityType(entityType)
	rec.Status = domain.Status(status)
	rec.Event = domain.Event(event)
	rec.CreatedAt, _ = time.Parse(timeFormat, createdAt)

	return rec, nil
}
