package store

import (
	"database/sql"
	"errors"
	"time"
)

// Exercise represents a catalog entry for one exercise.
type Exercise struct {
	ID              string
	Name            string
	Description     string
	HoldSeconds     float64
	DurationSeconds float64
	CountsAdvisory  bool
	Enabled         bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ExerciseRepository provides CRUD operations for the exercise catalog.
type ExerciseRepository struct {
	db *sql.DB
}

// Exercises returns the exercise repository for this store.
func (s *Store) Exercises() *ExerciseRepository {
	return &ExerciseRepository{db: s.db}
}

// Upsert inserts the exercise or updates its mutable fields if it already
// exists. Used to seed the catalog from the built-in rule registry.
func (r *ExerciseRepository) Upsert(e *Exercise) error {
	now := time.Now()

	_, err := r.db.Exec(
		`INSERT INTO exercises (id, name, description, hold_seconds, duration_seconds, counts_advisory, enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			hold_seconds = excluded.hold_seconds,
			duration_seconds = excluded.duration_seconds,
			counts_advisory = excluded.counts_advisory,
			updated_at = excluded.updated_at`,
		e.ID, e.Name, e.Description, e.HoldSeconds, e.DurationSeconds,
		boolToInt(e.CountsAdvisory), boolToInt(e.Enabled), now, now,
	)
	return err
}

// GetByID retrieves an exercise by its ID.
func (r *ExerciseRepository) GetByID(id string) (*Exercise, error) {
	e := &Exercise{}
	var countsAdvisory, enabled int

	err := r.db.QueryRow(
		`SELECT id, name, description, hold_seconds, duration_seconds, counts_advisory, enabled, created_at, updated_at
		 FROM exercises WHERE id = ?`,
		id,
	).Scan(&e.ID, &e.Name, &e.Description, &e.HoldSeconds, &e.DurationSeconds,
		&countsAdvisory, &enabled, &e.CreatedAt, &e.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	e.CountsAdvisory = countsAdvisory != 0
	e.Enabled = enabled != 0
	return e, nil
}

// List retrieves all exercises from the catalog.
func (r *ExerciseRepository) List() ([]*Exercise, error) {
	rows, err := r.db.Query(
		`SELECT id, name, description, hold_seconds, duration_seconds, counts_advisory, enabled, created_at, updated_at
		 FROM exercises ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exercises []*Exercise
	for rows.Next() {
		e := &Exercise{}
		var countsAdvisory, enabled int

		err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.HoldSeconds, &e.DurationSeconds,
			&countsAdvisory, &enabled, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return nil, err
		}

		e.CountsAdvisory = countsAdvisory != 0
		e.Enabled = enabled != 0
		exercises = append(exercises, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return exercises, nil
}

// SetEnabled toggles whether an exercise is offered.
func (r *ExerciseRepository) SetEnabled(id string, enabled bool) error {
	result, err := r.db.Exec(
		`UPDATE exercises SET enabled = ?, updated_at = ? WHERE id = ?`,
		boolToInt(enabled), time.Now(), id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
