package store

import (
	"database/sql"
	"errors"
	"time"
)

// Session represents a completed coaching session summary.
type Session struct {
	ID               string
	ExerciseID       string
	StartedAt        time.Time
	EndedAt          time.Time
	DurationMs       int64
	Score            float64
	Corrections      int
	Reps             int
	TotalFrames      int
	TorsoErrors      int
	AngleErrors      int
	RangeErrors      int
	TotalErrors      int
	AvgAngle         float64
	AngleVariance    float64
	StabilityScore   float64
	ConsistencyScore float64
	ErrorRate        float64
	// Frames is the recorded per-frame analysis series as JSON.
	Frames    string
	CreatedAt time.Time
}

// SessionRepository provides CRUD operations for session summaries.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create persists a completed session summary.
func (r *SessionRepository) Create(sess *Session) error {
	frames := sess.Frames
	if frames == "" {
		frames = "[]"
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, exercise_id, started_at, ended_at, duration_ms, score,
			corrections, reps, total_frames, torso_errors, angle_errors, range_errors,
			total_errors, avg_angle, angle_variance, stability_score, consistency_score,
			error_rate, frames)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.ExerciseID, sess.StartedAt, sess.EndedAt, sess.DurationMs, sess.Score,
		sess.Corrections, sess.Reps, sess.TotalFrames, sess.TorsoErrors, sess.AngleErrors,
		sess.RangeErrors, sess.TotalErrors, sess.AvgAngle, sess.AngleVariance,
		sess.StabilityScore, sess.ConsistencyScore, sess.ErrorRate, frames,
	)
	return err
}

// GetByID retrieves a session summary by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	sess := &Session{}

	err := r.db.QueryRow(
		`SELECT id, exercise_id, started_at, ended_at, duration_ms, score,
			corrections, reps, total_frames, torso_errors, angle_errors, range_errors,
			total_errors, avg_angle, angle_variance, stability_score, consistency_score,
			error_rate, frames, created_at
		 FROM sessions WHERE id = ?`,
		id,
	).Scan(&sess.ID, &sess.ExerciseID, &sess.StartedAt, &sess.EndedAt, &sess.DurationMs,
		&sess.Score, &sess.Corrections, &sess.Reps, &sess.TotalFrames, &sess.TorsoErrors,
		&sess.AngleErrors, &sess.RangeErrors, &sess.TotalErrors, &sess.AvgAngle,
		&sess.AngleVariance, &sess.StabilityScore, &sess.ConsistencyScore, &sess.ErrorRate,
		&sess.Frames, &sess.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return sess, nil
}

// List retrieves session summaries ordered by start time, newest first.
// If exerciseID is non-empty the results are filtered to that exercise.
// A limit of 0 returns all matching sessions.
func (r *SessionRepository) List(exerciseID string, limit int) ([]*Session, error) {
	query := `SELECT id, exercise_id, started_at, ended_at, duration_ms, score,
			corrections, reps, total_frames, torso_errors, angle_errors, range_errors,
			total_errors, avg_angle, angle_variance, stability_score, consistency_score,
			error_rate, created_at
		 FROM sessions`

	var args []interface{}
	if exerciseID != "" {
		query += ` WHERE exercise_id = ?`
		args = append(args, exerciseID)
	}
	query += ` ORDER BY started_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess := &Session{}
		err := rows.Scan(&sess.ID, &sess.ExerciseID, &sess.StartedAt, &sess.EndedAt,
			&sess.DurationMs, &sess.Score, &sess.Corrections, &sess.Reps, &sess.TotalFrames,
			&sess.TorsoErrors, &sess.AngleErrors, &sess.RangeErrors, &sess.TotalErrors,
			&sess.AvgAngle, &sess.AngleVariance, &sess.StabilityScore, &sess.ConsistencyScore,
			&sess.ErrorRate, &sess.CreatedAt)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// Delete removes a session summary and its report.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
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
