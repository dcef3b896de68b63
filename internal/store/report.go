package store

import (
	"database/sql"
	"errors"
	"time"
)

// Report represents a stored natural-language session report.
type Report struct {
	SessionID string
	Summary   string
	Analysis  string
	Tip       string
	Source    string
	CreatedAt time.Time
}

// ReportRepository provides storage for generated session reports.
type ReportRepository struct {
	db *sql.DB
}

// Reports returns the report repository for this store.
func (s *Store) Reports() *ReportRepository {
	return &ReportRepository{db: s.db}
}

// Save stores a report for a session, replacing any existing one.
func (r *ReportRepository) Save(rep *Report) error {
	_, err := r.db.Exec(
		`INSERT INTO reports (session_id, summary, analysis, tip, source)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
			summary = excluded.summary,
			analysis = excluded.analysis,
			tip = excluded.tip,
			source = excluded.source`,
		rep.SessionID, rep.Summary, rep.Analysis, rep.Tip, rep.Source,
	)
	return err
}

// GetBySessionID retrieves the report for a session.
func (r *ReportRepository) GetBySessionID(sessionID string) (*Report, error) {
	rep := &Report{}

	err := r.db.QueryRow(
		`SELECT session_id, summary, analysis, tip, source, created_at
		 FROM reports WHERE session_id = ?`,
		sessionID,
	).Scan(&rep.SessionID, &rep.Summary, &rep.Analysis, &rep.Tip, &rep.Source, &rep.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return rep, nil
}
