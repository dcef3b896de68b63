package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Exercises table - the static exercise catalog
		`CREATE TABLE IF NOT EXISTS exercises (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			hold_seconds REAL NOT NULL DEFAULT 0,
			duration_seconds REAL NOT NULL DEFAULT 0,
			counts_advisory INTEGER NOT NULL DEFAULT 0,
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Sessions table - completed session summaries
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			exercise_id TEXT NOT NULL REFERENCES exercises(id) ON DELETE CASCADE,
			started_at DATETIME NOT NULL,
			ended_at DATETIME NOT NULL,
			duration_ms INTEGER NOT NULL,
			score REAL NOT NULL,
			corrections INTEGER NOT NULL DEFAULT 0,
			reps INTEGER NOT NULL DEFAULT 0,
			total_frames INTEGER NOT NULL DEFAULT 0,
			torso_errors INTEGER NOT NULL DEFAULT 0,
			angle_errors INTEGER NOT NULL DEFAULT 0,
			range_errors INTEGER NOT NULL DEFAULT 0,
			total_errors INTEGER NOT NULL DEFAULT 0,
			avg_angle REAL NOT NULL DEFAULT 0,
			angle_variance REAL NOT NULL DEFAULT 0,
			stability_score REAL NOT NULL DEFAULT 0,
			consistency_score REAL NOT NULL DEFAULT 0,
			error_rate REAL NOT NULL DEFAULT 0,
			frames TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Reports table - generated natural-language session reports
		`CREATE TABLE IF NOT EXISTS reports (
			session_id TEXT PRIMARY KEY REFERENCES sessions(id) ON DELETE CASCADE,
			summary TEXT NOT NULL,
			analysis TEXT NOT NULL,
			tip TEXT NOT NULL,
			source TEXT NOT NULL CHECK(source IN ('llm', 'fallback')),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings table - application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_sessions_exercise_id ON sessions(exercise_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
