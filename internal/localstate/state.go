// Package localstate persists rest-time configuration on disk for the
// offline timer CLI, using a small SQLite database.
package localstate

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/claude/repcoach/internal/resttime"
)

// globalKey is the reserved row for the global default.
const globalKey = "_global"

// DB is the local settings database.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the settings database at dir/repcoach.db.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}
	return open(filepath.Join(dir, "repcoach.db"))
}

// OpenMemory creates an in-memory database for testing.
func OpenMemory() (*DB, error) {
	return open(":memory:")
}

func open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS rest_settings (
		key     TEXT PRIMARY KEY,
		seconds INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating settings table: %w", err)
	}
	return &DB{db: db}, nil
}

// LoadConfig reads the persisted rest-time table.
func (s *DB) LoadConfig() (resttime.Config, error) {
	cfg := resttime.Config{ExerciseRestTimes: make(map[string]int)}

	rows, err := s.db.Query(`SELECT key, seconds FROM rest_settings`)
	if err != nil {
		return cfg, fmt.Errorf("reading rest settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var seconds int
		if err := rows.Scan(&key, &seconds); err != nil {
			return cfg, fmt.Errorf("scanning rest setting: %w", err)
		}
		if key == globalKey {
			cfg.GlobalDefaultRestTime = seconds
			continue
		}
		cfg.ExerciseRestTimes[key] = seconds
	}
	return cfg, rows.Err()
}

// SaveConfig replaces the persisted rest-time table.
func (s *DB) SaveConfig(cfg resttime.Config) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM rest_settings`); err != nil {
		return fmt.Errorf("clearing rest settings: %w", err)
	}

	insert := `INSERT OR REPLACE INTO rest_settings (key, seconds) VALUES (?, ?)`
	if cfg.GlobalDefaultRestTime > 0 {
		if _, err := tx.Exec(insert, globalKey, cfg.GlobalDefaultRestTime); err != nil {
			return fmt.Errorf("saving global default: %w", err)
		}
	}
	for key, seconds := range cfg.ExerciseRestTimes {
		if key == "" || seconds <= 0 {
			continue
		}
		if _, err := tx.Exec(insert, key, seconds); err != nil {
			return fmt.Errorf("saving rest setting %s: %w", key, err)
		}
	}

	return tx.Commit()
}

// Close closes the database.
func (s *DB) Close() error {
	return s.db.Close()
}

// DefaultStateDir returns ~/.config/repcoach.
func DefaultStateDir() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "repcoach"), nil
}
