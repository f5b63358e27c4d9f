package storage

import (
	"context"
	"fmt"

	"github.com/claude/repcoach/internal/resttime"
)

// globalRestKey is the reserved rest_settings row for the global default.
const globalRestKey = "_global"

// LoadRestConfig reads the persisted rest-time table.
func (db *DB) LoadRestConfig(ctx context.Context) (resttime.Config, error) {
	cfg := resttime.Config{ExerciseRestTimes: make(map[string]int)}

	rows, err := db.Pool.Query(ctx, `SELECT key, seconds FROM rest_settings`)
	if err != nil {
		return cfg, fmt.Errorf("querying rest settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var seconds int
		if err := rows.Scan(&key, &seconds); err != nil {
			return cfg, fmt.Errorf("scanning rest setting: %w", err)
		}
		if key == globalRestKey {
			cfg.GlobalDefaultRestTime = seconds
			continue
		}
		cfg.ExerciseRestTimes[key] = seconds
	}
	return cfg, rows.Err()
}

// SaveRestConfig replaces the persisted rest-time table with cfg.
func (db *DB) SaveRestConfig(ctx context.Context, cfg resttime.Config) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning rest config save: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM rest_settings`); err != nil {
		return fmt.Errorf("clearing rest settings: %w", err)
	}

	upsert := `INSERT INTO rest_settings (key, seconds) VALUES ($1, $2)`
	if cfg.GlobalDefaultRestTime > 0 {
		if _, err := tx.Exec(ctx, upsert, globalRestKey, cfg.GlobalDefaultRestTime); err != nil {
			return fmt.Errorf("saving global rest default: %w", err)
		}
	}
	for key, seconds := range cfg.ExerciseRestTimes {
		if key == "" || seconds <= 0 {
			continue
		}
		if _, err := tx.Exec(ctx, upsert, key, seconds); err != nil {
			return fmt.Errorf("saving rest setting %s: %w", key, err)
		}
	}

	return tx.Commit(ctx)
}
