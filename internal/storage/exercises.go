package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/claude/repcoach/internal/models"
)

// ErrNotFound marks a missing row.
var ErrNotFound = errors.New("not found")

// Exercise reads one taxonomy record by key.
func (db *DB) Exercise(ctx context.Context, key string) (*models.Exercise, error) {
	var ex models.Exercise
	err := db.Pool.QueryRow(ctx,
		`SELECT key, name, muscle_group, equipment FROM exercises WHERE key = $1`,
		key,
	).Scan(&ex.Key, &ex.Name, &ex.MuscleGroup, &ex.Equipment)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("exercise %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying exercise %s: %w", key, err)
	}
	return &ex, nil
}

// ListExercises returns the full taxonomy ordered by name.
func (db *DB) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT key, name, muscle_group, equipment FROM exercises ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing exercises: %w", err)
	}
	defer rows.Close()

	var result []models.Exercise
	for rows.Next() {
		var ex models.Exercise
		if err := rows.Scan(&ex.Key, &ex.Name, &ex.MuscleGroup, &ex.Equipment); err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		result = append(result, ex)
	}
	return result, rows.Err()
}

// UpsertExercise inserts or updates a taxonomy record.
func (db *DB) UpsertExercise(ctx context.Context, ex models.Exercise) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO exercises (key, name, muscle_group, equipment)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (key) DO UPDATE SET
		   name = EXCLUDED.name,
		   muscle_group = EXCLUDED.muscle_group,
		   equipment = EXCLUDED.equipment`,
		ex.Key, ex.Name, ex.MuscleGroup, ex.Equipment)
	if err != nil {
		return fmt.Errorf("upserting exercise %s: %w", ex.Key, err)
	}
	return nil
}
