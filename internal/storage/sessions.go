package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/claude/repcoach/internal/models"
)

// LoadInstance fetches the exercise instance for a session, with its set
// list ordered by set number. A session/exercise pair without an instance
// row gets one created, so starting an exercise is a single call.
func (db *DB) LoadInstance(ctx context.Context, sessionID uuid.UUID, exerciseKey string) (*models.ExerciseInstance, error) {
	inst := &models.ExerciseInstance{SessionID: sessionID, ExerciseKey: exerciseKey}

	err := db.Pool.QueryRow(ctx,
		`SELECT id, session_date, closed, legacy_set_count, legacy_reps, legacy_weight
		 FROM exercise_instances
		 WHERE session_id = $1 AND exercise_key = $2`,
		sessionID, exerciseKey,
	).Scan(&inst.ID, &inst.Date, &inst.Closed, &inst.LegacySetCount, &inst.LegacyReps, &inst.LegacyWeight)
	if errors.Is(err, pgx.ErrNoRows) {
		inst.ID = uuid.New()
		inst.Date = time.Now()
		_, err = db.Pool.Exec(ctx,
			`INSERT INTO exercise_instances (id, session_id, exercise_key, session_date)
			 VALUES ($1, $2, $3, $4)`,
			inst.ID, sessionID, exerciseKey, inst.Date)
		if err != nil {
			return nil, fmt.Errorf("creating instance: %w", err)
		}
		return inst, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying instance: %w", err)
	}

	inst.Sets, err = db.loadSets(ctx, inst.ID)
	if err != nil {
		return nil, err
	}
	return inst, nil
}

func (db *DB) loadSets(ctx context.Context, instanceID uuid.UUID) ([]models.Set, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, set_number, target_reps, target_weight, actual_reps, actual_weight,
		        completed, rest_override, rpe, notes, completed_at
		 FROM exercise_sets
		 WHERE instance_id = $1
		 ORDER BY set_number`,
		instanceID)
	if err != nil {
		return nil, fmt.Errorf("querying sets: %w", err)
	}
	defer rows.Close()

	var sets []models.Set
	for rows.Next() {
		var s models.Set
		if err := rows.Scan(&s.ID, &s.SetNumber, &s.TargetReps, &s.TargetWeight,
			&s.ActualReps, &s.ActualWeight, &s.Completed, &s.RestTimeOverride,
			&s.RPE, &s.Notes, &s.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning set: %w", err)
		}
		sets = append(sets, s)
	}
	return sets, rows.Err()
}

// SaveSets replaces an instance's set list in one transaction.
func (db *DB) SaveSets(ctx context.Context, instanceID uuid.UUID, sets []models.Set) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning save: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM exercise_sets WHERE instance_id = $1`, instanceID); err != nil {
		return fmt.Errorf("clearing sets: %w", err)
	}

	if len(sets) > 0 {
		query := `INSERT INTO exercise_sets (id, instance_id, set_number, target_reps,
			target_weight, actual_reps, actual_weight, completed, rest_override,
			rpe, notes, completed_at) VALUES `
		args := make([]any, 0, len(sets)*12)
		values := make([]string, 0, len(sets))
		for i, s := range sets {
			base := i * 12
			values = append(values, fmt.Sprintf(
				"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6,
				base+7, base+8, base+9, base+10, base+11, base+12))
			args = append(args, s.ID, instanceID, s.SetNumber, s.TargetReps,
				s.TargetWeight, s.ActualReps, s.ActualWeight, s.Completed,
				s.RestTimeOverride, s.RPE, s.Notes, s.CompletedAt)
		}
		if _, err := tx.Exec(ctx, query+strings.Join(values, ","), args...); err != nil {
			return fmt.Errorf("inserting sets: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// SessionsForExercise returns all closed instances of an exercise sorted by
// date ascending, each with its set list.
func (db *DB) SessionsForExercise(ctx context.Context, exerciseKey string, limit int) ([]models.ExerciseInstance, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, session_id, session_date, closed, legacy_set_count, legacy_reps, legacy_weight
		 FROM exercise_instances
		 WHERE exercise_key = $1 AND closed
		 ORDER BY session_date DESC
		 LIMIT $2`,
		exerciseKey, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var result []models.ExerciseInstance
	for rows.Next() {
		inst := models.ExerciseInstance{ExerciseKey: exerciseKey}
		if err := rows.Scan(&inst.ID, &inst.SessionID, &inst.Date, &inst.Closed,
			&inst.LegacySetCount, &inst.LegacyReps, &inst.LegacyWeight); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		result = append(result, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		result[i].Sets, err = db.loadSets(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
	}

	// oldest first for the feature extractor
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result, nil
}

// PreviousSession returns the most recent closed instance of an exercise
// strictly before the given date, or nil when none exists.
func (db *DB) PreviousSession(ctx context.Context, exerciseKey string, before time.Time) (*models.ExerciseInstance, error) {
	inst := models.ExerciseInstance{ExerciseKey: exerciseKey}
	err := db.Pool.QueryRow(ctx,
		`SELECT id, session_id, session_date, closed, legacy_set_count, legacy_reps, legacy_weight
		 FROM exercise_instances
		 WHERE exercise_key = $1 AND closed AND session_date < $2
		 ORDER BY session_date DESC
		 LIMIT 1`,
		exerciseKey, before,
	).Scan(&inst.ID, &inst.SessionID, &inst.Date, &inst.Closed,
		&inst.LegacySetCount, &inst.LegacyReps, &inst.LegacyWeight)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying previous session: %w", err)
	}

	inst.Sets, err = db.loadSets(ctx, inst.ID)
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// CloseInstance marks an instance immutable history.
func (db *DB) CloseInstance(ctx context.Context, instanceID uuid.UUID) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE exercise_instances SET closed = TRUE WHERE id = $1`, instanceID)
	if err != nil {
		return fmt.Errorf("closing instance: %w", err)
	}
	return nil
}

// History reduces an exercise's closed sessions to historical points,
// oldest first.
func (db *DB) History(ctx context.Context, exerciseKey string, limit int) ([]models.HistoricalPoint, error) {
	sessions, err := db.SessionsForExercise(ctx, exerciseKey, limit)
	if err != nil {
		return nil, err
	}
	points := make([]models.HistoricalPoint, 0, len(sessions))
	for _, s := range sessions {
		points = append(points, models.NewHistoricalPoint(s))
	}
	return points, nil
}
