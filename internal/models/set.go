package models

import (
	"time"

	"github.com/google/uuid"
)

// Set is one planned/performed unit of an exercise within a session.
// Actual values are seeded from the targets and only become meaningful
// once Completed is set.
type Set struct {
	ID               uuid.UUID  `json:"id"`
	SetNumber        int        `json:"set_number"`
	TargetReps       int        `json:"target_reps"`
	TargetWeight     float64    `json:"target_weight"`
	ActualReps       int        `json:"actual_reps"`
	ActualWeight     float64    `json:"actual_weight"`
	Completed        bool       `json:"completed"`
	RestTimeOverride *int       `json:"rest_time_override,omitempty"`
	RPE              *float64   `json:"rpe,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// NewSet creates a set with actuals seeded from the targets.
func NewSet(number, targetReps int, targetWeight float64) Set {
	return Set{
		ID:           uuid.New(),
		SetNumber:    number,
		TargetReps:   targetReps,
		TargetWeight: targetWeight,
		ActualReps:   targetReps,
		ActualWeight: targetWeight,
	}
}

// Volume returns actual reps × actual weight. Zero until the set is completed.
func (s Set) Volume() float64 {
	if !s.Completed {
		return 0
	}
	return float64(s.ActualReps) * s.ActualWeight
}

// CompletionRatio returns actual reps over target reps. A non-positive
// target counts as fully met so bad input never divides by zero.
func (s Set) CompletionRatio() float64 {
	if s.TargetReps <= 0 {
		return 1
	}
	return float64(s.ActualReps) / float64(s.TargetReps)
}

// ExerciseInstance is the ordered set list for one exercise within one session.
// Legacy fields carry the old single-value representation; the tracking layer
// upconverts them into Sets on load.
type ExerciseInstance struct {
	ID          uuid.UUID `json:"id"`
	SessionID   uuid.UUID `json:"session_id"`
	ExerciseKey string    `json:"exercise_key"`
	Date        time.Time `json:"date"`
	Closed      bool      `json:"closed"`
	Sets        []Set     `json:"sets"`

	LegacySetCount int     `json:"legacy_set_count,omitempty"`
	LegacyReps     int     `json:"legacy_reps,omitempty"`
	LegacyWeight   float64 `json:"legacy_weight,omitempty"`
}

// TotalVolume sums the volume of all completed sets.
func (e ExerciseInstance) TotalVolume() float64 {
	var total float64
	for _, s := range e.Sets {
		total += s.Volume()
	}
	return total
}

// CompletionRate is the fraction of sets marked completed.
func (e ExerciseInstance) CompletionRate() float64 {
	if len(e.Sets) == 0 {
		return 0
	}
	done := 0
	for _, s := range e.Sets {
		if s.Completed {
			done++
		}
	}
	return float64(done) / float64(len(e.Sets))
}

// MaxWeight returns the heaviest actual weight across completed sets.
func (e ExerciseInstance) MaxWeight() float64 {
	var maxW float64
	for _, s := range e.Sets {
		if s.Completed && s.ActualWeight > maxW {
			maxW = s.ActualWeight
		}
	}
	return maxW
}
