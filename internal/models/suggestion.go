package models

import "time"

// RestTimeSource reports which configuration tier supplied a resolved
// rest duration. Display only; it never changes the resolved number.
type RestTimeSource string

const (
	SourceSetSpecific      RestTimeSource = "set_specific"
	SourceExerciseSpecific RestTimeSource = "exercise_specific"
	SourceGlobalDefault    RestTimeSource = "global_default"
)

// AdjustmentType classifies a manual timer adjustment.
type AdjustmentType string

const (
	AdjustmentExtended AdjustmentType = "extended"
	AdjustmentReduced  AdjustmentType = "reduced"
	AdjustmentSkipped  AdjustmentType = "skipped"
)

// TimerAdjustment is one append-only entry in a timer's adjustment history.
// The original/adjusted pair carries enough to reverse the numeric effect
// for a one-step undo; skipped entries are not undoable.
type TimerAdjustment struct {
	Type              AdjustmentType `json:"type"`
	OriginalRemaining int            `json:"original_remaining"`
	AdjustedRemaining int            `json:"adjusted_remaining"`
	Timestamp         time.Time      `json:"timestamp"`
}

// SuggestionType classifies a progression suggestion.
type SuggestionType string

const (
	SuggestIncreaseWeight SuggestionType = "increase_weight"
	SuggestIncreaseReps   SuggestionType = "increase_reps"
	SuggestMaintain       SuggestionType = "maintain"
	SuggestDeload         SuggestionType = "deload"
)

// ProgressionSuggestion is a recommended next-session target derived from
// the prior session's completion ratios.
type ProgressionSuggestion struct {
	Type       SuggestionType `json:"type"`
	NewWeight  *float64       `json:"new_weight,omitempty"`
	NewReps    *int           `json:"new_reps,omitempty"`
	Confidence float64        `json:"confidence"`
	Reasoning  string         `json:"reasoning"`
}
