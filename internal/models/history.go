package models

import "time"

// HistoricalPoint is one past exercise instance reduced to the aggregates
// the prediction layer consumes.
type HistoricalPoint struct {
	Date           time.Time `json:"date"`
	MaxWeight      float64   `json:"max_weight"`
	TotalVolume    float64   `json:"total_volume"`
	AverageReps    float64   `json:"average_reps"`
	CompletionRate float64   `json:"completion_rate"`
	RestTimes      []int     `json:"rest_times,omitempty"`
}

// NewHistoricalPoint reduces a closed exercise instance to its aggregates.
func NewHistoricalPoint(inst ExerciseInstance) HistoricalPoint {
	p := HistoricalPoint{
		Date:           inst.Date,
		MaxWeight:      inst.MaxWeight(),
		TotalVolume:    inst.TotalVolume(),
		CompletionRate: inst.CompletionRate(),
	}

	completed := 0
	var repSum int
	for _, s := range inst.Sets {
		if s.Completed {
			completed++
			repSum += s.ActualReps
		}
		if s.RestTimeOverride != nil {
			p.RestTimes = append(p.RestTimes, *s.RestTimeOverride)
		}
	}
	if completed > 0 {
		p.AverageReps = float64(repSum) / float64(completed)
	}
	return p
}
