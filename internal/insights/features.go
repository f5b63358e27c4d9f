// Package insights turns historical per-set exercise data into success
// probabilities, progression timelines, and rest-time estimates. The
// pipeline is deliberately rule-based, with named feature extraction and
// thresholded decisions: no trained model, every constant auditable.
package insights

import (
	"sort"
	"time"

	"github.com/claude/repcoach/internal/models"
)

// Features are the aggregate statistics extracted from historical points.
type Features struct {
	SampleCount          int     `json:"sample_count"`
	RecentAvgVolume      float64 `json:"recent_avg_volume"`
	RecentAvgWeight      float64 `json:"recent_avg_weight"`
	RecentAvgReps        float64 `json:"recent_avg_reps"`
	RecentCompletionRate float64 `json:"recent_completion_rate"`
	TrendMultiplier      float64 `json:"trend_multiplier"`
	DaysSinceLastWorkout int     `json:"days_since_last_workout"`
}

// Extract computes features over history, ordered oldest-first. Recent
// averages cover the newest recentWindow points; the trend multiplier
// covers the newest trendWindow points and is 0 when fewer exist.
func Extract(points []models.HistoricalPoint, now time.Time, recentWindow, trendWindow int) Features {
	f := Features{SampleCount: len(points)}
	if len(points) == 0 {
		return f
	}

	sorted := make([]models.HistoricalPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	recent := sorted
	if len(recent) > recentWindow {
		recent = recent[len(recent)-recentWindow:]
	}
	var vol, weight, reps, rate float64
	for _, p := range recent {
		vol += p.TotalVolume
		weight += p.MaxWeight
		reps += p.AverageReps
		rate += p.CompletionRate
	}
	n := float64(len(recent))
	f.RecentAvgVolume = vol / n
	f.RecentAvgWeight = weight / n
	f.RecentAvgReps = reps / n
	f.RecentCompletionRate = rate / n

	if len(sorted) >= trendWindow {
		win := sorted[len(sorted)-trendWindow:]
		first := win[0].TotalVolume
		last := win[len(win)-1].TotalVolume
		if first > 0 {
			f.TrendMultiplier = (last - first) / first
		}
	}

	last := sorted[len(sorted)-1].Date
	if days := int(now.Sub(last).Hours() / 24); days > 0 {
		f.DaysSinceLastWorkout = days
	}
	return f
}
