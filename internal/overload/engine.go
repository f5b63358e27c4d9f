// Package overload turns last-session per-set outcomes into next-session
// targets, deload signals, and performance comparisons.
package overload

import (
	"fmt"
	"sort"

	"github.com/claude/repcoach/internal/models"
)

// Default set schemes when no prior session exists.
const (
	defaultSets        = 3
	defaultReps        = 10
	highRepSets        = 4
	highRepReps        = 15
	barbellBarWeight   = 45
	dumbbellStartLoad  = 15
	machineStartLoad   = 30
	cableStartLoad     = 20
	deloadFactor       = 0.9
	deloadShortfall    = 3 // reps short of target before a deload triggers
	sessionDeloadTrend = -0.10
	sessionDeloadCut   = 0.20
)

// weightIncrement is the per-muscle-group load step for a successful set.
func weightIncrement(muscleGroup string) float64 {
	switch muscleGroup {
	case models.MuscleChest, models.MuscleBack, models.MuscleLegs:
		return 5
	case models.MuscleShoulders, models.MuscleArms, models.MuscleCalves:
		return 2.5
	case models.MuscleCore:
		return 0
	default:
		return 2.5
	}
}

// Engine is the progressive-overload rule engine. Pure; safe to share.
type Engine struct{}

// New creates an Engine.
func New() *Engine { return &Engine{} }

// SetPlan is a next-session target for one set.
type SetPlan struct {
	SetNumber    int                   `json:"set_number"`
	TargetReps   int                   `json:"target_reps"`
	TargetWeight float64               `json:"target_weight"`
	Basis        models.SuggestionType `json:"basis"`
	Reasoning    string                `json:"reasoning"`
}

// RecommendNextSets produces next-session targets. With no prior session
// it synthesizes defaults from the exercise taxonomy; otherwise each set
// is evaluated independently by its completion ratio.
func (e *Engine) RecommendNextSets(exercise models.Exercise, lastSessionSets []models.Set) []SetPlan {
	if len(lastSessionSets) == 0 {
		return defaultPlan(exercise)
	}

	plans := make([]SetPlan, 0, len(lastSessionSets))
	for _, s := range lastSessionSets {
		plans = append(plans, evaluateSet(exercise, s))
	}
	return plans
}

// defaultPlan synthesizes a first-session scheme: high-rep sets for core
// and calves, 3×10 otherwise; starting load from the equipment type.
func defaultPlan(exercise models.Exercise) []SetPlan {
	sets, reps := defaultSets, defaultReps
	if exercise.MuscleGroup == models.MuscleCore || exercise.MuscleGroup == models.MuscleCalves {
		sets, reps = highRepSets, highRepReps
	}

	var weight float64
	switch exercise.Equipment {
	case models.EquipmentBarbell:
		weight = barbellBarWeight
	case models.EquipmentDumbbell:
		weight = dumbbellStartLoad
	case models.EquipmentMachine:
		weight = machineStartLoad
	case models.EquipmentCable:
		weight = cableStartLoad
	case models.EquipmentBodyweight:
		weight = 0
	}

	plans := make([]SetPlan, sets)
	for i := range plans {
		plans[i] = SetPlan{
			SetNumber:    i + 1,
			TargetReps:   reps,
			TargetWeight: weight,
			Basis:        models.SuggestMaintain,
			Reasoning:    "no prior session; starting defaults for " + exercise.MuscleGroup,
		}
	}
	return plans
}

func evaluateSet(exercise models.Exercise, s models.Set) SetPlan {
	ratio := s.CompletionRatio()
	inc := weightIncrement(exercise.MuscleGroup)
	plan := SetPlan{
		SetNumber:    s.SetNumber,
		TargetReps:   s.TargetReps,
		TargetWeight: s.ActualWeight,
	}

	switch {
	case ratio >= 1.2 || s.ActualReps >= s.TargetReps+2:
		plan.TargetWeight = s.ActualWeight + inc
		plan.Basis = models.SuggestIncreaseWeight
		plan.Reasoning = fmt.Sprintf("beat target by %d reps; add %.1f", s.ActualReps-s.TargetReps, inc)
	case ratio >= 1.0:
		plan.TargetWeight = s.ActualWeight + inc
		plan.Basis = models.SuggestIncreaseWeight
		plan.Reasoning = fmt.Sprintf("hit target; add %.1f", inc)
	case ratio >= 0.8:
		plan.TargetReps = s.TargetReps + 1
		plan.Basis = models.SuggestIncreaseReps
		plan.Reasoning = "close to target; build reps before adding weight"
	case s.TargetReps-s.ActualReps >= deloadShortfall:
		plan.TargetWeight = s.ActualWeight * deloadFactor
		plan.Basis = models.SuggestDeload
		plan.Reasoning = fmt.Sprintf("fell %d reps short; reduce load 10%%", s.TargetReps-s.ActualReps)
	default:
		plan.Basis = models.SuggestMaintain
		plan.Reasoning = "slightly under target; repeat at the same load"
	}
	return plan
}

// SuggestProgression collapses a prior session into one suggestion the
// caller can apply to every set at once. The aggregate completion ratio
// across sets drives the same thresholds as per-set evaluation.
func (e *Engine) SuggestProgression(exercise models.Exercise, lastSessionSets []models.Set) *models.ProgressionSuggestion {
	if len(lastSessionSets) == 0 {
		return nil
	}

	var ratioSum float64
	var totalShort int
	var maxWeight float64
	reps := lastSessionSets[0].TargetReps
	for _, s := range lastSessionSets {
		ratioSum += s.CompletionRatio()
		if short := s.TargetReps - s.ActualReps; short > totalShort {
			totalShort = short
		}
		if s.ActualWeight > maxWeight {
			maxWeight = s.ActualWeight
		}
	}
	ratio := ratioSum / float64(len(lastSessionSets))
	inc := weightIncrement(exercise.MuscleGroup)
	confidence := clamp01(0.4 + 0.1*float64(len(lastSessionSets)))

	switch {
	case ratio >= 1.0:
		w := maxWeight + inc
		return &models.ProgressionSuggestion{
			Type:       models.SuggestIncreaseWeight,
			NewWeight:  &w,
			NewReps:    &reps,
			Confidence: confidence,
			Reasoning:  fmt.Sprintf("all sets at or above target last session; add %.1f", inc),
		}
	case ratio >= 0.8:
		r := reps + 1
		return &models.ProgressionSuggestion{
			Type:       models.SuggestIncreaseReps,
			NewWeight:  &maxWeight,
			NewReps:    &r,
			Confidence: confidence,
			Reasoning:  "close to target last session; add one rep per set",
		}
	case totalShort >= deloadShortfall:
		w := maxWeight * deloadFactor
		return &models.ProgressionSuggestion{
			Type:       models.SuggestDeload,
			NewWeight:  &w,
			NewReps:    &reps,
			Confidence: confidence,
			Reasoning:  "well short of target last session; reduce load 10%",
		}
	default:
		return &models.ProgressionSuggestion{
			Type:       models.SuggestMaintain,
			NewWeight:  &maxWeight,
			NewReps:    &reps,
			Confidence: confidence,
			Reasoning:  "repeat the same load and reps",
		}
	}
}

// DeloadRecommendation advises a planned training-load reduction.
type DeloadRecommendation struct {
	VolumeReduction float64 `json:"volume_reduction"`
	DurationWeeks   int     `json:"duration_weeks"`
	VolumeTrend     float64 `json:"volume_trend"`
	Reasoning       string  `json:"reasoning"`
}

// SuggestDeload inspects the volume trend over the last three sessions and
// recommends a 20%-volume, one-week deload only when the trend has dropped
// at least 10%. Fewer than three sessions yields no recommendation.
func (e *Engine) SuggestDeload(exercise models.Exercise, recentSessions []models.HistoricalPoint) *DeloadRecommendation {
	if len(recentSessions) < 3 {
		return nil
	}

	sorted := make([]models.HistoricalPoint, len(recentSessions))
	copy(sorted, recentSessions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	win := sorted[len(sorted)-3:]

	first := win[0].TotalVolume
	if first <= 0 {
		return nil
	}
	trend := (win[2].TotalVolume - first) / first
	if trend > sessionDeloadTrend {
		return nil
	}

	return &DeloadRecommendation{
		VolumeReduction: sessionDeloadCut,
		DurationWeeks:   1,
		VolumeTrend:     trend,
		Reasoning:       fmt.Sprintf("volume down %.0f%% over the last 3 sessions; back off to recover", -trend*100),
	}
}

// PerformanceAnalysis compares the current session against the previous one.
type PerformanceAnalysis struct {
	VolumeChangePct  float64 `json:"volume_change_pct"`
	StrengthGainPct  float64 `json:"strength_gain_pct"`
	ConsistencyScore float64 `json:"consistency_score"`
	Recommendation   string  `json:"recommendation"`
	Baseline         bool    `json:"baseline"`
}

// AnalyzePerformance is a pure comparison of two set lists. Absent previous
// data yields a neutral baseline-establishing result.
func (e *Engine) AnalyzePerformance(currentSets, previousSets []models.Set) PerformanceAnalysis {
	analysis := PerformanceAnalysis{
		ConsistencyScore: completionScore(currentSets),
	}
	if len(previousSets) == 0 {
		analysis.Baseline = true
		analysis.Recommendation = "first recorded session; establish a baseline before comparing"
		return analysis
	}

	curVol, prevVol := totalVolume(currentSets), totalVolume(previousSets)
	if prevVol > 0 {
		analysis.VolumeChangePct = (curVol - prevVol) / prevVol * 100
	}
	curMax, prevMax := maxActualWeight(currentSets), maxActualWeight(previousSets)
	if prevMax > 0 {
		analysis.StrengthGainPct = (curMax - prevMax) / prevMax * 100
	}

	switch {
	case analysis.VolumeChangePct >= 10:
		analysis.Recommendation = "strong volume increase; keep the current plan"
	case analysis.VolumeChangePct >= 0:
		analysis.Recommendation = "steady progress; continue progressing gradually"
	case analysis.VolumeChangePct >= -10:
		analysis.Recommendation = "volume slightly down; check sleep and recovery"
	default:
		analysis.Recommendation = "volume well down; consider a deload week"
	}
	return analysis
}

func totalVolume(sets []models.Set) float64 {
	var v float64
	for _, s := range sets {
		v += s.Volume()
	}
	return v
}

func maxActualWeight(sets []models.Set) float64 {
	var maxW float64
	for _, s := range sets {
		if s.Completed && s.ActualWeight > maxW {
			maxW = s.ActualWeight
		}
	}
	return maxW
}

func completionScore(sets []models.Set) float64 {
	if len(sets) == 0 {
		return 0
	}
	done := 0
	for _, s := range sets {
		if s.Completed {
			done++
		}
	}
	return float64(done) / float64(len(sets))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
