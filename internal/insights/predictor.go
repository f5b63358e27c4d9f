package insights

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/resttime"
)

// Params are the predictor's tuning constants. Exported so thresholds can
// be inspected and adjusted without touching the scoring code.
type Params struct {
	MinHistory   int // points required before any prediction
	RecentWindow int // points in the recent-average window
	TrendWindow  int // points in the volume-trend window

	TrendWeight   float64 // weight of the trend multiplier in success probability
	WeightPenalty float64 // difficulty slope per unit of weight factor above 1
	RepsPenalty   float64 // difficulty slope per unit of reps factor above 1

	FatigueRestBonus float64 // extra rest seconds per unit of fatigue
	WeightRestBonus  float64 // extra rest seconds per 100 units of load
	MinRestSeconds   int
	MaxRestSeconds   int

	MilestoneDecay  float64 // confidence lost per estimated week
	MinConfidence   float64 // floor for milestone confidence
	TimelineHorizon int     // hard cap on projected weeks
}

// DefaultParams returns the tuned defaults.
func DefaultParams() Params {
	return Params{
		MinHistory:       2,
		RecentWindow:     5,
		TrendWindow:      3,
		TrendWeight:      0.2,
		WeightPenalty:    0.5,
		RepsPenalty:      0.3,
		FatigueRestBonus: 30,
		WeightRestBonus:  15,
		MinRestSeconds:   60,
		MaxRestSeconds:   300,
		MilestoneDecay:   0.05,
		MinConfidence:    0.3,
		TimelineHorizon:  104,
	}
}

// Predictor runs rule-based inference over extracted features.
type Predictor struct {
	params   Params
	resolver *resttime.Resolver
	now      func() time.Time
}

// NewPredictor creates a predictor. The resolver supplies fallback rest
// durations when no set history exists.
func NewPredictor(resolver *resttime.Resolver, params Params) *Predictor {
	return &Predictor{params: params, resolver: resolver, now: time.Now}
}

// Params returns the active tuning constants.
func (p *Predictor) Params() Params { return p.params }

// PerformancePrediction is the outcome estimate for an attempted set.
type PerformancePrediction struct {
	TargetWeight       float64 `json:"target_weight"`
	TargetReps         int     `json:"target_reps"`
	SuccessProbability float64 `json:"success_probability"`
	PredictedReps      int     `json:"predicted_reps"`
	Confidence         float64 `json:"confidence"`
}

// PredictNextPerformance estimates the chance of completing targetReps at
// targetWeight given history. Returns nil, never an error, when history
// has fewer than MinHistory points or the targets are not positive; both
// are expected steady states, not faults.
func (p *Predictor) PredictNextPerformance(points []models.HistoricalPoint, targetWeight float64, targetReps int) *PerformancePrediction {
	if len(points) < p.params.MinHistory || targetWeight <= 0 || targetReps <= 0 {
		return nil
	}

	f := Extract(points, p.now(), p.params.RecentWindow, p.params.TrendWindow)

	// Zero recent averages yield a neutral difficulty factor of 1,
	// never a division by zero.
	weightFactor, repsFactor := 1.0, 1.0
	if f.RecentAvgWeight > 0 {
		weightFactor = targetWeight / f.RecentAvgWeight
	}
	if f.RecentAvgReps > 0 {
		repsFactor = float64(targetReps) / f.RecentAvgReps
	}

	weightAdj := difficultyAdjustment(weightFactor, p.params.WeightPenalty)
	repsAdj := difficultyAdjustment(repsFactor, p.params.RepsPenalty)

	base := f.RecentCompletionRate +
		p.params.TrendWeight*f.TrendMultiplier +
		restAdjustment(f.DaysSinceLastWorkout)
	probability := clamp01(clamp01(base) * weightAdj * repsAdj)

	return &PerformancePrediction{
		TargetWeight:       targetWeight,
		TargetReps:         targetReps,
		SuccessProbability: probability,
		PredictedReps:      int(math.Round(float64(targetReps) * probability)),
		Confidence:         p.confidence(f),
	}
}

// difficultyAdjustment maps a target/recent ratio to a multiplier in
// [0, 1]: at or below recent ability it is neutral, above it the success
// estimate shrinks linearly with slope k.
func difficultyAdjustment(factor, k float64) float64 {
	adj := 1 - (factor-1)*k
	if adj < 0 {
		return 0
	}
	if adj > 1 {
		return 1
	}
	return adj
}

// restAdjustment nudges success probability by recovery state: a short
// gap helps, same-day repeats and long layoffs hurt.
func restAdjustment(days int) float64 {
	switch {
	case days <= 0:
		return -0.10
	case days <= 3:
		return 0.05
	case days <= 7:
		return 0
	case days <= 14:
		return -0.05
	default:
		return -0.15
	}
}

// confidence is the mean of a data-volume score, a completion-rate score,
// and a trend-strength score, each clamped to [0, 1]. A volatile trend
// lowers trust in the estimate.
func (p *Predictor) confidence(f Features) float64 {
	dataScore := clamp01(float64(f.SampleCount) / 10)
	completionScore := clamp01(f.RecentCompletionRate)
	trendScore := clamp01(1 - math.Abs(f.TrendMultiplier))
	return (dataScore + completionScore + trendScore) / 3
}

// Milestone is one step on a projected progression timeline.
type Milestone struct {
	Weight     float64 `json:"weight"`
	Weeks      int     `json:"weeks"`
	Confidence float64 `json:"confidence"`
}

// ProgressionTimeline estimates when a target weight becomes reachable.
type ProgressionTimeline struct {
	EstimatedWeeks int         `json:"estimated_weeks"`
	WeeklyRate     float64     `json:"weekly_rate"`
	Milestones     []Milestone `json:"milestones,omitempty"`
	Confidence     float64     `json:"confidence"`
	Message        string      `json:"message,omitempty"`
}

// PredictProgressionTimeline projects the weeks needed to progress from
// currentWeight to targetWeight at the historical gain rate. Fewer than
// MinHistory points yields nil; a non-positive rate yields a
// zero-confidence, message-only result rather than a failure.
func (p *Predictor) PredictProgressionTimeline(points []models.HistoricalPoint, targetWeight, currentWeight float64) *ProgressionTimeline {
	if len(points) < p.params.MinHistory || targetWeight <= 0 || currentWeight <= 0 {
		return nil
	}
	if targetWeight <= currentWeight {
		return &ProgressionTimeline{
			Message: "target weight already reached",
		}
	}

	rate := weeklyGainRate(points)
	if rate <= 0 {
		return &ProgressionTimeline{
			Message: "no recent weight progression to project from",
		}
	}

	weeks := int(math.Ceil((targetWeight - currentWeight) / rate))
	tl := &ProgressionTimeline{
		EstimatedWeeks: weeks,
		WeeklyRate:     rate,
		Confidence:     p.milestoneConfidence(weeks),
	}

	w := currentWeight
	for step := 1; step <= p.params.TimelineHorizon; step++ {
		w += rate
		if w >= targetWeight {
			w = targetWeight
		}
		tl.Milestones = append(tl.Milestones, Milestone{
			Weight:     w,
			Weeks:      step,
			Confidence: p.milestoneConfidence(step),
		})
		if w == targetWeight {
			break
		}
	}
	return tl
}

// weeklyGainRate is total positive max-weight gain divided by the weeks in
// which a gain occurred; zero-gain stretches do not dilute the denominator.
func weeklyGainRate(points []models.HistoricalPoint) float64 {
	sorted := make([]models.HistoricalPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	var totalGain float64
	var gainWeeks float64
	for i := 1; i < len(sorted); i++ {
		gain := sorted[i].MaxWeight - sorted[i-1].MaxWeight
		if gain <= 0 {
			continue
		}
		totalGain += gain
		weeks := sorted[i].Date.Sub(sorted[i-1].Date).Hours() / 24 / 7
		if weeks < 1 {
			weeks = 1
		}
		gainWeeks += math.Ceil(weeks)
	}
	if gainWeeks == 0 {
		return 0
	}
	return totalGain / gainWeeks
}

// milestoneConfidence decays linearly with distance-in-weeks, floored at
// MinConfidence.
func (p *Predictor) milestoneConfidence(weeks int) float64 {
	c := 1 - float64(weeks)*p.params.MilestoneDecay
	if c < p.params.MinConfidence {
		return p.params.MinConfidence
	}
	return c
}

// RestRecommendation is an optimal-rest estimate for the upcoming set.
type RestRecommendation struct {
	Seconds    int     `json:"seconds"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// PredictOptimalRestTime estimates rest before currentSet from intra-session
// fatigue. With no previous sets it falls back to the resolver's duration
// at confidence 0.5.
func (p *Predictor) PredictOptimalRestTime(exercise models.Exercise, currentSet models.Set, previousSets []models.Set) RestRecommendation {
	if len(previousSets) == 0 {
		return RestRecommendation{
			Seconds:    p.resolver.Resolve(&currentSet, exercise.Key),
			Confidence: 0.5,
			Reasoning:  "no sets completed yet; using configured rest time",
		}
	}

	first := previousSets[0].CompletionRatio()
	last := previousSets[len(previousSets)-1].CompletionRatio()
	var fatigue float64
	if first > 0 {
		fatigue = (first - last) / first
		if fatigue < 0 {
			fatigue = 0
		}
	}

	seconds := float64(baseRestSeconds(exercise.MuscleGroup)) +
		fatigue*p.params.FatigueRestBonus +
		currentSet.TargetWeight/100*p.params.WeightRestBonus
	clamped := int(math.Round(seconds))
	if clamped < p.params.MinRestSeconds {
		clamped = p.params.MinRestSeconds
	}
	if clamped > p.params.MaxRestSeconds {
		clamped = p.params.MaxRestSeconds
	}

	confidence := clamp01(0.5 + 0.1*float64(len(previousSets)))
	if confidence > 0.9 {
		confidence = 0.9
	}
	return RestRecommendation{
		Seconds:    clamped,
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("fatigue level %.2f across %d sets", fatigue, len(previousSets)),
	}
}

// baseRestSeconds is the muscle-group baseline: big compound movers need
// longer recovery between sets than isolation work.
func baseRestSeconds(muscleGroup string) int {
	switch muscleGroup {
	case models.MuscleLegs, models.MuscleBack:
		return 180
	case models.MuscleChest:
		return 150
	case models.MuscleShoulders:
		return 120
	case models.MuscleArms:
		return 90
	case models.MuscleCore, models.MuscleCalves:
		return 60
	default:
		return 90
	}
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
