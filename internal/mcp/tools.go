package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/repcoach/internal/models"
)

// historyLimit caps the points fed into the predictors per tool call.
const historyLimit = 50

// --- Tool definitions ---

var toolGetExerciseHistory = mcp.NewTool("get_exercise_history",
	mcp.WithDescription("Per-session history for an exercise: max weight, total volume, average reps, completion rate. Oldest first."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise key (e.g. bench-press)")),
)

var toolPredictPerformance = mcp.NewTool("predict_next_performance",
	mcp.WithDescription("Estimate the probability of completing a target set from history. Returns null when fewer than 2 historical sessions exist."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise key")),
	mcp.WithNumber("target_weight", mcp.Required(), mcp.Description("Planned weight")),
	mcp.WithNumber("target_reps", mcp.Required(), mcp.Description("Planned reps")),
)

var toolPredictTimeline = mcp.NewTool("predict_progression_timeline",
	mcp.WithDescription("Project the weeks needed to reach a target weight at the historical gain rate, with weekly milestones."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise key")),
	mcp.WithNumber("target_weight", mcp.Required(), mcp.Description("Goal weight")),
	mcp.WithNumber("current_weight", mcp.Required(), mcp.Description("Current working weight")),
)

var toolPredictRest = mcp.NewTool("predict_optimal_rest",
	mcp.WithDescription("Estimate the optimal rest before the next set from last-session fatigue and the planned load. Clamped to 60-300 seconds."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise key")),
	mcp.WithNumber("target_weight", mcp.Description("Planned weight for the upcoming set")),
	mcp.WithNumber("target_reps", mcp.Description("Planned reps for the upcoming set")),
)

var toolRecommendSets = mcp.NewTool("recommend_next_sets",
	mcp.WithDescription("Next-session set targets from the last session's per-set outcomes, or taxonomy defaults when no prior session exists."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise key")),
)

var toolSuggestDeload = mcp.NewTool("suggest_deload",
	mcp.WithDescription("Check the last three sessions' volume trend and recommend a deload week when volume has dropped at least 10%."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise key")),
)

var toolAnalyzePerformance = mcp.NewTool("analyze_performance",
	mcp.WithDescription("Compare the two most recent sessions of an exercise: volume change, strength gain, consistency, and a recommendation."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise key")),
)

// --- Tool handlers ---

func (h *handlers) getExerciseHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}

	points, err := h.ds.History(ctx, key, historyLimit)
	if err != nil {
		h.log.Error("mcp get_exercise_history", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(points)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) predictPerformance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}
	weight := req.GetFloat("target_weight", 0)
	reps := req.GetInt("target_reps", 0)

	points, err := h.ds.History(ctx, key, historyLimit)
	if err != nil {
		h.log.Error("mcp predict_next_performance", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	prediction := h.predictor.PredictNextPerformance(points, weight, reps)
	if prediction == nil {
		return mcp.NewToolResultText("not enough data yet: at least 2 historical sessions and positive targets are required"), nil
	}

	result, err := mcp.NewToolResultJSON(prediction)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) predictTimeline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}
	target := req.GetFloat("target_weight", 0)
	current := req.GetFloat("current_weight", 0)

	points, err := h.ds.History(ctx, key, historyLimit)
	if err != nil {
		h.log.Error("mcp predict_progression_timeline", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	timeline := h.predictor.PredictProgressionTimeline(points, target, current)
	if timeline == nil {
		return mcp.NewToolResultText("not enough data yet: at least 2 historical sessions and positive weights are required"), nil
	}

	result, err := mcp.NewToolResultJSON(timeline)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) predictRest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}

	ex, err := h.ds.Exercise(ctx, key)
	if err != nil {
		h.log.Error("mcp predict_optimal_rest", "error", err)
		return mcp.NewToolResultError("unknown exercise: " + key), nil
	}

	// With no live session to read, last-session fatigue is the best proxy.
	prev, err := h.ds.PreviousSession(ctx, key, time.Now())
	if err != nil {
		h.log.Error("mcp predict_optimal_rest", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	var prevSets []models.Set
	if prev != nil {
		for _, s := range prev.Sets {
			if s.Completed {
				prevSets = append(prevSets, s)
			}
		}
	}

	next := models.Set{
		TargetWeight: req.GetFloat("target_weight", 0),
		TargetReps:   req.GetInt("target_reps", 0),
	}
	result, err := mcp.NewToolResultJSON(h.predictor.PredictOptimalRestTime(*ex, next, prevSets))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) recommendSets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}

	ex, err := h.ds.Exercise(ctx, key)
	if err != nil {
		h.log.Error("mcp recommend_next_sets", "error", err)
		return mcp.NewToolResultError("unknown exercise: " + key), nil
	}

	prev, err := h.ds.PreviousSession(ctx, key, time.Now())
	if err != nil {
		h.log.Error("mcp recommend_next_sets", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	var lastSets []models.Set
	if prev != nil {
		lastSets = prev.Sets
	}

	result, err := mcp.NewToolResultJSON(h.engine.RecommendNextSets(*ex, lastSets))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) suggestDeload(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}

	ex, err := h.ds.Exercise(ctx, key)
	if err != nil {
		return mcp.NewToolResultError("unknown exercise: " + key), nil
	}
	points, err := h.ds.History(ctx, key, historyLimit)
	if err != nil {
		h.log.Error("mcp suggest_deload", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	rec := h.engine.SuggestDeload(*ex, points)
	if rec == nil {
		return mcp.NewToolResultText("no deload indicated: volume trend is healthy or fewer than 3 sessions recorded"), nil
	}

	result, err := mcp.NewToolResultJSON(rec)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) analyzePerformance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}

	latest, err := h.ds.PreviousSession(ctx, key, time.Now())
	if err != nil {
		h.log.Error("mcp analyze_performance", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if latest == nil {
		return mcp.NewToolResultText("no recorded sessions for " + key), nil
	}

	previous, err := h.ds.PreviousSession(ctx, key, latest.Date)
	if err != nil {
		h.log.Error("mcp analyze_performance", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	var prevSets []models.Set
	if previous != nil {
		prevSets = previous.Sets
	}

	result, err := mcp.NewToolResultJSON(h.engine.AnalyzePerformance(latest.Sets, prevSets))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
