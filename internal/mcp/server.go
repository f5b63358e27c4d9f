// Package mcp exposes the workout-intelligence engine to LLM assistants
// over the Model Context Protocol.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/claude/repcoach/internal/insights"
	"github.com/claude/repcoach/internal/overload"
)

// New creates an MCP server with all tools and resources registered.
// Predictions run locally over history fetched from the data source, so
// the same binary works against a local store or a remote server.
func New(ds DataSource, predictor *insights.Predictor, engine *overload.Engine, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("RepCoach", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("RepCoach workout intelligence server. Query exercise history and run rule-based predictions: set success probability, progression timelines, optimal rest, and next-session recommendations."),
	)

	h := &handlers{ds: ds, predictor: predictor, engine: engine, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolGetExerciseHistory, Handler: h.getExerciseHistory},
		server.ServerTool{Tool: toolPredictPerformance, Handler: h.predictPerformance},
		server.ServerTool{Tool: toolPredictTimeline, Handler: h.predictTimeline},
		server.ServerTool{Tool: toolPredictRest, Handler: h.predictRest},
		server.ServerTool{Tool: toolRecommendSets, Handler: h.recommendSets},
		server.ServerTool{Tool: toolSuggestDeload, Handler: h.suggestDeload},
		server.ServerTool{Tool: toolAnalyzePerformance, Handler: h.analyzePerformance},
	)

	s.AddResources(
		server.ServerResource{Resource: resExerciseCatalog, Handler: h.exerciseCatalog},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds        DataSource
	predictor *insights.Predictor
	engine    *overload.Engine
	log       *slog.Logger
}

var resExerciseCatalog = mcp.NewResource(
	"repcoach://exercise_catalog",
	"Exercise Catalog",
	mcp.WithResourceDescription("All known exercises with muscle group and equipment taxonomy"),
	mcp.WithMIMEType("application/json"),
)
