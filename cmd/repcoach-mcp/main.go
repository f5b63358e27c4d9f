// repcoach-mcp serves the workout-intelligence tools over MCP stdio.
// It runs in one of two modes: remote (-server URL, data fetched from a
// running RepCoach API) or local (-dsn, data read straight from Postgres).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/server"

	"github.com/claude/repcoach/internal/insights"
	"github.com/claude/repcoach/internal/mcp"
	"github.com/claude/repcoach/internal/overload"
	"github.com/claude/repcoach/internal/resttime"
	"github.com/claude/repcoach/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "RepCoach server URL (e.g. https://repcoach.tail1234.ts.net)")
	dsn := flag.String("dsn", "", "Postgres DSN for local mode (mutually exclusive with -server)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("repcoach-mcp", Version)
		return
	}

	// stdout carries the MCP stdio transport; log to stderr
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if (*serverURL == "") == (*dsn == "") {
		fmt.Fprintf(os.Stderr, "Usage: repcoach-mcp -server <URL> | -dsn <DSN>\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	var ds mcp.DataSource
	if *serverURL != "" {
		ds = mcp.NewHTTPClient(strings.TrimRight(*serverURL, "/"))
		log.Info("repcoach-mcp serving stdio", "mode", "remote", "server", *serverURL)
	} else {
		db, err := storage.New(context.Background(), *dsn)
		if err != nil {
			log.Error("connecting database failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		ds = db
		log.Info("repcoach-mcp serving stdio", "mode", "local")
	}

	resolver := resttime.NewResolver()
	predictor := insights.NewPredictor(resolver, insights.DefaultParams())
	engine := overload.New()

	s := mcp.New(ds, predictor, engine, Version, log)
	if err := server.ServeStdio(s); err != nil {
		log.Error("stdio server error", "error", err)
		os.Exit(1)
	}
}
