// repcoach-timer is a local rest-timer CLI. It resolves the rest duration
// from the persisted configuration, counts down in the terminal, and lets
// the user skip early with an interrupt.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/claude/repcoach/internal/localstate"
	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/resttime"
	"github.com/claude/repcoach/internal/timer"
)

func main() {
	exercise := flag.String("exercise", "", "exercise key to resolve the rest time for")
	seconds := flag.Int("seconds", 0, "explicit rest duration, overrides the resolved value")
	stateDir := flag.String("state-dir", "", "state directory (default ~/.config/repcoach)")
	setGlobal := flag.Int("set-global", 0, "persist a new global default rest time and exit")
	setExercise := flag.String("set-exercise", "", "persist a rest time for KEY=SECONDS and exit")
	show := flag.Bool("show", false, "print the current rest-time configuration and exit")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	dir := *stateDir
	if dir == "" {
		var err error
		dir, err = localstate.DefaultStateDir()
		if err != nil {
			fatal("resolving state dir: %v", err)
		}
	}
	state, err := localstate.Open(dir)
	if err != nil {
		fatal("opening state: %v", err)
	}
	defer func() { _ = state.Close() }()

	resolver := resttime.NewResolver()
	cfg, err := state.LoadConfig()
	if err != nil {
		fatal("loading config: %v", err)
	}
	resolver.Import(cfg)

	switch {
	case *setGlobal > 0:
		resolver.SetGlobalDefault(*setGlobal)
		persist(state, resolver)
		fmt.Printf("global default rest time set to %ds\n", *setGlobal)
		return
	case *setExercise != "":
		key, secs, err := parseKeyValue(*setExercise)
		if err != nil {
			fatal("%v", err)
		}
		resolver.SetExerciseDefault(key, secs)
		persist(state, resolver)
		if secs > 0 {
			fmt.Printf("rest time for %s set to %ds\n", key, secs)
		} else {
			fmt.Printf("rest time for %s cleared\n", key)
		}
		return
	case *show:
		out := resolver.Export()
		fmt.Printf("global default: %ds\n", out.GlobalDefaultRestTime)
		for key, secs := range out.ExerciseRestTimes {
			fmt.Printf("  %s: %ds\n", key, secs)
		}
		return
	}

	duration := *seconds
	source := models.SourceGlobalDefault
	if duration <= 0 {
		duration = resolver.Resolve(nil, *exercise)
		source = resolver.Source(nil, *exercise)
	}

	runCountdown(duration, source, log)
}

func runCountdown(seconds int, source models.RestTimeSource, log *slog.Logger) {
	t := timer.New(timer.WithAlertScheduler(timer.LogAlertScheduler{Log: log}))
	t.Start(seconds, source, false)
	fmt.Printf("resting %s (%s)\n", timer.FormatSeconds(seconds), source)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-quit:
			t.Skip()
			fmt.Println("\nskipped")
			return
		case <-ticker.C:
			t.Tick()
			snap := t.Snapshot()
			fmt.Printf("\r%s ", snap.Display)
			if snap.State == timer.StateCompleted {
				fmt.Println("\rrest complete")
				return
			}
		}
	}
}

func persist(state *localstate.DB, resolver *resttime.Resolver) {
	if err := state.SaveConfig(resolver.Export()); err != nil {
		fatal("saving config: %v", err)
	}
}

func parseKeyValue(s string) (string, int, error) {
	key, val, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return "", 0, fmt.Errorf("invalid -set-exercise value %q, want KEY=SECONDS", s)
	}
	secs, err := strconv.Atoi(val)
	if err != nil {
		return "", 0, fmt.Errorf("invalid seconds in %q: %w", s, err)
	}
	return key, secs, nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
