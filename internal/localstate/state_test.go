package localstate

import (
	"path/filepath"
	"testing"

	"github.com/claude/repcoach/internal/resttime"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	in := resttime.Config{
		GlobalDefaultRestTime: 120,
		ExerciseRestTimes: map[string]int{
			"squat":       180,
			"bench-press": 150,
		},
	}
	if err := db.SaveConfig(in); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	out, err := db.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if out.GlobalDefaultRestTime != 120 {
		t.Errorf("global = %d, want 120", out.GlobalDefaultRestTime)
	}
	if len(out.ExerciseRestTimes) != 2 {
		t.Fatalf("exercise entries = %d, want 2", len(out.ExerciseRestTimes))
	}
	if out.ExerciseRestTimes["squat"] != 180 {
		t.Errorf("squat = %d, want 180", out.ExerciseRestTimes["squat"])
	}
}

func TestSaveReplacesPrevious(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	first := resttime.Config{
		GlobalDefaultRestTime: 90,
		ExerciseRestTimes:     map[string]int{"deadlift": 240},
	}
	if err := db.SaveConfig(first); err != nil {
		t.Fatal(err)
	}
	second := resttime.Config{
		GlobalDefaultRestTime: 100,
		ExerciseRestTimes:     map[string]int{"squat": 180},
	}
	if err := db.SaveConfig(second); err != nil {
		t.Fatal(err)
	}

	out, err := db.LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if out.GlobalDefaultRestTime != 100 {
		t.Errorf("global = %d, want 100", out.GlobalDefaultRestTime)
	}
	if _, ok := out.ExerciseRestTimes["deadlift"]; ok {
		t.Error("stale entry survived a full replace")
	}
	if out.ExerciseRestTimes["squat"] != 180 {
		t.Errorf("squat = %d, want 180", out.ExerciseRestTimes["squat"])
	}
}

func TestSaveSkipsInvalidEntries(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	cfg := resttime.Config{
		ExerciseRestTimes: map[string]int{
			"":      60,
			"squat": -5,
			"row":   90,
		},
	}
	if err := db.SaveConfig(cfg); err != nil {
		t.Fatal(err)
	}

	out, err := db.LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if len(out.ExerciseRestTimes) != 1 {
		t.Errorf("entries = %d, want only the valid one", len(out.ExerciseRestTimes))
	}
	if out.ExerciseRestTimes["row"] != 90 {
		t.Errorf("row = %d, want 90", out.ExerciseRestTimes["row"])
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := db.SaveConfig(resttime.Config{GlobalDefaultRestTime: 75}); err != nil {
		t.Fatalf("SaveConfig on fresh file: %v", err)
	}
	out, err := db.LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if out.GlobalDefaultRestTime != 75 {
		t.Errorf("global = %d, want 75", out.GlobalDefaultRestTime)
	}
}
