package tracking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/overload"
	"github.com/claude/repcoach/internal/resttime"
	"github.com/claude/repcoach/internal/timer"
)

// fakeStore is an in-memory Store with switchable failure injection.
type fakeStore struct {
	exercise  models.Exercise
	instance  *models.ExerciseInstance
	previous  *models.ExerciseInstance
	saveErr   error
	saveCalls int
	saved     []models.Set
}

func (f *fakeStore) Exercise(ctx context.Context, key string) (*models.Exercise, error) {
	if key != f.exercise.Key {
		return nil, errors.New("exercise not found")
	}
	ex := f.exercise
	return &ex, nil
}

func (f *fakeStore) LoadInstance(ctx context.Context, sessionID uuid.UUID, exerciseKey string) (*models.ExerciseInstance, error) {
	cp := *f.instance
	cp.Sets = append([]models.Set(nil), f.instance.Sets...)
	return &cp, nil
}

func (f *fakeStore) SaveSets(ctx context.Context, instanceID uuid.UUID, sets []models.Set) error {
	f.saveCalls++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append([]models.Set(nil), sets...)
	return nil
}

func (f *fakeStore) PreviousSession(ctx context.Context, exerciseKey string, before time.Time) (*models.ExerciseInstance, error) {
	return f.previous, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, store *fakeStore) *Service {
	t.Helper()
	svc := New(store, resttime.NewResolver(), overload.New(), timer.New(), testLogger())
	if err := svc.Load(context.Background(), store.instance.SessionID, store.exercise.Key); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return svc
}

func benchStore(sets ...models.Set) *fakeStore {
	return &fakeStore{
		exercise: models.Exercise{
			Key: "bench-press", Name: "Bench Press",
			MuscleGroup: models.MuscleChest, Equipment: models.EquipmentBarbell,
		},
		instance: &models.ExerciseInstance{
			ID:          uuid.New(),
			SessionID:   uuid.New(),
			ExerciseKey: "bench-press",
			Date:        time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
			Sets:        sets,
		},
	}
}

func threeSets() []models.Set {
	return []models.Set{
		models.NewSet(1, 8, 135),
		models.NewSet(2, 8, 135),
		models.NewSet(3, 8, 135),
	}
}

func TestLoadSetsCursor(t *testing.T) {
	svc := newTestService(t, benchStore(threeSets()...))
	if got := svc.CurrentSetIndex(); got != 0 {
		t.Errorf("current set index = %d, want 0", got)
	}
	if got := len(svc.Sets()); got != 3 {
		t.Errorf("sets = %d, want 3", got)
	}
}

// TestLoadUpconvertsLegacy verifies that an instance stored in the old
// single-value shape expands into one set per declared count.
func TestLoadUpconvertsLegacy(t *testing.T) {
	store := benchStore()
	store.instance.LegacySetCount = 4
	store.instance.LegacyReps = 12
	store.instance.LegacyWeight = 95

	svc := newTestService(t, store)
	sets := svc.Sets()
	if len(sets) != 4 {
		t.Fatalf("sets = %d, want 4 from legacy count", len(sets))
	}
	for i, set := range sets {
		if set.SetNumber != i+1 {
			t.Errorf("set %d number = %d, want %d", i, set.SetNumber, i+1)
		}
		if set.TargetReps != 12 || set.TargetWeight != 95 {
			t.Errorf("set %d targets = %d reps %v lbs, want 12 reps 95 lbs", i, set.TargetReps, set.TargetWeight)
		}
		if set.Completed {
			t.Errorf("set %d upconverted as completed", i)
		}
	}
}

func TestCompleteSetAdvancesAndStartsTimer(t *testing.T) {
	svc := newTestService(t, benchStore(threeSets()...))

	if err := svc.CompleteSet(context.Background(), 0, 135, 8, nil); err != nil {
		t.Fatalf("CompleteSet: %v", err)
	}

	sets := svc.Sets()
	if !sets[0].Completed {
		t.Error("set 0 not marked completed")
	}
	if sets[0].CompletedAt == nil {
		t.Error("completed set missing timestamp")
	}
	if got := svc.CurrentSetIndex(); got != 1 {
		t.Errorf("current set index = %d, want 1", got)
	}
	if got := svc.Timer().State(); got != timer.StateRunning {
		t.Errorf("timer state = %q, want running after a non-final set", got)
	}
	if got := svc.Timer().Remaining(); got != resttime.DefaultGlobalSeconds {
		t.Errorf("timer remaining = %d, want the resolved default %d", got, resttime.DefaultGlobalSeconds)
	}
}

func TestCompleteFinalSetSkipsTimer(t *testing.T) {
	svc := newTestService(t, benchStore(models.NewSet(1, 8, 135)))

	if err := svc.CompleteSet(context.Background(), 0, 135, 8, nil); err != nil {
		t.Fatalf("CompleteSet: %v", err)
	}
	if got := svc.Timer().State(); got != timer.StateIdle {
		t.Errorf("timer state = %q, want idle after the final set", got)
	}
	if got := svc.CurrentSetIndex(); got != 1 {
		t.Errorf("current set index = %d, want set count when all complete", got)
	}
}

func TestCompleteSetUsesSetOverride(t *testing.T) {
	override := 45
	sets := threeSets()
	sets[0].RestTimeOverride = &override

	svc := newTestService(t, benchStore(sets...))
	if err := svc.CompleteSet(context.Background(), 0, 135, 8, nil); err != nil {
		t.Fatalf("CompleteSet: %v", err)
	}
	if got := svc.Timer().Remaining(); got != 45 {
		t.Errorf("timer remaining = %d, want the set override 45", got)
	}
	if got := svc.Timer().Snapshot().Source; got != models.SourceSetSpecific {
		t.Errorf("timer source = %q, want set_specific", got)
	}
}

func TestCompleteSetNeutralizesBadInput(t *testing.T) {
	svc := newTestService(t, benchStore(threeSets()...))
	if err := svc.CompleteSet(context.Background(), 0, -10, 0, nil); err != nil {
		t.Fatalf("CompleteSet: %v", err)
	}
	set := svc.Sets()[0]
	if set.ActualWeight != 135 || set.ActualReps != 8 {
		t.Errorf("actuals = %v lbs × %d, want target values kept for non-positive input",
			set.ActualWeight, set.ActualReps)
	}
}

func TestCompleteSetOutOfRange(t *testing.T) {
	svc := newTestService(t, benchStore(threeSets()...))
	if err := svc.CompleteSet(context.Background(), 7, 135, 8, nil); err == nil {
		t.Error("expected error for out-of-range index")
	}
	if err := svc.CompleteSet(context.Background(), -1, 135, 8, nil); err == nil {
		t.Error("expected error for negative index")
	}
}

func TestUncompleteSetKeepsActuals(t *testing.T) {
	svc := newTestService(t, benchStore(threeSets()...))
	if err := svc.CompleteSet(context.Background(), 0, 140, 7, nil); err != nil {
		t.Fatalf("CompleteSet: %v", err)
	}
	if err := svc.UncompleteSet(context.Background(), 0); err != nil {
		t.Fatalf("UncompleteSet: %v", err)
	}

	set := svc.Sets()[0]
	if set.Completed {
		t.Error("set still completed")
	}
	if set.CompletedAt != nil {
		t.Error("timestamp survived uncomplete")
	}
	if set.ActualWeight != 140 || set.ActualReps != 7 {
		t.Errorf("actuals = %v × %d, want recorded values 140 × 7 kept", set.ActualWeight, set.ActualReps)
	}
	if got := svc.CurrentSetIndex(); got != 0 {
		t.Errorf("current set index = %d, want cursor back at 0", got)
	}
}

func TestAddSetSeedsFromLast(t *testing.T) {
	svc := newTestService(t, benchStore(threeSets()...))
	if err := svc.AddSet(context.Background()); err != nil {
		t.Fatalf("AddSet: %v", err)
	}
	sets := svc.Sets()
	if len(sets) != 4 {
		t.Fatalf("sets = %d, want 4", len(sets))
	}
	added := sets[3]
	if added.SetNumber != 4 || added.TargetReps != 8 || added.TargetWeight != 135 {
		t.Errorf("added set = %+v, want number 4 seeded 8 × 135", added)
	}
}

func TestAddSetEmptyInstanceDefaults(t *testing.T) {
	svc := newTestService(t, benchStore())
	if err := svc.AddSet(context.Background()); err != nil {
		t.Fatalf("AddSet: %v", err)
	}
	added := svc.Sets()[0]
	if added.TargetReps != 10 || added.TargetWeight != 0 {
		t.Errorf("added set = %+v, want default 10 × 0", added)
	}
}

func TestRemoveSetRenumbers(t *testing.T) {
	svc := newTestService(t, benchStore(threeSets()...))
	if err := svc.RemoveSet(context.Background(), 1); err != nil {
		t.Fatalf("RemoveSet: %v", err)
	}
	sets := svc.Sets()
	if len(sets) != 2 {
		t.Fatalf("sets = %d, want 2", len(sets))
	}
	for i, set := range sets {
		if set.SetNumber != i+1 {
			t.Errorf("set %d number = %d, want contiguous renumbering", i, set.SetNumber)
		}
	}
}

func TestSuggestionLifecycle(t *testing.T) {
	store := benchStore(threeSets()...)
	store.previous = &models.ExerciseInstance{
		ExerciseKey: "bench-press",
		Date:        store.instance.Date.AddDate(0, 0, -3),
		Closed:      true,
		Sets: []models.Set{
			{SetNumber: 1, TargetReps: 8, ActualReps: 8, TargetWeight: 130, ActualWeight: 130, Completed: true},
			{SetNumber: 2, TargetReps: 8, ActualReps: 8, TargetWeight: 130, ActualWeight: 130, Completed: true},
		},
	}

	svc := newTestService(t, store)
	// Load fires the fetch asynchronously; force it for determinism.
	svc.RefreshSuggestion(context.Background())

	sug := svc.Suggestion()
	if sug == nil {
		t.Fatal("expected a suggestion from the previous session")
	}
	if sug.Type != models.SuggestIncreaseWeight {
		t.Errorf("suggestion type = %q, want increase_weight", sug.Type)
	}
	if sug.NewWeight == nil || *sug.NewWeight != 135 {
		t.Errorf("suggested weight = %v, want 135", sug.NewWeight)
	}

	if err := svc.ApplySuggestion(context.Background()); err != nil {
		t.Fatalf("ApplySuggestion: %v", err)
	}
	for i, set := range svc.Sets() {
		if set.TargetWeight != 135 {
			t.Errorf("set %d target weight = %v, want 135 applied", i, set.TargetWeight)
		}
	}
	if svc.Suggestion() != nil {
		t.Error("suggestion not cleared after apply")
	}
}

func TestApplySuggestionSkipsCompletedSets(t *testing.T) {
	store := benchStore(threeSets()...)
	store.previous = &models.ExerciseInstance{
		ExerciseKey: "bench-press",
		Date:        store.instance.Date.AddDate(0, 0, -3),
		Sets: []models.Set{
			{SetNumber: 1, TargetReps: 8, ActualReps: 8, TargetWeight: 130, ActualWeight: 130, Completed: true},
		},
	}

	svc := newTestService(t, store)
	if err := svc.CompleteSet(context.Background(), 0, 135, 8, nil); err != nil {
		t.Fatalf("CompleteSet: %v", err)
	}
	svc.RefreshSuggestion(context.Background())
	if err := svc.ApplySuggestion(context.Background()); err != nil {
		t.Fatalf("ApplySuggestion: %v", err)
	}

	sets := svc.Sets()
	if sets[0].ActualWeight != 135 {
		t.Errorf("completed set actual = %v, must not be overwritten", sets[0].ActualWeight)
	}
	if sets[1].TargetWeight == 135 && sets[2].TargetWeight == 135 {
		return
	}
	t.Errorf("incomplete sets = %v / %v, want suggestion applied", sets[1].TargetWeight, sets[2].TargetWeight)
}

func TestDiscardSuggestion(t *testing.T) {
	store := benchStore(threeSets()...)
	store.previous = &models.ExerciseInstance{
		ExerciseKey: "bench-press",
		Date:        store.instance.Date.AddDate(0, 0, -3),
		Sets:        []models.Set{{SetNumber: 1, TargetReps: 8, ActualReps: 8, ActualWeight: 130, Completed: true}},
	}
	svc := newTestService(t, store)
	svc.RefreshSuggestion(context.Background())
	if svc.Suggestion() == nil {
		t.Fatal("expected a suggestion")
	}
	svc.DiscardSuggestion()
	if svc.Suggestion() != nil {
		t.Error("suggestion survived discard")
	}
}

// TestSaveFailureKeepsMemoryAuthoritative verifies the persistence-failure
// contract: the mutation succeeds, the failure is recorded as dirty, and a
// later successful save clears it.
func TestSaveFailureKeepsMemoryAuthoritative(t *testing.T) {
	store := benchStore(threeSets()...)
	store.saveErr = errors.New("connection refused")

	svc := newTestService(t, store)
	if err := svc.CompleteSet(context.Background(), 0, 135, 8, nil); err != nil {
		t.Fatalf("CompleteSet must not surface a store failure: %v", err)
	}
	if !svc.Sets()[0].Completed {
		t.Error("in-memory completion lost after failed save")
	}
	if !svc.Dirty() {
		t.Error("dirty flag not set after failed save")
	}

	store.saveErr = nil
	if err := svc.CompleteSet(context.Background(), 1, 135, 8, nil); err != nil {
		t.Fatalf("CompleteSet: %v", err)
	}
	if svc.Dirty() {
		t.Error("dirty flag not cleared after successful save")
	}
	if len(store.saved) != 3 {
		t.Errorf("saved %d sets, want full list of 3", len(store.saved))
	}
	if !store.saved[0].Completed || !store.saved[1].Completed {
		t.Error("retry did not persist the earlier completion")
	}
}
