// Package tracking orchestrates an active exercise instance: its set list,
// the rest timer between sets, and the progression suggestion sourced from
// the prior session.
package tracking

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/overload"
	"github.com/claude/repcoach/internal/resttime"
	"github.com/claude/repcoach/internal/timer"
)

// Store is the slice of the object store the tracker needs. Reads are
// safe to run asynchronously; writes happen only from the owning service.
type Store interface {
	Exercise(ctx context.Context, key string) (*models.Exercise, error)
	LoadInstance(ctx context.Context, sessionID uuid.UUID, exerciseKey string) (*models.ExerciseInstance, error)
	SaveSets(ctx context.Context, instanceID uuid.UUID, sets []models.Set) error
	PreviousSession(ctx context.Context, exerciseKey string, before time.Time) (*models.ExerciseInstance, error)
}

// Service owns one active exercise instance. Single-owner: all mutation of
// the set list and timer goes through it; two services never share state.
type Service struct {
	store    Store
	resolver *resttime.Resolver
	engine   *overload.Engine
	timer    *timer.Timer
	log      *slog.Logger
	now      func() time.Time

	mu              sync.Mutex
	exercise        models.Exercise
	instance        *models.ExerciseInstance
	currentSetIndex int
	suggestion      *models.ProgressionSuggestion
	dirty           bool // in-memory ahead of the store after a failed save
}

// New creates a service around its collaborators. The timer may be shared
// with a Run driver; the service only issues commands to it.
func New(store Store, resolver *resttime.Resolver, engine *overload.Engine, tmr *timer.Timer, log *slog.Logger) *Service {
	return &Service{
		store:    store,
		resolver: resolver,
		engine:   engine,
		timer:    tmr,
		log:      log,
		now:      time.Now,
	}
}

// Timer exposes the rest timer for command routing and observation.
func (s *Service) Timer() *timer.Timer { return s.timer }

// Load fetches the instance's sets, upconverting legacy single-value
// exercises into one set per declared count, and kicks off the async
// previous-session suggestion fetch.
func (s *Service) Load(ctx context.Context, sessionID uuid.UUID, exerciseKey string) error {
	ex, err := s.store.Exercise(ctx, exerciseKey)
	if err != nil {
		return fmt.Errorf("loading exercise %s: %w", exerciseKey, err)
	}

	inst, err := s.store.LoadInstance(ctx, sessionID, exerciseKey)
	if err != nil {
		return fmt.Errorf("loading instance for %s: %w", exerciseKey, err)
	}

	if len(inst.Sets) == 0 && inst.LegacySetCount > 0 {
		inst.Sets = upconvertLegacy(inst)
	}

	s.mu.Lock()
	s.exercise = *ex
	s.instance = inst
	s.currentSetIndex = firstIncomplete(inst.Sets)
	s.suggestion = nil
	s.mu.Unlock()

	go s.refreshSuggestion(context.WithoutCancel(ctx))
	return nil
}

// upconvertLegacy expands the old single-value representation into an
// ordered set list.
func upconvertLegacy(inst *models.ExerciseInstance) []models.Set {
	sets := make([]models.Set, inst.LegacySetCount)
	for i := range sets {
		sets[i] = models.NewSet(i+1, inst.LegacyReps, inst.LegacyWeight)
	}
	return sets
}

// refreshSuggestion fetches the most recent strictly-earlier session with
// the same exercise and derives one progression suggestion from it.
// Exposed for synchronous use in tests and the HTTP refresh route.
func (s *Service) refreshSuggestion(ctx context.Context) {
	s.mu.Lock()
	if s.instance == nil {
		s.mu.Unlock()
		return
	}
	key := s.instance.ExerciseKey
	date := s.instance.Date
	ex := s.exercise
	s.mu.Unlock()

	prev, err := s.store.PreviousSession(ctx, key, date)
	if err != nil {
		s.log.Error("previous session lookup failed", "exercise", key, "error", err)
		return
	}
	if prev == nil {
		return
	}

	suggestion := s.engine.SuggestProgression(ex, prev.Sets)

	s.mu.Lock()
	s.suggestion = suggestion
	s.mu.Unlock()
}

// RefreshSuggestion recomputes the suggestion synchronously.
func (s *Service) RefreshSuggestion(ctx context.Context) {
	s.refreshSuggestion(ctx)
}

// Suggestion returns the pending progression suggestion, if any.
func (s *Service) Suggestion() *models.ProgressionSuggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suggestion
}

// ApplySuggestion writes the pending suggestion's targets onto every
// not-yet-completed set, then discards it. No-op without a suggestion.
func (s *Service) ApplySuggestion(ctx context.Context) error {
	s.mu.Lock()
	if s.suggestion == nil || s.instance == nil {
		s.mu.Unlock()
		return nil
	}
	sug := s.suggestion
	for i := range s.instance.Sets {
		set := &s.instance.Sets[i]
		if set.Completed {
			continue
		}
		if sug.NewWeight != nil {
			set.TargetWeight = *sug.NewWeight
			set.ActualWeight = *sug.NewWeight
		}
		if sug.NewReps != nil {
			set.TargetReps = *sug.NewReps
			set.ActualReps = *sug.NewReps
		}
	}
	s.suggestion = nil
	s.mu.Unlock()

	return s.save(ctx)
}

// DiscardSuggestion drops the pending suggestion.
func (s *Service) DiscardSuggestion() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suggestion = nil
}

// CompleteSet records actuals for the set at index, marks it completed,
// advances the current-set cursor, and, unless this was the final set,
// starts the rest timer with the resolver's duration for that set.
// Non-positive inputs are neutralized to the set's targets.
func (s *Service) CompleteSet(ctx context.Context, index int, weight float64, reps int, rpe *float64) error {
	s.mu.Lock()
	if s.instance == nil || index < 0 || index >= len(s.instance.Sets) {
		s.mu.Unlock()
		return fmt.Errorf("no set at index %d", index)
	}

	set := &s.instance.Sets[index]
	if weight > 0 {
		set.ActualWeight = weight
	}
	if reps > 0 {
		set.ActualReps = reps
	}
	set.RPE = rpe
	set.Completed = true
	now := s.now()
	set.CompletedAt = &now

	s.currentSetIndex = firstIncomplete(s.instance.Sets)
	remaining := s.currentSetIndex < len(s.instance.Sets)
	restSecs := s.resolver.Resolve(set, s.instance.ExerciseKey)
	source := s.resolver.Source(set, s.instance.ExerciseKey)
	s.mu.Unlock()

	if remaining && s.timer != nil {
		s.timer.Start(restSecs, source, true)
	}
	return s.save(ctx)
}

// UncompleteSet reverses completion without discarding the recorded actuals.
func (s *Service) UncompleteSet(ctx context.Context, index int) error {
	s.mu.Lock()
	if s.instance == nil || index < 0 || index >= len(s.instance.Sets) {
		s.mu.Unlock()
		return fmt.Errorf("no set at index %d", index)
	}
	set := &s.instance.Sets[index]
	set.Completed = false
	set.CompletedAt = nil
	s.currentSetIndex = firstIncomplete(s.instance.Sets)
	s.mu.Unlock()

	return s.save(ctx)
}

// AddSet appends a set seeded from the last set's targets.
func (s *Service) AddSet(ctx context.Context) error {
	s.mu.Lock()
	if s.instance == nil {
		s.mu.Unlock()
		return fmt.Errorf("no instance loaded")
	}
	reps, weight := 10, 0.0
	if n := len(s.instance.Sets); n > 0 {
		last := s.instance.Sets[n-1]
		reps, weight = last.TargetReps, last.TargetWeight
	}
	s.instance.Sets = append(s.instance.Sets, models.NewSet(len(s.instance.Sets)+1, reps, weight))
	s.currentSetIndex = firstIncomplete(s.instance.Sets)
	s.mu.Unlock()

	return s.save(ctx)
}

// RemoveSet deletes the set at index and renumbers the rest contiguously.
func (s *Service) RemoveSet(ctx context.Context, index int) error {
	s.mu.Lock()
	if s.instance == nil || index < 0 || index >= len(s.instance.Sets) {
		s.mu.Unlock()
		return fmt.Errorf("no set at index %d", index)
	}
	s.instance.Sets = append(s.instance.Sets[:index], s.instance.Sets[index+1:]...)
	for i := range s.instance.Sets {
		s.instance.Sets[i].SetNumber = i + 1
	}
	s.currentSetIndex = firstIncomplete(s.instance.Sets)
	s.mu.Unlock()

	return s.save(ctx)
}

// CurrentSetIndex is the index of the first incomplete set; equals the set
// count when every set is completed.
func (s *Service) CurrentSetIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentSetIndex
}

// Sets returns a copy of the current set list.
func (s *Service) Sets() []models.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.instance == nil {
		return nil
	}
	out := make([]models.Set, len(s.instance.Sets))
	copy(out, s.instance.Sets)
	return out
}

// Exercise returns the loaded taxonomy record.
func (s *Service) Exercise() models.Exercise {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exercise
}

// Instance returns a copy of the loaded instance.
func (s *Service) Instance() *models.ExerciseInstance {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.instance == nil {
		return nil
	}
	cp := *s.instance
	cp.Sets = make([]models.Set, len(s.instance.Sets))
	copy(cp.Sets, s.instance.Sets)
	return &cp
}

// Dirty reports whether in-memory state is ahead of the store after a
// failed save.
func (s *Service) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// save persists the set list. A store failure is logged and recorded, not
// propagated: in-memory state stays authoritative for the rest of the
// session and the next mutation retries the write.
func (s *Service) save(ctx context.Context) error {
	s.mu.Lock()
	if s.instance == nil {
		s.mu.Unlock()
		return nil
	}
	id := s.instance.ID
	sets := make([]models.Set, len(s.instance.Sets))
	copy(sets, s.instance.Sets)
	s.mu.Unlock()

	if err := s.store.SaveSets(ctx, id, sets); err != nil {
		s.log.Error("saving sets failed; keeping in-memory state", "instance", id, "error", err)
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
	return nil
}

func firstIncomplete(sets []models.Set) int {
	for i, s := range sets {
		if !s.Completed {
			return i
		}
	}
	return len(sets)
}
