// Package resttime resolves inter-set rest durations from a three-tier
// configuration: per-set override, per-exercise default, global default.
package resttime

import (
	"sync"

	"github.com/claude/repcoach/internal/models"
)

// DefaultGlobalSeconds is the rest duration used until the global default
// is explicitly configured.
const DefaultGlobalSeconds = 90

// Resolver is a process-wide rest-time configuration service. It is safe
// for concurrent use; callers inject it rather than reaching for a global.
type Resolver struct {
	mu            sync.RWMutex
	globalDefault int
	exercise      map[string]int
}

// NewResolver creates a resolver with the built-in global default and no
// per-exercise overrides.
func NewResolver() *Resolver {
	return &Resolver{
		globalDefault: DefaultGlobalSeconds,
		exercise:      make(map[string]int),
	}
}

// Resolve returns the rest duration in seconds for a set, applying strict
// precedence: set-level override > exercise-level default > global default.
// The set may be nil when no set context exists.
func (r *Resolver) Resolve(set *models.Set, exerciseKey string) int {
	if set != nil && set.RestTimeOverride != nil && *set.RestTimeOverride > 0 {
		return *set.RestTimeOverride
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if secs, ok := r.exercise[exerciseKey]; ok {
		return secs
	}
	return r.globalDefault
}

// Source reports which tier would supply the resolved value. Display only.
func (r *Resolver) Source(set *models.Set, exerciseKey string) models.RestTimeSource {
	if set != nil && set.RestTimeOverride != nil && *set.RestTimeOverride > 0 {
		return models.SourceSetSpecific
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.exercise[exerciseKey]; ok {
		return models.SourceExerciseSpecific
	}
	return models.SourceGlobalDefault
}

// GlobalDefault returns the current global default in seconds.
func (r *Resolver) GlobalDefault() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.globalDefault
}

// SetGlobalDefault updates the global default. Non-positive values are ignored.
func (r *Resolver) SetGlobalDefault(seconds int) {
	if seconds <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.globalDefault = seconds
}

// ExerciseDefault returns the per-exercise default, if one is configured.
func (r *Resolver) ExerciseDefault(exerciseKey string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	secs, ok := r.exercise[exerciseKey]
	return secs, ok
}

// SetExerciseDefault sets the per-exercise default. Non-positive values clear it.
func (r *Resolver) SetExerciseDefault(exerciseKey string, seconds int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if seconds <= 0 {
		delete(r.exercise, exerciseKey)
		return
	}
	r.exercise[exerciseKey] = seconds
}

// ClearExerciseDefault removes the per-exercise default.
func (r *Resolver) ClearExerciseDefault(exerciseKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.exercise, exerciseKey)
}
