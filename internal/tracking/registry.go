package tracking

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/claude/repcoach/internal/overload"
	"github.com/claude/repcoach/internal/resttime"
	"github.com/claude/repcoach/internal/timer"
)

// Registry hands out exactly one Service per active exercise instance, so
// each set list and timer has a single owner. Release drops an instance
// when its session closes.
type Registry struct {
	store    Store
	resolver *resttime.Resolver
	engine   *overload.Engine
	log      *slog.Logger

	mu       sync.Mutex
	services map[uuid.UUID]*Service
}

// NewRegistry creates a registry over shared collaborators.
func NewRegistry(store Store, resolver *resttime.Resolver, engine *overload.Engine, log *slog.Logger) *Registry {
	return &Registry{
		store:    store,
		resolver: resolver,
		engine:   engine,
		log:      log,
		services: make(map[uuid.UUID]*Service),
	}
}

// Load opens (or returns) the service owning the exercise instance for the
// given session and exercise, loading its sets on first use.
func (r *Registry) Load(ctx context.Context, sessionID uuid.UUID, exerciseKey string) (*Service, error) {
	svc := New(r.store, r.resolver, r.engine, timer.New(WithRegistryAlerts(r.log)), r.log)
	if err := svc.Load(ctx, sessionID, exerciseKey); err != nil {
		return nil, err
	}
	id := svc.Instance().ID

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.services[id]; ok {
		return existing, nil
	}
	r.services[id] = svc
	return svc, nil
}

// Lookup returns the service for an instance, if one is active.
func (r *Registry) Lookup(instanceID uuid.UUID) (*Service, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	svc, ok := r.services[instanceID]
	return svc, ok
}

// Release stops the instance's timer and forgets the service.
func (r *Registry) Release(instanceID uuid.UUID) {
	r.mu.Lock()
	svc, ok := r.services[instanceID]
	delete(r.services, instanceID)
	r.mu.Unlock()
	if ok && svc.timer != nil {
		svc.timer.Stop()
	}
}

// WithRegistryAlerts wires the server-side logging alert adapter.
func WithRegistryAlerts(log *slog.Logger) timer.Option {
	return timer.WithAlertScheduler(timer.LogAlertScheduler{Log: log})
}
