package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alchemorsel/ingrediate/internal/ports/inbound"
)

// Factory builds a fresh controller for a new session
type Factory func() *Controller

// Registry hands every authenticated subject its own Controller, created on
// first use and evicted after IdleTimeout without access.
type Registry struct {
	factory     Factory
	idleTimeout time.Duration
	logger      *zap.Logger
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	controller *Controller
	lastSeen   time.Time
}

// NewRegistry creates an empty registry. A zero idleTimeout disables eviction.
func NewRegistry(factory Factory, idleTimeout time.Duration, logger *zap.Logger) *Registry {
	return &Registry{
		factory:     factory,
		idleTimeout: idleTimeout,
		logger:      logger.Named("sessions"),
		now:         time.Now,
		sessions:    make(map[string]*entry),
	}
}

// Get returns the controller of subject, creating it if needed
func (r *Registry) Get(subject string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[subject]
	if !ok {
		e = &entry{controller: r.factory()}
		r.sessions[subject] = e
		r.logger.Debug("Session created", zap.String("user_id", subject))
	}
	e.lastSeen = r.now()
	return e.controller
}

// Session implements inbound.SessionRegistry
func (r *Registry) Session(subject string) inbound.SessionService {
	return r.Get(subject)
}

var _ inbound.SessionRegistry = (*Registry)(nil)

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// EvictIdle drops sessions not accessed within the idle timeout and returns
// how many were dropped.
func (r *Registry) EvictIdle() int {
	if r.idleTimeout <= 0 {
		return 0
	}

	cutoff := r.now().Add(-r.idleTimeout)
	evicted := 0

	r.mu.Lock()
	for subject, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(r.sessions, subject)
			evicted++
		}
	}
	r.mu.Unlock()

	if evicted > 0 {
		r.logger.Info("Evicted idle sessions", zap.Int("count", evicted))
	}
	return evicted
}

// Run evicts idle sessions every interval until ctx is done
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || r.idleTimeout <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.EvictIdle()
		}
	}
}
