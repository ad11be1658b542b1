// Package healthcheck circuit breaker implementation
// Guards calls to flaky collaborators and reports the guard state as a check
package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Execute while the breaker rejects calls
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerState represents the state of a circuit breaker
type CircuitBreakerState int

const (
	StateClosed CircuitBreakerState = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds configuration for circuit breaker
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit
	FailureThreshold int `json:"failure_threshold"`

	// SuccessThreshold is the number of half-open successes that closes it again
	SuccessThreshold int `json:"success_threshold"`

	// Timeout is how long the circuit stays open before admitting trial requests
	Timeout time.Duration `json:"timeout"`

	// MaxRequests caps concurrent trial requests while half-open
	MaxRequests int `json:"max_requests"`

	// IsSuccessful classifies a call result. Defaults to err == nil.
	IsSuccessful func(err error) bool `json:"-"`

	// OnStateChange is called when the state changes
	OnStateChange func(name string, from, to CircuitBreakerState) `json:"-"`
}

// CircuitBreakerStats holds counters about circuit breaker operations
type CircuitBreakerStats struct {
	TotalRequests        int64 `json:"total_requests"`
	TotalFailures        int64 `json:"total_failures"`
	TotalRejections      int64 `json:"total_rejections"`
	ConsecutiveFailures  int   `json:"consecutive_failures"`
	ConsecutiveSuccesses int   `json:"consecutive_successes"`
}

// CircuitBreaker implements the circuit breaker pattern. The guarded
// function runs outside the breaker's lock so concurrent calls proceed
// in parallel while the circuit is closed.
type CircuitBreaker struct {
	name     string
	config   CircuitBreakerConfig
	mu       sync.Mutex
	state    CircuitBreakerState
	stats    CircuitBreakerStats
	inFlight int
	openedAt time.Time
	now      func() time.Time
}

// DefaultCircuitBreakerConfig returns a default configuration for circuit breakers
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
		MaxRequests:      1,
	}
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration
func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	defaults := DefaultCircuitBreakerConfig()
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = defaults.FailureThreshold
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = defaults.SuccessThreshold
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxRequests <= 0 {
		config.MaxRequests = defaults.MaxRequests
	}
	if config.IsSuccessful == nil {
		config.IsSuccessful = func(err error) bool { return err == nil }
	}

	return &CircuitBreaker{
		name:   name,
		config: config,
		state:  StateClosed,
		now:    time.Now,
	}
}

// Name returns the breaker's name
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Execute runs fn unless the circuit is open. Rejected calls return an
// error wrapping ErrCircuitOpen.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.acquire(); err != nil {
		return err
	}
	err := fn()
	cb.release(cb.config.IsSuccessful(err))
	return err
}

func (cb *CircuitBreaker) acquire() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.stats.TotalRequests++

	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.config.Timeout {
		cb.setState(StateHalfOpen)
	}

	switch cb.state {
	case StateOpen:
		cb.stats.TotalRejections++
		return fmt.Errorf("%s: %w", cb.name, ErrCircuitOpen)
	case StateHalfOpen:
		if cb.inFlight >= cb.config.MaxRequests {
			cb.stats.TotalRejections++
			return fmt.Errorf("%s: %w", cb.name, ErrCircuitOpen)
		}
	}

	cb.inFlight++
	return nil
}

func (cb *CircuitBreaker) release(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.inFlight--

	if success {
		cb.stats.ConsecutiveFailures = 0
		cb.stats.ConsecutiveSuccesses++
		if cb.state == StateHalfOpen && cb.stats.ConsecutiveSuccesses >= cb.config.SuccessThreshold {
			cb.setState(StateClosed)
		}
		return
	}

	cb.stats.TotalFailures++
	cb.stats.ConsecutiveSuccesses = 0
	cb.stats.ConsecutiveFailures++

	switch cb.state {
	case StateClosed:
		if cb.stats.ConsecutiveFailures >= cb.config.FailureThreshold {
			cb.setState(StateOpen)
		}
	case StateHalfOpen:
		// Any failure in half-open state opens the circuit
		cb.setState(StateOpen)
	}
}

// setState changes the circuit breaker state and handles side effects
func (cb *CircuitBreaker) setState(newState CircuitBreakerState) {
	if cb.state == newState {
		return
	}

	oldState := cb.state
	cb.state = newState

	switch newState {
	case StateOpen:
		cb.openedAt = cb.now()
	case StateHalfOpen:
		cb.stats.ConsecutiveSuccesses = 0
	case StateClosed:
		cb.stats.ConsecutiveFailures = 0
		cb.stats.ConsecutiveSuccesses = 0
	}

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.name, oldState, newState)
	}
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// GetStats returns a copy of the breaker's counters
func (cb *CircuitBreaker) GetStats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stats
}

// Reset closes the circuit and clears its counters
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.setState(StateClosed)
	cb.stats = CircuitBreakerStats{}
}

// CircuitBreakerChecker reports a breaker's state as a health check
type CircuitBreakerChecker struct {
	breaker *CircuitBreaker
}

// NewCircuitBreakerChecker creates a checker for breaker
func NewCircuitBreakerChecker(breaker *CircuitBreaker) *CircuitBreakerChecker {
	return &CircuitBreakerChecker{breaker: breaker}
}

// Check maps closed to healthy, half-open to degraded and open to unhealthy
func (c *CircuitBreakerChecker) Check(ctx context.Context) Check {
	state := c.breaker.GetState()
	stats := c.breaker.GetStats()

	check := Check{
		Status: StatusHealthy,
		Details: map[string]interface{}{
			"breaker":              c.breaker.Name(),
			"state":                state.String(),
			"consecutive_failures": stats.ConsecutiveFailures,
			"total_rejections":     stats.TotalRejections,
		},
	}
	switch state {
	case StateOpen:
		check.Status = StatusUnhealthy
		check.Message = "circuit breaker is open"
	case StateHalfOpen:
		check.Status = StatusDegraded
		check.Message = "circuit breaker is half-open"
	}
	return check
}
