// Package resilience guards calls to the tutoring backend. A [Breaker]
// stops hammering the server with utterance uploads once it starts failing,
// letting the session surface one clear error instead of a timeout per
// utterance.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned by [Breaker.Execute] when the breaker is refusing
// calls.
var ErrOpen = errors.New("resilience: circuit open")

// State is the breaker's position.
type State int

const (
	// Closed: calls flow normally.
	Closed State = iota
	// Open: calls are refused until the cooldown elapses.
	Open
	// HalfOpen: a limited number of probe calls are allowed through.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker is a three-state circuit breaker. It opens after a run of
// consecutive failures, refuses calls for a cooldown period, then probes
// with a bounded number of calls before closing again. Safe for concurrent
// use.
type Breaker struct {
	name        string
	maxFailures int
	cooldown    time.Duration
	probeMax    int

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
	probes      int
	probeFails  int
}

// NewBreaker creates a Breaker named name that opens after maxFailures
// consecutive failures and stays open for cooldown. probeMax successful
// probe calls in the half-open state close it again.
func NewBreaker(name string, maxFailures int, cooldown time.Duration, probeMax int) *Breaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	if probeMax < 1 {
		probeMax = 1
	}
	return &Breaker{
		name:        name,
		maxFailures: maxFailures,
		cooldown:    cooldown,
		probeMax:    probeMax,
	}
}

// Execute runs fn if the breaker allows it, returning [ErrOpen] without
// calling fn otherwise. fn's error is passed through.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case Open:
		if time.Since(b.lastFailure) < b.cooldown {
			b.mu.Unlock()
			return ErrOpen
		}
		b.state = HalfOpen
		b.probes = 0
		b.probeFails = 0
		slog.Info("circuit breaker half-open", "name", b.name)
	case HalfOpen:
		if b.probes >= b.probeMax {
			b.mu.Unlock()
			return ErrOpen
		}
	}
	probing := b.state == HalfOpen
	if probing {
		b.probes++
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.onFailure(probing)
	} else {
		b.onSuccess(probing)
	}
	return err
}

// onFailure must be called with b.mu held.
func (b *Breaker) onFailure(probing bool) {
	b.lastFailure = time.Now()
	if probing {
		b.probeFails++
		b.state = Open
		b.failures = b.maxFailures
		slog.Warn("circuit breaker re-opened", "name", b.name)
		return
	}
	b.failures++
	if b.failures >= b.maxFailures {
		b.state = Open
		slog.Warn("circuit breaker opened", "name", b.name, "consecutive_failures", b.failures)
	}
}

// onSuccess must be called with b.mu held.
func (b *Breaker) onSuccess(probing bool) {
	if probing {
		if b.probes-b.probeFails >= b.probeMax {
			b.state = Closed
			b.failures = 0
			b.probes = 0
			b.probeFails = 0
			slog.Info("circuit breaker closed", "name", b.name)
		}
		return
	}
	b.failures = 0
}

// State returns the breaker's position. An open breaker whose cooldown has
// elapsed reports [HalfOpen]; the transition itself happens on the next
// [Breaker.Execute].
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && time.Since(b.lastFailure) >= b.cooldown {
		return HalfOpen
	}
	return b.state
}

// Reset forces the breaker back to [Closed] and clears all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.failures = 0
	b.probes = 0
	b.probeFails = 0
}
