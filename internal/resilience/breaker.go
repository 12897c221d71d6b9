// Package resilience holds the circuit breaker guarding trips to the
// authoritative tenant store.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker is shedding calls.
var ErrCircuitOpen = errors.New("circuit open")

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateProbing
)

// Breaker sheds store lookups after consecutive failures. Every cache
// miss otherwise turns into a query against a store that is already
// struggling; once the failure threshold is reached the breaker fails
// fast for a cooldown period, then lets a single probe call through.
type Breaker struct {
	mu        sync.Mutex
	state     breakerState
	threshold int
	cooldown  time.Duration
	failures  int
	openedAt  time.Time
	now       func() time.Time
}

// NewBreaker creates a breaker that opens after threshold consecutive
// failures and probes again after cooldown.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	return &Breaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

// Execute runs fn unless the breaker is open, in which case it returns
// ErrCircuitOpen without calling fn. fn's own error passes through.
func (b *Breaker) Execute(fn func() error) error {
	if !b.allow() {
		return ErrCircuitOpen
	}
	err := fn()
	b.record(err)
	return err
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == stateOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		b.state = stateProbing
	}
	return b.state != stateOpen
}

// record books the call's outcome: success closes the breaker and resets
// the count, a failure at threshold (or during a probe) opens it.
func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		b.failures = 0
		b.state = stateClosed
		return
	}
	b.failures++
	if b.state == stateProbing || b.failures >= b.threshold {
		b.state = stateOpen
		b.openedAt = b.now()
	}
}
