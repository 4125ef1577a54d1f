// internal/model/breaker.go
package model

import (
	"errors"
	"log"
	"sync"
	"time"
)

var (
	ErrBreakerOpen = errors.New("model breaker open")
	ErrBreakerBusy = errors.New("model breaker testing recovery, try later")
)

type breakerState string

const (
	breakerClosed   breakerState = "closed"
	breakerOpen     breakerState = "open"
	breakerHalfOpen breakerState = "half-open"
)

// Breaker stops hammering the model backend while it is down. After the
// recovery timeout a few test calls are let through; enough consecutive
// successes close it again.
type Breaker struct {
	mu sync.RWMutex

	state                breakerState
	failureCount         int
	testCount            int
	consecutiveSuccesses int
	lastFailure          time.Time

	failureThreshold int
	successThreshold int
	recoveryTimeout  time.Duration
	halfOpenMax      int
}

func NewBreaker(failureThreshold int, recoveryTimeout time.Duration) *Breaker {
	if failureThreshold < 1 {
		failureThreshold = 3
	}
	if recoveryTimeout < time.Second {
		recoveryTimeout = 30 * time.Second
	}
	return &Breaker{
		state:            breakerClosed,
		failureThreshold: failureThreshold,
		successThreshold: 2,
		recoveryTimeout:  recoveryTimeout,
		halfOpenMax:      2,
	}
}

// Call runs fn unless the breaker rejects it, and records the outcome.
func (b *Breaker) Call(fn func() error) error {
	if err := b.before(); err != nil {
		return err
	}
	err := fn()
	b.after(err)
	return err
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerOpen:
		if time.Since(b.lastFailure) > b.recoveryTimeout {
			b.state = breakerHalfOpen
			b.testCount = 0
			b.consecutiveSuccesses = 0
			log.Printf("[Model] Breaker open -> half-open, testing backend")
			return nil
		}
		return ErrBreakerOpen
	case breakerHalfOpen:
		if b.testCount >= b.halfOpenMax {
			return ErrBreakerBusy
		}
		b.testCount++
		return nil
	default:
		return nil
	}
}

func (b *Breaker) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failureCount++
		b.consecutiveSuccesses = 0
		b.lastFailure = time.Now()
		switch b.state {
		case breakerClosed:
			if b.failureCount >= b.failureThreshold {
				b.state = breakerOpen
				log.Printf("[Model] Breaker closed -> open after %d failures", b.failureCount)
			}
		case breakerHalfOpen:
			b.state = breakerOpen
			log.Printf("[Model] Breaker half-open -> open, test call failed")
		}
		return
	}

	b.consecutiveSuccesses++
	switch b.state {
	case breakerClosed:
		b.failureCount = 0
	case breakerHalfOpen:
		if b.consecutiveSuccesses >= b.successThreshold {
			b.state = breakerClosed
			b.failureCount = 0
			log.Printf("[Model] Breaker half-open -> closed, backend recovered")
		}
	}
}

// IsOpen reports whether calls are currently rejected.
func (b *Breaker) IsOpen() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state == breakerOpen
}

// State returns the breaker state for health reporting.
func (b *Breaker) State() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return string(b.state)
}
