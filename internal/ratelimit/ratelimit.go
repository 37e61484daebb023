// Package ratelimit paces calls to the AI provider: a randomized short delay
// before each call, a fixed cooldown between ingestion batches, and an
// optional per-run call budget.
package ratelimit

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/pth-in/cprn/internal/logger"
)

type Pacer struct {
	mu       sync.Mutex
	delay    time.Duration
	jitter   time.Duration
	cooldown time.Duration
	maxCalls int // 0 = unlimited
	calls    int

	sleep func(time.Duration)
	randN func(int64) int64
}

func NewPacer(delay, jitter, cooldown time.Duration, maxCalls int) *Pacer {
	return &Pacer{
		delay:    delay,
		jitter:   jitter,
		cooldown: cooldown,
		maxCalls: maxCalls,
		sleep:    time.Sleep,
		randN:    rand.Int63n,
	}
}

// BeforeCall blocks for the randomized inter-call delay and consumes one
// unit of the call budget. The first call of a run is not delayed.
func (p *Pacer) BeforeCall() error {
	p.mu.Lock()
	if p.maxCalls > 0 && p.calls >= p.maxCalls {
		p.mu.Unlock()
		return fmt.Errorf("provider call budget exhausted (%d/%d)", p.calls, p.maxCalls)
	}
	first := p.calls == 0
	p.calls++
	calls := p.calls
	p.mu.Unlock()

	if !first {
		d := p.delay
		if p.jitter > 0 {
			d += time.Duration(p.randN(int64(p.jitter)))
		}
		p.sleep(d)
	}

	if p.maxCalls > 0 {
		logger.Debug("provider call", "n", calls, "budget", p.maxCalls)
	}
	return nil
}

// BatchCooldown blocks for the fixed between-batch cooldown.
func (p *Pacer) BatchCooldown() {
	if p.cooldown > 0 {
		p.sleep(p.cooldown)
	}
}

// Calls returns how many provider calls have been paced this run.
func (p *Pacer) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}
