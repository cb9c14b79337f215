package timectrl

import (
	"context"
	"sync"
	"time"
)

// Mode describes how the StepPacer advances between simulation steps.
type Mode int

const (
	// RealTime paces one simulation step per wall-clock tick, so a run
	// can be watched live (e.g. on a metrics dashboard).
	RealTime Mode = iota
	// Accelerated runs as quickly as the engine can step.
	Accelerated
)

// StepPacer throttles a batch simulation for real-time replay. The
// engine calls Wait after every completed step; in RealTime mode the
// call blocks until the next tick or until the context is cancelled.
type StepPacer struct {
	mu   sync.RWMutex
	Tick time.Duration
	Mode Mode

	steps int
}

// NewStepPacer constructs a pacer.
func NewStepPacer(tick time.Duration, mode Mode) *StepPacer {
	return &StepPacer{Tick: tick, Mode: mode}
}

// Wait blocks according to the configured mode. It returns the context
// error when cancelled mid-wait, which the engine treats as an early
// stop after a fully completed step.
func (p *StepPacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	p.steps++
	p.mu.Unlock()

	if p.Mode == Accelerated || p.Tick <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(p.Tick)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Steps reports how many times the pacer has been waited on.
func (p *StepPacer) Steps() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.steps
}
