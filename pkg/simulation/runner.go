package simulation

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Sample is the periodic summary handed to a Recorder.
type Sample struct {
	Time      float64
	Live      int
	MaxPasses int
	Stats     Stats
}

// Recorder receives a Sample every RecordEvery ticks.
type Recorder interface {
	RecordSample(ctx context.Context, s Sample) error
}

// Runner owns a Simulator and serialises ticks against readers.
type Runner struct {
	mu    sync.RWMutex
	sim   *Simulator
	ticks int

	logger *log.Logger

	Recorder    Recorder
	RecordEvery int
}

// NewRunner wraps sim.
func NewRunner(sim *Simulator, logger *log.Logger) *Runner {
	return &Runner{sim: sim, logger: logger, RecordEvery: 10}
}

// Step advances the simulation by dt under the write lock.
func (r *Runner) Step(ctx context.Context, dt float64) error {
	r.mu.Lock()
	err := r.sim.Tick(dt)
	r.ticks++
	due := r.Recorder != nil && r.RecordEvery > 0 && r.ticks%r.RecordEvery == 0
	sample := r.sampleLocked()
	r.mu.Unlock()
	if err != nil {
		return err
	}

	if due {
		if err := r.Recorder.RecordSample(ctx, sample); err != nil {
			r.logger.Warn("failed to record sample", "time", sample.Time, "err", err)
		}
	}
	return nil
}

// Run ticks on a wall-clock ticker, feeding the measured elapsed time as
// dt, until ctx is done or a tick fails.
func (r *Runner) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			if err := r.Step(ctx, dt); err != nil {
				return err
			}
		}
	}
}

// RunFor ticks with a fixed dt as fast as possible until simulated time
// reaches until or ctx is done.
func (r *Runner) RunFor(ctx context.Context, dt, until float64) error {
	if dt <= 0 || math.IsNaN(dt) {
		return fmt.Errorf("%w: fixed step %v", ErrNegativeTick, dt)
	}
	for r.Time() < until {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := r.Step(ctx, dt); err != nil {
			return err
		}
	}
	return nil
}

// Time returns the simulated time.
func (r *Runner) Time() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sim.Time
}

// Snapshot returns a consistent copy of the simulation state.
func (r *Runner) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sim.Snapshot()
}

// Stats returns the accumulated counters.
func (r *Runner) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sim.Stats()
}

// Sample returns the current summary.
func (r *Runner) Sample() Sample {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sampleLocked()
}

func (r *Runner) sampleLocked() Sample {
	return Sample{
		Time:      r.sim.Time,
		Live:      len(r.sim.Vehicles),
		MaxPasses: r.sim.Net.MaxPasses,
		Stats:     r.sim.Stats(),
	}
}
