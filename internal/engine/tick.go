// Package engine provides the session state, the consumption scan and the
// clock that drives them.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Default tick cadence.
const (
	DefaultFrameInterval = 33 * time.Millisecond // ~30 movement updates per second
	DefaultScanInterval  = time.Second
)

// Engine drives a Simulation: continuous movement on a frame ticker and a
// consumption scan on a fixed ticker. Both run on one goroutine, so a
// movement step and a scan never overlap.
type Engine struct {
	Sim           *Simulation
	FrameInterval time.Duration
	ScanInterval  time.Duration

	// Callbacks, run on the ticking goroutine after each step.
	// They must not call back into the Engine.
	OnFrame func(dt float64)
	OnScan  func(res ScanResult)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine creates an engine for sim with default intervals.
func NewEngine(sim *Simulation) *Engine {
	return &Engine{
		Sim:           sim,
		FrameInterval: DefaultFrameInterval,
		ScanInterval:  DefaultScanInterval,
	}
}

// Start moves the simulation to running and begins ticking. A session left
// running by Stop, or by cancellation of an earlier ctx, resumes ticking with
// its road and visitors as they were. It returns false and does nothing if the
// loop is already active or the simulation cannot start.
func (e *Engine) Start(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loopActive() {
		return false
	}
	e.stopLocked()
	if !e.Sim.Running() && !e.Sim.Start() {
		return false
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done

	go e.run(loopCtx, done)
	return true
}

// Stop halts ticking and waits for the loop to exit. Session state is left
// as it is, so a final save sees the last scan; the phase stays running until
// Reset, and Start resumes it.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

// Reset halts ticking, then returns the simulation to editing. No tick can
// run against the cleared session because the loop has exited first.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
	e.Sim.Reset()
}

// Ticking reports whether the loop goroutine is active.
func (e *Engine) Ticking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loopActive()
}

// loopActive is false once the loop has exited, including through
// cancellation of the ctx passed to Start.
func (e *Engine) loopActive() bool {
	if e.done == nil {
		return false
	}
	select {
	case <-e.done:
		return false
	default:
		return true
	}
}

func (e *Engine) stopLocked() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
	e.cancel = nil
	e.done = nil
}

func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	frame := time.NewTicker(e.FrameInterval)
	defer frame.Stop()
	scan := time.NewTicker(e.ScanInterval)
	defer scan.Stop()

	slog.Info("simulation engine started",
		"frame_interval", e.FrameInterval,
		"scan_interval", e.ScanInterval,
	)

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			slog.Info("simulation engine stopped", "total_coins", humanize.Comma(e.Sim.Coins()))
			return

		case t := <-frame.C:
			dt := t.Sub(last).Seconds()
			last = t
			e.Sim.Advance(dt)
			if e.OnFrame != nil {
				e.OnFrame(dt)
			}

		case <-scan.C:
			res := e.Sim.Scan(e.Sim.Now())
			if e.OnScan != nil {
				e.OnScan(res)
			}
		}
	}
}
