// Package orchestrator runs one agent process per device, bounded by a
// concurrency limiter, and joins every per-device outcome into a single
// aggregate result. No worker's failure can cancel its siblings.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/deixis/fleet/internal/device"
	"github.com/deixis/fleet/internal/mux"
)

// Proc is one running agent process, as the orchestrator sees it.
// Implemented by runner.Worker.
type Proc interface {
	Command() string
	Pipes() (stdout, stderr io.Reader)
	Wait() (int, error)
	Duration() time.Duration
}

// StartFunc spawns the agent process for one device and task.
type StartFunc func(ctx context.Context, deviceID, task string) (Proc, error)

// Orchestrator drives one full run across all assigned devices.
type Orchestrator struct {
	Assignment  device.Assignment
	MaxParallel int
	Start       StartFunc
	Sink        *mux.Sink
}

// Outcome is one device's recorded result: a terminal exit code, or an
// error when the worker never produced one (spawn failure, interrupt).
type Outcome struct {
	Device string
	Code   int
	Err    error
}

// Failed reports whether this outcome counts against the run.
func (o Outcome) Failed() bool {
	return o.Err != nil || o.Code != 0
}

// Result is the aggregate outcome of a run, in input device order.
// It is built only after every worker has terminated or failed to start.
type Result struct {
	Outcomes []Outcome
}

// OK reports whether every recorded outcome is a zero exit code.
func (r *Result) OK() bool {
	for _, o := range r.Outcomes {
		if o.Failed() {
			return false
		}
	}
	return true
}

// Run launches one worker per assigned device, at most MaxParallel at a
// time, and waits for all of them. It always gathers every outcome;
// ctx cancellation stops admitting new workers and records the devices
// that never started as failures.
func (o *Orchestrator) Run(ctx context.Context) *Result {
	devices := o.Assignment.Devices()
	lim := NewLimiter(o.MaxParallel)
	outcomes := make([]Outcome, len(devices))

	var wg sync.WaitGroup
	for i, d := range devices {
		wg.Add(1)
		go func(i int, d string) {
			defer wg.Done()
			// Each goroutine owns its slot of the outcome slice.
			outcomes[i] = o.runOne(ctx, lim, d, o.Assignment.Task(d))
		}(i, d)
	}
	wg.Wait()

	return &Result{Outcomes: outcomes}
}

// runOne drives a single device: acquire a limiter slot, spawn, stream
// both channels until EOF, collect the exit code, release the slot.
// All failures stay scoped to this device.
func (o *Orchestrator) runOne(ctx context.Context, lim Limiter, deviceID, task string) Outcome {
	if err := lim.Acquire(ctx); err != nil {
		return Outcome{Device: deviceID, Err: fmt.Errorf("not started: %w", err)}
	}
	defer lim.Release()

	w, err := o.Start(ctx, deviceID, task)
	if err != nil {
		o.Sink.Errorf("%v", err)
		return Outcome{Device: deviceID, Err: err}
	}

	o.Sink.Line(deviceID, mux.TagSys, "starting: "+w.Command())

	// Drain stdout and stderr concurrently; completion requires both
	// channels at EOF and a terminal exit code.
	stdout, stderr := w.Pipes()
	var pipes sync.WaitGroup
	pipes.Add(2)
	go func() {
		defer pipes.Done()
		mux.Pipe(stdout, o.Sink, deviceID, mux.TagOut)
	}()
	go func() {
		defer pipes.Done()
		mux.Pipe(stderr, o.Sink, deviceID, mux.TagErr)
	}()
	pipes.Wait()

	code, err := w.Wait()
	if err != nil {
		o.Sink.Errorf("%v", err)
		return Outcome{Device: deviceID, Err: err}
	}

	o.Sink.Line(deviceID, mux.TagSys, fmt.Sprintf("exit=%d duration=%.1fs", code, w.Duration().Seconds()))
	return Outcome{Device: deviceID, Code: code}
}
