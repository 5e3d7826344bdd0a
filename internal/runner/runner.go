// Package runner spawns one isolated agent process per device and tracks
// it to a terminal exit code. Stdout and stderr are captured as separate
// pipes so downstream tagging can tell them apart; they are never merged.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// Launcher builds and spawns agent invocations. Agent is the fixed argv
// prefix for the agent entry point; Extra is the shared override fragment
// appended to every invocation.
type Launcher struct {
	Agent []string
	Extra []string
}

// Argv returns the full invocation for a device and task:
// agent, device-targeting flag, shared overrides, then the task last.
func (l *Launcher) Argv(device, task string) []string {
	argv := make([]string, 0, len(l.Agent)+len(l.Extra)+3)
	argv = append(argv, l.Agent...)
	argv = append(argv, "-d", device)
	argv = append(argv, l.Extra...)
	argv = append(argv, task)
	return argv
}

// Start spawns the agent process for one device. A spawn failure (missing
// binary, permission denied) is returned to the caller; it affects only
// this device.
func (l *Launcher) Start(ctx context.Context, device, task string) (*Worker, error) {
	if len(l.Agent) == 0 {
		return nil, fmt.Errorf("empty agent command")
	}

	argv := l.Argv(device, task)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe for %s: %w", device, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe for %s: %w", device, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s for device %s: %w", argv[0], device, err)
	}

	return &Worker{
		Device:  device,
		Argv:    argv,
		Started: time.Now(),
		Stdout:  stdout,
		Stderr:  stderr,
		cmd:     cmd,
	}, nil
}

// Worker is one spawned agent process bound to a single device. It is
// owned by the orchestrator goroutine that started it and is done once
// both pipes hit EOF and Wait has returned.
type Worker struct {
	Device  string
	Argv    []string
	Started time.Time
	Stdout  io.ReadCloser
	Stderr  io.ReadCloser

	cmd *exec.Cmd
}

// Wait blocks until the process exits and returns its exit code.
// A non-zero exit is a normal outcome, not an error. Callers must drain
// Stdout and Stderr before calling Wait.
func (w *Worker) Wait() (int, error) {
	err := w.cmd.Wait()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("waiting for agent on %s: %w", w.Device, err)
	}
	return 0, nil
}

// Pipes returns the worker's independent stdout and stderr streams.
func (w *Worker) Pipes() (stdout, stderr io.Reader) {
	return w.Stdout, w.Stderr
}

// Command returns the full invocation as a printable string.
func (w *Worker) Command() string {
	return strings.Join(w.Argv, " ")
}

// Duration returns the elapsed time since the worker started.
func (w *Worker) Duration() time.Duration {
	return time.Since(w.Started)
}
