// Package report persists and retrieves structured fleet run results for
// the MCP surface. The CLI run command deliberately does not consume it;
// there, per-device detail lives only in the [SYS] exit= lines.
package report

import "time"

// Store persists and retrieves run results.
type Store interface {
	Save(result *RunResult) error
	Load(runID string) (*RunResult, error)
}

// RunResult is the aggregate outcome of one orchestrator run.
type RunResult struct {
	ID       string          `json:"id"`
	Started  time.Time       `json:"started"`
	Duration float64         `json:"duration_seconds"`
	OK       bool            `json:"ok"`
	Devices  []DeviceOutcome `json:"devices"`
}

// DeviceOutcome is one device's recorded result within a run.
type DeviceOutcome struct {
	Device   string `json:"device"`
	Task     string `json:"task"`
	ExitCode int    `json:"exit_code"`
	Failure  string `json:"failure,omitempty"` // set when no exit code was produced
}

// Failed reports whether this device counts against the run.
func (d DeviceOutcome) Failed() bool {
	return d.Failure != "" || d.ExitCode != 0
}
