package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/deixis/fleet/internal/device"
	"github.com/deixis/fleet/internal/mux"
	"github.com/deixis/fleet/internal/orchestrator"
	"github.com/deixis/fleet/internal/report"
	"github.com/deixis/fleet/internal/runner"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type runParams struct {
	Devices     []string          `json:"devices,omitempty" jsonschema:"device IDs to run on; each device gets its own agent process"`
	Task        string            `json:"task,omitempty" jsonschema:"single task applied to every device; mutually exclusive with tasks"`
	Tasks       map[string]string `json:"tasks,omitempty" jsonschema:"device ID to task mapping; the \"*\" key is the default task"`
	MaxParallel int               `json:"max_parallel,omitempty" jsonschema:"max concurrent agent processes; defaults to the configured value"`
}

func (h *handler) runHandler(ctx context.Context, req *mcp.CallToolRequest, params runParams) (*mcp.CallToolResult, any, error) {
	if len(params.Devices) == 0 {
		return errorResult("devices is required")
	}
	if params.Task != "" && len(params.Tasks) > 0 {
		return errorResult("provide only one of task or tasks")
	}

	tasks := params.Tasks
	if params.Task != "" {
		tasks = map[string]string{device.Wildcard: params.Task}
	}
	if len(tasks) == 0 {
		return errorResult("task or tasks is required")
	}

	asn, err := device.Resolve(params.Devices, tasks)
	if err != nil {
		return errorResult(err.Error())
	}

	maxParallel := params.MaxParallel
	if maxParallel == 0 {
		maxParallel = h.cfg.MaxParallel()
	}

	launcher := &runner.Launcher{
		Agent: h.cfg.Agent(),
		Extra: h.overrides.Args(),
	}
	orch := &orchestrator.Orchestrator{
		Assignment:  asn,
		MaxParallel: maxParallel,
		Sink:        mux.NewSink(h.runOutput, h.runOutput),
		Start: func(ctx context.Context, deviceID, task string) (orchestrator.Proc, error) {
			return launcher.Start(ctx, deviceID, task)
		},
	}

	started := time.Now()
	res := orch.Run(ctx)

	rr := toReport(uuid.New().String(), started, asn, res)
	_ = h.store.Save(rr)

	return textResult(formatRun(rr))
}

// toReport converts an orchestrator result into its stored form.
func toReport(id string, started time.Time, asn device.Assignment, res *orchestrator.Result) *report.RunResult {
	rr := &report.RunResult{
		ID:       id,
		Started:  started,
		Duration: time.Since(started).Seconds(),
		OK:       res.OK(),
	}
	for _, o := range res.Outcomes {
		d := report.DeviceOutcome{
			Device:   o.Device,
			Task:     asn.Task(o.Device),
			ExitCode: o.Code,
		}
		if o.Err != nil {
			d.Failure = o.Err.Error()
		}
		rr.Devices = append(rr.Devices, d)
	}
	return rr
}

func formatRun(rr *report.RunResult) string {
	var b strings.Builder

	if rr.OK {
		fmt.Fprintln(&b, "Status: PASS")
	} else {
		fmt.Fprintln(&b, "Status: FAIL")
	}
	fmt.Fprintf(&b, "Run: %s\n", rr.ID)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "Devices:")
	for _, d := range rr.Devices {
		switch {
		case d.Failure != "":
			fmt.Fprintf(&b, "  %s: failed (%s)\n", d.Device, d.Failure)
		case d.ExitCode != 0:
			fmt.Fprintf(&b, "  %s: exit=%d\n", d.Device, d.ExitCode)
		default:
			fmt.Fprintf(&b, "  %s: ok\n", d.Device)
		}
	}
	fmt.Fprintln(&b)

	fmt.Fprintf(&b, "Duration: %.1fs\n", rr.Duration)
	if !rr.OK {
		fmt.Fprintf(&b, "Inspect with fleet_inspect(run_id=%q).\n", rr.ID)
	}

	return b.String()
}

type inspectParams struct {
	RunID  string `json:"run_id" jsonschema:"the run ID from a fleet_run result"`
	Device string `json:"device,omitempty" jsonschema:"restrict the report to one device ID"`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}

	rr, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	devices := rr.Devices
	if params.Device != "" {
		devices = nil
		for _, d := range rr.Devices {
			if d.Device == params.Device {
				devices = append(devices, d)
			}
		}
		if len(devices) == 0 {
			return textResult(fmt.Sprintf("Run %s has no device %q.", params.RunID, params.Device))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s (started %s, %.1fs)\n", rr.ID, rr.Started.Format(time.RFC3339), rr.Duration)
	fmt.Fprintln(&b)
	for _, d := range devices {
		fmt.Fprintf(&b, "%s:\n", d.Device)
		fmt.Fprintf(&b, "  task: %s\n", d.Task)
		if d.Failure != "" {
			fmt.Fprintf(&b, "  failure: %s\n", d.Failure)
		} else {
			fmt.Fprintf(&b, "  exit: %d\n", d.ExitCode)
		}
	}

	return textResult(b.String())
}
