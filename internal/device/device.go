// Package device resolves the device list and task assignment for a run.
// Parsing and validation all happen up front, before any worker spawns.
package device

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Wildcard is the reserved task key naming the default task, used for
// any device without an explicit entry.
const Wildcard = "*"

// ParseDevices returns the device IDs from exactly one of the two sources:
// an inline comma-separated list, or a file with one ID per line.
// In the file form, blank lines and lines starting with "#" are skipped.
func ParseDevices(inline, file string) ([]string, error) {
	if inline != "" && file != "" {
		return nil, fmt.Errorf("%w: provide only one of --devices or --devices-file", ErrConflictingInput)
	}

	switch {
	case inline != "":
		var devices []string
		for _, d := range strings.Split(inline, ",") {
			if d = strings.TrimSpace(d); d != "" {
				devices = append(devices, d)
			}
		}
		return devices, nil

	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading device file: %w", err)
		}
		var devices []string
		for _, ln := range strings.Split(string(data), "\n") {
			ln = strings.TrimSpace(ln)
			if ln == "" || strings.HasPrefix(ln, "#") {
				continue
			}
			devices = append(devices, ln)
		}
		return devices, nil
	}

	return nil, fmt.Errorf("%w: --devices or --devices-file is required", ErrNoSource)
}

// ParseTasks returns the device→task map from exactly one of the two
// sources: a single task applied to every device (stored under Wildcard),
// or a JSON file mapping device ID to task.
func ParseTasks(task, tasksJSON string) (map[string]string, error) {
	if task != "" && tasksJSON != "" {
		return nil, fmt.Errorf("%w: provide only one of --task or --tasks-json", ErrConflictingInput)
	}

	switch {
	case task != "":
		return map[string]string{Wildcard: task}, nil

	case tasksJSON != "":
		data, err := os.ReadFile(tasksJSON)
		if err != nil {
			return nil, fmt.Errorf("reading tasks file: %w", err)
		}
		tasks := map[string]string{}
		if err := json.Unmarshal(data, &tasks); err != nil {
			return nil, fmt.Errorf(`parsing tasks file (want {"device_id": "task", ...}): %w`, err)
		}
		return tasks, nil
	}

	return nil, fmt.Errorf("%w: --task or --tasks-json is required", ErrNoSource)
}

// Assignment is the immutable device→task mapping for one run.
// It preserves the input device order and is never mutated after Resolve.
type Assignment struct {
	devices []string
	tasks   map[string]string
}

// Resolve validates the device list and binds each device to its task.
// Duplicate devices are rejected before any task resolution happens.
// Each device gets its explicit entry if present, else the wildcard
// default; a device with neither fails the whole run.
func Resolve(devices []string, tasks map[string]string) (Assignment, error) {
	seen := make(map[string]bool, len(devices))
	for _, d := range devices {
		if seen[d] {
			return Assignment{}, &DuplicateDeviceError{Device: d}
		}
		seen[d] = true
	}

	resolved := make(map[string]string, len(devices))
	for _, d := range devices {
		task := tasks[d]
		if task == "" {
			task = tasks[Wildcard]
		}
		if task == "" {
			return Assignment{}, &MissingTaskError{Device: d}
		}
		resolved[d] = task
	}

	return Assignment{devices: append([]string(nil), devices...), tasks: resolved}, nil
}

// Devices returns the device IDs in input order. The slice is a copy.
func (a Assignment) Devices() []string {
	return append([]string(nil), a.devices...)
}

// Task returns the task bound to the given device.
func (a Assignment) Task(device string) string {
	return a.tasks[device]
}

// Len returns the number of devices in the assignment.
func (a Assignment) Len() int {
	return len(a.devices)
}
