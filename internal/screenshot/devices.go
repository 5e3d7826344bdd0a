package screenshot

import (
	"context"
	"fmt"
	"strings"
)

// Device is one entry from `adb devices -l`.
type Device struct {
	ID    string
	State string // device, offline, unauthorized, ...
	Info  string // trailing key:value description, if any
}

// ListDevices enumerates adb-visible devices.
func (c *Capturer) ListDevices(ctx context.Context) ([]Device, error) {
	stdout, stderr, err := c.run(ctx, c.timeout(), []string{c.adb(), "devices", "-l"})
	if err != nil {
		return nil, fmt.Errorf("adb devices: %w (%s)", err, strings.TrimSpace(string(stderr)))
	}
	return parseDeviceList(string(stdout)), nil
}

// parseDeviceList parses `adb devices -l` output. The header line and
// blanks are skipped; each remaining line is "<id> <state> [info...]".
func parseDeviceList(out string) []Device {
	var devices []Device
	for _, ln := range strings.Split(out, "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" || strings.HasPrefix(ln, "List of devices") || strings.HasPrefix(ln, "*") {
			continue
		}
		fields := strings.Fields(ln)
		if len(fields) < 2 {
			continue
		}
		devices = append(devices, Device{
			ID:    fields[0],
			State: fields[1],
			Info:  strings.Join(fields[2:], " "),
		})
	}
	return devices
}
