package device

import "fmt"

// ErrConflictingInput reports that both sources of a pair were supplied.
// Exactly one device source and one task source must be given.
var ErrConflictingInput = fmt.Errorf("conflicting input")

// ErrNoSource reports that neither source of a required pair was supplied.
var ErrNoSource = fmt.Errorf("missing input")

// DuplicateDeviceError reports a device ID that appears more than once in
// the device list.
type DuplicateDeviceError struct {
	Device string
}

func (e *DuplicateDeviceError) Error() string {
	return fmt.Sprintf("duplicate device ID %q; each device may appear only once", e.Device)
}

// MissingTaskError reports a device with no explicit task and no wildcard
// default to fall back to.
type MissingTaskError struct {
	Device string
}

func (e *MissingTaskError) Error() string {
	return fmt.Sprintf("no task for device %q (and no %q default task)", e.Device, Wildcard)
}
