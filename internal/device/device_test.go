package device

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseDevices_Inline(t *testing.T) {
	got, err := ParseDevices("a, b ,c,,", "")
	if err != nil {
		t.Fatalf("ParseDevices: %v", err)
	}
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("devices = %v, want %v", got, want)
	}
}

func TestParseDevices_File(t *testing.T) {
	path := writeFile(t, "devices.txt", "# fleet\n\ndevA\n  devB  \n\n# trailing\n")
	got, err := ParseDevices("", path)
	if err != nil {
		t.Fatalf("ParseDevices: %v", err)
	}
	want := []string{"devA", "devB"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("devices = %v, want %v", got, want)
	}
}

func TestParseDevices_BothSources(t *testing.T) {
	_, err := ParseDevices("a", "devices.txt")
	if !errors.Is(err, ErrConflictingInput) {
		t.Errorf("err = %v, want ErrConflictingInput", err)
	}
}

func TestParseDevices_NoSource(t *testing.T) {
	_, err := ParseDevices("", "")
	if !errors.Is(err, ErrNoSource) {
		t.Errorf("err = %v, want ErrNoSource", err)
	}
}

func TestParseDevices_MissingFile(t *testing.T) {
	_, err := ParseDevices("", filepath.Join(t.TempDir(), "absent.txt"))
	if err == nil {
		t.Fatal("expected error for missing device file")
	}
}

func TestParseTasks_Shared(t *testing.T) {
	got, err := ParseTasks("open settings", "")
	if err != nil {
		t.Fatalf("ParseTasks: %v", err)
	}
	if got[Wildcard] != "open settings" {
		t.Errorf("tasks[%q] = %q, want %q", Wildcard, got[Wildcard], "open settings")
	}
}

func TestParseTasks_JSON(t *testing.T) {
	path := writeFile(t, "tasks.json", `{"d1": "open app", "*": "default task"}`)
	got, err := ParseTasks("", path)
	if err != nil {
		t.Fatalf("ParseTasks: %v", err)
	}
	if got["d1"] != "open app" || got[Wildcard] != "default task" {
		t.Errorf("tasks = %v", got)
	}
}

func TestParseTasks_JSONNotObject(t *testing.T) {
	path := writeFile(t, "tasks.json", `["task1", "task2"]`)
	if _, err := ParseTasks("", path); err == nil {
		t.Fatal("expected error for non-object tasks JSON")
	}
}

func TestParseTasks_BothSources(t *testing.T) {
	_, err := ParseTasks("x", "tasks.json")
	if !errors.Is(err, ErrConflictingInput) {
		t.Errorf("err = %v, want ErrConflictingInput", err)
	}
}

func TestResolve_ExplicitOverWildcard(t *testing.T) {
	a, err := Resolve([]string{"d1", "d2"}, map[string]string{"d1": "open app", Wildcard: "default task"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := a.Task("d1"); got != "open app" {
		t.Errorf("Task(d1) = %q, want %q", got, "open app")
	}
	if got := a.Task("d2"); got != "default task" {
		t.Errorf("Task(d2) = %q, want %q", got, "default task")
	}
}

func TestResolve_DuplicateDevice(t *testing.T) {
	_, err := Resolve([]string{"a", "b", "a"}, map[string]string{Wildcard: "t"})
	var dup *DuplicateDeviceError
	if !errors.As(err, &dup) {
		t.Fatalf("err = %v, want DuplicateDeviceError", err)
	}
	if dup.Device != "a" {
		t.Errorf("Device = %q, want %q", dup.Device, "a")
	}
}

// Duplicate validation runs before task resolution: a duplicate list with an
// unresolvable device still reports the duplicate.
func TestResolve_DuplicateBeforeMissingTask(t *testing.T) {
	_, err := Resolve([]string{"x", "x", "orphan"}, map[string]string{"x": "t"})
	var dup *DuplicateDeviceError
	if !errors.As(err, &dup) {
		t.Fatalf("err = %v, want DuplicateDeviceError", err)
	}
}

func TestResolve_MissingTask(t *testing.T) {
	_, err := Resolve([]string{"d1", "d2"}, map[string]string{"d1": "t"})
	var missing *MissingTaskError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want MissingTaskError", err)
	}
	if missing.Device != "d2" {
		t.Errorf("Device = %q, want %q", missing.Device, "d2")
	}
}

func TestAssignment_DevicesIsCopy(t *testing.T) {
	a, err := Resolve([]string{"d1", "d2"}, map[string]string{Wildcard: "t"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	got := a.Devices()
	got[0] = "mutated"
	if a.Devices()[0] != "d1" {
		t.Error("Devices() must return a copy")
	}
}
