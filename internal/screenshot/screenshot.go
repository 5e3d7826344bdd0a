// Package screenshot captures a device's screen over adb. Capture never
// fails outright: when the device refuses (sensitive screens such as
// payment pages) or adb errors, a deterministic black placeholder image
// of a fixed default resolution is returned instead.
package screenshot

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Fallback placeholder resolution, matching a common phone screen.
const (
	FallbackWidth  = 1080
	FallbackHeight = 2400
)

// Screenshot is one captured frame.
type Screenshot struct {
	PNG       []byte
	Width     int
	Height    int
	Sensitive bool // the device refused the capture (e.g. payment screen)
}

// Capturer captures screenshots through an adb binary.
type Capturer struct {
	ADB     string        // adb binary name or path; "adb" if empty
	Timeout time.Duration // per adb command; 10s if zero
}

func (c *Capturer) adb() string {
	if c.ADB != "" {
		return c.ADB
	}
	return "adb"
}

func (c *Capturer) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return 10 * time.Second
}

// args returns the adb argv prefix targeting the given device.
// An empty device relies on adb's single-device default.
func (c *Capturer) args(device string, rest ...string) []string {
	argv := []string{c.adb()}
	if device != "" {
		argv = append(argv, "-s", device)
	}
	return append(argv, rest...)
}

func (c *Capturer) run(ctx context.Context, timeout time.Duration, argv []string) ([]byte, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Capture grabs the current screen of the device. The fast path streams
// PNG bytes over exec-out; the legacy path writes to /sdcard and pulls.
// On any failure a black placeholder is returned, marked sensitive when
// the device reported a refused capture.
func (c *Capturer) Capture(ctx context.Context, device string) *Screenshot {
	// Fast path: stream PNG via exec-out, avoiding the /sdcard round trip.
	// Much faster, which matters when many devices run at once.
	stdout, _, err := c.run(ctx, c.timeout(), c.args(device, "exec-out", "screencap", "-p"))
	if err == nil && len(stdout) > 0 {
		if shot := decode(stdout); shot != nil {
			return shot
		}
	}

	// Legacy path: screencap to /sdcard, then pull.
	stdout, stderr, err := c.run(ctx, c.timeout(), c.args(device, "shell", "screencap", "-p", "/sdcard/tmp.png"))
	combined := string(stdout) + string(stderr)
	if strings.Contains(combined, "Status: -1") || strings.Contains(combined, "Failed") {
		return Fallback(true)
	}
	if err != nil {
		return Fallback(false)
	}

	local := filepath.Join(os.TempDir(), "screenshot_"+uuid.New().String()+".png")
	defer os.Remove(local)

	if _, _, err := c.run(ctx, 5*time.Second, c.args(device, "pull", "/sdcard/tmp.png", local)); err != nil {
		return Fallback(false)
	}
	data, err := os.ReadFile(local)
	if err != nil {
		return Fallback(false)
	}
	if shot := decode(data); shot != nil {
		return shot
	}
	return Fallback(false)
}

// decode validates PNG bytes and reads their dimensions.
func decode(data []byte) *Screenshot {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	return &Screenshot{PNG: data, Width: cfg.Width, Height: cfg.Height}
}

// Fallback builds the deterministic black placeholder screenshot.
func Fallback(sensitive bool) *Screenshot {
	img := image.NewRGBA(image.Rect(0, 0, FallbackWidth, FallbackHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	var buf bytes.Buffer
	// Encoding an in-memory RGBA cannot fail.
	_ = png.Encode(&buf, img)

	return &Screenshot{
		PNG:       buf.Bytes(),
		Width:     FallbackWidth,
		Height:    FallbackHeight,
		Sensitive: sensitive,
	}
}
