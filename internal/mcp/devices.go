package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type devicesParams struct{}

func (h *handler) devicesHandler(ctx context.Context, req *mcp.CallToolRequest, _ devicesParams) (*mcp.CallToolResult, any, error) {
	devices, err := h.capturer.ListDevices(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to list devices: %v", err))
	}
	if len(devices) == 0 {
		return textResult("No devices attached.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Devices (%d):\n", len(devices))
	for _, d := range devices {
		fmt.Fprintf(&b, "  %s: %s", d.ID, d.State)
		if d.Info != "" {
			fmt.Fprintf(&b, " (%s)", d.Info)
		}
		fmt.Fprintln(&b)
	}
	return textResult(b.String())
}

type screenshotParams struct {
	Device string `json:"device,omitempty" jsonschema:"adb device ID; may be omitted when exactly one device is attached"`
}

func (h *handler) screenshotHandler(ctx context.Context, req *mcp.CallToolRequest, params screenshotParams) (*mcp.CallToolResult, any, error) {
	shot := h.capturer.Capture(ctx, params.Device)

	caption := fmt.Sprintf("%dx%d", shot.Width, shot.Height)
	if shot.Sensitive {
		caption += " (capture refused by device; black placeholder, sensitive screen)"
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.ImageContent{Data: shot.PNG, MIMEType: "image/png"},
			&mcp.TextContent{Text: caption},
		},
	}, nil, nil
}
