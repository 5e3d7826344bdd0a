// Package mcp provides the fleet MCP server, exposing device runs,
// device listing, and screen capture as tools.
package mcp

import (
	_ "embed"
	"io"
	"os"

	"github.com/deixis/fleet"
	"github.com/deixis/fleet/internal/config"
	"github.com/deixis/fleet/internal/report"
	"github.com/deixis/fleet/internal/screenshot"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	cfg       *config.Config
	overrides *config.Overrides
	store     report.Store
	capturer  *screenshot.Capturer
	runOutput io.Writer // live multiplexed worker output; stderr by default
}

// NewServer creates an MCP server with all fleet tools registered.
func NewServer(cfg *config.Config, overrides *config.Overrides, store report.Store, opts ...ServerOption) *mcp.Server {
	h := &handler{
		cfg:       cfg,
		overrides: overrides,
		store:     store,
		capturer: &screenshot.Capturer{
			ADB:     cfg.ADB(),
			Timeout: cfg.CaptureTimeout(),
		},
		// Stdout carries the MCP protocol in stdio mode; worker output
		// streams to stderr so runs stay observable.
		runOutput: os.Stderr,
	}

	var so serverOptions
	for _, o := range opts {
		o(&so)
	}
	if so.runOutput != nil {
		h.runOutput = so.runOutput
	}

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "fleet", Version: fleet.Version}, mcpOpts)

	mcp.AddTool(s, &mcp.Tool{
		Name: "fleet_run",
		Description: `Run agent tasks across multiple devices in parallel, one isolated process per device.

Provide either a single task for all devices, or a tasks mapping keyed by device ID
("*" is the default task). Results are stored for drill-down via fleet_inspect.`,
	}, h.runHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "fleet_inspect",
		Description: "Drill into per-device outcomes from a previous fleet_run, by run_id.",
	}, h.inspectHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "fleet_devices",
		Description: "List adb-visible devices with their connection state.",
	}, h.devicesHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "fleet_screenshot",
		Description: `Capture the current screen of one device as a PNG image.

On sensitive screens (e.g. payment pages) the device refuses capture and a black
placeholder is returned with sensitive=true.`,
	}, h.screenshotHandler)

	return s
}

// ServerOption configures the fleet MCP server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	runOutput io.Writer
}

// WithRunOutput redirects the live multiplexed worker output stream.
func WithRunOutput(w io.Writer) ServerOption {
	return func(o *serverOptions) {
		o.runOutput = w
	}
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
