// Command fleet runs phone-agent tasks across many devices in parallel,
// one isolated agent process per device.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"

	"github.com/deixis/fleet"
	"github.com/deixis/fleet/internal/config"
	"github.com/deixis/fleet/internal/device"
	fleetmcp "github.com/deixis/fleet/internal/mcp"
	"github.com/deixis/fleet/internal/mux"
	"github.com/deixis/fleet/internal/orchestrator"
	"github.com/deixis/fleet/internal/report"
	"github.com/deixis/fleet/internal/runner"
	"github.com/deixis/fleet/internal/screenshot"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/pflag"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("fleet: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "run":
		err = runMain(args)
	case "devices":
		err = devicesMain(args)
	case "screenshot":
		err = screenshotMain(args)
	case "mcp":
		err = mcpMain(args)
	case "version":
		fmt.Println(fleet.Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "fleet: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: fleet <command> [flags]

Commands:
  run         Run a task on multiple devices in parallel
  devices     List adb-visible devices
  screenshot  Capture one device's screen to a PNG file
  mcp         Start the MCP server
  version     Print the version
  help        Show this help

Use "fleet <command> -h" for command-specific flags.`)
}

// --- run ---

func runMain(args []string) error {
	fs := pflag.NewFlagSet("run", pflag.ExitOnError)
	devicesFlag := fs.String("devices", "", "comma-separated device IDs")
	devicesFile := fs.String("devices-file", "", "file with one device ID per line (# comments, blanks skipped)")
	taskFlag := fs.String("task", "", "same task for all devices")
	tasksJSON := fs.String("tasks-json", "", `JSON file mapping device ID to task ("*" is the default task)`)
	maxParallel := fs.Int("max-parallel", 0, "max concurrent agent processes (default from .fleet, else 2)")
	agentFlag := fs.StringSlice("agent", nil, "agent argv prefix (default from .fleet)")
	baseURL := fs.String("base-url", "", "model API base URL, forwarded to each agent")
	model := fs.String("model", "", "model name, forwarded to each agent")
	adbDelay := fs.Float64("adb-delay", 0, "seconds between adb commands, forwarded to each agent")
	captureTimeout := fs.Int("screenshot-timeout", 0, "screenshot timeout in seconds, forwarded to each agent")
	quiet := fs.Bool("quiet", false, "forward --quiet to each agent")
	lang := fs.String("lang", "", "agent language, cn or en")
	_ = fs.Parse(args)

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determining working directory: %w", err)
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// The override set is assembled exactly once, here. Environment
	// fallbacks happen at this point and nowhere else.
	overrides := &config.Overrides{
		BaseURL: *baseURL,
		Model:   *model,
		Quiet:   *quiet,
		Lang:    *lang,
	}
	if fs.Changed("adb-delay") {
		overrides.ADBDelay = adbDelay
	}
	if fs.Changed("screenshot-timeout") {
		overrides.CaptureTimeout = captureTimeout
	}
	overrides.ApplyEnv(os.LookupEnv)
	if err := overrides.Validate(); err != nil {
		return err
	}

	// All validation happens before any worker spawns.
	devs, err := device.ParseDevices(*devicesFlag, *devicesFile)
	if err != nil {
		return err
	}
	tasks, err := device.ParseTasks(*taskFlag, *tasksJSON)
	if err != nil {
		return err
	}
	asn, err := device.Resolve(devs, tasks)
	if err != nil {
		return err
	}

	agent := cfg.Agent()
	if len(*agentFlag) > 0 {
		agent = *agentFlag
	}
	parallel := *maxParallel
	if !fs.Changed("max-parallel") {
		parallel = cfg.MaxParallel()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	launcher := &runner.Launcher{Agent: agent, Extra: overrides.Args()}
	orch := &orchestrator.Orchestrator{
		Assignment:  asn,
		MaxParallel: parallel,
		Sink:        mux.NewSink(os.Stdout, os.Stderr),
		Start: func(ctx context.Context, deviceID, task string) (orchestrator.Proc, error) {
			return launcher.Start(ctx, deviceID, task)
		},
	}

	res := orch.Run(ctx)

	switch {
	case ctx.Err() != nil:
		os.Exit(130)
	case !res.OK():
		os.Exit(1)
	}
	return nil
}

// --- devices ---

func devicesMain(args []string) error {
	fs := pflag.NewFlagSet("devices", pflag.ExitOnError)
	_ = fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c, err := newCapturer()
	if err != nil {
		return err
	}
	devices, err := c.ListDevices(ctx)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("no devices attached")
		return nil
	}
	for _, d := range devices {
		if d.Info != "" {
			fmt.Printf("%-24s %-14s %s\n", d.ID, d.State, d.Info)
		} else {
			fmt.Printf("%-24s %s\n", d.ID, d.State)
		}
	}
	return nil
}

// --- screenshot ---

func screenshotMain(args []string) error {
	fs := pflag.NewFlagSet("screenshot", pflag.ExitOnError)
	deviceFlag := fs.StringP("device", "d", "", "adb device ID (optional with a single attached device)")
	out := fs.StringP("out", "o", "screenshot.png", "output PNG path")
	_ = fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c, err := newCapturer()
	if err != nil {
		return err
	}
	shot := c.Capture(ctx, *deviceFlag)
	if err := os.WriteFile(*out, shot.PNG, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", *out, err)
	}

	fmt.Printf("%s %dx%d\n", *out, shot.Width, shot.Height)
	if shot.Sensitive {
		fmt.Println("capture refused by device (sensitive screen); wrote black placeholder")
	}
	return nil
}

func newCapturer() (*screenshot.Capturer, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determining working directory: %w", err)
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &screenshot.Capturer{ADB: cfg.ADB(), Timeout: cfg.CaptureTimeout()}, nil
}

// --- mcp ---

func mcpMain(args []string) error {
	fs := pflag.NewFlagSet("mcp", pflag.ExitOnError)
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	httpAddr := fs.String("http", "", "start HTTP server on address (e.g. :9090)")
	_ = fs.Parse(args)

	if *instructions {
		fmt.Print(fleetmcp.Instructions)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determining working directory: %w", err)
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	overrides := &config.Overrides{}
	overrides.ApplyEnv(os.LookupEnv)

	store := report.NewMemStore(5, report.NewDiskStore())
	server := fleetmcp.NewServer(cfg, overrides, store)

	if *httpAddr != "" {
		return serveHTTP(ctx, server, *httpAddr)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
