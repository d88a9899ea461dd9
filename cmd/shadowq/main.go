// CLAUDE:SUMMARY CLI entry point for shadowq: one-shot query and capture, HTTP API server, MCP stdio server.
// Command shadowq resolves shadow-piercing selectors against pages.
//
// Usage:
//
//	shadowq query   [flags] <source> <selector>   # print matches as JSON
//	shadowq capture [flags] <source>              # store a snapshot
//	shadowq serve   [flags]                       # HTTP API
//	shadowq mcp     [flags]                       # MCP over stdio
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/shadowq/internal/telemetry"
	"github.com/hazyhaar/shadowq/kit"
	"github.com/hazyhaar/shadowq/probe"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "query":
		err = cmdQuery(ctx, os.Args[2:])
	case "capture":
		err = cmdCapture(ctx, os.Args[2:])
	case "serve":
		err = cmdServe(ctx, os.Args[2:])
	case "mcp":
		err = cmdMCP(ctx, os.Args[2:])
	case "-h", "-help", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			color.New(color.FgRed).Fprintf(os.Stderr, "shadowq %s: %v\n", os.Args[1], err)
		}
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `shadowq — resolve CSS selectors across shadow DOM boundaries

usage:
  shadowq query   [flags] <source> <selector>
  shadowq capture [flags] <source>
  shadowq serve   [flags]
  shadowq mcp     [flags]

<source> is an http(s) URL, a file path, a snapshot ID (snap_...) or inline HTML.
In <selector>, '$' enters the shadow root of the element matched so far
('x-app$ nav a'), a trailing '$' selects the shadow root itself and ','
separates alternatives tried in order.

Run 'shadowq <command> -h' for the flags of a command.
`)
}

// common holds the flags every command accepts.
type common struct {
	configPath string
	dbPath     string
	logLevel   string
	remote     string
	otel       string
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "path to shadowq.yaml")
	fs.StringVar(&c.dbPath, "db", "", "snapshot database path (overrides config)")
	fs.StringVar(&c.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.StringVar(&c.remote, "remote", "", "attach to a running Chrome (ws:// URL or host:port)")
	fs.StringVar(&c.otel, "otel.endpoint", "", "OTLP/gRPC collector endpoint (overrides config)")
}

// service loads the configuration, applies flag overrides, sets up tracing
// and opens the service. The returned func releases both.
func (c *common) service(ctx context.Context) (*probe.Service, func(), error) {
	cfg := probe.DefaultConfig()
	if c.configPath != "" {
		loaded, err := probe.LoadConfigFile(c.configPath)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}
	if c.dbPath != "" {
		cfg.DBPath = c.dbPath
	}
	if c.remote != "" {
		cfg.Browser.RemoteURL = c.remote
	}
	if c.otel != "" {
		cfg.Telemetry.Endpoint = c.otel
	}
	cfg.Logger = newLogger(c.logLevel)
	slog.SetDefault(cfg.Logger)

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return nil, nil, err
	}
	svc, err := probe.Open(cfg)
	if err != nil {
		shutdown(context.Background())
		return nil, nil, err
	}
	return svc, func() {
		if err := svc.Close(); err != nil {
			cfg.Logger.Warn("shadowq: close", "error", err)
		}
		if err := shutdown(context.Background()); err != nil {
			cfg.Logger.Warn("shadowq: telemetry shutdown", "error", err)
		}
	}, nil
}

func newLogger(name string) *slog.Logger {
	var level slog.Level
	switch name {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// printJSON indents for a terminal and writes one line otherwise.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	if isatty.IsTerminal(os.Stdout.Fd()) {
		enc.SetIndent("", "  ")
	}
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func cmdQuery(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	var c common
	c.register(fs)
	var req probe.Request
	fs.StringVar(&req.Mode, "mode", probe.ModeQuery, "query, all, shadow, deep or deep-all")
	fs.StringVar(&req.Format, "format", "html", "html, text, markdown or safe-html")
	fs.BoolVar(&req.Live, "live", false, "resolve in a browser tab")
	fs.IntVar(&req.Retries, "retries", 0, "poll attempts per path step (0: no polling for static sources)")
	fs.StringVar(&req.Delay, "delay", "", "pause between attempts, e.g. 50ms")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("want <source> <selector>, got %d arguments", fs.NArg())
	}
	req.Source, req.Selector = fs.Arg(0), fs.Arg(1)

	svc, done, err := c.service(ctx)
	if err != nil {
		return err
	}
	defer done()

	ctx = kit.WithTransport(ctx, "cli")
	resp, err := svc.Resolve(ctx, &req)
	if err != nil {
		return err
	}
	if resp.Verdict != nil {
		color.New(color.FgYellow).Fprintf(os.Stderr,
			"no match; the page looks script-rendered (%s), retry with -live\n", resp.Verdict.Reason)
	}
	return printJSON(resp)
}

func cmdCapture(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("capture", flag.ContinueOnError)
	var c common
	c.register(fs)
	var req probe.CaptureRequest
	fs.BoolVar(&req.Live, "live", false, "capture from a browser tab")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("want <source>, got %d arguments", fs.NArg())
	}
	req.Source = fs.Arg(0)

	svc, done, err := c.service(ctx)
	if err != nil {
		return err
	}
	defer done()

	snap, err := svc.Capture(kit.WithTransport(ctx, "cli"), &req)
	if err != nil {
		return err
	}
	return printJSON(snap)
}

func cmdServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	var c common
	c.register(fs)
	listen := fs.String("listen", "", "listen address (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, done, err := c.service(ctx)
	if err != nil {
		return err
	}
	defer done()

	addr := svc.Config().Listen
	if *listen != "" {
		addr = *listen
	}
	logger := svc.Config().Logger

	srv := &http.Server{
		Addr:              addr,
		Handler:           svc.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      svc.Config().RequestTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("shadowq: listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shadowq: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func cmdMCP(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	var c common
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, done, err := c.service(ctx)
	if err != nil {
		return err
	}
	defer done()

	srv := mcp.NewServer(&mcp.Implementation{Name: "shadowq", Version: version}, nil)
	svc.RegisterMCP(srv)
	svc.Config().Logger.Info("shadowq: mcp on stdio")
	return srv.Run(ctx, &mcp.StdioTransport{})
}
