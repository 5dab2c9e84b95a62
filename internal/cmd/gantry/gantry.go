// Package gantry parses the server command flags and runs the selected
// serving mode: MCP on stdio, the web application alone, or the
// integrated server combining both.
package gantry

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"

	"github.com/gantrylabs/gantry/internal/app"
	eventsqlite "github.com/gantrylabs/gantry/internal/events/sqlite"
	entrypoint "github.com/gantrylabs/gantry/internal/platform/cmd"
	"github.com/gantrylabs/gantry/internal/platform/config"
	"github.com/gantrylabs/gantry/internal/webserver"
)

// Config holds the server command configuration. String and int fields are
// flag overrides; zero values mean the flag was not set and the
// environment-derived settings apply.
type Config struct {
	Host       string
	Port       int
	LogLevel   string
	Token      string
	Transport  string
	EventsDB   string
	EnvFile    string
	NoEnvFile  bool
	Integrated bool
}

// ParseConfig parses flags into a Config. Flag values with a closed domain
// are validated here so a bad invocation fails before any setup work.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	fs.StringVar(&cfg.Host, "host", "", "host to bind the server to (default HOST or 0.0.0.0)")
	fs.IntVar(&cfg.Port, "port", 0, "port to bind the server to (default PORT or 8000)")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "logging level: "+strings.Join(config.LogLevels, ", "))
	fs.StringVar(&cfg.Token, "token", "", "API token (overrides API_TOKEN)")
	fs.StringVar(&cfg.Transport, "transport", "", "MCP transport: stdio, sse or http-streaming (default TRANSPORT or sse)")
	fs.StringVar(&cfg.EventsDB, "events-db", "", "path to the webhook event database (default EVENTS_DB_PATH or gantry.db)")
	fs.StringVar(&cfg.EnvFile, "env-file", "", "path to the .env file (default .env)")
	fs.BoolVar(&cfg.NoEnvFile, "no-env-file", false, "skip loading the .env file")
	fs.BoolVar(&cfg.Integrated, "integrated", false, "run in integrated mode (MCP + webhook server)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}

	if cfg.Transport != "" {
		if _, err := app.ParseTransport(cfg.Transport); err != nil {
			return Config{}, err
		}
	}
	if cfg.LogLevel != "" && !config.ValidLogLevel(cfg.LogLevel) {
		return Config{}, fmt.Errorf("invalid log level: %q (must be one of: %s)", cfg.LogLevel, strings.Join(config.LogLevels, ", "))
	}
	if cfg.Port != 0 && (cfg.Port < 1 || cfg.Port > 65535) {
		return Config{}, fmt.Errorf("port %d out of range 1-65535", cfg.Port)
	}
	return cfg, nil
}

// loadSettings resolves settings from the environment and applies the flag
// overrides from cfg.
func loadSettings(cfg Config) (*config.Settings, error) {
	settings, err := config.Load(config.LoadOptions{
		EnvFile:         cfg.EnvFile,
		EnvFileExplicit: cfg.EnvFile != "",
		SkipEnvFile:     cfg.NoEnvFile,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Host != "" {
		settings.Host = cfg.Host
	}
	if cfg.Port != 0 {
		settings.Port = cfg.Port
	}
	if cfg.LogLevel != "" {
		settings.LogLevel = cfg.LogLevel
	}
	if cfg.Token != "" {
		settings.APIToken = cfg.Token
	}
	if cfg.Transport != "" {
		settings.Transport = cfg.Transport
	}
	if cfg.EventsDB != "" {
		settings.EventsDBPath = cfg.EventsDB
	}
	return settings, nil
}

// Run starts the server in the mode selected by cfg and blocks until ctx
// ends or the server stops.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceGantry, func(ctx context.Context) error {
		return run(ctx, cfg)
	})
}

func run(ctx context.Context, cfg Config) error {
	settings, err := loadSettings(cfg)
	if err != nil {
		// A broken environment aborts the start attempt without failing
		// the process; the message tells the operator what to fix.
		log.Printf("load configuration: %v", err)
		return nil
	}

	transport, err := app.ParseTransport(settings.Transport)
	if err != nil {
		return err
	}

	journal, err := eventsqlite.Open(ctx, settings.EventsDBPath)
	if err != nil {
		return fmt.Errorf("open event journal: %w", err)
	}
	defer func() {
		if err := journal.Close(); err != nil {
			log.Printf("close event journal: %v", err)
		}
	}()

	application, err := app.New(settings, app.Deps{Events: journal})
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(settings.Host, strconv.Itoa(settings.Port))

	switch {
	case cfg.Integrated:
		return runIntegrated(ctx, application, settings, transport, addr)
	case transport == app.TransportStdio:
		return runStdio(ctx, application)
	default:
		return runWeb(ctx, application, addr)
	}
}

// runIntegrated serves the web application with the protocol adapter
// mounted into it.
func runIntegrated(ctx context.Context, application *app.App, settings *config.Settings, transport app.Transport, addr string) error {
	composed, err := application.Integrated.Create(ctx, app.IntegratedOptions{
		Token:     settings.APIToken,
		Transport: transport,
	})
	if err != nil {
		return fmt.Errorf("create integrated server: %w", err)
	}

	server, err := webserver.NewServer(addr, composed)
	if err != nil {
		return fmt.Errorf("init integrated server: %w", err)
	}
	defer server.Close()

	log.Printf("starting integrated server (MCP + webhook) with %s transport on %s", transport, addr)
	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve integrated: %w", err)
	}
	return nil
}

// runStdio serves the protocol on the process pipes.
func runStdio(ctx context.Context, application *app.App) error {
	server, err := application.MCP.Ensure(app.MCPOptions{})
	if err != nil {
		return fmt.Errorf("create MCP server: %w", err)
	}

	log.Printf("starting MCP server with stdio transport")
	return server.RunStdio(ctx)
}

// runWeb serves the web application alone: the liveness endpoint and the
// webhook service, without a mounted protocol adapter.
func runWeb(ctx context.Context, application *app.App, addr string) error {
	webApp, err := application.Web.Ensure()
	if err != nil {
		return fmt.Errorf("create web server: %w", err)
	}

	server, err := webserver.NewServer(addr, webApp)
	if err != nil {
		return fmt.Errorf("init web server: %w", err)
	}
	defer server.Close()

	log.Printf("starting web server on %s", addr)
	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve web: %w", err)
	}
	return nil
}
