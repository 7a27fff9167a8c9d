// assist - a terminal client for help assistants.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/assist-tui/internal/api"
	"github.com/jeranaias/assist-tui/internal/cli"
	"github.com/jeranaias/assist-tui/internal/config"
	"github.com/jeranaias/assist-tui/internal/logging"
	"github.com/jeranaias/assist-tui/internal/metrics"
	"github.com/jeranaias/assist-tui/internal/session"
	"github.com/jeranaias/assist-tui/internal/storage"
	"github.com/jeranaias/assist-tui/internal/ui/app"
	"github.com/jeranaias/assist-tui/internal/ui/components"
	"github.com/jeranaias/assist-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	cmd, args := cli.Parse(argv)

	// Help and version need nothing else.
	switch cmd {
	case cli.CmdHelp, cli.CmdVersion:
		return cli.Main(context.Background(), &cli.Env{Out: os.Stdout, Err: os.Stderr}, cmd, args)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd, args)
	if err != nil {
		cli.DisplayError(errWriter(args), cmd.String(), err, args.JSON)
		return cli.ExitConfigError
	}

	tui := cmd == cli.CmdTUI
	var chatID int64
	if cmd == cli.CmdChat {
		id, plain, err := cli.ChatTarget(args)
		if err != nil {
			cli.DisplayError(errWriter(args), cmd.String(), err, args.JSON)
			return cli.GetExitCode(err)
		}
		// Piped input or output can't drive the TUI.
		chatID, tui = id, !plain && cli.IsTTY() && cli.IsStdoutTTY()
	}

	log, closeLog := setupLogging(cfg, args, tui)
	defer closeLog()
	logging.SetDefault(log)

	m := metrics.New()
	if cfg.Metrics.Enabled {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.ListenAddr); err != nil {
				log.Warn().Err(err).Str("addr", cfg.Metrics.ListenAddr).Msg("metrics endpoint stopped")
			}
		}()
	}

	storePath, err := cfg.StorePath()
	if err != nil {
		cli.DisplayError(errWriter(args), cmd.String(), err, args.JSON)
		return cli.ExitConfigError
	}
	kv, err := storage.Open(storePath)
	if err != nil {
		cli.DisplayError(errWriter(args), cmd.String(), err, args.JSON)
		return cli.ExitGeneralError
	}
	defer kv.Close()

	store := session.New(kv)
	if err := store.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("could not restore session")
	}

	client := api.NewClient(cfg.API.BaseURL, store).
		WithTimeout(cfg.Timeout()).
		WithRateLimit(cfg.API.RequestsPerSec).
		WithUserAgent(cfg.API.UserAgent + "/" + Version).
		WithLogger(log.Component("api")).
		WithMetrics(m)
	store.Attach(client)

	log.Debug().
		Str("command", cmd.String()).
		Str("api", cfg.API.BaseURL).
		Bool("authenticated", store.IsAuthenticated()).
		Msg("starting")

	if tui {
		start := session.RouteLanding
		if chatID > 0 {
			start = session.RouteChat
		}
		return runTUI(ctx, app.Deps{
			Ctx:            ctx,
			Session:        store,
			Client:         client,
			Theme:          styles.NewTheme(cfg.UI.Theme),
			Toasts:         components.NewToastManager(),
			Metrics:        m,
			Log:            log,
			RevealInterval: cfg.RevealInterval(),
			Debounce:       cfg.Debounce(),
		}, start, chatID)
	}

	return cli.Main(ctx, cli.NewEnv(cfg, store, client, log), cmd, args)
}

// loadConfig reads the config file and applies --api. The config command
// still runs on defaults when the file is broken, so it can be repaired.
func loadConfig(cmd cli.Command, args cli.Args) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		if cmd != cli.CmdConfig {
			return nil, err
		}
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		cfg = config.Default()
		cfg.ApplyEnvOverrides()
	}
	if args.APIURL != "" {
		cfg.API.BaseURL = args.APIURL
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// setupLogging logs to the log file. --verbose switches CLI commands to
// pretty debug output on stderr; the TUI owns the terminal, so it always
// logs to the file.
func setupLogging(cfg *config.Config, args cli.Args, tui bool) (*logging.Logger, func()) {
	if args.Verbose && !tui {
		return logging.New(logging.Config{Level: "debug", Pretty: true, Output: os.Stderr}), func() {}
	}

	level := cfg.Log.Level
	if args.Verbose {
		level = "debug"
	}
	path, err := cfg.LogPath()
	if err != nil {
		return logging.Nop(), func() {}
	}
	f, err := logging.OpenFile(path)
	if err != nil {
		return logging.Nop(), func() {}
	}
	return logging.New(logging.Config{Level: level, Output: f, WithCaller: args.Verbose}), func() { f.Close() }
}

func runTUI(ctx context.Context, deps app.Deps, start session.Route, assistantID int64) int {
	p := tea.NewProgram(
		app.New(deps, start, assistantID),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		return cli.ExitGeneralError
	}
	return cli.ExitSuccess
}

// errWriter is where startup failures go: stdout for --json so the
// envelope is machine-readable, stderr otherwise.
func errWriter(args cli.Args) io.Writer {
	if args.JSON {
		return os.Stdout
	}
	return os.Stderr
}
