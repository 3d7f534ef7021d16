package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nixlim/pianod/internal/app"
	"github.com/nixlim/pianod/internal/config"
	"github.com/nixlim/pianod/internal/engine"
	"github.com/nixlim/pianod/internal/events"
	"github.com/nixlim/pianod/internal/metrics"
	"github.com/nixlim/pianod/internal/process"
	"github.com/nixlim/pianod/internal/registry"
	"github.com/nixlim/pianod/internal/scanner"
	"github.com/nixlim/pianod/internal/status"
	"github.com/nixlim/pianod/internal/tui"
)

type runFlags struct {
	console bool
	logFile string
}

func newRunCmd(global *globalFlags) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the appliance until signalled or powered off",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global.configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(global.debug, flags.console, flags.logFile)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, flags, logger)
		},
	}
	cmd.Flags().BoolVar(&flags.console, "console", false, "emulate the front panel in the terminal")
	cmd.Flags().StringVar(&flags.logFile, "log-file", "", "log destination while the console owns the terminal")
	return cmd
}

func run(ctx context.Context, cfg config.Config, flags *runFlags, logger *zap.Logger) error {
	logger.Info("pianod starting",
		zap.String("engine", cfg.Engine.Command),
		zap.Int("instruments", len(cfg.Instruments)),
		zap.Ints("channels", cfg.Engine.Channels),
	)

	if cfg.Engine.ReapStale {
		reaper := scanner.NewReaper(cfg.Engine.TerminateTimeout, logger.Named("scanner"))
		if _, err := reaper.Reap(cfg.Engine.Command); err != nil {
			logger.Warn("stale engine scan failed", zap.Error(err))
		}
	}

	sup := engine.NewSupervisor(cfg.EngineSettings(), cfg.Catalog(), process.NewExecHost(),
		engine.WithLogger(logger.Named("engine")),
	)
	reg := registry.New(cfg.RegistrySettings(), registry.WithLogger(logger.Named("registry")))

	hubOpts := []events.HubOption{events.WithHubLogger(logger.Named("events"))}
	if cfg.Events.NATSURL != "" {
		sink, err := events.NewNATSSink(cfg.Events.NATSURL, cfg.Events.NATSSubject, logger.Named("nats"))
		if err != nil {
			logger.Warn("event forwarding disabled", zap.String("url", cfg.Events.NATSURL), zap.Error(err))
		} else {
			hubOpts = append(hubOpts, events.WithSink(sink))
		}
	}
	hub := events.NewHub(cfg.Events.BufferSize, hubOpts...)

	m := metrics.New()
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Addr, logger.Named("metrics")); err != nil {
				logger.Error("metrics listener failed", zap.Error(err))
			}
		}()
	}

	indicators := status.Multi{status.NewLogIndicator(logger.Named("indicator"))}
	var console *tui.Console
	if flags.console {
		console = tui.NewConsole()
		indicators = append(indicators, console)
	}

	var power app.Shutdowner
	if cfg.Power.Enabled {
		power = app.ExecShutdowner{Command: cfg.Power.Command}
	}

	a := app.New(app.Settings{
		PollInterval:   cfg.MIDI.PollInterval,
		HealthInterval: cfg.Health.Interval,
		ReconnectDelay: cfg.Engine.ReconnectDelay,
		Debounce:       cfg.Buttons.Debounce,
		LongPress:      cfg.Buttons.LongPress,
		ResetHold:      cfg.Buttons.ResetHold,
		PowerOff:       cfg.Power.Enabled,
	}, app.Deps{
		Engine:    sup,
		Registry:  reg,
		Indicator: indicators,
		Hub:       hub,
		Metrics:   m,
		Power:     power,
	}, app.WithLogger(logger))

	if console == nil {
		err := a.Run(ctx)
		logger.Info("pianod stopped")
		return err
	}
	return runConsole(ctx, a, console, cfg)
}

// runConsole runs the appliance behind the terminal front panel. Quitting
// the console stops the appliance without powering off; a shutdown from
// the panel closes the console.
func runConsole(ctx context.Context, a *app.App, console *tui.Console, cfg config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() { _ = console.Run(ctx, a.HandleEdge) }()

	model := tui.NewModel(console,
		tui.WithStateProvider(a),
		tui.WithTiming(tui.DefaultTiming(cfg.Buttons.LongPress, cfg.Buttons.ResetHold)),
		tui.WithOnQuit(cancel),
	)
	p := tea.NewProgram(model, tea.WithAltScreen())

	appErr := make(chan error, 1)
	go func() {
		appErr <- a.Run(ctx)
		p.Quit()
	}()

	_, uiErr := p.Run()
	cancel()
	if err := <-appErr; err != nil {
		return err
	}
	return uiErr
}
