// Package app wires graphstep's components from a configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/DrSkyle/graphstep/pkg/algo"
	"github.com/DrSkyle/graphstep/pkg/bridge"
	"github.com/DrSkyle/graphstep/pkg/config"
	"github.com/DrSkyle/graphstep/pkg/graph"
	"github.com/DrSkyle/graphstep/pkg/launcher"
	"github.com/DrSkyle/graphstep/pkg/script"
	"github.com/DrSkyle/graphstep/pkg/telemetry"
	"github.com/DrSkyle/graphstep/pkg/version"
)

// App holds every wired component.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Model    *graph.Graph
	Runtime  *script.Runtime
	Bridge   *bridge.Bridge
	Launcher *launcher.Launcher

	closers []func(context.Context) error
}

type options struct {
	logOutput io.Writer
}

type Option func(*options)

// WithLogOutput is where logs go when no log file is configured.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// New builds the components and loads the bootstrap scripts. Call Close
// when done.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger, logCloser, err := NewLogger(cfg.Log, o.logOutput)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Logger: logger}
	if logCloser != nil {
		a.closers = append(a.closers, func(context.Context) error { return logCloser.Close() })
	}

	if !cfg.Telemetry.Disabled {
		shutdown, err := telemetry.Init(ctx, version.AppName, version.Current, cfg.Telemetry.Endpoint)
		if err != nil {
			logger.Warn("Telemetry disabled", "error", err)
		} else {
			a.closers = append(a.closers, shutdown)
		}
	}

	mode := cfg.Mode()
	a.Model = graph.New(mode, graph.NodeID(cfg.Graph.StartID))
	a.Runtime, err = script.New(algo.Library(), script.WithLogger(logger), script.WithMode(mode))
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.Bridge = bridge.New(a.Model, a.Runtime, bridgeConfig(cfg),
		bridge.WithLogger(logger),
		bridge.WithTracer(telemetry.Tracer("bridge")),
		bridge.WithMeter(telemetry.Meter("bridge")),
	)
	a.Launcher = launcher.New(a.Bridge, launcher.WithLogger(logger))

	if err := a.Bootstrap(); err != nil {
		a.Close(ctx)
		return nil, err
	}
	logger.Info("graphstep ready",
		"version", version.Current,
		"mode", mode.String(),
		"algorithms", len(a.Runtime.Procedures()),
	)
	return a, nil
}

func bridgeConfig(cfg config.Config) bridge.Config {
	bc := bridge.DefaultConfig()
	bc.CleanBeforeRun = cfg.Playback.CleanBeforeRun
	bc.Curves = cfg.Graph.Curves
	bc.LayoutInterval = cfg.Layout.Interval
	bc.Spring = algo.SpringParams{
		Length:    cfg.Layout.Length,
		Stiffness: cfg.Layout.Stiffness,
		Repulsion: cfg.Layout.Repulsion,
		MaxStep:   cfg.Layout.MaxStep,
	}
	bc.ReloadPath = cfg.Scripts.Algorithms
	return bc
}

// scriptPaths pairs each bootstrap script with its configured override.
func (a *App) scriptPaths() map[string]string {
	return map[string]string{
		script.InitScript:       a.Config.Scripts.Init,
		script.GraphScript:      a.Config.Scripts.Graph,
		script.AlgorithmsScript: a.Config.Scripts.Algorithms,
	}
}

// Bootstrap loads init, graph and algorithms scripts in that order, each
// from its configured path or the embedded default, and runs the commands
// each one declares.
func (a *App) Bootstrap() error {
	paths := a.scriptPaths()
	for _, name := range script.BootstrapOrder {
		var (
			f   *script.File
			err error
		)
		if p := paths[name]; p != "" {
			f, err = a.Runtime.LoadFile(p)
		} else {
			f, err = a.Runtime.LoadDefault(name)
		}
		if err != nil {
			return fmt.Errorf("bootstrap %s: %w", name, err)
		}
		if err := a.Bridge.ExecCommands(f.Commands); err != nil {
			return fmt.Errorf("bootstrap %s: %w", name, err)
		}
		a.Logger.Debug("Script loaded", "script", f.Name, "commands", len(f.Commands))
	}
	return nil
}

// StartLayout starts the spring layout when the configuration asks for it.
func (a *App) StartLayout(ctx context.Context) {
	if a.Config.Layout.Spring {
		a.Bridge.StartLayout(ctx)
	}
}

// Close stops background work and flushes telemetry and logs.
func (a *App) Close(ctx context.Context) error {
	if a.Bridge != nil {
		a.Bridge.Abort()
		a.Bridge.StopLayout()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
