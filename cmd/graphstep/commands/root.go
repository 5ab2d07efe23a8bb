package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/DrSkyle/graphstep/internal/app"
	"github.com/DrSkyle/graphstep/pkg/config"
	"github.com/DrSkyle/graphstep/pkg/tui"
	"github.com/DrSkyle/graphstep/pkg/version"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	v       = config.New()
	readErr error
)

var rootCmd = &cobra.Command{
	Use:   "graphstep",
	Short: "Step through graph algorithms on a terminal canvas",
	Long: `graphstep - draw a graph, pick an algorithm, watch every step.

Nodes, edges and labels are drawn on the canvas; algorithms pause at each
step until you continue.`,
	Version:      version.String(),
	SilenceUsage: true,
	RunE:         runCanvas,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default $HOME/"+config.FileName+")")
	pf.String("mode", "undirected", "graph mode: undirected or directed")
	pf.String("algorithms", "", "algorithms script overriding the embedded one")
	pf.String("log-file", "", "write logs to a rotating file")
	pf.String("log-level", "info", "debug, info, warn or error")
	pf.Bool("log-json", false, "log as JSON")
	pf.Bool("no-telemetry", false, "do not set up tracing")
	pf.String("otel-endpoint", "", "OTLP HTTP endpoint for run spans")

	f := rootCmd.Flags()
	f.Bool("auto-step", false, "continue every step after --delay")
	f.Duration("delay", 0, "pause between automatic steps")
	f.Bool("spring", false, "start the spring layout")
	f.Bool("curves", false, "draw connections curved")

	for _, b := range []struct{ key, flag string }{
		{"graph.mode", "mode"},
		{"graph.curves", "curves"},
		{"scripts.algorithms", "algorithms"},
		{"log.file", "log-file"},
		{"log.level", "log-level"},
		{"log.json", "log-json"},
		{"telemetry.disabled", "no-telemetry"},
		{"telemetry.endpoint", "otel-endpoint"},
		{"playback.auto_step", "auto-step"},
		{"playback.delay", "delay"},
		{"layout.spring", "spring"},
	} {
		flag := pf.Lookup(b.flag)
		if flag == nil {
			flag = f.Lookup(b.flag)
		}
		if err := v.BindPFlag(b.key, flag); err != nil {
			panic(err)
		}
	}

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		renderHelp(cmd)
	})
}

func initConfig() {
	readErr = config.ReadFile(v, cfgFile)
}

func loadConfig() (config.Config, error) {
	if readErr != nil {
		return config.Config{}, readErr
	}
	return config.Load(v)
}

func runCanvas(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// The canvas owns the terminal: logs go to log.file or nowhere.
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	a.StartLayout(ctx)

	n := tui.NewNotifier()
	unsubscribe := a.Bridge.Subscribe(n)
	defer unsubscribe()

	m := tui.NewModel(ctx, a.Bridge, a.Launcher, tui.Options{
		AutoStep: cfg.Playback.AutoStep,
		Delay:    cfg.Playback.Delay,
		Logger:   a.Logger,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	go n.Run(ctx, p.Send)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("canvas: %w", err)
	}
	return nil
}
