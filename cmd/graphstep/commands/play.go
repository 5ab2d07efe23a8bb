package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/DrSkyle/graphstep/internal/app"
	"github.com/DrSkyle/graphstep/pkg/bridge"
	"github.com/DrSkyle/graphstep/pkg/scene"
	"github.com/DrSkyle/graphstep/pkg/storage"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	good  = color.New(color.FgGreen)
	bad   = color.New(color.FgRed)
	warn  = color.New(color.FgYellow)
	info  = color.New(color.FgCyan)
	faint = color.New(color.FgHiBlack)
)

var (
	playOutput  string
	playDelay   time.Duration
	playArchive string
)

var playCmd = &cobra.Command{
	Use:   "play [scene.hcl]",
	Short: "Play a scene without the canvas and print the command trace",
	Long: `Build the graph a scene file describes, run its algorithms to the end and
print every command the bridge emitted. Without a file the built-in demo
scene is played.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		s := scene.Demo()
		if len(args) == 1 {
			if s, err = scene.Load(args[0]); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		a, err := app.New(ctx, cfg, app.WithLogOutput(cmd.ErrOrStderr()))
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		o := playOptions{
			format: playOutput,
			delay:  playDelay,
			out:    cmd.OutOrStdout(),
			errOut: cmd.ErrOrStderr(),
		}
		if playArchive != "" {
			if o.store, err = storage.Open(ctx, playArchive); err != nil {
				return err
			}
		}
		return play(ctx, a, s, o)
	},
}

func init() {
	playCmd.Flags().StringVarP(&playOutput, "output", "o", "text", "trace format: text, json or yaml")
	playCmd.Flags().DurationVar(&playDelay, "delay", 0, "pause before answering each step")
	playCmd.Flags().StringVar(&playArchive, "archive", "", "also keep the JSON trace in this directory or s3://bucket/prefix")
	rootCmd.AddCommand(playCmd)
}

type playOptions struct {
	format string
	delay  time.Duration
	out    io.Writer
	errOut io.Writer
	store  storage.Store // optional trace archive
}

// autoContinue answers every wait, after delay when one is set.
func autoContinue(b *bridge.Bridge, delay time.Duration) func() {
	return b.Subscribe(bridge.ObserverFunc(func(c bridge.Command) {
		if c.Kind != bridge.CmdWait {
			return
		}
		if delay <= 0 {
			b.ContinueWait(c.Seq)
			return
		}
		seq := c.Seq
		time.AfterFunc(delay, func() { b.ContinueWait(seq) })
	}))
}

func play(ctx context.Context, a *app.App, s *scene.Scene, o playOptions) error {
	switch o.format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q", o.format)
	}

	rec := bridge.NewRecorder()
	defer a.Bridge.Subscribe(rec)()
	defer autoContinue(a.Bridge, o.delay)()

	results, playErr := scene.NewPlayer(a.Bridge, a.Launcher, a.Logger).Play(ctx, s)

	var err error
	switch o.format {
	case "json":
		err = rec.WriteJSON(o.out)
	case "yaml":
		err = rec.WriteYAML(o.out)
	default:
		err = writeTrace(o.out, rec.Commands())
	}
	if err != nil {
		return fmt.Errorf("failed to write trace: %w", err)
	}
	if playErr != nil {
		return playErr
	}
	if o.store != nil {
		key, err := archive(ctx, o.store, s, results, rec)
		if err != nil {
			return err
		}
		faint.Fprintf(o.errOut, "trace archived as %s\n", key)
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			bad.Fprintf(o.errOut, "FAIL %s %s: %v\n", r.Algorithm, faint.Sprint(r.RunID), r.Err)
			continue
		}
		good.Fprintf(o.errOut, "OK   %s %s\n", r.Algorithm, faint.Sprint(r.RunID))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d runs failed", failed, len(results))
	}
	return nil
}

func writeTrace(w io.Writer, cmds []bridge.Command) error {
	for _, c := range cmds {
		line := c.String()
		var err error
		switch c.Kind {
		case bridge.CmdWait, bridge.CmdResume:
			_, err = warn.Fprintln(w, line)
		case bridge.CmdRunStarted, bridge.CmdRunFinished:
			if c.Err != nil {
				_, err = bad.Fprintln(w, line)
			} else {
				_, err = info.Fprintln(w, line)
			}
		case bridge.CmdShowMessage:
			_, err = good.Fprintln(w, line)
		default:
			_, err = fmt.Fprintln(w, line)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// archive stores the JSON trace as <scene>/<first run id>.json.
func archive(ctx context.Context, st storage.Store, s *scene.Scene, results []scene.Result, rec *bridge.Recorder) (string, error) {
	var buf bytes.Buffer
	if err := rec.WriteJSON(&buf); err != nil {
		return "", err
	}
	id := time.Now().UTC().Format("20060102T150405")
	if len(results) > 0 {
		id = results[0].RunID
	}
	key := strings.TrimSuffix(filepath.Base(s.Name), filepath.Ext(s.Name)) + "/" + id + ".json"
	if err := st.Put(ctx, key, buf.Bytes()); err != nil {
		return "", fmt.Errorf("failed to archive trace: %w", err)
	}
	return key, nil
}
