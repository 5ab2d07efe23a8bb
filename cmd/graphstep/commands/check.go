package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/DrSkyle/graphstep/pkg/algo"
	"github.com/DrSkyle/graphstep/pkg/scene"
	"github.com/DrSkyle/graphstep/pkg/script"
	"github.com/spf13/cobra"
)

var checkKind string

var checkCmd = &cobra.Command{
	Use:   "check FILE...",
	Short: "Validate script and scene files",
	Long: `Parse each file as an algorithm script or a scene and compile every
console command a script declares. Nothing is run.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := 0
		for _, path := range args {
			if err := checkFile(cmd.OutOrStdout(), path, checkKind); err != nil {
				bad.Fprintf(cmd.ErrOrStderr(), "FAIL %s: %v\n", path, err)
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(args))
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkKind, "kind", "auto", "file kind: script, scene or auto")
	rootCmd.AddCommand(checkCmd)
}

func checkFile(w io.Writer, path, kind string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch kind {
	case "script":
		return checkScript(w, path, src)
	case "scene":
		return checkScene(w, path, src)
	case "auto":
		scriptErr := checkScript(io.Discard, path, src)
		if scriptErr == nil {
			return checkScript(w, path, src)
		}
		sceneErr := checkScene(w, path, src)
		if sceneErr == nil {
			return nil
		}
		return errors.Join(
			fmt.Errorf("as script: %w", scriptErr),
			fmt.Errorf("as scene: %w", sceneErr),
		)
	}
	return fmt.Errorf("unknown kind %q", kind)
}

func checkScript(w io.Writer, path string, src []byte) error {
	rt, err := script.New(algo.Library())
	if err != nil {
		return err
	}
	// Algorithm scripts name palette colors from init.
	if _, err := rt.LoadDefault(script.InitScript); err != nil {
		return err
	}
	// Parse compiles every graph command.
	f, err := rt.Parse(path, src)
	if err != nil {
		return err
	}
	good.Fprintf(w, "OK   %s ", path)
	faint.Fprintf(w, "script: %d colors, %d algorithms, %d commands\n", len(f.Palette), len(f.Algorithms), len(f.Commands))
	return nil
}

func checkScene(w io.Writer, path string, src []byte) error {
	s, err := scene.Parse(path, src)
	if err != nil {
		return err
	}
	good.Fprintf(w, "OK   %s ", path)
	faint.Fprintf(w, "scene: %d nodes, %d links, %d runs\n", len(s.Nodes), len(s.Links), len(s.Runs))
	return nil
}
