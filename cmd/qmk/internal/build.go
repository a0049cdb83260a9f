package internal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/gookit/color"
	"github.com/nuttyartist/notes/internal/archive"
	"github.com/nuttyartist/notes/internal/build"
	"github.com/nuttyartist/notes/pkgs/buildsys"
	"github.com/spf13/cobra"
)

var (
	buildJobs   int
	buildForce  bool
	buildOutput string
)

var buildCmd = &cobra.Command{
	Use:   "build [part...]",
	Short: "Build parts with qmake and make",
	Long: `Build stages, configures, builds and installs the named parts, or every
part when none is named. Parts whose inputs did not change since the last
build are served from the cache.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().IntVarP(&buildJobs, "jobs", "j", 0, "Parallel make jobs (overrides parallel-build-count)")
	buildCmd.Flags().BoolVar(&buildForce, "force", false, "Rebuild even when the cache is fresh")
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "Write the last part's install tree to a directory or archive (.zip, .tar.gz, .tgz, .tar.xz, .tar.zst)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	proj, parts, err := loadParts(args)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("jobs") {
		if buildJobs < 1 {
			return fmt.Errorf("%w: -j %d", buildsys.ErrParallel, buildJobs)
		}
		proj.Parallel = buildJobs
	}

	// Resolve output path to absolute before build
	output := buildOutput
	if output != "" {
		if output, err = filepath.Abs(output); err != nil {
			return fmt.Errorf("failed to resolve output path: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner, toolLog := newRunner(verbose)
	builder, err := build.NewBuilder(build.Options{
		Project: proj,
		Runner:  runner,
		Force:   buildForce,
	})
	if err != nil {
		return fmt.Errorf("failed to create builder: %w", err)
	}

	results, err := builder.Build(ctx, parts)
	printResults(cmd.OutOrStdout(), results)
	if err != nil {
		if toolLog != nil && toolLog.Len() > 0 {
			cmd.PrintErrln(toolLog.String())
		}
		return err
	}

	if output != "" && len(results) > 0 {
		last := results[len(results)-1]
		if err := archive.Write(last.OutputDir, output); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.Info.Sprint("wrote"), output)
	}
	return nil
}

// newRunner returns the runner used for tool processes. Unless verbose is
// set, tool stdout is dropped and stderr is kept to be shown on failure.
func newRunner(verbose bool) (buildsys.Runner, *bytes.Buffer) {
	if verbose {
		return &buildsys.ExecRunner{}, nil
	}
	var stderr bytes.Buffer
	return &buildsys.ExecRunner{Stdout: io.Discard, Stderr: &stderr}, &stderr
}

func printResults(w io.Writer, results []build.Result) {
	for _, r := range results {
		state := color.Success.Sprint("built ")
		if r.Cached {
			state = color.Info.Sprint("cached")
		}
		fmt.Fprintf(w, "%s %s: %d files in %s\n", state, r.Part, len(r.Manifest), r.OutputDir)
	}
}
