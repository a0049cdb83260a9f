package internal

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/nuttyartist/notes/pkgs/buildsys"
	"github.com/nuttyartist/notes/pkgs/buildsys/qmake"
	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print qmk and Qt versions",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd.Context(), cmd.OutOrStdout(), &buildsys.ExecRunner{Stderr: io.Discard})
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func printVersion(ctx context.Context, w io.Writer, r buildsys.Runner) {
	fmt.Fprintf(w, "qmk %s %s/%s\n", mainVersion(), runtime.GOOS, runtime.GOARCH)
	qt, err := qmake.QtVersion(ctx, r)
	if err != nil {
		log.Warnf("qmake: %v", err)
		return
	}
	fmt.Fprintf(w, "Qt %s\n", qt)
}

func mainVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}
