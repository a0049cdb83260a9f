package internal

import (
	"fmt"
	"os"

	"github.com/gookit/color"
	"github.com/nuttyartist/notes/internal/config"
	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"
)

var (
	partsFile string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "qmk",
	Short: "qmk builds qmake projects part by part",
	Long: `qmk builds the parts listed in a qmk.yaml file. Each part is staged into
its own build directory, configured with qmake, built with make and installed
into a private install directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetOutputLevel(log.Ldebug)
		} else {
			log.SetOutputLevel(log.Lwarn)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&partsFile, "file", "f", config.DefaultFile, "Parts file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show tool output and debug logs")
}

// Execute runs the root command and exits 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.Danger.Sprintf("qmk: %v", err))
		os.Exit(1)
	}
}

// loadParts reads the parts file and picks the parts named in args.
func loadParts(args []string) (*config.Project, []config.Part, error) {
	proj, err := config.Load(partsFile)
	if err != nil {
		return nil, nil, err
	}
	parts, err := proj.Select(args)
	if err != nil {
		return nil, nil, err
	}
	return proj, parts, nil
}
