package internal

import (
	"github.com/nuttyartist/notes/internal/build"
	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [part...]",
	Short: "Remove build and install directories of parts",
	RunE: func(cmd *cobra.Command, args []string) error {
		proj, parts, err := loadParts(args)
		if err != nil {
			return err
		}
		builder, err := build.NewBuilder(build.Options{Project: proj})
		if err != nil {
			return err
		}
		return builder.Clean(parts)
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
