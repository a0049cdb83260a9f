package internal

import (
	"fmt"
	"io"

	"github.com/gookit/color"
	"github.com/nuttyartist/notes/internal/config"
	"github.com/nuttyartist/notes/pkgs/buildsys/qmake"
	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan [part...]",
	Short: "Print the commands build would run",
	RunE: func(cmd *cobra.Command, args []string) error {
		proj, parts, err := loadParts(args)
		if err != nil {
			return err
		}
		return printPlan(cmd.OutOrStdout(), proj, parts)
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func printPlan(w io.Writer, proj *config.Project, parts []config.Part) error {
	for _, part := range parts {
		bc := proj.BuildContext(part)
		step := &qmake.Step{
			Options: part.Options,
			Env:     part.Environment,
			Uses:    proj.UseDirs(part),
		}
		cmds, err := step.Plan(bc)
		if err != nil {
			return fmt.Errorf("part %s: %w", part.Name, err)
		}
		fmt.Fprintln(w, color.Comment.Sprintf("# %s: %s -> %s", part.Name, bc.SourceDir, bc.BuildDir))
		for _, c := range cmds {
			fmt.Fprintf(w, "(cd %s && %s)\n", c.Dir, c)
		}
	}
	return nil
}
