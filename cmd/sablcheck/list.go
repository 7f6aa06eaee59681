package main

import (
	"fmt"
	"strings"

	"github.com/copyleftdev/sablcheck/internal/scenario"
	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	var (
		scenariosDir string
		showSteps    bool
	)
	cmd := &cobra.Command{
		Use:   "list [scenario|tag:<name>...]",
		Short: "List built-in and loaded scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if scenariosDir != "" {
				cfg.Scenarios.Dir = scenariosDir
			}
			catalog, err := scenario.LoadCatalog(cfg.Scenarios.Dir)
			if err != nil {
				return err
			}
			selected, err := catalog.Select(args...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			width := 0
			for _, sc := range selected {
				width = max(width, len(sc.ID))
			}
			for _, sc := range selected {
				line := fmt.Sprintf("%-*s  %2d steps", width, sc.ID, len(sc.Steps))
				if len(sc.Tags) > 0 {
					line += "  [" + strings.Join(sc.Tags, ", ") + "]"
				}
				if sc.Description != "" {
					line += "  " + sc.Description
				}
				fmt.Fprintln(out, line)
				if showSteps {
					for i, st := range sc.Steps {
						fmt.Fprintf(out, "    %2d  %s\n", i, st)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&scenariosDir, "scenarios-dir", "", "directory of extra YAML scenario files")
	cmd.Flags().BoolVar(&showSteps, "steps", false, "print every step")
	return cmd
}
