package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edelwud/common-repo/internal/pipeline"
	"github.com/edelwud/common-repo/internal/writer"
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare the composed tree against the working directory",
	Long: `Resolve the manifest and report which working-directory files the
composed tree would create or update. Exits zero whether or not
differences exist; use apply --dry-run for a machine-usable plan.

Example:
  common-repo diff`,
	RunE: runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, _ []string) error {
	result, err := pipeline.Run(cmd.Context(), pipelineOptions())
	if err != nil {
		return err
	}

	clean := true
	for _, p := range result.Plan() {
		switch p.Action {
		case writer.ActionCreate:
			clean = false
			fmt.Printf("A %s\n", p.Path)
		case writer.ActionUpdate:
			clean = false
			fmt.Printf("M %s\n", p.Path)
		}
	}
	if clean {
		fmt.Println("working directory is up to date")
	}
	return nil
}
