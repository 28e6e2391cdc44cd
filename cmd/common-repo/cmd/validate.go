package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edelwud/common-repo/internal/pipeline"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the manifest for schema and operator errors",
	Long: `Parse and validate the manifest without fetching anything.

This command will:
  - Parse either accepted manifest shape
  - Check glob patterns and rename rules for syntax errors
  - Enforce with-clause restrictions
  - Check merge directive fields

Exit code 2 signals a manifest error.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, _ []string) error {
	m, err := pipeline.LoadManifest(pipelineOptions())
	if err != nil {
		return err
	}

	fmt.Printf("manifest OK: %d operations, %d upstream repositories\n",
		len(m.Operations), len(m.Repos()))
	return nil
}
