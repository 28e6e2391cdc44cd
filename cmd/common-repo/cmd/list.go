package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edelwud/common-repo/internal/pipeline"
)

var listOrigins bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the files the manifest would produce",
	Long: `Resolve the manifest and list every output path of the composed
tree, without touching the working directory.

Examples:
  common-repo list
  common-repo list --origins`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolVar(&listOrigins, "origins", false, "show the repository each file comes from")
}

func runList(cmd *cobra.Command, _ []string) error {
	result, err := pipeline.Run(cmd.Context(), pipelineOptions())
	if err != nil {
		return err
	}
	for _, f := range result.Composite.Files() {
		if listOrigins {
			fmt.Printf("%-50s %s\n", f.Path, f.Origin)
		} else {
			fmt.Println(f.Path)
		}
	}
	return nil
}
