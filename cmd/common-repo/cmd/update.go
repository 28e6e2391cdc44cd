package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edelwud/common-repo/internal/pipeline"
	"github.com/edelwud/common-repo/internal/update"
)

var (
	updateLatest bool
	updateFilter string
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update pinned refs in the manifest",
	Long: `Rewrite the ref pins of upstream repositories in the manifest.

By default each semver pin moves to the highest compatible tag (same
major version). GitHub repositories are queried through the API
(honoring GITHUB_TOKEN); everything else is asked via git ls-remote.

Examples:
  # Compatible updates for every repo
  common-repo update

  # Jump to the newest tag regardless of compatibility
  common-repo update --latest

  # Only update matching repos
  common-repo update --filter "github.com/acme/*"`,
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().BoolVar(&updateLatest, "latest", false, "move to the highest tag instead of the highest compatible one")
	updateCmd.Flags().StringVar(&updateFilter, "filter", "", "glob over <host>/<owner>/<repo>[/<path>]")
}

func runUpdate(cmd *cobra.Command, _ []string) error {
	path := pipeline.ManifestPath(cfgFile, workDir)
	changes, err := update.Run(cmd.Context(), path, update.Options{
		Latest: updateLatest,
		Filter: updateFilter,
	})
	if err != nil {
		return err
	}

	if len(changes) == 0 {
		fmt.Println("all refs are up to date")
		return nil
	}
	for _, c := range changes {
		fmt.Printf("%s: %s -> %s\n", c.URL, c.OldRef, c.NewRef)
	}
	return nil
}
