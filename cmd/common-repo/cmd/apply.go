package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edelwud/common-repo/internal/pipeline"
	"github.com/edelwud/common-repo/internal/writer"
	"github.com/edelwud/common-repo/pkg/log"
)

var applyDryRun bool

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Resolve the manifest and write the composed tree",
	Long: `Resolve the full inheritance graph, compose every contribution and
write the result to the working directory.

Only files whose content or mode differ are touched, so re-applying an
up-to-date manifest is a no-op.

Examples:
  # Apply the manifest in the current directory
  common-repo apply

  # See what would change without touching disk
  common-repo apply --dry-run`,
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "report planned writes without mutating disk")
}

func runApply(cmd *cobra.Command, _ []string) error {
	result, err := pipeline.Run(cmd.Context(), pipelineOptions())
	if err != nil {
		return err
	}

	plans := result.Plan()
	if applyDryRun {
		changed := 0
		for _, p := range plans {
			if p.Action == writer.ActionUnchanged {
				continue
			}
			changed++
			fmt.Printf("%-9s %s\n", p.Action, p.Path)
		}
		fmt.Printf("%d of %d files would change\n", changed, len(plans))
		return nil
	}

	if err := result.Write(); err != nil {
		return err
	}

	changed := 0
	for _, p := range plans {
		if p.Action != writer.ActionUnchanged {
			changed++
		}
	}
	log.WithField("files", len(plans)).WithField("changed", changed).Info("applied")
	return nil
}
