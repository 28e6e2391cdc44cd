package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"charm.land/huh/v2"
	"github.com/spf13/cobra"

	"github.com/edelwud/common-repo/pkg/log"
	"github.com/edelwud/common-repo/pkg/manifest"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter manifest",
	Long: `Create a .common-repo.yaml manifest in the working directory.

Prompts for the first upstream repository and its ref, then writes a
manifest you can extend with further operations.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "overwrite an existing manifest")
}

func runInit(_ *cobra.Command, _ []string) error {
	manifestPath := filepath.Join(workDir, manifest.DefaultFileName)

	// Check if a manifest already exists
	if _, err := os.Stat(manifestPath); err == nil && !forceInit {
		return fmt.Errorf("manifest already exists: %s (use --force to overwrite)", manifestPath)
	}

	var (
		url = "https://github.com/acme/common-config"
		ref = "v1.0.0"
	)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Upstream repository URL").
				Description("The repository whose configuration this project inherits").
				Value(&url),
			huh.NewInput().
				Title("Pinned ref").
				Description("Tag, branch or commit to pin").
				Value(&ref),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	m := &manifest.Manifest{Operations: []manifest.Operation{
		{Kind: manifest.KindRepo, Repo: &manifest.Repo{URL: url, Ref: ref}},
		{Kind: manifest.KindExclude, Patterns: []string{".git/**"}},
	}}
	if err := m.Save(manifestPath); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	log.WithField("file", manifestPath).Info("manifest created")
	log.Info("you can now run:")
	log.IncreasePadding()
	log.Info("common-repo apply --dry-run")
	log.DecreasePadding()

	return nil
}
