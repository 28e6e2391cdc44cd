package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/edelwud/common-repo/internal/pipeline"
	"github.com/edelwud/common-repo/pkg/log"
)

var (
	// Global flags
	cfgFile      string
	workDir      string
	cacheDir     string
	logLevel     string
	fetchTimeout time.Duration

	// Version info
	versionInfo struct {
		Version string
		Commit  string
		Date    string
	}
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "common-repo",
	Short: "Compose repository configuration from upstream repositories",
	Long: `common-repo treats repository configuration (CI files, lint rules,
pre-commit hooks, READMEs, dependency manifests) as versioned,
composable dependencies.

A .common-repo.yaml manifest declares upstream repositories at pinned
refs plus an ordered program of operations. common-repo resolves the
full inheritance graph, projects every participant into an isolated
file tree, composes them deterministically, applies structured merges
for YAML/JSON/TOML/INI/Markdown, substitutes template variables and
writes the result to the working directory.

Features:
  - Recursive inheritance with cycle detection and deduplication
  - Deterministic, byte-identical output for pinned refs
  - Structured configuration merges instead of blind overwrites
  - Content-addressed on-disk cache with offline fallback
  - Template variables with environment fallback and defaults`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// Initialize logger
		log.Init()

		// Handle verbose flag (shorthand for --log-level=debug)
		if verbose, err := cmd.Flags().GetBool("verbose"); err == nil && verbose {
			logLevel = "debug"
		}

		// Set log level from flag
		if logLevel != "" {
			if err := log.SetLevelFromString(logLevel); err != nil {
				return fmt.Errorf("invalid log level %q: %w", logLevel, err)
			}
		}

		// Show version info (skip for version command itself)
		if cmd.Name() != "version" && versionInfo.Version != "" {
			log.WithField("version", versionInfo.Version).Debug("common-repo")
		}

		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets version information
func SetVersion(version, commit, date string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.Date = date
}

// pipelineOptions collects the global flags into pipeline options.
func pipelineOptions() pipeline.Options {
	return pipeline.Options{
		ManifestPath: cfgFile,
		WorkDir:      workDir,
		CacheRoot:    cacheDir,
		FetchTimeout: fetchTimeout,
	}
}

func init() {
	// Get current working directory
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "manifest file (default: .common-repo.yaml, or $COMMON_REPO_CONFIG)")
	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "d", cwd, "working directory")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "cache root (default: user cache dir, or $COMMON_REPO_CACHE)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output (shorthand for --log-level=debug)")
	rootCmd.PersistentFlags().DurationVar(&fetchTimeout, "fetch-timeout", 0, "per-repository fetch timeout (default: 60s)")
}
