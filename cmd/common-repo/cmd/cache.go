package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edelwud/common-repo/internal/fetch"
	"github.com/edelwud/common-repo/pkg/log"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clean the on-disk cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cache entries",
	RunE: func(_ *cobra.Command, _ []string) error {
		f, err := fetch.New(cacheDir)
		if err != nil {
			return err
		}
		entries, err := f.ListEntries()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Printf("cache is empty (%s)\n", f.CacheRoot)
			return nil
		}
		for _, e := range entries {
			fmt.Println(e)
		}
		return nil
	},
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove every cache entry",
	RunE: func(_ *cobra.Command, _ []string) error {
		f, err := fetch.New(cacheDir)
		if err != nil {
			return err
		}
		if err := f.Clean(); err != nil {
			return err
		}
		log.WithField("root", f.CacheRoot).Info("cache cleaned")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheCleanCmd)
}
