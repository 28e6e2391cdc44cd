package cmd

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/edelwud/common-repo/internal/discovery"
	"github.com/edelwud/common-repo/internal/pipeline"
)

var (
	nodeStyle   = lipgloss.NewStyle().Bold(true)
	refStyle    = lipgloss.NewStyle().Faint(true)
	sharedStyle = lipgloss.NewStyle().Faint(true).Italic(true)
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show the inheritance tree",
	Long: `Resolve the manifest and render the inheritance graph. Repositories
reached through more than one parent are expanded once and marked as
shared afterwards.

Example:
  common-repo tree`,
	RunE: runTree,
}

func init() {
	rootCmd.AddCommand(treeCmd)
}

func runTree(cmd *cobra.Command, _ []string) error {
	result, err := pipeline.Run(cmd.Context(), pipelineOptions())
	if err != nil {
		return err
	}

	fmt.Println(nodeStyle.Render("(consumer)"))
	seen := map[string]bool{}
	printChildren(result.Graph.Root, "", seen)
	return nil
}

func printChildren(n *discovery.Node, prefix string, seen map[string]bool) {
	for i, c := range n.Children {
		connector, childPrefix := "├── ", prefix+"│   "
		if i == len(n.Children)-1 {
			connector, childPrefix = "└── ", prefix+"    "
		}

		label := nodeStyle.Render(labelOf(c)) + " " + refStyle.Render("@"+c.Ref)
		if seen[c.Key()] {
			fmt.Println(prefix + connector + label + " " + sharedStyle.Render("(shared)"))
			continue
		}
		seen[c.Key()] = true
		fmt.Println(prefix + connector + label)
		printChildren(c, childPrefix, seen)
	}
}

func labelOf(n *discovery.Node) string {
	label := n.URL
	if i := strings.Index(label, "://"); i >= 0 {
		label = label[i+3:]
	}
	if n.Path != "" {
		label += "/" + n.Path
	}
	return label
}
