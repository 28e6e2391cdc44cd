// Package compose turns the discovered graph into the composite tree:
// it resolves the deterministic contribution order, overlays the
// intermediate trees, executes deferred merges, substitutes template
// variables and applies the consumer's local merge overlay.
package compose

import (
	"github.com/edelwud/common-repo/internal/discovery"
)

// Order returns the contribution sequence: depth-first left-to-right
// post-order from the consumer root, so every ancestor precedes its
// dependents and the consumer contributes last. Shared projection keys
// are emitted once, at their first in-order occurrence.
func Order(g *discovery.Graph) []*discovery.Node {
	var out []*discovery.Node
	seen := make(map[string]bool)
	var walk func(n *discovery.Node)
	walk = func(n *discovery.Node) {
		if seen[n.Key()] {
			return
		}
		seen[n.Key()] = true
		for _, c := range n.Children {
			walk(c)
		}
		out = append(out, n)
	}
	walk(g.Root)
	return out
}
