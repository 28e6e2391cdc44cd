// Package update rewrites ref pins in a consumer manifest, resolving
// candidate tags through the GitHub API for github.com repositories and
// git ls-remote everywhere else.
package update

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.yaml.in/yaml/v4"

	"github.com/edelwud/common-repo/internal/fetch"
	"github.com/edelwud/common-repo/internal/match"
	"github.com/edelwud/common-repo/internal/runerr"
	"github.com/edelwud/common-repo/pkg/log"
)

// Options selects which repos to update and how far.
type Options struct {
	// Latest picks the highest tag regardless of the current pin.
	// Otherwise only tags compatible with the current pin (same
	// major, caret semantics) are considered.
	Latest bool
	// Filter restricts updates to repos whose
	// <host>/<owner>/<repo>[/<path>] matches the glob.
	Filter string
}

// Change records one rewritten pin.
type Change struct {
	URL    string
	Path   string
	OldRef string
	NewRef string
}

// Run rewrites the manifest file in place and returns the changes. The
// YAML document is edited as a node tree, so untouched content keeps
// its formatting and comments.
func Run(ctx context.Context, manifestPath string, opts Options) ([]Change, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, runerr.Wrap(runerr.ErrManifest, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, runerr.Wrapf(runerr.ErrManifest, "invalid manifest YAML: %v", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	var changes []Change
	for _, repoNode := range repoNodes(doc.Content[0]) {
		change, err := updateRepo(ctx, repoNode, opts)
		if err != nil {
			return nil, err
		}
		if change != nil {
			changes = append(changes, *change)
		}
	}
	if len(changes) == 0 {
		return nil, nil
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(manifestPath, out, 0o644); err != nil {
		return nil, err
	}
	return changes, nil
}

// repoNodes finds every repo mapping in either manifest shape.
func repoNodes(root *yaml.Node) []*yaml.Node {
	var nodes []*yaml.Node
	switch root.Kind {
	case yaml.SequenceNode:
		for _, item := range root.Content {
			if item.Kind == yaml.MappingNode && len(item.Content) == 2 && item.Content[0].Value == "repo" {
				nodes = append(nodes, item.Content[1])
			}
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			if root.Content[i].Value == "repos" && root.Content[i+1].Kind == yaml.SequenceNode {
				nodes = append(nodes, root.Content[i+1].Content...)
			}
		}
	}
	return nodes
}

func updateRepo(ctx context.Context, node *yaml.Node, opts Options) (*Change, error) {
	url := mapValueNode(node, "url")
	refNode := mapValueNode(node, "ref")
	if url == nil || refNode == nil {
		return nil, nil
	}
	path := ""
	if p := mapValueNode(node, "path"); p != nil {
		path = p.Value
	}

	id := fetch.NormalizeURL(url.Value)
	if path != "" {
		id += "/" + path
	}
	if opts.Filter != "" {
		ok, err := match.Glob(opts.Filter, id)
		if err != nil {
			return nil, runerr.Wrap(runerr.ErrManifest, err)
		}
		if !ok {
			return nil, nil
		}
	}

	tags, err := listTags(ctx, url.Value)
	if err != nil {
		log.WithField("url", url.Value).Warnf("cannot list tags: %v", err)
		return nil, nil
	}

	next := pick(tags, refNode.Value, opts.Latest)
	if next == "" || next == refNode.Value {
		return nil, nil
	}

	change := &Change{URL: url.Value, Path: path, OldRef: refNode.Value, NewRef: next}
	refNode.Value = next
	refNode.Tag = "!!str"
	return change, nil
}

// pick selects the new ref among tags. With latest, the highest semver
// tag wins (falling back to the lexically greatest tag when none
// parse). Otherwise only tags compatible with the current pin are
// considered, and a non-semver pin is left alone.
func pick(tags []string, current string, latest bool) string {
	type parsed struct {
		name string
		ver  *semver.Version
	}
	var versions []parsed
	for _, t := range tags {
		if v, err := semver.NewVersion(strings.TrimPrefix(t, "v")); err == nil {
			versions = append(versions, parsed{name: t, ver: v})
		}
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].ver.LessThan(versions[j].ver) })

	if latest {
		if len(versions) > 0 {
			return versions[len(versions)-1].name
		}
		if len(tags) > 0 {
			sorted := append([]string(nil), tags...)
			sort.Strings(sorted)
			return sorted[len(sorted)-1]
		}
		return ""
	}

	cur, err := semver.NewVersion(strings.TrimPrefix(current, "v"))
	if err != nil {
		return ""
	}
	constraint, err := semver.NewConstraint(fmt.Sprintf("^%s", cur.String()))
	if err != nil {
		return ""
	}
	best := ""
	for _, v := range versions {
		if constraint.Check(v.ver) {
			best = v.name
		}
	}
	return best
}

func mapValueNode(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}
