// Package discovery walks the inheritance graph rooted at the consumer
// manifest: it expands repo operations in manifest order, fetches each
// upstream, parses its manifest, detects cycles along the ancestor path
// and deduplicates shared projection keys across the graph.
package discovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/edelwud/common-repo/internal/fetch"
	"github.com/edelwud/common-repo/internal/runerr"
	"github.com/edelwud/common-repo/internal/tree"
	"github.com/edelwud/common-repo/pkg/log"
	"github.com/edelwud/common-repo/pkg/manifest"
)

// defaultWorkers bounds concurrent fetches during graph expansion.
const defaultWorkers = 4

// Node is one repository in the inheritance graph. The synthetic
// consumer root has an empty URL.
type Node struct {
	URL  string
	Ref  string
	Path string
	// Fingerprint is the with-clause fingerprint; empty without one.
	Fingerprint string

	// Program is the operation program projection will execute: the
	// with-clause when present, otherwise the repository's own
	// manifest program.
	Program []manifest.Operation
	// Tree is the loaded repository tree (the working directory for
	// the consumer root).
	Tree *tree.Tree
	// Children are the upstreams this node inherits from, in
	// manifest order.
	Children []*Node

	// Filled during projection.
	Intermediate *tree.Tree
	Deferred     []*manifest.Merge
	Vars         [][2]string
}

// Key is the projection key: nodes with equal keys share one
// intermediate tree.
func (n *Node) Key() string {
	return strings.Join([]string{fetch.NormalizeURL(n.URL), n.Ref, n.Path, n.Fingerprint}, "\x00")
}

// Name renders the node for error messages and the tree command.
func (n *Node) Name() string {
	if n.URL == "" {
		return "(consumer)"
	}
	name := fetch.NormalizeURL(n.URL) + "@" + n.Ref
	if n.Path != "" {
		name += "/" + n.Path
	}
	return name
}

// Graph is the discovered DAG plus the flat dedup registry.
type Graph struct {
	Root *Node
	// byKey deduplicates projection keys across the whole graph.
	byKey map[string]*Node
}

// Triples returns the unique (url, ref, path) triples of the graph.
func (g *Graph) Triples() [][3]string {
	seen := make(map[[3]string]bool)
	var out [][3]string
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.URL != "" {
			t := [3]string{fetch.NormalizeURL(n.URL), n.Ref, n.Path}
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(g.Root)
	return out
}

// Discoverer expands manifests into a graph.
type Discoverer struct {
	Fetcher *fetch.Fetcher
	// Workers bounds concurrent cache-warming fetches.
	Workers int
}

// Discover builds the graph for the consumer manifest. workDir is the
// consumer's working directory, loaded as the root's tree.
func (d *Discoverer) Discover(ctx context.Context, m *manifest.Manifest, workDir string) (*Graph, error) {
	workTree, err := loadWorkDir(workDir)
	if err != nil {
		return nil, err
	}
	root := &Node{Program: m.Operations, Tree: workTree}
	g := &Graph{Root: root, byKey: make(map[string]*Node)}

	if err := d.expand(ctx, g, root, m.Operations, nil); err != nil {
		return nil, err
	}
	return g, nil
}

// pathEntry is one frame of the ancestor path used for cycle detection.
type pathEntry struct {
	key  string
	name string
}

// expand processes one manifest program: repo operations become child
// nodes, expanded depth-first in manifest order.
func (d *Discoverer) expand(ctx context.Context, g *Graph, parent *Node, ops []manifest.Operation, ancestors []pathEntry) error {
	repos := reposOf(ops)
	if len(repos) == 0 {
		return nil
	}
	d.warm(ctx, repos)

	for _, r := range repos {
		cycleKey := strings.Join([]string{fetch.NormalizeURL(r.URL), r.Ref, r.Path}, "\x00")
		if i := indexOfKey(ancestors, cycleKey); i >= 0 {
			return cycleError(ancestors[i:], r)
		}

		node := &Node{
			URL:         r.URL,
			Ref:         r.Ref,
			Path:        r.Path,
			Fingerprint: manifest.Fingerprint(r.With),
		}
		if shared, ok := g.byKey[node.Key()]; ok {
			parent.Children = append(parent.Children, shared)
			continue
		}

		repoTree, err := d.Fetcher.Fetch(ctx, r.URL, r.Ref, r.Path)
		if err != nil {
			return err
		}
		node.Tree = repoTree

		upstream, err := upstreamManifest(repoTree, node.Name())
		if err != nil {
			return err
		}

		if len(r.With) > 0 {
			node.Program = r.With
		} else if upstream != nil {
			node.Program = upstream.Operations
		}

		g.byKey[node.Key()] = node
		parent.Children = append(parent.Children, node)

		// Inheritance always follows the upstream's own manifest,
		// even when a with-clause overrides the projection program.
		if upstream != nil {
			frame := pathEntry{key: cycleKey, name: node.Name()}
			if err := d.expand(ctx, g, node, upstream.Operations, append(ancestors, frame)); err != nil {
				return err
			}
		}
	}
	return nil
}

// warm prefetches the program's repositories concurrently so the
// sequential expansion below hits a warm cache. Errors are deferred to
// the sequential fetch, which reports them with full context.
func (d *Discoverer) warm(ctx context.Context, repos []*manifest.Repo) {
	if len(repos) < 2 {
		return
	}
	workers := d.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	var eg errgroup.Group
	eg.SetLimit(workers)
	for _, r := range repos {
		eg.Go(func() error {
			if _, err := d.Fetcher.Fetch(ctx, r.URL, r.Ref, r.Path); err != nil {
				log.WithField("url", r.URL).Debugf("prefetch failed: %v", err)
			}
			return nil
		})
	}
	_ = eg.Wait()
}

// upstreamManifest reads and parses the manifest at the tree's
// effective root. A missing manifest is benign; a malformed one is
// fatal.
func upstreamManifest(t *tree.Tree, name string) (*manifest.Manifest, error) {
	f, ok := t.Get(manifest.DefaultFileName)
	if !ok {
		return nil, nil
	}
	m, err := manifest.Parse(f.Bytes)
	if err != nil {
		return nil, runerr.Wrapf(runerr.ErrManifest, "upstream %s: %v", name, err)
	}
	if err := m.Validate(); err != nil {
		return nil, runerr.Wrapf(runerr.ErrManifest, "upstream %s: %v", name, err)
	}
	return m, nil
}

func reposOf(ops []manifest.Operation) []*manifest.Repo {
	var repos []*manifest.Repo
	for i := range ops {
		if ops[i].Kind == manifest.KindRepo {
			repos = append(repos, ops[i].Repo)
		}
	}
	return repos
}

func indexOfKey(ancestors []pathEntry, key string) int {
	for i, a := range ancestors {
		if a.key == key {
			return i
		}
	}
	return -1
}

// cycleError names every node on the cycle, in traversal order.
func cycleError(cycle []pathEntry, closing *manifest.Repo) error {
	names := make([]string, 0, len(cycle)+1)
	for _, e := range cycle {
		names = append(names, e.name)
	}
	closingName := fetch.NormalizeURL(closing.URL) + "@" + closing.Ref
	if closing.Path != "" {
		closingName += "/" + closing.Path
	}
	names = append(names, closingName)
	return runerr.Wrapf(runerr.ErrGraph, "inheritance cycle: %s", strings.Join(names, " -> "))
}

// loadWorkDir loads the consumer working directory, skipping VCS
// internals.
func loadWorkDir(dir string) (*tree.Tree, error) {
	t := tree.New()
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return t.Add(&tree.File{
			Path:    filepath.ToSlash(rel),
			Bytes:   data,
			Mode:    info.Mode().Perm(),
			ModTime: info.ModTime(),
			Origin:  "(consumer)",
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load working directory: %w", err)
	}
	return t, nil
}
