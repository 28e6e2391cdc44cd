package compose

import (
	"os"
	"path/filepath"

	"github.com/edelwud/common-repo/internal/discovery"
	"github.com/edelwud/common-repo/internal/merge"
	"github.com/edelwud/common-repo/internal/runerr"
	"github.com/edelwud/common-repo/internal/tmpl"
	"github.com/edelwud/common-repo/internal/tree"
	"github.com/edelwud/common-repo/pkg/log"
	"github.com/edelwud/common-repo/pkg/manifest"
)

// Compose assembles the composite tree from projected nodes in
// contribution order: overlay first, then deferred merges, then
// template substitution. Directives carrying defer are left for the
// local overlay.
func Compose(order []*discovery.Node) (*tree.Tree, error) {
	composite := tree.New()
	for _, node := range order {
		composite.Overlay(node.Intermediate)
	}

	for _, node := range order {
		for _, d := range node.Deferred {
			if d.Defer {
				continue
			}
			if err := applyDirective(composite, node, d, nil); err != nil {
				return nil, err
			}
		}
	}

	if err := substitute(composite, order); err != nil {
		return nil, err
	}
	return composite, nil
}

// LocalOverlay merges the consumer's working-directory state into the
// composite before writing. Consumer-declared directives whose
// destination exists on disk re-merge the composed file over the local
// one; upstream directives carrying defer execute here for the first
// time.
func LocalOverlay(composite *tree.Tree, order []*discovery.Node, workDir string) error {
	root := order[len(order)-1]
	for _, node := range order {
		for _, d := range node.Deferred {
			switch {
			case d.Defer:
				local := readLocal(workDir, d.Dest)
				if err := applyDirective(composite, node, d, local); err != nil {
					return err
				}
			case node == root:
				local := readLocal(workDir, d.Dest)
				if local == nil {
					continue
				}
				composed, ok := composite.Get(d.Dest)
				if !ok {
					continue
				}
				merged, err := merge.Apply(d, composed.Bytes, local)
				if err != nil {
					return runerr.Wrapf(runerr.ErrMerge, "%s: %v", node.Name(), err)
				}
				setComposite(composite, d.Dest, merged, node.Name())
			}
		}
	}
	return nil
}

// applyDirective runs one deferred directive against the composite.
// The source is read from the emitting node's intermediate tree, never
// from the composite — except for the consumer root, whose directives
// may name files contributed by its upstreams. A non-nil localDest
// overrides the composite destination (local overlay semantics).
func applyDirective(composite *tree.Tree, node *discovery.Node, d *manifest.Merge, localDest []byte) error {
	src, ok := node.Intermediate.Get(d.Source)
	if !ok && node.URL == "" {
		src, ok = composite.Get(d.Source)
	}
	if !ok {
		return runerr.Wrapf(runerr.ErrMerge, "%s: %s merge into %s: source file %q missing",
			node.Name(), d.Format, d.Dest, d.Source)
	}
	dest := localDest
	if dest == nil {
		if f, ok := composite.Get(d.Dest); ok {
			dest = f.Bytes
		}
	}
	merged, err := merge.Apply(d, src.Bytes, dest)
	if err != nil {
		return runerr.Wrapf(runerr.ErrMerge, "%s: %v", node.Name(), err)
	}
	setComposite(composite, d.Dest, merged, node.Name())
	return nil
}

func setComposite(composite *tree.Tree, path string, content []byte, origin string) {
	f, ok := composite.Get(path)
	if !ok {
		f = &tree.File{Path: path, Mode: 0o644}
	}
	f.Bytes = content
	f.Origin = origin
	composite.Add(f)
}

// substitute collects the template context in contribution order and
// expands every template-flagged file. Later template-vars entries
// override earlier ones.
func substitute(composite *tree.Tree, order []*discovery.Node) error {
	var pairs [][2]string
	for _, node := range order {
		pairs = append(pairs, node.Vars...)
	}
	ctx := tmpl.Collect(pairs)

	for _, f := range composite.Files() {
		if !f.IsTemplate {
			continue
		}
		out, err := tmpl.Expand(f.Bytes, ctx)
		if err != nil {
			return runerr.Wrapf(runerr.ErrTemplate, "%s: %v", f.Path, err)
		}
		f.Bytes = out
	}
	return nil
}

func readLocal(workDir, rel string) []byte {
	data, err := os.ReadFile(filepath.Join(workDir, filepath.FromSlash(rel)))
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithField("file", rel).Debugf("cannot read working-directory file: %v", err)
		}
		return nil
	}
	return data
}
