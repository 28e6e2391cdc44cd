// Package project executes a repository's operation program against its
// loaded tree, producing the intermediate tree it contributes to the
// composite plus its deferred merge directives and template-var
// contributions.
package project

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/edelwud/common-repo/internal/discovery"
	"github.com/edelwud/common-repo/internal/match"
	"github.com/edelwud/common-repo/internal/runerr"
	"github.com/edelwud/common-repo/internal/tools"
	"github.com/edelwud/common-repo/internal/tree"
	"github.com/edelwud/common-repo/pkg/manifest"
)

// result carries one memoized projection.
type result struct {
	intermediate *tree.Tree
	deferred     []*manifest.Merge
	vars         [][2]string
}

// Projector projects nodes with compute-or-get memoization: concurrent
// callers requesting the same projection key block on a single
// computation, and the result is reused for the rest of the run.
type Projector struct {
	group singleflight.Group

	mu    sync.Mutex
	cache map[string]*result
}

// New creates a projector with an empty in-process cache.
func New() *Projector {
	return &Projector{cache: make(map[string]*result)}
}

// Project fills the node's Intermediate, Deferred and Vars fields.
func (p *Projector) Project(node *discovery.Node) error {
	key := node.Key()
	p.mu.Lock()
	cached, ok := p.cache[key]
	p.mu.Unlock()
	if !ok {
		v, err, _ := p.group.Do(key, func() (any, error) {
			r, err := run(node)
			if err != nil {
				return nil, err
			}
			p.mu.Lock()
			p.cache[key] = r
			p.mu.Unlock()
			return r, nil
		})
		if err != nil {
			return err
		}
		cached = v.(*result)
	}
	node.Intermediate = cached.intermediate
	node.Deferred = cached.deferred
	node.Vars = cached.vars
	return nil
}

// run interprets the node's program. The consumer root exports nothing
// unless its program opts files in with an include operation; upstream
// trees export everything their program does not filter out.
func run(node *discovery.Node) (*result, error) {
	r := &result{}

	t := node.Tree.Clone()
	if node.URL == "" && !hasInclude(node.Program) {
		t = tree.New()
	}

	for i := range node.Program {
		op := &node.Program[i]
		if err := apply(t, op, r); err != nil {
			return nil, runerr.Wrapf(runerr.ErrProjection, "%s: %s: %v", node.Name(), op.Kind, err)
		}
	}

	// The manifest itself is never exported.
	t.Remove(manifest.DefaultFileName)

	r.intermediate = t
	return r, nil
}

func apply(t *tree.Tree, op *manifest.Operation, r *result) error {
	switch op.Kind {
	case manifest.KindRepo:
		// Inheritance is handled by discovery; nothing to do here.
		return nil
	case manifest.KindInclude:
		return filterTree(t, op.Patterns, true)
	case manifest.KindExclude:
		return filterTree(t, op.Patterns, false)
	case manifest.KindRename:
		return renameTree(t, op.Rename)
	case manifest.KindTemplate:
		return markTemplates(t, op.Patterns)
	case manifest.KindTemplateVars:
		for _, v := range op.Vars {
			r.vars = append(r.vars, [2]string{v.Name, v.Value})
		}
		return nil
	case manifest.KindTools:
		tools.Check(op.Tools)
		return nil
	default:
		if op.Merge != nil {
			// Merges execute at composition time, against a
			// destination that may not exist yet.
			r.deferred = append(r.deferred, op.Merge)
		}
		return nil
	}
}

// filterTree keeps (or drops) files matching any pattern.
func filterTree(t *tree.Tree, patterns []string, keep bool) error {
	for _, path := range t.Paths() {
		ok, err := match.Any(patterns, path)
		if err != nil {
			return err
		}
		if ok != keep {
			t.Remove(path)
		}
	}
	return nil
}

// renameTree applies the rules to every path. Paths are visited in
// sorted order and moves are applied afterwards so one operation never
// observes its own rewrites.
func renameTree(t *tree.Tree, rules []manifest.RenameRule) error {
	pairs := make([][2]string, len(rules))
	for i, r := range rules {
		pairs[i] = [2]string{r.Pattern, r.Replacement}
	}
	renamer, err := match.NewRenamer(pairs)
	if err != nil {
		return err
	}

	var moves [][2]string
	for _, path := range t.Paths() {
		if out, ok := renamer.Apply(path); ok && out != path {
			moves = append(moves, [2]string{path, out})
		}
	}
	files := make([]*tree.File, len(moves))
	for i, mv := range moves {
		files[i], _ = t.Get(mv[0])
	}
	for _, mv := range moves {
		t.Remove(mv[0])
	}
	for i, mv := range moves {
		files[i].Path = mv[1]
		if err := t.Add(files[i]); err != nil {
			return err
		}
	}
	return nil
}

func markTemplates(t *tree.Tree, patterns []string) error {
	for _, f := range t.Files() {
		ok, err := match.Any(patterns, f.Path)
		if err != nil {
			return err
		}
		if ok {
			f.IsTemplate = true
		}
	}
	return nil
}

func hasInclude(ops []manifest.Operation) bool {
	for i := range ops {
		if ops[i].Kind == manifest.KindInclude {
			return true
		}
	}
	return false
}
