// Package pipeline orchestrates a full run: discovery, projection,
// order resolution, composition, the local merge overlay and the final
// write. Phases after discovery are strictly sequential; overlay and
// merge are order-sensitive by contract.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/edelwud/common-repo/internal/compose"
	"github.com/edelwud/common-repo/internal/discovery"
	"github.com/edelwud/common-repo/internal/fetch"
	"github.com/edelwud/common-repo/internal/project"
	"github.com/edelwud/common-repo/internal/runerr"
	"github.com/edelwud/common-repo/internal/tree"
	"github.com/edelwud/common-repo/internal/writer"
	"github.com/edelwud/common-repo/pkg/log"
	"github.com/edelwud/common-repo/pkg/manifest"
)

// Options configures a run.
type Options struct {
	// ManifestPath overrides the manifest location. Empty resolves
	// through COMMON_REPO_CONFIG, then the conventional file name.
	ManifestPath string
	// WorkDir is the consumer repository root. Empty means the
	// current directory.
	WorkDir string
	// CacheRoot overrides the on-disk cache location.
	CacheRoot string
	// FetchTimeout bounds each repository fetch.
	FetchTimeout time.Duration
	// Workers bounds concurrent fetches during discovery.
	Workers int
}

// Result is the outcome of phases 1 through 5.
type Result struct {
	Manifest  *manifest.Manifest
	Graph     *discovery.Graph
	Order     []*discovery.Node
	Composite *tree.Tree
	WorkDir   string
}

// ManifestPath resolves the effective manifest location.
func ManifestPath(override, workDir string) string {
	if override != "" {
		return override
	}
	if env := os.Getenv(manifest.EnvConfig); env != "" {
		return env
	}
	return filepath.Join(workDir, manifest.DefaultFileName)
}

// LoadManifest reads and validates the consumer manifest.
func LoadManifest(opts Options) (*manifest.Manifest, error) {
	path := ManifestPath(opts.ManifestPath, opts.workDir())
	m, err := manifest.Load(path)
	if err != nil {
		return nil, runerr.Wrap(runerr.ErrManifest, err)
	}
	if err := m.Validate(); err != nil {
		return nil, runerr.Wrapf(runerr.ErrManifest, "%s: %v", path, err)
	}
	return m, nil
}

func (o Options) workDir() string {
	if o.WorkDir != "" {
		return o.WorkDir
	}
	return "."
}

// Run executes phases 1 through 5 and returns the composed tree,
// leaving the working directory untouched.
func Run(ctx context.Context, opts Options) (*Result, error) {
	m, err := LoadManifest(opts)
	if err != nil {
		return nil, err
	}

	fetcher, err := fetch.New(opts.CacheRoot)
	if err != nil {
		return nil, err
	}
	if opts.FetchTimeout > 0 {
		fetcher.Timeout = opts.FetchTimeout
	}

	workDir := opts.workDir()
	log.Debug("discovering inheritance graph")
	d := &discovery.Discoverer{Fetcher: fetcher, Workers: opts.Workers}
	graph, err := d.Discover(ctx, m, workDir)
	if err != nil {
		return nil, err
	}

	order := compose.Order(graph)
	log.Debugf("resolved %d contributing trees", len(order))

	projector := project.New()
	for _, node := range order {
		if err := projector.Project(node); err != nil {
			return nil, err
		}
	}

	log.Debug("composing")
	composite, err := compose.Compose(order)
	if err != nil {
		return nil, err
	}
	if err := compose.LocalOverlay(composite, order, workDir); err != nil {
		return nil, err
	}

	return &Result{
		Manifest:  m,
		Graph:     graph,
		Order:     order,
		Composite: composite,
		WorkDir:   workDir,
	}, nil
}

// Plan reports what writing the composite would change on disk.
func (r *Result) Plan() []writer.PlannedWrite {
	return writer.Plan(r.Composite, r.WorkDir)
}

// Write materializes the composite to the working directory.
func (r *Result) Write() error {
	return writer.Write(r.Composite, r.WorkDir)
}
