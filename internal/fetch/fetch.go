// Package fetch loads upstream repositories into in-memory trees
// through a content-addressed on-disk cache. A cache hit bypasses the
// network entirely; a miss performs a shallow single-ref clone and
// promotes the result into the cache atomically.
package fetch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/edelwud/common-repo/internal/runerr"
	"github.com/edelwud/common-repo/internal/tree"
	"github.com/edelwud/common-repo/pkg/log"
	"github.com/edelwud/common-repo/pkg/manifest"
)

// DefaultTimeout bounds a single repository fetch.
const DefaultTimeout = 60 * time.Second

// legacyCacheDir is the fixed pre-XDG cache location, accepted when it
// already exists.
const legacyCacheDir = ".common-repo/cache"

// Fetcher fetches repositories and serves them from the cache root.
type Fetcher struct {
	CacheRoot string
	Timeout   time.Duration
}

// New creates a fetcher over the given cache root. An empty root
// resolves through DefaultCacheRoot.
func New(cacheRoot string) (*Fetcher, error) {
	if cacheRoot == "" {
		root, err := DefaultCacheRoot()
		if err != nil {
			return nil, err
		}
		cacheRoot = root
	}
	return &Fetcher{CacheRoot: cacheRoot, Timeout: DefaultTimeout}, nil
}

// DefaultCacheRoot resolves the cache root: the COMMON_REPO_CACHE
// environment variable, the legacy fixed path when it exists, then the
// OS user cache directory.
func DefaultCacheRoot() (string, error) {
	if env := os.Getenv(manifest.EnvCache); env != "" {
		return env, nil
	}
	if home, err := os.UserHomeDir(); err == nil {
		legacy := filepath.Join(home, legacyCacheDir)
		if info, err := os.Stat(legacy); err == nil && info.IsDir() {
			return legacy, nil
		}
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("cannot resolve user cache directory: %w", err)
	}
	return filepath.Join(base, "common-repo"), nil
}

// NormalizeURL strips the scheme, rewrites a git@host:path form to
// host/path and strips a trailing .git so equivalent URLs share a
// cache key.
func NormalizeURL(url string) string {
	u := url
	if i := strings.Index(u, "://"); i >= 0 {
		u = u[i+3:]
	}
	if strings.HasPrefix(u, "git@") {
		u = strings.Replace(strings.TrimPrefix(u, "git@"), ":", "/", 1)
	}
	return strings.TrimSuffix(u, ".git")
}

// SanitizeRef makes a ref filesystem-safe.
func SanitizeRef(ref string) string {
	return strings.ReplaceAll(ref, "/", "-")
}

// CacheDir returns the on-disk cache entry for a (url, ref, path) key:
// <root>/<16-hex-of-url>-<sanitized-ref>[:path=<sanitized-path>].
func (f *Fetcher) CacheDir(url, ref, subPath string) string {
	name := fmt.Sprintf("%016x-%s", xxhash.Sum64String(NormalizeURL(url)), SanitizeRef(ref))
	if subPath != "" {
		name += ":path=" + SanitizeRef(subPath)
	}
	return filepath.Join(f.CacheRoot, name)
}

// Fetch returns the tree for (url, ref) truncated and rebased to
// subPath when present. The cache is consulted first; on a miss the
// repository is cloned and promoted into the cache. A clone failure
// with a warm cache entry is recovered silently.
func (f *Fetcher) Fetch(ctx context.Context, url, ref, subPath string) (*tree.Tree, error) {
	// A URL naming a local directory is loaded in place: no clone, no
	// cache entry. Useful for path-based upstreams and tests.
	if info, err := os.Stat(url); err == nil && info.IsDir() {
		return f.load(url, subPath, url)
	}

	dir := f.CacheDir(url, ref, subPath)
	if _, err := os.Stat(dir); err == nil {
		log.WithField("url", url).WithField("ref", ref).Debug("cache hit")
		return f.load(dir, subPath, url)
	}

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cloneCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := f.clone(cloneCtx, url, ref, dir); err != nil {
		// Another run may have promoted the entry concurrently.
		if _, statErr := os.Stat(dir); statErr == nil {
			return f.load(dir, subPath, url)
		}
		return nil, runerr.Wrapf(runerr.ErrFetch, "failed to fetch %s@%s: %v", url, ref, err)
	}
	return f.load(dir, subPath, url)
}

// load streams a cache entry into a tree, honoring Unix permissions.
// When subPath is set, only files under it are kept and their keys are
// rebased so the sub-path becomes the effective root.
func (f *Fetcher) load(dir, subPath, origin string) (*tree.Tree, error) {
	t := tree.New()
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
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
		rel = filepath.ToSlash(rel)
		if subPath != "" {
			inside, ok := strings.CutPrefix(rel, strings.TrimSuffix(subPath, "/")+"/")
			if !ok {
				return nil
			}
			rel = inside
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
			Path:    rel,
			Bytes:   data,
			Mode:    info.Mode().Perm(),
			ModTime: info.ModTime(),
			Origin:  origin,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load cache entry %s: %w", dir, err)
	}
	return t, nil
}

// ListEntries returns the cache entry names under the root, sorted by
// name.
func (f *Fetcher) ListEntries() ([]string, error) {
	entries, err := os.ReadDir(f.CacheRoot)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Clean removes every cache entry.
func (f *Fetcher) Clean() error {
	entries, err := f.ListEntries()
	if err != nil {
		return err
	}
	for _, name := range entries {
		if err := os.RemoveAll(filepath.Join(f.CacheRoot, name)); err != nil {
			return err
		}
	}
	return nil
}
