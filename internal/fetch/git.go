package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"

	"github.com/edelwud/common-repo/pkg/log"
)

// clone performs a shallow single-ref clone of url@ref into dest. The
// clone lands in a temporary sibling directory and is promoted by
// rename, so concurrent runs never observe a partial cache entry.
func (f *Fetcher) clone(ctx context.Context, url, ref, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create cache root: %w", err)
	}
	tmp := fmt.Sprintf("%s.tmp-%d", dest, os.Getpid())
	defer os.RemoveAll(tmp)

	log.WithField("url", url).WithField("ref", ref).Info("fetching")

	cloneOpts := &git.CloneOptions{
		URL:           url,
		Depth:         1,
		SingleBranch:  true,
		ReferenceName: plumbing.NewBranchReferenceName(ref),
	}
	repo, err := git.PlainCloneContext(ctx, tmp, cloneOpts)
	if err != nil {
		// Try as tag if branch clone failed.
		_ = os.RemoveAll(tmp)
		cloneOpts.ReferenceName = plumbing.NewTagReferenceName(ref)
		repo, err = git.PlainCloneContext(ctx, tmp, cloneOpts)
	}
	if err != nil && len(ref) == 40 {
		// Commit SHA pins cannot be cloned shallowly by name; fetch
		// the default branch and check the hash out.
		_ = os.RemoveAll(tmp)
		repo, err = git.PlainCloneContext(ctx, tmp, &git.CloneOptions{URL: url})
		if err == nil {
			var wt *git.Worktree
			if wt, err = repo.Worktree(); err == nil {
				err = wt.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(ref)})
			}
		}
	}
	if err != nil {
		return fmt.Errorf("failed to clone: %w", err)
	}

	// The cache stores plain files, not a repository.
	if err := os.RemoveAll(filepath.Join(tmp, ".git")); err != nil {
		return fmt.Errorf("failed to strip .git: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		// A concurrent run promoted the same entry first.
		if _, statErr := os.Stat(dest); statErr == nil {
			return nil
		}
		return fmt.Errorf("failed to promote cache entry: %w", err)
	}
	return nil
}
