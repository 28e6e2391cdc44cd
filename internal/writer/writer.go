// Package writer materializes the composite tree to the working
// directory: deterministic sorted walk, diff-aware writes, parent
// directory creation and Unix mode preservation.
package writer

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/edelwud/common-repo/internal/runerr"
	"github.com/edelwud/common-repo/internal/tree"
	"github.com/edelwud/common-repo/pkg/log"
)

// Action classifies one planned write.
type Action int

// Planned write actions
const (
	ActionCreate Action = iota
	ActionUpdate
	ActionUnchanged
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionUnchanged:
		return "unchanged"
	}
	return "unknown"
}

// PlannedWrite describes what applying one composite file would do.
type PlannedWrite struct {
	Path   string
	Action Action
	Mode   fs.FileMode
	// Content is the composite content the file would receive.
	Content []byte
}

// Plan compares the composite against the working directory in sorted
// path order without mutating disk.
func Plan(composite *tree.Tree, workDir string) []PlannedWrite {
	plans := make([]PlannedWrite, 0, composite.Len())
	for _, f := range composite.Files() {
		plans = append(plans, PlannedWrite{
			Path:    f.Path,
			Action:  classify(f, workDir),
			Mode:    f.Mode,
			Content: f.Bytes,
		})
	}
	return plans
}

func classify(f *tree.File, workDir string) Action {
	target := filepath.Join(workDir, filepath.FromSlash(f.Path))
	existing, err := os.ReadFile(target)
	if err != nil {
		return ActionCreate
	}
	if !bytes.Equal(existing, f.Bytes) {
		return ActionUpdate
	}
	if runtime.GOOS != "windows" {
		if info, err := os.Stat(target); err == nil && info.Mode().Perm() != f.Mode.Perm() && f.Mode != 0 {
			return ActionUpdate
		}
	}
	return ActionUnchanged
}

// Write materializes the composite. Unchanged files are left alone so
// re-application is a no-op. A mode-set failure on Unix is fatal and
// names the path.
func Write(composite *tree.Tree, workDir string) error {
	for _, plan := range Plan(composite, workDir) {
		if plan.Action == ActionUnchanged {
			continue
		}
		target := filepath.Join(workDir, filepath.FromSlash(plan.Path))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return runerr.Wrapf(runerr.ErrWrite, "%s: %v", plan.Path, err)
		}
		mode := plan.Mode
		if mode == 0 {
			mode = 0o644
		}
		if err := os.WriteFile(target, plan.Content, mode); err != nil {
			return runerr.Wrapf(runerr.ErrWrite, "%s: %v", plan.Path, err)
		}
		if runtime.GOOS != "windows" {
			// WriteFile only applies the mode on creation.
			if err := os.Chmod(target, mode); err != nil {
				return runerr.Wrapf(runerr.ErrWrite, "failed to set mode on %s: %v", plan.Path, err)
			}
		}
		log.WithField("file", plan.Path).Debugf("%s", plan.Action)
	}
	return nil
}
