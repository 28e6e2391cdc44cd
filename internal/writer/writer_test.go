package writer

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/edelwud/common-repo/internal/tree"
)

func composite(t *testing.T, files map[string]string) *tree.Tree {
	t.Helper()
	tr := tree.New()
	for p, c := range files {
		if err := tr.Add(&tree.File{Path: p, Bytes: []byte(c), Mode: 0o644}); err != nil {
			t.Fatal(err)
		}
	}
	return tr
}

func TestPlanClassification(t *testing.T) {
	workDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(workDir, "same.txt"), []byte("same"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(workDir, "changed.txt"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := composite(t, map[string]string{
		"same.txt":    "same",
		"changed.txt": "new",
		"fresh.txt":   "hello",
	})

	plans := Plan(tr, workDir)
	got := map[string]Action{}
	for _, p := range plans {
		got[p.Path] = p.Action
	}
	if got["same.txt"] != ActionUnchanged {
		t.Errorf("same.txt = %v, want unchanged", got["same.txt"])
	}
	if got["changed.txt"] != ActionUpdate {
		t.Errorf("changed.txt = %v, want update", got["changed.txt"])
	}
	if got["fresh.txt"] != ActionCreate {
		t.Errorf("fresh.txt = %v, want create", got["fresh.txt"])
	}
}

func TestPlanSortedDeterministically(t *testing.T) {
	tr := composite(t, map[string]string{"z.txt": "", "a.txt": "", "m/x.txt": ""})
	plans := Plan(tr, t.TempDir())
	want := []string{"a.txt", "m/x.txt", "z.txt"}
	for i := range want {
		if plans[i].Path != want[i] {
			t.Fatalf("plan order %v, want %v", plans, want)
		}
	}
}

func TestWriteCreatesParentsAndModes(t *testing.T) {
	workDir := t.TempDir()
	tr := tree.New()
	_ = tr.Add(&tree.File{Path: "deep/nested/run.sh", Bytes: []byte("#!/bin/sh\n"), Mode: 0o755})

	if err := Write(tr, workDir); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	target := filepath.Join(workDir, "deep", "nested", "run.sh")
	info, err := os.Stat(target)
	if err != nil {
		t.Fatalf("file not written: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0o755 {
		t.Errorf("mode = %v, want 0755", info.Mode())
	}
}

func TestWriteLeavesUnchangedFilesAlone(t *testing.T) {
	workDir := t.TempDir()
	target := filepath.Join(workDir, "stable.txt")
	if err := os.WriteFile(target, []byte("stable"), 0o644); err != nil {
		t.Fatal(err)
	}
	before, err := os.Stat(target)
	if err != nil {
		t.Fatal(err)
	}

	tr := composite(t, map[string]string{"stable.txt": "stable"})
	if err := Write(tr, workDir); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	after, err := os.Stat(target)
	if err != nil {
		t.Fatal(err)
	}
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("unchanged file was rewritten")
	}
}

func TestWriteUpdatesMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("mode bits are advisory on windows")
	}
	workDir := t.TempDir()
	target := filepath.Join(workDir, "tool.sh")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := tree.New()
	_ = tr.Add(&tree.File{Path: "tool.sh", Bytes: []byte("x"), Mode: 0o755})
	if err := Write(tr, workDir); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	info, _ := os.Stat(target)
	if info.Mode().Perm() != 0o755 {
		t.Errorf("mode = %v, want 0755", info.Mode())
	}
}
