package project

import (
	"testing"

	"github.com/edelwud/common-repo/internal/discovery"
	"github.com/edelwud/common-repo/internal/tree"
	"github.com/edelwud/common-repo/pkg/manifest"
)

func node(t *testing.T, url, program string, files map[string]string) *discovery.Node {
	t.Helper()
	n := &discovery.Node{URL: url, Ref: "v1", Tree: tree.New()}
	for p, c := range files {
		if err := n.Tree.Add(&tree.File{Path: p, Bytes: []byte(c)}); err != nil {
			t.Fatal(err)
		}
	}
	if program != "" {
		m, err := manifest.Parse([]byte(program))
		if err != nil {
			t.Fatalf("program parse failed: %v", err)
		}
		n.Program = m.Operations
	}
	return n
}

func TestProjectDefaultExportsEverything(t *testing.T) {
	n := node(t, "up", "", map[string]string{"a.md": "A", "b/c.yml": "C"})
	if err := New().Project(n); err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	if n.Intermediate.Len() != 2 {
		t.Errorf("expected full export, got %v", n.Intermediate.Paths())
	}
}

func TestProjectIncludeExclude(t *testing.T) {
	n := node(t, "up", `
- include: ["**/*.yml", "**/*.yaml"]
- exclude: ["ci/**"]
`, map[string]string{
		"a.yml":      "",
		"ci/b.yml":   "",
		"docs/c.yaml": "",
		"README.md":  "",
	})
	if err := New().Project(n); err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	paths := n.Intermediate.Paths()
	want := []string{"a.yml", "docs/c.yaml"}
	if len(paths) != len(want) || paths[0] != want[0] || paths[1] != want[1] {
		t.Errorf("paths = %v, want %v", paths, want)
	}
}

func TestProjectRenamePreservesIdentity(t *testing.T) {
	n := node(t, "up", `
- rename:
    - "^files/(.*)": "%[1]s"
`, map[string]string{"files/x.txt": "X"})
	if err := New().Project(n); err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	if n.Intermediate.Len() != 1 {
		t.Fatalf("expected 1 file, got %v", n.Intermediate.Paths())
	}
	f, ok := n.Intermediate.Get("x.txt")
	if !ok || string(f.Bytes) != "X" {
		t.Errorf("expected x.txt with original bytes, got %v", n.Intermediate.Paths())
	}
}

func TestProjectTemplateMarking(t *testing.T) {
	n := node(t, "up", `
- template: ["**/*.tmpl"]
`, map[string]string{"ci.yml.tmpl": "${X}", "plain.yml": "${X}"})
	if err := New().Project(n); err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	tmplFile, _ := n.Intermediate.Get("ci.yml.tmpl")
	if !tmplFile.IsTemplate {
		t.Error("matching file should be flagged")
	}
	plain, _ := n.Intermediate.Get("plain.yml")
	if plain.IsTemplate {
		t.Error("non-matching file should not be flagged")
	}
	// Marking is an attribute, not substitution.
	if string(tmplFile.Bytes) != "${X}" {
		t.Errorf("marking must not substitute: %q", tmplFile.Bytes)
	}
}

func TestProjectCollectsVarsAndMerges(t *testing.T) {
	n := node(t, "up", `
- template-vars: {A: "1", B: "2"}
- yaml: {source: f.yaml, dest: d.yaml}
- template-vars: {A: "3"}
`, map[string]string{"f.yaml": ""})
	if err := New().Project(n); err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	if len(n.Vars) != 3 || n.Vars[0][1] != "1" || n.Vars[2][1] != "3" {
		t.Errorf("vars = %v", n.Vars)
	}
	if len(n.Deferred) != 1 || n.Deferred[0].Dest != "d.yaml" {
		t.Errorf("deferred = %+v", n.Deferred)
	}
	// Merge directives are collected, not executed.
	if _, ok := n.Intermediate.Get("d.yaml"); ok {
		t.Error("projection must not execute merges")
	}
}

func TestProjectAutoExcludesManifest(t *testing.T) {
	n := node(t, "up", "", map[string]string{
		".common-repo.yaml": "- include: []",
		"kept.md":           "",
	})
	if err := New().Project(n); err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	if _, ok := n.Intermediate.Get(".common-repo.yaml"); ok {
		t.Error("the upstream manifest must never be exported")
	}
	if _, ok := n.Intermediate.Get("kept.md"); !ok {
		t.Error("other files must survive")
	}
}

func TestProjectConsumerExportsNothingByDefault(t *testing.T) {
	n := node(t, "", "", map[string]string{"local.md": "L"})
	if err := New().Project(n); err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	if n.Intermediate.Len() != 0 {
		t.Errorf("consumer without include ops should contribute no files, got %v", n.Intermediate.Paths())
	}
}

func TestProjectConsumerIncludeOptsIn(t *testing.T) {
	n := node(t, "", `- include: ["local.md"]`, map[string]string{"local.md": "L", "other.md": "O"})
	if err := New().Project(n); err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	if n.Intermediate.Len() != 1 {
		t.Errorf("expected only opted-in files, got %v", n.Intermediate.Paths())
	}
}

func TestProjectMemoizesByKey(t *testing.T) {
	p := New()
	a := node(t, "up", "", map[string]string{"a.md": "A"})
	if err := p.Project(a); err != nil {
		t.Fatal(err)
	}

	// Same projection key, different node: the cached tree is reused.
	b := node(t, "up", "", nil)
	if err := p.Project(b); err != nil {
		t.Fatal(err)
	}
	if b.Intermediate != a.Intermediate {
		t.Error("same key should share the memoized projection")
	}
}

func TestProjectDeterministic(t *testing.T) {
	program := `
- exclude: ["b/**"]
- rename:
    - "^files/(.*)": "%[1]s"
`
	files := map[string]string{"files/a.txt": "1", "files/b.txt": "2", "b/x": "3"}

	first := node(t, "up", program, files)
	if err := New().Project(first); err != nil {
		t.Fatal(err)
	}
	second := node(t, "up", program, files)
	if err := New().Project(second); err != nil {
		t.Fatal(err)
	}

	fp, sp := first.Intermediate.Paths(), second.Intermediate.Paths()
	if len(fp) != len(sp) {
		t.Fatalf("non-deterministic projection: %v vs %v", fp, sp)
	}
	for i := range fp {
		if fp[i] != sp[i] {
			t.Fatalf("non-deterministic projection: %v vs %v", fp, sp)
		}
	}
}
