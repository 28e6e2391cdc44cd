package merge

import (
	"strings"
	"testing"

	toml "github.com/pelletier/go-toml"
)

func loadTOML(t *testing.T, data []byte) *toml.Tree {
	t.Helper()
	tree, err := toml.LoadBytes(data)
	if err != nil {
		t.Fatalf("result is not valid TOML: %v\n%s", err, data)
	}
	return tree
}

func TestTOMLTableMerge(t *testing.T) {
	dest := []byte(`[tool]
name = "old"
keep = true

[other]
x = 1
`)
	source := []byte(`name = "new"
extra = "added"
`)
	out, err := TOML(dest, source, "tool", false, true, false)
	if err != nil {
		t.Fatalf("TOML merge failed: %v", err)
	}

	tree := loadTOML(t, out)
	if got := tree.Get("tool.name"); got != "new" {
		t.Errorf("tool.name = %v, want new", got)
	}
	if got := tree.Get("tool.keep"); got != true {
		t.Errorf("tool.keep = %v, want true", got)
	}
	if got := tree.Get("tool.extra"); got != "added" {
		t.Errorf("tool.extra = %v, want added", got)
	}
	if got := tree.Get("other.x"); got != int64(1) {
		t.Errorf("other.x = %v, want 1", got)
	}
}

func TestTOMLPreservesComments(t *testing.T) {
	dest := []byte(`# build settings
[build]
jobs = 4

[untouched]
# a comment in an unmerged region
value = "x"
`)
	source := []byte("jobs = 8\n")
	out, err := TOML(dest, source, "build", false, true, false)
	if err != nil {
		t.Fatalf("TOML merge failed: %v", err)
	}
	if !strings.Contains(string(out), "unmerged region") {
		t.Errorf("comment in unmerged region was lost:\n%s", out)
	}
	tree := loadTOML(t, out)
	if got := tree.Get("build.jobs"); got != int64(8) {
		t.Errorf("build.jobs = %v, want 8", got)
	}
}

func TestTOMLDropCommentsWhenDisabled(t *testing.T) {
	dest := []byte("# gone\nkey = 1\n")
	out, err := TOML(dest, []byte("other = 2\n"), "", false, false, false)
	if err != nil {
		t.Fatalf("TOML merge failed: %v", err)
	}
	if strings.Contains(string(out), "# gone") {
		t.Errorf("comments should be dropped with preserve-comments=false:\n%s", out)
	}
	tree := loadTOML(t, out)
	if tree.Get("key") != int64(1) || tree.Get("other") != int64(2) {
		t.Errorf("merged values wrong:\n%s", out)
	}
}

func TestTOMLArrayAppend(t *testing.T) {
	dest := []byte(`members = ["a", "b"]` + "\n")
	source := []byte(`members = ["c"]` + "\n")
	out, err := TOML(dest, source, "", true, true, false)
	if err != nil {
		t.Fatalf("TOML merge failed: %v", err)
	}
	tree := loadTOML(t, out)
	members := tree.Get("members").([]any)
	if len(members) != 3 || members[2] != "c" {
		t.Errorf("members = %v, want [a b c]", members)
	}
}

func TestTOMLCreatesMissingTable(t *testing.T) {
	out, err := TOML([]byte("a = 1\n"), []byte("x = \"y\"\n"), "b.c", false, true, false)
	if err != nil {
		t.Fatalf("TOML merge failed: %v", err)
	}
	tree := loadTOML(t, out)
	if got := tree.Get("b.c.x"); got != "y" {
		t.Errorf("b.c.x = %v, want y", got)
	}
	if got := tree.Get("a"); got != int64(1) {
		t.Errorf("a = %v, want 1", got)
	}
}

func TestTOMLQuotedKeyPath(t *testing.T) {
	dest := []byte(`["weird.key"]
a = 1
`)
	out, err := TOML(dest, []byte("b = 2\n"), `"weird.key"`, false, true, false)
	if err != nil {
		t.Fatalf("TOML merge failed: %v", err)
	}
	tree := loadTOML(t, out)
	sub := tree.Get("weird.key")
	if sub == nil {
		// The tree API addresses the literal key through GetPath.
		sub = tree.GetPath([]string{"weird.key"})
	}
	subTree, ok := sub.(*toml.Tree)
	if !ok {
		t.Fatalf("weird.key is %T", sub)
	}
	if subTree.Get("a") != int64(1) || subTree.Get("b") != int64(2) {
		t.Errorf("merged table wrong: %v", subTree.String())
	}
}

func TestTOMLBadDest(t *testing.T) {
	if _, err := TOML([]byte("not = = toml"), []byte(""), "", false, true, false); err == nil {
		t.Error("expected destination parse error")
	}
}
