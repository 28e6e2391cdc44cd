package tree

import (
	"testing"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"a/b/c.txt", "a/b/c.txt", false},
		{"./a/b.txt", "a/b.txt", false},
		{"a//b.txt", "a/b.txt", false},
		{"a\\b.txt", "a/b.txt", false},
		{"/abs.txt", "", true},
		{"a/../b.txt", "", true},
		{"", "", true},
		{".", "", true},
	}
	for _, tt := range tests {
		got, err := Canonical(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Canonical(%q): expected error, got %q", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Canonical(%q): unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Canonical(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAddGetRemove(t *testing.T) {
	tr := New()
	if err := tr.Add(&File{Path: "./docs//readme.md", Bytes: []byte("hi")}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	f, ok := tr.Get("docs/readme.md")
	if !ok {
		t.Fatal("expected canonicalized path to be retrievable")
	}
	if string(f.Bytes) != "hi" {
		t.Errorf("unexpected content: %q", f.Bytes)
	}

	if !tr.Remove("docs/readme.md") {
		t.Error("Remove should report existing file")
	}
	if tr.Remove("docs/readme.md") {
		t.Error("Remove should report missing file")
	}
}

func TestRenameOverwrites(t *testing.T) {
	tr := New()
	_ = tr.Add(&File{Path: "a.txt", Bytes: []byte("a")})
	_ = tr.Add(&File{Path: "b.txt", Bytes: []byte("b")})

	if err := tr.Rename("a.txt", "b.txt"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if tr.Len() != 1 {
		t.Fatalf("expected 1 file, got %d", tr.Len())
	}
	f, _ := tr.Get("b.txt")
	if string(f.Bytes) != "a" {
		t.Errorf("rename should overwrite destination, got %q", f.Bytes)
	}
}

func TestOverlayLaterWins(t *testing.T) {
	base := New()
	_ = base.Add(&File{Path: "README.md", Bytes: []byte("A")})
	_ = base.Add(&File{Path: "only-base.txt", Bytes: []byte("x")})

	over := New()
	_ = over.Add(&File{Path: "README.md", Bytes: []byte("B")})

	base.Overlay(over)

	f, _ := base.Get("README.md")
	if string(f.Bytes) != "B" {
		t.Errorf("overlay should overwrite, got %q", f.Bytes)
	}
	if _, ok := base.Get("only-base.txt"); !ok {
		t.Error("overlay should keep non-colliding files")
	}
}

func TestOverlayIsolatesSource(t *testing.T) {
	src := New()
	_ = src.Add(&File{Path: "a.txt", Bytes: []byte("orig")})

	dst := New()
	dst.Overlay(src)

	f, _ := dst.Get("a.txt")
	f.Bytes[0] = 'X'

	orig, _ := src.Get("a.txt")
	if string(orig.Bytes) != "orig" {
		t.Error("overlay must deep-copy file content")
	}
}

func TestPathsSorted(t *testing.T) {
	tr := New()
	for _, p := range []string{"z.txt", "a.txt", "m/x.txt"} {
		_ = tr.Add(&File{Path: p})
	}
	paths := tr.Paths()
	want := []string{"a.txt", "m/x.txt", "z.txt"}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("Paths() = %v, want %v", paths, want)
		}
	}
}

func TestCopy(t *testing.T) {
	tr := New()
	_ = tr.Add(&File{Path: "src.txt", Bytes: []byte("s"), IsTemplate: true})
	if err := tr.Copy("src.txt", "dst.txt"); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	f, ok := tr.Get("dst.txt")
	if !ok || string(f.Bytes) != "s" || !f.IsTemplate {
		t.Errorf("copy should clone the record, got %+v", f)
	}
}
