package match

import "testing"

func TestGlob(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"**/*", "a/b/c.txt", true},
		{"**/*.yml", "ci/build.yml", true},
		{"**/*.yml", "ci/build.yaml", false},
		{"*.md", "README.md", true},
		{"*.md", "docs/README.md", false},
		{"docs/**", "docs/a/b.txt", true},
		{"?.txt", "a.txt", true},
		{"?.txt", "ab.txt", false},
		{"[ab].txt", "a.txt", true},
		{"[ab].txt", "c.txt", false},
		{".git/**", ".git/config", true},
	}
	for _, tt := range tests {
		got, err := Glob(tt.pattern, tt.path)
		if err != nil {
			t.Errorf("Glob(%q, %q): unexpected error: %v", tt.pattern, tt.path, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Glob(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
		}
	}
}

func TestAny(t *testing.T) {
	patterns := []string{"*.md", "ci/**"}
	ok, err := Any(patterns, "ci/build.yml")
	if err != nil || !ok {
		t.Errorf("Any = %v, %v; want true", ok, err)
	}
	ok, err = Any(patterns, "src/main.go")
	if err != nil || ok {
		t.Errorf("Any = %v, %v; want false", ok, err)
	}
}

func TestValidatePatterns(t *testing.T) {
	if err := ValidatePatterns([]string{"**/*", "[ab].txt"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidatePatterns([]string{"[unclosed"}); err == nil {
		t.Error("expected error for unclosed character class")
	}
}

func TestRuleApply(t *testing.T) {
	tests := []struct {
		pattern     string
		replacement string
		path        string
		want        string
		wantMatch   bool
	}{
		{"^files/(.*)", "%[1]s", "files/x.txt", "x.txt", true},
		{"^files/(.*)", "%[1]s", "other/x.txt", "other/x.txt", false},
		{"(.*)\\.tmpl", "%[1]s", "ci.yml.tmpl", "ci.yml", true},
		{"docs/(.*)/(.*)", "%[2]s-%[1]s", "docs/a/b.md", "b.md-a", true},
		// Full match required: a partial match must not rewrite.
		{"files/", "gone/", "files/x.txt", "files/x.txt", false},
		// Unreferenced capture groups leave no trace.
		{"(a)(b)c", "%[1]s", "abc", "a", true},
	}
	for _, tt := range tests {
		r, err := CompileRule(tt.pattern, tt.replacement)
		if err != nil {
			t.Fatalf("CompileRule(%q, %q) failed: %v", tt.pattern, tt.replacement, err)
		}
		got, matched := r.Apply(tt.path)
		if matched != tt.wantMatch {
			t.Errorf("Apply(%q): matched = %v, want %v", tt.path, matched, tt.wantMatch)
		}
		if got != tt.want {
			t.Errorf("Apply(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestCompileRuleErrors(t *testing.T) {
	if _, err := CompileRule("(unclosed", "x"); err == nil {
		t.Error("expected invalid regex error")
	}
	if _, err := CompileRule("files/(.*)", "%[2]s"); err == nil {
		t.Error("expected out-of-range capture group error")
	}
}

func TestRenamerFirstRuleWins(t *testing.T) {
	rn, err := NewRenamer([][2]string{
		{"^a/(.*)", "b/%[1]s"},
		{"^b/(.*)", "c/%[1]s"},
	})
	if err != nil {
		t.Fatalf("NewRenamer failed: %v", err)
	}

	// The first matching rule rewrites; its output is not fed to
	// subsequent rules.
	got, ok := rn.Apply("a/x.txt")
	if !ok || got != "b/x.txt" {
		t.Errorf("Apply(a/x.txt) = %q, %v; want b/x.txt", got, ok)
	}
	got, ok = rn.Apply("b/y.txt")
	if !ok || got != "c/y.txt" {
		t.Errorf("Apply(b/y.txt) = %q, %v; want c/y.txt", got, ok)
	}
}
