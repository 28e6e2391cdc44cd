package merge

import (
	"strings"
	"testing"
)

const mdDest = `# Title

Intro text.

## Usage

Run the tool.

## License

MIT
`

func TestMarkdownOverlayWithoutSection(t *testing.T) {
	out, err := Markdown([]byte(mdDest), []byte("Appended.\n"), "", 2, false, "", false)
	if err != nil {
		t.Fatalf("Markdown merge failed: %v", err)
	}
	s := string(out)
	if !strings.HasSuffix(s, "Appended.\n") {
		t.Errorf("source should be appended:\n%s", s)
	}
	if !strings.Contains(s, "# Title") {
		t.Errorf("destination content lost:\n%s", s)
	}
}

func TestMarkdownReplaceSectionBody(t *testing.T) {
	out, err := Markdown([]byte(mdDest), []byte("New body.\n"), "Usage", 2, false, "", false)
	if err != nil {
		t.Fatalf("Markdown merge failed: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, "## Usage\nNew body.\n") {
		t.Errorf("section body not replaced:\n%s", s)
	}
	if strings.Contains(s, "Run the tool.") {
		t.Errorf("old body should be gone:\n%s", s)
	}
	if !strings.Contains(s, "## License\n\nMIT") {
		t.Errorf("following section damaged:\n%s", s)
	}
}

func TestMarkdownAppendInsideSection(t *testing.T) {
	out, err := Markdown([]byte(mdDest), []byte("Also this.\n"), "Usage", 2, true, "end", false)
	if err != nil {
		t.Fatalf("Markdown merge failed: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, "Run the tool.") {
		t.Errorf("existing body lost:\n%s", s)
	}
	usage := s[strings.Index(s, "## Usage"):strings.Index(s, "## License")]
	if !strings.Contains(usage, "Also this.") {
		t.Errorf("content not inserted inside section:\n%s", s)
	}

	out, err = Markdown([]byte(mdDest), []byte("First!"), "Usage", 2, true, "start", false)
	if err != nil {
		t.Fatalf("Markdown merge failed: %v", err)
	}
	s = string(out)
	if !strings.Contains(s, "## Usage\nFirst!") {
		t.Errorf("start position should insert right after the heading:\n%s", s)
	}
}

func TestMarkdownSectionNotFound(t *testing.T) {
	// Wrong level: Usage exists at level 2, not 3.
	if _, err := Markdown([]byte(mdDest), []byte("x"), "Usage", 3, false, "", false); err == nil {
		t.Error("expected section-not-found error for wrong level")
	}
	if _, err := Markdown([]byte(mdDest), []byte("x"), "Missing", 2, false, "", false); err == nil {
		t.Error("expected section-not-found error")
	}
}

func TestMarkdownCreateSection(t *testing.T) {
	out, err := Markdown([]byte(mdDest), []byte("Report bugs upstream.\n"), "Contributing", 2, false, "", true)
	if err != nil {
		t.Fatalf("Markdown merge failed: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, "## Contributing") {
		t.Errorf("section not created:\n%s", s)
	}
	if strings.Index(s, "## License") > strings.Index(s, "## Contributing") {
		t.Errorf("default position should be document end:\n%s", s)
	}

	out, err = Markdown([]byte(mdDest), []byte("Body.\n"), "Contributing", 2, false, "before:License", true)
	if err != nil {
		t.Fatalf("Markdown merge failed: %v", err)
	}
	s = string(out)
	if strings.Index(s, "## Contributing") > strings.Index(s, "## License") {
		t.Errorf("before:License not honored:\n%s", s)
	}
}

func TestMarkdownCreateIntoEmptyDest(t *testing.T) {
	out, err := Markdown(nil, []byte("Body.\n"), "Notes", 3, false, "", true)
	if err != nil {
		t.Fatalf("Markdown merge failed: %v", err)
	}
	if !strings.Contains(string(out), "### Notes\n\nBody.") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestMarkdownHeadingLevelBoundary(t *testing.T) {
	// A deeper heading does not terminate the section.
	dest := `## Usage

Text.

### Sub

More.

## Next

End.
`
	out, err := Markdown([]byte(dest), []byte("Tail.\n"), "Usage", 2, true, "end", false)
	if err != nil {
		t.Fatalf("Markdown merge failed: %v", err)
	}
	s := string(out)
	tail := strings.Index(s, "Tail.")
	next := strings.Index(s, "## Next")
	if tail < 0 || next < 0 || tail > next {
		t.Errorf("append should land before the next same-level heading:\n%s", s)
	}
	if sub := strings.Index(s, "### Sub"); sub > tail {
		t.Errorf("sub-section should stay inside the section, before the tail:\n%s", s)
	}
}
