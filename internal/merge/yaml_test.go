package merge

import (
	"strings"
	"testing"

	"go.yaml.in/yaml/v4"
)

func decodeYAML(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err != nil {
		t.Fatalf("result is not valid YAML: %v\n%s", err, data)
	}
	return out
}

func TestYAMLPathScopedMerge(t *testing.T) {
	dest := []byte(`metadata:
  labels:
    app: old
    env: prod
`)
	source := []byte(`team: platform
app: new
`)
	out, err := YAML(dest, source, "metadata.labels", false, false)
	if err != nil {
		t.Fatalf("YAML merge failed: %v", err)
	}

	doc := decodeYAML(t, out)
	labels := doc["metadata"].(map[string]any)["labels"].(map[string]any)
	want := map[string]string{"app": "new", "env": "prod", "team": "platform"}
	for k, v := range want {
		if labels[k] != v {
			t.Errorf("labels[%q] = %v, want %q", k, labels[k], v)
		}
	}
	if len(labels) != len(want) {
		t.Errorf("labels = %v, want exactly %v", labels, want)
	}
}

func TestYAMLSiblingPreservation(t *testing.T) {
	dest := []byte(`# top comment
metadata:
  labels:
    app: old
spec:
  replicas: 3 # keep me
`)
	source := []byte("app: new\n")
	out, err := YAML(dest, source, "metadata.labels", false, false)
	if err != nil {
		t.Fatalf("YAML merge failed: %v", err)
	}
	if !strings.Contains(string(out), "# top comment") {
		t.Errorf("comment outside the target subtree was lost:\n%s", out)
	}
	if !strings.Contains(string(out), "# keep me") {
		t.Errorf("sibling comment was lost:\n%s", out)
	}
	doc := decodeYAML(t, out)
	if doc["spec"].(map[string]any)["replicas"] != 3 {
		t.Errorf("sibling value changed: %v", doc["spec"])
	}
}

func TestYAMLSequenceAppend(t *testing.T) {
	dest := []byte("steps:\n  - build\n  - test\n")
	source := []byte("- deploy\n")

	out, err := YAML(dest, source, "steps", true, false)
	if err != nil {
		t.Fatalf("YAML merge failed: %v", err)
	}
	doc := decodeYAML(t, out)
	steps := doc["steps"].([]any)
	if len(steps) != 3 || steps[2] != "deploy" {
		t.Errorf("steps = %v, want [build test deploy]", steps)
	}

	// Without append the sequence is replaced.
	out, err = YAML(dest, source, "steps", false, false)
	if err != nil {
		t.Fatalf("YAML merge failed: %v", err)
	}
	doc = decodeYAML(t, out)
	steps = doc["steps"].([]any)
	if len(steps) != 1 || steps[0] != "deploy" {
		t.Errorf("steps = %v, want [deploy]", steps)
	}
}

func TestYAMLUnionAppend(t *testing.T) {
	dest := []byte("tags:\n  - a\n  - b\n")
	source := []byte("- b\n- c\n")
	out, err := YAML(dest, source, "tags", true, true)
	if err != nil {
		t.Fatalf("YAML merge failed: %v", err)
	}
	doc := decodeYAML(t, out)
	tags := doc["tags"].([]any)
	if len(tags) != 3 {
		t.Errorf("union append should skip duplicates: %v", tags)
	}
}

func TestYAMLRootMergeAndAbsentDest(t *testing.T) {
	source := []byte("name: demo\n")

	// Absent destination parses as an empty mapping.
	out, err := YAML(nil, source, "", false, false)
	if err != nil {
		t.Fatalf("YAML merge failed: %v", err)
	}
	doc := decodeYAML(t, out)
	if doc["name"] != "demo" {
		t.Errorf("doc = %v", doc)
	}

	// Root merge over an existing document.
	out, err = YAML([]byte("name: old\nkeep: yes\n"), source, "", false, false)
	if err != nil {
		t.Fatalf("YAML merge failed: %v", err)
	}
	doc = decodeYAML(t, out)
	if doc["name"] != "demo" {
		t.Errorf("name = %v, want demo", doc["name"])
	}
	if _, ok := doc["keep"]; !ok {
		t.Error("untouched key lost on root merge")
	}
}

func TestYAMLCreatesMissingPath(t *testing.T) {
	out, err := YAML([]byte("a: 1\n"), []byte("x: y\n"), "b.c", false, false)
	if err != nil {
		t.Fatalf("YAML merge failed: %v", err)
	}
	doc := decodeYAML(t, out)
	c := doc["b"].(map[string]any)["c"].(map[string]any)
	if c["x"] != "y" {
		t.Errorf("doc = %v", doc)
	}
}

func TestYAMLIndexOutOfRange(t *testing.T) {
	_, err := YAML([]byte("s:\n  - one\n"), []byte("x: y\n"), "s[4]", false, false)
	if err == nil {
		t.Error("expected out-of-range error")
	}
}

func TestYAMLScalarReplace(t *testing.T) {
	out, err := YAML([]byte("v: 1\n"), []byte("2\n"), "v", false, false)
	if err != nil {
		t.Fatalf("YAML merge failed: %v", err)
	}
	doc := decodeYAML(t, out)
	if doc["v"] != 2 {
		t.Errorf("v = %v, want 2", doc["v"])
	}
}
