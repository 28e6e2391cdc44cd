// Package manifest provides the typed model of a .common-repo.yaml
// manifest: an ordered program of operations over repository file trees.
// Two serialized shapes are accepted, a canonical list of single-key
// operations and a legacy nested mapping; both normalize to the same
// internal form.
package manifest

import (
	"fmt"
	"os"
)

// DefaultFileName is the conventional manifest file name.
const DefaultFileName = ".common-repo.yaml"

// EnvConfig selects the manifest path when set.
const EnvConfig = "COMMON_REPO_CONFIG"

// EnvCache selects the cache root when set.
const EnvCache = "COMMON_REPO_CACHE"

// Kind tags an operation variant.
type Kind string

// Operation kinds
const (
	KindRepo         Kind = "repo"
	KindInclude      Kind = "include"
	KindExclude      Kind = "exclude"
	KindRename       Kind = "rename"
	KindTemplate     Kind = "template"
	KindTemplateVars Kind = "template-vars"
	KindTools        Kind = "tools"
	KindYAML         Kind = "yaml"
	KindJSON         Kind = "json"
	KindTOML         Kind = "toml"
	KindINI          Kind = "ini"
	KindMarkdown     Kind = "markdown"
)

// MergeKinds lists the merge-directive kinds in normalization order.
var MergeKinds = []Kind{KindYAML, KindJSON, KindTOML, KindINI, KindMarkdown}

// IsMerge reports whether k is a merge-directive kind.
func (k Kind) IsMerge() bool {
	switch k {
	case KindYAML, KindJSON, KindTOML, KindINI, KindMarkdown:
		return true
	}
	return false
}

// Operation is one step of a manifest program. Exactly one variant
// field is populated, selected by Kind.
type Operation struct {
	Kind Kind

	// Repo is set for KindRepo
	Repo *Repo
	// Patterns is set for KindInclude, KindExclude and KindTemplate
	Patterns []string
	// Rename is set for KindRename
	Rename []RenameRule
	// Vars is set for KindTemplateVars, in declaration order
	Vars []Var
	// Tools is set for KindTools
	Tools []Tool
	// Merge is set for the merge kinds
	Merge *Merge
}

// Repo references an upstream repository at a pinned ref.
type Repo struct {
	URL  string `yaml:"url" json:"url" jsonschema:"description=Repository URL,required"`
	Ref  string `yaml:"ref" json:"ref" jsonschema:"description=Pinned ref (tag or branch or commit),required"`
	Path string `yaml:"path,omitempty" json:"path,omitempty" jsonschema:"description=Sub-path serving as the effective root"`
	// With is an inline operation program restricted to include,
	// exclude, rename, template and tools.
	With []Operation `yaml:"-" json:"-"`
}

// RenameRule is a single regex to replacement-template pair.
// Replacement templates use %[N]s for capture group N.
type RenameRule struct {
	Pattern     string
	Replacement string
}

// Var is one template variable binding.
type Var struct {
	Name  string
	Value string
}

// Tool declares a required tool and its version requirement.
type Tool struct {
	Name    string `yaml:"name" json:"name" jsonschema:"required"`
	Version string `yaml:"version" json:"version" jsonschema:"description=Requirement: * or X or >=X or ^X or ~X"`
}

// Merge is a structured merge directive for one of the supported
// formats. Field applicability depends on Format.
type Merge struct {
	Format Kind

	Source string
	Dest   string
	// Path targets a location inside YAML/JSON/TOML documents,
	// e.g. a.b[0].c with quoting for keys containing . or [.
	Path string
	// Section targets an INI section or a Markdown heading.
	Section string
	// Append inserts into sequences or section bodies instead of
	// replacing them.
	Append bool
	// Position is start, end, a numeric index (JSON), or
	// before:<section> / after:<section> (Markdown).
	Position string
	// PreserveComments is accepted for TOML merges; the TOML parser
	// discards comments on load, so merged output carries none either way.
	// Defaults to true.
	PreserveComments *bool
	// AllowDuplicates keeps repeated INI keys instead of replacing.
	AllowDuplicates bool
	// Level is the Markdown heading level of Section. Defaults to 2.
	Level int
	// CreateSection creates a missing Markdown section at Position.
	CreateSection bool
	// Defer postpones the directive to the consumer's local overlay.
	Defer bool
	// AutoMerge refines the append policy. Only "union" is recognized.
	AutoMerge string
}

// KeepComments resolves the PreserveComments default.
func (m *Merge) KeepComments() bool {
	return m.PreserveComments == nil || *m.PreserveComments
}

// HeadingLevel resolves the Level default.
func (m *Merge) HeadingLevel() int {
	if m.Level == 0 {
		return 2
	}
	return m.Level
}

// Manifest is an ordered operation program.
type Manifest struct {
	Operations []Operation
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Repos returns the repo operations in declaration order.
func (m *Manifest) Repos() []*Repo {
	var repos []*Repo
	for i := range m.Operations {
		if m.Operations[i].Kind == KindRepo {
			repos = append(repos, m.Operations[i].Repo)
		}
	}
	return repos
}

// Empty reports whether the manifest has no operations.
func (m *Manifest) Empty() bool {
	return m == nil || len(m.Operations) == 0
}
