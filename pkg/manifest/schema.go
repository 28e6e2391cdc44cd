package manifest

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// docEntry mirrors the canonical single-key operation shape for schema
// generation. Exactly one field is set per entry.
type docEntry struct {
	Repo         *Repo               `json:"repo,omitempty" jsonschema:"description=Inherit from an upstream repository"`
	Include      []string            `json:"include,omitempty" jsonschema:"description=Keep only files matching these glob patterns"`
	Exclude      []string            `json:"exclude,omitempty" jsonschema:"description=Remove files matching these glob patterns"`
	Rename       []map[string]string `json:"rename,omitempty" jsonschema:"description=Ordered regex to replacement-template pairs"`
	Template     []string            `json:"template,omitempty" jsonschema:"description=Mark matching files as template-bearing"`
	TemplateVars map[string]string   `json:"template-vars,omitempty" jsonschema:"description=Template variable bindings"`
	Tools        []Tool              `json:"tools,omitempty" jsonschema:"description=Tool existence and version checks"`
	YAML         *docMerge           `json:"yaml,omitempty" jsonschema:"description=Structured YAML merge"`
	JSON         *docMerge           `json:"json,omitempty" jsonschema:"description=Structured JSON merge"`
	TOML         *docMerge           `json:"toml,omitempty" jsonschema:"description=Structured TOML merge"`
	INI          *docMerge           `json:"ini,omitempty" jsonschema:"description=INI section merge"`
	Markdown     *docMerge           `json:"markdown,omitempty" jsonschema:"description=Markdown section merge"`
}

type docMerge struct {
	Source           string `json:"source" jsonschema:"required,description=Source path in the contributing tree"`
	Dest             string `json:"dest" jsonschema:"required,description=Destination path in the composite"`
	Path             string `json:"path,omitempty" jsonschema:"description=Target path inside the document (yaml/json/toml)"`
	Section          string `json:"section,omitempty" jsonschema:"description=Target section (ini/markdown)"`
	Append           bool   `json:"append,omitempty" jsonschema:"description=Append to sequences or section bodies instead of replacing"`
	Position         string `json:"position,omitempty" jsonschema:"description=Insertion position: start\\, end\\, index (json)\\, before:<s> or after:<s> (markdown)"`
	PreserveComments *bool  `json:"preserve-comments,omitempty" jsonschema:"description=Accepted for TOML merges; merged TOML output carries no comments either way,default=true"`
	AllowDuplicates  bool   `json:"allow-duplicates,omitempty" jsonschema:"description=Keep repeated INI keys"`
	Level            int    `json:"level,omitempty" jsonschema:"description=Markdown heading level,minimum=1,maximum=6,default=2"`
	CreateSection    bool   `json:"create-section,omitempty" jsonschema:"description=Create a missing Markdown section"`
	Defer            bool   `json:"defer,omitempty" jsonschema:"description=Evaluate in the consumer's local overlay"`
	AutoMerge        string `json:"auto-merge,omitempty" jsonschema:"description=Append refinement hint,enum=union"`
}

// GenerateJSONSchema returns the JSON Schema for .common-repo.yaml in
// its canonical shape.
func GenerateJSONSchema() string {
	r := &jsonschema.Reflector{
		DoNotReference:             true,
		ExpandedStruct:             false,
		AllowAdditionalProperties:  false,
		RequiredFromJSONSchemaTags: true,
	}

	schema := r.Reflect(&docEntry{})
	schema.ID = "https://github.com/edelwud/common-repo/raw/main/common-repo.schema.json"
	schema.Title = "common-repo manifest entry"
	schema.Description = "One operation of a .common-repo.yaml manifest (the manifest is a sequence of these)"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "{}"
	}

	return string(data)
}
