package manifest

import (
	"fmt"

	"go.yaml.in/yaml/v4"
)

// Parse decodes manifest bytes in either accepted shape: the canonical
// list of single-key operations, or the legacy nested mapping.
func Parse(data []byte) (*Manifest, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid manifest YAML: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return &Manifest{}, nil
	}
	root := doc.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		ops, err := parseProgram(root)
		if err != nil {
			return nil, err
		}
		return &Manifest{Operations: ops}, nil
	case yaml.MappingNode:
		ops, err := parseLegacy(root)
		if err != nil {
			return nil, err
		}
		return &Manifest{Operations: ops}, nil
	case yaml.ScalarNode:
		if root.Tag == "!!null" {
			return &Manifest{}, nil
		}
	}
	return nil, fmt.Errorf("manifest must be a sequence of operations or a mapping, got %s at line %d",
		nodeKindName(root.Kind), root.Line)
}

// parseProgram decodes a sequence of single-key operation mappings.
func parseProgram(seq *yaml.Node) ([]Operation, error) {
	ops := make([]Operation, 0, len(seq.Content))
	for _, item := range seq.Content {
		if item.Kind != yaml.MappingNode || len(item.Content) != 2 {
			return nil, fmt.Errorf("each operation must be a single-key mapping (line %d)", item.Line)
		}
		key, val := item.Content[0], item.Content[1]
		op, err := parseOperation(Kind(key.Value), val)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func parseOperation(kind Kind, val *yaml.Node) (Operation, error) {
	switch kind {
	case KindRepo:
		repo, err := parseRepo(val)
		if err != nil {
			return Operation{}, err
		}
		return Operation{Kind: KindRepo, Repo: repo}, nil
	case KindInclude, KindExclude, KindTemplate:
		patterns, err := parseStringList(val, string(kind))
		if err != nil {
			return Operation{}, err
		}
		return Operation{Kind: kind, Patterns: patterns}, nil
	case KindRename:
		rules, err := parseRenameRules(val)
		if err != nil {
			return Operation{}, err
		}
		return Operation{Kind: KindRename, Rename: rules}, nil
	case KindTemplateVars:
		vars, err := parseVars(val)
		if err != nil {
			return Operation{}, err
		}
		return Operation{Kind: KindTemplateVars, Vars: vars}, nil
	case KindTools:
		tools, err := parseTools(val)
		if err != nil {
			return Operation{}, err
		}
		return Operation{Kind: KindTools, Tools: tools}, nil
	case KindYAML, KindJSON, KindTOML, KindINI, KindMarkdown:
		m, err := parseMerge(kind, val)
		if err != nil {
			return Operation{}, err
		}
		return Operation{Kind: kind, Merge: m}, nil
	}
	return Operation{}, fmt.Errorf("unknown operation %q (line %d)", kind, val.Line)
}

func parseRepo(node *yaml.Node) (*Repo, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("repo must be a mapping (line %d)", node.Line)
	}
	repo := &Repo{}
	for i := 0; i < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "url":
			repo.URL = val.Value
		case "ref":
			repo.Ref = val.Value
		case "path":
			repo.Path = val.Value
		case "with":
			if val.Kind != yaml.SequenceNode {
				return nil, fmt.Errorf("repo with-clause must be a sequence (line %d)", val.Line)
			}
			with, err := parseProgram(val)
			if err != nil {
				return nil, err
			}
			repo.With = with
		default:
			return nil, fmt.Errorf("unknown repo field %q (line %d)", key.Value, key.Line)
		}
	}
	if repo.URL == "" {
		return nil, fmt.Errorf("repo is missing url (line %d)", node.Line)
	}
	if repo.Ref == "" {
		return nil, fmt.Errorf("repo %s is missing ref (line %d)", repo.URL, node.Line)
	}
	return repo, nil
}

func parseStringList(node *yaml.Node, what string) ([]string, error) {
	if node.Kind == yaml.ScalarNode {
		return []string{node.Value}, nil
	}
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%s must be a list of patterns (line %d)", what, node.Line)
	}
	out := make([]string, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%s entries must be strings (line %d)", what, item.Line)
		}
		out = append(out, item.Value)
	}
	return out, nil
}

func parseRenameRules(node *yaml.Node) ([]RenameRule, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("rename must be a list of pattern-to-replacement pairs (line %d)", node.Line)
	}
	rules := make([]RenameRule, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.MappingNode || len(item.Content) != 2 {
			return nil, fmt.Errorf("each rename rule must be a single pattern: replacement pair (line %d)", item.Line)
		}
		rules = append(rules, RenameRule{
			Pattern:     item.Content[0].Value,
			Replacement: item.Content[1].Value,
		})
	}
	return rules, nil
}

func parseVars(node *yaml.Node) ([]Var, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("template-vars must be a mapping (line %d)", node.Line)
	}
	vars := make([]Var, 0, len(node.Content)/2)
	for i := 0; i < len(node.Content); i += 2 {
		vars = append(vars, Var{
			Name:  node.Content[i].Value,
			Value: node.Content[i+1].Value,
		})
	}
	return vars, nil
}

func parseTools(node *yaml.Node) ([]Tool, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("tools must be a list (line %d)", node.Line)
	}
	tools := make([]Tool, 0, len(node.Content))
	for _, item := range node.Content {
		var t Tool
		if err := item.Decode(&t); err != nil {
			return nil, fmt.Errorf("invalid tool entry (line %d): %w", item.Line, err)
		}
		if t.Name == "" {
			return nil, fmt.Errorf("tool entry is missing name (line %d)", item.Line)
		}
		if t.Version == "" {
			t.Version = "*"
		}
		tools = append(tools, t)
	}
	return tools, nil
}

func parseMerge(format Kind, node *yaml.Node) (*Merge, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%s merge must be a mapping (line %d)", format, node.Line)
	}
	m := &Merge{Format: format}
	for i := 0; i < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		var err error
		switch key.Value {
		case "source":
			m.Source = val.Value
		case "dest":
			m.Dest = val.Value
		case "path":
			m.Path = val.Value
		case "section":
			m.Section = val.Value
		case "append":
			err = val.Decode(&m.Append)
		case "position":
			m.Position = val.Value
		case "preserve-comments":
			var b bool
			if err = val.Decode(&b); err == nil {
				m.PreserveComments = &b
			}
		case "allow-duplicates":
			err = val.Decode(&m.AllowDuplicates)
		case "level":
			err = val.Decode(&m.Level)
		case "create-section":
			err = val.Decode(&m.CreateSection)
		case "defer":
			err = val.Decode(&m.Defer)
		case "auto-merge":
			m.AutoMerge = val.Value
		default:
			return nil, fmt.Errorf("unknown %s merge field %q (line %d)", format, key.Value, key.Line)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid %s merge field %q (line %d): %w", format, key.Value, key.Line, err)
		}
	}
	if m.Source == "" {
		return nil, fmt.Errorf("%s merge is missing source (line %d)", format, node.Line)
	}
	if m.Dest == "" {
		return nil, fmt.Errorf("%s merge is missing dest (line %d)", format, node.Line)
	}
	return m, nil
}

// legacyOrder fixes the normalization order of legacy mapping keys.
var legacyOrder = []Kind{
	KindInclude, KindExclude, KindRename, KindTemplate,
	KindTemplateVars, KindTools,
	KindYAML, KindJSON, KindTOML, KindINI, KindMarkdown,
}

// parseLegacy decodes the legacy nested shape: a single mapping with a
// repos sequence plus at most one instance of each remaining operator.
// Normalization order: repos first (in sequence order), then the
// remaining operators in a fixed order.
func parseLegacy(root *yaml.Node) ([]Operation, error) {
	byKey := make(map[string]*yaml.Node, len(root.Content)/2)
	for i := 0; i < len(root.Content); i += 2 {
		key := root.Content[i].Value
		if _, dup := byKey[key]; dup {
			return nil, fmt.Errorf("duplicate key %q in legacy manifest (line %d)", key, root.Content[i].Line)
		}
		byKey[key] = root.Content[i+1]
	}

	var ops []Operation
	if reposNode, ok := byKey["repos"]; ok {
		if reposNode.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("repos must be a sequence (line %d)", reposNode.Line)
		}
		for _, item := range reposNode.Content {
			repo, err := parseRepo(item)
			if err != nil {
				return nil, err
			}
			ops = append(ops, Operation{Kind: KindRepo, Repo: repo})
		}
		delete(byKey, "repos")
	}

	for _, kind := range legacyOrder {
		node, ok := byKey[string(kind)]
		if !ok {
			continue
		}
		delete(byKey, string(kind))
		if kind.IsMerge() {
			// A merge key may hold one directive or a list of them.
			items := []*yaml.Node{node}
			if node.Kind == yaml.SequenceNode {
				items = node.Content
			}
			for _, item := range items {
				m, err := parseMerge(kind, item)
				if err != nil {
					return nil, err
				}
				ops = append(ops, Operation{Kind: kind, Merge: m})
			}
			continue
		}
		op, err := parseOperation(kind, node)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}

	for key := range byKey {
		return nil, fmt.Errorf("unknown key %q in legacy manifest", key)
	}
	return ops, nil
}

func nodeKindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "unknown"
}
