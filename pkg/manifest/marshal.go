package manifest

import (
	"fmt"
	"os"
	"strconv"

	"go.yaml.in/yaml/v4"
)

// Marshal serializes the manifest in the canonical shape: a sequence of
// single-key operations in program order.
func (m *Manifest) Marshal() ([]byte, error) {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for i := range m.Operations {
		node, err := operationNode(&m.Operations[i])
		if err != nil {
			return nil, err
		}
		seq.Content = append(seq.Content, node)
	}
	return yaml.Marshal(seq)
}

// Save writes the manifest to path in the canonical shape.
func (m *Manifest) Save(path string) error {
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func operationNode(op *Operation) (*yaml.Node, error) {
	var val *yaml.Node
	switch op.Kind {
	case KindRepo:
		val = repoNode(op.Repo)
	case KindInclude, KindExclude, KindTemplate:
		val = stringSeq(op.Patterns)
	case KindRename:
		val = &yaml.Node{Kind: yaml.SequenceNode}
		for _, r := range op.Rename {
			val.Content = append(val.Content, mapping(r.Pattern, scalar(r.Replacement)))
		}
	case KindTemplateVars:
		val = &yaml.Node{Kind: yaml.MappingNode}
		for _, v := range op.Vars {
			appendPair(val, v.Name, scalar(v.Value))
		}
	case KindTools:
		val = &yaml.Node{Kind: yaml.SequenceNode}
		for _, t := range op.Tools {
			entry := &yaml.Node{Kind: yaml.MappingNode}
			appendPair(entry, "name", scalar(t.Name))
			appendPair(entry, "version", scalar(t.Version))
			val.Content = append(val.Content, entry)
		}
	default:
		if op.Merge == nil {
			return nil, fmt.Errorf("cannot serialize operation of kind %q", op.Kind)
		}
		val = mergeNode(op.Merge)
	}
	return mapping(string(op.Kind), val), nil
}

func repoNode(r *Repo) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode}
	appendPair(node, "url", scalar(r.URL))
	appendPair(node, "ref", scalar(r.Ref))
	if r.Path != "" {
		appendPair(node, "path", scalar(r.Path))
	}
	if len(r.With) > 0 {
		with := &yaml.Node{Kind: yaml.SequenceNode}
		for i := range r.With {
			item, err := operationNode(&r.With[i])
			if err == nil {
				with.Content = append(with.Content, item)
			}
		}
		appendPair(node, "with", with)
	}
	return node
}

func mergeNode(m *Merge) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode}
	appendPair(node, "source", scalar(m.Source))
	appendPair(node, "dest", scalar(m.Dest))
	if m.Path != "" {
		appendPair(node, "path", scalar(m.Path))
	}
	if m.Section != "" {
		appendPair(node, "section", scalar(m.Section))
	}
	if m.Append {
		appendPair(node, "append", boolScalar(true))
	}
	if m.Position != "" {
		appendPair(node, "position", scalar(m.Position))
	}
	if m.PreserveComments != nil {
		appendPair(node, "preserve-comments", boolScalar(*m.PreserveComments))
	}
	if m.AllowDuplicates {
		appendPair(node, "allow-duplicates", boolScalar(true))
	}
	if m.Level != 0 {
		appendPair(node, "level", &yaml.Node{Kind: yaml.ScalarNode, Value: strconv.Itoa(m.Level)})
	}
	if m.CreateSection {
		appendPair(node, "create-section", boolScalar(true))
	}
	if m.Defer {
		appendPair(node, "defer", boolScalar(true))
	}
	if m.AutoMerge != "" {
		appendPair(node, "auto-merge", scalar(m.AutoMerge))
	}
	return node
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: v}
}

func boolScalar(v bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v)}
}

func stringSeq(values []string) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, v := range values {
		seq.Content = append(seq.Content, scalar(v))
	}
	return seq
}

func mapping(key string, val *yaml.Node) *yaml.Node {
	return &yaml.Node{
		Kind:    yaml.MappingNode,
		Content: []*yaml.Node{scalar(key), val},
	}
}

func appendPair(m *yaml.Node, key string, val *yaml.Node) {
	m.Content = append(m.Content, scalar(key), val)
}
