package merge

import (
	"bytes"
	"fmt"
	"reflect"

	"go.yaml.in/yaml/v4"
)

// YAML merges source into dest at the directive path. Destination node
// structure outside the target subtree is untouched, so sibling keys
// keep their formatting and comments.
func YAML(dest, source []byte, path string, appendSeq, union bool) ([]byte, error) {
	segs, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	var destDoc yaml.Node
	if len(bytes.TrimSpace(dest)) == 0 {
		destDoc = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
		}
	} else if err := yaml.Unmarshal(dest, &destDoc); err != nil {
		return nil, fmt.Errorf("failed to parse destination YAML: %w", err)
	}
	if len(destDoc.Content) == 0 {
		// Comment-only destinations parse to an empty document.
		destDoc = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
		}
	}

	var srcDoc yaml.Node
	if err := yaml.Unmarshal(source, &srcDoc); err != nil {
		return nil, fmt.Errorf("failed to parse source YAML: %w", err)
	}
	if len(srcDoc.Content) == 0 {
		return dest, nil
	}

	root := destDoc.Content[0]
	target, setTarget, err := resolveYAMLPath(root, segs, func(n *yaml.Node) { destDoc.Content[0] = n })
	if err != nil {
		return nil, err
	}
	merged := mergeYAMLNodes(target, srcDoc.Content[0], appendSeq, union)
	setTarget(merged)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&destDoc); err != nil {
		return nil, fmt.Errorf("failed to serialize merged YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// resolveYAMLPath walks segs from root, creating empty mappings for
// missing keys (the target included). It returns the target node and a
// setter that replaces it in its parent.
func resolveYAMLPath(root *yaml.Node, segs []Seg, setRoot func(*yaml.Node)) (*yaml.Node, func(*yaml.Node), error) {
	cur := root
	set := setRoot
	for _, seg := range segs {
		if seg.IsIndex {
			if cur.Kind != yaml.SequenceNode {
				return nil, nil, fmt.Errorf("path segment %s targets a %s, not a sequence", seg, yamlKindName(cur.Kind))
			}
			if seg.Index < 0 || seg.Index >= len(cur.Content) {
				return nil, nil, fmt.Errorf("path index %d out of range (sequence has %d elements)", seg.Index, len(cur.Content))
			}
			parent, idx := cur, seg.Index
			cur = cur.Content[idx]
			set = func(n *yaml.Node) { parent.Content[idx] = n }
			continue
		}
		if cur.Kind != yaml.MappingNode {
			return nil, nil, fmt.Errorf("path segment %q targets a %s, not a mapping", seg.Key, yamlKindName(cur.Kind))
		}
		child := findMapValue(cur, seg.Key)
		if child == nil {
			// Create the remaining chain as empty mappings.
			child = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			cur.Content = append(cur.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: seg.Key}, child)
		}
		parent, key := cur, seg.Key
		cur = child
		set = func(n *yaml.Node) { replaceMapValue(parent, key, n) }
	}
	return cur, set, nil
}

// mergeYAMLNodes computes the merged node. Mappings merge recursively,
// sequences append when requested, everything else is replaced by src.
// Destination key nodes (and their comments) survive recursion.
func mergeYAMLNodes(dst, src *yaml.Node, appendSeq, union bool) *yaml.Node {
	if dst == nil {
		return src
	}
	if dst.Kind == yaml.MappingNode && src.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(src.Content); i += 2 {
			key, val := src.Content[i], src.Content[i+1]
			existing := findMapValue(dst, key.Value)
			if existing == nil {
				dst.Content = append(dst.Content, key, val)
				continue
			}
			replaceMapValue(dst, key.Value, mergeYAMLNodes(existing, val, appendSeq, union))
		}
		return dst
	}
	if dst.Kind == yaml.SequenceNode && src.Kind == yaml.SequenceNode && appendSeq {
		for _, el := range src.Content {
			if union && yamlSeqContains(dst, el) {
				continue
			}
			dst.Content = append(dst.Content, el)
		}
		return dst
	}
	return src
}

func yamlSeqContains(seq *yaml.Node, el *yaml.Node) bool {
	var want any
	if el.Decode(&want) != nil {
		return false
	}
	for _, existing := range seq.Content {
		var have any
		if existing.Decode(&have) == nil && reflect.DeepEqual(have, want) {
			return true
		}
	}
	return false
}

func findMapValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func replaceMapValue(m *yaml.Node, key string, val *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = val
			return
		}
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, val)
}

func yamlKindName(k yaml.Kind) string {
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
