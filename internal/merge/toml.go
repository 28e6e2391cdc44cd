package merge

import (
	"fmt"
	"reflect"

	toml "github.com/pelletier/go-toml"
)

// TOML merges source into dest at the directive path. The go-toml v1
// parser discards comments while loading, so the merged output carries
// no comment from dest or source, whether or not preserveComments is
// set; comments of unmerged regions are not retained.
func TOML(dest, source []byte, path string, appendSeq, preserveComments, union bool) ([]byte, error) {
	segs, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	destTree, err := toml.LoadBytes(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to parse destination TOML: %w", err)
	}
	srcTree, err := toml.LoadBytes(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source TOML: %w", err)
	}

	if !preserveComments {
		// Rebuilding from the plain map drops every comment up front.
		if destTree, err = toml.TreeFromMap(destTree.ToMap()); err != nil {
			return nil, err
		}
	}

	if len(segs) == 0 {
		mergeTOMLTrees(destTree, srcTree, appendSeq, union)
		return []byte(destTree.String()), nil
	}

	parent, last, err := resolveTOMLParent(destTree, segs)
	if err != nil {
		return nil, err
	}
	existing := parent.GetPath([]string{last})
	if sub, ok := existing.(*toml.Tree); ok {
		mergeTOMLTrees(sub, srcTree, appendSeq, union)
	} else if existing == nil {
		parent.SetPath([]string{last}, srcTree)
	} else {
		parent.SetPath([]string{last}, mergeTOMLValues(existing, srcTree, appendSeq, union))
	}
	return []byte(destTree.String()), nil
}

// resolveTOMLParent walks all but the last path segment, creating
// missing intermediate tables, and returns the parent tree plus the
// final key. Index segments select elements of arrays of tables.
func resolveTOMLParent(root *toml.Tree, segs []Seg) (*toml.Tree, string, error) {
	last := segs[len(segs)-1]
	if last.IsIndex {
		return nil, "", fmt.Errorf("path segment %s: TOML targets must end in a key", last)
	}
	cur := root
	i := 0
	for i < len(segs)-1 {
		seg := segs[i]
		if seg.IsIndex {
			return nil, "", fmt.Errorf("path segment %s: index must follow a key", seg)
		}
		next := cur.GetPath([]string{seg.Key})
		if next == nil {
			sub, err := toml.TreeFromMap(map[string]any{})
			if err != nil {
				return nil, "", err
			}
			cur.SetPath([]string{seg.Key}, sub)
			cur = sub
			i++
			continue
		}
		i++
		for i < len(segs)-1 && segs[i].IsIndex {
			arr, ok := next.([]*toml.Tree)
			if !ok {
				return nil, "", fmt.Errorf("path segment %s indexes a %T, not an array of tables", segs[i], next)
			}
			idx := segs[i].Index
			if idx < 0 || idx >= len(arr) {
				return nil, "", fmt.Errorf("path index %d out of range (array has %d tables)", idx, len(arr))
			}
			next = arr[idx]
			i++
		}
		sub, ok := next.(*toml.Tree)
		if !ok {
			return nil, "", fmt.Errorf("path segment %q targets a %T, not a table", seg.Key, next)
		}
		cur = sub
	}
	return cur, last.Key, nil
}

// mergeTOMLTrees merges src into dst in place: tables recurse, arrays
// append when requested, everything else is replaced.
func mergeTOMLTrees(dst, src *toml.Tree, appendSeq, union bool) {
	for _, key := range src.Keys() {
		sv := src.GetPath([]string{key})
		dv := dst.GetPath([]string{key})
		if dv == nil {
			dst.SetPath([]string{key}, sv)
			continue
		}
		if dstSub, ok := dv.(*toml.Tree); ok {
			if srcSub, ok := sv.(*toml.Tree); ok {
				mergeTOMLTrees(dstSub, srcSub, appendSeq, union)
				continue
			}
		}
		dst.SetPath([]string{key}, mergeTOMLValues(dv, sv, appendSeq, union))
	}
}

// mergeTOMLValues merges two non-table values.
func mergeTOMLValues(dv, sv any, appendSeq, union bool) any {
	if !appendSeq {
		return sv
	}
	dslice := reflect.ValueOf(dv)
	sslice := reflect.ValueOf(sv)
	if dslice.Kind() != reflect.Slice || sslice.Kind() != reflect.Slice {
		return sv
	}
	out := make([]any, 0, dslice.Len()+sslice.Len())
	for i := 0; i < dslice.Len(); i++ {
		out = append(out, dslice.Index(i).Interface())
	}
	for i := 0; i < sslice.Len(); i++ {
		el := sslice.Index(i).Interface()
		if union && sliceContains(out, el) {
			continue
		}
		out = append(out, el)
	}
	return out
}

func sliceContains(haystack []any, needle any) bool {
	for _, el := range haystack {
		if reflect.DeepEqual(el, needle) {
			return true
		}
	}
	return false
}
