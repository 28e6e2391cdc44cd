package merge

import (
	"bytes"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// JSON merges source into dest at the directive path. Writes go through
// sjson so destination bytes outside overwritten subtrees are
// preserved as-is. position controls sequence insertion: "start",
// "end" (default) or a numeric index.
func JSON(dest, source []byte, path string, appendSeq bool, position string, union bool) ([]byte, error) {
	segs, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	src := gjson.ParseBytes(source)
	if !src.Exists() && len(bytes.TrimSpace(source)) > 0 && !gjson.ValidBytes(source) {
		return nil, fmt.Errorf("failed to parse source JSON")
	}

	if len(bytes.TrimSpace(dest)) == 0 {
		dest = emptyJSONFor(src)
	} else if !gjson.ValidBytes(dest) {
		return nil, fmt.Errorf("failed to parse destination JSON")
	}

	gpath := gjsonPath(segs)
	var dst gjson.Result
	if gpath == "" {
		dst = gjson.ParseBytes(dest)
	} else {
		dst = gjson.GetBytes(dest, gpath)
	}
	return mergeJSONValue(dest, gpath, dst, src, appendSeq, position, union)
}

// mergeJSONValue merges src over the value at path inside doc,
// returning the updated document bytes.
func mergeJSONValue(doc []byte, path string, dst, src gjson.Result, appendSeq bool, position string, union bool) ([]byte, error) {
	switch {
	case dst.Exists() && dst.IsObject() && src.IsObject():
		var err error
		src.ForEach(func(key, val gjson.Result) bool {
			childPath := joinGJSON(path, escapeGJSONKey(key.String()))
			child := gjson.GetBytes(doc, childPath)
			doc, err = mergeJSONValue(doc, childPath, child, val, appendSeq, position, union)
			return err == nil
		})
		return doc, err
	case dst.Exists() && dst.IsArray() && src.IsArray() && appendSeq:
		merged, err := spliceJSONArray(dst, src, position, union)
		if err != nil {
			return nil, err
		}
		return setJSONRaw(doc, path, merged)
	default:
		return setJSONRaw(doc, path, src.Raw)
	}
}

// spliceJSONArray inserts src elements into dst at position and returns
// the raw merged array.
func spliceJSONArray(dst, src gjson.Result, position string, union bool) (string, error) {
	existing := dst.Array()
	var incoming []gjson.Result
	for _, el := range src.Array() {
		if union && jsonArrayContains(existing, el) {
			continue
		}
		incoming = append(incoming, el)
	}

	idx := len(existing)
	switch position {
	case "", "end":
	case "start":
		idx = 0
	default:
		n, err := strconv.Atoi(position)
		if err != nil {
			return "", fmt.Errorf("invalid position %q", position)
		}
		if n < 0 || n > len(existing) {
			return "", fmt.Errorf("position %d out of range (sequence has %d elements)", n, len(existing))
		}
		idx = n
	}

	var parts []string
	for _, el := range existing[:idx] {
		parts = append(parts, el.Raw)
	}
	for _, el := range incoming {
		parts = append(parts, el.Raw)
	}
	for _, el := range existing[idx:] {
		parts = append(parts, el.Raw)
	}
	return "[" + strings.Join(parts, ",") + "]", nil
}

func jsonArrayContains(arr []gjson.Result, el gjson.Result) bool {
	for _, existing := range arr {
		if reflect.DeepEqual(existing.Value(), el.Value()) {
			return true
		}
	}
	return false
}

// setJSONRaw writes raw at path; an empty path replaces the document.
func setJSONRaw(doc []byte, path, raw string) ([]byte, error) {
	if path == "" {
		return []byte(raw), nil
	}
	out, err := sjson.SetRawBytes(doc, path, []byte(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to write merged value at %s: %w", path, err)
	}
	return out, nil
}

// gjsonPath renders parsed path segments in gjson syntax.
func gjsonPath(segs []Seg) string {
	var parts []string
	for _, seg := range segs {
		if seg.IsIndex {
			parts = append(parts, strconv.Itoa(seg.Index))
		} else {
			parts = append(parts, escapeGJSONKey(seg.Key))
		}
	}
	return strings.Join(parts, ".")
}

func joinGJSON(base, seg string) string {
	if base == "" {
		return seg
	}
	return base + "." + seg
}

// escapeGJSONKey escapes gjson path metacharacters in a literal key.
func escapeGJSONKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '\\', '|', '#', '@':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// emptyJSONFor picks the empty document matching the source's type.
func emptyJSONFor(src gjson.Result) []byte {
	if src.IsArray() {
		return []byte("[]")
	}
	return []byte("{}")
}
