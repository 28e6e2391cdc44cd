// Package tmpl implements template variable substitution over composite
// files: ${NAME} and ${NAME:-default} references, resolved against the
// collected context, then the process environment, then the inline
// default.
package tmpl

import (
	"bytes"
	"fmt"
	"os"
	"strings"
)

// Context maps variable names to resolved values. Later template-vars
// entries override earlier ones during collection.
type Context map[string]string

// Collect folds ordered (name, value) pairs into a context.
func Collect(pairs [][2]string) Context {
	ctx := make(Context, len(pairs))
	for _, p := range pairs {
		ctx[p[0]] = p[1]
	}
	return ctx
}

// Expand substitutes every ${NAME} and ${NAME:-default} reference in
// content. ${ always begins a reference; there is no escape. The
// substitution is a single pass: substituted values are not re-scanned.
func Expand(content []byte, ctx Context) ([]byte, error) {
	var out bytes.Buffer
	out.Grow(len(content))
	for i := 0; i < len(content); {
		j := bytes.Index(content[i:], []byte("${"))
		if j < 0 {
			out.Write(content[i:])
			break
		}
		out.Write(content[i : i+j])
		i += j
		name, def, hasDef, end, err := parseRef(content, i)
		if err != nil {
			return nil, err
		}
		value, err := resolve(name, def, hasDef, ctx)
		if err != nil {
			return nil, err
		}
		out.WriteString(value)
		i = end
	}
	return out.Bytes(), nil
}

// parseRef parses the ${...} reference starting at offset i and returns
// the variable name, the inline default if present, and the offset just
// past the closing brace.
func parseRef(content []byte, i int) (name, def string, hasDef bool, end int, err error) {
	close := bytes.IndexByte(content[i:], '}')
	if close < 0 {
		return "", "", false, 0, fmt.Errorf("malformed template reference: unterminated ${")
	}
	ref := string(content[i+2 : i+close])
	end = i + close + 1

	name = ref
	if at := strings.Index(ref, ":-"); at >= 0 {
		name = ref[:at]
		def = ref[at+2:]
		hasDef = true
		if strings.Contains(def, "${") {
			return "", "", false, 0, fmt.Errorf("malformed template reference ${%s}: default may not contain ${", ref)
		}
	}
	if !validName(name) {
		return "", "", false, 0, fmt.Errorf("malformed template reference ${%s}: invalid variable name %q", ref, name)
	}
	return name, def, hasDef, end, nil
}

// resolve applies the precedence chain: context, environment, inline
// default, fatal.
func resolve(name, def string, hasDef bool, ctx Context) (string, error) {
	if v, ok := ctx[name]; ok {
		return v, nil
	}
	if v, ok := os.LookupEnv(name); ok {
		return v, nil
	}
	if hasDef {
		return def, nil
	}
	return "", fmt.Errorf("undefined template variable %q", name)
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
