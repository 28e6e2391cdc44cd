package manifest

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint returns a stable 16-hex hash over an operation program.
// Two programs that normalize to the same internal form share a
// fingerprint. The empty program fingerprints to the empty string, so
// a repo without a with-clause keys the same as one with `with: []`.
func Fingerprint(ops []Operation) string {
	if len(ops) == 0 {
		return ""
	}
	var b strings.Builder
	writeProgram(&b, ops)
	return fmt.Sprintf("%016x", xxhash.Sum64String(b.String()))
}

func writeProgram(b *strings.Builder, ops []Operation) {
	for i := range ops {
		writeOperation(b, &ops[i])
	}
}

// writeOperation serializes one operation into the canonical form the
// fingerprint hashes. Fields appear in a fixed order with explicit
// separators so distinct programs cannot collide structurally.
func writeOperation(b *strings.Builder, op *Operation) {
	b.WriteString(string(op.Kind))
	b.WriteByte(0)
	switch op.Kind {
	case KindRepo:
		r := op.Repo
		writeFields(b, r.URL, r.Ref, r.Path)
		b.WriteString("with[")
		writeProgram(b, r.With)
		b.WriteString("]")
	case KindInclude, KindExclude, KindTemplate:
		writeFields(b, op.Patterns...)
	case KindRename:
		for _, r := range op.Rename {
			writeFields(b, r.Pattern, r.Replacement)
		}
	case KindTemplateVars:
		for _, v := range op.Vars {
			writeFields(b, v.Name, v.Value)
		}
	case KindTools:
		for _, t := range op.Tools {
			writeFields(b, t.Name, t.Version)
		}
	default:
		if m := op.Merge; m != nil {
			writeFields(b, m.Source, m.Dest, m.Path, m.Section, m.Position, m.AutoMerge,
				fmt.Sprint(m.Append), fmt.Sprint(m.KeepComments()), fmt.Sprint(m.AllowDuplicates),
				fmt.Sprint(m.HeadingLevel()), fmt.Sprint(m.CreateSection), fmt.Sprint(m.Defer))
		}
	}
	b.WriteByte('\n')
}

func writeFields(b *strings.Builder, fields ...string) {
	for _, f := range fields {
		b.WriteString(f)
		b.WriteByte(0)
	}
}
