package manifest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/edelwud/common-repo/internal/match"
)

// withAllowed lists the operation kinds permitted inside a with-clause.
// repo is excluded to prevent recursion through inline programs; merges
// and template-vars only have meaning at composition time.
var withAllowed = map[Kind]bool{
	KindInclude:  true,
	KindExclude:  true,
	KindRename:   true,
	KindTemplate: true,
	KindTools:    true,
}

// Validate checks the whole manifest: pattern syntax, rename rules,
// with-clause restrictions and merge directive fields.
func (m *Manifest) Validate() error {
	return validateProgram(m.Operations, false)
}

func validateProgram(ops []Operation, inWith bool) error {
	for i := range ops {
		op := &ops[i]
		if inWith && !withAllowed[op.Kind] {
			return fmt.Errorf("operation %q is not allowed inside a with-clause", op.Kind)
		}
		if err := validateOperation(op); err != nil {
			return err
		}
	}
	return nil
}

func validateOperation(op *Operation) error {
	switch op.Kind {
	case KindRepo:
		if err := validateProgram(op.Repo.With, true); err != nil {
			return fmt.Errorf("repo %s: %w", op.Repo.URL, err)
		}
	case KindInclude, KindExclude, KindTemplate:
		if err := match.ValidatePatterns(op.Patterns); err != nil {
			return fmt.Errorf("%s: %w", op.Kind, err)
		}
	case KindRename:
		for _, r := range op.Rename {
			if _, err := match.CompileRule(r.Pattern, r.Replacement); err != nil {
				return err
			}
		}
	case KindTemplateVars, KindTools:
		// structurally validated at parse time
	default:
		if op.Merge != nil {
			return validateMerge(op.Merge)
		}
	}
	return nil
}

func validateMerge(m *Merge) error {
	if m.AutoMerge != "" && m.AutoMerge != "union" {
		return fmt.Errorf("%s merge %s: unknown auto-merge hint %q", m.Format, m.Dest, m.AutoMerge)
	}
	switch m.Format {
	case KindJSON:
		if m.Position != "" && m.Position != "start" && m.Position != "end" {
			if _, err := strconv.Atoi(m.Position); err != nil {
				return fmt.Errorf("json merge %s: position must be start, end or an index, got %q", m.Dest, m.Position)
			}
		}
	case KindMarkdown:
		if l := m.Level; l != 0 && (l < 1 || l > 6) {
			return fmt.Errorf("markdown merge %s: level must be between 1 and 6, got %d", m.Dest, l)
		}
		switch p := m.Position; {
		case p == "" || p == "start" || p == "end":
		case strings.HasPrefix(p, "before:") || strings.HasPrefix(p, "after:"):
		default:
			return fmt.Errorf("markdown merge %s: position must be start, end, before:<section> or after:<section>, got %q", m.Dest, p)
		}
	case KindYAML, KindTOML, KindINI:
		if m.Position != "" {
			return fmt.Errorf("%s merge %s: position is not supported", m.Format, m.Dest)
		}
	}
	return nil
}
