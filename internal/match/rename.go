package match

import (
	"fmt"
	"regexp"
	"strconv"
)

// placeholderRe finds %[N]s capture placeholders in a replacement template.
var placeholderRe = regexp.MustCompile(`%\[(\d+)\]s`)

// Rule is one compiled rename rule: a full-match regex and a replacement
// template using %[N]s placeholders for capture groups.
type Rule struct {
	re          *regexp.Regexp
	pattern     string
	replacement string
}

// CompileRule compiles a single rename rule. The pattern must match the
// whole path for the rule to apply.
func CompileRule(pattern, replacement string) (*Rule, error) {
	re, err := regexp.Compile(`\A(?:` + pattern + `)\z`)
	if err != nil {
		return nil, fmt.Errorf("invalid rename pattern %q: %w", pattern, err)
	}
	for _, m := range placeholderRe.FindAllStringSubmatch(replacement, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > re.NumSubexp() {
			return nil, fmt.Errorf("rename replacement %q references capture group %s, pattern %q has %d",
				replacement, m[1], pattern, re.NumSubexp())
		}
	}
	return &Rule{re: re, pattern: pattern, replacement: replacement}, nil
}

// Apply rewrites path if the rule matches, reporting whether it did.
// Placeholders are expanded directly so unreferenced capture groups
// leave no trace in the result.
func (r *Rule) Apply(path string) (string, bool) {
	m := r.re.FindStringSubmatch(path)
	if m == nil {
		return path, false
	}
	out := placeholderRe.ReplaceAllStringFunc(r.replacement, func(ph string) string {
		n, _ := strconv.Atoi(placeholderRe.FindStringSubmatch(ph)[1])
		return m[n]
	})
	return out, true
}

// Renamer applies an ordered list of rules. The first matching rule
// rewrites a path; later rules never see the rewritten path.
type Renamer struct {
	rules []*Rule
}

// NewRenamer compiles the given (pattern, replacement) pairs in order.
func NewRenamer(pairs [][2]string) (*Renamer, error) {
	rules := make([]*Rule, 0, len(pairs))
	for _, p := range pairs {
		r, err := CompileRule(p[0], p[1])
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return &Renamer{rules: rules}, nil
}

// Apply rewrites path through the first matching rule.
func (rn *Renamer) Apply(path string) (string, bool) {
	for _, r := range rn.rules {
		if out, ok := r.Apply(path); ok {
			return out, true
		}
	}
	return path, false
}
