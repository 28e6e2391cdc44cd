package merge

import (
	"fmt"
	"regexp"
	"strings"
)

var headingRe = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*$`)

// Markdown merges source into dest. Without a section the source is
// appended to the destination. With a section, the first heading at
// level whose text equals section is located; appendBody inserts the
// source inside the section at position, otherwise the section body is
// replaced (the heading line survives). A missing section is fatal
// unless createSection is set, in which case it is created at position
// (document end by default).
func Markdown(dest, source []byte, section string, level int, appendBody bool, position string, createSection bool) ([]byte, error) {
	src := strings.TrimRight(string(source), "\n")
	if section == "" {
		out := string(dest)
		if strings.TrimSpace(out) == "" {
			return []byte(src + "\n"), nil
		}
		out = strings.TrimRight(out, "\n") + "\n\n" + src + "\n"
		return []byte(out), nil
	}

	lines := strings.Split(strings.TrimRight(string(dest), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		lines = nil
	}

	start := findHeading(lines, section, level)
	if start < 0 {
		if !createSection {
			return nil, fmt.Errorf("section %q (level %d) not found", section, level)
		}
		out, err := createMarkdownSection(lines, src, section, level, position)
		if err != nil {
			return nil, err
		}
		return []byte(strings.Join(out, "\n") + "\n"), nil
	}

	end := sectionEnd(lines, start, level)
	body := lines[start+1 : end]

	var newBody []string
	if !appendBody {
		newBody = splitLines(src)
	} else {
		var ok bool
		newBody, ok = insertInBody(body, src, position)
		if !ok {
			return nil, fmt.Errorf("position %q not found inside section %q", position, section)
		}
	}

	out := make([]string, 0, len(lines)+len(newBody))
	out = append(out, lines[:start+1]...)
	out = append(out, newBody...)
	out = append(out, lines[end:]...)
	return []byte(strings.Join(out, "\n") + "\n"), nil
}

// findHeading returns the index of the first heading at the given level
// whose text equals section, or -1.
func findHeading(lines []string, section string, level int) int {
	for i, line := range lines {
		if l, text, ok := parseHeading(line); ok && l == level && text == section {
			return i
		}
	}
	return -1
}

// findAnyHeading matches on text alone, any level.
func findAnyHeading(lines []string, section string) int {
	for i, line := range lines {
		if _, text, ok := parseHeading(line); ok && text == section {
			return i
		}
	}
	return -1
}

// sectionEnd returns the index just past the section starting at the
// heading on line start: the next heading at the same or a shallower
// level, or the end of the document.
func sectionEnd(lines []string, start, level int) int {
	for i := start + 1; i < len(lines); i++ {
		if l, _, ok := parseHeading(lines[i]); ok && l <= level {
			return i
		}
	}
	return len(lines)
}

func parseHeading(line string) (level int, text string, ok bool) {
	m := headingRe.FindStringSubmatch(line)
	if m == nil {
		return 0, "", false
	}
	return len(m[1]), strings.TrimSpace(strings.TrimRight(m[2], "#")), true
}

// insertInBody places src inside a section body at position. A false
// result means the position named a sub-heading that does not exist or
// is not a recognized position.
func insertInBody(body []string, src, position string) ([]string, bool) {
	srcLines := splitLines(src)
	switch {
	case position == "" || position == "end":
		return append(append([]string{}, body...), srcLines...), true
	case position == "start":
		return append(append([]string{}, srcLines...), body...), true
	case strings.HasPrefix(position, "before:"):
		at := findAnyHeading(body, strings.TrimPrefix(position, "before:"))
		if at < 0 {
			return nil, false
		}
		return spliceLines(body, at, srcLines), true
	case strings.HasPrefix(position, "after:"):
		name := strings.TrimPrefix(position, "after:")
		at := findAnyHeading(body, name)
		if at < 0 {
			return nil, false
		}
		l, _, _ := parseHeading(body[at])
		end := sectionEnd(body, at, l)
		return spliceLines(body, end, srcLines), true
	}
	return nil, false
}

// createMarkdownSection builds the section and inserts it at position.
func createMarkdownSection(lines []string, src, section string, level int, position string) ([]string, error) {
	block := append([]string{strings.Repeat("#", level) + " " + section, ""}, splitLines(src)...)
	switch {
	case position == "" || position == "end":
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		return append(lines, block...), nil
	case position == "start":
		return append(block, append([]string{""}, lines...)...), nil
	case strings.HasPrefix(position, "before:"):
		at := findAnyHeading(lines, strings.TrimPrefix(position, "before:"))
		if at < 0 {
			return nil, fmt.Errorf("position %q not found", position)
		}
		return spliceLines(lines, at, append(block, "")), nil
	case strings.HasPrefix(position, "after:"):
		name := strings.TrimPrefix(position, "after:")
		at := findAnyHeading(lines, name)
		if at < 0 {
			return nil, fmt.Errorf("position %q not found", position)
		}
		l, _, _ := parseHeading(lines[at])
		end := sectionEnd(lines, at, l)
		return spliceLines(lines, end, append([]string{""}, block...)), nil
	}
	return nil, fmt.Errorf("invalid position %q", position)
}

func spliceLines(lines []string, at int, insert []string) []string {
	out := make([]string, 0, len(lines)+len(insert))
	out = append(out, lines[:at]...)
	out = append(out, insert...)
	out = append(out, lines[at:]...)
	return out
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
