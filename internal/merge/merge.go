package merge

import (
	"fmt"

	"github.com/edelwud/common-repo/pkg/manifest"
)

// Apply executes one merge directive: source is the contributing file,
// dest the current destination content (nil when the destination does
// not exist yet). It returns the merged destination bytes.
func Apply(d *manifest.Merge, source, dest []byte) ([]byte, error) {
	union := d.AutoMerge == "union"
	var out []byte
	var err error
	switch d.Format {
	case manifest.KindYAML:
		out, err = YAML(dest, source, d.Path, d.Append, union)
	case manifest.KindJSON:
		out, err = JSON(dest, source, d.Path, d.Append, d.Position, union)
	case manifest.KindTOML:
		out, err = TOML(dest, source, d.Path, d.Append, d.KeepComments(), union)
	case manifest.KindINI:
		out, err = INI(dest, source, d.Section, d.AllowDuplicates)
	case manifest.KindMarkdown:
		out, err = Markdown(dest, source, d.Section, d.HeadingLevel(), d.Append, d.Position, d.CreateSection)
	default:
		return nil, fmt.Errorf("unknown merge format %q", d.Format)
	}
	if err != nil {
		target := d.Path
		if target == "" {
			target = d.Section
		}
		if target != "" {
			return nil, fmt.Errorf("%s merge into %s at %s: %w", d.Format, d.Dest, target, err)
		}
		return nil, fmt.Errorf("%s merge into %s: %w", d.Format, d.Dest, err)
	}
	return out, nil
}
