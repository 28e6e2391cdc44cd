package merge

import (
	"bytes"
	"fmt"

	"gopkg.in/ini.v1"
)

// INI merges source into dest. Without a section, source sections map
// onto same-named destination sections and root keys onto the root.
// With a section, both the source's root keys and its sections land in
// that destination section. allowDuplicates retains repeated keys in
// declaration order instead of replacing.
func INI(dest, source []byte, section string, allowDuplicates bool) ([]byte, error) {
	opts := ini.LoadOptions{AllowShadows: true}
	destFile, err := ini.LoadSources(opts, dest)
	if err != nil {
		return nil, fmt.Errorf("failed to parse destination INI: %w", err)
	}
	srcFile, err := ini.LoadSources(opts, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source INI: %w", err)
	}

	if section == "" {
		for _, srcSec := range srcFile.Sections() {
			if err := mergeINISection(destFile.Section(srcSec.Name()), srcSec, allowDuplicates); err != nil {
				return nil, err
			}
		}
	} else {
		target := destFile.Section(section)
		for _, srcSec := range srcFile.Sections() {
			if err := mergeINISection(target, srcSec, allowDuplicates); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if _, err := destFile.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize merged INI: %w", err)
	}
	return buf.Bytes(), nil
}

func mergeINISection(dst, src *ini.Section, allowDuplicates bool) error {
	for _, key := range src.Keys() {
		for _, value := range key.ValueWithShadows() {
			if err := setINIKey(dst, key.Name(), value, allowDuplicates); err != nil {
				return err
			}
		}
	}
	return nil
}

func setINIKey(sec *ini.Section, name, value string, allowDuplicates bool) error {
	if sec.HasKey(name) {
		if allowDuplicates {
			return sec.Key(name).AddShadow(value)
		}
		sec.Key(name).SetValue(value)
		return nil
	}
	_, err := sec.NewKey(name, value)
	return err
}
