// Package tools runs declared tool-existence and version checks.
// Results are warnings by contract: a missing or mismatched tool never
// aborts a run.
package tools

import (
	"os/exec"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/edelwud/common-repo/pkg/log"
	"github.com/edelwud/common-repo/pkg/manifest"
)

// probe describes how to invoke a tool so it prints its version; the
// version is taken from the output with versionRe. Tools without a
// registry entry get the generic --version probe.
type probe struct {
	args []string
}

// probeRegistry maps known tool names to their version invocation.
var probeRegistry = map[string]probe{
	"git":       {args: []string{"--version"}},
	"go":        {args: []string{"version"}},
	"node":      {args: []string{"--version"}},
	"npm":       {args: []string{"--version"}},
	"python3":   {args: []string{"--version"}},
	"docker":    {args: []string{"--version"}},
	"kubectl":   {args: []string{"version", "--client", "--short"}},
	"terraform": {args: []string{"version"}},
	"make":      {args: []string{"--version"}},
}

// versionRe finds the first semver-looking token in probe output.
var versionRe = regexp.MustCompile(`v?(\d+\.\d+(?:\.\d+)?)`)

// Check runs every declared tool check and logs warnings for missing
// binaries and version mismatches. It never returns an error.
func Check(entries []manifest.Tool) {
	for _, t := range entries {
		checkOne(t)
	}
}

func checkOne(t manifest.Tool) {
	path, err := exec.LookPath(t.Name)
	if err != nil {
		log.WithField("tool", t.Name).Warn("tool not found on PATH")
		return
	}
	if t.Version == "" || t.Version == "*" {
		log.WithField("tool", t.Name).Debug("tool present, no version requirement")
		return
	}

	version, ok := probeVersion(t.Name, path)
	if !ok {
		log.WithField("tool", t.Name).Debug("version probe failed, skipping check")
		return
	}

	satisfied, err := Satisfies(version, t.Version)
	if err != nil {
		log.WithField("tool", t.Name).WithField("requirement", t.Version).
			Warnf("unparseable version requirement: %v", err)
		return
	}
	if !satisfied {
		log.WithField("tool", t.Name).WithField("have", version).
			WithField("want", t.Version).Warn("tool version does not satisfy requirement")
	}
}

// probeVersion runs the tool's version probe and extracts a version
// string from its output.
func probeVersion(name, path string) (string, bool) {
	p, known := probeRegistry[name]
	if !known {
		p = probe{args: []string{"--version"}}
	}
	out, err := exec.Command(path, p.args...).CombinedOutput()
	if err != nil {
		return "", false
	}
	m := versionRe.FindStringSubmatch(strings.TrimSpace(string(out)))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Satisfies reports whether version meets the requirement. Requirements
// are * (any), an exact version, or a >=, ^ or ~ constraint.
func Satisfies(version, requirement string) (bool, error) {
	if requirement == "" || requirement == "*" {
		return true, nil
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false, err
	}
	c, err := semver.NewConstraint(requirement)
	if err != nil {
		return false, err
	}
	return c.Check(v), nil
}
