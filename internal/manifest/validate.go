package manifest

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationResult aggregates every problem found in a manifest. Errors make
// the manifest invalid; warnings do not. No rule currently emits warnings,
// the field exists for future non-fatal diagnostics.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

// IsValid reports whether the manifest passed validation, warnings aside.
func (r ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// HasWarnings reports whether any non-fatal diagnostics were collected.
func (r ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Validate checks the manifest for structural problems: version strings that
// are not of the form X.Y.Z, requires entries naming repositories absent
// from Versions, and circular dependencies. All checks run regardless of
// earlier failures and every problem found is collected; nothing is thrown.
//
// When several cycles exist only one is reported, and which one depends on
// map iteration order.
func (m *VersionsManifest) Validate() ValidationResult {
	var result ValidationResult

	for repo, rv := range m.Versions {
		if repo == "" {
			result.Errors = append(result.Errors, "repository name must not be empty")
		}

		if !IsValidVersion(rv.Version) {
			result.Errors = append(result.Errors, fmt.Sprintf(
				"repository '%s' has invalid version '%s' (must be X.Y.Z)", repo, rv.Version))
		}

		for _, dep := range rv.DependencyNames() {
			if _, ok := m.Versions[dep]; !ok {
				result.Errors = append(result.Errors, fmt.Sprintf(
					"repository '%s' requires '%s' which is not defined", repo, dep))
			}
		}
	}

	if cycle := m.DetectCircularDependencies(); cycle != nil {
		result.Errors = append(result.Errors, fmt.Sprintf(
			"circular dependency detected: %s", strings.Join(cycle, " -> ")))
	}

	return result
}

// IsValidVersion reports whether version is exactly three dot-separated
// non-negative integers. No "v" prefix, no pre-release or build suffixes.
func IsValidVersion(version string) bool {
	parts := strings.Split(version, ".")
	if len(parts) != 3 {
		return false
	}
	for _, part := range parts {
		if part == "" {
			return false
		}
		if _, err := strconv.ParseUint(part, 10, 32); err != nil {
			return false
		}
	}
	return true
}
