package manifest

import (
	"strings"

	"github.com/bitcommons/repover/internal/depgraph"
)

// RepoVersion is the version record for a single repository.
type RepoVersion struct {
	// Version is a semantic version of the form X.Y.Z (e.g. "0.1.0").
	Version string `toml:"version" json:"version" yaml:"version"`

	// GitTag is the source control tag for this version (e.g. "v0.1.0").
	// Its format is not interpreted here.
	GitTag string `toml:"git_tag" json:"git_tag" yaml:"git_tag"`

	// GitCommit optionally pins the commit the tag should point at.
	GitCommit string `toml:"git_commit,omitempty" json:"git_commit,omitempty" yaml:"git_commit,omitempty"`

	// Requires lists dependency specifiers of the form "name" or
	// "name=version-constraint". Only the name portion forms graph edges.
	Requires []string `toml:"requires,omitempty" json:"requires,omitempty" yaml:"requires,omitempty"`

	// Binaries lists the binary artifacts produced by this repository.
	Binaries []string `toml:"binaries,omitempty" json:"binaries,omitempty" yaml:"binaries,omitempty"`
}

// VersionsManifest is the parsed collection of repository version records.
type VersionsManifest struct {
	Versions map[string]RepoVersion `toml:"versions" json:"versions" yaml:"versions"`

	// Metadata carries free-form key/value pairs, not interpreted here.
	Metadata map[string]string `toml:"metadata,omitempty" json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// DependencyName extracts the repository name from a dependency specifier,
// discarding any "=version-constraint" suffix.
func DependencyName(spec string) string {
	name, _, _ := strings.Cut(spec, "=")
	return name
}

// DependencyNames returns the name portion of every requires entry.
func (r RepoVersion) DependencyNames() []string {
	if len(r.Requires) == 0 {
		return nil
	}
	names := make([]string, 0, len(r.Requires))
	for _, spec := range r.Requires {
		names = append(names, DependencyName(spec))
	}
	return names
}

// graph derives the dependency graph over the requires edges. References to
// repositories absent from Versions are skipped here; their existence is the
// validator's concern and the traversals must not trip over them.
func (m *VersionsManifest) graph() *depgraph.Graph {
	g := depgraph.New()
	for name, rv := range m.Versions {
		g.AddNode(name)
		for _, dep := range rv.DependencyNames() {
			if _, ok := m.Versions[dep]; ok {
				g.AddEdge(name, dep)
			}
		}
	}
	return g
}

// DetectCircularDependencies returns one circular dependency chain as an
// ordered path of repository names whose first and last entries are equal,
// or nil if the graph is acyclic. When several cycles exist, which one is
// reported depends on map iteration order and is not deterministic.
func (m *VersionsManifest) DetectCircularDependencies() []string {
	return m.graph().FindCycle()
}

// BuildOrder returns the repositories in a dependency-respecting order:
// every repository appears after everything it requires. Repositories with
// no dependency relationship have unspecified relative order and can be
// built in parallel.
//
// Unlike Validate, BuildOrder fails fast: the first cycle encountered aborts
// the computation with a *depgraph.CycleError and no partial ordering.
// Dangling requires references are silently skipped; run Validate first when
// strict guarantees are needed.
func (m *VersionsManifest) BuildOrder() ([]string, error) {
	return m.graph().Sort()
}
