// Package manifest models the versions manifest of a multi-repository
// project: one version record per repository plus optional free-form
// metadata. It loads TOML, JSON or YAML encodings of the same schema,
// validates the declared dependency graph, and computes a build order.
//
// # Manifest Format
//
// The canonical encoding is a versions.toml:
//
//	[versions]
//	consensus = { version = "0.1.0", git_tag = "v0.1.0" }
//	protocol = { version = "0.1.0", git_tag = "v0.1.0", requires = ["consensus=0.1.0"] }
//	node = { version = "0.2.1", git_tag = "v0.2.1", requires = ["protocol"], binaries = ["noded"] }
//
//	[metadata]
//	channel = "stable"
//
// Only the name portion of a requires entry ("consensus" in
// "consensus=0.1.0") participates in dependency edges; the constraint suffix
// is carried for external tooling.
//
// # Usage
//
//	loader := manifest.NewLoader()
//	m, err := loader.Load("versions.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if result := m.Validate(); !result.IsValid() {
//	    // result.Errors holds every problem found
//	}
//
//	order, err := m.BuildOrder()
//
// Validate collects every problem it finds and returns them as data.
// BuildOrder instead fails fast on the first cycle, because a partial order
// would mislead a build orchestrator. A loaded manifest is immutable from
// the perspective of both computations; they keep all traversal state local
// and may run concurrently against the same value.
package manifest
