package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validTOML = `
[versions]
consensus = { version = "0.1.0", git_tag = "v0.1.0" }
protocol = { version = "0.1.0", git_tag = "v0.1.0", requires = ["consensus=0.1.0"] }
node = { version = "0.1.0", git_tag = "v0.1.0", requires = ["protocol=0.1.0", "consensus=0.1.0"], binaries = ["noded"] }
`

func writeManifest(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewLoader(t *testing.T) {
	assert.NotNil(t, NewLoader())
}

func TestLoader_Load_FileNotFound(t *testing.T) {
	loader := NewLoader()

	m, err := loader.Load("/nonexistent/versions.toml")

	assert.Nil(t, m)
	assert.ErrorIs(t, err, ErrManifestNotFound)
}

func TestLoader_Load_ValidTOML(t *testing.T) {
	loader := NewLoader()
	path := writeManifest(t, "versions.toml", validTOML)

	m, err := loader.Load(path)

	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Len(t, m.Versions, 3)

	consensus := m.Versions["consensus"]
	assert.Equal(t, "0.1.0", consensus.Version)
	assert.Equal(t, "v0.1.0", consensus.GitTag)
	assert.Empty(t, consensus.GitCommit)
	assert.Empty(t, consensus.Requires)
	assert.Empty(t, consensus.Binaries)

	node := m.Versions["node"]
	assert.Equal(t, []string{"protocol=0.1.0", "consensus=0.1.0"}, node.Requires)
	assert.Equal(t, []string{"noded"}, node.Binaries)
}

func TestLoader_Load_ValidJSON(t *testing.T) {
	loader := NewLoader()
	path := writeManifest(t, "versions.json", `{
		"versions": {
			"consensus": {"version": "0.1.0", "git_tag": "v0.1.0"},
			"protocol": {"version": "0.1.0", "git_tag": "v0.1.0", "requires": ["consensus"]}
		},
		"metadata": {"channel": "stable"}
	}`)

	m, err := loader.Load(path)

	require.NoError(t, err)
	assert.Len(t, m.Versions, 2)
	assert.Equal(t, []string{"consensus"}, m.Versions["protocol"].Requires)
	assert.Equal(t, map[string]string{"channel": "stable"}, m.Metadata)
}

func TestLoader_Load_ValidYAML(t *testing.T) {
	loader := NewLoader()
	path := writeManifest(t, "versions.yaml", `
versions:
  consensus:
    version: 0.1.0
    git_tag: v0.1.0
  protocol:
    version: 0.1.0
    git_tag: v0.1.0
    requires:
      - consensus=0.1.0
`)

	m, err := loader.Load(path)

	require.NoError(t, err)
	assert.Len(t, m.Versions, 2)
	assert.Equal(t, "v0.1.0", m.Versions["consensus"].GitTag)
}

func TestLoader_Load_UnknownExtensionFallsBackToTOML(t *testing.T) {
	loader := NewLoader()
	path := writeManifest(t, "versions.manifest", validTOML)

	m, err := loader.Load(path)

	require.NoError(t, err)
	assert.Len(t, m.Versions, 3)
}

func TestLoader_Load_GitCommit(t *testing.T) {
	loader := NewLoader()
	path := writeManifest(t, "versions.toml", `
[versions]
consensus = { version = "0.1.0", git_tag = "v0.1.0", git_commit = "abc123def" }
`)

	m, err := loader.Load(path)

	require.NoError(t, err)
	assert.Equal(t, "abc123def", m.Versions["consensus"].GitCommit)
}

func TestLoader_Load_Metadata(t *testing.T) {
	loader := NewLoader()
	path := writeManifest(t, "versions.toml", `
[versions]
consensus = { version = "0.1.0", git_tag = "v0.1.0" }

[metadata]
channel = "stable"
generated_by = "release-bot"
`)

	m, err := loader.Load(path)

	require.NoError(t, err)
	assert.Equal(t, "stable", m.Metadata["channel"])
	assert.Equal(t, "release-bot", m.Metadata["generated_by"])
}

func TestLoader_Load_MalformedTOML(t *testing.T) {
	loader := NewLoader()
	path := writeManifest(t, "versions.toml", "[versions\nbroken")

	m, err := loader.Load(path)

	assert.Nil(t, m)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "toml", parseErr.Format)
}

func TestLoader_Load_MalformedJSON(t *testing.T) {
	loader := NewLoader()
	path := writeManifest(t, "versions.json", "{not json}")

	m, err := loader.Load(path)

	assert.Nil(t, m)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "json", parseErr.Format)
}

func TestLoader_Load_WrongFieldType(t *testing.T) {
	loader := NewLoader()
	// requires must be an array, not a string.
	path := writeManifest(t, "versions.toml", `
[versions]
protocol = { version = "0.1.0", git_tag = "v0.1.0", requires = "consensus" }
`)

	m, err := loader.Load(path)

	assert.Nil(t, m)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestLoader_Load_EmptyDocument(t *testing.T) {
	loader := NewLoader()
	path := writeManifest(t, "versions.toml", "")

	m, err := loader.Load(path)

	assert.Nil(t, m)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Error(), "versions")
}

func TestLoadFromBytes_MissingVersionsTable(t *testing.T) {
	loader := NewLoader()

	cases := []struct {
		name   string
		data   string
		ext    string
		format string
	}{
		{"toml metadata only", "[metadata]\nchannel = \"stable\"\n", ".toml", "toml"},
		{"json metadata only", `{"metadata": {"channel": "stable"}}`, ".json", "json"},
		{"yaml metadata only", "metadata:\n  channel: stable\n", ".yaml", "yaml"},
		{"json empty object", `{}`, ".json", "json"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := loader.LoadFromBytes([]byte(tc.data), tc.ext)

			assert.Nil(t, m)
			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, tc.format, parseErr.Format)
		})
	}
}

func TestLoadFromBytes_EmptyVersionsTableIsValid(t *testing.T) {
	loader := NewLoader()

	m, err := loader.LoadFromBytes([]byte("[versions]\n"), ".toml")

	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Empty(t, m.Versions)
}

func TestLoadFromBytes_CaseInsensitiveExt(t *testing.T) {
	loader := NewLoader()

	m, err := loader.LoadFromBytes([]byte(`{"versions": {}}`), ".JSON")
	require.NoError(t, err)
	assert.NotNil(t, m)

	m, err = loader.LoadFromBytes([]byte("versions: {}"), ".Yml")
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestLoader_RoundTrip_TOML(t *testing.T) {
	loader := NewLoader()
	path := writeManifest(t, "versions.toml", validTOML)

	m, err := loader.Load(path)
	require.NoError(t, err)

	encoded, err := loader.Encode(m, ".toml")
	require.NoError(t, err)

	again, err := loader.LoadFromBytes(encoded, ".toml")
	require.NoError(t, err)
	assert.Equal(t, m, again)
}

func TestLoader_RoundTrip_JSON(t *testing.T) {
	loader := NewLoader()

	m := &VersionsManifest{
		Versions: map[string]RepoVersion{
			"consensus": {Version: "0.1.0", GitTag: "v0.1.0", GitCommit: "abc123"},
			"protocol":  {Version: "0.2.0", GitTag: "v0.2.0", Requires: []string{"consensus=0.1.0"}, Binaries: []string{"protoc-gen"}},
		},
		Metadata: map[string]string{"channel": "stable"},
	}

	encoded, err := loader.Encode(m, ".json")
	require.NoError(t, err)

	again, err := loader.LoadFromBytes(encoded, ".json")
	require.NoError(t, err)
	assert.Equal(t, m, again)
}

func TestLoader_Encode_OmitsDefaults(t *testing.T) {
	loader := NewLoader()

	m := &VersionsManifest{
		Versions: map[string]RepoVersion{
			"consensus": {Version: "0.1.0", GitTag: "v0.1.0"},
		},
	}

	encoded, err := loader.Encode(m, ".toml")
	require.NoError(t, err)

	text := string(encoded)
	assert.NotContains(t, text, "git_commit")
	assert.NotContains(t, text, "requires")
	assert.NotContains(t, text, "binaries")
	assert.NotContains(t, text, "metadata")
}
