package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitcommons/repover/internal/config"
)

const validManifest = `[versions.consensus]
version = "0.1.0"
git_tag = "v0.1.0"

[versions.protocol]
version = "0.1.0"
git_tag = "v0.1.0"
requires = ["consensus"]

[versions.node]
version = "0.2.0"
git_tag = "v0.2.0"
requires = ["protocol", "consensus"]
binaries = ["noded"]
`

// writeManifest stores a manifest under a temp dir and points the global
// configuration at it for the duration of the test.
func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "versions.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	viper.Set("manifest", path)
	viper.Set("logging.level", "error")
	t.Cleanup(func() {
		viper.Set("manifest", config.DefaultManifest)
	})
	return path
}

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	runErr := fn()

	w.Close()
	os.Stdout = old
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out), runErr
}

func TestRootCmd_Subcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"validate", "order", "show", "status", "health", "chain", "peers", "network", "sync", "tags", "config", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}

	sub := make(map[string]bool)
	for _, c := range configCmd.Commands() {
		sub[c.Name()] = true
	}
	for _, want := range []string{"show", "validate", "path"} {
		assert.True(t, sub[want], "missing config subcommand %s", want)
	}
}

func TestInitConfig(t *testing.T) {
	cfgFile = ""
	assert.NotPanics(t, initConfig)

	// Point the global viper at a real (empty) file: it keeps using it for
	// the rest of the test binary, so it must exist and set nothing.
	f, err := os.CreateTemp("", "repover-config-*.yaml")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	cfgFile = f.Name()
	assert.NotPanics(t, initConfig)
	cfgFile = ""
}

func TestValidateCmd_ValidManifest(t *testing.T) {
	writeManifest(t, validManifest)

	out, err := captureStdout(t, func() error {
		return validateCmd.RunE(validateCmd, nil)
	})

	require.NoError(t, err)
	assert.Contains(t, out, "is valid: 3 repositories")
}

func TestValidateCmd_CollectsAllErrors(t *testing.T) {
	writeManifest(t, `[versions.a]
version = "not-semver"
git_tag = "v1"
requires = ["b", "ghost"]

[versions.b]
version = "0.1.0"
git_tag = "v0.1.0"
requires = ["a"]
`)

	out, err := captureStdout(t, func() error {
		return validateCmd.RunE(validateCmd, nil)
	})

	require.Error(t, err)
	assert.Contains(t, out, "repository 'a' has invalid version 'not-semver' (must be X.Y.Z)")
	assert.Contains(t, out, "repository 'a' requires 'ghost' which is not defined")
	assert.Contains(t, out, "circular dependency detected")
}

func TestValidateCmd_ManifestMissing(t *testing.T) {
	viper.Set("manifest", filepath.Join(t.TempDir(), "absent.toml"))
	t.Cleanup(func() { viper.Set("manifest", config.DefaultManifest) })

	err := validateCmd.RunE(validateCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest file not found")
}

func TestOrderCmd_RespectsDependencies(t *testing.T) {
	writeManifest(t, validManifest)

	out, err := captureStdout(t, func() error {
		return orderCmd.RunE(orderCmd, nil)
	})

	require.NoError(t, err)
	consensus := indexOf(t, out, "consensus")
	protocol := indexOf(t, out, "protocol")
	node := indexOf(t, out, "node")
	assert.Less(t, consensus, protocol)
	assert.Less(t, protocol, node)
}

func TestOrderCmd_RejectsInvalidManifest(t *testing.T) {
	writeManifest(t, `[versions.a]
version = "0.1.0"
git_tag = "v0.1.0"
requires = ["b"]

[versions.b]
version = "0.1.0"
git_tag = "v0.1.0"
requires = ["a"]
`)

	out, err := captureStdout(t, func() error {
		return orderCmd.RunE(orderCmd, nil)
	})

	require.Error(t, err)
	assert.Contains(t, out, "circular dependency detected")
}

func TestShowCmd_Formats(t *testing.T) {
	writeManifest(t, validManifest)

	require.NoError(t, showCmd.Flags().Set("format", "json"))
	t.Cleanup(func() { _ = showCmd.Flags().Set("format", "toml") })

	out, err := captureStdout(t, func() error {
		return showCmd.RunE(showCmd, nil)
	})

	require.NoError(t, err)
	assert.Contains(t, out, `"versions"`)
	assert.Contains(t, out, `"consensus"`)
	// Unset optional fields are omitted from the output.
	assert.NotContains(t, out, "git_commit")
}

func TestShowCmd_SingleRepository(t *testing.T) {
	writeManifest(t, validManifest)

	out, err := captureStdout(t, func() error {
		return showCmd.RunE(showCmd, []string{"protocol"})
	})

	require.NoError(t, err)
	assert.Contains(t, out, "protocol")
	assert.NotContains(t, out, "node")
}

func TestShowCmd_UnknownRepository(t *testing.T) {
	writeManifest(t, validManifest)

	_, err := captureStdout(t, func() error {
		return showCmd.RunE(showCmd, []string{"ghost"})
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "repository 'ghost' is not defined")
}

func TestShowCmd_WritesConvertedManifest(t *testing.T) {
	writeManifest(t, validManifest)

	target := filepath.Join(t.TempDir(), "out", "versions.yaml")
	require.NoError(t, showCmd.Flags().Set("format", "yaml"))
	require.NoError(t, showCmd.Flags().Set("output", target))
	t.Cleanup(func() {
		_ = showCmd.Flags().Set("format", "toml")
		_ = showCmd.Flags().Set("output", "")
	})

	_, err := captureStdout(t, func() error {
		return showCmd.RunE(showCmd, nil)
	})
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "consensus:")
}

func TestTagsCmd_ReportsMissingClones(t *testing.T) {
	writeManifest(t, validManifest)
	viper.Set("workspace", t.TempDir())
	t.Cleanup(func() { viper.Set("workspace", config.DefaultWorkspace) })

	out, err := captureStdout(t, func() error {
		return tagsCmd.RunE(tagsCmd, nil)
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 of 3 repositories failed tag verification")
	assert.Contains(t, out, "ERROR")
}

func TestShowCmd_SingleRepositoryKeepsMetadata(t *testing.T) {
	writeManifest(t, validManifest+`
[metadata]
channel = "stable"
`)

	out, err := captureStdout(t, func() error {
		return showCmd.RunE(showCmd, []string{"consensus"})
	})

	require.NoError(t, err)
	assert.Contains(t, out, "consensus")
	assert.Contains(t, out, "[metadata]")
	assert.Contains(t, out, "channel")
}

func TestNetworkCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"network":"regtest","listen_addr":"0.0.0.0:8333","peer_count":3,"inbound":1,"outbound":2}}`))
	}))
	defer srv.Close()

	viper.Set("rpc.addr", strings.TrimPrefix(srv.URL, "http://"))
	viper.Set("cache.enabled", false)
	viper.Set("logging.level", "error")
	t.Cleanup(func() {
		viper.Set("rpc.addr", config.DefaultRPCAddr)
		viper.Set("cache.enabled", config.DefaultCacheEnabled)
	})

	out, err := captureStdout(t, func() error {
		return networkCmd.RunE(networkCmd, nil)
	})

	require.NoError(t, err)
	assert.Contains(t, out, "network: regtest")
	assert.Contains(t, out, "3 (1 inbound, 2 outbound)")
}

func TestConfigShowCmd(t *testing.T) {
	viper.Set("logging.level", "error")

	out, err := captureStdout(t, func() error {
		return configShowCmd.RunE(configShowCmd, nil)
	})

	require.NoError(t, err)
	assert.Contains(t, out, "manifest:")
	assert.Contains(t, out, "rpc:")
	assert.Contains(t, out, "addr:")
}

func TestConfigValidateCmd_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rpc:\n  addr: 127.0.0.1:8332\n"), 0o644))

	out, err := captureStdout(t, func() error {
		return configValidateCmd.RunE(configValidateCmd, []string{path})
	})

	require.NoError(t, err)
	assert.Contains(t, out, "is valid")
}

func TestConfigValidateCmd_MissingFile(t *testing.T) {
	_, err := captureStdout(t, func() error {
		return configValidateCmd.RunE(configValidateCmd, []string{filepath.Join(t.TempDir(), "absent.yaml")})
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration file")
}

func TestConfigValidateCmd_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rpc: [broken\n"), 0o644))

	_, err := captureStdout(t, func() error {
		return configValidateCmd.RunE(configValidateCmd, []string{path})
	})

	require.Error(t, err)
}

func TestConfigPathCmd(t *testing.T) {
	viper.Set("logging.level", "error")

	out, err := captureStdout(t, func() error {
		return configPathCmd.RunE(configPathCmd, nil)
	})

	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))
}

func TestVersionCmd(t *testing.T) {
	out, err := captureStdout(t, func() error {
		versionCmd.Run(versionCmd, nil)
		return nil
	})

	require.NoError(t, err)
	assert.Contains(t, out, "repover")
}

func indexOf(t *testing.T, haystack, needle string) int {
	t.Helper()
	idx := strings.Index(haystack, needle)
	require.GreaterOrEqual(t, idx, 0, "%q not found in output", needle)
	return idx
}
