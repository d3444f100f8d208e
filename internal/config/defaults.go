package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default configuration values
const (
	DefaultManifest      = "versions.toml"
	DefaultWorkspace     = "."
	DefaultRPCAddr       = "127.0.0.1:18332"
	DefaultRPCTimeout    = 10 * time.Second
	DefaultRPCMaxRetries = 3
	DefaultCacheEnabled  = true
	DefaultCacheTTL      = 24 * time.Hour
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "pretty"
)

// ConfigDir returns the repover configuration directory
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".repover"
	}
	return filepath.Join(home, ".repover")
}

// CacheDir returns the snapshot cache directory
func CacheDir() string {
	return filepath.Join(ConfigDir(), "cache")
}
