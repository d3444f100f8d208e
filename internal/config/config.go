package config

import (
	"time"
)

// Config represents the application configuration
type Config struct {
	// Manifest is the path to the versions manifest.
	Manifest string `mapstructure:"manifest" yaml:"manifest"`

	// Workspace is the directory holding local clones of the tracked
	// repositories, used by tag verification.
	Workspace string `mapstructure:"workspace" yaml:"workspace"`

	RPC     RPCConfig     `mapstructure:"rpc" yaml:"rpc"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// RPCConfig contains node JSON-RPC client settings
type RPCConfig struct {
	Addr       string        `mapstructure:"addr" yaml:"addr"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries int           `mapstructure:"max_retries" yaml:"max_retries"`
}

// CacheConfig contains snapshot cache settings
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	TTL       time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Directory string        `mapstructure:"directory" yaml:"directory"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Validate validates the configuration and replaces unusable values with
// defaults.
func (c *Config) Validate() error {
	if c.Manifest == "" {
		c.Manifest = DefaultManifest
	}
	if c.Workspace == "" {
		c.Workspace = DefaultWorkspace
	}
	if c.RPC.Addr == "" {
		c.RPC.Addr = DefaultRPCAddr
	}
	if c.RPC.Timeout < time.Second {
		c.RPC.Timeout = DefaultRPCTimeout
	}
	if c.RPC.MaxRetries < 0 {
		c.RPC.MaxRetries = DefaultRPCMaxRetries
	}
	if c.Cache.TTL < time.Minute {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Cache.Directory == "" {
		c.Cache.Directory = CacheDir()
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	return nil
}
