// Package config loads the linlog configuration file.
//
// The file is TOML with four optional sections. Keys that are absent keep
// their defaults:
//
//	[layout]
//	iterations = 100
//	theta = 0.05
//	dimensions = 3
//
//	[cluster]
//	multi_level = true
//
//	[cache]
//	backend = "redis"
//	[cache.redis]
//	addr = "localhost:6379"
//
//	[server]
//	addr = ":8080"
//	session_ttl = "30m"
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/linlog/pkg/api"
	"github.com/matzehuels/linlog/pkg/cache"
	"github.com/matzehuels/linlog/pkg/errors"
	"github.com/matzehuels/linlog/pkg/pipeline"
	"github.com/matzehuels/linlog/pkg/session"
)

const appName = "linlog"

// Config is the full configuration.
type Config struct {
	Layout  pipeline.Options `toml:"layout"`
	Cluster Cluster          `toml:"cluster"`
	Cache   cache.Config     `toml:"cache"`
	Server  Server           `toml:"server"`
}

// Cluster holds the clustering switches.
type Cluster struct {
	MultiLevel  bool `toml:"multi_level"`
	IgnoreLoops bool `toml:"ignore_loops"`
}

// Server configures `linlog serve`.
type Server struct {
	Addr            string        `toml:"addr" validate:"required,hostname_port"`
	SessionTTL      time.Duration `toml:"session_ttl" validate:"gt=0"`
	CleanupInterval time.Duration `toml:"cleanup_interval" validate:"gt=0"`
	MaxBodyBytes    int64         `toml:"max_body_bytes" validate:"gt=0"`
	Metrics         bool          `toml:"metrics"`
}

// Default returns the built-in configuration. The cache is a file cache in
// the user cache directory when one can be determined.
func Default() Config {
	cfg := Config{
		Layout: pipeline.DefaultOptions(),
		Server: Server{
			Addr:            ":8080",
			SessionTTL:      session.DefaultTTL,
			CleanupInterval: api.DefaultCleanupInterval,
			MaxBodyBytes:    api.DefaultMaxBodyBytes,
			Metrics:         true,
		},
	}
	if dir, err := CacheDir(); err == nil {
		cfg.Cache.Dir = dir
	}
	return cfg
}

// Options returns the layout options with the cluster switches applied.
func (c Config) Options() pipeline.Options {
	opts := c.Layout
	opts.MultiLevel = c.Cluster.MultiLevel
	opts.IgnoreLoops = c.Cluster.IgnoreLoops
	return opts
}

// Validate checks every section. Errors carry [errors.ErrCodeInvalidOptions]
// and name fields by their TOML keys.
func (c Config) Validate() error {
	return errors.ValidateStruct(c)
}

// Load reads path over [Default] and validates the result. An empty path
// means [DefaultPath], which may be missing; an explicit path must exist.
// Unknown keys are rejected so typos do not pass silently.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}
	if err := errors.ValidatePath(path); err != nil {
		return cfg, err
	}

	md, err := toml.DecodeFile(path, &cfg)
	if os.IsNotExist(err) {
		if explicit {
			return cfg, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
		}
		return Default(), nil
	}
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, errors.New(errors.ErrCodeInvalidFormat, "config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// DefaultPath returns $XDG_CONFIG_HOME/linlog/config.toml, falling back to
// ~/.config.
func DefaultPath() (string, error) {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// CacheDir returns $XDG_CACHE_HOME/linlog, falling back to ~/.cache.
func CacheDir() (string, error) {
	if home := os.Getenv("XDG_CACHE_HOME"); home != "" {
		return filepath.Join(home, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
