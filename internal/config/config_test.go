package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/linlog/pkg/cache"
	"github.com/matzehuels/linlog/pkg/errors"
	"github.com/matzehuels/linlog/pkg/pipeline"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Layout.Iterations != pipeline.DefaultIterations {
		t.Errorf("Iterations = %d, want %d", cfg.Layout.Iterations, pipeline.DefaultIterations)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
}

func TestLoadMissingDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Layout != pipeline.DefaultOptions() {
		t.Errorf("Layout = %+v, want defaults", cfg.Layout)
	}
}

func TestLoadDefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	dir := filepath.Join(home, "linlog")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[layout]\niterations = 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Layout.Iterations != 7 {
		t.Errorf("Iterations = %d, want 7", cfg.Layout.Iterations)
	}
}

func TestLoadExplicitMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Fatalf("Load = %v, want FILE_NOT_FOUND", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
[layout]
iterations = 200
dimensions = 3
seed = 7
workers = -1
incremental = true

[cluster]
multi_level = true
ignore_loops = true

[cache]
backend = "redis"

[cache.redis]
addr = "localhost:6379"
key_prefix = "ll:"

[server]
addr = "127.0.0.1:9000"
session_ttl = "5m"
metrics = false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Layout.Iterations != 200 || cfg.Layout.Dimensions != 3 || cfg.Layout.Seed != 7 {
		t.Errorf("Layout = %+v", cfg.Layout)
	}
	if cfg.Layout.Theta != pipeline.DefaultOptions().Theta {
		t.Errorf("Theta = %v, want default", cfg.Layout.Theta)
	}
	if cfg.Cache.Backend != cache.BackendRedis || cfg.Cache.Redis.Addr != "localhost:6379" || cfg.Cache.Redis.KeyPrefix != "ll:" {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" || cfg.Server.SessionTTL != 5*time.Minute || cfg.Server.Metrics {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Server.CleanupInterval != Default().Server.CleanupInterval {
		t.Errorf("CleanupInterval = %v, want default", cfg.Server.CleanupInterval)
	}

	opts := cfg.Options()
	if !opts.MultiLevel || !opts.IgnoreLoops || !opts.Incremental {
		t.Errorf("Options = %+v", opts)
	}
	if err := opts.Validate(); err != nil {
		t.Errorf("Options().Validate() = %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errors.Code
		want    string
	}{
		{"syntax", "[layout\n", errors.ErrCodeInvalidFormat, "parse config"},
		{"unknown key", "[layout]\nitertions = 3\n", errors.ErrCodeInvalidFormat, "layout.itertions"},
		{"cluster key in layout", "[layout]\nmulti_level = true\n", errors.ErrCodeInvalidFormat, "layout.multi_level"},
		{"bad dimensions", "[layout]\ndimensions = 4\n", errors.ErrCodeInvalidOptions, "layout.dimensions must be one of: 2 3"},
		{"bad backend", "[cache]\nbackend = \"s3\"\n", errors.ErrCodeInvalidOptions, "cache.backend must be one of"},
		{"bad addr", "[server]\naddr = \"nowhere\"\n", errors.ErrCodeInvalidOptions, "server.addr must be host:port"},
		{"zero ttl", "[server]\nsession_ttl = \"0s\"\n", errors.ErrCodeInvalidOptions, "server.session_ttl must be greater than 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if !errors.Is(err, tt.code) {
				t.Fatalf("Load = %v, want %s", err, tt.code)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_CACHE_HOME", "/cache")

	if p, err := DefaultPath(); err != nil || p != filepath.Join("/cfg", "linlog", "config.toml") {
		t.Errorf("DefaultPath() = %q, %v", p, err)
	}
	if d, err := CacheDir(); err != nil || d != filepath.Join("/cache", "linlog") {
		t.Errorf("CacheDir() = %q, %v", d, err)
	}
	if Default().Cache.Dir != filepath.Join("/cache", "linlog") {
		t.Errorf("Default().Cache.Dir = %q", Default().Cache.Dir)
	}
}

func TestPathsFallBackToHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_CACHE_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	if p, _ := DefaultPath(); p != filepath.Join(home, ".config", "linlog", "config.toml") {
		t.Errorf("DefaultPath() = %q", p)
	}
	if d, _ := CacheDir(); d != filepath.Join(home, ".cache", "linlog") {
		t.Errorf("CacheDir() = %q", d)
	}
}
