// Package hostconfig owns the host's on-disk layout: config.json,
// services/<name>/{metadata.json,source.*}, storage/<name>/, tmp/ and
// cache/. It implements lifecycle.Storage and httpapi.SourceStore/Recorder
// so the lifecycle engine and the HTTP front door never touch the
// filesystem directly.
package hostconfig

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"

	"github.com/nabbar/abel/runtime"
)

// PoolConfig sizes the runtime pool and the per-worker isolate cache.
type PoolConfig struct {
	Size      int `json:"pool_size" mapstructure:"pool_size"`
	CacheSize int `json:"cache_size" mapstructure:"cache_size"`
}

// HTTPConfig is the bind address and optional TLS material for the HTTP
// front door.
type HTTPConfig struct {
	Bind    string `json:"bind" mapstructure:"bind"`
	TLSCert string `json:"tls_cert,omitempty" mapstructure:"tls_cert"`
	TLSKey  string `json:"tls_key,omitempty" mapstructure:"tls_key"`
}

// LoggerConfig is the logging setup; Level can be overridden at runtime
// by the RUST_LOG environment variable.
type LoggerConfig struct {
	Level string `json:"level" mapstructure:"level"`
}

// HostConfig is the parsed form of <root>/config.json.
type HostConfig struct {
	Root      string       `json:"-" mapstructure:"-"`
	Pool      PoolConfig   `json:"pool" mapstructure:"pool"`
	HTTP      HTTPConfig   `json:"http" mapstructure:"http"`
	Logger    LoggerConfig `json:"logger" mapstructure:"logger"`
	AuthToken string       `json:"auth_token,omitempty" mapstructure:"auth_token"`
}

// Default returns the zero-config host config for a fresh root: one worker
// per two CPUs, a 128-entry per-worker cache, HTTP on :8080, info logging,
// no auth token.
func Default(root string) *HostConfig {
	return &HostConfig{
		Root: root,
		Pool: PoolConfig{Size: runtime.DefaultSize(), CacheSize: 128},
		HTTP: HTTPConfig{Bind: ":8080"},
		Logger: LoggerConfig{Level: "info"},
	}
}

// configPath returns <root>/config.json.
func configPath(root string) string {
	return filepath.Join(root, "config.json")
}

// Load reads and parses <root>/config.json. A missing file is not an
// error; it yields Default(root) so a brand new root can boot with no
// config file at all.
func Load(root string) (*HostConfig, error) {
	body, err := os.ReadFile(configPath(root))
	if os.IsNotExist(err) {
		return Default(root), nil
	}
	if err != nil {
		return nil, ErrorConfigRead.Error(err)
	}

	var raw map[string]interface{}
	if jerr := json.Unmarshal(body, &raw); jerr != nil {
		return nil, ErrorConfigParse.Error(jerr)
	}

	cfg := Default(root)
	if derr := mapstructure.Decode(raw, cfg); derr != nil {
		return nil, ErrorConfigParse.Error(derr)
	}
	cfg.Root = root

	if cfg.Pool.Size <= 0 {
		cfg.Pool.Size = runtime.DefaultSize()
	}
	if cfg.Pool.CacheSize <= 0 {
		cfg.Pool.CacheSize = 128
	}
	if cfg.HTTP.Bind == "" {
		cfg.HTTP.Bind = ":8080"
	}

	return cfg, nil
}

// Save writes cfg back to <root>/config.json, pretty-printed.
func Save(cfg *HostConfig) error {
	body, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return ErrorConfigParse.Error(err)
	}
	if err := os.WriteFile(configPath(cfg.Root), body, 0o644); err != nil {
		return ErrorConfigRead.Error(err)
	}
	return nil
}
