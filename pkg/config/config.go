// Package config loads pipeline configuration from an optional YAML file
// merged with environment overrides. The environment always wins, matching
// how operators toggle the reference system in production.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variable names recognized by FromEnv.
const (
	EnvAllowedRoot        = "ALLOWED_ROOT"
	EnvChangeLogDir       = "CHANGE_LOG_DIR"
	EnvKillSwitchPath     = "KILL_SWITCH_PATH"
	EnvEvolve             = "SELFGATE_EVOLVE"
	EnvExplainPolicy      = "EXPLAIN_POLICY"
	EnvAutoExplain        = "AUTO_EXPLAIN"
	EnvRequireExplanation = "REQUIRE_EXPLANATION"
	EnvSigningKeyHex      = "ED25519_PRIV_HEX"
	EnvSnapshotKeyHex     = "SNAPSHOT_KEY_HEX"
	EnvSnapshotKeyID      = "SNAPSHOT_KEY_ID"
	EnvUseSQLite          = "CHANGE_USE_SQLITE"
	EnvSymbolEngine       = "SYMBOL_ENGINE"
)

// Config is the full pipeline configuration.
type Config struct {
	// AllowedRoot is the sandbox root; empty means the current working
	// directory, resolved at pipeline construction.
	AllowedRoot string `yaml:"allowed_root"`
	// ChangeLogDir holds reports, snapshots, the lock file and the
	// optional relational mirror.
	ChangeLogDir   string `yaml:"change_log_dir"`
	KillSwitchPath string `yaml:"kill_switch_path"`

	// ExplainPolicy is one of strict, advisory, off.
	ExplainPolicy string `yaml:"explain_policy"`
	// AutoExplain replaces even a supplied explanation with the synthesized
	// one. A missing explanation is always synthesized regardless.
	AutoExplain        bool `yaml:"auto_explain"`
	RequireExplanation bool `yaml:"require_explanation"`

	// SigningKeyHex is a 32-byte Ed25519 seed in hex; empty disables signing.
	SigningKeyHex string `yaml:"signing_key_hex"`
	// SnapshotKeyHex is a 32-byte AES-256 key in hex; empty stores
	// snapshots as plaintext.
	SnapshotKeyHex string `yaml:"snapshot_key_hex"`
	SnapshotKeyID  string `yaml:"snapshot_key_id"`

	UseSQLite bool `yaml:"use_sqlite"`

	// SymbolEngine selects the symbol extractor: regex or treesitter.
	SymbolEngine string `yaml:"symbol_engine"`

	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, text
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		ChangeLogDir:       filepath.Join("logs", "changes"),
		KillSwitchPath:     "KILL_SWITCH",
		ExplainPolicy:      "strict",
		RequireExplanation: true,
		SymbolEngine:       "regex",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads .selfgate/config.yaml under dir (missing file is fine), applies
// environment overrides, and validates the result.
func Load(dir string) (*Config, error) {
	cfg := Default()
	cfgPath := filepath.Join(dir, ".selfgate", "config.yaml")

	data, err := os.ReadFile(cfgPath)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv applies environment overrides in place.
func (c *Config) FromEnv() {
	if v := os.Getenv(EnvAllowedRoot); v != "" {
		c.AllowedRoot = v
	}
	if v := os.Getenv(EnvChangeLogDir); v != "" {
		c.ChangeLogDir = v
	}
	if v := os.Getenv(EnvKillSwitchPath); v != "" {
		c.KillSwitchPath = v
	}
	if v := os.Getenv(EnvExplainPolicy); v != "" {
		c.ExplainPolicy = strings.ToLower(v)
	}
	if v, ok := os.LookupEnv(EnvAutoExplain); ok {
		c.AutoExplain = truthy(v)
	}
	if v, ok := os.LookupEnv(EnvRequireExplanation); ok {
		c.RequireExplanation = truthy(v)
	}
	if v := os.Getenv(EnvSigningKeyHex); v != "" {
		c.SigningKeyHex = v
	}
	if v := os.Getenv(EnvSnapshotKeyHex); v != "" {
		c.SnapshotKeyHex = v
	}
	if v := os.Getenv(EnvSnapshotKeyID); v != "" {
		c.SnapshotKeyID = v
	}
	if v, ok := os.LookupEnv(EnvUseSQLite); ok {
		c.UseSQLite = truthy(v)
	}
	if v := os.Getenv(EnvSymbolEngine); v != "" {
		c.SymbolEngine = strings.ToLower(v)
	}
}

// Validate normalizes and checks enum fields.
func (c *Config) Validate() error {
	switch c.ExplainPolicy {
	case "strict", "advisory", "off":
	case "":
		c.ExplainPolicy = "strict"
	default:
		// Unknown values degrade to the safest mode.
		c.ExplainPolicy = "strict"
	}
	switch c.SymbolEngine {
	case "regex", "treesitter":
	case "":
		c.SymbolEngine = "regex"
	default:
		return fmt.Errorf("config: unknown symbol engine %q", c.SymbolEngine)
	}
	if c.ChangeLogDir == "" {
		return fmt.Errorf("config: change_log_dir must not be empty")
	}
	return nil
}

// Save writes configuration to .selfgate/config.yaml under dir.
func Save(dir string, cfg *Config) error {
	cfgPath := filepath.Join(dir, ".selfgate", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(cfgPath, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
