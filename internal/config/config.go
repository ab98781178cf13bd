// Package config loads the server configuration from an optional YAML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables read by Load. They override the file.
const (
	EnvPort        = "PORT"
	EnvAuthToken   = "MCP_TOKEN"
	EnvTLSCert     = "TLS_CERT_FILE"
	EnvTLSKey      = "TLS_KEY_FILE"
	EnvTrelloKey   = "TRELLO_API_KEY"
	EnvTrelloToken = "TRELLO_TOKEN"
	// EnvConfigPath names the config file when no --config flag is given.
	EnvConfigPath = "TRELLO_MCP_CONFIG"
)

// Config is the complete trello-mcp configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Trello  TrelloConfig  `yaml:"trello"`
	Tools   ToolsConfig   `yaml:"tools"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr      string    `yaml:"addr"`
	AuthToken string    `yaml:"auth_token"`
	Catalog   string    `yaml:"catalog"`
	TLS       TLSConfig `yaml:"tls"`

	RequestTimeout    time.Duration `yaml:"-"`
	KeepaliveInterval time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	RequestTimeoutRaw    string `yaml:"request_timeout"`
	KeepaliveIntervalRaw string `yaml:"keepalive_interval"`
}

// TLSConfig enables HTTPS when both files are set.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// Enabled reports whether both cert and key are configured.
func (t TLSConfig) Enabled() bool { return t.CertFile != "" && t.KeyFile != "" }

// TrelloConfig holds upstream credentials.
type TrelloConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Token   string `yaml:"token"`

	HTTPTimeout    time.Duration `yaml:"-"`
	HTTPTimeoutRaw string        `yaml:"http_timeout"`
}

// ToolsConfig holds the tool invoker budgets and behavior switches.
type ToolsConfig struct {
	LegacyListFallback bool `yaml:"legacy_list_fallback"`

	ListTimeout   time.Duration `yaml:"-"`
	CallTimeout   time.Duration `yaml:"-"`
	BoardCacheTTL time.Duration `yaml:"-"`

	ListTimeoutRaw   string `yaml:"list_timeout"`
	CallTimeoutRaw   string `yaml:"call_timeout"`
	BoardCacheTTLRaw string `yaml:"board_cache_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used for every key the file and
// environment leave unset.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:                 ":3000",
			Catalog:              "full",
			RequestTimeoutRaw:    "30s",
			KeepaliveIntervalRaw: "30s",
		},
		Trello: TrelloConfig{
			BaseURL:        "https://api.trello.com/1",
			HTTPTimeoutRaw: "10s",
		},
		Tools: ToolsConfig{
			ListTimeoutRaw:   "2s",
			CallTimeoutRaw:   "10s",
			BoardCacheTTLRaw: "30s",
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty) and the environment, in that order of precedence.
// Environment variables in the format ${VAR_NAME} inside the file are expanded.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvPort); v != "" {
		cfg.Server.Addr = ":" + v
	}
	setFromEnv(&cfg.Server.AuthToken, EnvAuthToken)
	setFromEnv(&cfg.Server.TLS.CertFile, EnvTLSCert)
	setFromEnv(&cfg.Server.TLS.KeyFile, EnvTLSKey)
	setFromEnv(&cfg.Trello.APIKey, EnvTrelloKey)
	setFromEnv(&cfg.Trello.Token, EnvTrelloToken)
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	switch c.Server.Catalog {
	case "full", "public":
	default:
		return fmt.Errorf("server.catalog must be full or public, got %q", c.Server.Catalog)
	}
	if (c.Server.TLS.CertFile == "") != (c.Server.TLS.KeyFile == "") {
		return errors.New("server.tls.cert_file and server.tls.key_file must be set together")
	}
	if c.Trello.APIKey == "" {
		return fmt.Errorf("trello.api_key is required (or set %s)", EnvTrelloKey)
	}
	if c.Trello.Token == "" {
		return fmt.Errorf("trello.token is required (or set %s)", EnvTrelloToken)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	for name, d := range map[string]time.Duration{
		"server.request_timeout":    c.Server.RequestTimeout,
		"server.keepalive_interval": c.Server.KeepaliveInterval,
		"trello.http_timeout":       c.Trello.HTTPTimeout,
		"tools.list_timeout":        c.Tools.ListTimeout,
		"tools.call_timeout":        c.Tools.CallTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.Tools.BoardCacheTTL < 0 {
		return errors.New("tools.board_cache_ttl must not be negative")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	for _, f := range []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"request_timeout", cfg.Server.RequestTimeoutRaw, &cfg.Server.RequestTimeout},
		{"keepalive_interval", cfg.Server.KeepaliveIntervalRaw, &cfg.Server.KeepaliveInterval},
		{"http_timeout", cfg.Trello.HTTPTimeoutRaw, &cfg.Trello.HTTPTimeout},
		{"list_timeout", cfg.Tools.ListTimeoutRaw, &cfg.Tools.ListTimeout},
		{"call_timeout", cfg.Tools.CallTimeoutRaw, &cfg.Tools.CallTimeout},
		{"board_cache_ttl", cfg.Tools.BoardCacheTTLRaw, &cfg.Tools.BoardCacheTTL},
	} {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}
