package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"focusflow/internal/domain"
)

// Config models focusflow.yml. Secrets are supplied through the environment.
type Config struct {
	Store struct {
		Driver   string `yaml:"driver"`
		MongoURI string `yaml:"mongo_uri"`
		Database string `yaml:"database"`
	} `yaml:"store"`
	AI struct {
		Endpoint            string `yaml:"endpoint"`
		Model               string `yaml:"model"`
		MaxTokens           int    `yaml:"max_tokens"`
		CategorizeMaxTokens int    `yaml:"categorize_max_tokens"`
		TimeoutSeconds      int    `yaml:"timeout_seconds"`
	} `yaml:"ai"`
	Proxy struct {
		Variant    string  `yaml:"variant"`
		Addr       string  `yaml:"addr"`
		Upstream   string  `yaml:"upstream"`
		APIVersion string  `yaml:"api_version"`
		RateLimit  float64 `yaml:"rate_limit"`
		Burst      int     `yaml:"burst"`
	} `yaml:"proxy"`
	Auth struct {
		TokenTTLHours           int    `yaml:"token_ttl_hours"`
		FirebaseCredentialsFile string `yaml:"firebase_credentials_file"`
	} `yaml:"auth"`
	Settings SettingsDefaults `yaml:"settings"`
	Webhooks []WebhookConfig  `yaml:"webhooks"`
}

type SettingsDefaults struct {
	Notifications   bool `yaml:"notifications"`
	Sound           bool `yaml:"sound"`
	DarkMode        bool `yaml:"dark_mode"`
	TimerPomodoro   int  `yaml:"timer_pomodoro"`
	TimerShortBreak int  `yaml:"timer_short_break"`
	TimerLongBreak  int  `yaml:"timer_long_break"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Events         []string `yaml:"events"`
	Secret         string   `yaml:"secret"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Enabled        *bool    `yaml:"enabled"`
}

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"

	VariantFunction = "function"
	VariantLocal    = "local"
)

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with ff config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the defaults if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite:
	case DriverMongo:
		if strings.TrimSpace(c.Store.MongoURI) == "" {
			return fmt.Errorf("config.store.mongo_uri is required for driver mongo")
		}
		if strings.TrimSpace(c.Store.Database) == "" {
			return fmt.Errorf("config.store.database is required for driver mongo")
		}
	default:
		return fmt.Errorf("config.store.driver must be 'sqlite' or 'mongo'")
	}
	if c.AI.MaxTokens <= 0 {
		return fmt.Errorf("config.ai.max_tokens must be positive")
	}
	if c.AI.CategorizeMaxTokens <= 0 {
		return fmt.Errorf("config.ai.categorize_max_tokens must be positive")
	}
	if c.Proxy.Variant != VariantFunction && c.Proxy.Variant != VariantLocal {
		return fmt.Errorf("config.proxy.variant must be 'function' or 'local'")
	}
	if c.Proxy.Upstream == "" {
		return fmt.Errorf("config.proxy.upstream is required")
	}
	if c.Proxy.RateLimit < 0 || c.Proxy.Burst < 0 {
		return fmt.Errorf("config.proxy rate limit values must not be negative")
	}
	if c.Auth.TokenTTLHours <= 0 {
		return fmt.Errorf("config.auth.token_ttl_hours must be positive")
	}
	for name, v := range map[string]int{
		"timer_pomodoro":    c.Settings.TimerPomodoro,
		"timer_short_break": c.Settings.TimerShortBreak,
		"timer_long_break":  c.Settings.TimerLongBreak,
	} {
		if v <= 0 {
			return fmt.Errorf("config.settings.%s must be positive", name)
		}
	}
	for i, hook := range c.Webhooks {
		if strings.TrimSpace(hook.URL) == "" {
			return fmt.Errorf("config.webhooks[%d].url is required", i)
		}
		if hook.TimeoutSeconds < 0 {
			return fmt.Errorf("config.webhooks[%d].timeout_seconds must not be negative", i)
		}
	}
	return nil
}

// DefaultSettings converts the configured defaults to a settings record.
func (c *Config) DefaultSettings() domain.Settings {
	return domain.Settings{
		Notifications:   c.Settings.Notifications,
		Sound:           c.Settings.Sound,
		DarkMode:        c.Settings.DarkMode,
		TimerPomodoro:   c.Settings.TimerPomodoro,
		TimerShortBreak: c.Settings.TimerShortBreak,
		TimerLongBreak:  c.Settings.TimerLongBreak,
	}
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "focusflow.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Missing keys
// keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `store:
  driver: sqlite
  mongo_uri: ""
  database: focusflow

ai:
  endpoint: http://localhost:3001/api/claude
  model: claude-sonnet-4-20250514
  max_tokens: 1024
  categorize_max_tokens: 256
  timeout_seconds: 60

proxy:
  variant: local
  addr: 127.0.0.1:3001
  upstream: https://api.anthropic.com/v1/messages
  api_version: "2023-06-01"
  rate_limit: 5
  burst: 10

auth:
  token_ttl_hours: 720
  firebase_credentials_file: ""

settings:
  notifications: true
  sound: true
  dark_mode: false
  timer_pomodoro: 25
  timer_short_break: 5
  timer_long_break: 15

webhooks: []
`
