package config

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

const DEFAULT_PORT = 9440
const DEFAULT_TIMEOUT = 30 * time.Second
const DEFAULT_CATALOG = "BaseRules.json"
const DEFAULT_LOG_LEVEL = "info"

// Prism Central caps list responses at 500 entities.
const MAX_PAGE_SIZE = 500
const DEFAULT_POLL_INTERVAL = 5 * time.Second
const DEFAULT_POLL_ATTEMPTS = 120

var SUPPORTED_LOG_LEVELS = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

type PrismConfig struct {
	Host     string        `yaml:"host"`
	Port     uint16        `yaml:"port,omitempty"`
	User     string        `yaml:"user"`
	Password string        `yaml:"password,omitempty"`
	Insecure bool          `yaml:"insecure,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
}

// BaseURL is the API root, e.g. https://pc.example.local:9440/api/nutanix/v3.
func (p PrismConfig) BaseURL() string {
	return fmt.Sprintf("https://%s:%d/api/nutanix/v3", p.Host, p.Port)
}

type LogConfig struct {
	Dir   string `yaml:"dir,omitempty"`
	Level string `yaml:"level,omitempty"`
}

type ReconcileConfig struct {
	PageSize     int           `yaml:"pageSize,omitempty"`
	DryRun       bool          `yaml:"dryRun,omitempty"`
	PollInterval time.Duration `yaml:"pollInterval,omitempty"`
	PollAttempts int           `yaml:"pollAttempts,omitempty"`
}

type AppConfig struct {
	Prism     PrismConfig     `yaml:"prism"`
	Catalog   string          `yaml:"catalog,omitempty"`
	Log       LogConfig       `yaml:"log,omitempty"`
	Reconcile ReconcileConfig `yaml:"reconcile,omitempty"`
}

func applyDefaults(c *AppConfig) {
	if c.Prism.Port == 0 {
		c.Prism.Port = DEFAULT_PORT
	}
	if c.Prism.Timeout == 0 {
		c.Prism.Timeout = DEFAULT_TIMEOUT
	}
	if c.Catalog == "" {
		c.Catalog = DEFAULT_CATALOG
	}
	if c.Log.Dir == "" {
		c.Log.Dir = "."
	}
	if c.Log.Level == "" {
		c.Log.Level = DEFAULT_LOG_LEVEL
	}
	if c.Reconcile.PageSize == 0 {
		c.Reconcile.PageSize = MAX_PAGE_SIZE
	}
	if c.Reconcile.PollInterval == 0 {
		c.Reconcile.PollInterval = DEFAULT_POLL_INTERVAL
	}
	if c.Reconcile.PollAttempts == 0 {
		c.Reconcile.PollAttempts = DEFAULT_POLL_ATTEMPTS
	}
}

// Validate checks a fully defaulted config. Called by New, and again by
// callers that override fields from flags or the environment.
func (c *AppConfig) Validate() error {
	if c.Prism.Host == "" || c.Prism.User == "" {
		return fmt.Errorf("prism definition is invalid: host and user are required")
	}
	if c.Reconcile.PageSize < 1 || c.Reconcile.PageSize > MAX_PAGE_SIZE {
		return fmt.Errorf("pageSize %d out of range 1..%d", c.Reconcile.PageSize, MAX_PAGE_SIZE)
	}
	if c.Reconcile.PollAttempts < 1 {
		return fmt.Errorf("pollAttempts must be positive, got %d", c.Reconcile.PollAttempts)
	}
	if !SUPPORTED_LOG_LEVELS[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("unsupported log level %s", c.Log.Level)
	}
	return nil
}

func getConfig(data []byte) (*AppConfig, error) {
	var tempConfig = new(AppConfig)

	if err := yaml.UnmarshalStrict(data, tempConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(tempConfig)
	return tempConfig, nil
}

// Parse reads and defaults a config without validating it, so callers can
// fill required fields from flags or the environment first.
func Parse(reader io.Reader) (*AppConfig, error) {
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(reader); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return getConfig(buf.Bytes())
}

func New(reader io.Reader) (*AppConfig, error) {
	result, err := Parse(reader)
	if err != nil {
		return nil, err
	}

	if err := result.Validate(); err != nil {
		return nil, err
	}
	return result, nil
}

// Default returns a config carrying only defaults, for runs driven purely by
// flags and environment.
func Default() *AppConfig {
	c := new(AppConfig)
	applyDefaults(c)
	return c
}
