package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/formkit/internal/errors"
	"github.com/vango-dev/formkit/internal/validate"
)

const (
	// ConfigFileName is the name of the default configuration file.
	ConfigFileName = "formkit.yaml"

	// DefaultAddr is the default development server address.
	DefaultAddr = ":8090"

	// DefaultBaseURL is the default base URL for relative submit targets.
	DefaultBaseURL = "http://localhost:8090"

	// DefaultTimeout is the default per-request timeout.
	DefaultTimeout = "30s"

	// DefaultTransport is the default client transport.
	DefaultTransport = "http"
)

// Environment variables that override file values.
const (
	EnvBaseURL  = "FORMKIT_BASE_URL"
	EnvTimeout  = "FORMKIT_TIMEOUT"
	EnvAddr     = "FORMKIT_ADDR"
	EnvLogLevel = "FORMKIT_LOG_LEVEL"
)

// configNames are tried in order by Load.
var configNames = []string{"formkit.yaml", "formkit.yml", "formkit.json"}

// Config represents the complete formkit configuration.
type Config struct {
	// Client contains settings for submitting forms.
	Client ClientConfig `json:"client" yaml:"client"`

	// Server contains development server settings.
	Server ServerConfig `json:"server" yaml:"server"`

	// Log contains logging settings.
	Log LogConfig `json:"log" yaml:"log"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ClientConfig contains settings for the submitting client.
type ClientConfig struct {
	// BaseURL resolves relative submit targets.
	BaseURL string `json:"baseURL,omitempty" yaml:"baseURL,omitempty"`

	// Timeout bounds each request (e.g., "10s").
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Transport is "http" or "ws".
	Transport string `json:"transport,omitempty" yaml:"transport,omitempty"`

	// Headers are sent with every request.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// RateLimit is the maximum requests per second. Zero disables limiting.
	RateLimit float64 `json:"rateLimit,omitempty" yaml:"rateLimit,omitempty"`

	// Burst is the limiter burst size.
	Burst int `json:"burst,omitempty" yaml:"burst,omitempty"`
}

// ServerConfig contains development server settings.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`

	// Forms maps form names to field rules, e.g. {"users": {"email": "required,email"}}.
	Forms map[string]validate.Rules `json:"forms,omitempty" yaml:"forms,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Client: ClientConfig{
			BaseURL:   DefaultBaseURL,
			Timeout:   DefaultTimeout,
			Transport: DefaultTransport,
			Burst:     1,
		},
		Server: ServerConfig{
			Addr:  DefaultAddr,
			Forms: map[string]validate.Rules{},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for formkit.yaml, formkit.yml and formkit.json in that order.
func Load(dir string) (*Config, error) {
	for _, name := range configNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("F100").
		WithDetail("No formkit.yaml or formkit.json found in " + dir).
		WithSuggestion("Pass --config or create " + ConfigFileName)
}

// LoadFile reads configuration from the specified file path. The format is
// chosen by extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("F100").
				WithDetail("No configuration at " + path).
				WithSuggestion("Check the --config path")
		}
		return nil, errors.New("F101").Wrap(err)
	}

	cfg := New()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".json":
		err = json.Unmarshal(data, cfg)
	default:
		return nil, errors.New("F104").WithSuggestion("Rename " + filepath.Base(path))
	}
	if err != nil {
		return nil, errors.New("F101").
			Wrap(err).
			WithSuggestion("Check that " + filepath.Base(path) + " is well formed")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// SaveTo writes the configuration to the specified path, as YAML or JSON
// by extension.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	default:
		return errors.New("F104")
	}
	if err != nil {
		return errors.New("F101").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("F101").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Client.Timeout == "" {
		c.Client.Timeout = DefaultTimeout
	}
	if c.Client.Transport == "" {
		c.Client.Transport = DefaultTransport
	}
	if c.Client.Burst == 0 {
		c.Client.Burst = 1
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.Forms == nil {
		c.Server.Forms = map[string]validate.Rules{}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// ApplyEnv overrides file values from the environment.
func (c *Config) ApplyEnv() {
	c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	if v, ok := get(EnvBaseURL); ok {
		c.Client.BaseURL = v
	}
	if v, ok := get(EnvTimeout); ok {
		c.Client.Timeout = v
	}
	if v, ok := get(EnvAddr); ok {
		c.Server.Addr = v
	}
	if v, ok := get(EnvLogLevel); ok {
		c.Log.Level = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if d, err := time.ParseDuration(c.Client.Timeout); err != nil || d <= 0 {
		return errors.New("F102").
			WithDetail(fmt.Sprintf("client.timeout %q must be a positive duration", c.Client.Timeout)).
			WithSuggestion(`Use a Go duration such as "10s"`)
	}
	switch c.Client.Transport {
	case "http", "ws":
	default:
		return errors.New("F121").WithDetail(fmt.Sprintf("client.transport %q must be http or ws", c.Client.Transport))
	}
	if c.Client.RateLimit < 0 {
		return errors.New("F102").WithDetail("client.rateLimit must not be negative")
	}
	if c.Client.RateLimit > 0 && c.Client.Burst < 1 {
		return errors.New("F102").WithDetail("client.burst must be at least 1 when rateLimit is set")
	}
	if _, err := c.LogLevel(); err != nil {
		return errors.New("F102").Wrap(err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("F102").WithDetail(fmt.Sprintf("log.format %q must be text or json", c.Log.Format))
	}
	for name, rules := range c.Server.Forms {
		if err := rules.Validate(); err != nil {
			return errors.New("F103").
				Wrap(err).
				WithDetail(fmt.Sprintf("form %q: %v", name, err))
		}
	}
	return nil
}

// TimeoutDuration returns the parsed client timeout, or zero if unset or
// invalid.
func (c *Config) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Client.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// LogLevel returns the slog level named by log.level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", c.Log.Level, err)
	}
	return level, nil
}
