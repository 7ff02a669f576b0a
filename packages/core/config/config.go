package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the suitecast configuration
type Config struct {
	Verbosity int               `yaml:"verbosity,omitempty"`
	NoColor   *bool             `yaml:"noColor,omitempty"`
	Output    string            `yaml:"output,omitempty"`  // terminal or stream
	Rate      float64           `yaml:"rate,omitempty"`    // tests started per second, 0 = unlimited
	History   string            `yaml:"history,omitempty"` // sqlite file recording each run
	EnvFile   string            `yaml:"envFile,omitempty"` // dotenv file passed to test commands
	Env       map[string]string `yaml:"env,omitempty"`     // variables passed to test commands
	Server    ServerConfig      `yaml:"server,omitempty"`
	Notify    NotifyConfig      `yaml:"notify,omitempty"`
	Strings   map[string]string `yaml:"strings,omitempty"` // template overrides
	Colors    map[string]string `yaml:"colors,omitempty"`  // category color overrides
}

// ServerConfig configures the websocket endpoint remote observers connect to
type ServerConfig struct {
	Addr           string   `yaml:"addr,omitempty"`
	Token          string   `yaml:"token,omitempty"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

// NotifyConfig configures build result notifications
type NotifyConfig struct {
	On           string `yaml:"on,omitempty"`
	SlackWebhook string `yaml:"slackWebhook,omitempty"`
	SlackChannel string `yaml:"slackChannel,omitempty"`
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// Table builds the lookup table: the stock templates and colors with the
// configured overrides applied on top.
func (c *Config) Table() Table {
	return DefaultTable().With(c.Strings, c.Colors)
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".suitecast.yaml",
	"suitecast.yaml",
	".suitecast.yml",
	".suitecastrc",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	return DefaultConfig(), nil
}

// loadConfigFromFile loads configuration from a specific file. JSON files
// are accepted too since yaml.v3 parses JSON documents.
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c

	if other.Verbosity > 0 {
		result.Verbosity = other.Verbosity
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}
	if other.Output != "" {
		result.Output = other.Output
	}
	if other.Rate > 0 {
		result.Rate = other.Rate
	}
	if other.History != "" {
		result.History = other.History
	}
	if other.EnvFile != "" {
		result.EnvFile = other.EnvFile
	}
	if other.Server.Addr != "" {
		result.Server.Addr = other.Server.Addr
	}
	if other.Server.Token != "" {
		result.Server.Token = other.Server.Token
	}
	if len(other.Server.AllowedOrigins) > 0 {
		result.Server.AllowedOrigins = other.Server.AllowedOrigins
	}
	if other.Notify.On != "" {
		result.Notify.On = other.Notify.On
	}
	if other.Notify.SlackWebhook != "" {
		result.Notify.SlackWebhook = other.Notify.SlackWebhook
	}
	if other.Notify.SlackChannel != "" {
		result.Notify.SlackChannel = other.Notify.SlackChannel
	}

	result.Env = mergeMaps(c.Env, other.Env)
	result.Strings = mergeMaps(c.Strings, other.Strings)
	result.Colors = mergeMaps(c.Colors, other.Colors)

	return &result
}

func mergeMaps(base, over map[string]string) map[string]string {
	if len(base) == 0 && len(over) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
