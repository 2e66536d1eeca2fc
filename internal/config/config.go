package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// ChannelKeyPrefix prefixes every area path when looking up its Slack channel.
const ChannelKeyPrefix = "channel_"

// Paths contains directory and bind address configuration.
type Paths struct {
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// TFS contains connection settings for the Team Foundation Server collection.
type TFS struct {
	CollectionURL  string            `toml:"collection_url"`
	Username       string            `toml:"username"`
	Password       string            `toml:"password"`
	RequestTimeout int               `toml:"request_timeout"`
	TypeAliases    map[string]string `toml:"type_aliases"`
}

// Slack contains configuration for the incoming webhook used for delivery.
type Slack struct {
	WebhookURL     string `toml:"webhook_url"`
	Username       string `toml:"username"`
	IconEmoji      string `toml:"icon_emoji"`
	DefaultChannel string `toml:"default_channel"`
	RequestTimeout int    `toml:"request_timeout"`
	RatePerSec     int    `toml:"rate_per_sec"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for tfsrelay.
//
// Configuration sections by subsystem:
//   - Paths: log directory, HTTP bind address, and shared endpoint token
//   - TFS: collection URL, service credential, and work item type aliases
//   - Slack: incoming webhook delivery settings
//   - Channels: area path to Slack channel routing
//   - Logging: log format and level
type Config struct {
	Paths    Paths             `toml:"paths"`
	TFS      TFS               `toml:"tfs"`
	Slack    Slack             `toml:"slack"`
	Channels map[string]string `toml:"channels"`
	Logging  Logging           `toml:"logging"`
}

// Routing is the subset of configuration that can be reloaded while serving.
type Routing struct {
	Channels       map[string]string
	DefaultChannel string
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		if err := decodeFile(resolvedPath, &cfg); err != nil {
			return nil, "", false, err
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// LoadRouting re-reads only the channel routing from the file at path. It is
// used to pick up routing edits without restarting the listener.
func LoadRouting(path string) (Routing, error) {
	cfg := Default()
	if err := decodeFile(path, &cfg); err != nil {
		return Routing{}, err
	}
	cfg.normalizeChannels()
	cfg.Slack.DefaultChannel = strings.TrimSpace(cfg.Slack.DefaultChannel)
	return cfg.Routing(), nil
}

// Routing returns the channel routing derived from the config.
func (c *Config) Routing() Routing {
	channels := make(map[string]string, len(c.Channels))
	for key, channel := range c.Channels {
		channels[key] = channel
	}
	return Routing{Channels: channels, DefaultChannel: c.Slack.DefaultChannel}
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tfsrelay.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return nil
	}
	if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.LogDir, err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
