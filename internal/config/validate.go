package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTFS(); err != nil {
		return err
	}
	if err := c.validateSlack(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTFS() error {
	if c.TFS.CollectionURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("tfs.collection_url is required. Set TFS_COLLECTION_URL env var or edit %s (create with 'tfsrelay config init')", defaultPath)
	}
	if err := validateHTTPURL("tfs.collection_url", c.TFS.CollectionURL); err != nil {
		return err
	}
	if c.TFS.Username != "" && c.TFS.Password == "" {
		return errors.New("tfs.password must be set when tfs.username is set (or set TFS_PASSWORD)")
	}
	if c.TFS.RequestTimeout <= 0 {
		return errors.New("tfs.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateSlack() error {
	if c.Slack.WebhookURL != "" {
		if err := validateHTTPURL("slack.webhook_url", c.Slack.WebhookURL); err != nil {
			return err
		}
	}
	if err := ensurePositiveMap(map[string]int{
		"slack.request_timeout": c.Slack.RequestTimeout,
		"slack.rate_per_sec":    c.Slack.RatePerSec,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func validateHTTPURL(key, value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if (scheme != "http" && scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", key, value)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
