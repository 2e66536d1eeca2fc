package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTFS()
	c.normalizeSlack()
	c.normalizeChannels()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("TFSRELAY_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeTFS() {
	c.TFS.CollectionURL = strings.TrimRight(strings.TrimSpace(c.TFS.CollectionURL), "/")
	if c.TFS.CollectionURL == "" {
		if value, ok := os.LookupEnv("TFS_COLLECTION_URL"); ok {
			c.TFS.CollectionURL = strings.TrimRight(strings.TrimSpace(value), "/")
		}
	}
	c.TFS.Username = strings.TrimSpace(c.TFS.Username)
	if c.TFS.Username == "" {
		if value, ok := os.LookupEnv("TFS_USERNAME"); ok {
			c.TFS.Username = strings.TrimSpace(value)
		}
	}
	// Passwords are used verbatim; only the env fallback is applied.
	if c.TFS.Password == "" {
		if value, ok := os.LookupEnv("TFS_PASSWORD"); ok {
			c.TFS.Password = value
		}
	}
	if c.TFS.RequestTimeout <= 0 {
		c.TFS.RequestTimeout = defaultTFSRequestTimeout
	}

	aliases := make(map[string]string, len(defaultTypeAliases)+len(c.TFS.TypeAliases))
	for from, to := range defaultTypeAliases {
		aliases[from] = to
	}
	for from, to := range c.TFS.TypeAliases {
		from = strings.TrimSpace(from)
		if from == "" {
			continue
		}
		aliases[from] = strings.TrimSpace(to)
	}
	c.TFS.TypeAliases = aliases
}

func (c *Config) normalizeSlack() {
	c.Slack.WebhookURL = strings.TrimSpace(c.Slack.WebhookURL)
	if c.Slack.WebhookURL == "" {
		if value, ok := os.LookupEnv("SLACK_WEBHOOK_URL"); ok {
			c.Slack.WebhookURL = strings.TrimSpace(value)
		}
	}
	c.Slack.Username = strings.TrimSpace(c.Slack.Username)
	c.Slack.IconEmoji = strings.TrimSpace(c.Slack.IconEmoji)
	c.Slack.DefaultChannel = strings.TrimSpace(c.Slack.DefaultChannel)
	if c.Slack.RequestTimeout <= 0 {
		c.Slack.RequestTimeout = defaultSlackTimeout
	}
	if c.Slack.RatePerSec <= 0 {
		c.Slack.RatePerSec = defaultSlackRatePerSec
	}
}

// normalizeChannels accepts keys written either as the bare area path or with
// the channel_ prefix and stores them prefixed.
func (c *Config) normalizeChannels() {
	channels := make(map[string]string, len(c.Channels))
	for key, channel := range c.Channels {
		key = strings.TrimSpace(key)
		channel = strings.TrimSpace(channel)
		if key == "" || channel == "" {
			continue
		}
		if !strings.HasPrefix(key, ChannelKeyPrefix) {
			key = ChannelKeyPrefix + key
		}
		channels[key] = channel
	}
	c.Channels = channels
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
