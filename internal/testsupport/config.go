package testsupport

import (
	"path/filepath"
	"testing"

	"tfsrelay/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with a unique temp log directory per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.TFS.CollectionURL = "https://tfs.example.com/tfs/DefaultCollection"
	cfgVal.TFS.TypeAliases = map[string]string{"Product Backlog Item": "PBI"}
	cfgVal.Channels = map[string]string{}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithCollectionURL points the test config at a fake TFS collection.
func WithCollectionURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TFS.CollectionURL = url
	}
}

// WithWebhook sets the Slack webhook URL on the test config.
func WithWebhook(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Slack.WebhookURL = url
	}
}

// WithChannel routes an area path to a Slack channel.
func WithChannel(areaPath, channel string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Channels[config.ChannelKeyPrefix+areaPath] = channel
	}
}

// WithAPIToken requires the given token on inbound requests.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
