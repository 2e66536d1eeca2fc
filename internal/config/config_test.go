package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pelletier/go-toml/v2"

	"tfsrelay/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"TFS_COLLECTION_URL", "TFS_USERNAME", "TFS_PASSWORD", "SLACK_WEBHOOK_URL", "TFSRELAY_API_TOKEN"} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

func TestLoadDefaultConfigUsesEnvAndExpandsPaths(t *testing.T) {
	clearEnv(t)
	t.Setenv("TFS_COLLECTION_URL", "https://tfs.example.com/tfs/DefaultCollection/")
	t.Setenv("TFS_USERNAME", "svc-relay")
	t.Setenv("TFS_PASSWORD", "s3cret")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.com/services/T/B/X")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantLogDir := filepath.Join(tempHome, ".local", "share", "tfsrelay", "logs")
	if cfg.Paths.LogDir != wantLogDir {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogDir)
	}
	if cfg.Paths.APIBind != "0.0.0.0:8088" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.TFS.CollectionURL != "https://tfs.example.com/tfs/DefaultCollection" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.TFS.CollectionURL)
	}
	if cfg.TFS.Username != "svc-relay" || cfg.TFS.Password != "s3cret" {
		t.Fatalf("expected credentials from env, got %q/%q", cfg.TFS.Username, cfg.TFS.Password)
	}
	if cfg.Slack.WebhookURL == "" {
		t.Fatal("expected webhook url from env")
	}
	if cfg.TFS.TypeAliases["Product Backlog Item"] != "PBI" {
		t.Fatalf("expected default PBI alias, got %v", cfg.TFS.TypeAliases)
	}
	if cfg.Slack.RatePerSec != config.Default().Slack.RatePerSec {
		t.Fatalf("unexpected rate: %d", cfg.Slack.RatePerSec)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	if info, err := os.Stat(cfg.Paths.LogDir); err != nil || !info.IsDir() {
		t.Fatalf("expected log dir to exist: %v", err)
	}
}

func TestLoadRequiresCollectionURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	_, _, _, err := config.Load("")
	if err == nil {
		t.Fatal("expected error without collection url")
	}
	if !strings.Contains(err.Error(), "tfs.collection_url") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "tfsrelay.toml")

	type payload struct {
		TFS struct {
			CollectionURL string            `toml:"collection_url"`
			Username      string            `toml:"username"`
			Password      string            `toml:"password"`
			TypeAliases   map[string]string `toml:"type_aliases"`
		} `toml:"tfs"`
		Slack struct {
			DefaultChannel string `toml:"default_channel"`
			RatePerSec     int    `toml:"rate_per_sec"`
		} `toml:"slack"`
		Channels map[string]string `toml:"channels"`
		Logging  struct {
			Format string `toml:"format"`
			Level  string `toml:"level"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.TFS.CollectionURL = "http://tfs.local:8080/tfs/Main"
	custom.TFS.Username = "relay"
	custom.TFS.Password = "pw"
	custom.TFS.TypeAliases = map[string]string{"User Story": "Story"}
	custom.Slack.DefaultChannel = " #general "
	custom.Slack.RatePerSec = 5
	custom.Channels = map[string]string{
		`\Proj`:               "#proj",
		`channel_\Proj\Team`: "#team",
		`\Empty`:              " ",
	}
	custom.Logging.Format = "JSON"
	custom.Logging.Level = "DEBUG"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom path to be used, got %q exists=%v", resolved, exists)
	}

	wantChannels := map[string]string{
		`channel_\Proj`:       "#proj",
		`channel_\Proj\Team`: "#team",
	}
	if diff := cmp.Diff(wantChannels, cfg.Channels); diff != "" {
		t.Fatalf("channels mismatch (-want +got):\n%s", diff)
	}
	wantAliases := map[string]string{"Product Backlog Item": "PBI", "User Story": "Story"}
	if diff := cmp.Diff(wantAliases, cfg.TFS.TypeAliases); diff != "" {
		t.Fatalf("aliases mismatch (-want +got):\n%s", diff)
	}
	if cfg.Slack.DefaultChannel != "#general" {
		t.Fatalf("unexpected default channel %q", cfg.Slack.DefaultChannel)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}

	routing, err := config.LoadRouting(configPath)
	if err != nil {
		t.Fatalf("LoadRouting returned error: %v", err)
	}
	if diff := cmp.Diff(wantChannels, routing.Channels); diff != "" {
		t.Fatalf("routing mismatch (-want +got):\n%s", diff)
	}
	if routing.DefaultChannel != "#general" {
		t.Fatalf("unexpected routing default channel %q", routing.DefaultChannel)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"relative collection url", func(c *config.Config) { c.TFS.CollectionURL = "tfs/DefaultCollection" }, "tfs.collection_url"},
		{"username without password", func(c *config.Config) { c.TFS.Username = "svc" }, "tfs.password"},
		{"bad webhook", func(c *config.Config) { c.Slack.WebhookURL = "ftp://hooks" }, "slack.webhook_url"},
		{"zero rate", func(c *config.Config) { c.Slack.RatePerSec = 0 }, "slack.rate_per_sec"},
		{"bad level", func(c *config.Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.TFS.CollectionURL = "https://tfs.example.com/tfs/DefaultCollection"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error %q", tc.want, err.Error())
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	t.Setenv("HOME", t.TempDir())

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Channels[`channel_\MyProject`] != "#myproject" {
		t.Fatalf("expected sample channel route, got %v", cfg.Channels)
	}
}
