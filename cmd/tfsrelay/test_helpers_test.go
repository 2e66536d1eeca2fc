package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	homeDir    string
	logDir     string
	configPath string
}

type testConfig struct {
	collectionURL string
	username      string
	password      string
	webhook       string
	channels      map[string]string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	for _, key := range []string{"TFS_COLLECTION_URL", "TFS_USERNAME", "TFS_PASSWORD", "SLACK_WEBHOOK_URL", "TFSRELAY_API_TOKEN"} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
	t.Chdir(base)

	return &cliTestEnv{
		homeDir:    homeDir,
		logDir:     filepath.Join(base, "logs"),
		configPath: filepath.Join(homeDir, ".config", "tfsrelay", "config.toml"),
	}
}

func (env *cliTestEnv) writeConfig(t *testing.T, cfg testConfig) {
	t.Helper()
	if cfg.collectionURL == "" {
		cfg.collectionURL = "https://tfs.example.com/tfs/DefaultCollection"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[paths]\nlog_dir = %q\napi_bind = \"127.0.0.1:0\"\n\n", env.logDir)
	fmt.Fprintf(&b, "[tfs]\ncollection_url = %q\nusername = %q\npassword = %q\n\n", cfg.collectionURL, cfg.username, cfg.password)
	fmt.Fprintf(&b, "[slack]\nwebhook_url = %q\nrate_per_sec = 50\n\n", cfg.webhook)
	b.WriteString("[channels]\n")
	for area, channel := range cfg.channels {
		fmt.Fprintf(&b, "'%s' = %q\n", area, channel)
	}

	if err := os.MkdirAll(filepath.Dir(env.configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(env.configPath, []byte(b.String()), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireNotContains(t *testing.T, output, substr string) {
	t.Helper()
	if strings.Contains(output, substr) {
		t.Fatalf("expected %q not to contain %q", output, substr)
	}
}
