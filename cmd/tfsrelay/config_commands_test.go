package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// The sample config ships a placeholder collection URL and validates as is.
	out, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+target)
	requireContains(t, out, "Configuration valid")

	env.writeConfig(t, testConfig{})
	out, _, err = runCLI(t, []string{"config", "validate"}, "")
	if err != nil {
		t.Fatalf("config validate default path: %v", err)
	}
	requireContains(t, out, env.configPath)
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeConfig(t, testConfig{})

	if _, _, err := runCLI(t, []string{"config", "init"}, ""); err == nil {
		t.Fatal("expected init to refuse existing config")
	}
	out, _, err := runCLI(t, []string{"config", "init", "--overwrite"}, "")
	if err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
	requireContains(t, out, env.configPath)
}

func TestConfigValidateReportsMissingCollection(t *testing.T) {
	setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"config", "validate"}, "")
	if err == nil {
		t.Fatal("expected validation failure without tfs.collection_url")
	}
	requireContains(t, err.Error(), "tfs.collection_url is required")
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeConfig(t, testConfig{
		username: `CONTOSO\svc`,
		password: "hunter2secret",
		webhook:  "https://hooks.slack.com/services/T000/B000/XXXXXXXX",
		channels: map[string]string{`\Proj`: "#proj"},
	})

	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireNotContains(t, out, "hunter2secret")
	requireNotContains(t, out, "XXXXXXXX")
	requireContains(t, out, "hu******et")
	requireContains(t, out, `channel_\Proj`)
	requireContains(t, out, "#proj")
	requireContains(t, out, "Product Backlog Item => PBI")
}
