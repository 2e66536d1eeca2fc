package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"tfsrelay/internal/config"
	"tfsrelay/internal/services/tfs"
)

type commandContext struct {
	configFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

// configFile reports the resolved configuration path and whether it exists.
// Only meaningful after ensureConfig succeeded.
func (c *commandContext) configFile() (string, bool) {
	return c.configPath, c.configExists
}

func tfsConfig(cfg *config.Config) tfs.Config {
	return tfs.Config{
		CollectionURL:  cfg.TFS.CollectionURL,
		Username:       cfg.TFS.Username,
		Password:       cfg.TFS.Password,
		TimeoutSeconds: cfg.TFS.RequestTimeout,
		TypeAliases:    cfg.TFS.TypeAliases,
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
