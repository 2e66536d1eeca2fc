package config

const (
	defaultConfigPath        = "~/.config/tfsrelay/config.toml"
	defaultLogDir            = "~/.local/share/tfsrelay/logs"
	defaultAPIBind           = "0.0.0.0:8088"
	defaultTFSRequestTimeout = 15
	defaultSlackUsername     = "TFS"
	defaultSlackTimeout      = 10
	defaultSlackRatePerSec   = 1
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// defaultTypeAliases shortens work item type names for chat output.
var defaultTypeAliases = map[string]string{
	"Product Backlog Item": "PBI",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		TFS: TFS{
			RequestTimeout: defaultTFSRequestTimeout,
		},
		Slack: Slack{
			Username:       defaultSlackUsername,
			RequestTimeout: defaultSlackTimeout,
			RatePerSec:     defaultSlackRatePerSec,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
