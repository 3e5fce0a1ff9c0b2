package cli

import (
	"fmt"
	"strings"

	"github.com/creasty/defaults"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable read by the CLI.
const EnvPrefix = "LDAPEXPLORER_"

// Settings holds the global CLI options.
//
// Precedence (highest to lowest):
//  1. Command line flags
//  2. LDAPEXPLORER_* environment variables (LDAPEXPLORER_LOG_LEVEL -> log_level)
//  3. Defaults
type Settings struct {
	Config          string `koanf:"config"`
	LogLevel        string `koanf:"log_level" default:"warn"`
	LogFormat       string `koanf:"log_format" default:"console"`
	MetricsTextfile string `koanf:"metrics_textfile"`
	PageSize        uint32 `koanf:"page_size" default:"1000"`
	SkipTLSVerify   bool   `koanf:"skip_tls_verify"`
}

// flagKeys maps global flag names to settings keys.
var flagKeys = map[string]string{
	"config":           "config",
	"log-level":        "log_level",
	"log-format":       "log_format",
	"metrics-textfile": "metrics_textfile",
	"page-size":        "page_size",
	"skip-tls-verify":  "skip_tls_verify",
}

// LoadSettings resolves settings from defaults, the environment and the flags
// explicitly set on flags.
func LoadSettings(flags *pflag.FlagSet) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if flags != nil {
		overrides := map[string]any{}
		flags.Visit(func(f *pflag.Flag) {
			if key, ok := flagKeys[f.Name]; ok {
				overrides[key] = f.Value.String()
			}
		})
		for key, value := range overrides {
			if err := k.Set(key, value); err != nil {
				return nil, fmt.Errorf("failed to apply flag %s: %w", key, err)
			}
		}
	}

	settings := &Settings{}
	if err := defaults.Set(settings); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	if err := k.UnmarshalWithConf("", settings, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Validate checks option values that flags cannot constrain.
func (s *Settings) Validate() error {
	switch s.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be console or json", s.LogFormat)
	}
	if s.PageSize == 0 {
		return fmt.Errorf("page size must be at least 1")
	}
	return nil
}
