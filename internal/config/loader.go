package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment override: SQLBENCH_BACKEND_URL -> backend_url.
const EnvPrefix = "SQLBENCH_"

// secretEnv are SQLBENCH_ variables that are read directly, never as config keys.
var secretEnv = map[string]bool{"token": true}

// Load builds the effective configuration.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
// cfgFile may be empty, in which case the XDG config file is used when present.
// It returns the config and the config file actually read ("" when none).
func Load(cfgFile string, flags *pflag.FlagSet) (Config, string, error) {
	k := koanf.New(".")

	d := Defaults()
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"backend_url":     d.BackendURL,
		"log_level":       d.LogLevel,
		"log_format":      d.LogFormat,
		"request_timeout": d.RequestTimeout.String(),
		"query_timeout":   d.QueryTimeout.String(),
		"max_rows":        d.MaxRows,
		"id_scheme":       d.IDScheme,
		"listen":          d.Listen,
	}, "."), nil); err != nil {
		return Config{}, "", fmt.Errorf("failed to load defaults: %w", err)
	}

	used := cfgFile
	if used == "" {
		if p, err := DefaultPath(); err == nil {
			if _, err := os.Stat(p); err == nil {
				used = p
			}
		}
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return Config{}, "", fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		if secretEnv[key] {
			return ""
		}
		return key
	}), nil); err != nil {
		return Config{}, "", fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only flags the user actually set override lower layers.
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if key == "config" {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return Config{}, "", fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, "", fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.IDScheme = strings.ToLower(strings.TrimSpace(cfg.IDScheme))
	if err := cfg.Validate(); err != nil {
		return Config{}, used, err
	}
	return cfg, used, nil
}
