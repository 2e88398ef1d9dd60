package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/hackx/skillos/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = ".skillos.yaml"
	// GlobalConfigDir is the directory for global config.
	GlobalConfigDir = ".config/skillos"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. SKILLOS_GATEWAY_URL.
	EnvPrefix = "SKILLOS"
)

// Load reads config from the specified path. An empty path loads defaults
// and environment overrides only.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, errors.WrapWithCode(err, errors.ErrConfig,
					"Config file not found",
					"Run 'skillos init' to create a config file, or specify one with --config")
			}
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check the file exists and is valid YAML")
		}
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. .skillos.yaml in current directory
// 3. ~/.config/skillos/config.yaml (global defaults)
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		explicit = ExpandTilde(explicit)
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	localConfig := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(localConfig); err == nil {
		return localConfig, nil
	}

	if global := GlobalConfigPath(); global != "" {
		if _, err := os.Stat(global); err == nil {
			return global, nil
		}
	}

	return "", nil
}

// GlobalConfigPath returns ~/.config/skillos/config.yaml, or empty if the
// home directory is unknown.
func GlobalConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
}

// LoadOrDefault finds and loads the config, falling back to defaults (plus
// environment overrides) when no file exists.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// setDefaults registers every key so AutomaticEnv can override keys absent
// from the file.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("gateway.url", d.Gateway.URL)
	v.SetDefault("gateway.anon_key", d.Gateway.AnonKey)
	v.SetDefault("gateway.metrics_table", d.Gateway.MetricsTable)
	v.SetDefault("gateway.request_timeout", d.Gateway.RequestTimeout.String())
	v.SetDefault("metrics.capacity", d.Metrics.Capacity)
	v.SetDefault("metrics.poll_interval", d.Metrics.PollInterval.String())
	v.SetDefault("metrics.refresh_interval", d.Metrics.RefreshInterval.String())
	v.SetDefault("auth.resend_cooldown", d.Auth.ResendCooldown.String())
	v.SetDefault("session.path", d.Session.Path)
	v.SetDefault("session.log_file", d.Session.LogFile)
	v.SetDefault("output.color", d.Output.Color)
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		where := "your environment"
		if path != "" {
			where = path
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+where)
	}

	cfg.Gateway.URL = strings.TrimRight(strings.TrimSpace(cfg.Gateway.URL), "/")
	cfg.Session.Path = ExpandTilde(cfg.Session.Path)
	cfg.Session.LogFile = ExpandTilde(cfg.Session.LogFile)

	return cfg, nil
}
