package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete .skillos.yaml configuration file.
type Config struct {
	Version int           `yaml:"version" mapstructure:"version"`
	Gateway GatewayConfig `yaml:"gateway" mapstructure:"gateway"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Auth    AuthConfig    `yaml:"auth" mapstructure:"auth"`
	Session SessionConfig `yaml:"session" mapstructure:"session"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
}

// GatewayConfig locates the backend project.
type GatewayConfig struct {
	// URL is the project base URL, e.g. https://abc.supabase.co.
	URL string `yaml:"url" mapstructure:"url"`

	// AnonKey is the public API key. Prefer SKILLOS_GATEWAY_ANON_KEY over
	// committing it to a file.
	AnonKey string `yaml:"anon_key" mapstructure:"anon_key"`

	// MetricsTable holds one row per sample.
	MetricsTable string `yaml:"metrics_table" mapstructure:"metrics_table"`

	// RequestTimeout bounds each REST call.
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
}

// MetricsConfig controls the realtime metrics window.
type MetricsConfig struct {
	// Capacity is the number of samples kept in the window.
	Capacity int `yaml:"capacity" mapstructure:"capacity"`

	// PollInterval is how often the window is re-fetched while the live
	// subscription is down.
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`

	// RefreshInterval is how often the dashboard redraws its clock.
	RefreshInterval time.Duration `yaml:"refresh_interval" mapstructure:"refresh_interval"`
}

// AuthConfig controls the phone login flow.
type AuthConfig struct {
	// ResendCooldown is the wait before another code can be requested.
	ResendCooldown time.Duration `yaml:"resend_cooldown" mapstructure:"resend_cooldown"`
}

// SessionConfig controls where the signed-in session and TUI logs live.
type SessionConfig struct {
	// Path of the encrypted session file. Supports ~.
	Path string `yaml:"path" mapstructure:"path"`

	// LogFile receives log output while a TUI owns the terminal. Supports ~.
	LogFile string `yaml:"log_file" mapstructure:"log_file"`
}

// OutputConfig controls terminal output formatting.
type OutputConfig struct {
	// Color mode: "auto", "always", or "never".
	// "auto" disables color when output is piped.
	Color string `yaml:"color" mapstructure:"color"`
}

// Defaults used by DefaultConfig.
const (
	DefaultMetricsTable    = "system_stats"
	DefaultRequestTimeout  = 15 * time.Second
	DefaultCapacity        = 50
	DefaultPollInterval    = 10 * time.Second
	DefaultRefreshInterval = time.Second
	DefaultResendCooldown  = 60 * time.Second
	DefaultSessionPath     = "~/.config/skillos/session.yaml"
	DefaultLogFile         = "~/.config/skillos/skillos.log"
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Gateway: GatewayConfig{
			MetricsTable:   DefaultMetricsTable,
			RequestTimeout: DefaultRequestTimeout,
		},
		Metrics: MetricsConfig{
			Capacity:        DefaultCapacity,
			PollInterval:    DefaultPollInterval,
			RefreshInterval: DefaultRefreshInterval,
		},
		Auth: AuthConfig{
			ResendCooldown: DefaultResendCooldown,
		},
		Session: SessionConfig{
			Path:    DefaultSessionPath,
			LogFile: DefaultLogFile,
		},
		Output: OutputConfig{
			Color: "auto",
		},
	}
}
