package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hackx/skillos/internal/errors"
)

// Validate checks the config for errors and returns structured error messages.
// Gateway credentials are not required here; RequireGateway checks them for
// commands that talk to the backend.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but skillos only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade skillos to the latest release")
	}

	if cfg.Gateway.URL != "" {
		if err := validateURL(cfg.Gateway.URL); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'gateway' section in your .skillos.yaml.")
		}
	}
	if cfg.Gateway.RequestTimeout <= 0 {
		return errors.New(errors.ErrConfig,
			"gateway.request_timeout must be positive",
			"Use a duration like 15s")
	}

	if err := validateMetrics(cfg.Metrics); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'metrics' section in your .skillos.yaml.")
	}

	if err := validateAuth(cfg.Auth); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'auth' section in your .skillos.yaml.")
	}

	if err := validateOutput(cfg.Output); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'output' section in your .skillos.yaml.")
	}

	return nil
}

// RequireGateway checks that the gateway URL and key are present.
func RequireGateway(cfg *Config) error {
	if cfg.Gateway.URL == "" {
		return errors.New(errors.ErrConfig,
			"Gateway URL is not set",
			"Run 'skillos init', or set SKILLOS_GATEWAY_URL")
	}
	if cfg.Gateway.AnonKey == "" {
		return errors.New(errors.ErrConfig,
			"Gateway anon key is not set",
			"Run 'skillos init', or set SKILLOS_GATEWAY_ANON_KEY")
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("gateway.url '%s' isn't a valid URL", raw)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("gateway.url '%s' must use http or https", raw)
	}
	return nil
}

func validateMetrics(m MetricsConfig) error {
	if m.Capacity < 1 || m.Capacity > 10000 {
		return fmt.Errorf("metrics.capacity %d is out of range - use 1 to 10000", m.Capacity)
	}
	if m.PollInterval < time.Second {
		return fmt.Errorf("metrics.poll_interval %s is too short - use at least 1s", m.PollInterval)
	}
	if m.RefreshInterval < 100*time.Millisecond {
		return fmt.Errorf("metrics.refresh_interval %s is too short - use at least 100ms", m.RefreshInterval)
	}
	return nil
}

func validateAuth(a AuthConfig) error {
	if a.ResendCooldown < time.Second {
		return fmt.Errorf("auth.resend_cooldown %s is too short - use at least 1s", a.ResendCooldown)
	}
	if a.ResendCooldown%time.Second != 0 {
		return fmt.Errorf("auth.resend_cooldown %s must be whole seconds", a.ResendCooldown)
	}
	return nil
}

// validateOutput checks output configuration.
func validateOutput(out OutputConfig) error {
	switch strings.ToLower(out.Color) {
	case "auto", "always", "never":
		return nil
	default:
		return fmt.Errorf("output.color '%s' isn't valid - use 'auto', 'always', or 'never'", out.Color)
	}
}
