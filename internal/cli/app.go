package cli

import (
	"context"
	"strings"
	"time"

	"github.com/hackx/skillos/internal/auth"
	"github.com/hackx/skillos/internal/config"
	"github.com/hackx/skillos/internal/errors"
	"github.com/hackx/skillos/internal/gateway"
	"github.com/hackx/skillos/internal/logger"
	"github.com/hackx/skillos/internal/ui"
)

// app holds the config and gateway wiring shared by the commands that talk
// to the backend.
type app struct {
	cfg      *config.Config
	cfgPath  string
	client   *gateway.Client
	sessions *auth.SessionContext
	log      logger.Logger
}

// loadApp loads and validates config, connects the gateway client to the
// on-disk session store and restores any saved session. A session that
// cannot be restored leaves the app signed out.
func loadApp(ctx context.Context, configPath string) (*app, error) {
	cfg, path, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	ui.ApplyColorMode(cfg.Output.Color)

	if err := config.RequireGateway(cfg); err != nil {
		return nil, err
	}

	log := logger.NewEnvLogger("[skillos]")
	client, err := gateway.New(gateway.Options{
		URL:          cfg.Gateway.URL,
		AnonKey:      cfg.Gateway.AnonKey,
		MetricsTable: cfg.Gateway.MetricsTable,
		Timeout:      cfg.Gateway.RequestTimeout,
		Store:        gateway.NewFileStore(cfg.Session.Path),
		Logger:       logger.NewEnvLogger("[gateway]"),
	})
	if err != nil {
		return nil, err
	}

	sessions := auth.NewSessionContext(client, logger.NewEnvLogger("[auth]"))
	if _, err := sessions.Restore(ctx); err != nil {
		log.Debug("continuing signed out: %v", errors.Message(err))
	}

	return &app{
		cfg:      cfg,
		cfgPath:  path,
		client:   client,
		sessions: sessions,
		log:      log,
	}, nil
}

// Close stops session change tracking.
func (a *app) Close() {
	a.sessions.Close()
}

// requireSession returns the active session or an AUTH error telling the
// user to sign in.
func (a *app) requireSession() (*auth.Session, error) {
	session := a.sessions.Current()
	if session == nil {
		return nil, errors.New(errors.ErrAuth, notSignedInMessage,
			"Run 'skillos login' to sign in with your phone number")
	}
	return session, nil
}

// newMachine builds a login machine using the configured resend cooldown.
func (a *app) newMachine() *auth.Machine {
	return auth.NewMachine(a.sessions, auth.MachineOptions{
		ResendCooldown: int(a.cfg.Auth.ResendCooldown / time.Second),
		Logger:         logger.NewEnvLogger("[auth]"),
	})
}

// gatewayHost is the gateway shown to users, without the scheme.
func (a *app) gatewayHost() string {
	u := strings.TrimPrefix(a.cfg.Gateway.URL, "https://")
	return strings.TrimPrefix(u, "http://")
}

// redirectLogs sends log output to the configured file while a TUI owns
// the terminal, or discards it when the file cannot be opened.
func redirectLogs(path string) func() {
	restore, err := logger.RedirectToFile(path)
	if err != nil {
		return logger.Discard()
	}
	return restore
}
