package cli

import (
	"context"
	stderrors "errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hackx/skillos/internal/errors"
	"github.com/hackx/skillos/internal/logger"
	"github.com/hackx/skillos/internal/metrics"
	"github.com/hackx/skillos/internal/monitor"
)

// MonitorOptions holds options for the monitor command.
type MonitorOptions struct {
	Interval time.Duration // clock refresh, config value if zero
	Capacity int           // window size, config value if zero
}

// monitorSetup is everything the dashboard needs, built before the TUI
// takes over the terminal.
type monitorSetup struct {
	feed  *metrics.Feed
	model monitor.Model
}

// newMonitorSetup builds the feed and dashboard model for the signed-in
// user.
func newMonitorSetup(ctx context.Context, a *app, opts MonitorOptions) (*monitorSetup, error) {
	session, err := a.requireSession()
	if err != nil {
		return nil, err
	}

	capacity := a.cfg.Metrics.Capacity
	if opts.Capacity > 0 {
		capacity = opts.Capacity
	}
	interval := a.cfg.Metrics.RefreshInterval
	if opts.Interval > 0 {
		interval = opts.Interval
	}

	feed := metrics.NewFeed(a.client, session.User.ID, metrics.Options{
		Capacity:     capacity,
		PollInterval: a.cfg.Metrics.PollInterval,
		Logger:       logger.NewEnvLogger("[feed]"),
	})
	model := monitor.NewModel(ctx, feed, monitor.Options{
		Phone:        session.User.Phone,
		Interval:     interval,
		PollInterval: a.cfg.Metrics.PollInterval,
		Logger:       logger.NewEnvLogger("[monitor]"),
	})
	return &monitorSetup{feed: feed, model: model}, nil
}

// monitorCommand starts the TUI dashboard.
func monitorCommand(ctx context.Context, configPath string, opts MonitorOptions) error {
	a, err := loadApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	setup, err := newMonitorSetup(ctx, a, opts)
	if err != nil {
		return err
	}
	defer setup.feed.Close()

	// Log lines would tear the alt screen
	restore := redirectLogs(a.cfg.Session.LogFile)
	defer restore()

	p := tea.NewProgram(setup.model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !stderrors.Is(err, tea.ErrProgramKilled) {
		return errors.WrapWithCode(err, errors.ErrConnection,
			"Dashboard stopped unexpectedly",
			"Check "+a.cfg.Session.LogFile+" for details")
	}
	return nil
}
