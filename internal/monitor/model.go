package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hackx/skillos/internal/logger"
	"github.com/hackx/skillos/internal/metrics"
	"github.com/hackx/skillos/internal/ui"
)

// LayoutMode represents the responsive layout mode based on terminal size.
type LayoutMode int

const (
	// LayoutMinimal is for terminals < 80 columns: gauges and a one-row sparkline
	LayoutMinimal LayoutMode = iota
	// LayoutCompact is for terminals 80-120 columns: braille charts
	LayoutCompact
	// LayoutWide is for terminals 120+ columns: taller charts
	LayoutWide
)

// Width breakpoints for layout modes
const (
	BreakpointCompact = 80
	BreakpointWide    = 120
)

// Height breakpoints for layout adjustments
const (
	HeightMinimal  = 24
	HeightStandard = 40
)

const defaultWidth = 80

// Feed is the metrics source the dashboard renders. *metrics.Feed
// satisfies it.
type Feed interface {
	Start(ctx context.Context) error
	Refresh(ctx context.Context) error
	Snapshot() metrics.State
	Updates() <-chan struct{}
	Close() error
}

// Options configures the dashboard model.
type Options struct {
	// Phone is shown in the header to identify the signed-in user.
	Phone string

	// Interval drives the header clock (time since last sync).
	Interval time.Duration

	// PollInterval is shown in the disconnected banner.
	PollInterval time.Duration

	Logger logger.Logger

	// Now is the clock for the header (time.Now if nil).
	Now func() time.Time
}

// Model is the Bubble Tea model for the metrics dashboard.
type Model struct {
	ctx  context.Context
	feed Feed
	opts Options
	log  logger.Logger

	state      metrics.State
	now        time.Time
	width      int
	height     int
	frame      int
	quitting   bool
	showHelp   bool
	showTable  bool
	refreshing bool
	refreshErr error

	table table.Model
}

// tickMsg signals a periodic clock redraw.
type tickMsg time.Time

// updateMsg signals that the feed state changed.
type updateMsg struct{}

// feedClosedMsg signals that the feed's update channel closed.
type feedClosedMsg struct{}

// startedMsg carries the result of the initial fetch and subscribe.
type startedMsg struct{ err error }

// refreshedMsg carries the result of a user-requested refresh.
type refreshedMsg struct{ err error }

// tableColumns are the columns of the data table view.
var tableColumns = []ui.TableColumn{
	{Title: "Time", Width: 10},
	{Title: "Load", Width: 8},
	{Title: "Energy", Width: 8},
}

// NewModel creates a dashboard over feed. The feed is started by Init and
// closed when the user quits.
func NewModel(ctx context.Context, feed Feed, opts Options) Model {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = metrics.DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return Model{
		ctx:   ctx,
		feed:  feed,
		opts:  opts,
		log:   opts.Logger,
		state: feed.Snapshot(),
		now:   opts.Now(),
		table: ui.NewTable(tableColumns, nil),
	}
}

// Init starts the feed, listens for its updates and starts the clock.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.startCmd(),
		m.waitCmd(),
		m.tickCmd(),
	)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if handled, cmd := m.HandleKeyMsg(msg); handled {
			return m, cmd
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.syncTable()
		return m, nil

	case startedMsg:
		if msg.err != nil {
			m.log.Warn("metrics feed failed to start: %v", msg.err)
			m.refreshErr = msg.err
		}
		m.setState(m.feed.Snapshot())
		return m, nil

	case updateMsg:
		m.setState(m.feed.Snapshot())
		return m, m.waitCmd()

	case feedClosedMsg:
		return m, nil

	case refreshedMsg:
		m.refreshing = false
		m.refreshErr = msg.err
		m.setState(m.feed.Snapshot())
		return m, nil

	case tickMsg:
		m.now = time.Time(msg)
		m.frame++
		return m, m.tickCmd()
	}

	return m, nil
}

// View renders the current model state.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}
	return m.renderDashboard()
}

// State returns the last feed snapshot the model rendered.
func (m Model) State() metrics.State {
	return m.state
}

// LayoutMode returns the layout for the current terminal width.
func (m Model) LayoutMode() LayoutMode {
	switch {
	case m.width > 0 && m.width < BreakpointCompact:
		return LayoutMinimal
	case m.width >= BreakpointWide && m.height >= HeightStandard:
		return LayoutWide
	default:
		return LayoutCompact
	}
}

// SecondsSinceSync returns how many seconds have passed since the feed last
// changed, or -1 if it never has.
func (m Model) SecondsSinceSync() int {
	if m.state.UpdatedAt.IsZero() {
		return -1
	}
	d := m.now.Sub(m.state.UpdatedAt)
	if d < 0 {
		return 0
	}
	return int(d.Seconds())
}

func (m *Model) setState(st metrics.State) {
	m.state = st
	m.syncTable()
}

// syncTable rebuilds the data table rows, newest sample first.
func (m *Model) syncTable() {
	samples := m.state.Samples
	rows := make([]table.Row, 0, len(samples))
	for i := len(samples) - 1; i >= 0; i-- {
		s := samples[i]
		rows = append(rows, table.Row{
			formatClock(s),
			fmt.Sprintf("%d%%", s.CognitiveLoad),
			fmt.Sprintf("%d%%", s.EnergyLevel),
		})
	}
	m.table.SetRows(rows)
	m.table.SetHeight(m.tableHeight(len(rows)))
}

// tableHeight fits the table below the charts, header row included.
func (m Model) tableHeight(rows int) int {
	maxRows := 10
	if m.height >= HeightStandard {
		maxRows = 20
	}
	if rows < maxRows {
		maxRows = rows
	}
	return maxRows + 1
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.opts.Interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) startCmd() tea.Cmd {
	ctx, feed := m.ctx, m.feed
	return func() tea.Msg {
		return startedMsg{err: feed.Start(ctx)}
	}
}

// waitCmd blocks until the feed signals a change.
func (m Model) waitCmd() tea.Cmd {
	updates := m.feed.Updates()
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return feedClosedMsg{}
		}
		return updateMsg{}
	}
}

func (m Model) refreshCmd() tea.Cmd {
	ctx, feed := m.ctx, m.feed
	return func() tea.Msg {
		return refreshedMsg{err: feed.Refresh(ctx)}
	}
}

// closeCmd tears down the feed before the program exits.
func (m Model) closeCmd() tea.Cmd {
	feed, log := m.feed, m.log
	return func() tea.Msg {
		if err := feed.Close(); err != nil {
			log.Warn("closing metrics feed: %v", err)
		}
		return nil
	}
}

// formatClock renders a sample timestamp as HH:MM:SS local time.
func formatClock(s metrics.Sample) string {
	return s.Time().Format("15:04:05")
}
