package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hackx/skillos/internal/errors"
	gwtesting "github.com/hackx/skillos/internal/gateway/testing"
	"github.com/hackx/skillos/internal/logger"
	"github.com/hackx/skillos/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFeed is a scripted Feed for driving the model directly.
type stubFeed struct {
	mu         sync.Mutex
	state      metrics.State
	updates    chan struct{}
	startErr   error
	refreshErr error
	starts     int
	refreshes  int
	closes     int
}

func newStubFeed(st metrics.State) *stubFeed {
	return &stubFeed{state: st, updates: make(chan struct{}, 1)}
}

func (f *stubFeed) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	return f.startErr
}

func (f *stubFeed) Refresh(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return f.refreshErr
}

func (f *stubFeed) Snapshot() metrics.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *stubFeed) Updates() <-chan struct{} {
	return f.updates
}

func (f *stubFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *stubFeed) set(st metrics.State) {
	f.mu.Lock()
	f.state = st
	f.mu.Unlock()
}

func sample(ts int64, load, energy int) metrics.Sample {
	return metrics.Sample{Timestamp: ts, CognitiveLoad: load, EnergyLevel: energy}
}

func stateWith(status metrics.Status, samples ...metrics.Sample) metrics.State {
	w := metrics.NewWindow(metrics.DefaultCapacity)
	w.Replace(samples)
	st := metrics.State{
		Samples:  w.Samples(),
		Status:   status,
		Series:   w.Series(),
		Capacity: w.Capacity(),
	}
	if latest, ok := w.Latest(); ok {
		st.Latest = &latest
	}
	return st
}

func newTestModel(feed Feed) Model {
	return NewModel(context.Background(), feed, Options{
		Phone:  "+15551234567",
		Logger: logger.Noop(),
	})
}

func TestNewModel(t *testing.T) {
	feed := newStubFeed(stateWith(metrics.StatusConnecting))
	m := newTestModel(feed)

	assert.Equal(t, time.Second, m.opts.Interval)
	assert.Equal(t, metrics.DefaultPollInterval, m.opts.PollInterval)
	assert.Equal(t, metrics.StatusConnecting, m.State().Status)
	assert.False(t, m.showHelp)
	assert.False(t, m.showTable)
	assert.NotNil(t, m.Init())
}

func TestModel_Started(t *testing.T) {
	feed := newStubFeed(stateWith(metrics.StatusConnecting))
	m := newTestModel(feed)

	msg := m.startCmd()()
	require.IsType(t, startedMsg{}, msg)
	assert.Equal(t, 1, feed.starts)

	feed.set(stateWith(metrics.StatusConnected, sample(100, 40, 60)))
	updated, cmd := m.Update(msg)
	m = updated.(Model)
	assert.Nil(t, cmd)
	assert.Equal(t, metrics.StatusConnected, m.State().Status)
	require.NotNil(t, m.State().Latest)
	assert.Nil(t, m.refreshErr)
}

func TestModel_StartedWithError(t *testing.T) {
	feed := newStubFeed(stateWith(metrics.StatusConnecting))
	feed.startErr = errors.New(errors.ErrConnection, "Metrics feed already closed", "")
	m := newTestModel(feed)

	updated, _ := m.Update(m.startCmd()())
	m = updated.(Model)
	assert.True(t, errors.IsCode(m.refreshErr, errors.ErrConnection))
}

func TestModel_UpdateMsg(t *testing.T) {
	feed := newStubFeed(stateWith(metrics.StatusConnecting))
	m := newTestModel(feed)

	feed.set(stateWith(metrics.StatusConnected, sample(100, 40, 60), sample(101, 45, 55)))
	updated, cmd := m.Update(updateMsg{})
	m = updated.(Model)

	assert.Len(t, m.State().Samples, 2)
	require.NotNil(t, cmd, "keeps listening for updates")

	// The returned command waits on the next signal
	feed.updates <- struct{}{}
	assert.Equal(t, updateMsg{}, cmd())
}

func TestModel_WaitCmdClosed(t *testing.T) {
	feed := newStubFeed(stateWith(metrics.StatusConnecting))
	m := newTestModel(feed)

	close(feed.updates)
	msg := m.waitCmd()()
	assert.Equal(t, feedClosedMsg{}, msg)

	_, cmd := m.Update(msg)
	assert.Nil(t, cmd, "stops listening once the feed is closed")
}

func TestModel_Refreshed(t *testing.T) {
	feed := newStubFeed(stateWith(metrics.StatusDisconnected))
	m := newTestModel(feed)
	m.refreshing = true

	fetchErr := errors.New(errors.ErrFetch, "Failed to load metrics", "")
	updated, _ := m.Update(refreshedMsg{err: fetchErr})
	m = updated.(Model)
	assert.False(t, m.refreshing)
	assert.Equal(t, fetchErr, m.refreshErr)

	updated, _ = m.Update(refreshedMsg{})
	m = updated.(Model)
	assert.Nil(t, m.refreshErr, "a successful refresh clears the error")
}

func TestModel_Tick(t *testing.T) {
	m := newTestModel(newStubFeed(stateWith(metrics.StatusConnecting)))
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	updated, cmd := m.Update(tickMsg(at))
	m = updated.(Model)
	assert.Equal(t, at, m.now)
	assert.Equal(t, 1, m.frame)
	assert.NotNil(t, cmd, "clock keeps ticking")
}

func TestModel_WindowSize(t *testing.T) {
	m := newTestModel(newStubFeed(stateWith(metrics.StatusConnected)))

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 130, Height: 50})
	m = updated.(Model)
	assert.Equal(t, 130, m.width)
	assert.Equal(t, 50, m.height)
}

func TestModel_LayoutMode(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		want          LayoutMode
	}{
		{"unknown size", 0, 0, LayoutCompact},
		{"narrow", 60, 30, LayoutMinimal},
		{"compact", 100, 30, LayoutCompact},
		{"wide but short", 140, 30, LayoutCompact},
		{"wide", 140, 45, LayoutWide},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(newStubFeed(stateWith(metrics.StatusConnected)))
			m.width, m.height = tt.width, tt.height
			assert.Equal(t, tt.want, m.LayoutMode())
		})
	}
}

func TestModel_SecondsSinceSync(t *testing.T) {
	m := newTestModel(newStubFeed(stateWith(metrics.StatusConnected)))
	assert.Equal(t, -1, m.SecondsSinceSync())

	synced := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m.state.UpdatedAt = synced
	m.now = synced.Add(3 * time.Second)
	assert.Equal(t, 3, m.SecondsSinceSync())

	m.now = synced.Add(-time.Second)
	assert.Equal(t, 0, m.SecondsSinceSync(), "clock skew clamps to zero")
}

func TestModel_TableRowsNewestFirst(t *testing.T) {
	feed := newStubFeed(stateWith(metrics.StatusConnected,
		sample(100, 10, 90), sample(200, 20, 80), sample(300, 30, 70)))
	m := newTestModel(feed)

	updated, _ := m.Update(updateMsg{})
	m = updated.(Model)

	rows := m.table.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, formatClock(sample(300, 0, 0)), rows[0][0])
	assert.Equal(t, "30%", rows[0][1])
	assert.Equal(t, "70%", rows[0][2])
	assert.Equal(t, formatClock(sample(100, 0, 0)), rows[2][0])
}

func TestModel_TableHeight(t *testing.T) {
	m := newTestModel(newStubFeed(stateWith(metrics.StatusConnected)))
	assert.Equal(t, 4, m.tableHeight(3))
	assert.Equal(t, 11, m.tableHeight(50))

	m.height = HeightStandard
	assert.Equal(t, 21, m.tableHeight(50))
}

func TestModel_WithLiveFeed(t *testing.T) {
	gw := gwtesting.NewFakeGateway()
	gw.SetSamples([]metrics.Sample{sample(100, 40, 60), sample(101, 50, 50)})
	feed := metrics.NewFeed(gw, "user-1", metrics.Options{Logger: logger.Noop()})
	t.Cleanup(func() { _ = feed.Close() })

	m := newTestModel(feed)

	updated, _ := m.Update(m.startCmd()())
	m = updated.(Model)
	require.Len(t, m.State().Samples, 2)

	sub := gw.Subscription()
	require.NotNil(t, sub)
	sub.SetStatus(metrics.StatusConnected, nil)
	sub.Insert(sample(102, 95, 20))

	require.Eventually(t, func() bool {
		return feed.Snapshot().Latest != nil && feed.Snapshot().Latest.Timestamp == 102
	}, 2*time.Second, 5*time.Millisecond)

	updated, _ = m.Update(updateMsg{})
	m = updated.(Model)
	require.NotNil(t, m.State().Latest)
	assert.Equal(t, 95, m.State().Latest.CognitiveLoad)
	assert.Equal(t, metrics.StatusConnected, m.State().Status)
	assert.Contains(t, m.View(), "CRITICAL")

	// Quitting closes the feed
	m.closeCmd()()
	for range feed.Updates() {
	}
	assert.Error(t, feed.Start(context.Background()), "closed feed cannot restart")
}
