package monitor

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hackx/skillos/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestHandleKeyMsg_Quit(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
	}{
		{"q", keyRunes(KeyQuit)},
		{"ctrl+c", tea.KeyMsg{Type: tea.KeyCtrlC}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := newStubFeed(stateWith(metrics.StatusConnected))
			m := newTestModel(feed)

			handled, cmd := m.HandleKeyMsg(tt.msg)
			assert.True(t, handled)
			assert.True(t, m.quitting)
			assert.NotNil(t, cmd)
			assert.Empty(t, m.View())
		})
	}
}

func TestHandleKeyMsg_QuitOverHelp(t *testing.T) {
	m := newTestModel(newStubFeed(stateWith(metrics.StatusConnected)))
	m.showHelp = true

	handled, cmd := m.HandleKeyMsg(keyRunes(KeyQuit))
	assert.True(t, handled)
	assert.True(t, m.quitting)
	assert.NotNil(t, cmd)
}

func TestCloseCmd(t *testing.T) {
	feed := newStubFeed(stateWith(metrics.StatusConnected))
	m := newTestModel(feed)

	assert.Nil(t, m.closeCmd()())
	assert.Equal(t, 1, feed.closes)
}

func TestHandleKeyMsg_Help(t *testing.T) {
	m := newTestModel(newStubFeed(stateWith(metrics.StatusConnected)))

	handled, _ := m.HandleKeyMsg(keyRunes(KeyToggleHelp))
	assert.True(t, handled)
	assert.True(t, m.showHelp)

	// Other keys are swallowed while help is open
	handled, cmd := m.HandleKeyMsg(keyRunes(KeyRefresh))
	assert.True(t, handled)
	assert.Nil(t, cmd)
	assert.False(t, m.refreshing)

	handled, _ = m.HandleKeyMsg(tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, handled)
	assert.False(t, m.showHelp)

	m.HandleKeyMsg(keyRunes(KeyToggleHelp))
	m.HandleKeyMsg(keyRunes(KeyToggleHelp))
	assert.False(t, m.showHelp, "? toggles")
}

func TestHandleKeyMsg_Refresh(t *testing.T) {
	feed := newStubFeed(stateWith(metrics.StatusDisconnected))
	m := newTestModel(feed)

	handled, cmd := m.HandleKeyMsg(keyRunes(KeyRefresh))
	assert.True(t, handled)
	assert.True(t, m.refreshing)
	require.NotNil(t, cmd)

	// A second press while in flight is ignored
	_, again := m.HandleKeyMsg(keyRunes(KeyRefresh))
	assert.Nil(t, again)

	msg := cmd()
	assert.Equal(t, refreshedMsg{}, msg)
	assert.Equal(t, 1, feed.refreshes)
}

func TestHandleKeyMsg_Table(t *testing.T) {
	m := newTestModel(newStubFeed(stateWith(metrics.StatusConnected,
		sample(100, 10, 90), sample(200, 20, 80), sample(300, 30, 70))))
	m.syncTable()

	handled, _ := m.HandleKeyMsg(keyRunes(KeyToggleTable))
	assert.True(t, handled)
	assert.True(t, m.showTable)

	assert.Equal(t, 0, m.table.Cursor())
	m.HandleKeyMsg(keyRunes(KeyScrollDownJ))
	m.HandleKeyMsg(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 2, m.table.Cursor())
	m.HandleKeyMsg(keyRunes(KeyScrollUpK))
	assert.Equal(t, 1, m.table.Cursor())

	handled, _ = m.HandleKeyMsg(tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, handled)
	assert.False(t, m.showTable)
}

func TestHandleKeyMsg_Unknown(t *testing.T) {
	m := newTestModel(newStubFeed(stateWith(metrics.StatusConnected)))

	handled, cmd := m.HandleKeyMsg(keyRunes("x"))
	assert.False(t, handled)
	assert.Nil(t, cmd)
}
