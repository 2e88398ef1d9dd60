package monitor

import tea "github.com/charmbracelet/bubbletea"

// Key bindings as constants for consistency.
const (
	KeyQuit        = "q"
	KeyQuitAlt     = "ctrl+c"
	KeyRefresh     = "r"
	KeyToggleTable = "t"
	KeyCollapse    = "esc"
	KeyToggleHelp  = "?"
	KeyScrollUp    = "up"
	KeyScrollUpK   = "k"
	KeyScrollDown  = "down"
	KeyScrollDownJ = "j"
)

// HandleKeyMsg processes keyboard input and returns updated model state and command.
// Returns true if the key was handled, false otherwise.
func (m *Model) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	key := msg.String()

	// Quit always works, even over the help overlay
	if key == KeyQuit || key == KeyQuitAlt {
		m.quitting = true
		return true, tea.Sequence(m.closeCmd(), tea.Quit)
	}

	if key == KeyToggleHelp {
		m.showHelp = !m.showHelp
		return true, nil
	}

	if m.showHelp {
		if key == KeyCollapse {
			m.showHelp = false
		}
		// Swallow everything else while the overlay is up
		return true, nil
	}

	switch key {
	case KeyRefresh:
		if m.refreshing {
			return true, nil
		}
		m.refreshing = true
		return true, m.refreshCmd()

	case KeyToggleTable:
		m.showTable = !m.showTable
		m.syncTable()
		return true, nil

	case KeyCollapse:
		if m.showTable {
			m.showTable = false
		}
		return true, nil

	case KeyScrollUp, KeyScrollUpK:
		if m.showTable {
			m.table.MoveUp(1)
		}
		return true, nil

	case KeyScrollDown, KeyScrollDownJ:
		if m.showTable {
			m.table.MoveDown(1)
		}
		return true, nil
	}

	return false, nil
}
