// Package monitor implements the real-time TUI dashboard for a user's
// cognitive load and energy samples.
//
// # Architecture
//
// The package uses the Bubble Tea framework (Model-Update-View):
//
//   - Model: Holds the last feed snapshot, layout and overlay state
//   - Update: Processes keystrokes, feed updates and clock ticks
//   - View: Renders the current state to a string for display
//
// The Model renders a Feed (normally *metrics.Feed) and never mutates the
// sample window itself.
//
// # Message Flow
//
//  1. Init starts the feed and waits on Feed.Updates
//  2. updateMsg arrives after every feed change; the model re-reads Snapshot
//  3. tickMsg fires every Interval to redraw the sync age and spinner
//  4. refreshedMsg arrives after a user-requested refresh
//
// # Layout Modes
//
//	LayoutMinimal  (<80 cols)  - Gauges and one-row sparklines
//	LayoutCompact  (80+)       - Braille charts
//	LayoutWide     (120+ cols, 40+ rows) - Taller braille charts
//
// # Keyboard Shortcuts
//
//	q, Ctrl+C   - Quit (closes the feed)
//	r           - Refresh from the gateway
//	t           - Toggle the data table
//	j/k, ↑/↓    - Scroll the data table
//	Esc         - Close table / help
//	?           - Toggle help overlay
package monitor
