// Package ui provides terminal UI components for skillos CLI output.
//
// The package holds the shared neon palette, status symbols, spinners,
// sparklines, tables and the branded header. The monitor dashboard and the
// login form build their own layouts from these pieces.
//
// # Color Scheme
//
// Colors are hex values rendered through Lip Gloss:
//
//	ColorSuccess   (neon green) - Optimal load, completed steps
//	ColorWarning   (amber)      - High load, validation problems
//	ColorError     (hot red)    - Critical load, failures
//	ColorInfo      (cyan)       - Informational text
//	ColorAccent    (pink)       - Titles and key hints
//	ColorMuted     (gray)       - Secondary text, timing info
//
// ApplyColorMode maps the output.color setting onto the Lip Gloss color
// profile. NO_COLOR is honored in auto mode.
//
// # Spinner Usage
//
//	s := ui.NewSpinnerTo(os.Stderr, "Sending code")
//	s.Start()
//	// ... do work ...
//	s.Success() // or s.Fail()
//
// On a terminal the line animates; on pipes and files only the final line
// is written.
//
// SpinnerComponent wraps the Bubble Tea spinner with the same frames for
// use inside a tea.Model.
//
// # Sparklines and Tables
//
// RenderSparkline draws load values on a fixed 0-100 scale, colored by the
// band of the latest value. RenderSimpleTable and RenderKeyValues format
// non-interactive output for commands like `skillos status`.
package ui
