package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SpinnerFrames is the braille scan used by the CLI spinner, packaged for
// Bubble Tea programs so the login form and CLI output look alike.
var SpinnerFrames = spinner.Spinner{
	Frames: spinnerFrames,
	FPS:    time.Second / 16,
}

// SpinnerComponentState represents the state of a spinner in a Bubble Tea model.
type SpinnerComponentState int

const (
	SpinnerComponentPending SpinnerComponentState = iota
	SpinnerComponentInProgress
	SpinnerComponentSuccess
	SpinnerComponentFailed
)

// SpinnerComponent shows one in-flight request inside a Bubble Tea model.
// The owning model forwards spinner.TickMsg to Update and calls Success or
// Fail when the request's result arrives.
type SpinnerComponent struct {
	spinner   spinner.Model
	Label     string
	State     SpinnerComponentState
	StartTime time.Time
}

// NewSpinnerComponent creates a new spinner component with the given label.
func NewSpinnerComponent(label string) SpinnerComponent {
	sp := spinner.New()
	sp.Spinner = SpinnerFrames
	sp.Style = lipgloss.NewStyle().Foreground(ColorAccent)

	return SpinnerComponent{
		spinner: sp,
		Label:   label,
		State:   SpinnerComponentPending,
	}
}

// Update handles spinner animation messages.
func (s SpinnerComponent) Update(msg tea.Msg) (SpinnerComponent, tea.Cmd) {
	if s.State != SpinnerComponentInProgress {
		return s, nil
	}

	if tickMsg, ok := msg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(tickMsg)
		return s, cmd
	}
	return s, nil
}

// View renders the spinner in its current state.
func (s SpinnerComponent) View() string {
	switch s.State {
	case SpinnerComponentInProgress:
		return s.viewInProgress()
	case SpinnerComponentSuccess:
		return s.viewFinal(SymbolComplete, ColorSuccess)
	case SpinnerComponentFailed:
		return s.viewFinal(SymbolFail, ColorError)
	default:
		return s.viewFinal(SymbolPending, ColorMuted)
	}
}

func (s SpinnerComponent) viewInProgress() string {
	return s.spinner.View() + " " + s.Label + "..."
}

func (s SpinnerComponent) viewFinal(symbol string, color lipgloss.Color) string {
	symbolStyle := lipgloss.NewStyle().Foreground(color)
	timingStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	elapsed := time.Since(s.StartTime)
	timing := formatDuration(elapsed)

	return symbolStyle.Render(symbol) + " " + s.Label + " " + timingStyle.Render(timing)
}

// Start transitions the spinner to in-progress state and returns the
// first tick.
func (s *SpinnerComponent) Start() tea.Cmd {
	s.State = SpinnerComponentInProgress
	s.StartTime = time.Now()
	return s.spinner.Tick
}

// Success transitions the spinner to success state.
func (s *SpinnerComponent) Success() {
	s.State = SpinnerComponentSuccess
}

// Fail transitions the spinner to failed state.
func (s *SpinnerComponent) Fail() {
	s.State = SpinnerComponentFailed
}
