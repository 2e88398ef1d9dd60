package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// SpinnerState represents the current state of a spinner.
type SpinnerState int

const (
	SpinnerPending SpinnerState = iota
	SpinnerInProgress
	SpinnerSuccess
	SpinnerFailed
)

// Spinner animation frames (braille scan)
var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// spinnerTick is the animation frame interval.
const spinnerTick = 60 * time.Millisecond

// Spinner reports one blocking gateway call on a line of CLI output. On a
// terminal the line animates until Success or Fail; on anything else only
// the final line is written, so piped output stays clean.
type Spinner struct {
	mu        sync.Mutex
	w         io.Writer
	label     string
	animate   bool
	state     SpinnerState
	frame     int
	startTime time.Time
	stopChan  chan struct{}
	doneChan  chan struct{}
	lastWidth int
}

// NewSpinnerTo creates a spinner that writes to w, e.g. a command's stdout.
func NewSpinnerTo(w io.Writer, label string) *Spinner {
	return newSpinner(w, label, writerIsTerminal(w))
}

func newSpinner(w io.Writer, label string, animate bool) *Spinner {
	return &Spinner{w: w, label: label, animate: animate}
}

func writerIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Start shows the spinner. Calling Start twice has no effect.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.state != SpinnerPending {
		s.mu.Unlock()
		return
	}
	s.state = SpinnerInProgress
	s.startTime = time.Now()
	if !s.animate {
		s.mu.Unlock()
		return
	}
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	s.renderFrameLocked()
	s.mu.Unlock()

	go s.spin()
}

// Success stops the spinner and prints the completed line.
func (s *Spinner) Success() {
	s.finish(SpinnerSuccess)
}

// Fail stops the spinner and prints the failed line.
func (s *Spinner) Fail() {
	s.finish(SpinnerFailed)
}

// State returns the current spinner state.
func (s *Spinner) State() SpinnerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Spinner) finish(state SpinnerState) {
	s.mu.Lock()
	if s.state != SpinnerInProgress {
		s.mu.Unlock()
		return
	}
	stop, done := s.stopChan, s.doneChan
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.renderFinalLocked()
}

func (s *Spinner) spin() {
	ticker := time.NewTicker(spinnerTick)
	defer ticker.Stop()
	defer close(s.doneChan)

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.frame = (s.frame + 1) % len(spinnerFrames)
			s.renderFrameLocked()
			s.mu.Unlock()
		}
	}
}

func (s *Spinner) renderFrameLocked() {
	// Cycle through gradient colors (pink -> purple -> cyan -> green)
	color := GradientColors[(s.frame/2)%len(GradientColors)]
	symbol := lipgloss.NewStyle().Foreground(color).Render(spinnerFrames[s.frame])

	s.clearLocked()
	line := symbol + " " + s.label + "..."
	_, _ = io.WriteString(s.w, line)
	s.lastWidth = lipgloss.Width(line)
}

func (s *Spinner) renderFinalLocked() {
	symbol, color := SymbolComplete, ColorSuccess
	if s.state == SpinnerFailed {
		symbol, color = SymbolFail, ColorError
	}

	s.clearLocked()
	_, _ = fmt.Fprintf(s.w, "%s %s %s\n",
		lipgloss.NewStyle().Foreground(color).Render(symbol),
		s.label,
		MutedStyle().Render(formatDuration(time.Since(s.startTime))),
	)
}

// clearLocked blanks the animated line, if one was drawn.
func (s *Spinner) clearLocked() {
	if s.lastWidth == 0 {
		return
	}
	_, _ = io.WriteString(s.w, "\r"+strings.Repeat(" ", s.lastWidth)+"\r")
	s.lastWidth = 0
}

// formatDuration formats a duration for display (e.g., "0.3s", "1.2s").
func formatDuration(d time.Duration) string {
	secs := d.Seconds()
	if secs < 0.1 {
		return fmt.Sprintf("%.2fs", secs)
	}
	return fmt.Sprintf("%.1fs", secs)
}
