package login

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hackx/skillos/internal/auth"
	"github.com/hackx/skillos/internal/errors"
	"github.com/hackx/skillos/internal/ui"
)

// Step is the input the form is currently collecting.
type Step int

const (
	StepPhone Step = iota
	StepCode
	StepDone
)

// Options configures the login model.
type Options struct {
	// Phone pre-fills the phone input.
	Phone string

	// TickInterval is one second of resend countdown (time.Second if zero).
	TickInterval time.Duration
}

// Model is the Bubble Tea model for the phone → code login form.
type Model struct {
	ctx     context.Context
	machine *auth.Machine
	opts    Options

	input   textinput.Model
	spinner ui.SpinnerComponent
	snap    auth.Snapshot
	step    Step
	pending bool
	ticking bool

	width     int
	cancelled bool
}

// submittedMsg carries the result of a gateway call made by the machine.
type submittedMsg struct{ err error }

// countdownMsg advances the resend countdown by one second.
type countdownMsg struct{}

type loginKeyMap struct {
	Submit       key.Binding
	Resend       key.Binding
	ChangeNumber key.Binding
	Quit         key.Binding
}

var loginKeys = loginKeyMap{
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "submit"),
	),
	Resend: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("ctrl+r", "resend code"),
	),
	ChangeNumber: key.NewBinding(
		key.WithKeys("ctrl+n"),
		key.WithHelp("ctrl+n", "change number"),
	),
	Quit: key.NewBinding(
		key.WithKeys("esc", "ctrl+c"),
		key.WithHelp("esc", "cancel"),
	),
}

// NewModel creates a login form driven by machine.
func NewModel(ctx context.Context, machine *auth.Machine, opts Options) Model {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}

	m := Model{
		ctx:     ctx,
		machine: machine,
		opts:    opts,
		input:   textinput.New(),
		snap:    machine.Snapshot(),
	}
	m.input.Prompt = "› "
	m.input.PromptStyle = promptStyle
	m.input.TextStyle = inputStyle
	m.input.PlaceholderStyle = placeholderStyle

	switch {
	case m.snap.State == auth.StateAuthenticated:
		m.step = StepDone
	case m.snap.State == auth.StateOTPPending || m.snap.State == auth.StateError:
		m.toCodeStep()
	default:
		m.toPhoneStep(opts.Phone)
	}
	// Init resumes a countdown left running by an earlier form
	m.ticking = m.snap.Cooldown > 0
	return m
}

// Init focuses the input and resumes a running countdown.
func (m Model) Init() tea.Cmd {
	if m.step == StepDone {
		return tea.Quit
	}
	cmds := []tea.Cmd{textinput.Blink}
	if m.snap.Cooldown > 0 {
		cmds = append(cmds, m.countdownCmd())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case submittedMsg:
		return m.handleSubmitted(msg)

	case countdownMsg:
		if m.machine.Tick() > 0 {
			m.snap = m.machine.Snapshot()
			return m, m.countdownCmd()
		}
		m.ticking = false
		m.snap = m.machine.Snapshot()
		return m, nil
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, loginKeys.Quit):
		m.cancelled = true
		return m, tea.Quit

	case m.pending:
		// Input is disabled while a request is in flight
		return m, nil

	case key.Matches(msg, loginKeys.Submit):
		return m.submit()

	case key.Matches(msg, loginKeys.Resend):
		if m.step != StepCode || !m.snap.CanResend() {
			return m, nil
		}
		return m.startRequest("Resending code", func(ctx context.Context) error {
			return m.machine.Resend(ctx)
		})

	case key.Matches(msg, loginKeys.ChangeNumber):
		if m.step != StepCode {
			return m, nil
		}
		m.machine.ChangeNumber()
		m.snap = m.machine.Snapshot()
		m.toPhoneStep(m.snap.Phone)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.step == StepCode {
		// Digits only, like the code field it replaces
		if clean := auth.SanitizeCode(m.input.Value()); clean != m.input.Value() {
			m.input.SetValue(clean)
		}
	}
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	value := m.input.Value()
	switch m.step {
	case StepPhone:
		return m.startRequest("Sending code", func(ctx context.Context) error {
			return m.machine.SubmitPhone(ctx, value)
		})
	case StepCode:
		return m.startRequest("Verifying", func(ctx context.Context) error {
			return m.machine.SubmitCode(ctx, value)
		})
	}
	return m, nil
}

// startRequest runs fn off the update loop with the spinner showing.
func (m Model) startRequest(label string, fn func(context.Context) error) (tea.Model, tea.Cmd) {
	m.pending = true
	m.spinner = ui.NewSpinnerComponent(label)
	spin := m.spinner.Start()
	ctx := m.ctx
	return m, tea.Batch(spin, func() tea.Msg {
		return submittedMsg{err: fn(ctx)}
	})
}

func (m Model) handleSubmitted(msg submittedMsg) (tea.Model, tea.Cmd) {
	m.pending = false
	if msg.err != nil {
		m.spinner.Fail()
	} else {
		m.spinner.Success()
	}

	prevStep := m.step
	m.snap = m.machine.Snapshot()

	switch m.snap.State {
	case auth.StateAuthenticated:
		m.step = StepDone
		m.input.Blur()
		return m, tea.Quit

	case auth.StateOTPPending, auth.StateError:
		if prevStep == StepPhone {
			m.toCodeStep()
		}
	}

	if m.snap.Cooldown > 0 && !m.ticking {
		m.ticking = true
		return m, m.countdownCmd()
	}
	return m, nil
}

func (m Model) countdownCmd() tea.Cmd {
	return tea.Tick(m.opts.TickInterval, func(time.Time) tea.Msg { return countdownMsg{} })
}

func (m *Model) toPhoneStep(phone string) {
	m.step = StepPhone
	m.input.Reset()
	m.input.Placeholder = "+1234567890"
	m.input.CharLimit = 24
	m.input.SetValue(phone)
	m.input.CursorEnd()
	m.input.Focus()
}

func (m *Model) toCodeStep() {
	m.step = StepCode
	m.input.Reset()
	m.input.Placeholder = strings.Repeat("0", auth.CodeLength)
	m.input.CharLimit = auth.CodeLength
	m.input.Focus()
}

// Step returns the form step being shown.
func (m Model) Step() Step {
	return m.step
}

// Authenticated reports whether the form finished with a session.
func (m Model) Authenticated() bool {
	return m.step == StepDone
}

// Cancelled reports whether the user left the form.
func (m Model) Cancelled() bool {
	return m.cancelled
}

// View renders the form.
func (m Model) View() string {
	var b strings.Builder

	if m.step == StepDone {
		b.WriteString(successStyle.Render(ui.SymbolSuccess+" Signed in as "+m.snap.Phone) + "\n")
		return b.String()
	}

	title, label := "Welcome Back", "Phone number (E.164)"
	if m.step == StepCode {
		title = "Verify Access"
		label = "Enter the code sent to " + m.snap.Phone
	}

	b.WriteString(titleStyle.Render(title) + "\n\n")
	b.WriteString(labelStyle.Render(label) + "\n")
	b.WriteString(m.input.View() + "\n\n")

	if m.pending {
		b.WriteString(m.spinner.View() + "\n\n")
	} else if m.snap.Err != nil {
		b.WriteString(renderError(m.snap.Err) + "\n\n")
	}

	if m.step == StepCode {
		b.WriteString(m.renderResend() + "\n")
	}

	b.WriteString(helpStyle.Render(m.helpLine()) + "\n")
	return b.String()
}

func (m Model) renderResend() string {
	if m.snap.Cooldown > 0 {
		return mutedStyle.Render(fmt.Sprintf("Resend code in %ds", m.snap.Cooldown))
	}
	return accentStyle.Render("ctrl+r resend code")
}

func (m Model) helpLine() string {
	hints := []string{"enter submit"}
	if m.step == StepCode {
		hints = append(hints, "ctrl+n change number")
	}
	hints = append(hints, "esc cancel")
	return strings.Join(hints, " · ")
}

// renderError shows validation problems as warnings and gateway failures
// as errors.
func renderError(err error) string {
	msg := errors.Message(err)
	if errors.IsCode(err, errors.ErrValidation) {
		return warningStyle.Render("! " + msg)
	}
	return errorStyle.Render(ui.SymbolFail + " " + msg)
}

// Run shows the login form on the given terminal I/O and returns the final
// model. The caller inspects Authenticated or Cancelled.
func Run(ctx context.Context, machine *auth.Machine, opts Options, output io.Writer, input io.Reader) (Model, error) {
	p := tea.NewProgram(
		NewModel(ctx, machine, opts),
		tea.WithContext(ctx),
		tea.WithOutput(output),
		tea.WithInput(input),
	)

	final, err := p.Run()
	if err != nil {
		return Model{}, errors.WrapWithCode(err, errors.ErrAuth,
			"Login form failed",
			"Try again, or pass --phone to sign in without the form")
	}

	m, ok := final.(Model)
	if !ok {
		return Model{}, errors.New(errors.ErrAuth, "Login form exited unexpectedly", "")
	}
	return m, nil
}
