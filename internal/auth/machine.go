package auth

import (
	"context"
	"sync"

	"github.com/hackx/skillos/internal/errors"
	"github.com/hackx/skillos/internal/logger"
)

// DefaultResendCooldown is the number of seconds before a code can be resent.
const DefaultResendCooldown = 60

// RateLimitGatewayMessage is the gateway's wording for throttled auth calls.
const RateLimitGatewayMessage = "Rate limit exceeded"

// RateLimitMessage replaces RateLimitGatewayMessage in user-facing output.
const RateLimitMessage = "Too many attempts. Please wait a minute before requesting another code."

// State is a step of the phone login flow.
type State int

const (
	StateAnonymous State = iota
	StateOTPPending
	StateAuthenticated
	// StateError is OTP-pending with a rejected code surfaced. It accepts
	// the same inputs as StateOTPPending.
	StateError
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateOTPPending:
		return "otp-pending"
	case StateAuthenticated:
		return "authenticated"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// awaitingCode reports whether the state accepts a passcode.
func (s State) awaitingCode() bool {
	return s == StateOTPPending || s == StateError
}

// Snapshot is a read-only view of the machine for rendering.
type Snapshot struct {
	State    State
	Phone    string
	Err      error
	Loading  bool
	Cooldown int // seconds until Resend is allowed
}

// CanResend reports whether the resend action is enabled.
func (s Snapshot) CanResend() bool {
	return s.State.awaitingCode() && s.Cooldown == 0 && !s.Loading
}

// MachineOptions configures a Machine.
type MachineOptions struct {
	ResendCooldown int // seconds, DefaultResendCooldown if zero
	Logger         logger.Logger
}

// Machine drives phone → OTP → session. Gateway calls are made without
// holding the lock so the loading flag stays observable; the flag is
// cleared on every exit path.
type Machine struct {
	sessions       *SessionContext
	resendCooldown int
	log            logger.Logger

	mu       sync.Mutex
	state    State
	phone    string
	err      error
	loading  bool
	cooldown int
}

// NewMachine creates a login machine. It starts authenticated when the
// session context already holds a session.
func NewMachine(sessions *SessionContext, opts MachineOptions) *Machine {
	if opts.ResendCooldown <= 0 {
		opts.ResendCooldown = DefaultResendCooldown
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewEnvLogger("[auth]")
	}
	m := &Machine{
		sessions:       sessions,
		resendCooldown: opts.ResendCooldown,
		log:            opts.Logger,
	}
	if sessions.Authenticated() {
		m.state = StateAuthenticated
	}
	return m
}

// Snapshot returns the current machine state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		State:    m.state,
		Phone:    m.phone,
		Err:      m.err,
		Loading:  m.loading,
		Cooldown: m.cooldown,
	}
}

// SubmitPhone validates raw and asks the gateway to send a code. Invalid
// numbers fail locally without a gateway call.
func (m *Machine) SubmitPhone(ctx context.Context, raw string) error {
	if !m.begin() {
		return errBusy()
	}
	defer m.end()

	m.mu.Lock()
	if m.state == StateAuthenticated {
		m.mu.Unlock()
		return nil
	}
	m.err = nil
	m.mu.Unlock()

	phone := SanitizePhone(raw)
	if err := ValidatePhone(phone); err != nil {
		m.fail(err)
		return err
	}

	if err := m.sessions.Provider().SendOTP(ctx, phone); err != nil {
		err = surface(err, "Failed to send OTP")
		m.log.Warn("send OTP to %s: %v", phone, errors.Message(err))
		m.fail(err)
		return err
	}

	m.mu.Lock()
	m.phone = phone
	m.state = StateOTPPending
	m.cooldown = m.resendCooldown
	m.mu.Unlock()
	return nil
}

// SubmitCode verifies a passcode for the pending phone number.
func (m *Machine) SubmitCode(ctx context.Context, raw string) error {
	if !m.begin() {
		return errBusy()
	}
	defer m.end()

	m.mu.Lock()
	if !m.state.awaitingCode() {
		m.mu.Unlock()
		err := errors.New(errors.ErrValidation, "Request a code first", "")
		m.fail(err)
		return err
	}
	phone := m.phone
	m.err = nil
	m.mu.Unlock()

	code := SanitizeCode(raw)
	if err := ValidateCode(code); err != nil {
		m.fail(err)
		return err
	}

	session, err := m.sessions.Provider().VerifyOTP(ctx, phone, code)
	if err != nil {
		err = surface(err, "Failed to verify OTP")
		m.mu.Lock()
		m.state = StateError
		m.err = err
		m.mu.Unlock()
		return err
	}

	m.sessions.set(session)

	m.mu.Lock()
	m.state = StateAuthenticated
	m.cooldown = 0
	m.err = nil
	m.mu.Unlock()
	return nil
}

// Resend re-issues the send-code call for the pending number once the
// cooldown has reached zero, then restarts the cooldown. Otherwise no-op.
func (m *Machine) Resend(ctx context.Context) error {
	if !m.begin() {
		return errBusy()
	}
	defer m.end()

	m.mu.Lock()
	if !m.state.awaitingCode() || m.cooldown > 0 {
		m.mu.Unlock()
		return nil
	}
	phone := m.phone
	m.err = nil
	m.mu.Unlock()

	if err := m.sessions.Provider().SendOTP(ctx, phone); err != nil {
		err = surface(err, "Failed to send OTP")
		m.fail(err)
		return err
	}

	m.mu.Lock()
	m.state = StateOTPPending
	m.cooldown = m.resendCooldown
	m.mu.Unlock()
	return nil
}

// Tick advances the resend countdown by one second and returns the
// remaining seconds.
func (m *Machine) Tick() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cooldown > 0 {
		m.cooldown--
	}
	return m.cooldown
}

// ChangeNumber abandons the pending code and returns to phone entry.
func (m *Machine) ChangeNumber() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateAuthenticated {
		return
	}
	m.state = StateAnonymous
	m.err = nil
	m.cooldown = 0
}

// ClearError dismisses the surfaced error.
func (m *Machine) ClearError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = nil
}

// SignOut ends the session and returns to the anonymous state.
func (m *Machine) SignOut(ctx context.Context) error {
	if !m.begin() {
		return errBusy()
	}
	defer m.end()

	err := m.sessions.SignOut(ctx)

	m.mu.Lock()
	m.state = StateAnonymous
	m.phone = ""
	m.cooldown = 0
	m.err = err
	m.mu.Unlock()
	return err
}

// begin sets the loading flag. Returns false if a request is already in flight.
func (m *Machine) begin() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loading {
		return false
	}
	m.loading = true
	return true
}

func (m *Machine) end() {
	m.mu.Lock()
	m.loading = false
	m.mu.Unlock()
}

func (m *Machine) fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func errBusy() error {
	return errors.New(errors.ErrValidation, "A request is already in progress", "")
}

// surface turns a provider error into the AUTH error shown to the user:
// the gateway message verbatim, except the rate limit message which is
// replaced with RateLimitMessage.
func surface(err error, fallback string) error {
	msg := errors.Message(err)
	switch {
	case msg == RateLimitGatewayMessage:
		return errors.WrapWithCode(err, errors.ErrAuth, RateLimitMessage, "")
	case errors.IsCode(err, errors.ErrAuth) && msg != "":
		return err
	case msg == "":
		msg = fallback
	}
	return errors.WrapWithCode(err, errors.ErrAuth, msg, "")
}
