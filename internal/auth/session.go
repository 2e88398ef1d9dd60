package auth

import (
	"context"
	"sync"
	"time"

	"github.com/hackx/skillos/internal/errors"
	"github.com/hackx/skillos/internal/logger"
)

// User identifies the account behind a session.
type User struct {
	ID    string `yaml:"id" json:"id"`
	Phone string `yaml:"phone" json:"phone"`
}

// Session is an authenticated gateway session.
type Session struct {
	AccessToken  string    `yaml:"access_token" json:"access_token"`
	RefreshToken string    `yaml:"refresh_token" json:"refresh_token"`
	ExpiresAt    time.Time `yaml:"expires_at" json:"expires_at"`
	User         User      `yaml:"user" json:"user"`
}

// Expired reports whether the access token is past its expiry at now.
// A zero ExpiresAt never expires.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Provider is the identity surface of the gateway.
type Provider interface {
	SendOTP(ctx context.Context, phone string) error
	VerifyOTP(ctx context.Context, phone, code string) (*Session, error)
	SignOut(ctx context.Context) error
	CurrentSession(ctx context.Context) (*Session, error)
	OnSessionChange(fn func(*Session)) (cancel func())
}

// SessionContext holds the process-wide authenticated session. It is created
// once at start, restored best-effort from the provider, read by every
// protected view and mutated only through sign-in and sign-out.
type SessionContext struct {
	provider Provider
	log      logger.Logger

	mu      sync.RWMutex
	session *Session
	stop    func()
}

// NewSessionContext creates a session context and starts listening for
// session changes reported by the provider.
func NewSessionContext(provider Provider, log logger.Logger) *SessionContext {
	if log == nil {
		log = logger.NewEnvLogger("[auth]")
	}
	sc := &SessionContext{provider: provider, log: log}
	sc.stop = provider.OnSessionChange(sc.set)
	return sc
}

// Provider returns the identity provider backing this context.
func (sc *SessionContext) Provider() Provider {
	return sc.provider
}

// Restore loads an existing session from the provider. Failure leaves the
// context anonymous and is returned for the caller to report.
func (sc *SessionContext) Restore(ctx context.Context) (*Session, error) {
	session, err := sc.provider.CurrentSession(ctx)
	if err != nil {
		sc.log.Warn("session restore failed: %v", err)
		return nil, errors.WrapWithCode(err, errors.ErrAuth,
			"Could not restore your previous session",
			"Run 'skillos login' to sign in again")
	}
	sc.set(session)
	return sc.Current(), nil
}

// Current returns a copy of the active session, or nil when anonymous.
func (sc *SessionContext) Current() *Session {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	if sc.session == nil {
		return nil
	}
	cp := *sc.session
	return &cp
}

// Authenticated reports whether a session is active.
func (sc *SessionContext) Authenticated() bool {
	return sc.Current() != nil
}

// SignOut ends the session at the provider. The local session is dropped
// even when the provider call fails, matching the gateway SDK which clears
// its stored session before revoking remotely.
func (sc *SessionContext) SignOut(ctx context.Context) error {
	err := sc.provider.SignOut(ctx)
	sc.set(nil)
	if err != nil {
		return surface(err, "Failed to sign out")
	}
	return nil
}

// Close stops listening for provider session changes.
func (sc *SessionContext) Close() {
	sc.mu.Lock()
	stop := sc.stop
	sc.stop = nil
	sc.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (sc *SessionContext) set(session *Session) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if session == nil {
		sc.session = nil
		return
	}
	cp := *session
	sc.session = &cp
}
