package gateway

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/url"
	"time"

	"github.com/hackx/skillos/internal/auth"
	"github.com/hackx/skillos/internal/errors"
)

var _ auth.Provider = (*Client)(nil)

// tokenResponse is the session payload returned by verify and refresh.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         struct {
		ID    string `json:"id"`
		Phone string `json:"phone"`
	} `json:"user"`
}

func (t tokenResponse) session(now time.Time) *auth.Session {
	s := &auth.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		User:         auth.User{ID: t.User.ID, Phone: t.User.Phone},
	}
	switch {
	case t.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(t.ExpiresAt, 0)
	case t.ExpiresIn > 0:
		s.ExpiresAt = now.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return s
}

// SendOTP asks the gateway to text a one-time passcode to phone.
func (c *Client) SendOTP(ctx context.Context, phone string) error {
	body := map[string]interface{}{"phone": phone, "create_user": true}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/otp", nil, body, nil); err != nil {
		return authError(err, "Failed to send OTP")
	}
	c.log.Debug("OTP sent to %s", phone)
	return nil
}

// VerifyOTP exchanges a passcode for a session and stores it.
func (c *Client) VerifyOTP(ctx context.Context, phone, code string) (*auth.Session, error) {
	body := map[string]string{"phone": phone, "token": code, "type": "sms"}
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/verify", nil, body, &resp); err != nil {
		return nil, authError(err, "Failed to verify OTP")
	}
	if resp.AccessToken == "" {
		return nil, errors.New(errors.ErrAuth, "Gateway returned no session", "Try requesting a new code")
	}

	session := resp.session(time.Now())
	c.setSession(session)
	return session, nil
}

// SignOut revokes the session at the gateway. The stored session is removed
// first so a failed revoke still signs the user out locally.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.RLock()
	hadSession := c.session != nil
	c.mu.RUnlock()

	var remoteErr error
	if hadSession {
		// The bearer is read before the local session is dropped.
		remoteErr = c.do(ctx, http.MethodPost, "/auth/v1/logout", nil, nil, nil)
	}
	c.setSession(nil)

	if remoteErr != nil {
		return authError(remoteErr, "Failed to sign out")
	}
	return nil
}

// CurrentSession returns the active session, restoring it from the store
// on first use and refreshing it when expired.
func (c *Client) CurrentSession(ctx context.Context) (*auth.Session, error) {
	c.mu.Lock()
	if !c.restored {
		c.restored = true
		stored, err := c.store.Load()
		if err != nil {
			c.mu.Unlock()
			return nil, err
		}
		c.session = stored
	}
	session := c.session
	c.mu.Unlock()

	if session == nil {
		return nil, nil
	}
	if !session.Expired(time.Now()) {
		cp := *session
		return &cp, nil
	}
	if session.RefreshToken == "" {
		c.setSession(nil)
		return nil, nil
	}
	return c.refresh(ctx, session.RefreshToken)
}

// OnSessionChange registers fn to be called with every new session (nil on
// sign-out). The returned function unregisters it.
func (c *Client) OnSessionChange(fn func(*auth.Session)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (*auth.Session, error) {
	q := url.Values{"grant_type": {"refresh_token"}}
	var resp tokenResponse
	err := c.do(ctx, http.MethodPost, "/auth/v1/token", q, map[string]string{"refresh_token": refreshToken}, &resp)
	if err != nil {
		if !tokenRejected(err) {
			// The stored session stays for the next attempt.
			c.log.Warn("session refresh failed: %v", err)
			return nil, errors.WrapWithCode(err, errors.ErrConnection,
				"Could not refresh your session",
				"Check your connection and try again; you are still signed in")
		}
		c.setSession(nil)
		return nil, authError(err, "Session expired")
	}
	session := resp.session(time.Now())
	c.setSession(session)
	return session, nil
}

// tokenRejected reports whether the gateway refused the refresh token
// itself, as opposed to being unreachable or failing.
func tokenRejected(err error) bool {
	var httpErr *HTTPError
	if !stderrors.As(err, &httpErr) {
		return false
	}
	return httpErr.Status >= 400 && httpErr.Status < 500 && httpErr.Status != http.StatusTooManyRequests
}

// setSession replaces the in-memory session, persists it and notifies
// listeners outside the lock.
func (c *Client) setSession(session *auth.Session) {
	c.mu.Lock()
	c.session = session
	c.restored = true
	listeners := make([]func(*auth.Session), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	var err error
	if session == nil {
		err = c.store.Clear()
	} else {
		err = c.store.Save(session)
	}
	if err != nil {
		c.log.Warn("persist session: %v", err)
	}

	for _, fn := range listeners {
		fn(session)
	}
}

// authError turns a transport or HTTP error into an AUTH error carrying the
// gateway message verbatim.
func authError(err error, fallback string) error {
	msg := fallback
	if httpErr, ok := err.(*HTTPError); ok && httpErr.Message != "" {
		msg = httpErr.Message
	}
	return errors.WrapWithCode(err, errors.ErrAuth, msg, "")
}
