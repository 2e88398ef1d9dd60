package gateway

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/hackx/skillos/internal/auth"
	"github.com/hackx/skillos/internal/errors"
	"github.com/hackx/skillos/internal/gateway/gatewaytest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendOTP(t *testing.T) {
	srv := gatewaytest.New()
	defer srv.Close()
	c := newTestClient(t, srv)

	require.NoError(t, c.SendOTP(context.Background(), "+1234567890"))
	assert.Equal(t, []string{"+1234567890"}, srv.SentOTPs())
}

func TestSendOTP_RateLimited(t *testing.T) {
	srv := gatewaytest.New()
	defer srv.Close()
	srv.FailOTP(http.StatusTooManyRequests, "Rate limit exceeded")
	c := newTestClient(t, srv)

	err := c.SendOTP(context.Background(), "+1234567890")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrAuth))
	assert.Equal(t, "Rate limit exceeded", errors.Message(err))
}

func TestVerifyOTP_StoresSession(t *testing.T) {
	srv := gatewaytest.New()
	defer srv.Close()
	store := NewMemoryStore()
	c := newTestClient(t, srv, func(o *Options) { o.Store = store })

	var mu sync.Mutex
	var seen []*auth.Session
	cancel := c.OnSessionChange(func(s *auth.Session) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})
	defer cancel()

	session, err := c.VerifyOTP(context.Background(), "+1234567890", gatewaytest.DefaultCode)
	require.NoError(t, err)

	assert.NotEmpty(t, session.AccessToken)
	assert.Equal(t, srv.UserID("+1234567890"), session.User.ID)
	assert.Equal(t, "+1234567890", session.User.Phone)
	assert.True(t, session.ExpiresAt.After(time.Now()))

	stored, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, session.AccessToken, stored.AccessToken)

	mu.Lock()
	require.Len(t, seen, 1)
	assert.Equal(t, session.AccessToken, seen[0].AccessToken)
	mu.Unlock()

	// Subsequent requests carry the user token.
	_, err = c.FetchRecent(context.Background(), session.User.ID, 1)
	require.NoError(t, err)
	headers := srv.Headers()
	assert.Equal(t, "Bearer "+session.AccessToken, headers[len(headers)-1].Get("Authorization"))
}

func TestVerifyOTP_WrongCode(t *testing.T) {
	srv := gatewaytest.New()
	defer srv.Close()
	c := newTestClient(t, srv)

	_, err := c.VerifyOTP(context.Background(), "+1234567890", "000000")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrAuth))
	assert.Equal(t, "Token has expired or is invalid", errors.Message(err))

	session, err := c.CurrentSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestSignOut_ClearsLocalEvenWhenRemoteFails(t *testing.T) {
	srv := gatewaytest.New()
	defer srv.Close()
	store := NewMemoryStore()
	c := newTestClient(t, srv, func(o *Options) { o.Store = store })

	_, err := c.VerifyOTP(context.Background(), "+1234567890", gatewaytest.DefaultCode)
	require.NoError(t, err)

	srv.FailLogout(http.StatusInternalServerError)
	err = c.SignOut(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrAuth))

	session, err := c.CurrentSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, session)

	stored, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestSignOut_Anonymous(t *testing.T) {
	srv := gatewaytest.New()
	defer srv.Close()
	c := newTestClient(t, srv)

	before := len(srv.Headers())
	require.NoError(t, c.SignOut(context.Background()))
	assert.Equal(t, before, len(srv.Headers()), "no remote call without a session")
}

func TestCurrentSession_RestoresFromStore(t *testing.T) {
	srv := gatewaytest.New()
	defer srv.Close()
	store := NewMemoryStore()

	first := newTestClient(t, srv, func(o *Options) { o.Store = store })
	issued, err := first.VerifyOTP(context.Background(), "+1234567890", gatewaytest.DefaultCode)
	require.NoError(t, err)

	second := newTestClient(t, srv, func(o *Options) { o.Store = store })
	restored, err := second.CurrentSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, issued.AccessToken, restored.AccessToken)
}

func TestCurrentSession_RefreshesExpired(t *testing.T) {
	srv := gatewaytest.New()
	defer srv.Close()
	store := NewMemoryStore()

	first := newTestClient(t, srv, func(o *Options) { o.Store = store })
	issued, err := first.VerifyOTP(context.Background(), "+1234567890", gatewaytest.DefaultCode)
	require.NoError(t, err)

	expired := *issued
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, store.Save(&expired))

	second := newTestClient(t, srv, func(o *Options) { o.Store = store })
	refreshed, err := second.CurrentSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, refreshed)
	assert.NotEqual(t, issued.AccessToken, refreshed.AccessToken)
	assert.Equal(t, issued.User.ID, refreshed.User.ID)
}

func TestCurrentSession_ExpiredWithoutRefreshToken(t *testing.T) {
	srv := gatewaytest.New()
	defer srv.Close()
	store := NewMemoryStore()
	require.NoError(t, store.Save(&auth.Session{
		AccessToken: "stale",
		ExpiresAt:   time.Now().Add(-time.Hour),
	}))

	c := newTestClient(t, srv, func(o *Options) { o.Store = store })
	session, err := c.CurrentSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, session)

	stored, _ := store.Load()
	assert.Nil(t, stored)
}

func TestCurrentSession_RefreshRejected(t *testing.T) {
	srv := gatewaytest.New()
	defer srv.Close()
	store := NewMemoryStore()
	require.NoError(t, store.Save(&auth.Session{
		AccessToken:  "stale",
		RefreshToken: "unknown",
		ExpiresAt:    time.Now().Add(-time.Hour),
	}))

	c := newTestClient(t, srv, func(o *Options) { o.Store = store })
	session, err := c.CurrentSession(context.Background())
	require.Error(t, err)
	assert.Nil(t, session)
	assert.True(t, errors.IsCode(err, errors.ErrAuth))
}

func TestCurrentSession_RefreshRejectedClearsStore(t *testing.T) {
	srv := gatewaytest.New()
	defer srv.Close()
	store := NewMemoryStore()
	require.NoError(t, store.Save(&auth.Session{
		AccessToken:  "stale",
		RefreshToken: "unknown",
		ExpiresAt:    time.Now().Add(-time.Hour),
	}))

	c := newTestClient(t, srv, func(o *Options) { o.Store = store })
	_, err := c.CurrentSession(context.Background())
	require.Error(t, err)

	stored, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, stored, "a refused refresh token is forgotten")
}

func TestCurrentSession_RefreshUnavailableKeepsSession(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"bad gateway", http.StatusBadGateway},
		{"service unavailable", http.StatusServiceUnavailable},
		{"rate limited", http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := gatewaytest.New()
			defer srv.Close()
			store := NewMemoryStore()

			first := newTestClient(t, srv, func(o *Options) { o.Store = store })
			issued, err := first.VerifyOTP(context.Background(), "+1234567890", gatewaytest.DefaultCode)
			require.NoError(t, err)
			expired := *issued
			expired.ExpiresAt = time.Now().Add(-time.Minute)
			require.NoError(t, store.Save(&expired))

			srv.FailRefresh(tt.status)
			c := newTestClient(t, srv, func(o *Options) { o.Store = store })
			session, err := c.CurrentSession(context.Background())
			require.Error(t, err)
			assert.Nil(t, session)
			assert.False(t, errors.IsCode(err, errors.ErrAuth))

			stored, err := store.Load()
			require.NoError(t, err)
			require.NotNil(t, stored, "session survives the outage")
			assert.Equal(t, issued.RefreshToken, stored.RefreshToken)

			// The next attempt after recovery refreshes with the kept token.
			srv.FailRefresh(0)
			refreshed, err := c.CurrentSession(context.Background())
			require.NoError(t, err)
			require.NotNil(t, refreshed)
			assert.Equal(t, issued.User.ID, refreshed.User.ID)
		})
	}
}

func TestCurrentSession_RefreshUnreachableKeepsSession(t *testing.T) {
	srv := gatewaytest.New()
	store := NewMemoryStore()
	require.NoError(t, store.Save(&auth.Session{
		AccessToken:  "stale",
		RefreshToken: "r",
		ExpiresAt:    time.Now().Add(-time.Hour),
	}))
	c := newTestClient(t, srv, func(o *Options) { o.Store = store })
	srv.Close()

	_, err := c.CurrentSession(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConnection))

	stored, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "r", stored.RefreshToken)
}

func TestOnSessionChange_Cancel(t *testing.T) {
	srv := gatewaytest.New()
	defer srv.Close()
	c := newTestClient(t, srv)

	calls := 0
	cancel := c.OnSessionChange(func(*auth.Session) { calls++ })
	cancel()

	_, err := c.VerifyOTP(context.Background(), "+1234567890", gatewaytest.DefaultCode)
	require.NoError(t, err)
	assert.Zero(t, calls)
}
