// Package testing provides test doubles for the gateway package.
package testing

import (
	"context"
	"sync"

	"github.com/hackx/skillos/internal/auth"
	"github.com/hackx/skillos/internal/metrics"
)

// FakeSubscription is a controllable metrics subscription.
type FakeSubscription struct {
	mu     sync.Mutex
	events chan metrics.Event
	ended  bool
	closed bool
}

// NewFakeSubscription creates an open subscription with a buffered channel.
func NewFakeSubscription() *FakeSubscription {
	return &FakeSubscription{events: make(chan metrics.Event, 64)}
}

// Events implements metrics.Subscription.
func (s *FakeSubscription) Events() <-chan metrics.Event {
	return s.events
}

// Insert delivers an insert event. Dropped once the subscription has ended.
func (s *FakeSubscription) Insert(sample metrics.Sample) {
	s.emit(metrics.InsertEvent(sample))
}

// SetStatus delivers a status event.
func (s *FakeSubscription) SetStatus(status metrics.Status, err error) {
	s.emit(metrics.StatusEvent(status, err))
}

// End closes the event channel as if the gateway gave up.
func (s *FakeSubscription) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.ended = true
		close(s.events)
	}
}

// Close implements metrics.Subscription.
func (s *FakeSubscription) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.End()
	return nil
}

// Closed reports whether Close was called.
func (s *FakeSubscription) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *FakeSubscription) emit(ev metrics.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	select {
	case s.events <- ev:
	default:
	}
}

// FetchCall records a call to FetchRecent.
type FetchCall struct {
	UserID string
	Limit  int
}

// VerifyCall records a call to VerifyOTP.
type VerifyCall struct {
	Phone string
	Code  string
}

// FakeGateway implements metrics.Source and auth.Provider in memory.
type FakeGateway struct {
	mu sync.Mutex

	// Metrics configuration
	Samples      []metrics.Sample // returned by FetchRecent, newest limit only
	FetchErr     error
	FetchGate    chan struct{} // if set, FetchRecent blocks until it is closed or ctx ends
	SubscribeErr error

	// Auth configuration
	AuthGate   chan struct{} // if set, SendOTP and VerifyOTP block until it is closed or ctx ends
	SendOTPErr error
	VerifyErr  error
	SignOutErr error
	SessionErr error // returned by CurrentSession
	ValidCode  string // if set, any other code is rejected with VerifyErr
	User       auth.User
	Session    *auth.Session

	// Call tracking
	FetchCalls     []FetchCall
	SubscribeCalls []string
	SendOTPCalls   []string
	VerifyCalls    []VerifyCall
	SignOutCalls   int

	subs      []*FakeSubscription
	listeners map[int]func(*auth.Session)
	nextID    int
}

// NewFakeGateway creates a fake that succeeds by default.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		User:      auth.User{ID: "user-1"},
		listeners: make(map[int]func(*auth.Session)),
	}
}

// SetSamples replaces the rows served by FetchRecent.
func (g *FakeGateway) SetSamples(samples []metrics.Sample) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Samples = append([]metrics.Sample(nil), samples...)
}

// SetFetchErr sets the error returned by FetchRecent.
func (g *FakeGateway) SetFetchErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.FetchErr = err
}

// SetSendOTPErr sets the error returned by SendOTP.
func (g *FakeGateway) SetSendOTPErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.SendOTPErr = err
}

// SetVerifyErr sets the error returned by VerifyOTP.
func (g *FakeGateway) SetVerifyErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.VerifyErr = err
}

// FetchRecent implements metrics.Source.
func (g *FakeGateway) FetchRecent(ctx context.Context, userID string, limit int) ([]metrics.Sample, error) {
	g.mu.Lock()
	g.FetchCalls = append(g.FetchCalls, FetchCall{UserID: userID, Limit: limit})
	gate := g.FetchGate
	g.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FetchErr != nil {
		return nil, g.FetchErr
	}
	out := g.Samples
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return append([]metrics.Sample(nil), out...), nil
}

// FetchCount returns the number of FetchRecent calls.
func (g *FakeGateway) FetchCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.FetchCalls)
}

// Subscribe implements metrics.Source. Each call opens a new subscription.
func (g *FakeGateway) Subscribe(ctx context.Context, userID string) (metrics.Subscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.SubscribeCalls = append(g.SubscribeCalls, userID)
	if g.SubscribeErr != nil {
		return nil, g.SubscribeErr
	}
	sub := NewFakeSubscription()
	g.subs = append(g.subs, sub)
	return sub, nil
}

// Subscription returns the most recent subscription, or nil.
func (g *FakeGateway) Subscription() *FakeSubscription {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.subs) == 0 {
		return nil
	}
	return g.subs[len(g.subs)-1]
}

// SubscriptionCount returns how many subscriptions were opened.
func (g *FakeGateway) SubscriptionCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subs)
}

// SendOTP implements auth.Provider.
func (g *FakeGateway) SendOTP(ctx context.Context, phone string) error {
	g.mu.Lock()
	g.SendOTPCalls = append(g.SendOTPCalls, phone)
	g.mu.Unlock()

	if err := g.wait(ctx); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.SendOTPErr
}

// VerifyOTP implements auth.Provider.
func (g *FakeGateway) VerifyOTP(ctx context.Context, phone, code string) (*auth.Session, error) {
	g.mu.Lock()
	g.VerifyCalls = append(g.VerifyCalls, VerifyCall{Phone: phone, Code: code})
	g.mu.Unlock()

	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	g.mu.Lock()
	if g.VerifyErr != nil && (g.ValidCode == "" || code != g.ValidCode) {
		err := g.VerifyErr
		g.mu.Unlock()
		return nil, err
	}
	user := g.User
	user.Phone = phone
	session := &auth.Session{AccessToken: "token-" + code, RefreshToken: "refresh", User: user}
	g.Session = session
	g.mu.Unlock()

	g.notify(session)
	return session, nil
}

// SignOut implements auth.Provider.
func (g *FakeGateway) SignOut(ctx context.Context) error {
	g.mu.Lock()
	g.SignOutCalls++
	g.Session = nil
	err := g.SignOutErr
	g.mu.Unlock()

	g.notify(nil)
	return err
}

// CurrentSession implements auth.Provider.
func (g *FakeGateway) CurrentSession(ctx context.Context) (*auth.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.SessionErr != nil {
		return nil, g.SessionErr
	}
	if g.Session == nil {
		return nil, nil
	}
	cp := *g.Session
	return &cp, nil
}

// OnSessionChange implements auth.Provider.
func (g *FakeGateway) OnSessionChange(fn func(*auth.Session)) func() {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.listeners[id] = fn
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		delete(g.listeners, id)
		g.mu.Unlock()
	}
}

// SendOTPCount returns the number of SendOTP calls.
func (g *FakeGateway) SendOTPCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.SendOTPCalls)
}

// VerifyCount returns the number of VerifyOTP calls.
func (g *FakeGateway) VerifyCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.VerifyCalls)
}

func (g *FakeGateway) wait(ctx context.Context) error {
	g.mu.Lock()
	gate := g.AuthGate
	g.mu.Unlock()
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *FakeGateway) notify(session *auth.Session) {
	g.mu.Lock()
	listeners := make([]func(*auth.Session), 0, len(g.listeners))
	for _, fn := range g.listeners {
		listeners = append(listeners, fn)
	}
	g.mu.Unlock()
	for _, fn := range listeners {
		fn(session)
	}
}
