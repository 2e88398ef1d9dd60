package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/hackx/skillos/internal/errors"
	"github.com/hackx/skillos/internal/logger"
)

// Default timings for the feed.
const (
	DefaultPollInterval     = 10 * time.Second
	DefaultResubscribeDelay = 5 * time.Second
)

// Options configures a Feed.
type Options struct {
	// Capacity is the window size (DefaultCapacity if zero).
	Capacity int

	// PollInterval is how often the bounded query is re-issued while the
	// subscription is disconnected.
	PollInterval time.Duration

	// ResubscribeDelay is the wait before re-arming a subscription whose
	// event channel ended without a teardown.
	ResubscribeDelay time.Duration

	Logger logger.Logger

	// Now is the clock used for UpdatedAt (time.Now if nil).
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Capacity <= 0 {
		o.Capacity = DefaultCapacity
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.ResubscribeDelay <= 0 {
		o.ResubscribeDelay = DefaultResubscribeDelay
	}
	if o.Logger == nil {
		o.Logger = logger.NewEnvLogger("[feed]")
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// State is a read-only snapshot of a feed for presentation.
type State struct {
	Samples   []Sample
	Latest    *Sample // nil when the window is empty
	Status    Status
	Series    Series
	Err       error // last fetch or connection error, nil when healthy
	UpdatedAt time.Time
	Capacity  int
}

// Feed keeps a bounded window of one user's samples in sync with the
// gateway: an initial bulk fetch, then incremental inserts from a change
// subscription, falling back to periodic re-fetch while disconnected.
//
// All window mutations happen under one lock in completion order, so a
// refresh racing an insert resolves last-writer-wins. After Close, every
// late result is discarded.
type Feed struct {
	source Source
	userID string
	opts   Options
	log    logger.Logger

	mu        sync.Mutex
	window    *Window
	status    Status
	err       error
	updatedAt time.Time
	started   bool
	closed    bool
	sub       Subscription
	cancel    context.CancelFunc
	updates   chan struct{}

	wg sync.WaitGroup
}

// NewFeed creates a feed for userID. Nothing is fetched until Start.
func NewFeed(source Source, userID string, opts Options) *Feed {
	opts = opts.withDefaults()
	return &Feed{
		source:  source,
		userID:  userID,
		opts:    opts,
		log:     opts.Logger,
		window:  NewWindow(opts.Capacity),
		status:  StatusConnecting,
		updates: make(chan struct{}, 1),
	}
}

// Start performs the initial bounded fetch, opens the change subscription
// and launches the reducer goroutine. A failed fetch or subscribe does not
// fail Start; it is reported through Snapshot().Err and retried by the
// polling fallback.
func (f *Feed) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return errors.New(errors.ErrConnection, "Metrics feed already closed", "")
	}
	if f.started {
		f.mu.Unlock()
		return nil
	}
	f.started = true
	f.status = StatusConnecting
	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.notifyLocked()
	f.mu.Unlock()

	f.load(runCtx)

	sub, err := f.source.Subscribe(runCtx, f.userID)
	if err != nil {
		f.log.Warn("subscribe failed for %s: %v", f.userID, err)
		f.applyStatus(StatusDisconnected, err)
		sub = nil
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		if sub != nil {
			_ = sub.Close()
		}
		return nil
	}
	f.sub = sub
	f.wg.Add(1)
	f.mu.Unlock()

	go f.run(runCtx, sub)
	return nil
}

// Refresh re-issues the bounded query and replaces the window wholesale.
// The subscription is left untouched. Safe to call in any status.
func (f *Feed) Refresh(ctx context.Context) error {
	return f.load(ctx)
}

// Snapshot returns a copy of the current state.
func (f *Feed) Snapshot() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	st := State{
		Samples:   f.window.Samples(),
		Status:    f.status,
		Series:    f.window.Series(),
		Err:       f.err,
		UpdatedAt: f.updatedAt,
		Capacity:  f.window.Capacity(),
	}
	if latest, ok := f.window.Latest(); ok {
		st.Latest = &latest
	}
	return st
}

// Updates returns a channel signalled after every state change. Signals
// coalesce; readers should call Snapshot on receipt. The channel is closed
// by Close.
func (f *Feed) Updates() <-chan struct{} {
	return f.updates
}

// Close unsubscribes, stops the polling timer and waits for the reducer to
// exit. Subsequent results from in-flight calls are ignored.
func (f *Feed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	sub := f.sub
	f.sub = nil
	if f.cancel != nil {
		f.cancel()
	}
	close(f.updates)
	f.mu.Unlock()

	var err error
	if sub != nil {
		err = sub.Close()
	}
	f.wg.Wait()
	return err
}

// run is the single reducer consuming subscription events.
func (f *Feed) run(ctx context.Context, sub Subscription) {
	defer f.wg.Done()

	var events <-chan Event
	if sub != nil {
		events = sub.Events()
	}

	var (
		poll    *time.Ticker
		pollC   <-chan time.Time
		resub   *time.Timer
		resubC  <-chan time.Time
		stopAll = func() {
			if poll != nil {
				poll.Stop()
			}
			if resub != nil {
				resub.Stop()
			}
		}
	)
	defer stopAll()

	armResubscribe := func() {
		if resub != nil {
			resub.Stop()
		}
		resub = time.NewTimer(f.opts.ResubscribeDelay)
		resubC = resub.C
	}

	if events == nil {
		armResubscribe()
	}

	for {
		// Polling starts on disconnect and keeps its phase through reconnect
		// attempts; only a confirmed connection stops it.
		switch f.currentStatus() {
		case StatusDisconnected:
			if poll == nil {
				poll = time.NewTicker(f.opts.PollInterval)
				pollC = poll.C
			}
		case StatusConnected:
			if poll != nil {
				poll.Stop()
				poll, pollC = nil, nil
			}
		}

		select {
		case <-ctx.Done():
			return

		case ev, ok := <-events:
			if !ok {
				events = nil
				f.mu.Lock()
				f.sub = nil
				f.mu.Unlock()
				f.applyStatus(StatusDisconnected,
					errors.New(errors.ErrConnection, "Realtime subscription ended", ""))
				armResubscribe()
				continue
			}
			f.apply(ev)

		case <-pollC:
			f.log.Debug("polling %s while disconnected", f.userID)
			_ = f.load(ctx)

		case <-resubC:
			resub, resubC = nil, nil
			next, err := f.source.Subscribe(ctx, f.userID)
			if err != nil {
				f.log.Warn("resubscribe failed for %s: %v", f.userID, err)
				f.applyStatus(StatusDisconnected, err)
				armResubscribe()
				continue
			}
			if !f.adopt(next) {
				return
			}
			f.applyStatus(StatusConnecting, nil)
			events = next.Events()
		}
	}
}

// adopt records sub as the active subscription. Returns false and closes
// sub if the feed was torn down in the meantime.
func (f *Feed) adopt(sub Subscription) bool {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		_ = sub.Close()
		return false
	}
	f.sub = sub
	f.mu.Unlock()
	return true
}

// load runs the bounded historical query and replaces the window.
func (f *Feed) load(ctx context.Context) error {
	samples, err := f.source.FetchRecent(ctx, f.userID, f.opts.Capacity)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}

	if err != nil {
		f.log.Warn("fetch recent metrics for %s: %v", f.userID, err)
		f.err = errors.WrapWithCode(err, errors.ErrFetch,
			"Failed to load recent metrics",
			"Press r to retry, or check gateway.url in your config")
		f.notifyLocked()
		return f.err
	}

	f.window.Replace(samples)
	if errors.IsCode(f.err, errors.ErrFetch) {
		f.err = nil
	}
	f.updatedAt = f.opts.Now()
	f.log.Debug("window replaced with %d samples", f.window.Len())
	f.notifyLocked()
	return nil
}

// apply reduces a single subscription event into the state.
func (f *Feed) apply(ev Event) {
	switch ev.Kind {
	case EventInsert:
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.closed {
			return
		}
		f.window.Push(ev.Sample)
		f.updatedAt = f.opts.Now()
		f.notifyLocked()

	case EventStatus:
		f.applyStatus(ev.Status, ev.Err)
	}
}

func (f *Feed) applyStatus(status Status, cause error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}

	if status != f.status {
		f.log.Debug("status %s -> %s", f.status, status)
	}
	f.status = status

	switch status {
	case StatusDisconnected:
		// Existing samples are kept; stale data beats a blank view.
		if cause != nil && !errors.IsCode(cause, errors.ErrConnection) {
			cause = errors.WrapWithCode(cause, errors.ErrConnection, "Realtime disconnected", "")
		}
		if cause == nil {
			cause = errors.New(errors.ErrConnection, "Realtime disconnected", "")
		}
		if !errors.IsCode(f.err, errors.ErrFetch) {
			f.err = cause
		}
	case StatusConnected:
		if errors.IsCode(f.err, errors.ErrConnection) {
			f.err = nil
		}
	}
	f.notifyLocked()
}

func (f *Feed) currentStatus() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// notifyLocked signals Updates without blocking. Must be called with f.mu
// held and the feed open.
func (f *Feed) notifyLocked() {
	select {
	case f.updates <- struct{}{}:
	default:
	}
}
