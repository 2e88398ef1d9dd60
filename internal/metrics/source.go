package metrics

import "context"

// EventKind identifies the type of a subscription event.
type EventKind int

const (
	// EventInsert carries a newly inserted sample.
	EventInsert EventKind = iota
	// EventStatus reports a change of the subscription's connection status.
	EventStatus
)

// Event is a single message from a change subscription.
type Event struct {
	Kind   EventKind
	Sample Sample // set for EventInsert
	Status Status // set for EventStatus
	Err    error  // optional cause for StatusDisconnected
}

// InsertEvent builds an insert event.
func InsertEvent(s Sample) Event {
	return Event{Kind: EventInsert, Sample: s}
}

// StatusEvent builds a status change event.
func StatusEvent(status Status, err error) Event {
	return Event{Kind: EventStatus, Status: status, Err: err}
}

// Subscription is an open change feed for one user's metrics.
// Events are delivered in arrival order. The channel is closed when the
// subscription ends, either through Close or because the gateway gave up.
type Subscription interface {
	Events() <-chan Event
	Close() error
}

// Source is the gateway surface the feed depends on.
type Source interface {
	// FetchRecent returns the newest limit samples for userID in ascending
	// timestamp order.
	FetchRecent(ctx context.Context, userID string, limit int) ([]Sample, error)

	// Subscribe opens a change subscription for inserts where user_id = userID.
	Subscribe(ctx context.Context, userID string) (Subscription, error)
}
