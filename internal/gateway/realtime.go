package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hackx/skillos/internal/errors"
	"github.com/hackx/skillos/internal/metrics"
)

// Phoenix channel events used by the realtime service.
const (
	eventJoin            = "phx_join"
	eventLeave           = "phx_leave"
	eventReply           = "phx_reply"
	eventError           = "phx_error"
	eventClose           = "phx_close"
	eventHeartbeat       = "heartbeat"
	eventPostgresChanges = "postgres_changes"
	topicPhoenix         = "phoenix"
)

// phxMessage is a Phoenix channel frame (JSON serializer v1).
type phxMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     *string         `json:"ref"`
	JoinRef *string         `json:"join_ref,omitempty"`
}

type replyPayload struct {
	Status   string `json:"status"`
	Response struct {
		Reason string `json:"reason"`
	} `json:"response"`
}

type changesPayload struct {
	Data struct {
		Type   string   `json:"type"`
		Table  string   `json:"table"`
		Record statsRow `json:"record"`
	} `json:"data"`
}

// Subscribe opens a realtime channel delivering inserts on the metrics
// table where user_id = userID. The returned subscription reconnects on its
// own with the client's backoff schedule, emitting StatusConnecting before
// each attempt, until Close, ctx cancellation, or MaxReconnects consecutive
// failures, after which its event channel is closed.
func (c *Client) Subscribe(ctx context.Context, userID string) (metrics.Subscription, error) {
	wsURL, err := c.realtimeURL()
	if err != nil {
		return nil, err
	}

	sub := &realtimeSubscription{
		client: c,
		userID: userID,
		url:    wsURL,
		topic:  "realtime:metrics-" + uuid.NewString(),
		events: make(chan metrics.Event, 16),
		done:   make(chan struct{}),
	}

	sub.wg.Add(1)
	go sub.run(ctx)
	return sub, nil
}

func (c *Client) realtimeURL() (string, error) {
	u := *c.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", errors.New(errors.ErrConfig,
			fmt.Sprintf("Unsupported gateway URL scheme %q", u.Scheme),
			"Use an http or https project URL")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/realtime/v1/websocket"
	u.RawQuery = url.Values{"apikey": {c.opts.AnonKey}, "vsn": {"1.0.0"}}.Encode()
	return u.String(), nil
}

// realtimeSubscription is one Phoenix channel joined over a websocket.
type realtimeSubscription struct {
	client *Client
	userID string
	url    string
	topic  string

	events    chan metrics.Event
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	mu      sync.Mutex // guards conn
	conn    *websocket.Conn
	writeMu sync.Mutex
	ref     int
}

func (s *realtimeSubscription) Events() <-chan metrics.Event {
	return s.events
}

// Close leaves the channel, closes the socket and waits for the
// subscription goroutines to exit.
func (s *realtimeSubscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn != nil {
			_ = s.write(conn, phxMessage{Topic: s.topic, Event: eventLeave, Payload: json.RawMessage(`{}`)})
			_ = conn.Close()
		}
	})
	s.wg.Wait()
	return nil
}

func (s *realtimeSubscription) run(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.events)

	log := s.client.log
	backoff := s.client.opts.ReconnectBackoff
	failures := 0

	for {
		if s.stopped(ctx) {
			return
		}
		if !s.emit(ctx, metrics.StatusEvent(metrics.StatusConnecting, nil)) {
			return
		}

		joined, err := s.session(ctx)
		if s.stopped(ctx) {
			return
		}
		if joined {
			failures = 0
		} else {
			failures++
		}
		if err == nil {
			err = errors.New(errors.ErrConnection, "Realtime channel closed", "")
		}
		log.Debug("realtime %s ended: %v", s.topic, errors.Message(err))
		if !s.emit(ctx, metrics.StatusEvent(metrics.StatusDisconnected, err)) {
			return
		}

		limit := s.client.opts.MaxReconnects
		if limit > 0 && failures >= limit {
			log.Warn("realtime giving up after %d failed attempts", failures)
			return
		}

		wait := backoff[len(backoff)-1]
		if failures > 0 && failures-1 < len(backoff) {
			wait = backoff[failures-1]
		} else if failures == 0 {
			wait = backoff[0]
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.done:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// session dials, joins and pumps one connection until it fails. joined
// reports whether the join was acknowledged.
func (s *realtimeSubscription) session(ctx context.Context) (joined bool, err error) {
	dialer := websocket.Dialer{HandshakeTimeout: s.client.opts.Timeout}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return false, errors.WrapWithCode(err, errors.ErrConnection, "Realtime connection failed", "")
	}

	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		_ = conn.Close()
		return false, nil
	default:
	}
	s.conn = conn
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		_ = conn.Close()
	}()

	joinRef, err := s.join(conn)
	if err != nil {
		return false, errors.WrapWithCode(err, errors.ErrConnection, "Realtime join failed", "")
	}

	stopHeartbeat := make(chan struct{})
	defer close(stopHeartbeat)
	go s.heartbeat(conn, stopHeartbeat)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return joined, errors.WrapWithCode(err, errors.ErrConnection, "Realtime connection lost", "")
		}

		var msg phxMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.client.log.Debug("realtime: ignoring undecodable frame: %v", err)
			continue
		}
		if msg.Topic != s.topic {
			continue
		}

		switch msg.Event {
		case eventReply:
			if msg.Ref == nil || *msg.Ref != joinRef {
				continue
			}
			var reply replyPayload
			_ = json.Unmarshal(msg.Payload, &reply)
			if reply.Status != "ok" {
				reason := reply.Response.Reason
				if reason == "" {
					reason = reply.Status
				}
				return false, errors.New(errors.ErrConnection, "Realtime join rejected: "+reason, "")
			}
			joined = true
			if !s.emit(ctx, metrics.StatusEvent(metrics.StatusConnected, nil)) {
				return joined, nil
			}

		case eventPostgresChanges:
			var change changesPayload
			if err := json.Unmarshal(msg.Payload, &change); err != nil {
				s.client.log.Debug("realtime: bad change payload: %v", err)
				continue
			}
			if change.Data.Type != "INSERT" {
				continue
			}
			if change.Data.Record.UserID != "" && change.Data.Record.UserID != s.userID {
				continue
			}
			sample, err := change.Data.Record.sample()
			if err != nil {
				s.client.log.Warn("realtime: skipping row: %v", err)
				continue
			}
			if !s.emit(ctx, metrics.InsertEvent(sample)) {
				return joined, nil
			}

		case eventError:
			return joined, errors.New(errors.ErrConnection, "Realtime channel error", "")

		case eventClose:
			return joined, errors.New(errors.ErrConnection, "Realtime channel closed by server", "")
		}
	}
}

// join sends phx_join with the postgres_changes filter and returns its ref.
func (s *realtimeSubscription) join(conn *websocket.Conn) (string, error) {
	payload := map[string]interface{}{
		"config": map[string]interface{}{
			"broadcast": map[string]bool{"ack": false, "self": false},
			"presence":  map[string]string{"key": ""},
			"postgres_changes": []map[string]string{{
				"event":  "INSERT",
				"schema": "public",
				"table":  s.client.opts.MetricsTable,
				"filter": "user_id=eq." + s.userID,
			}},
		},
		"access_token": s.client.bearer(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	ref := s.nextRef()
	msg := phxMessage{Topic: s.topic, Event: eventJoin, Payload: data, Ref: &ref, JoinRef: &ref}
	return ref, s.write(conn, msg)
}

func (s *realtimeSubscription) heartbeat(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(s.client.opts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-s.done:
			return
		case <-ticker.C:
			ref := s.nextRef()
			msg := phxMessage{Topic: topicPhoenix, Event: eventHeartbeat, Payload: json.RawMessage(`{}`), Ref: &ref}
			if err := s.write(conn, msg); err != nil {
				s.client.log.Debug("realtime heartbeat failed: %v", err)
				return
			}
		}
	}
}

func (s *realtimeSubscription) write(conn *websocket.Conn, msg phxMessage) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(msg)
}

func (s *realtimeSubscription) nextRef() string {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.ref++
	return strconv.Itoa(s.ref)
}

// emit delivers ev unless the subscription is stopping.
func (s *realtimeSubscription) emit(ctx context.Context, ev metrics.Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (s *realtimeSubscription) stopped(ctx context.Context) bool {
	select {
	case <-s.done:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
