// Package gatewaytest runs an in-process gateway speaking the REST, auth and
// realtime protocols used by the gateway client, for tests.
package gatewaytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// AnonKey is the API key the server accepts.
const AnonKey = "test-anon-key"

// DefaultCode is the passcode accepted by verify unless Code is changed.
const DefaultCode = "123456"

// Row is a stored metrics row.
type Row struct {
	UserID        string   `json:"user_id"`
	CognitiveLoad *float64 `json:"cognitive_load"`
	EnergyLevel   *float64 `json:"energy_level"`
	CreatedAt     string   `json:"created_at"`
}

// NewRow builds a row with an RFC 3339 timestamp.
func NewRow(userID string, load, energy float64, at time.Time) Row {
	return Row{
		UserID:        userID,
		CognitiveLoad: &load,
		EnergyLevel:   &energy,
		CreatedAt:     at.UTC().Format(time.RFC3339Nano),
	}
}

type channel struct {
	topic  string
	userID string
}

type wsConn struct {
	conn     *websocket.Conn
	writeMu  sync.Mutex
	channels []channel
}

func (c *wsConn) send(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// Server is a fake gateway backed by httptest.
type Server struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu            sync.Mutex
	rows          []Row
	code          string
	otpStatus     int
	otpMessage    string
	verifyStatus  int
	verifyMessage string
	logoutStatus  int
	refreshStatus int
	rejectJoin    string
	refuseWS      bool
	users         map[string]string // phone -> id
	sent          []string
	tokens        map[string]string // access token -> user id
	refresh       map[string]string // refresh token -> user id
	expiresIn     int64
	conns         map[*wsConn]struct{}
	joins         int
	heartbeats    int
	headers       []http.Header
}

// New starts a server. Callers must Close it.
func New() *Server {
	s := &Server{
		code:      DefaultCode,
		users:     make(map[string]string),
		tokens:    make(map[string]string),
		refresh:   make(map[string]string),
		conns:     make(map[*wsConn]struct{}),
		expiresIn: 3600,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.srv = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/rest/v1/{table}", s.handleSelect).Methods(http.MethodGet)
	r.HandleFunc("/auth/v1/otp", s.handleOTP).Methods(http.MethodPost)
	r.HandleFunc("/auth/v1/verify", s.handleVerify).Methods(http.MethodPost)
	r.HandleFunc("/auth/v1/token", s.handleToken).Methods(http.MethodPost)
	r.HandleFunc("/auth/v1/logout", s.handleLogout).Methods(http.MethodPost)
	r.HandleFunc("/realtime/v1/websocket", s.handleRealtime).Methods(http.MethodGet)
	r.Use(s.requireKey)
	return r
}

// URL returns the base URL of the server.
func (s *Server) URL() string {
	return s.srv.URL
}

// Close drops every websocket and stops the server.
func (s *Server) Close() {
	s.DropConnections()
	s.srv.Close()
}

// AddRows stores rows without notifying subscribers.
func (s *Server) AddRows(rows ...Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
}

// Insert stores row and broadcasts it to matching realtime channels.
func (s *Server) Insert(row Row) {
	s.mu.Lock()
	s.rows = append(s.rows, row)
	var targets []*wsConn
	var topics []string
	for c := range s.conns {
		for _, ch := range c.channels {
			if ch.userID == row.UserID {
				targets = append(targets, c)
				topics = append(topics, ch.topic)
			}
		}
	}
	s.mu.Unlock()

	for i, c := range targets {
		_ = c.send(map[string]interface{}{
			"topic": topics[i],
			"event": "postgres_changes",
			"payload": map[string]interface{}{
				"data": map[string]interface{}{
					"type":   "INSERT",
					"schema": "public",
					"table":  "system_stats",
					"record": row,
				},
			},
			"ref": nil,
		})
	}
}

// UserID returns the id assigned to phone, creating one if needed.
func (s *Server) UserID(phone string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userLocked(phone)
}

func (s *Server) userLocked(phone string) string {
	id, ok := s.users[phone]
	if !ok {
		id = uuid.NewString()
		s.users[phone] = id
	}
	return id
}

// SetCode changes the passcode accepted by verify.
func (s *Server) SetCode(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code = code
}

// FailOTP makes send-code requests fail with status and message. A zero
// status restores success.
func (s *Server) FailOTP(status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.otpStatus, s.otpMessage = status, message
}

// FailVerify makes verify requests fail with status and message.
func (s *Server) FailVerify(status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifyStatus, s.verifyMessage = status, message
}

// FailLogout makes logout fail with status.
func (s *Server) FailLogout(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logoutStatus = status
}

// FailRefresh makes token refresh fail with status without consuming the
// refresh token. A zero status restores success.
func (s *Server) FailRefresh(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshStatus = status
}

// SetExpiresIn sets the lifetime in seconds of issued sessions.
func (s *Server) SetExpiresIn(secs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiresIn = secs
}

// RejectJoins makes channel joins fail with reason. Empty accepts joins.
func (s *Server) RejectJoins(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectJoin = reason
}

// RefuseRealtime makes websocket upgrades fail.
func (s *Server) RefuseRealtime(refuse bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refuseWS = refuse
}

// DropConnections closes every open websocket.
func (s *Server) DropConnections() {
	s.mu.Lock()
	conns := make([]*wsConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.conns = make(map[*wsConn]struct{})
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.conn.Close()
	}
}

// SentOTPs returns the phone numbers codes were sent to.
func (s *Server) SentOTPs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

// Joins returns the number of accepted channel joins.
func (s *Server) Joins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.joins
}

// Heartbeats returns the number of heartbeats received.
func (s *Server) Heartbeats() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heartbeats
}

// Headers returns the headers of every HTTP request received.
func (s *Server) Headers() []http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]http.Header(nil), s.headers...)
}

func (s *Server) requireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.headers = append(s.headers, r.Header.Clone())
		s.mu.Unlock()

		key := r.Header.Get("apikey")
		if key == "" {
			key = r.URL.Query().Get("apikey")
		}
		if key != AnonKey {
			writeError(w, http.StatusUnauthorized, "Invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := strings.TrimPrefix(q.Get("user_id"), "eq.")
	limit, _ := strconv.Atoi(q.Get("limit"))

	s.mu.Lock()
	var rows []Row
	for _, row := range s.rows {
		if row.UserID == userID {
			rows = append(rows, row)
		}
	}
	s.mu.Unlock()

	desc := q.Get("order") == "created_at.desc"
	sort.SliceStable(rows, func(i, j int) bool {
		if desc {
			return rows[i].CreatedAt > rows[j].CreatedAt
		}
		return rows[i].CreatedAt < rows[j].CreatedAt
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	if rows == nil {
		rows = []Row{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleOTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Phone == "" {
		writeError(w, http.StatusBadRequest, "Phone is required")
		return
	}

	s.mu.Lock()
	status, msg := s.otpStatus, s.otpMessage
	if status == 0 {
		s.sent = append(s.sent, body.Phone)
		s.userLocked(body.Phone)
	}
	s.mu.Unlock()

	if status != 0 {
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Phone string `json:"phone"`
		Token string `json:"token"`
		Type  string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}

	s.mu.Lock()
	if s.verifyStatus != 0 {
		status, msg := s.verifyStatus, s.verifyMessage
		s.mu.Unlock()
		writeError(w, status, msg)
		return
	}
	if body.Type != "sms" || body.Token != s.code {
		s.mu.Unlock()
		writeError(w, http.StatusForbidden, "Token has expired or is invalid")
		return
	}
	resp := s.issueLocked(s.userLocked(body.Phone), body.Phone)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if r.URL.Query().Get("grant_type") != "refresh_token" {
		writeError(w, http.StatusBadRequest, "Unsupported grant type")
		return
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	if status := s.refreshStatus; status != 0 {
		s.mu.Unlock()
		writeError(w, status, http.StatusText(status))
		return
	}
	userID, ok := s.refresh[body.RefreshToken]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, "Invalid Refresh Token")
		return
	}
	delete(s.refresh, body.RefreshToken)
	phone := ""
	for p, id := range s.users {
		if id == userID {
			phone = p
		}
	}
	resp := s.issueLocked(userID, phone)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	s.mu.Lock()
	status := s.logoutStatus
	delete(s.tokens, token)
	s.mu.Unlock()

	if status != 0 {
		writeError(w, status, "Logout failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) issueLocked(userID, phone string) map[string]interface{} {
	access := uuid.NewString()
	refresh := uuid.NewString()
	s.tokens[access] = userID
	s.refresh[refresh] = userID
	return map[string]interface{}{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "bearer",
		"expires_in":    s.expiresIn,
		"user":          map[string]string{"id": userID, "phone": phone},
	}
}

type frame struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     *string         `json:"ref"`
}

func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	refuse := s.refuseWS
	s.mu.Unlock()
	if refuse {
		writeError(w, http.StatusServiceUnavailable, "Realtime unavailable")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &wsConn{conn: conn}
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg frame
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Event {
		case "heartbeat":
			s.mu.Lock()
			s.heartbeats++
			s.mu.Unlock()
			_ = c.send(reply(msg, "ok", ""))

		case "phx_join":
			s.mu.Lock()
			reason := s.rejectJoin
			if reason == "" {
				c.channels = append(c.channels, channel{topic: msg.Topic, userID: joinFilter(msg.Payload)})
				s.joins++
			}
			s.mu.Unlock()
			if reason != "" {
				_ = c.send(reply(msg, "error", reason))
				continue
			}
			_ = c.send(reply(msg, "ok", ""))

		case "phx_leave":
			s.mu.Lock()
			kept := c.channels[:0]
			for _, ch := range c.channels {
				if ch.topic != msg.Topic {
					kept = append(kept, ch)
				}
			}
			c.channels = kept
			s.mu.Unlock()
		}
	}
}

// joinFilter extracts the user id from a "user_id=eq.<id>" filter.
func joinFilter(payload json.RawMessage) string {
	var join struct {
		Config struct {
			PostgresChanges []struct {
				Filter string `json:"filter"`
			} `json:"postgres_changes"`
		} `json:"config"`
	}
	if err := json.Unmarshal(payload, &join); err != nil {
		return ""
	}
	for _, pc := range join.Config.PostgresChanges {
		if strings.HasPrefix(pc.Filter, "user_id=eq.") {
			return strings.TrimPrefix(pc.Filter, "user_id=eq.")
		}
	}
	return ""
}

func reply(msg frame, status, reason string) map[string]interface{} {
	response := map[string]interface{}{}
	if reason != "" {
		response["reason"] = reason
	}
	return map[string]interface{}{
		"topic":   msg.Topic,
		"event":   "phx_reply",
		"payload": map[string]interface{}{"status": status, "response": response},
		"ref":     msg.Ref,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"msg": msg})
}
