// Package signaling implements the presence-and-relay core: a WebSocket
// endpoint through which peers publish an identifier, address each other
// by it, and exchange opaque signaling payloads directly or via rooms.
//
// Error policy throughout is silent drop with a server-side log and drop
// counter only. A sender cannot distinguish a peer that is offline from a
// rate-limited or malformed request; that is the intended contract.
package signaling

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/aryandanave7-glitch/server5/internal/metrics"
	"github.com/aryandanave7-glitch/server5/internal/presence"
	"github.com/aryandanave7-glitch/server5/internal/ratelimit"
	"github.com/aryandanave7-glitch/server5/internal/rooms"
)

const writeWait = 1 * time.Second

// Config wires together the runtime dependencies for the signaling service.
type Config struct {
	Registry *presence.Registry
	Rooms    *rooms.Rooms

	// Limiter gates identifier registration and connection requests per
	// origin address. If nil, a limiter with default settings is used.
	Limiter *ratelimit.FixedWindow

	// Metrics may be nil; counters are then discarded.
	Metrics *metrics.Metrics

	Logger *slog.Logger

	MaxMessageBytes int64
}

// Server owns the live connection set and dispatches inbound events.
type Server struct {
	registry *presence.Registry
	rooms    *rooms.Rooms
	limiter  *ratelimit.FixedWindow
	metrics  *metrics.Metrics
	log      *slog.Logger

	maxMessageBytes int64

	mu    sync.Mutex
	conns map[string]*conn
}

func NewServer(cfg Config) *Server {
	if cfg.Registry == nil {
		cfg.Registry = presence.NewRegistry()
	}
	if cfg.Rooms == nil {
		cfg.Rooms = rooms.New()
	}
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.NewFixedWindow(ratelimit.RealClock{}, 20, time.Minute)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = 64 * 1024
	}

	return &Server{
		registry:        cfg.Registry,
		rooms:           cfg.Rooms,
		limiter:         cfg.Limiter,
		metrics:         cfg.Metrics,
		log:             cfg.Logger,
		maxMessageBytes: cfg.MaxMessageBytes,
		conns:           make(map[string]*conn),
	}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", s.handleWebSocket)
}

// Close tears down every live connection. Used on shutdown.
func (s *Server) Close() {
	s.mu.Lock()
	conns := make([]*conn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.sock.Close()
	}
}

// conn annotates one live transport session. The identifier is set at most
// once, by registration, and read at teardown for O(1) registry cleanup.
// Both happen on the connection's own read loop, so the field needs no
// lock; cross-connection deliveries touch only sock and writeMu.
type conn struct {
	id     string
	origin string
	sock   *websocket.Conn

	writeMu sync.Mutex

	identifier string
}

func (c *conn) send(event string, data json.RawMessage) error {
	buf, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
	return c.sock.WriteMessage(websocket.TextMessage, buf)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		// The relay performs no authentication beyond rate limiting; accept
		// any Origin and let the per-origin limiter guard abuse.
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	sock, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &conn{
		id:     uuid.NewString(),
		origin: originAddr(r.RemoteAddr),
		sock:   sock,
	}

	s.track(c)
	s.metrics.ConnOpened()
	s.log.Info("connection opened", "conn_id", c.id, "origin", c.origin)

	defer s.teardown(c)

	sock.SetReadLimit(s.maxMessageBytes)
	for {
		msgType, data, err := sock.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			s.drop(c, "", metrics.DropReasonBadMessage, "binary message")
			continue
		}
		s.dispatch(c, data)
	}
}

// dispatch handles one inbound event synchronously on the connection's
// read loop. Handlers never block on slow I/O, so each handler's
// read-modify-write against the registry, limiter and room tables is
// atomic relative to other events on this connection.
func (s *Server) dispatch(c *conn, data []byte) {
	env, err := parseEnvelope(data)
	if err != nil {
		s.drop(c, "", metrics.DropReasonBadMessage, err.Error())
		return
	}

	if route, ok := relayRoutes[env.Event]; ok {
		s.relay(c, env.Event, route, env.Data)
		return
	}

	switch env.Event {
	case "register":
		s.handleRegister(c, env.Data)
	case "join":
		s.handleJoin(c, env.Data)
	case "signal", "auth":
		s.handleRoomRelay(c, env.Event, env.Data)
	default:
		s.drop(c, env.Event, metrics.DropReasonBadMessage, "unknown event")
	}
}

func (s *Server) relay(c *conn, event string, route relayRoute, raw json.RawMessage) {
	p, err := parseDirected(raw)
	if err != nil {
		s.drop(c, event, metrics.DropReasonBadMessage, err.Error())
		return
	}

	if route.rateLimited && !s.limiter.Allow(c.origin) {
		s.drop(c, event, metrics.DropReasonRateLimited, "")
		return
	}

	targetID, ok := s.registry.Resolve(p.to)
	if !ok {
		s.drop(c, event, metrics.DropReasonTargetNotFound, "")
		return
	}
	target := s.lookup(targetID)
	if target == nil {
		// Registry entry outlived its connection for an instant mid-teardown.
		s.drop(c, event, metrics.DropReasonTargetNotFound, "")
		return
	}

	out, err := p.outbound()
	if err != nil {
		s.drop(c, event, metrics.DropReasonBadMessage, err.Error())
		return
	}
	if err := target.send(route.outbound, out); err != nil {
		s.log.Warn("delivery failed", "conn_id", target.id, "event", route.outbound, "err", err)
		return
	}

	s.metrics.Relayed(route.outbound)
	s.log.Debug("event relayed",
		"event", event,
		"outbound", route.outbound,
		"from", p.from,
		"to", p.to,
		"conn_id", c.id,
		"target_conn_id", target.id,
	)
}

func (s *Server) handleRegister(c *conn, raw json.RawMessage) {
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		s.drop(c, "register", metrics.DropReasonBadMessage, err.Error())
		return
	}

	if !s.limiter.Allow(c.origin) {
		s.drop(c, "register", metrics.DropReasonRateLimited, "")
		return
	}

	normalized := presence.NormalizeID(id)
	if normalized == "" {
		s.log.Debug("register ignored, empty identifier", "conn_id", c.id)
		return
	}

	// The attached identifier is set at most once per connection. A later
	// register under the same identifier re-asserts the claim (reconnect
	// after displacement); a different identifier is ignored.
	if c.identifier != "" && c.identifier != normalized {
		s.log.Warn("register ignored, identifier already attached",
			"conn_id", c.id, "identifier", c.identifier)
		return
	}

	s.registry.Register(normalized, c.id)
	c.identifier = normalized

	s.metrics.Registered()
	s.log.Info("identifier registered", "conn_id", c.id, "identifier", normalized)
}

func (s *Server) handleJoin(c *conn, raw json.RawMessage) {
	var room string
	if err := json.Unmarshal(raw, &room); err != nil {
		s.drop(c, "join", metrics.DropReasonBadMessage, err.Error())
		return
	}
	if room == "" {
		s.drop(c, "join", metrics.DropReasonBadMessage, "empty room")
		return
	}

	s.rooms.Join(room, c.id)
	s.log.Info("joined room", "conn_id", c.id, "room", room)
}

func (s *Server) handleRoomRelay(c *conn, event string, raw json.RawMessage) {
	p, err := parseRoomPayload(raw)
	if err != nil {
		s.drop(c, event, metrics.DropReasonBadMessage, err.Error())
		return
	}

	for _, memberID := range s.rooms.Others(p.Room, c.id) {
		member := s.lookup(memberID)
		if member == nil {
			continue
		}
		if err := member.send(event, p.Payload); err != nil {
			s.log.Warn("delivery failed", "conn_id", member.id, "event", event, "err", err)
			continue
		}
		s.metrics.Relayed(event)
	}
}

func (s *Server) teardown(c *conn) {
	if c.identifier != "" {
		if s.registry.Unregister(c.identifier, c.id) {
			s.log.Info("identifier unregistered", "conn_id", c.id, "identifier", c.identifier)
		}
	}
	s.rooms.Drop(c.id)
	s.untrack(c.id)
	_ = c.sock.Close()

	s.metrics.ConnClosed()
	s.log.Info("connection closed", "conn_id", c.id)
}

func (s *Server) drop(c *conn, event, reason, detail string) {
	s.metrics.Dropped(reason)
	s.log.Debug("event dropped",
		"conn_id", c.id,
		"origin", c.origin,
		"event", event,
		"reason", reason,
		"detail", detail,
	)
}

func (s *Server) track(c *conn) {
	s.mu.Lock()
	s.conns[c.id] = c
	s.mu.Unlock()
}

func (s *Server) untrack(id string) {
	s.mu.Lock()
	delete(s.conns, id)
	s.mu.Unlock()
}

func (s *Server) lookup(id string) *conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns[id]
}

// originAddr extracts the rate-limit bucket key from a transport remote
// address: the host with any port stripped.
func originAddr(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
