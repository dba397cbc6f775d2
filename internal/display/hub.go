package display

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
)

const defaultWriteTimeout = 5 * time.Second

// Message is the envelope pushed to overlay clients.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Option customizes a Hub.
type Option func(*Hub)

// WithGreeting sends the message returned by fn to every new client.
func WithGreeting(fn func() Message) Option {
	return func(h *Hub) { h.greet = fn }
}

// WithOriginPatterns restricts the browser origins allowed to connect.
// A single "*" disables the origin check.
func WithOriginPatterns(patterns []string) Option {
	return func(h *Hub) {
		for _, p := range patterns {
			if p == "*" {
				h.accept.InsecureSkipVerify = true
				return
			}
		}
		h.accept.OriginPatterns = patterns
	}
}

// WithWriteTimeout bounds each write to a client.
func WithWriteTimeout(d time.Duration) Option {
	return func(h *Hub) { h.writeTimeout = d }
}

// Hub fans messages out to every connected WebSocket client. Clients are
// receive-only; anything they send is discarded.
type Hub struct {
	name         string
	logger       zerolog.Logger
	writeTimeout time.Duration
	greet        func() Message
	accept       websocket.AcceptOptions

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	closed  bool
}

// NewHub builds an empty hub. name shows up in logs.
func NewHub(name string, logger zerolog.Logger, opts ...Option) *Hub {
	h := &Hub{
		name:         name,
		logger:       logger.With().Str("component", "display").Str("hub", name).Logger(),
		writeTimeout: defaultWriteTimeout,
		clients:      make(map[*websocket.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades the request and holds the connection until the client
// leaves or the hub closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &h.accept)
	if err != nil {
		h.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("display: websocket accept failed")
		return
	}
	ctx := conn.CloseRead(r.Context())

	if !h.add(conn) {
		conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	defer h.remove(conn)
	h.logger.Debug().Str("remote", r.RemoteAddr).Msg("display: client connected")

	if h.greet != nil {
		if err := h.write(ctx, conn, h.greet()); err != nil {
			h.logger.Warn().Err(err).Msg("display: greeting failed")
			conn.CloseNow()
			return
		}
	}

	<-ctx.Done()
	conn.Close(websocket.StatusNormalClosure, "")
	h.logger.Debug().Str("remote", r.RemoteAddr).Msg("display: client disconnected")
}

// Broadcast writes msg to every client and drops the ones that fail. It
// returns how many clients received the message.
func (h *Hub) Broadcast(ctx context.Context, msg Message) int {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	delivered := 0
	for _, c := range conns {
		if err := h.write(ctx, c, msg); err != nil {
			h.logger.Debug().Err(err).Str("type", msg.Type).Msg("display: dropping client")
			h.remove(c)
			c.CloseNow()
			continue
		}
		delivered++
	}
	return delivered
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	conns := h.clients
	h.clients = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()

	for c := range conns {
		c.Close(websocket.StatusGoingAway, "shutting down")
	}
}

func (h *Hub) write(ctx context.Context, conn *websocket.Conn, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}

func (h *Hub) add(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[conn] = struct{}{}
	return true
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}
