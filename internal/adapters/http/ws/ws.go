// Package ws fans canonical state changes out to websocket viewers.
//
// Every viewer gets the current value of both kinds immediately on attach,
// then every subsequent change in publish order. Delivery to one viewer
// never blocks delivery to another: each viewer has a bounded outbound
// buffer, and a viewer that falls behind it is disconnected rather than
// slowing the board down.
package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/okian/rallyboard/internal/domain/model"
	"github.com/okian/rallyboard/internal/domain/store"
	"github.com/okian/rallyboard/pkg/logger"
	"github.com/okian/rallyboard/pkg/metrics"
)

// Connection timing constants.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512

	defaultSendBuffer = 16
)

// Hub upgrades viewer connections and bridges them onto the change bus.
type Hub struct {
	store    *store.Store
	upgrader websocket.Upgrader
	sendBuf  int
	logger   logger.Logger

	mu      sync.Mutex
	clients map[string]*client
}

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithSendBuffer sets the per-viewer outbound frame buffer.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuf = n
		}
	}
}

// WithLogger sets a custom logger for the hub.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// New creates a hub serving views of st.
func New(st *store.Store, opts ...Option) *Hub {
	h := &Hub{
		store:   st,
		sendBuf: defaultSendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleWS handles GET /ws requests: upgrade, replay current state, stream.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log().Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	c := &client{
		id:   uuid.New().String(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, h.sendBuf),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()
	metrics.UpdateWSClients(n)

	// Subscribing through the store delivers the current value of each kind
	// synchronously, so the attach snapshot lands in the buffer before any
	// later change can.
	ctx := r.Context()
	c.unsubs = append(c.unsubs,
		h.store.Subscribe(ctx, model.KindLiveMatch, c.onEvent),
		h.store.Subscribe(ctx, model.KindStandings, c.onEvent),
	)

	h.log().Debug(ctx, "viewer attached", logger.String("client_id", c.id))

	go c.writePump()
	go c.readPump()
}

// ClientCount returns the number of attached viewers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll disconnects every viewer. Used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.drop("shutdown")
	}
}

func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	n := len(h.clients)
	h.mu.Unlock()
	metrics.UpdateWSClients(n)
}

func (h *Hub) log() logger.Logger {
	if h.logger != nil {
		return h.logger
	}
	return logger.Get().Named("ws")
}
