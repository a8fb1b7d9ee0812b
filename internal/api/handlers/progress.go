package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tupakrantina/backoffice/internal/cartera"
	"github.com/tupakrantina/backoffice/pkg/logger"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second

	// events buffered per client before it is considered too slow
	clientBuffer = 64
)

type progressClient struct {
	conn *websocket.Conn
	send chan cartera.ProgressEvent
}

// ProgressHub fans report progress out to websocket subscribers.
// It implements cartera.ProgressSink.
// ⭐ SSOT: websocket progress connections are only managed here
type ProgressHub struct {
	upgrader websocket.Upgrader
	mu       sync.Mutex
	clients  map[*progressClient]struct{}
	logger   *logger.Logger
}

// NewProgressHub creates an empty hub
func NewProgressHub(log *logger.Logger) *ProgressHub {
	return &ProgressHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// access is checked by the bearer token, not the origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*progressClient]struct{}),
		logger:  log,
	}
}

// Publish sends ev to every subscriber. Clients whose buffer is full
// miss the event rather than stall the report run.
func (h *ProgressHub) Publish(ev cartera.ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			h.logger.WithField("stage", ev.Stage).Warn("Progress client too slow, event dropped")
		}
	}
}

// Clients returns the number of connected subscribers
func (h *ProgressHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams progress events as JSON
// GET /ws/reports/progress
func (h *ProgressHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	c := &progressClient{conn: conn, send: make(chan cartera.ProgressEvent, clientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.logger.WithField("clients", h.Clients()).Debug("Progress client connected")

	go h.writeLoop(c)
	h.readLoop(c)
}

// readLoop drains control frames until the peer goes away
func (h *ProgressHub) readLoop(c *progressClient) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.WithError(err).Debug("Progress client closed unexpectedly")
			}
			return
		}
	}
}

func (h *ProgressHub) writeLoop(c *progressClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *ProgressHub) remove(c *progressClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Close disconnects every subscriber
func (h *ProgressHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
