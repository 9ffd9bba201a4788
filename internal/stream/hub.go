// Package stream fans engine events out to websocket clients so running
// backtests can be monitored live.
package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"cta-backtester/internal/backtest"
	"cta-backtester/internal/observability"
)

// HubConfig configures websocket behavior.
type HubConfig struct {
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is how long a client may stay silent, pongs included.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// ClientBuffer is the per-client queue length. Events for a full queue
	// are dropped.
	ClientBuffer int
	// FinishedTTL is how long a run's finished event is kept for late
	// subscribers. Zero disables the cache.
	FinishedTTL time.Duration
}

// DefaultHubConfig returns default websocket configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		PingInterval: 30 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Second,
		ClientBuffer: 1024,
		FinishedTTL:  15 * time.Minute,
	}
}

type finishedEntry struct {
	msg []byte
	at  time.Time
}

type client struct {
	runID string // empty subscribes to every run
	conn  *websocket.Conn
	send  chan []byte
	once  sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub is a backtest.EventSink that broadcasts events as JSON text frames.
// Publish never blocks the replay loop.
type Hub struct {
	config   HubConfig
	upgrader websocket.Upgrader
	log      logrus.FieldLogger
	metrics  *observability.Metrics

	mu       sync.RWMutex
	clients  map[*client]struct{}
	finished map[string]finishedEntry // last finished event per run, expires after FinishedTTL
	closed   bool
	now      func() time.Time
}

// NewHub creates a hub. A nil config uses DefaultHubConfig.
func NewHub(config *HubConfig, log logrus.FieldLogger, metrics *observability.Metrics) *Hub {
	cfg := DefaultHubConfig()
	if config != nil {
		cfg = *config
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		config: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log:      log,
		metrics:  metrics,
		clients:  make(map[*client]struct{}),
		finished: make(map[string]finishedEntry),
		now:      time.Now,
	}
}

// Publish implements backtest.EventSink.
func (h *Hub) Publish(event backtest.Event) {
	msg, err := json.Marshal(event)
	if err != nil {
		h.log.WithError(err).Error("marshal stream event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if h.metrics != nil {
		h.metrics.StreamPublished.Inc()
	}

	final := event.Kind == backtest.EventFinished
	if final {
		now := h.now()
		h.evictLocked(now)
		if h.config.FinishedTTL > 0 {
			h.finished[event.RunID] = finishedEntry{msg: msg, at: now}
		}
	}

	for c := range h.clients {
		if c.runID != "" && c.runID != event.RunID {
			continue
		}
		select {
		case c.send <- msg:
		default:
			if h.metrics != nil {
				h.metrics.StreamDropped.Inc()
			}
		}
		if final && c.runID != "" {
			h.removeLocked(c)
		}
	}
}

// ServeWS upgrades the request and streams events for runID, or for every
// run when runID is empty. A client subscribing to an already finished run
// receives its finished event and is closed.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, runID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}

	c := &client{
		runID: runID,
		conn:  conn,
		send:  make(chan []byte, h.config.ClientBuffer),
	}

	h.mu.Lock()
	cached := h.cachedLocked(runID)
	switch {
	case h.closed:
		c.close()
	case cached != nil:
		c.send <- cached
		c.close()
	default:
		h.clients[c] = struct{}{}
		if h.metrics != nil {
			h.metrics.StreamClients.Inc()
		}
	}
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(c)
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client. Later events are discarded.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

// cachedLocked returns the finished event of runID if it has not expired.
func (h *Hub) cachedLocked(runID string) []byte {
	if runID == "" {
		return nil
	}
	e, ok := h.finished[runID]
	if !ok || h.expired(e, h.now()) {
		return nil
	}
	return e.msg
}

func (h *Hub) expired(e finishedEntry, now time.Time) bool {
	return now.Sub(e.at) >= h.config.FinishedTTL
}

// evictLocked drops expired finished events.
func (h *Hub) evictLocked(now time.Time) {
	for id, e := range h.finished {
		if h.expired(e, now) {
			delete(h.finished, id)
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.close()
	if h.metrics != nil {
		h.metrics.StreamClients.Dec()
	}
}

// writePump drains the client queue, sends pings and closes the connection
// once the queue is closed.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// readPump discards client messages and detects disconnects.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)

	c.conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

var _ backtest.EventSink = (*Hub)(nil)
