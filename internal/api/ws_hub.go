// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ManuGH/hlswatch/internal/domain/playback/controller"
	"github.com/ManuGH/hlswatch/internal/domain/playback/ports"
	xlog "github.com/ManuGH/hlswatch/internal/log"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = 30 * time.Second
	wsMaxMessageSize = 512
	wsSendBuffer     = 64
	hubBacklog       = 256
)

// MessageSession is the only message type pushed on a session feed.
const MessageSession = "session"

// Message is the envelope written to feed subscribers. Subscribers discard
// messages whose seq is not newer than the last one seen.
type Message struct {
	Type string      `json:"type"`
	Data SessionView `json:"data"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type wsClient struct {
	hub          *Hub
	conn         *websocket.Conn
	controllerID string
	send         chan []byte
}

// Hub fans controller snapshots out to websocket subscribers of the same
// controller.
type Hub struct {
	clock      ports.Clock
	logger     zerolog.Logger
	clients    map[*wsClient]struct{}
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan controller.Snapshot
	done       chan struct{}

	mu    sync.RWMutex
	count int
}

func NewHub(clock ports.Clock) *Hub {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Hub{
		clock:      clock,
		logger:     xlog.WithComponent("ws_hub"),
		clients:    make(map[*wsClient]struct{}),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan controller.Snapshot, hubBacklog),
		done:       make(chan struct{}),
	}
}

// Publish queues a snapshot for delivery. It never blocks; snapshots are
// dropped when the backlog is full.
func (h *Hub) Publish(s controller.Snapshot) {
	select {
	case h.broadcast <- s:
	default:
		h.logger.Warn().
			Str("event", "ws.backlog_full").
			Str("controller_id", s.ControllerID).
			Uint64("seq", s.Seq).
			Msg("dropping session snapshot")
	}
}

// Run serves the hub until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.setCount(len(h.clients))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
			}
		case s := <-h.broadcast:
			h.fanout(s)
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} { return h.done }

// ClientCount is the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

func (h *Hub) drop(c *wsClient) {
	delete(h.clients, c)
	close(c.send)
	h.setCount(len(h.clients))
}

func (h *Hub) fanout(s controller.Snapshot) {
	var payload []byte
	for c := range h.clients {
		if c.controllerID != s.ControllerID {
			continue
		}
		if payload == nil {
			b, err := h.encode(s)
			if err != nil {
				h.logger.Error().Err(err).Str("controller_id", s.ControllerID).Msg("encode snapshot")
				return
			}
			payload = b
		}
		select {
		case c.send <- payload:
		default:
			h.logger.Warn().
				Str("event", "ws.slow_client").
				Str("controller_id", c.controllerID).
				Msg("disconnecting slow subscriber")
			h.drop(c)
		}
	}
}

func (h *Hub) encode(s controller.Snapshot) ([]byte, error) {
	return json.Marshal(Message{Type: MessageSession, Data: newSessionView(s, h.clock.Now())})
}

// subscribe upgrades the request and streams snapshots of ctrl, starting
// with its current one.
func (h *Hub) subscribe(w http.ResponseWriter, r *http.Request, ctrl *controller.Controller) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := &wsClient{hub: h, conn: conn, controllerID: ctrl.ID(), send: make(chan []byte, wsSendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}
	h.Publish(ctrl.Snapshot())
	go c.writePump()
	go c.readPump()
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection so control frames are processed.
func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(wsMaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
