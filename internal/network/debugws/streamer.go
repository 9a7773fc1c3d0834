// Package debugws is an additive, non-authoritative JSON mirror of the
// binary Axes/Joints telemetry streams, for browser-based inspection
// tools. It never substitutes for the mandated binary UDP endpoints in
// internal/network; every frame it broadcasts is also published there.
// This package only re-encodes the same records as JSON over a
// WebSocket for clients that cannot speak the binary codec.
package debugws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/arobi-robotics/robotd/internal/network"
	"github.com/arobi-robotics/robotd/pkg/logging"
)

// Kind discriminates a Frame's source stream.
type Kind string

const (
	KindAxes   Kind = "axes"
	KindJoints Kind = "joints"
)

// Frame is one JSON telemetry message, mirroring one binary Axes or
// Joints broadcast.
type Frame struct {
	Kind    Kind             `json:"kind"`
	Records []network.Record `json:"records"`
}

const (
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	readLimit    = 4096
)

// Streamer fans Frames out to every connected WebSocket client.
type Streamer struct {
	mu      sync.RWMutex
	clients map[*client]bool

	broadcast chan *Frame
	upgrader  websocket.Upgrader
	logger    *logrus.Entry
}

type client struct {
	conn *websocket.Conn
	send chan *Frame
	id   string
}

// NewStreamer constructs an idle Streamer; call Run to start fanning out.
func NewStreamer() *Streamer {
	return &Streamer{
		clients:   make(map[*client]bool),
		broadcast: make(chan *Frame, 100),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logging.Component("debugws"),
	}
}

// HandleWebSocket upgrades an HTTP request to a WebSocket connection and
// registers it as a client.
func (s *Streamer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Error("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan *Frame, 50), id: r.RemoteAddr}
	s.registerClient(c)
	s.logger.WithField("client", c.id).Info("debug client connected")

	ctx, cancel := context.WithCancel(context.Background())
	go s.writePump(ctx, c)
	go s.readPump(ctx, cancel, c)
}

func (s *Streamer) registerClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = true
}

func (s *Streamer) unregisterClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
		s.logger.WithField("client", c.id).Info("debug client disconnected")
	}
}

// BroadcastAxes mirrors one Axes telemetry broadcast as JSON.
func (s *Streamer) BroadcastAxes(records []network.Record) { s.enqueue(KindAxes, records) }

// BroadcastJoints mirrors one Joints telemetry broadcast as JSON.
func (s *Streamer) BroadcastJoints(records []network.Record) { s.enqueue(KindJoints, records) }

func (s *Streamer) enqueue(kind Kind, records []network.Record) {
	frame := &Frame{Kind: kind, Records: records}
	select {
	case s.broadcast <- frame:
		return
	default:
	}
	select {
	case <-s.broadcast:
	default:
	}
	select {
	case s.broadcast <- frame:
	default:
	}
}

// Run drains the broadcast channel and fans frames out to every client
// until ctx is canceled.
func (s *Streamer) Run(ctx context.Context) error {
	s.logger.Info("debug websocket streamer started")
	for {
		select {
		case <-ctx.Done():
			s.closeAllClients()
			return ctx.Err()
		case frame := <-s.broadcast:
			s.sendToClients(frame)
		}
	}
}

func (s *Streamer) sendToClients(frame *Frame) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		select {
		case c.send <- frame:
		default:
		}
	}
}

func (s *Streamer) closeAllClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.conn.Close()
		close(c.send)
		delete(s.clients, c)
	}
}

func (s *Streamer) writePump(ctx context.Context, c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case frame, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			data, err := json.Marshal(frame)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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

// readPump only keeps the connection's read side alive for pong/close
// handling; the debug mirror accepts no commands from clients.
func (s *Streamer) readPump(ctx context.Context, cancel context.CancelFunc, c *client) {
	defer func() {
		cancel()
		s.unregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
