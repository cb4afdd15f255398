package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zeusync/robosim/internal/core/observability/log"
)

// Viewers only listen; anything they send is read and discarded.
const maxInboundMessage = 512

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// client is one websocket viewer.
type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newClient(conn *websocket.Conn, buffer int) *client {
	return &client{
		id:   uuid.New(),
		conn: conn,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

// offer queues data unless the client is behind or gone.
func (c *client) offer(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (s *Stream) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", log.String("remote_addr", r.RemoteAddr), log.Error(err))
		return
	}

	c := newClient(conn, s.config.SendBuffer)
	clientLogger := s.logger.With(log.Stringer("client_id", c.id))
	if err := s.register(c); err != nil {
		clientLogger.Warn("Rejecting client", log.String("remote_addr", r.RemoteAddr), log.Error(err))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			time.Now().Add(s.config.WriteTimeout))
		c.close()
		return
	}
	clientLogger.Info("Client connected", log.String("remote_addr", r.RemoteAddr))

	if f := s.latest.Load(); f != nil {
		c.offer(f.data)
	}

	go s.writePump(c, clientLogger)
	s.readPump(c)

	s.unregister(c)
	c.close()
	clientLogger.Info("Client disconnected")
}

// readPump blocks until the peer goes away.
func (s *Stream) readPump(c *client) {
	c.conn.SetReadLimit(maxInboundMessage)
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}

func (s *Stream) writePump(c *client, logger log.Log) {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Debug("Failed to send snapshot", log.Error(err))
				c.close()
				return
			}
		}
	}
}
