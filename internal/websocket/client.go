package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"chat-realtime/internal/config"
	"chat-realtime/internal/models"
	"chat-realtime/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// State is the lifecycle position of a connection.
type State int32

const (
	StateConnecting State = iota
	StateAuthenticated
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Client is one authenticated socket. The read pump dispatches inbound
// events in arrival order; the write pump drains send.
type Client struct {
	id      string
	userID  string
	gateway *Gateway
	conn    *websocket.Conn
	cfg     config.WebSocketConfig

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	state     atomic.Int32
}

func newClient(g *Gateway, conn *websocket.Conn, userID string, cfg config.WebSocketConfig) *Client {
	size := cfg.SendBufferSize
	if size <= 0 {
		size = 256
	}
	return &Client{
		id:      uuid.NewString(),
		userID:  userID,
		gateway: g,
		conn:    conn,
		cfg:     cfg,
		send:    make(chan []byte, size),
		done:    make(chan struct{}),
	}
}

func (c *Client) ID() string     { return c.id }
func (c *Client) UserID() string { return c.userID }

func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
}

// markClosed moves the client to StateClosed and reports whether this call
// did the transition.
func (c *Client) markClosed() bool {
	for {
		cur := c.state.Load()
		if State(cur) == StateClosed {
			return false
		}
		if c.state.CompareAndSwap(cur, int32(StateClosed)) {
			return true
		}
	}
}

// enqueue hands an encoded frame to the write pump without blocking. It
// returns false when the buffer is full or the client is closing.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// sendError emits a scoped error event to this client only.
func (c *Client) sendError(message string) {
	frame, err := encodeEvent(models.EventError, models.ErrorPayload{Message: message})
	if err != nil {
		logger.L().Error().Err(err).Msg("Error encoding error event")
		return
	}
	if !c.enqueue(frame) {
		logger.L().Warn().Str("conn_id", c.id).Str("user_id", c.userID).Msg("Dropped error event for slow client")
	}
}

// Close stops the write pump. Frames already queued are flushed before the
// close frame is written.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Client) ReadPump() {
	defer func() {
		c.gateway.disconnect(c)
		c.conn.Close()
	}()

	if c.cfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	}
	// Set read deadline and pong handler for connection health
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.L().Error().Err(err).Str("conn_id", c.id).Msg("WebSocket read error")
			}
			return
		}

		c.gateway.dispatch(c, message)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				logger.L().Debug().Err(err).Str("conn_id", c.id).Msg("Write error")
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.flush()
			c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) flush() {
	for {
		select {
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
	return c.conn.WriteMessage(messageType, data)
}
