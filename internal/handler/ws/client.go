package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"teamwire-backend/internal/realtime"
	"teamwire-backend/pkg/constants"
)

// ErrSendBufferFull is returned when a connection's outbound queue is
// full. The client has stopped reading; the hub drops the connection.
var ErrSendBufferFull = errors.New("send buffer full")

// ErrConnectionClosed is returned for sends after the connection has
// been torn down
var ErrConnectionClosed = errors.New("connection closed")

// Client is one live WebSocket connection. It implements
// realtime.Session: the core packages only ever see this interface.
type Client struct {
	id      string
	profile *realtime.UserProfile

	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	closed    chan struct{}

	log *zap.Logger
}

func newClient(hub *Hub, conn *websocket.Conn, profile *realtime.UserProfile, log *zap.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:      id,
		profile: profile,
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, constants.WebSocketSendBufferSize),
		closed:  make(chan struct{}),
		log: log.With(
			zap.String("session_id", id),
			zap.String("user_id", profile.UserID.String()),
		),
	}
}

// ID returns the connection's session id
func (c *Client) ID() string {
	return c.id
}

// UserID returns the authenticated owner of the connection
func (c *Client) UserID() uuid.UUID {
	return c.profile.UserID
}

// User returns the owner's public profile
func (c *Client) User() *realtime.UserProfile {
	return c.profile
}

// Send queues an event frame for delivery. Non-blocking: a full queue
// or closed connection returns an error immediately.
func (c *Client) Send(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(&realtime.Frame{Event: event, Data: raw})
	if err != nil {
		return err
	}

	select {
	case <-c.closed:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.closed:
		return ErrConnectionClosed
	default:
		return ErrSendBufferFull
	}
}

// Close tears the connection down. Safe to call from any goroutine and
// more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
}

// readPump reads inbound frames and hands them to the hub's dispatcher.
// One goroutine per connection; its exit drives the full teardown.
func (c *Client) readPump() {
	defer func() {
		c.hub.disconnect(c)
		c.Close()
	}()

	c.conn.SetReadLimit(constants.WebSocketMaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPingInterval * 2))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPingInterval * 2))
		c.hub.heartbeat(c)
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		var frame realtime.Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.log.Debug("invalid frame", zap.Error(err))
			c.hub.recordError("invalid_frame")
			continue
		}

		c.hub.dispatch(c, &frame)
	}
}

// writePump drains the outbound queue onto the socket and keeps the
// connection alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(constants.WebSocketPingInterval * 9 / 10)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.closed:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
