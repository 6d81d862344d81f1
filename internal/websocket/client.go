package websocket

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/thereayou/direct-chat/internal/metrics"
	"github.com/thereayou/direct-chat/pkg/logger"
)

const (
	writeWait = 10 * time.Second

	pongWait = 60 * time.Second

	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 64 * 1024

	sendBufferSize = 256
)

// State is the lifecycle position of a connection.
type State int32

const (
	StateConnecting State = iota
	StateAuthenticated
	// StateAnonymous connections carry no identity; they stay open but every
	// inbound event is ignored.
	StateAnonymous
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// EventHandler processes the inbound events of authenticated clients.
// HandleEvent calls for one client never overlap and arrive in the order the
// client sent them.
type EventHandler interface {
	HandleEvent(client *Client, ev *Event) error
	Disconnected(client *Client)
}

type Client struct {
	ID     uuid.UUID
	UserID uuid.UUID
	// Token is the session token presented at the handshake, empty when the
	// identity was trusted from the query string.
	Token string
	Conn  *websocket.Conn
	Send  chan []byte
	Hub   *Hub

	state atomic.Int32

	mu     sync.RWMutex
	groups map[string]bool

	sendMu sync.RWMutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, token string) *Client {
	return &Client{
		ID:     uuid.New(),
		UserID: userID,
		Token:  token,
		Conn:   conn,
		Send:   make(chan []byte, sendBufferSize),
		Hub:    hub,
		groups: make(map[string]bool),
	}
}

func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) SetState(s State) {
	c.state.Store(int32(s))
}

// ReadPump reads events from the connection and hands them to handler one
// at a time. It returns when the connection fails or is closed.
func (c *Client) ReadPump(handler EventHandler) {
	defer func() {
		handler.Disconnected(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn().Err(err).Str("client_id", c.ID.String()).Msg("websocket read failed")
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			logger.Warn().Err(err).Str("client_id", c.ID.String()).Msg("malformed event dropped")
			continue
		}

		c.dispatch(handler, &ev)
	}
}

func (c *Client) dispatch(handler EventHandler, ev *Event) {
	switch ev.Type {
	case EventPong:
		return
	case EventPing:
		if err := c.SendEvent(EventPong, nil); err != nil {
			logger.Debug().Err(err).Str("client_id", c.ID.String()).Msg("pong not sent")
		}
		return
	}

	if c.State() != StateAuthenticated {
		metrics.RecordEvent(ev.Type.metricLabel(), "ignored")
		return
	}

	if err := handler.HandleEvent(c, ev); err != nil {
		metrics.RecordEvent(ev.Type.metricLabel(), "rejected")
		logger.Warn().
			Err(err).
			Str("event", string(ev.Type)).
			Str("client_id", c.ID.String()).
			Str("user_id", c.UserID.String()).
			Msg("event rejected")
		return
	}
	metrics.RecordEvent(ev.Type.metricLabel(), "ok")
}

// WritePump drains the send queue onto the connection and keeps it alive
// with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendEvent queues an event for this connection only.
func (c *Client) SendEvent(eventType EventType, payload interface{}) error {
	data, err := Encode(eventType, payload)
	if err != nil {
		return err
	}
	return c.enqueue(data)
}

func (c *Client) enqueue(data []byte) error {
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()

	if c.closed {
		return ErrClientClosed
	}

	select {
	case c.Send <- data:
		return nil
	default:
		return ErrClientQueueFull
	}
}

// Close marks the client closed and closes its send queue, which makes
// WritePump send a close frame. Safe to call more than once.
func (c *Client) Close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.SetState(StateClosed)
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// Terminate drops the underlying connection immediately.
func (c *Client) Terminate() {
	if c.Conn != nil {
		c.Conn.Close()
	}
}

func (c *Client) InGroup(group string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.groups[group]
}

func (c *Client) Groups() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	groups := make([]string, 0, len(c.groups))
	for group := range c.groups {
		groups = append(groups, group)
	}
	return groups
}

func (c *Client) addGroup(group string) {
	c.mu.Lock()
	c.groups[group] = true
	c.mu.Unlock()
}

func (c *Client) removeGroup(group string) {
	c.mu.Lock()
	delete(c.groups, group)
	c.mu.Unlock()
}
