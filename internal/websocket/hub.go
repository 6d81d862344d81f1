package websocket

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/direct-chat/internal/metrics"
	"github.com/thereayou/direct-chat/pkg/logger"
)

const publishTimeout = 5 * time.Second

// Envelope is a broadcast as exchanged with other nodes over a Backplane.
type Envelope struct {
	Origin string `json:"origin"`
	Group  string `json:"group,omitempty"`
	Global bool   `json:"global,omitempty"`
	Data   []byte `json:"data"`
}

// Backplane carries broadcasts between server processes. Subscribe blocks
// until ctx is done.
type Backplane interface {
	Publish(ctx context.Context, env Envelope) error
	Subscribe(ctx context.Context, deliver func(Envelope)) error
	Close() error
}

// Hub owns the connection registry and routes broadcasts to groups.
type Hub struct {
	registry  *Registry
	nodeID    string
	backplane Backplane

	remote chan Envelope

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		registry: NewRegistry(),
		nodeID:   uuid.NewString(),
		remote:   make(chan Envelope, 256),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// UseBackplane makes the hub publish every broadcast and deliver broadcasts
// published by other nodes. Must be called before Run.
func (h *Hub) UseBackplane(bp Backplane) {
	h.backplane = bp
}

func (h *Hub) NodeID() string {
	return h.nodeID
}

func (h *Hub) Registry() *Registry {
	return h.registry
}

// Run delivers broadcasts received from the backplane until Stop is called.
func (h *Hub) Run() {
	if h.backplane != nil {
		go func() {
			err := h.backplane.Subscribe(h.ctx, func(env Envelope) {
				if env.Origin == h.nodeID {
					return
				}
				select {
				case h.remote <- env:
				case <-h.ctx.Done():
				}
			})
			if err != nil && h.ctx.Err() == nil {
				logger.Error().Err(err).Msg("backplane subscription ended")
			}
		}()
	}

	for {
		select {
		case <-h.ctx.Done():
			return
		case env := <-h.remote:
			if env.Global {
				h.deliver(h.identified(), env.Data, nil)
			} else {
				h.deliver(h.registry.Members(env.Group), env.Data, nil)
			}
		}
	}
}

// Stop closes every client and ends Run.
func (h *Hub) Stop() {
	h.cancel()

	for _, client := range h.registry.Clients() {
		client.Close()
	}

	if h.backplane != nil {
		if err := h.backplane.Close(); err != nil {
			logger.Warn().Err(err).Msg("backplane close failed")
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.registry.Add(client)
	metrics.ConnectionsActive.Inc()

	logger.Debug().
		Str("client_id", client.ID.String()).
		Str("user_id", client.UserID.String()).
		Msg("client registered")
}

// Unregister removes the client from every group and closes its queue.
func (h *Hub) Unregister(client *Client) {
	groups, ok := h.registry.Remove(client)
	client.Close()
	if !ok {
		return
	}
	metrics.ConnectionsActive.Dec()

	logger.Debug().
		Str("client_id", client.ID.String()).
		Str("user_id", client.UserID.String()).
		Int("groups", len(groups)).
		Msg("client unregistered")
}

func (h *Hub) Join(client *Client, group string) bool {
	return h.registry.Join(group, client)
}

func (h *Hub) Leave(client *Client, group string) bool {
	return h.registry.Leave(group, client)
}

// Emit delivers an event to every connection in group.
func (h *Hub) Emit(group string, eventType EventType, payload interface{}) error {
	return h.EmitExcept(group, eventType, payload, nil)
}

// EmitExcept delivers an event to every connection in group other than
// exclude.
func (h *Hub) EmitExcept(group string, eventType EventType, payload interface{}, exclude *Client) error {
	data, err := Encode(eventType, payload)
	if err != nil {
		return err
	}

	h.deliver(h.registry.Members(group), data, exclude)
	h.publish(Envelope{Origin: h.nodeID, Group: group, Data: data})
	return nil
}

// EmitGlobal delivers an event to every authenticated connection.
// Anonymous connections receive nothing.
func (h *Hub) EmitGlobal(eventType EventType, payload interface{}) error {
	data, err := Encode(eventType, payload)
	if err != nil {
		return err
	}

	h.deliver(h.identified(), data, nil)
	h.publish(Envelope{Origin: h.nodeID, Global: true, Data: data})
	return nil
}

func (h *Hub) identified() []*Client {
	clients := h.registry.Clients()
	out := clients[:0]
	for _, client := range clients {
		if client.UserID != uuid.Nil {
			out = append(out, client)
		}
	}
	return out
}

// deliver is best effort: a full or closed queue means the connection is
// stale and it is skipped.
func (h *Hub) deliver(clients []*Client, data []byte, exclude *Client) {
	for _, client := range clients {
		if exclude != nil && client.ID == exclude.ID {
			continue
		}
		if err := client.enqueue(data); err != nil {
			metrics.RecordDelivery(false)
			logger.Debug().Err(err).Str("client_id", client.ID.String()).Msg("delivery skipped")
			continue
		}
		metrics.RecordDelivery(true)
	}
}

func (h *Hub) publish(env Envelope) {
	if h.backplane == nil {
		return
	}

	ctx, cancel := context.WithTimeout(h.ctx, publishTimeout)
	defer cancel()

	if err := h.backplane.Publish(ctx, env); err != nil {
		logger.Warn().Err(err).Str("group", env.Group).Msg("backplane publish failed")
	}
}

// Members returns the live connections in group.
func (h *Hub) Members(group string) []*Client {
	return h.registry.Members(group)
}

// OnlineUsers returns the distinct users with at least one connection on
// this node.
func (h *Hub) OnlineUsers() []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	users := make([]uuid.UUID, 0)
	for _, client := range h.registry.Clients() {
		if client.UserID == uuid.Nil || seen[client.UserID] {
			continue
		}
		seen[client.UserID] = true
		users = append(users, client.UserID)
	}
	return users
}
