package backplane

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/thereayou/direct-chat/internal/websocket"
	"github.com/thereayou/direct-chat/pkg/logger"
)

// NATS fans broadcasts out over a core NATS subject.
type NATS struct {
	conn    *nats.Conn
	subject string
}

// ConnectNATS dials the NATS server with unlimited reconnects.
func ConnectNATS(url, subject string) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.Name("direct-chat"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info().Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATS{conn: nc, subject: subject}, nil
}

func (n *NATS) Publish(_ context.Context, env websocket.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return n.conn.Publish(n.subject, data)
}

func (n *NATS) Subscribe(ctx context.Context, deliver func(websocket.Envelope)) error {
	sub, err := n.conn.Subscribe(n.subject, func(msg *nats.Msg) {
		var env websocket.Envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			logger.Warn().Err(err).Msg("undecodable backplane envelope")
			return
		}
		deliver(env)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", n.subject, err)
	}
	defer sub.Unsubscribe()

	<-ctx.Done()
	return ctx.Err()
}

func (n *NATS) Close() error {
	if n.conn != nil {
		n.conn.Close()
	}
	return nil
}
