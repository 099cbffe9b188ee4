package hermes

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/MikeSquared-Agency/tracehook/internal/store"
)

// SubjectTraceReceived is the NATS subject the sink announces stored traces on.
const SubjectTraceReceived = "swarm.tracesink.trace.received"

// TraceReceived is published once per trace the sink stores.
type TraceReceived struct {
	TraceID      string `json:"trace_id"`
	SessionID    string `json:"session_id"`
	Project      string `json:"project"`
	MessageIndex int    `json:"message_index"`
	ReceivedAt   string `json:"received_at"`
}

// NewTraceReceived summarises a stored record for publication.
func NewTraceReceived(r store.Record) TraceReceived {
	return TraceReceived{
		TraceID:      r.Trace.ID,
		SessionID:    r.Trace.SessionID,
		Project:      r.Trace.Metadata.Project,
		MessageIndex: r.Trace.Metadata.MessageIndex,
		ReceivedAt:   r.ReceivedAt.UTC().Format(time.RFC3339),
	}
}

type Client struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewClient(url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name("tracesink"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

// TraceStored implements sink.Notifier.
func (c *Client) TraceStored(r store.Record) error {
	return c.Publish(SubjectTraceReceived, NewTraceReceived(r))
}

func (c *Client) Close() {
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
	}
}
