// Package nats implements the notifier port over NATS JetStream.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/arcwell-foundry/aria/internal/port/notifier"
)

const streamName = "ARIA"

// Client implements both the notifier port (JetStream publish) and the
// agent dispatch port (request/reply) over one NATS connection. Event
// subjects are "actions.<event type>", e.g. "actions.action.undo_outcome".
type Client struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// Connect establishes a connection to NATS and ensures the event stream
// exists.
func Connect(ctx context.Context, url string) (*Client, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"actions.>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", url, "stream", streamName)
	return &Client{nc: nc, js: js}, nil
}

// Name identifies this notifier in logs.
func (n *Client) Name() string { return "nats" }

// Send publishes the event as JSON.
func (n *Client) Send(ctx context.Context, ev notifier.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := "actions." + ev.Type
	if _, err := n.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Close drains and closes the connection.
func (n *Client) Close() error {
	return n.nc.Drain()
}
