// Package events publishes lifecycle events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"visitorpass/internal/domain"
)

type natsConn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher is an EventPublisher over a NATS connection.
type NATSPublisher struct {
	conn   natsConn
	close  func()
	logger *slog.Logger
}

// NewNATSPublisher connects to url.
func NewNATSPublisher(url string, logger *slog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("visitorpass"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn, close: conn.Close, logger: logger}, nil
}

var _ domain.EventPublisher = (*NATSPublisher)(nil)

func (p *NATSPublisher) Publish(ctx context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	p.logger.DebugContext(ctx, "publishing event", "subject", subject, "bytes", len(data))
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (p *NATSPublisher) Close() error {
	if p.close != nil {
		p.close()
	}
	return nil
}

// NoopPublisher drops every event. Used when NATS_URL is unset.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }
