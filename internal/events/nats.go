package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"inkwell/internal/middleware"
	"inkwell/internal/observability"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// NatsPublisher publishes JSON-encoded events with trace context in the headers.
type NatsPublisher struct {
	nc *nats.Conn
}

// NewNatsPublisher wraps an established connection.
func NewNatsPublisher(nc *nats.Conn) *NatsPublisher {
	return &NatsPublisher{nc: nc}
}

// Connect dials url and returns a publisher. An empty url yields Noop.
func Connect(url string) (Publisher, error) {
	if url == "" {
		return Noop{}, nil
	}
	nc, err := nats.Connect(url,
		nats.Name("inkwell"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				middleware.Logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			middleware.Logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return NewNatsPublisher(nc), nil
}

func buildMsg(ctx context.Context, subject string, payload any) (*nats.Msg, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshalling %s event: %w", subject, err)
	}
	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{},
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))
	return msg, nil
}

func (p *NatsPublisher) Publish(ctx context.Context, subject string, payload any) error {
	msg, err := buildMsg(ctx, subject, payload)
	if err != nil {
		observability.EventsPublished.WithLabelValues(subject, "error").Inc()
		return err
	}
	if err := p.nc.PublishMsg(msg); err != nil {
		observability.EventsPublished.WithLabelValues(subject, "error").Inc()
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	observability.EventsPublished.WithLabelValues(subject, "ok").Inc()
	middleware.Logger.DebugContext(ctx, "event published", "subject", subject)
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NatsPublisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}
