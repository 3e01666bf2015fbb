// Package publisher broadcasts playback events on NATS so other processes can
// follow the session without a viewer connection.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/okian/playview/internal/domain/model"
	"github.com/okian/playview/pkg/logger"
	"github.com/okian/playview/pkg/metrics"
)

// DefaultSubject is the subject prefix events are published under.
const DefaultSubject = "playview.playback"

// Event types, also the last subject token.
const (
	TypePosition = "position"
	TypeStatus   = "status"
	TypeControls = "controls"
)

// Event is the JSON payload of every published message.
type Event struct {
	Type     string          `json:"type"`
	Position *model.Position `json:"position,omitempty"`
	Status   *string         `json:"status,omitempty"`
	Controls *model.Controls `json:"controls,omitempty"`
	Time     time.Time       `json:"ts"`
}

// NATSPublisher is a playback sink publishing to core NATS. Publishing only
// buffers on the connection, so it is safe to call under the controller lock.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
	logger  logger.Logger
	now     func() time.Time
}

// Option configures a NATSPublisher.
type Option func(*NATSPublisher)

// WithSubject sets the subject prefix.
func WithSubject(subject string) Option {
	return func(p *NATSPublisher) {
		if subject != "" {
			p.subject = subject
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(p *NATSPublisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// Connect dials url and returns a publisher owning the connection.
func Connect(url string, opts ...Option) (*NATSPublisher, error) {
	p := newPublisher(opts...)
	nc, err := nats.Connect(url,
		nats.Name("playview"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				p.logger.Warn(context.Background(), "nats disconnected", logger.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			p.logger.Info(context.Background(), "nats reconnected", logger.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	p.nc = nc
	return p, nil
}

// New returns a publisher on an existing connection. The caller keeps
// ownership of nc.
func New(nc *nats.Conn, opts ...Option) *NATSPublisher {
	p := newPublisher(opts...)
	p.nc = nc
	return p
}

func newPublisher(opts ...Option) *NATSPublisher {
	p := &NATSPublisher{subject: DefaultSubject, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("nats_publisher")
	}
	return p
}

// Subject returns the full subject for an event type.
func (p *NATSPublisher) Subject(eventType string) string {
	return p.subject + "." + eventType
}

func (p *NATSPublisher) Position(ctx context.Context, pos model.Position) {
	p.publish(ctx, Event{Type: TypePosition, Position: &pos})
}

func (p *NATSPublisher) Status(ctx context.Context, status string) {
	p.publish(ctx, Event{Type: TypeStatus, Status: &status})
}

func (p *NATSPublisher) Controls(ctx context.Context, c model.Controls) {
	p.publish(ctx, Event{Type: TypeControls, Controls: &c})
}

func (p *NATSPublisher) publish(ctx context.Context, e Event) {
	e.Time = p.now().UTC()
	data, err := json.Marshal(e)
	if err != nil {
		metrics.RecordEventPublished(e.Type, "error")
		p.logger.Error(ctx, "failed to marshal event", logger.Error(err))
		return
	}
	if err := p.nc.Publish(p.Subject(e.Type), data); err != nil {
		metrics.RecordEventPublished(e.Type, "error")
		metrics.RecordErrorByComponent("nats_publisher", "publish_failed")
		p.logger.Warn(ctx, "failed to publish to NATS", logger.String("type", e.Type), logger.Error(err))
		return
	}
	metrics.RecordEventPublished(e.Type, "ok")
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.nc == nil || p.nc.IsClosed() || p.nc.IsDraining() {
		return nil
	}
	return p.nc.Drain()
}
