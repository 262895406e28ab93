// Package nats announces harvest events on a NATS subject.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/user/prospector/internal/entity"
	"github.com/user/prospector/internal/repository"
)

// DefaultSubject carries harvest completion events.
const DefaultSubject = "prospector.harvest.completed"

// HarvestCompletedEvent is the JSON payload of a completion event.
type HarvestCompletedEvent struct {
	JobID      string                `json:"job_id"`
	Report     *entity.HarvestReport `json:"report"`
	FinishedAt time.Time             `json:"finished_at"`
}

// headerCarrier lets the otel propagator write into message headers.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// Publisher publishes events on one subject.
type Publisher struct {
	conn    *nats.Conn
	subject string
	logger  *zap.Logger
}

var _ repository.EventPublisher = (*Publisher)(nil)

// Connect dials url and returns a publisher for subject.
func Connect(url, subject string, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := nats.Connect(url,
		nats.Name("prospector"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return NewPublisher(conn, subject, logger), nil
}

// NewPublisher wraps an existing connection.
func NewPublisher(conn *nats.Conn, subject string, logger *zap.Logger) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{conn: conn, subject: subject, logger: logger}
}

// HarvestCompleted publishes the report of a finished job with the caller's
// trace context in the message headers.
func (p *Publisher) HarvestCompleted(ctx context.Context, jobID string, report *entity.HarvestReport) error {
	data, err := json.Marshal(HarvestCompletedEvent{JobID: jobID, Report: report, FinishedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	msg := &nats.Msg{Subject: p.subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	p.logger.Debug("harvest event published", zap.String("subject", p.subject), zap.String("job_id", jobID))
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}

// NoopPublisher drops every event. It is used when no NATS server is configured.
type NoopPublisher struct{}

var _ repository.EventPublisher = NoopPublisher{}

func (NoopPublisher) HarvestCompleted(context.Context, string, *entity.HarvestReport) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }
