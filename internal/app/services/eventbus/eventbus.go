// Package eventbus publishes domain events (alert raised, SLA breached, case
// closed, ...) to a RabbitMQ topic exchange for downstream consumers.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/R3E-Network/sira_platform/pkg/logger"
)

// Routing keys.
const (
	AlertCreated     = "alert.created"
	AlertUpdated     = "alert.updated"
	AlertSLABreached = "alert.sla_breached"
	CaseCreated      = "case.created"
	CaseClosed       = "case.closed"
	MovementUpdated  = "movement.updated"
	ShipmentRisk     = "shipment.risk_scored"
	TelemetryAnomaly = "telemetry.anomaly"
	VesselPosition   = "vessel.position"
)

// Envelope wraps every published payload.
type Envelope struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// Publisher emits events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, data any) error
}

// Nop discards events. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }

type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes JSON envelopes to a durable topic exchange.
type AMQPPublisher struct {
	url      string
	exchange string
	log      *logger.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   channel
	now  func() time.Time
}

// NewAMQPPublisher prepares a publisher. Start dials the broker.
func NewAMQPPublisher(url, exchange string, log *logger.Logger) *AMQPPublisher {
	if log == nil {
		log = logger.NewDefault("eventbus")
	}
	if exchange == "" {
		exchange = "sira.events"
	}
	return &AMQPPublisher{url: url, exchange: exchange, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (p *AMQPPublisher) Name() string { return "eventbus" }

// Start connects and declares the exchange.
func (p *AMQPPublisher) Start(ctx context.Context) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open amqp channel: %w", err)
	}
	if err := p.attach(ch); err != nil {
		conn.Close()
		return err
	}
	p.mu.Lock()
	p.conn = conn
	p.mu.Unlock()
	p.log.WithField("exchange", p.exchange).Info("event bus connected")
	return nil
}

func (p *AMQPPublisher) attach(ch channel) error {
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}
	p.mu.Lock()
	p.ch = ch
	p.mu.Unlock()
	return nil
}

// Stop closes the channel and connection.
func (p *AMQPPublisher) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}

// Publish sends data under routingKey. Failures are returned; callers treat
// the bus as best effort.
func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, data any) error {
	env := Envelope{ID: uuid.NewString(), Type: routingKey, OccurredAt: p.now(), Data: data}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	p.mu.Lock()
	ch := p.ch
	p.mu.Unlock()
	if ch == nil {
		return fmt.Errorf("event bus not connected")
	}

	err = ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.ID,
		Timestamp:    env.OccurredAt,
		Type:         routingKey,
		Body:         body,
	})
	if err != nil {
		p.log.WithError(err).WithField("routing_key", routingKey).Warn("publish event failed")
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}
