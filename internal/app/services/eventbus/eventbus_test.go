package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/sira_platform/pkg/logger"
)

type fakeChannel struct {
	declared  string
	kind      string
	published []amqp.Publishing
	keys      []string
	failWith  error
	closed    bool
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	c.declared, c.kind = name, kind
	return nil
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.failWith != nil {
		return c.failWith
	}
	c.keys = append(c.keys, key)
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func TestPublishWrapsEnvelope(t *testing.T) {
	p := NewAMQPPublisher("amqp://unused", "", logger.Discard())
	p.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	ch := &fakeChannel{}
	require.NoError(t, p.attach(ch))
	assert.Equal(t, "sira.events", ch.declared)
	assert.Equal(t, "topic", ch.kind)

	require.NoError(t, p.Publish(context.Background(), AlertCreated, map[string]int{"alert_id": 9}))
	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.Equal(t, AlertCreated, ch.keys[0])
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)

	var env struct {
		ID   string         `json:"id"`
		Type string         `json:"type"`
		Data map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg.Body, &env))
	assert.Equal(t, AlertCreated, env.Type)
	assert.Equal(t, msg.MessageId, env.ID)
	assert.Equal(t, 9, env.Data["alert_id"])

	require.NoError(t, p.Stop(context.Background()))
	assert.True(t, ch.closed)
	assert.Error(t, p.Publish(context.Background(), AlertCreated, nil))
}

func TestPublishReportsBrokerErrors(t *testing.T) {
	p := NewAMQPPublisher("amqp://unused", "x", logger.Discard())
	require.NoError(t, p.attach(&fakeChannel{failWith: errors.New("channel closed")}))
	assert.Error(t, p.Publish(context.Background(), CaseClosed, nil))
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), CaseCreated, nil))
}
