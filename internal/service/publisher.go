// Package service publishes domain events to RabbitMQ. Errors are logged and
// returned so callers can ignore failures without interrupting the request.
package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	q "github.com/iliyamo/social-api/internal/queue"
)

const defaultDialTimeout = 5 * time.Second

// Publisher sends events to the broker at URL. A Publisher with an empty URL
// drops every event.
type Publisher struct {
	URL string
	Log zerolog.Logger
}

// NewPublisher returns a Publisher for url.
func NewPublisher(url string, log zerolog.Logger) *Publisher {
	return &Publisher{URL: url, Log: log}
}

// PublishPasswordReset publishes ev to the password reset queue as a
// persistent message.
func (p *Publisher) PublishPasswordReset(ctx context.Context, ev q.PasswordResetRequested) error {
	if p == nil || p.URL == "" {
		return nil
	}
	body, err := json.Marshal(ev)
	if err != nil {
		p.Log.Error().Err(err).Msg("rabbitmq: marshal event failed")
		return err
	}
	return p.publish(ctx, q.PasswordResetQueue, body)
}

func (p *Publisher) publish(ctx context.Context, queue string, body []byte) error {
	dialTimeout := defaultDialTimeout
	if dl, ok := ctx.Deadline(); ok {
		dialTimeout = time.Until(dl)
	}
	if dialTimeout <= 0 {
		return context.DeadlineExceeded
	}
	conn, err := amqp.DialConfig(p.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		p.Log.Warn().Err(err).Msg("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.Log.Warn().Err(err).Msg("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	// durable so messages survive broker restarts
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		p.Log.Warn().Err(err).Str("queue", queue).Msg("rabbitmq: queue declare failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		p.Log.Warn().Err(err).Str("queue", queue).Msg("rabbitmq: publish failed")
		return err
	}
	return nil
}
