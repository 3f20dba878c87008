package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"ride_ledger/internal/models"
)

// AMQPPublisher publishes each event to a durable topic exchange with
// the event kind ("ride.funded", ...) as routing key.
type AMQPPublisher struct {
	exchange string
	conn     *amqp.Connection
	ch       *amqp.Channel
	mu       sync.Mutex
}

// DialAMQP connects with retry and declares the exchange.
func DialAMQP(ctx context.Context, url, exchange string) (*AMQPPublisher, error) {
	const maxRetries = 10
	retryDelay := time.Second

	for attempt := 1; ; attempt++ {
		p, err := connectAMQP(url, exchange)
		if err == nil {
			logrus.WithFields(logrus.Fields{"exchange": exchange, "attempt": attempt}).Info("Connected to RabbitMQ.")
			return p, nil
		}
		if attempt == maxRetries {
			return nil, fmt.Errorf("failed to connect after %d attempts: %w", maxRetries, err)
		}
		logrus.WithError(err).WithField("attempt", attempt).Warn("RabbitMQ connection attempt failed.")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
			retryDelay = time.Duration(float64(retryDelay) * 1.5)
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}
		}
	}
}

func connectAMQP(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPPublisher{exchange: exchange, conn: conn, ch: ch}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev models.RideEvent) error {
	msg, err := newPublishing(ev)
	if err != nil {
		return err
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(publishCtx, p.exchange, ev.Kind, false, false, msg)
}

func newPublishing(ev models.RideEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    fmt.Sprintf("%d", ev.Seq),
		Type:         ev.Kind,
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.CreatedAt,
	}, nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	return p.conn.Close()
}
