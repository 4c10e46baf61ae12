// internal/messaging/rabbit.go
package messaging

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"institution-chat/internal/metrics"
)

const userKeyPrefix = "user."

// UserRoutingKey is the private channel of one user on the replies exchange.
func UserRoutingKey(userID int64) string {
	return userKeyPrefix + strconv.FormatInt(userID, 10)
}

// ParseUserRoutingKey reverses UserRoutingKey.
func ParseUserRoutingKey(key string) (int64, error) {
	if !strings.HasPrefix(key, userKeyPrefix) {
		return 0, fmt.Errorf("routing key %q is not a user channel", key)
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(key, userKeyPrefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("routing key %q carries no user id", key)
	}
	return id, nil
}

type RabbitClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	URL     string
	log     *zap.Logger

	// amqp channels serialise frames internally, but publishes from the
	// notifier workers must not interleave with topology calls.
	mu sync.Mutex
}

func NewRabbitClient(url string, log *zap.Logger) (*RabbitClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	return &RabbitClient{
		conn:    conn,
		channel: ch,
		URL:     url,
		log:     log,
	}, nil
}

func (r *RabbitClient) GetChannel() *amqp.Channel {
	return r.channel
}

func (r *RabbitClient) GetConnection() *amqp.Connection {
	return r.conn
}

// DeclareTopology creates the replies topic exchange and the relay queue
// bound to every user channel, with a dead-letter queue for rejects.
func (r *RabbitClient) DeclareTopology(exchange, relayQueue string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.channel.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	dlqName := relayQueue + "_dlq"
	if _, err := r.channel.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlqName,
	}
	if _, err := r.channel.QueueDeclare(relayQueue, true, false, false, false, args); err != nil {
		return fmt.Errorf("declare relay queue: %w", err)
	}

	if err := r.channel.QueueBind(relayQueue, userKeyPrefix+"*", exchange, false, nil); err != nil {
		return fmt.Errorf("bind relay queue: %w", err)
	}

	r.log.Info("rabbit topology declared", zap.String("exchange", exchange), zap.String("queue", relayQueue))
	return nil
}

// Publish sends body to exchange under routingKey. Messages are transient:
// pushes are best-effort and not worth persisting.
func (r *RabbitClient) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.channel.Publish(
		exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Transient,
			MessageId:    uuid.NewString(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to %s/%s: %w", exchange, routingKey, err)
	}
	return nil
}

// Close cleans up connection and channel
func (r *RabbitClient) Close() error {
	if err := r.channel.Close(); err != nil {
		return err
	}
	if err := r.conn.Close(); err != nil {
		return err
	}
	return nil
}

func (r *RabbitClient) UpdateQueueDepth(queueName string) {
	r.mu.Lock()
	q, err := r.channel.QueueInspect(queueName)
	r.mu.Unlock()
	if err != nil {
		r.log.Warn("failed to inspect queue", zap.String("queue", queueName), zap.Error(err))
		return
	}

	metrics.RelayQueueDepth.Set(float64(q.Messages))
}
