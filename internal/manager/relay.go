// internal/manager/relay.go
package manager

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"institution-chat/internal/consumer"
	"institution-chat/internal/messaging"
	"institution-chat/internal/metrics"
)

// Pusher hands a payload to a user's live connection.
type Pusher interface {
	NotifyUser(userID int64, payload []byte) bool
}

// RelayManager moves new-reply events from the broker to connected users.
// Events for users without a live socket are acknowledged and dropped.
type RelayManager struct {
	rabbit   *messaging.RabbitClient
	pusher   Pusher
	exchange string
	queue    string
	prefetch int
	log      *zap.Logger

	mu       sync.Mutex
	consumer *consumer.Consumer
}

func NewRelayManager(
	rabbit *messaging.RabbitClient,
	pusher Pusher,
	exchange, queue string,
	prefetch int,
	log *zap.Logger,
) *RelayManager {
	return &RelayManager{
		rabbit:   rabbit,
		pusher:   pusher,
		exchange: exchange,
		queue:    queue,
		prefetch: prefetch,
		log:      log,
	}
}

// Start declares the topology and spawns the consumer. It is idempotent.
func (rm *RelayManager) Start() error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.consumer != nil {
		return nil
	}

	if err := rm.rabbit.DeclareTopology(rm.exchange, rm.queue); err != nil {
		return err
	}

	c, err := consumer.StartConsumer(rm.rabbit.GetConnection(), rm.queue, "relay-"+rm.queue, rm.prefetch, rm.HandleDelivery, rm.log)
	if err != nil {
		return fmt.Errorf("start relay consumer: %w", err)
	}
	rm.consumer = c

	rm.log.Info("push relay started", zap.String("queue", rm.queue))
	return nil
}

// Shutdown stops the consumer.
func (rm *RelayManager) Shutdown() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.consumer == nil {
		return
	}
	rm.consumer.Stop()
	rm.consumer = nil
}

func (rm *RelayManager) QueueName() string {
	return rm.queue
}

// HandleDelivery is the consumer callback. Undecodable events go to the DLQ.
func (rm *RelayManager) HandleDelivery(msg amqp.Delivery) {
	userID, err := messaging.ParseUserRoutingKey(msg.RoutingKey)
	if err != nil {
		rm.log.Warn("relay: bad routing key", zap.String("routing_key", msg.RoutingKey), zap.Error(err))
		_ = msg.Reject(false)
		return
	}
	if !json.Valid(msg.Body) {
		rm.log.Warn("relay: payload is not json", zap.Int64("user_id", userID))
		_ = msg.Reject(false)
		return
	}

	if rm.pusher.NotifyUser(userID, msg.Body) {
		metrics.RelayDelivered.WithLabelValues("delivered").Inc()
	} else {
		metrics.RelayDelivered.WithLabelValues("offline").Inc()
	}
	_ = msg.Ack(false)
}
