// Package notify delivers new-reply events to a user's private channel.
//
// Delivery is asynchronous, best-effort and at-most-once: a failed or dropped
// push is logged and counted, never retried. Receivers treat an event as a
// hint to re-fetch, not as state.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"institution-chat/internal/chat"
	"institution-chat/internal/messaging"
	"institution-chat/internal/metrics"
	"institution-chat/internal/model"
	"institution-chat/internal/worker"
)

const EventNewReply = "new-reply"

// Event is the payload published on a user channel.
type Event struct {
	Event       string          `json:"event"`
	RecipientID int64           `json:"recipient_id"`
	Reply       model.ReplyView `json:"data"`
}

// Publisher is the broker side; *messaging.RabbitClient satisfies it.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
}

// Submitter runs jobs off the caller's goroutine; *worker.WorkerPool satisfies it.
type Submitter interface {
	Submit(job worker.Job) bool
}

type AsyncNotifier struct {
	pool     Submitter
	pub      Publisher
	exchange string
	timeout  time.Duration
	log      *zap.Logger
}

var _ chat.Notifier = (*AsyncNotifier)(nil)

func NewAsyncNotifier(pool Submitter, pub Publisher, exchange string, timeout time.Duration, log *zap.Logger) *AsyncNotifier {
	return &AsyncNotifier{
		pool:     pool,
		pub:      pub,
		exchange: exchange,
		timeout:  timeout,
		log:      log,
	}
}

// Notify queues the push and returns at once. A full queue drops the event.
func (n *AsyncNotifier) Notify(recipientID int64, reply model.ReplyView) {
	ok := n.pool.Submit(func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()

		if err := n.deliver(ctx, recipientID, reply); err != nil {
			metrics.Notifications.WithLabelValues("failed").Inc()
			n.log.Warn("push notification failed",
				zap.Int64("recipient_id", recipientID),
				zap.Int64("reply_id", reply.ID),
				zap.Int64("conversation_id", reply.ConversationID),
				zap.Error(err))
			return
		}
		metrics.Notifications.WithLabelValues("sent").Inc()
	})
	if !ok {
		metrics.Notifications.WithLabelValues("dropped").Inc()
		n.log.Warn("push notification dropped, queue full",
			zap.Int64("recipient_id", recipientID),
			zap.Int64("reply_id", reply.ID))
	}
}

func (n *AsyncNotifier) deliver(ctx context.Context, recipientID int64, reply model.ReplyView) error {
	body, err := json.Marshal(Event{Event: EventNewReply, RecipientID: recipientID, Reply: reply})
	if err != nil {
		return fmt.Errorf("%w: encode event: %v", chat.ErrDeliveryFailed, err)
	}
	if err := n.pub.Publish(ctx, n.exchange, messaging.UserRoutingKey(recipientID), body); err != nil {
		return fmt.Errorf("%w: %v", chat.ErrDeliveryFailed, err)
	}
	return nil
}
