package events

import (
	"context"
	"errors"
	"log/slog"

	"cloud.google.com/go/pubsub"
)

// PubSubSubscriber reads deletion events from a Pub/Sub subscription on TopicUserEvents.
type PubSubSubscriber struct {
	sub    *pubsub.Subscription
	logger *slog.Logger
}

// NewPubSubSubscriber binds to an existing subscription.
func NewPubSubSubscriber(client *pubsub.Client, subscriptionID string, logger *slog.Logger) *PubSubSubscriber {
	return &PubSubSubscriber{sub: client.Subscription(subscriptionID), logger: logger}
}

// Subscribe blocks until ctx is cancelled. Messages whose handler fails are nacked for
// redelivery; malformed messages and foreign event types are acked and skipped.
func (s *PubSubSubscriber) Subscribe(ctx context.Context, handle Handler) error {
	return s.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if t := msg.Attributes["type"]; t != "" && t != TypeUserDeleted {
			msg.Ack()
			return
		}

		evt, err := DecodeUserDeleted(msg.Data)
		if err != nil {
			s.logger.Warn("dropping malformed user event",
				slog.String("messageId", msg.ID),
				slog.Any("error", err))
			msg.Ack()
			return
		}

		if err := handle(ctx, evt); err != nil {
			if !errors.Is(err, context.Canceled) {
				s.logger.Error("user deleted handler failed",
					slog.String("messageId", msg.ID),
					slog.String("userId", evt.UserID),
					slog.Any("error", err))
			}
			msg.Nack()
			return
		}
		msg.Ack()
	})
}
