package events

import (
	"context"
	"log/slog"
)

const memoryBusBuffer = 64

// MemoryBus is an in-process deletion stream used with the in-memory identity provider.
// Delivery is asynchronous: Publish enqueues, Subscribe drains.
type MemoryBus struct {
	ch     chan UserDeleted
	logger *slog.Logger
}

// NewMemoryBus creates an empty bus.
func NewMemoryBus(logger *slog.Logger) *MemoryBus {
	return &MemoryBus{ch: make(chan UserDeleted, memoryBusBuffer), logger: logger}
}

// Publish enqueues evt, blocking while the buffer is full.
func (b *MemoryBus) Publish(ctx context.Context, evt UserDeleted) error {
	select {
	case b.ch <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe hands every event to handle until ctx is cancelled. Failed events are
// logged and dropped; there is no redelivery in memory.
func (b *MemoryBus) Subscribe(ctx context.Context, handle Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-b.ch:
			if err := handle(ctx, evt); err != nil && b.logger != nil {
				b.logger.Error("user deleted handler failed",
					slog.String("userId", evt.UserID),
					slog.Any("error", err))
			}
		}
	}
}
