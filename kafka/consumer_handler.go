package kafka

import (
	"context"

	"go.uber.org/zap"
)

// ConsumerHandler message handler with a name for logs
type ConsumerHandler interface {
	// Name consumer name
	Name() string

	// Handle message
	Handle(ctx context.Context, msg *ConsumedMessage) error
}

// ConsumerHandlerFunc functional Handler
type ConsumerHandlerFunc struct {
	name    string
	handler MessageHandler
}

// NewConsumerHandlerFunc creates a functional Handler
func NewConsumerHandlerFunc(name string, handler MessageHandler) *ConsumerHandlerFunc {
	return &ConsumerHandlerFunc{
		name:    name,
		handler: handler,
	}
}

// Name returns the consumer name
func (h *ConsumerHandlerFunc) Name() string {
	return h.name
}

// Handle message
func (h *ConsumerHandlerFunc) Handle(ctx context.Context, msg *ConsumedMessage) error {
	if h.handler == nil {
		return nil
	}
	return h.handler(ctx, msg)
}

var _ ConsumerHandler = (*ConsumerHandlerFunc)(nil)

// Run starts the group with h; the handler name is attached to every log line
func (c *ConsumerGroup) Run(ctx context.Context, h ConsumerHandler) error {
	c.mu.Lock()
	if !c.running {
		c.logger = c.logger.With(zap.String("consumer", h.Name()))
	}
	c.mu.Unlock()
	return c.Start(ctx, func(ctx context.Context, msg *ConsumedMessage) error {
		return h.Handle(ctx, msg)
	})
}
