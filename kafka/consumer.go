package kafka

import (
	"context"
	"fmt"
	"sync"

	"github.com/IBM/sarama"
	"github.com/KOMKZ/go-yogan-articlecache/logger"
	"go.uber.org/zap"
)

// ConsumedMessage consumed message
type ConsumedMessage struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string

	// Timestamp unix millis
	Timestamp int64
}

// MessageHandler message processing function
type MessageHandler func(ctx context.Context, msg *ConsumedMessage) error

// ConsumerGroup runs a handler over a sarama consumer group
type ConsumerGroup struct {
	group   sarama.ConsumerGroup
	config  ConsumerConfig
	logger  *logger.CtxZapLogger
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

// NewConsumerGroup wraps an existing sarama consumer group
func NewConsumerGroup(group sarama.ConsumerGroup, cfg ConsumerConfig, log *logger.CtxZapLogger) *ConsumerGroup {
	if log == nil {
		log = logger.Nop()
	}
	return &ConsumerGroup{
		group:  group,
		config: cfg,
		logger: log,
	}
}

// Start consumes in the background until Stop or ctx is cancelled
func (c *ConsumerGroup) Start(ctx context.Context, handler MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return fmt.Errorf("consumer is already running")
	}
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.running = true
	c.cancel = cancel
	c.doneCh = make(chan struct{})

	go c.consumeLoop(loopCtx, handler, c.doneCh)
	go c.drainErrors(loopCtx)

	c.logger.InfoCtx(ctx, "consumer group started",
		zap.String("group_id", c.config.GroupID),
		zap.Strings("topics", c.config.Topics))

	return nil
}

// consumeLoop Consume returns on every rebalance, so it is called in a loop
func (c *ConsumerGroup) consumeLoop(ctx context.Context, handler MessageHandler, done chan struct{}) {
	defer close(done)

	h := &consumerGroupHandler{handler: handler, logger: c.logger}
	for {
		if err := c.group.Consume(ctx, c.config.Topics, h); err != nil {
			c.logger.ErrorCtx(ctx, "consume error", zap.Error(err))
		}
		if ctx.Err() != nil {
			c.logger.DebugCtx(ctx, "consumer loop stopped")
			return
		}
	}
}

func (c *ConsumerGroup) drainErrors(ctx context.Context) {
	errs := c.group.Errors()
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				return
			}
			c.logger.ErrorCtx(ctx, "consumer group error", zap.Error(err))
		}
	}
}

// Stop cancels consumption, waits for the loop and closes the group
func (c *ConsumerGroup) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	cancel, done := c.cancel, c.doneCh
	c.mu.Unlock()

	cancel()
	<-done

	if err := c.group.Close(); err != nil {
		return fmt.Errorf("close consumer group failed: %w", err)
	}

	c.logger.Info("consumer group stopped", zap.String("group_id", c.config.GroupID))
	return nil
}

// IsRunning reports whether Start was called without a matching Stop
func (c *ConsumerGroup) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	handler MessageHandler
	logger  *logger.CtxZapLogger
}

// Setup called at the start of a new session
func (h *consumerGroupHandler) Setup(session sarama.ConsumerGroupSession) error {
	h.logger.DebugCtx(session.Context(), "consumer session setup",
		zap.Int32("generation_id", session.GenerationID()),
		zap.String("member_id", session.MemberID()))
	return nil
}

// Cleanup is called at the end of the session
func (h *consumerGroupHandler) Cleanup(session sarama.ConsumerGroupSession) error {
	h.logger.DebugCtx(session.Context(), "consumer session cleanup",
		zap.Int32("generation_id", session.GenerationID()))
	return nil
}

// ConsumeClaim 处理失败只记录日志，消息仍会被标记
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-session.Context().Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}

			consumed := &ConsumedMessage{
				Topic:     msg.Topic,
				Partition: msg.Partition,
				Offset:    msg.Offset,
				Key:       msg.Key,
				Value:     msg.Value,
				Timestamp: msg.Timestamp.UnixMilli(),
				Headers:   make(map[string]string, len(msg.Headers)),
			}
			for _, header := range msg.Headers {
				if header != nil {
					consumed.Headers[string(header.Key)] = string(header.Value)
				}
			}

			if err := h.handler(session.Context(), consumed); err != nil {
				h.logger.ErrorCtx(session.Context(), "handle message failed",
					zap.String("topic", msg.Topic),
					zap.Int32("partition", msg.Partition),
					zap.Int64("offset", msg.Offset),
					zap.Error(err))
			}

			session.MarkMessage(msg, "")
		}
	}
}
