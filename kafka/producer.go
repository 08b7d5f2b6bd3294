package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/KOMKZ/go-yogan-articlecache/logger"
	"go.uber.org/zap"
)

// Message outgoing message
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string

	// Timestamp zero means broker time
	Timestamp time.Time
}

// ProducerResult send result
type ProducerResult struct {
	Topic     string
	Partition int32
	Offset    int64
}

// SyncProducer synchronous producer
type SyncProducer struct {
	producer sarama.SyncProducer
	logger   *logger.CtxZapLogger
	mu       sync.RWMutex
	closed   bool
}

// NewSyncProducer wraps a sarama producer
func NewSyncProducer(producer sarama.SyncProducer, log *logger.CtxZapLogger) *SyncProducer {
	if log == nil {
		log = logger.Nop()
	}
	return &SyncProducer{
		producer: producer,
		logger:   log,
	}
}

// Send synchronous message
func (p *SyncProducer) Send(ctx context.Context, msg *Message) (*ProducerResult, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, fmt.Errorf("producer is closed")
	}
	if msg == nil {
		return nil, fmt.Errorf("message cannot be nil")
	}
	if msg.Topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}

	saramaMsg := &sarama.ProducerMessage{
		Topic: msg.Topic,
		Value: sarama.ByteEncoder(msg.Value),
	}
	if len(msg.Key) > 0 {
		saramaMsg.Key = sarama.ByteEncoder(msg.Key)
	}
	if !msg.Timestamp.IsZero() {
		saramaMsg.Timestamp = msg.Timestamp
	}
	for k, v := range msg.Headers {
		saramaMsg.Headers = append(saramaMsg.Headers, sarama.RecordHeader{
			Key:   []byte(k),
			Value: []byte(v),
		})
	}

	partition, offset, err := p.producer.SendMessage(saramaMsg)
	if err != nil {
		p.logger.ErrorCtx(ctx, "send message failed",
			zap.String("topic", msg.Topic),
			zap.Error(err))
		return nil, fmt.Errorf("send message failed: %w", err)
	}

	p.logger.DebugCtx(ctx, "message sent",
		zap.String("topic", msg.Topic),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))

	return &ProducerResult{
		Topic:     msg.Topic,
		Partition: partition,
		Offset:    offset,
	}, nil
}

// SendJSON sends value encoded as JSON
func (p *SyncProducer) SendJSON(ctx context.Context, topic string, key string, value any) (*ProducerResult, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal json failed: %w", err)
	}

	return p.Send(ctx, &Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Headers: map[string]string{
			"content-type": "application/json",
		},
	})
}

// Close shutdown producer
func (p *SyncProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("close producer failed: %w", err)
	}
	return nil
}
