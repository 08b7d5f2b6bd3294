package kafka

import (
	"context"
	"fmt"
)

// PublishJSON 发布 JSON 消息到指定 Topic
func (m *Manager) PublishJSON(ctx context.Context, topic string, key string, payload any) error {
	producer := m.Producer()
	if producer == nil {
		return fmt.Errorf("producer not available")
	}

	if topic == "" {
		topic = DefaultArticleTopic
	}

	_, err := producer.SendJSON(ctx, topic, key, payload)
	return err
}
