package action

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type Producer interface {
	Produce(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

type claimPayload struct {
	Key       string    `json:"key"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// KafkaPublisher emits one record per claimed key, keyed by the claim key.
type KafkaPublisher struct {
	producer Producer
	topic    string
	now      func() time.Time
}

func NewKafkaPublisher(producer Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, now: time.Now}
}

func (p *KafkaPublisher) Perform(ctx context.Context, key string) error {
	data, err := json.Marshal(claimPayload{Key: key, ClaimedAt: p.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal claim payload: %w", err)
	}
	headers := map[string]string{
		"claim_key": key,
	}
	if err := p.producer.Produce(ctx, p.topic, []byte(key), data, headers); err != nil {
		return fmt.Errorf("publish claim %s to %s: %w", key, p.topic, err)
	}
	return nil
}
