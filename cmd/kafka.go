package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/jdiitm/graphrag-architect/workers/submitguard/internal/domain"
)

const (
	producerRetries         = 5
	producerDeliveryTimeout = 30 * time.Second
)

func producerOpts(brokers, topic string) []kgo.Opt {
	seeds := strings.Split(brokers, ",")
	return []kgo.Opt{
		kgo.SeedBrokers(seeds...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.RecordRetries(producerRetries),
		kgo.RecordDeliveryTimeout(producerDeliveryTimeout),
	}
}

// KafkaProducerClient publishes claim records for action.KafkaPublisher.
type KafkaProducerClient struct {
	client *kgo.Client
}

func NewKafkaProducerClient(brokers, topic string) (*KafkaProducerClient, error) {
	client, err := kgo.NewClient(producerOpts(brokers, topic)...)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &KafkaProducerClient{client: client}, nil
}

func buildRecord(topic string, key, value []byte, headers map[string]string) *kgo.Record {
	record := &kgo.Record{Topic: topic, Key: key, Value: value}
	for k, v := range headers {
		record.Headers = append(record.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}
	return record
}

func (p *KafkaProducerClient) Produce(ctx context.Context, topic string, key, value []byte, headers map[string]string) error {
	result := p.client.ProduceSync(ctx, buildRecord(topic, key, value, headers))
	if err := result.FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}
	return nil
}

func (p *KafkaProducerClient) Close() {
	p.client.Close()
}

type LogDLQSink struct{}

func (l *LogDLQSink) Send(_ context.Context, r domain.Result) error {
	log.Printf("DLQ: store=%s key=%s seq=%d claimed=%t err=%v",
		r.Store, r.Task.Key, r.Task.Seq, r.Claimed, r.Err)
	return nil
}
