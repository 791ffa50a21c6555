package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/jdiitm/graphrag-architect/workers/submitguard/internal/dlq"
	"github.com/jdiitm/graphrag-architect/workers/submitguard/internal/domain"
)

type KafkaDLQSink struct {
	client *kgo.Client
	topic  string
}

func NewKafkaDLQSink(brokers, topic string) (*KafkaDLQSink, error) {
	client, err := kgo.NewClient(producerOpts(brokers, topic)...)
	if err != nil {
		return nil, fmt.Errorf("create dlq producer: %w", err)
	}
	return &KafkaDLQSink{client: client, topic: topic}, nil
}

func buildDLQRecord(r domain.Result) (*kgo.Record, error) {
	value, err := json.Marshal(dlq.NewFileSinkRecord(r))
	if err != nil {
		return nil, fmt.Errorf("marshal dlq record: %w", err)
	}
	headers := []kgo.RecordHeader{
		{Key: "store", Value: []byte(r.Store)},
		{Key: "seq", Value: []byte(strconv.Itoa(r.Task.Seq))},
		{Key: "claimed", Value: []byte(strconv.FormatBool(r.Claimed))},
		{Key: "failed_at", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
	}
	if r.Err != nil {
		headers = append(headers, kgo.RecordHeader{
			Key: "error", Value: []byte(r.Err.Error()),
		})
	}
	return &kgo.Record{
		Key:     []byte(r.Task.Key),
		Value:   value,
		Headers: headers,
	}, nil
}

func (k *KafkaDLQSink) Send(ctx context.Context, r domain.Result) error {
	record, err := buildDLQRecord(r)
	if err != nil {
		return err
	}
	result := k.client.ProduceSync(ctx, record)
	if err := result.FirstErr(); err != nil {
		return fmt.Errorf("dlq produce to %s: %w", k.topic, err)
	}
	log.Printf("DLQ: published to %s store=%s key=%s seq=%d", k.topic, r.Store, r.Task.Key, r.Task.Seq)
	return nil
}

func (k *KafkaDLQSink) Close() {
	k.client.Close()
}
