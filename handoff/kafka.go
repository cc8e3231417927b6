package handoff

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"trendscout/types"
)

// GenerationRequest is published for every handed-off run
type GenerationRequest struct {
	RunID         string                            `json:"run_id"`
	SessionID     string                            `json:"session_id,omitempty"`
	BundleKey     string                            `json:"bundle_key,omitempty"`
	BundleURL     string                            `json:"bundle_url,omitempty"`
	DocumentCount int                               `json:"document_count"`
	Warnings      []string                          `json:"warnings"`
	StageStatuses map[types.Stage]types.StageStatus `json:"stage_statuses"`
}

// KafkaNotifier publishes generation requests with a synchronous producer
type KafkaNotifier struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaNotifier connects a producer to brokers
func NewKafkaNotifier(brokers []string, topic string) (*KafkaNotifier, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_6_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewKafkaNotifierWithProducer(producer, topic), nil
}

// NewKafkaNotifierWithProducer wraps an existing producer
func NewKafkaNotifierWithProducer(producer sarama.SyncProducer, topic string) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, topic: topic}
}

// Notify publishes req keyed by run id
func (k *KafkaNotifier) Notify(ctx context.Context, req GenerationRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode generation request: %w", err)
	}
	_, _, err = k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(req.RunID),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", k.topic, err)
	}
	return nil
}

// Close closes the producer
func (k *KafkaNotifier) Close() error {
	return k.producer.Close()
}
