package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaSink produces audit events to a Kafka topic, keyed by wallet so
// per-wallet event order is preserved within a partition. Produce-only; the
// consumer side lives with whoever owns the reconciliation tooling.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

// NewKafkaSink connects a producer to the given brokers.
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchMaxBytes(1<<20),
		kgo.ProduceRequestTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}
	return &KafkaSink{client: client, topic: topic}, nil
}

// kafkaPayload is the JSON structure produced to the topic.
type kafkaPayload struct {
	Category   string `json:"category"`
	Timestamp  string `json:"timestamp"`
	Action     string `json:"action"`
	WalletID   string `json:"wallet_id,omitempty"`
	IdentityID string `json:"identity_id,omitempty"`
	TxID       string `json:"txid,omitempty"`
	LockID     string `json:"lock_id,omitempty"`
	Amount     int64  `json:"amount,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

func (s *KafkaSink) Append(ctx context.Context, event Event) error {
	payload := kafkaPayload{
		Category:  string(event.Category),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Action:    event.Action,
		LockID:    event.LockID,
		TxID:      event.TxID.String(),
		Amount:    event.Amount,
		Reason:    event.Reason,
	}
	if !event.WalletID.IsNil() {
		payload.WalletID = event.WalletID.String()
	}
	if !event.IdentityID.IsNil() {
		payload.IdentityID = event.IdentityID.String()
	}

	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(payload.WalletID),
		Value: value,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes buffered records and releases the client.
func (s *KafkaSink) Close() {
	s.client.Close()
}
