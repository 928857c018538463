// Package publisher streams audit traffic to Kafka as a best-effort side
// channel for SIEM pipelines and operators. It is a Sink, not a store: the
// durable trail lives in the primary store, and fail-open losses are
// published here so they stay observable even though the write path
// swallowed them.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"chronicle/pkg/audit"
)

// KafkaSink publishes audit records to a single topic, keyed by entity so a
// given entity's stream stays ordered within a partition.
type KafkaSink struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// KafkaSinkOption configures a KafkaSink.
type KafkaSinkOption func(*KafkaSink)

// WithLogger sets the logger for publish failures.
func WithLogger(logger *slog.Logger) KafkaSinkOption {
	return func(s *KafkaSink) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewKafkaSink connects a producer and ensures the topic exists.
func NewKafkaSink(ctx context.Context, brokers []string, topic string, opts ...KafkaSinkOption) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchMaxBytes(1<<20),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}

	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}

	s := &KafkaSink{
		client: client,
		topic:  topic,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// ensureTopic creates the audit topic when it does not exist yet.
func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, 1, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %q: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %q: %w", topic, resp.Err)
	}
	return nil
}

// message is the JSON envelope published per event.
type message struct {
	Kind          string        `json:"kind"` // "appended" or "lost"
	AuditableType string        `json:"auditable_type"`
	AuditableID   string        `json:"auditable_id"`
	OwnerType     string        `json:"owner_type,omitempty"`
	OwnerID       string        `json:"owner_id,omitempty"`
	ActorID       string        `json:"actor_id,omitempty"`
	ActorType     string        `json:"actor_type,omitempty"`
	Action        string        `json:"action"`
	Changes       audit.Changes `json:"changes"`
	Comment       string        `json:"comment,omitempty"`
	Version       int64         `json:"version,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UserAgent     string        `json:"user_agent,omitempty"`
	RequestID     string        `json:"request_id,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// RecordAppended implements audit.Sink.
func (s *KafkaSink) RecordAppended(ctx context.Context, rec audit.Record) {
	s.publish(ctx, "appended", rec, nil)
}

// RecordLost implements audit.Sink.
func (s *KafkaSink) RecordLost(ctx context.Context, rec audit.Record, cause error) {
	s.publish(ctx, "lost", rec, cause)
}

func (s *KafkaSink) publish(ctx context.Context, kind string, rec audit.Record, cause error) {
	msg := message{
		Kind:          kind,
		AuditableType: rec.AuditableType,
		AuditableID:   rec.AuditableID,
		OwnerType:     rec.OwnerType,
		OwnerID:       rec.OwnerID,
		ActorID:       rec.Actor.ID,
		ActorType:     rec.Actor.Type,
		Action:        string(rec.Action),
		Changes:       rec.Changes,
		Comment:       rec.Comment,
		Version:       rec.Version,
		CreatedAt:     rec.CreatedAt,
		UserAgent:     rec.UserAgent,
		RequestID:     rec.RequestID,
	}
	if cause != nil {
		msg.Error = cause.Error()
	}

	value, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("marshal audit sink message", "error", err)
		return
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(rec.AuditableType + ":" + rec.AuditableID),
		Value: value,
	}
	s.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			s.logger.Error("publish audit sink message",
				"topic", s.topic,
				"auditable_type", rec.AuditableType,
				"auditable_id", rec.AuditableID,
				"error", err,
			)
		}
	})
}

// Close flushes pending messages and releases the producer.
func (s *KafkaSink) Close(ctx context.Context) error {
	if err := s.client.Flush(ctx); err != nil {
		return fmt.Errorf("flush audit sink: %w", err)
	}
	s.client.Close()
	return nil
}
