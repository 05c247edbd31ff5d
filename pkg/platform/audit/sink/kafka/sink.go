// Package kafka ships audit events to a kafka topic. The sink satisfies
// audit.Store so the publisher can fan out to it; reads are served downstream
// by whatever consumes the topic, not by this process.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "warden/pkg/platform/audit"
	"warden/pkg/platform/sentinel"
)

// DefaultTopic is the audit topic when none is configured.
const DefaultTopic = "warden.audit"

// Sink produces audit events to kafka. Events are keyed by subject so all
// events for a user land in one partition, preserving per-user ordering.
type Sink struct {
	client *kgo.Client
	topic  string
}

// SinkOption configures a Sink.
type SinkOption func(*Sink)

// WithTopic overrides the audit topic.
func WithTopic(topic string) SinkOption {
	return func(s *Sink) {
		s.topic = topic
	}
}

// NewSink connects to the given brokers and ensures the audit topic exists.
func NewSink(ctx context.Context, brokers []string, opts ...SinkOption) (*Sink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	s := &Sink{client: client, topic: DefaultTopic}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.ensureTopic(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

// ensureTopic creates the audit topic when it does not exist yet.
func (s *Sink) ensureTopic(ctx context.Context) error {
	adm := kadm.NewClient(s.client)
	resp, err := adm.CreateTopic(ctx, 1, 1, nil, s.topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create audit topic: %w", resp.Err)
	}
	return nil
}

// Append produces the event synchronously.
func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.Subject),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// ListByUser is not served by the kafka sink; consumers read the topic.
func (s *Sink) ListByUser(context.Context, string) ([]audit.Event, error) {
	return nil, sentinel.ErrUnavailable
}

// Close flushes and releases the kafka client.
func (s *Sink) Close() {
	s.client.Close()
}
