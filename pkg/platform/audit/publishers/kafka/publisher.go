// Package kafka ships audit events to a Kafka topic as JSON records keyed by
// subject, so downstream compliance consumers see one ordered stream per
// credential owner.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "screener/pkg/platform/audit"
)

// Publisher implements audit.Store on a Kafka topic.
type Publisher struct {
	client *kgo.Client
	topic  string
}

type record struct {
	Category          string    `json:"category"`
	Action            string    `json:"action"`
	Timestamp         time.Time `json:"timestamp"`
	Subject           string    `json:"subject,omitempty"`
	Reason            string    `json:"reason,omitempty"`
	Query             string    `json:"query,omitempty"`
	TotalHits         int       `json:"total_hits"`
	FailedSources     []string  `json:"failed_sources,omitempty"`
	ChallengedSources []string  `json:"challenged_sources,omitempty"`
	RequestID         string    `json:"request_id,omitempty"`
	ClientIP          string    `json:"client_ip,omitempty"`
	ClientAgent       string    `json:"client_agent,omitempty"`
}

// New connects a producer to the given seed brokers.
func New(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerLinger(50*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Publisher{client: client, topic: topic}, nil
}

// EnsureTopic creates the audit topic if it does not exist yet.
func (p *Publisher) EnsureTopic(ctx context.Context, partitions int32, replicationFactor int16) error {
	adm := kadm.NewClient(p.client)
	resp, err := adm.CreateTopics(ctx, partitions, replicationFactor, nil, p.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

// Append produces one event and waits for the broker acknowledgement.
func (p *Publisher) Append(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(record{
		Category:          string(event.Category),
		Action:            event.Action,
		Timestamp:         event.Timestamp,
		Subject:           event.Subject,
		Reason:            event.Reason,
		Query:             event.Query,
		TotalHits:         event.TotalHits,
		FailedSources:     event.FailedSources,
		ChallengedSources: event.ChallengedSources,
		RequestID:         event.RequestID,
		ClientIP:          event.ClientIP,
		ClientAgent:       event.ClientAgent,
	})
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	rec := &kgo.Record{
		Key:   []byte(event.Subject),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "category", Value: []byte(event.Category)},
			{Key: "action", Value: []byte(event.Action)},
		},
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes pending records and closes the client.
func (p *Publisher) Close() {
	p.client.Close()
}
