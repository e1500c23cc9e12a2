// Package kafka forwards audit events to a Kafka topic as JSON, keyed by subject
// so all events for one anonymized network land on the same partition.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	audit "confide/pkg/platform/audit"
)

// Sender is the subset of the platform producer the store needs.
type Sender interface {
	Send(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

type Store struct {
	sender Sender
	topic  string
}

func New(sender Sender, topic string) *Store {
	return &Store{sender: sender, topic: topic}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	headers := map[string]string{"event_type": event.Action}
	if event.RequestID != "" {
		headers["request_id"] = event.RequestID
	}
	if err := s.sender.Send(ctx, s.topic, []byte(event.Subject), payload, headers); err != nil {
		return fmt.Errorf("send audit event: %w", err)
	}
	return nil
}
