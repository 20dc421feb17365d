// Package publisher adapts policy lifecycle events onto the message broker.
package publisher

import (
	"context"
	"encoding/json"

	"policyd/internal/platform/kafka"
	"policyd/internal/policy/models"
	dErrors "policyd/pkg/domain-errors"
)

type producer interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// Publisher emits PolicyEvents to the status topic, keyed by policy id so all
// events of one policy land on the same partition, in order.
type Publisher struct {
	producer producer
	topic    string
}

func New(p producer, topic string) *Publisher {
	return &Publisher{producer: p, topic: topic}
}

func (p *Publisher) PublishStatusChange(ctx context.Context, event models.PolicyEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidData, "failed to encode policy event")
	}
	return p.producer.Publish(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.PolicyID.String()),
		Value: payload,
	})
}
