// Package kafka wraps franz-go behind small producer/consumer types so the
// rest of the service deals in messages, not client plumbing.
package kafka

import "context"

// Message is one record on the wire.
type Message struct {
	Topic string
	Key   []byte
	Value []byte
}

// Handler processes a single consumed message. A non-nil error triggers the
// consumer's retry policy.
type Handler func(ctx context.Context, msg Message) error

// DLQTopic returns the dead-letter twin of a topic.
func DLQTopic(topic string) string {
	return topic + ".dlq"
}
