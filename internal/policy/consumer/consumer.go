// Package consumer routes inbound confirmation messages to the policy service.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"policyd/internal/platform/kafka"
	"policyd/internal/policy/models"
	dErrors "policyd/pkg/domain-errors"
)

// Confirmations is the slice of the policy service the consumer drives.
type Confirmations interface {
	ApplyPaymentResult(ctx context.Context, result models.ConfirmationResult) error
	ApplySubscriptionResult(ctx context.Context, result models.ConfirmationResult) error
}

// Router dispatches records by topic. A malformed payload is a processing
// failure like any other: it propagates so the broker retries and eventually
// dead-letters the record, never silently dropping it.
type Router struct {
	service           Confirmations
	paymentTopic      string
	subscriptionTopic string
}

func NewRouter(service Confirmations, paymentTopic, subscriptionTopic string) *Router {
	return &Router{
		service:           service,
		paymentTopic:      paymentTopic,
		subscriptionTopic: subscriptionTopic,
	}
}

// Handle implements kafka.Handler.
func (r *Router) Handle(ctx context.Context, msg kafka.Message) error {
	result, err := decodeResult(msg.Value)
	if err != nil {
		return err
	}
	switch msg.Topic {
	case r.paymentTopic:
		return r.service.ApplyPaymentResult(ctx, result)
	case r.subscriptionTopic:
		return r.service.ApplySubscriptionResult(ctx, result)
	default:
		return fmt.Errorf("unroutable topic %s", msg.Topic)
	}
}

func decodeResult(payload []byte) (models.ConfirmationResult, error) {
	var result models.ConfirmationResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return models.ConfirmationResult{}, dErrors.Wrap(err, dErrors.CodeInvalidData, "malformed confirmation payload")
	}
	if result.PolicyID == uuid.Nil {
		return models.ConfirmationResult{}, dErrors.New(dErrors.CodeInvalidData, "confirmation payload missing policy_id")
	}
	return result, nil
}
