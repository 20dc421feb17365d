package models

import (
	"time"

	"github.com/google/uuid"
)

// PolicyEvent is the immutable fact emitted once per committed status change.
// Downstream consumers (and this service's own confirmation loop) key on
// PolicyID.
type PolicyEvent struct {
	PolicyID   uuid.UUID `json:"policy_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	NewStatus  Status    `json:"new_status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewPolicyEvent builds the event for one status change of p.
func NewPolicyEvent(p *Policy, status Status, occurredAt time.Time) PolicyEvent {
	return PolicyEvent{
		PolicyID:   p.ID,
		CustomerID: p.CustomerID,
		NewStatus:  status,
		OccurredAt: occurredAt,
	}
}

// ConfirmationKind distinguishes the two asynchronous confirmation signals.
type ConfirmationKind string

const (
	ConfirmationPayment      ConfirmationKind = "payment"
	ConfirmationSubscription ConfirmationKind = "subscription"
)

// ConfirmationResult is the payload of an inbound payment or subscription
// result message, correlated to a policy only by PolicyID. Delivery is
// at-least-once and unordered.
type ConfirmationResult struct {
	PolicyID uuid.UUID `json:"policy_id"`
	Success  bool      `json:"success"`
}
