package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dErrors "policyd/pkg/domain-errors"
)

// DecisionFunc decides whether a policy request passes risk validation.
// The production table lives in internal/policy/risk; tests may substitute
// their own.
type DecisionFunc func(classification RiskClassification, category Category, insuredAmount decimal.Decimal) bool

// StatusChange is one entry of a policy's append-only status history.
type StatusChange struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Policy is the aggregate root for an insurance policy request.
//
// Invariants:
//   - History holds one entry per status the policy ever assumed, in
//     chronological order, starting with RECEIVED. Never reordered or pruned.
//   - Status only moves along the state machine in status.go; a failed
//     legality check leaves the aggregate completely untouched.
//   - FinishedAt is set exactly once, when the status first becomes terminal,
//     and is nil before that.
//   - PaymentConfirmed and SubscriptionAuthorized only ever go false→true,
//     and only while the status is non-terminal.
//
// Mutation happens exclusively through the transition methods below; nothing
// else may assign Status or append to History.
type Policy struct {
	ID                     uuid.UUID                  `json:"id"`
	CustomerID             uuid.UUID                  `json:"customer_id"`
	ProductID              uuid.UUID                  `json:"product_id"`
	Category               Category                   `json:"category"`
	SalesChannel           string                     `json:"sales_channel"`
	PaymentMethod          string                     `json:"payment_method"`
	TotalMonthlyPremium    decimal.Decimal            `json:"total_monthly_premium"`
	InsuredAmount          decimal.Decimal            `json:"insured_amount"`
	Coverages              map[string]decimal.Decimal `json:"coverages"`
	Assistances            []string                   `json:"assistances"`
	PaymentConfirmed       bool                       `json:"payment_confirmed"`
	SubscriptionAuthorized bool                       `json:"subscription_authorized"`
	Status                 Status                     `json:"status"`
	CreatedAt              time.Time                  `json:"created_at"`
	FinishedAt             *time.Time                 `json:"finished_at,omitempty"`
	History                []StatusChange             `json:"history"`
}

// NewPolicyInput carries the caller-supplied fields of a new policy request.
type NewPolicyInput struct {
	CustomerID          uuid.UUID
	ProductID           uuid.UUID
	Category            Category
	SalesChannel        string
	PaymentMethod       string
	TotalMonthlyPremium decimal.Decimal
	InsuredAmount       decimal.Decimal
	Coverages           map[string]decimal.Decimal
	Assistances         []string
}

// NewPolicy constructs a RECEIVED policy with its history seeded.
func NewPolicy(in NewPolicyInput, now time.Time) (*Policy, error) {
	if in.CustomerID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "customer id is required")
	}
	if in.ProductID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "product id is required")
	}
	if _, ok := ParseCategory(string(in.Category)); !ok {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown insurance category")
	}
	if in.InsuredAmount.IsNegative() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "insured amount cannot be negative")
	}
	if in.TotalMonthlyPremium.IsNegative() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "total monthly premium cannot be negative")
	}
	for name, amount := range in.Coverages {
		if amount.IsNegative() {
			return nil, dErrors.New(dErrors.CodeBadRequest, "coverage amount cannot be negative: "+name)
		}
	}

	p := &Policy{
		ID:                  uuid.New(),
		CustomerID:          in.CustomerID,
		ProductID:           in.ProductID,
		Category:            in.Category,
		SalesChannel:        in.SalesChannel,
		PaymentMethod:       in.PaymentMethod,
		TotalMonthlyPremium: in.TotalMonthlyPremium,
		InsuredAmount:       in.InsuredAmount,
		Coverages:           in.Coverages,
		Assistances:         in.Assistances,
		Status:              StatusReceived,
		CreatedAt:           now,
	}
	p.History = append(p.History, StatusChange{Status: StatusReceived, Timestamp: now})
	return p, nil
}

// Validate runs the risk decision and moves the policy to VALIDATED or
// REJECTED. It is legal only from RECEIVED: later statuses already carry a
// decision and terminal statuses admit no transitions at all.
func (p *Policy) Validate(classification RiskClassification, decide DecisionFunc, now time.Time) error {
	if p.Status != StatusReceived {
		return invalidTransition(p.Status, "validate")
	}
	if decide(classification, p.Category, p.InsuredAmount) {
		p.transitionTo(StatusValidated, now)
	} else {
		p.transitionTo(StatusRejected, now)
		p.finish(now)
	}
	return nil
}

// MarkAsPending moves a VALIDATED policy to PENDING, where it waits for the
// payment and subscription confirmations.
func (p *Policy) MarkAsPending(now time.Time) error {
	if !p.Status.CanTransitionTo(StatusPending) {
		return invalidTransition(p.Status, "mark as pending")
	}
	p.transitionTo(StatusPending, now)
	return nil
}

// Approve finalizes a PENDING policy.
func (p *Policy) Approve(now time.Time) error {
	if !p.Status.CanTransitionTo(StatusApproved) {
		return invalidTransition(p.Status, "approve")
	}
	p.transitionTo(StatusApproved, now)
	p.finish(now)
	return nil
}

// Reject finalizes a PENDING or VALIDATED policy.
func (p *Policy) Reject(now time.Time) error {
	if !p.Status.CanTransitionTo(StatusRejected) || p.Status == StatusReceived {
		return invalidTransition(p.Status, "reject")
	}
	p.transitionTo(StatusRejected, now)
	p.finish(now)
	return nil
}

// Cancel finalizes any non-terminal policy.
func (p *Policy) Cancel(now time.Time) error {
	if !p.Status.CanTransitionTo(StatusCancelled) {
		return invalidTransition(p.Status, "cancel")
	}
	p.transitionTo(StatusCancelled, now)
	p.finish(now)
	return nil
}

// ConfirmPayment records the payment confirmation signal. Setting an
// already-true flag is a safe no-op (changed=false) so duplicate deliveries
// are harmless.
func (p *Policy) ConfirmPayment() (changed bool, err error) {
	if p.Status.IsTerminal() {
		return false, invalidTransition(p.Status, "confirm payment")
	}
	if p.PaymentConfirmed {
		return false, nil
	}
	p.PaymentConfirmed = true
	return true, nil
}

// AuthorizeSubscription records the subscription authorization signal,
// symmetric to ConfirmPayment.
func (p *Policy) AuthorizeSubscription() (changed bool, err error) {
	if p.Status.IsTerminal() {
		return false, invalidTransition(p.Status, "authorize subscription")
	}
	if p.SubscriptionAuthorized {
		return false, nil
	}
	p.SubscriptionAuthorized = true
	return true, nil
}

// BothConfirmed reports whether payment and subscription have both signaled
// success, i.e. the policy is ready for auto-approval.
func (p *Policy) BothConfirmed() bool {
	return p.PaymentConfirmed && p.SubscriptionAuthorized
}

func (p *Policy) transitionTo(next Status, now time.Time) {
	p.Status = next
	p.History = append(p.History, StatusChange{Status: next, Timestamp: now})
}

func (p *Policy) finish(now time.Time) {
	if p.FinishedAt == nil {
		t := now
		p.FinishedAt = &t
	}
}

func invalidTransition(from Status, op string) error {
	return dErrors.New(dErrors.CodeInvalidTransition, "cannot "+op+" a policy in status "+string(from))
}
