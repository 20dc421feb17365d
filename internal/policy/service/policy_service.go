package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"policyd/internal/policy/models"
	dErrors "policyd/pkg/domain-errors"
	"policyd/pkg/requestcontext"
)

// Create persists a newly constructed RECEIVED policy and emits its first
// lifecycle event.
func (s *Service) Create(ctx context.Context, in models.NewPolicyInput) (*models.Policy, error) {
	ctx, span := s.tracer.Start(ctx, "policy.create")
	defer span.End()

	p, err := models.NewPolicy(in, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("policy.id", p.ID.String()))

	saved, err := s.persistAndPublish(ctx, p, p.History...)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.PoliciesCreated.Inc()
	}
	return saved, nil
}

// Validate runs the external risk classification and the risk decision table,
// moving the policy to VALIDATED then PENDING on approval, or to REJECTED.
// A failed or malformed classification lookup aborts before any mutation.
func (s *Service) Validate(ctx context.Context, policyID uuid.UUID) (*models.Policy, error) {
	ctx, span := s.tracer.Start(ctx, "policy.validate", trace.WithAttributes(
		attribute.String("policy.id", policyID.String()),
	))
	defer span.End()

	var out *models.Policy
	err := s.locks.WithLock(policyID.String(), func() error {
		p, err := s.load(ctx, policyID)
		if err != nil {
			return err
		}

		classification, err := s.classifier.Classify(ctx, p.ID, p.CustomerID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvalidData, "risk classification lookup failed")
		}
		span.SetAttributes(attribute.String("policy.classification", string(classification)))

		before := len(p.History)
		now := requestcontext.Now(ctx)
		if err := p.Validate(classification, s.decide, now); err != nil {
			return err
		}
		if p.Status == models.StatusValidated {
			if err := p.MarkAsPending(now); err != nil {
				return err
			}
			// Confirmation successes can land before validation. Both flags
			// may already be set by the time the policy reaches PENDING, and
			// no further signal will arrive to trigger the join, so it has to
			// complete here.
			if p.BothConfirmed() {
				if err := p.Approve(now); err != nil {
					return err
				}
			}
		}

		out, err = s.persistAndPublish(ctx, p, p.History[before:]...)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "policy validated",
		slog.String("policy_id", policyID.String()),
		slog.String("status", string(out.Status)))
	return out, nil
}

// Cancel finalizes a non-terminal policy as CANCELLED.
func (s *Service) Cancel(ctx context.Context, policyID uuid.UUID) (*models.Policy, error) {
	return s.transition(ctx, "policy.cancel", policyID, (*models.Policy).Cancel)
}

// Approve finalizes a PENDING policy as APPROVED without waiting for the
// confirmation signals.
func (s *Service) Approve(ctx context.Context, policyID uuid.UUID) (*models.Policy, error) {
	return s.transition(ctx, "policy.approve", policyID, (*models.Policy).Approve)
}

// Reject finalizes a VALIDATED or PENDING policy as REJECTED.
func (s *Service) Reject(ctx context.Context, policyID uuid.UUID) (*models.Policy, error) {
	return s.transition(ctx, "policy.reject", policyID, (*models.Policy).Reject)
}

// transition is the shared load → mutate → persist → publish path of the
// single-step commands.
func (s *Service) transition(ctx context.Context, op string, policyID uuid.UUID, apply func(*models.Policy, time.Time) error) (*models.Policy, error) {
	ctx, span := s.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("policy.id", policyID.String()),
	))
	defer span.End()

	var out *models.Policy
	err := s.locks.WithLock(policyID.String(), func() error {
		p, err := s.load(ctx, policyID)
		if err != nil {
			return err
		}
		before := len(p.History)
		if err := apply(p, requestcontext.Now(ctx)); err != nil {
			return err
		}
		out, err = s.persistAndPublish(ctx, p, p.History[before:]...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetPolicy returns the current snapshot.
func (s *Service) GetPolicy(ctx context.Context, policyID uuid.UUID) (*models.Policy, error) {
	return s.load(ctx, policyID)
}

// ListByCustomer returns every policy of a customer, oldest first.
func (s *Service) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*models.Policy, error) {
	policies, err := s.store.FindByCustomerID(ctx, customerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list policies")
	}
	return policies, nil
}
