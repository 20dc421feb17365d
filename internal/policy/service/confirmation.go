package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"policyd/internal/policy/models"
	dErrors "policyd/pkg/domain-errors"
	"policyd/pkg/requestcontext"
)

// ApplyPaymentResult applies one delivery of the payment confirmation signal.
// Delivery is at-least-once and unordered, so the whole path is idempotent:
// a repeat signal for an already-terminal policy is a no-op, and a repeat
// success for an already-set flag persists nothing new but still completes a
// join that a crash may have interrupted.
func (s *Service) ApplyPaymentResult(ctx context.Context, result models.ConfirmationResult) error {
	return s.applyConfirmation(ctx, models.ConfirmationPayment, result)
}

// ApplySubscriptionResult applies one delivery of the subscription
// authorization signal, symmetric to ApplyPaymentResult.
func (s *Service) ApplySubscriptionResult(ctx context.Context, result models.ConfirmationResult) error {
	return s.applyConfirmation(ctx, models.ConfirmationSubscription, result)
}

func (s *Service) applyConfirmation(ctx context.Context, kind models.ConfirmationKind, result models.ConfirmationResult) error {
	ctx, span := s.tracer.Start(ctx, "policy.confirmation."+string(kind), trace.WithAttributes(
		attribute.String("policy.id", result.PolicyID.String()),
		attribute.Bool("confirmation.success", result.Success),
	))
	defer span.End()

	return s.locks.WithLock(result.PolicyID.String(), func() error {
		p, err := s.load(ctx, result.PolicyID)
		if err != nil {
			return err
		}

		if p.Status.IsTerminal() {
			s.logger.WarnContext(ctx, "confirmation for finished policy ignored",
				slog.String("policy_id", p.ID.String()),
				slog.String("kind", string(kind)),
				slog.String("status", string(p.Status)))
			return nil
		}

		if !result.Success {
			return s.rejectOnFailure(ctx, p)
		}
		return s.confirmAndJoin(ctx, kind, p)
	})
}

// rejectOnFailure finalizes the policy after a failed confirmation. The
// failure outcome wins regardless of the other signal's flag state.
func (s *Service) rejectOnFailure(ctx context.Context, p *models.Policy) error {
	before := len(p.History)
	if err := p.Reject(requestcontext.Now(ctx)); err != nil {
		// A failure signal can outrun validation; propagating lets the
		// broker redeliver until the policy reaches a rejectable status.
		return err
	}
	if _, err := s.persistAndPublish(ctx, p, p.History[before:]...); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "policy rejected by confirmation failure",
		slog.String("policy_id", p.ID.String()))
	return nil
}

// confirmAndJoin records the success flag as its own committed state and,
// when the other signal already confirmed, approves in a second commit.
func (s *Service) confirmAndJoin(ctx context.Context, kind models.ConfirmationKind, p *models.Policy) error {
	var (
		changed bool
		err     error
	)
	switch kind {
	case models.ConfirmationPayment:
		changed, err = p.ConfirmPayment()
	case models.ConfirmationSubscription:
		changed, err = p.AuthorizeSubscription()
	default:
		return dErrors.New(dErrors.CodeInvalidData, "unknown confirmation kind "+string(kind))
	}
	if err != nil {
		return err
	}

	if changed {
		// Flag write: one persist-and-publish cycle carrying the unchanged
		// current status.
		change := models.StatusChange{Status: p.Status, Timestamp: requestcontext.Now(ctx)}
		if _, err := s.persistAndPublish(ctx, p, change); err != nil {
			return err
		}
	}

	if p.BothConfirmed() && p.Status == models.StatusPending {
		before := len(p.History)
		if err := p.Approve(requestcontext.Now(ctx)); err != nil {
			return err
		}
		if _, err := s.persistAndPublish(ctx, p, p.History[before:]...); err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "policy approved by confirmation join",
			slog.String("policy_id", p.ID.String()))
	}
	return nil
}
