package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"policyd/internal/platform/metrics"
	"policyd/internal/policy/models"
	dErrors "policyd/pkg/domain-errors"
	"policyd/pkg/platform/keyedmutex"
	"policyd/pkg/platform/sentinel"
)

//go:generate mockgen -source=service.go -destination=mocks/service_mocks.go -package=mocks

// Store persists full policy snapshots.
type Store interface {
	Save(ctx context.Context, p *models.Policy) (*models.Policy, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Policy, error)
	FindByCustomerID(ctx context.Context, customerID uuid.UUID) ([]*models.Policy, error)
}

// RiskClassifier resolves the fraud classification for a policy request.
type RiskClassifier interface {
	Classify(ctx context.Context, policyID, customerID uuid.UUID) (models.RiskClassification, error)
}

// EventPublisher emits one lifecycle fact per committed state.
type EventPublisher interface {
	PublishStatusChange(ctx context.Context, event models.PolicyEvent) error
}

// Service orchestrates the policy lifecycle: commands load the snapshot,
// the aggregate computes the next legal state, the new snapshot is persisted,
// and one event per state passed through is published, in that order.
//
// All mutating operations on the same policy id are serialized through a
// per-key mutex so racing commands cannot overwrite each other's snapshot.
type Service struct {
	store      Store
	classifier RiskClassifier
	publisher  EventPublisher
	decide     models.DecisionFunc

	locks   *keyedmutex.KeyedMutex
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(store Store, classifier RiskClassifier, publisher EventPublisher, decide models.DecisionFunc, opts ...Option) *Service {
	s := &Service{
		store:      store,
		classifier: classifier,
		publisher:  publisher,
		decide:     decide,
		locks:      keyedmutex.New(),
		logger:     slog.Default(),
		tracer:     otel.Tracer("policyd/policy"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// load translates store sentinels into domain errors.
func (s *Service) load(ctx context.Context, policyID uuid.UUID) (*models.Policy, error) {
	p, err := s.store.FindByID(ctx, policyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "policy not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load policy")
	}
	return p, nil
}

// persistAndPublish saves the snapshot and then emits one event per status in
// passedThrough, in order. A publish failure after the persist committed is
// logged, not rolled back: the snapshot is the source of truth and the event
// is a notification.
func (s *Service) persistAndPublish(ctx context.Context, p *models.Policy, passedThrough ...models.StatusChange) (*models.Policy, error) {
	saved, err := s.store.Save(ctx, p)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist policy")
	}
	for _, change := range passedThrough {
		event := models.NewPolicyEvent(p, change.Status, change.Timestamp)
		if err := s.publisher.PublishStatusChange(ctx, event); err != nil {
			s.logger.ErrorContext(ctx, "event publish failed after persist",
				slog.String("policy_id", p.ID.String()),
				slog.String("new_status", string(change.Status)),
				slog.String("error", err.Error()))
			s.countEvent("error")
			continue
		}
		s.countEvent("ok")
		s.countTransition(change.Status)
	}
	return saved, nil
}

func (s *Service) countEvent(outcome string) {
	if s.metrics != nil {
		s.metrics.EventsPublished.WithLabelValues("policy.status.changed", outcome).Inc()
	}
}

func (s *Service) countTransition(status models.Status) {
	if s.metrics != nil {
		s.metrics.StatusTransitions.WithLabelValues(string(status)).Inc()
	}
}
