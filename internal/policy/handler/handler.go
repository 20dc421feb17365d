package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"policyd/internal/policy/models"
	dErrors "policyd/pkg/domain-errors"
	"policyd/pkg/platform/httputil"
	"policyd/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/handler_mocks.go -package=mocks

// Service defines the policy operations the HTTP surface exposes.
type Service interface {
	Create(ctx context.Context, in models.NewPolicyInput) (*models.Policy, error)
	Validate(ctx context.Context, policyID uuid.UUID) (*models.Policy, error)
	Cancel(ctx context.Context, policyID uuid.UUID) (*models.Policy, error)
	Approve(ctx context.Context, policyID uuid.UUID) (*models.Policy, error)
	Reject(ctx context.Context, policyID uuid.UUID) (*models.Policy, error)
	GetPolicy(ctx context.Context, policyID uuid.UUID) (*models.Policy, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*models.Policy, error)
}

// Handler wires policy endpoints to the policy service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a policy handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts policy endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/policies", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/{policyID}", h.HandleGet)
		r.Get("/customer/{customerID}", h.HandleListByCustomer)
		r.Patch("/{policyID}/validate", h.HandleValidate)
		r.Patch("/{policyID}/cancel", h.HandleCancel)
		r.Patch("/{policyID}/approve", h.HandleApprove)
		r.Patch("/{policyID}/reject", h.HandleReject)
	})
}

// HandleCreate handles POST /policies requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[CreatePolicyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	p, err := h.service.Create(ctx, req.ToInput())
	if err != nil {
		h.logger.ErrorContext(ctx, "policy creation failed",
			"request_id", requestID,
			"customer_id", req.CustomerID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "policy created",
		"request_id", requestID,
		"policy_id", p.ID,
		"category", p.Category,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromPolicy(p))
}

// HandleGet handles GET /policies/{policyID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	policyID, ok := h.policyID(w, r)
	if !ok {
		return
	}

	p, err := h.service.GetPolicy(ctx, policyID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromPolicy(p))
}

// HandleListByCustomer handles GET /policies/customer/{customerID} requests.
func (h *Handler) HandleListByCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	customerID, err := uuid.Parse(chi.URLParam(r, "customerID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "customer id must be a valid UUID"))
		return
	}

	policies, err := h.service.ListByCustomer(ctx, customerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromPolicies(policies))
}

// HandleValidate handles PATCH /policies/{policyID}/validate requests.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "validated", h.service.Validate)
}

// HandleCancel handles PATCH /policies/{policyID}/cancel requests.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "cancelled", h.service.Cancel)
}

// HandleApprove handles PATCH /policies/{policyID}/approve requests.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "approved", h.service.Approve)
}

// HandleReject handles PATCH /policies/{policyID}/reject requests.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "rejected", h.service.Reject)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, action string, op func(context.Context, uuid.UUID) (*models.Policy, error)) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	policyID, ok := h.policyID(w, r)
	if !ok {
		return
	}

	p, err := op(ctx, policyID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "policy transition failed",
				"request_id", requestID,
				"policy_id", policyID,
				"action", action,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "policy "+action,
		"request_id", requestID,
		"policy_id", policyID,
		"status", p.Status,
	)
	httputil.WriteJSON(w, http.StatusOK, FromPolicy(p))
}

func (h *Handler) policyID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	policyID, err := uuid.Parse(chi.URLParam(r, "policyID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "policy id must be a valid UUID"))
		return uuid.Nil, false
	}
	return policyID, true
}
