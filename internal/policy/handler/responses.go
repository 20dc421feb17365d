package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"policyd/internal/policy/models"
)

// PolicyResponse is the HTTP representation of a policy snapshot.
type PolicyResponse struct {
	ID                     string                     `json:"id"`
	CustomerID             string                     `json:"customer_id"`
	ProductID              string                     `json:"product_id"`
	Category               string                     `json:"category"`
	SalesChannel           string                     `json:"sales_channel,omitempty"`
	PaymentMethod          string                     `json:"payment_method,omitempty"`
	TotalMonthlyPremium    decimal.Decimal            `json:"total_monthly_premium"`
	InsuredAmount          decimal.Decimal            `json:"insured_amount"`
	Coverages              map[string]decimal.Decimal `json:"coverages"`
	Assistances            []string                   `json:"assistances"`
	PaymentConfirmed       bool                       `json:"payment_confirmed"`
	SubscriptionAuthorized bool                       `json:"subscription_authorized"`
	Status                 string                     `json:"status"`
	CreatedAt              time.Time                  `json:"created_at"`
	FinishedAt             *time.Time                 `json:"finished_at,omitempty"`
	History                []StatusChangeResponse     `json:"history"`
}

// StatusChangeResponse is one history entry.
type StatusChangeResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// FromPolicy converts a domain policy to its HTTP response.
func FromPolicy(p *models.Policy) *PolicyResponse {
	history := make([]StatusChangeResponse, len(p.History))
	for i, change := range p.History {
		history[i] = StatusChangeResponse{
			Status:    string(change.Status),
			Timestamp: change.Timestamp,
		}
	}
	return &PolicyResponse{
		ID:                     p.ID.String(),
		CustomerID:             p.CustomerID.String(),
		ProductID:              p.ProductID.String(),
		Category:               string(p.Category),
		SalesChannel:           p.SalesChannel,
		PaymentMethod:          p.PaymentMethod,
		TotalMonthlyPremium:    p.TotalMonthlyPremium,
		InsuredAmount:          p.InsuredAmount,
		Coverages:              p.Coverages,
		Assistances:            p.Assistances,
		PaymentConfirmed:       p.PaymentConfirmed,
		SubscriptionAuthorized: p.SubscriptionAuthorized,
		Status:                 string(p.Status),
		CreatedAt:              p.CreatedAt,
		FinishedAt:             p.FinishedAt,
		History:                history,
	}
}

// FromPolicies converts a list of snapshots.
func FromPolicies(policies []*models.Policy) []*PolicyResponse {
	out := make([]*PolicyResponse, len(policies))
	for i, p := range policies {
		out[i] = FromPolicy(p)
	}
	return out
}
