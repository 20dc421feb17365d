package handler

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"policyd/internal/policy/models"
	dErrors "policyd/pkg/domain-errors"
	strutil "policyd/pkg/platform/strings"
)

// CreatePolicyRequest is the HTTP request body for POST /policies.
type CreatePolicyRequest struct {
	CustomerID          string                     `json:"customer_id"`
	ProductID           string                     `json:"product_id"`
	Category            string                     `json:"category"`
	SalesChannel        string                     `json:"sales_channel"`
	PaymentMethod       string                     `json:"payment_method"`
	TotalMonthlyPremium decimal.Decimal            `json:"total_monthly_premium"`
	InsuredAmount       decimal.Decimal            `json:"insured_amount"`
	Coverages           map[string]decimal.Decimal `json:"coverages"`
	Assistances         []string                   `json:"assistances"`

	// Parsed values (populated by Validate)
	parsedCustomerID uuid.UUID
	parsedProductID  uuid.UUID
	parsedCategory   models.Category
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreatePolicyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	customerID, err := uuid.Parse(strings.TrimSpace(r.CustomerID))
	if err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "customer_id must be a valid UUID")
	}
	r.parsedCustomerID = customerID

	productID, err := uuid.Parse(strings.TrimSpace(r.ProductID))
	if err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "product_id must be a valid UUID")
	}
	r.parsedProductID = productID

	category, ok := models.ParseCategory(strings.ToUpper(strings.TrimSpace(r.Category)))
	if !ok {
		return dErrors.New(dErrors.CodeBadRequest, "unknown category "+r.Category)
	}
	r.parsedCategory = category

	if r.InsuredAmount.IsNegative() {
		return dErrors.New(dErrors.CodeBadRequest, "insured_amount cannot be negative")
	}
	if r.TotalMonthlyPremium.IsNegative() {
		return dErrors.New(dErrors.CodeBadRequest, "total_monthly_premium cannot be negative")
	}
	for name, amount := range r.Coverages {
		if amount.IsNegative() {
			return dErrors.New(dErrors.CodeBadRequest, "coverage amount cannot be negative: "+name)
		}
	}
	return nil
}

// ToInput converts the validated request into the domain input.
func (r *CreatePolicyRequest) ToInput() models.NewPolicyInput {
	return models.NewPolicyInput{
		CustomerID:          r.parsedCustomerID,
		ProductID:           r.parsedProductID,
		Category:            r.parsedCategory,
		SalesChannel:        strings.TrimSpace(r.SalesChannel),
		PaymentMethod:       strings.TrimSpace(r.PaymentMethod),
		TotalMonthlyPremium: r.TotalMonthlyPremium,
		InsuredAmount:       r.InsuredAmount,
		Coverages:           r.Coverages,
		Assistances:         strutil.DedupeAndTrim(r.Assistances),
	}
}
