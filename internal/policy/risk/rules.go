// Package risk holds the auto-decisioning table for policy validation.
//
// The table is a pure function of (classification, category, insured amount)
// so decisions stay centralized, deterministic, and trivially testable. All
// boundaries are inclusive: an insured amount exactly at the limit is
// approved.
package risk

import (
	"github.com/shopspring/decimal"

	"policyd/internal/policy/models"
)

var (
	limitRegularLifeResidential = decimal.NewFromInt(500_000)
	limitRegularAuto            = decimal.NewFromInt(350_000)
	limitRegularOther           = decimal.NewFromInt(255_000)

	limitHighRiskAuto        = decimal.NewFromInt(250_000)
	limitHighRiskResidential = decimal.NewFromInt(150_000)
	limitHighRiskOther       = decimal.NewFromInt(125_000)

	limitPreferentialLife            = decimal.NewFromInt(800_000)
	limitPreferentialAutoResidential = decimal.NewFromInt(450_000)
	limitPreferentialOther           = decimal.NewFromInt(375_000)

	limitNoInfoLifeResidential = decimal.NewFromInt(200_000)
	limitNoInfoAuto            = decimal.NewFromInt(75_000)
	limitNoInfoOther           = decimal.NewFromInt(55_000)
)

// IsApproved reports whether a policy request with the given risk
// classification, category, and insured amount passes validation.
func IsApproved(classification models.RiskClassification, category models.Category, insuredAmount decimal.Decimal) bool {
	return insuredAmount.LessThanOrEqual(limit(classification, category))
}

func limit(classification models.RiskClassification, category models.Category) decimal.Decimal {
	switch classification {
	case models.RiskRegular:
		switch category {
		case models.CategoryLife, models.CategoryResidential:
			return limitRegularLifeResidential
		case models.CategoryAuto:
			return limitRegularAuto
		default:
			return limitRegularOther
		}
	case models.RiskHigh:
		switch category {
		case models.CategoryAuto:
			return limitHighRiskAuto
		case models.CategoryResidential:
			return limitHighRiskResidential
		default:
			return limitHighRiskOther
		}
	case models.RiskPreferential:
		switch category {
		case models.CategoryLife:
			return limitPreferentialLife
		case models.CategoryAuto, models.CategoryResidential:
			return limitPreferentialAutoResidential
		default:
			return limitPreferentialOther
		}
	default: // NO_INFORMATION and anything unrecognized get the tightest limits
		switch category {
		case models.CategoryLife, models.CategoryResidential:
			return limitNoInfoLifeResidential
		case models.CategoryAuto:
			return limitNoInfoAuto
		default:
			return limitNoInfoOther
		}
	}
}
