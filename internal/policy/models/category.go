package models

// Category is the line of insurance a policy request covers.
type Category string

const (
	CategoryLife        Category = "LIFE"
	CategoryAuto        Category = "AUTO"
	CategoryResidential Category = "RESIDENTIAL"
	CategoryBusiness    Category = "BUSINESS"
	CategoryOther       Category = "OTHER"
)

var categories = map[Category]bool{
	CategoryLife:        true,
	CategoryAuto:        true,
	CategoryResidential: true,
	CategoryBusiness:    true,
	CategoryOther:       true,
}

// ParseCategory validates a wire-format category string.
func ParseCategory(raw string) (Category, bool) {
	c := Category(raw)
	return c, categories[c]
}

// RiskClassification is the categorical signal returned by the fraud API for
// a (policy, customer) pair. It drives the auto-decisioning table.
type RiskClassification string

const (
	RiskRegular       RiskClassification = "REGULAR"
	RiskHigh          RiskClassification = "HIGH_RISK"
	RiskPreferential  RiskClassification = "PREFERENTIAL"
	RiskNoInformation RiskClassification = "NO_INFORMATION"
)

var riskClassifications = map[RiskClassification]bool{
	RiskRegular:       true,
	RiskHigh:          true,
	RiskPreferential:  true,
	RiskNoInformation: true,
}

// ParseRiskClassification validates a wire-format classification string.
func ParseRiskClassification(raw string) (RiskClassification, bool) {
	rc := RiskClassification(raw)
	return rc, riskClassifications[rc]
}
