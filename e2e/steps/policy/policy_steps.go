package policy

import (
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
	"github.com/gofrs/uuid"
)

// TestContext defines the methods these steps need from the main test context.
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	PATCH(path string) error
	LastStatus() int
	ResponseField(field string) (any, error)
	Capture(name, value string)
	Captured(name string) (string, bool)
}

// RegisterSteps registers policy lifecycle step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &policySteps{tc: tc}

	ctx.Step(`^I request a "([^"]*)" policy with insured amount (\d+)$`, steps.requestPolicy)
	ctx.Step(`^I validate the policy$`, steps.validatePolicy)
	ctx.Step(`^I cancel the policy$`, steps.cancelPolicy)
	ctx.Step(`^I approve the policy$`, steps.approvePolicy)
	ctx.Step(`^I fetch the policy$`, steps.fetchPolicy)
	ctx.Step(`^the policy status should be "([^"]*)"$`, steps.policyStatusShouldBe)
	ctx.Step(`^the policy history should have (\d+) entries$`, steps.historyShouldHaveEntries)
}

type policySteps struct {
	tc TestContext
}

func (s *policySteps) requestPolicy(category string, insuredAmount int) error {
	customerID, err := uuid.NewV4()
	if err != nil {
		return err
	}
	productID, err := uuid.NewV4()
	if err != nil {
		return err
	}

	body := map[string]any{
		"customer_id":           customerID.String(),
		"product_id":            productID.String(),
		"category":              category,
		"sales_channel":         "WEB",
		"payment_method":        "CREDIT_CARD",
		"total_monthly_premium": "75.25",
		"insured_amount":        strconv.Itoa(insuredAmount),
		"coverages":             map[string]string{"Base": strconv.Itoa(insuredAmount)},
		"assistances":           []string{"Roadside Assistance"},
	}
	if err := s.tc.POST("/policies", body); err != nil {
		return err
	}

	id, err := s.tc.ResponseField("id")
	if err != nil {
		return fmt.Errorf("create response has no policy id: %w", err)
	}
	s.tc.Capture("policy_id", fmt.Sprintf("%v", id))
	return nil
}

func (s *policySteps) policyPath(suffix string) (string, error) {
	id, ok := s.tc.Captured("policy_id")
	if !ok {
		return "", fmt.Errorf("no policy created in this scenario")
	}
	return "/policies/" + id + suffix, nil
}

func (s *policySteps) validatePolicy() error {
	path, err := s.policyPath("/validate")
	if err != nil {
		return err
	}
	return s.tc.PATCH(path)
}

func (s *policySteps) cancelPolicy() error {
	path, err := s.policyPath("/cancel")
	if err != nil {
		return err
	}
	return s.tc.PATCH(path)
}

func (s *policySteps) approvePolicy() error {
	path, err := s.policyPath("/approve")
	if err != nil {
		return err
	}
	return s.tc.PATCH(path)
}

func (s *policySteps) fetchPolicy() error {
	path, err := s.policyPath("")
	if err != nil {
		return err
	}
	return s.tc.GET(path)
}

func (s *policySteps) policyStatusShouldBe(expected string) error {
	status, err := s.tc.ResponseField("status")
	if err != nil {
		return err
	}
	if fmt.Sprintf("%v", status) != expected {
		return fmt.Errorf("expected policy status %q, got %q", expected, fmt.Sprintf("%v", status))
	}
	return nil
}

func (s *policySteps) historyShouldHaveEntries(expected int) error {
	history, err := s.tc.ResponseField("history")
	if err != nil {
		return err
	}
	entries, ok := history.([]any)
	if !ok {
		return fmt.Errorf("history is not a list")
	}
	if len(entries) != expected {
		return fmt.Errorf("expected %d history entries, got %d", expected, len(entries))
	}
	return nil
}
