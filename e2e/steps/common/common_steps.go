package common

import (
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext defines the methods these steps need from the main test context.
type TestContext interface {
	GET(path string) error
	LastStatus() int
	ResponseField(field string) (any, error)
}

// RegisterSteps registers generic request and assertion steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^I GET "([^"]*)"$`, steps.get)
	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.responseFieldShouldBe)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) get(path string) error {
	return s.tc.GET(path)
}

func (s *commonSteps) responseStatusShouldBe(expected int) error {
	if s.tc.LastStatus() != expected {
		return fmt.Errorf("expected status %d, got %d", expected, s.tc.LastStatus())
	}
	return nil
}

func (s *commonSteps) responseFieldShouldBe(field, expected string) error {
	value, err := s.tc.ResponseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprintf("%v", value) != expected {
		return fmt.Errorf("expected %s=%q, got %q", field, expected, fmt.Sprintf("%v", value))
	}
	return nil
}
