package e2e

import (
	"context"
	"os"
	"testing"

	"github.com/cucumber/godog"
)

func TestFeatures(t *testing.T) {
	if os.Getenv("POLICYD_E2E_URL") == "" && os.Getenv("POLICYD_E2E") == "" {
		t.Skip("set POLICYD_E2E_URL (or POLICYD_E2E=1 for the default URL) to run e2e scenarios")
	}

	tc := NewTestContext()
	suite := godog.TestSuite{
		Name: "policyd",
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			ctx.Before(func(c context.Context, _ *godog.Scenario) (context.Context, error) {
				tc.Reset()
				return c, nil
			})
			RegisterSteps(ctx, tc)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("one or more scenarios failed")
	}
}
