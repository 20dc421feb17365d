package e2e

import (
	"github.com/cucumber/godog"

	"policyd/e2e/steps/common"
	"policyd/e2e/steps/policy"
)

// RegisterSteps registers all step definitions from modular packages.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	policy.RegisterSteps(ctx, tc)
}
