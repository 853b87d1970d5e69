package e2e

import (
	"github.com/cucumber/godog"

	"creditbridge/e2e/steps/common"
	"creditbridge/e2e/steps/funding"
	"creditbridge/e2e/steps/transfer"
)

// RegisterSteps registers all step definitions from the modular packages.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	funding.RegisterSteps(ctx, tc)
	transfer.RegisterSteps(ctx, tc)
}
