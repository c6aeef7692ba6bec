package e2e

import (
	"github.com/cucumber/godog"

	"screener/e2e/steps/auth"
	"screener/e2e/steps/common"
	"screener/e2e/steps/ratelimit"
	"screener/e2e/steps/screening"
)

// RegisterSteps registers all step definitions from modular packages.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	auth.RegisterSteps(ctx, tc, func() string { return tc.AdminToken })
	ratelimit.RegisterSteps(ctx, tc)
	screening.RegisterSteps(ctx, tc)
}
