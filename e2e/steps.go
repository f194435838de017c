package e2e

import (
	"github.com/cucumber/godog"

	"guardian/e2e/steps/children"
	"guardian/e2e/steps/common"
	"guardian/e2e/steps/consent"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (identities, generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Register child profile steps
	children.RegisterSteps(ctx, tc)

	// Register consent and relationship steps
	consent.RegisterSteps(ctx, tc)
}
