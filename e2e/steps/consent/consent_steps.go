package consent

import (
	"context"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	POST(path string, body any) error
}

// RegisterSteps registers consent and relationship step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &consentSteps{tc: tc}

	ctx.Step(`^I request consent for "([^"]*)"$`, steps.requestConsent)
	ctx.Step(`^I start relationship verification by "([^"]*)" to "([^"]*)"$`, steps.startRelationshipVerification)
	ctx.Step(`^I list the child's relationships$`, steps.listRelationships)
	ctx.Step(`^I list the child's consents$`, steps.listConsents)
}

type consentSteps struct {
	tc TestContext
}

func (s *consentSteps) requestConsent(ctx context.Context, category string) error {
	return s.tc.POST("/children/{child_id}/consents", map[string]any{"category": category})
}

func (s *consentSteps) startRelationshipVerification(ctx context.Context, method, destination string) error {
	return s.tc.POST("/children/{child_id}/relationships/verification", map[string]any{
		"method":      method,
		"destination": destination,
	})
}

func (s *consentSteps) listRelationships(ctx context.Context) error {
	return s.tc.GET("/children/{child_id}/relationships", nil)
}

func (s *consentSteps) listConsents(ctx context.Context) error {
	return s.tc.GET("/children/{child_id}/consents", nil)
}
