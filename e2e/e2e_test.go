package e2e

import (
	"context"
	"os"
	"testing"

	"github.com/cucumber/godog"
)

// TestFeatures runs the Gherkin features against a running server. Set
// GUARDIAN_BASE_URL to enable it.
func TestFeatures(t *testing.T) {
	if os.Getenv("GUARDIAN_BASE_URL") == "" {
		t.Skip("GUARDIAN_BASE_URL not set")
	}
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("feature scenarios failed")
	}
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := NewTestContext()
	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.Reset()
		return ctx, nil
	})
	RegisterSteps(ctx, tc)
}
