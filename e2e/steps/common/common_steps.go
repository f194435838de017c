package common

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	POST(path string, body any) error
	POSTWithHeaders(path string, body any, headers map[string]string) error
	AuthenticateAsParent() error
	AuthenticateAsDevice(deviceID string) error
	ClearAuthentication()
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers identity, request and assertion steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the guardian API is running$`, steps.apiIsRunning)
	ctx.Step(`^I am an authenticated parent$`, steps.authenticatedParent)
	ctx.Step(`^I am the device "([^"]*)"$`, steps.authenticatedDevice)
	ctx.Step(`^I am not authenticated$`, steps.notAuthenticated)

	ctx.Step(`^I GET "([^"]*)"$`, steps.get)
	ctx.Step(`^I POST an empty object to "([^"]*)"$`, steps.postEmpty)
	ctx.Step(`^I POST an empty object to "([^"]*)" with admin token "([^"]*)"$`, steps.postEmptyAsAdmin)

	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the error code should be "([^"]*)"$`, steps.errorCodeShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.fieldShouldEqual)
	ctx.Step(`^the response should contain "([^"]*)"$`, steps.responseShouldContain)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) apiIsRunning(ctx context.Context) error {
	if err := s.tc.GET("/healthz", nil); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != 200 {
		return fmt.Errorf("server is not healthy: %d %s", s.tc.GetLastResponseStatus(), s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *commonSteps) authenticatedParent(ctx context.Context) error {
	return s.tc.AuthenticateAsParent()
}

func (s *commonSteps) authenticatedDevice(ctx context.Context, deviceID string) error {
	return s.tc.AuthenticateAsDevice(deviceID)
}

func (s *commonSteps) notAuthenticated(ctx context.Context) error {
	s.tc.ClearAuthentication()
	return nil
}

func (s *commonSteps) get(ctx context.Context, path string) error {
	return s.tc.GET(path, nil)
}

func (s *commonSteps) postEmpty(ctx context.Context, path string) error {
	return s.tc.POST(path, map[string]any{})
}

func (s *commonSteps) postEmptyAsAdmin(ctx context.Context, path, token string) error {
	return s.tc.POSTWithHeaders(path, map[string]any{}, map[string]string{"X-Admin-Token": token})
}

func (s *commonSteps) statusShouldBe(ctx context.Context, expected int) error {
	if got := s.tc.GetLastResponseStatus(); got != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, got, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *commonSteps) errorCodeShouldBe(ctx context.Context, code string) error {
	return s.fieldShouldEqual(ctx, "error", code)
}

func (s *commonSteps) fieldShouldEqual(ctx context.Context, field, expected string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != expected {
		return fmt.Errorf("expected %s to be %q, got %q", field, expected, got)
	}
	return nil
}

func (s *commonSteps) responseShouldContain(ctx context.Context, field string) error {
	_, err := s.tc.GetResponseField(field)
	return err
}
