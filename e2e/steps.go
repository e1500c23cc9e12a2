package e2e

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"

	"confide/e2e/steps/ratelimit"
)

// RegisterSteps registers all step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Background steps
	ctx.Step(`^the rate limiter is running$`, tc.rateLimiterIsRunning)

	// Assertion steps
	ctx.Step(`^the response status should be (\d+)$`, tc.responseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, tc.responseShouldContain)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, tc.responseFieldShouldEqual)
	ctx.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, tc.responseHeaderShouldBe)
	ctx.Step(`^the response header "([^"]*)" should be absent$`, tc.responseHeaderShouldBeAbsent)

	ratelimit.RegisterSteps(ctx, tc)
}

func (tc *TestContext) rateLimiterIsRunning(ctx context.Context) error {
	if err := tc.Do("GET", "/health/live", nil); err != nil {
		return err
	}
	return tc.responseStatusShouldBe(ctx, 200)
}

func (tc *TestContext) responseStatusShouldBe(ctx context.Context, expected int) error {
	if got := tc.GetLastResponseStatus(); got != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, got, string(tc.LastResponseBody))
	}
	return nil
}

func (tc *TestContext) responseShouldContain(ctx context.Context, text string) error {
	if !tc.ResponseContains(text) {
		return fmt.Errorf("response does not contain %q: %s", text, string(tc.LastResponseBody))
	}
	return nil
}

func (tc *TestContext) responseFieldShouldEqual(ctx context.Context, field, expected string) error {
	value, err := tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(value); got != expected {
		return fmt.Errorf("expected field %s to be %q, got %q", field, expected, got)
	}
	return nil
}

func (tc *TestContext) responseHeaderShouldBe(ctx context.Context, name, expected string) error {
	if got := tc.GetLastResponseHeader(name); got != expected {
		return fmt.Errorf("expected header %s to be %q, got %q", name, expected, got)
	}
	return nil
}

func (tc *TestContext) responseHeaderShouldBeAbsent(ctx context.Context, name string) error {
	if got := strings.TrimSpace(tc.GetLastResponseHeader(name)); got != "" {
		return fmt.Errorf("expected header %s to be absent, got %q", name, got)
	}
	return nil
}
