package ratelimit

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/cucumber/godog"

	"confide/internal/ratelimit/models"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	Do(method, path string, body []byte) error
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	SetClientAddress(address string)
	GetClientAddress() string
	SeedEvents(address string, class models.ClassName, n int, ago time.Duration) error
	RecordedEvents(address string, class models.ClassName) int
	TotalRecordedEvents() int
	FailEventLog(op string) error
	AuditActions() []string
}

const checkPath = "/rate-limit"

// RegisterSteps registers rate-limiting step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	// Caller setup
	ctx.Step(`^I am making requests from address "([^"]*)"$`, steps.makingRequestsFromAddress)
	ctx.Step(`^I am making requests without a client address$`, steps.makingRequestsWithoutAddress)
	ctx.Step(`^I have (\d+) prior "([^"]*)" events$`, steps.havePriorEvents)
	ctx.Step(`^I have (\d+) prior "([^"]*)" events from (\d+) seconds ago$`, steps.havePriorEventsAgo)
	ctx.Step(`^the event log fails to (count|record)$`, steps.eventLogFails)

	// Checks
	ctx.Step(`^I check the action "([^"]*)"$`, steps.checkAction)
	ctx.Step(`^I check with body '([^']*)'$`, steps.checkWithBody)
	ctx.Step(`^I check the action "([^"]*)" (\d+) times$`, steps.checkActionNTimes)
	ctx.Step(`^I send a (GET|PUT|DELETE|PATCH) to the check endpoint$`, steps.sendMethod)

	// Outcomes
	ctx.Step(`^all (\d+) checks should be admitted$`, steps.allChecksAdmitted)
	ctx.Step(`^(\d+) "([^"]*)" events should be recorded for my address$`, steps.eventsRecorded)
	ctx.Step(`^no events should be recorded$`, steps.noEventsRecorded)
	ctx.Step(`^the audit event "([^"]*)" should be emitted$`, steps.auditEventShouldBeEmitted)
}

type ratelimitSteps struct {
	tc       TestContext
	statuses []int
}

func (s *ratelimitSteps) makingRequestsFromAddress(ctx context.Context, address string) error {
	s.tc.SetClientAddress(address)
	return nil
}

func (s *ratelimitSteps) makingRequestsWithoutAddress(ctx context.Context) error {
	s.tc.SetClientAddress("")
	return nil
}

func (s *ratelimitSteps) havePriorEvents(ctx context.Context, n int, class string) error {
	return s.tc.SeedEvents(s.tc.GetClientAddress(), models.ClassName(class), n, time.Second)
}

func (s *ratelimitSteps) havePriorEventsAgo(ctx context.Context, n int, class string, seconds int) error {
	return s.tc.SeedEvents(s.tc.GetClientAddress(), models.ClassName(class), n, time.Duration(seconds)*time.Second)
}

func (s *ratelimitSteps) eventLogFails(ctx context.Context, op string) error {
	return s.tc.FailEventLog(op)
}

func (s *ratelimitSteps) checkAction(ctx context.Context, action string) error {
	return s.tc.POST(checkPath, map[string]string{"action": action})
}

func (s *ratelimitSteps) checkWithBody(ctx context.Context, body string) error {
	return s.tc.Do("POST", checkPath, []byte(body))
}

func (s *ratelimitSteps) checkActionNTimes(ctx context.Context, action string, n int) error {
	s.statuses = s.statuses[:0]
	for range n {
		if err := s.checkAction(ctx, action); err != nil {
			return err
		}
		s.statuses = append(s.statuses, s.tc.GetLastResponseStatus())
	}
	return nil
}

func (s *ratelimitSteps) sendMethod(ctx context.Context, method string) error {
	return s.tc.Do(method, checkPath, nil)
}

func (s *ratelimitSteps) allChecksAdmitted(ctx context.Context, n int) error {
	if len(s.statuses) != n {
		return fmt.Errorf("expected %d checks, made %d", n, len(s.statuses))
	}
	for i, status := range s.statuses {
		if status != 200 {
			return fmt.Errorf("check %d returned %d", i+1, status)
		}
	}
	return nil
}

func (s *ratelimitSteps) eventsRecorded(ctx context.Context, n int, class string) error {
	got := s.tc.RecordedEvents(s.tc.GetClientAddress(), models.ClassName(class))
	if got < 0 {
		return godog.ErrSkip
	}
	if got != n {
		return fmt.Errorf("expected %d %s events, found %d", n, class, got)
	}
	return nil
}

func (s *ratelimitSteps) noEventsRecorded(ctx context.Context) error {
	got := s.tc.TotalRecordedEvents()
	if got < 0 {
		return godog.ErrSkip
	}
	if got != 0 {
		return fmt.Errorf("expected no events, found %d", got)
	}
	return nil
}

func (s *ratelimitSteps) auditEventShouldBeEmitted(ctx context.Context, action string) error {
	if slices.Contains(s.tc.AuditActions(), action) {
		return nil
	}
	return fmt.Errorf("audit event %q not emitted; got %v", action, s.tc.AuditActions())
}
