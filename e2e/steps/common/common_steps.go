// Package common holds step definitions shared by all scenarios: reachability,
// raw requests, and generic response assertions.
package common

import (
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext is the slice of the scenario context these steps need.
type TestContext interface {
	GET(path string) error
	POST(path string, body any) error
	Field(name string) (string, error)
	Status() int
}

// RegisterSteps registers the shared step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the bridge daemon is reachable$`, steps.daemonIsReachable)
	ctx.Step(`^I GET "([^"]*)"$`, steps.get)
	ctx.Step(`^I POST to "([^"]*)"$`, steps.postEmpty)
	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.responseFieldShouldEqual)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) daemonIsReachable() error {
	if err := s.tc.GET("/healthz"); err != nil {
		return err
	}
	if s.tc.Status() != 200 {
		return fmt.Errorf("health check returned %d", s.tc.Status())
	}
	return nil
}

func (s *commonSteps) get(path string) error {
	return s.tc.GET(path)
}

func (s *commonSteps) postEmpty(path string) error {
	return s.tc.POST(path, nil)
}

func (s *commonSteps) responseStatusShouldBe(expected int) error {
	if s.tc.Status() != expected {
		return fmt.Errorf("expected status %d, got %d", expected, s.tc.Status())
	}
	return nil
}

func (s *commonSteps) responseFieldShouldEqual(field, expected string) error {
	actual, err := s.tc.Field(field)
	if err != nil {
		return err
	}
	if actual != expected {
		return fmt.Errorf("expected %q to equal %q, got %q", field, expected, actual)
	}
	return nil
}
