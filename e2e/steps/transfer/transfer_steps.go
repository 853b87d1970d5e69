// Package transfer holds step definitions for credit transfers between
// identities.
package transfer

import (
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext is the slice of the scenario context these steps need.
type TestContext interface {
	POST(path string, body any) error
	Field(name string) (string, error)
	Recall(name string) (string, error)
}

// RegisterSteps registers the transfer step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &transferSteps{tc: tc}

	ctx.Step(`^I transfer (\d+) credits from "([^"]*)" to "([^"]*)"$`, steps.transferCredits)
	ctx.Step(`^the transfer status should be "([^"]*)"$`, steps.transferStatusShouldBe)
}

type transferSteps struct {
	tc TestContext
}

func (s *transferSteps) transferCredits(amount int, from, to string) error {
	fromID, err := s.tc.Recall(from)
	if err != nil {
		return err
	}
	toID, err := s.tc.Recall(to)
	if err != nil {
		return err
	}
	return s.tc.POST("/v1/transfers", map[string]any{
		"from":   fromID,
		"to":     toID,
		"amount": amount,
	})
}

func (s *transferSteps) transferStatusShouldBe(expected string) error {
	status, err := s.tc.Field("status")
	if err != nil {
		return err
	}
	if status != expected {
		return fmt.Errorf("expected transfer status %q, got %q", expected, status)
	}
	return nil
}
