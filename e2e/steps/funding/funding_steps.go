// Package funding holds step definitions for funded identity creation and
// the recovery listing.
package funding

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
	Capture(name, value string)
	Recall(name string) (string, error)
	ListLen() int
	ObjectList(field string) ([]map[string]any, error)
}

// RegisterSteps registers the funding step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &fundingSteps{tc: tc}

	ctx.Step(`^a funded wallet is available$`, steps.fundedWalletIsAvailable)
	ctx.Step(`^I create an identity funded with (\d+)$`, steps.createIdentityFundedWith)
	ctx.Step(`^I capture the identity as "([^"]*)"$`, steps.captureIdentityAs)
	ctx.Step(`^the identity balance should be (\d+)$`, steps.identityBalanceShouldBe)
	ctx.Step(`^no unconsumed locks should remain$`, steps.noUnconsumedLocksRemain)
}

type fundingSteps struct {
	tc TestContext
}

func (s *fundingSteps) fundedWalletIsAvailable() error {
	if err := s.tc.GET("/v1/state"); err != nil {
		return err
	}
	wallets, err := s.tc.ObjectList("wallets")
	if err != nil {
		return err
	}
	if len(wallets) == 0 {
		return fmt.Errorf("daemon has no registered wallets; start it with BRIDGE_SIM_SEED_BALANCE")
	}
	walletID, ok := wallets[0]["wallet_id"].(string)
	if !ok {
		return fmt.Errorf("snapshot wallet has no wallet_id")
	}
	s.tc.Capture("wallet", walletID)
	return nil
}

func (s *fundingSteps) createIdentityFundedWith(amount int) error {
	walletID, err := s.tc.Recall("wallet")
	if err != nil {
		return err
	}
	return s.tc.POST("/v1/identities", map[string]any{
		"wallet_id": walletID,
		"amount":    amount,
	})
}

func (s *fundingSteps) captureIdentityAs(name string) error {
	identityID, err := s.tc.Field("identity_id")
	if err != nil {
		return err
	}
	s.tc.Capture(name, identityID)
	return nil
}

func (s *fundingSteps) identityBalanceShouldBe(expected int) error {
	balance, err := s.tc.Field("balance")
	if err != nil {
		return err
	}
	if balance != fmt.Sprintf("%d", expected) {
		return fmt.Errorf("expected balance %d, got %s", expected, balance)
	}
	return nil
}

func (s *fundingSteps) noUnconsumedLocksRemain() error {
	if err := s.tc.GET("/v1/locks/unconsumed"); err != nil {
		return err
	}
	if n := s.tc.ListLen(); n != 0 {
		return fmt.Errorf("expected no unconsumed locks, found %d", n)
	}
	return nil
}
