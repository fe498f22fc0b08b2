// Package scoring implements the daily scoring pipeline: agent invocation
// and the run orchestrator.
package scoring

import "github.com/aristath/arena/internal/modules/portfolio"

// Status classifies how an agent invocation ended. Modelling this
// explicitly (rather than a bare nil) keeps "agent had no credential"
// distinguishable from "agent's model returned garbage" in logs and diag
// output.
type Status string

const (
	// StatusOK - the model returned a valid portfolio
	StatusOK Status = "ok"
	// StatusNotInvoked - the agent has no prompt, so no call was made
	StatusNotInvoked Status = "not_invoked"
	// StatusNoCredential - no API key was found for the agent's provider
	StatusNoCredential Status = "no_credential"
	// StatusProviderError - the provider call failed
	StatusProviderError Status = "provider_error"
	// StatusNoJSON - the reply contained no parseable JSON object
	StatusNoJSON Status = "no_json"
	// StatusInvalid - the JSON failed portfolio validation
	StatusInvalid Status = "invalid_portfolio"
)

// Outcome is the result of one agent invocation. Portfolio is non-nil only
// when Status is StatusOK. Err carries diagnostics for the failure
// statuses; it is never propagated as a run error.
type Outcome struct {
	Status    Status
	Portfolio *portfolio.Portfolio
	Err       error
}

// OK reports whether the invocation produced a valid portfolio
func (o Outcome) OK() bool {
	return o.Status == StatusOK && o.Portfolio != nil
}

// PortfolioOrDefault returns the validated portfolio, or the all-cash
// default for any non-OK outcome.
func (o Outcome) PortfolioOrDefault() portfolio.Portfolio {
	if o.OK() {
		return *o.Portfolio
	}
	return portfolio.Default()
}
