// Package agents provides agent configuration storage and handlers.
// Agents are owned by the admin surface; the scoring pipeline only reads
// them.
package agents

// Agent is one configured trading agent: an identity plus the LLM that
// speaks for it. Prompt may be empty, in which case the agent is scored
// with the default all-cash portfolio.
type Agent struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Prompt    *string `json:"prompt"`
	Provider  string  `json:"provider"`
	Model     string  `json:"model"`
	BaseURL   *string `json:"base_url"`
	APIKeyEnv string  `json:"api_key_env"`
	Active    bool    `json:"active"`
}

// PromptText returns the agent's prompt or "" when unset
func (a Agent) PromptText() string {
	if a.Prompt == nil {
		return ""
	}
	return *a.Prompt
}

// BaseURLText returns the agent's endpoint override or "" when unset
func (a Agent) BaseURLText() string {
	if a.BaseURL == nil {
		return ""
	}
	return *a.BaseURL
}

// CreateParams are the fields accepted when creating an agent. Zero values
// fall back to the OpenAI defaults, matching the admin API contract.
type CreateParams struct {
	Name      string  `json:"name"`
	Prompt    *string `json:"prompt"`
	Provider  *string `json:"provider"`
	Model     *string `json:"model"`
	BaseURL   *string `json:"base_url"`
	APIKeyEnv *string `json:"api_key_env"`
	Active    *bool   `json:"active"`
}

// UpdateParams are the fields accepted when updating an agent. Nil pointers
// leave name/provider/model/api_key_env/active untouched; prompt and
// base_url are always written so they can be cleared.
type UpdateParams struct {
	Name      *string `json:"name"`
	Prompt    *string `json:"prompt"`
	Provider  *string `json:"provider"`
	Model     *string `json:"model"`
	BaseURL   *string `json:"base_url"`
	APIKeyEnv *string `json:"api_key_env"`
	Active    *bool   `json:"active"`
}
