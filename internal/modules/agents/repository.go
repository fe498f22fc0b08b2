package agents

import (
	"database/sql"
	"fmt"

	"github.com/aristath/arena/internal/domain"
	"github.com/rs/zerolog"
)

// Defaults applied when an agent is created without explicit provider
// settings.
const (
	DefaultProvider  = "openai"
	DefaultModel     = "gpt-4o-mini"
	DefaultAPIKeyEnv = "OPENAI_API_KEY"
)

// Repository handles agent rows
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new agents repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "agents").Logger(),
	}
}

const agentColumns = "id, name, prompt, provider, model, base_url, api_key_env, active"

func scanAgent(row interface{ Scan(...interface{}) error }) (Agent, error) {
	var a Agent
	err := row.Scan(&a.ID, &a.Name, &a.Prompt, &a.Provider, &a.Model, &a.BaseURL, &a.APIKeyEnv, &a.Active)
	return a, err
}

// List returns all agents ordered by id
func (r *Repository) List() ([]Agent, error) {
	return r.list("SELECT " + agentColumns + " FROM agents ORDER BY id ASC")
}

// ListActive returns agents eligible for scoring, ordered by id
func (r *Repository) ListActive() ([]Agent, error) {
	return r.list("SELECT " + agentColumns + " FROM agents WHERE active = 1 ORDER BY id ASC")
}

func (r *Repository) list(query string) ([]Agent, error) {
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query agents: %w", err)
	}
	defer rows.Close()

	var out []Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agent row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetByID returns one agent, or domain.ErrNotFound
func (r *Repository) GetByID(id int64) (*Agent, error) {
	a, err := scanAgent(r.db.QueryRow("SELECT "+agentColumns+" FROM agents WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agent %d: %w", id, err)
	}
	return &a, nil
}

// Create inserts a new agent and returns its id
func (r *Repository) Create(p CreateParams) (int64, error) {
	provider := DefaultProvider
	if p.Provider != nil && *p.Provider != "" {
		provider = *p.Provider
	}
	model := DefaultModel
	if p.Model != nil && *p.Model != "" {
		model = *p.Model
	}
	keyEnv := DefaultAPIKeyEnv
	if p.APIKeyEnv != nil && *p.APIKeyEnv != "" {
		keyEnv = *p.APIKeyEnv
	}
	active := true
	if p.Active != nil {
		active = *p.Active
	}

	res, err := r.db.Exec(`
		INSERT INTO agents (name, prompt, provider, model, base_url, api_key_env, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.Name, p.Prompt, provider, model, p.BaseURL, keyEnv, active)
	if err != nil {
		return 0, fmt.Errorf("failed to create agent: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get created agent id: %w", err)
	}

	r.log.Info().Int64("id", id).Str("name", p.Name).Str("provider", provider).Msg("Agent created")
	return id, nil
}

// Update applies partial changes. Prompt and base_url are always written
// (so they can be cleared); the remaining fields keep their current value
// when the corresponding pointer is nil.
func (r *Repository) Update(id int64, p UpdateParams) error {
	res, err := r.db.Exec(`
		UPDATE agents SET
			name = COALESCE(?, name),
			prompt = ?,
			provider = COALESCE(?, provider),
			model = COALESCE(?, model),
			base_url = ?,
			api_key_env = COALESCE(?, api_key_env),
			active = COALESCE(?, active)
		WHERE id = ?
	`, p.Name, p.Prompt, p.Provider, p.Model, p.BaseURL, p.APIKeyEnv, p.Active, id)
	if err != nil {
		return fmt.Errorf("failed to update agent %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check agent update %d: %w", id, err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes an agent. Results cascade via the schema's foreign key.
func (r *Repository) Delete(id int64) error {
	res, err := r.db.Exec("DELETE FROM agents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete agent %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check agent delete %d: %w", id, err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	r.log.Info().Int64("id", id).Msg("Agent deleted")
	return nil
}
