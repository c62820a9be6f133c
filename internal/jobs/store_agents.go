package jobs

import (
	"context"
	"fmt"
)

// UpsertAgent registers a named agent, leaving counters of an existing row
// untouched.
func (s *Store) UpsertAgent(ctx context.Context, name, role string) error {
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO agents (name, role, status, tasks_completed, updated_at) VALUES (?, ?, ?, 0, ?)
         ON CONFLICT(name) DO UPDATE SET role = excluded.role`,
		name, nullableString(role), AgentIdle, formatTime(s.now()),
	); err != nil {
		return fmt.Errorf("upsert agent %s: %w", name, err)
	}
	return nil
}

// SetAgentStatus records an agent's activity and returns the updated row.
// Going active stamps last_active_at; completed bumps the task counter.
func (s *Store) SetAgentStatus(ctx context.Context, name string, status AgentStatus, completed bool) (*Agent, error) {
	now := formatTime(s.now())
	increment := 0
	if completed {
		increment = 1
	}
	query := `UPDATE agents SET status = ?, tasks_completed = tasks_completed + ?, updated_at = ?`
	args := []any{status, increment, now}
	if status == AgentActive {
		query += `, last_active_at = ?`
		args = append(args, now)
	}
	query += ` WHERE name = ?`
	args = append(args, name)
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("set agent %s status: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("set agent %s status: unknown agent", name)
	}
	agent, err := scanAgent(s.db.QueryRowContext(ensureContext(ctx), `SELECT `+agentColumns+` FROM agents WHERE name = ?`, name))
	if err != nil {
		return nil, fmt.Errorf("read agent %s: %w", name, err)
	}
	return agent, nil
}

// ListAgents returns every registered agent ordered by name.
func (s *Store) ListAgents(ctx context.Context) ([]Agent, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT `+agentColumns+` FROM agents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()
	var agents []Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, *agent)
	}
	return agents, rows.Err()
}
