package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/zatekoja/viewingscheduler/internal/domain/entities"
	"github.com/zatekoja/viewingscheduler/internal/domain/repositories"
	"github.com/zatekoja/viewingscheduler/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/viewingscheduler/pkg/errors"
)

const agentsTable = "agents"

var agentColumns = []interface{}{
	"id", "email", "first_name", "last_name", "is_active", "created_at", "updated_at",
}

// AgentAdapter implements the AgentRepository interface
type AgentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAgentAdapter creates a new agent adapter
func NewAgentAdapter(client *postgres.Client) repositories.AgentRepository {
	return &AgentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByID retrieves an agent by ID
func (a *AgentAdapter) GetByID(ctx context.Context, id string) (*entities.Agent, error) {
	query, args, err := a.db.Select(agentColumns...).
		From(agentsTable).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to build query", err)
	}

	agent, err := scanAgent(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("agent with id %s not found", id)).
			WithCode(apperrors.CodeAgentNotFound)
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to get agent", err)
	}

	return agent, nil
}

// GetByIDs retrieves agents in bulk
func (a *AgentAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.Agent, error) {
	if len(ids) == 0 {
		return []*entities.Agent{}, nil
	}

	ds := a.db.Select(agentColumns...).
		From(agentsTable).
		Where(goqu.C("id").In(ids))

	return a.query(ctx, ds)
}

// ListActive retrieves agents that can take bookings ordered by name
func (a *AgentAdapter) ListActive(ctx context.Context) ([]*entities.Agent, error) {
	ds := a.db.Select(agentColumns...).
		From(agentsTable).
		Where(goqu.Ex{"is_active": true}).
		Order(goqu.I("first_name").Asc(), goqu.I("last_name").Asc())

	return a.query(ctx, ds)
}

func (a *AgentAdapter) query(ctx context.Context, ds *goqu.SelectDataset) ([]*entities.Agent, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to build agent query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to list agents", err)
	}
	defer rows.Close()

	agents := make([]*entities.Agent, 0)
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, apperrors.NewPersistenceError("failed to scan agent", err)
		}
		agents = append(agents, agent)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("failed to iterate agents", err)
	}

	return agents, nil
}

func scanAgent(row rowScanner) (*entities.Agent, error) {
	agent := &entities.Agent{}
	if err := row.Scan(
		&agent.ID,
		&agent.Email,
		&agent.FirstName,
		&agent.LastName,
		&agent.IsActive,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return agent, nil
}
