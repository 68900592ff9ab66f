package repositories

import (
	"context"

	"github.com/zatekoja/viewingscheduler/internal/domain/entities"
)

// AgentRepository defines the interface for agent lookups
type AgentRepository interface {
	// GetByID retrieves an agent by ID
	GetByID(ctx context.Context, id string) (*entities.Agent, error)

	// GetByIDs retrieves agents in bulk; unknown ids are skipped
	GetByIDs(ctx context.Context, ids []string) ([]*entities.Agent, error)

	// ListActive retrieves agents that can take bookings
	ListActive(ctx context.Context) ([]*entities.Agent, error)
}
