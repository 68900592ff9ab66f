package services

import (
	"context"

	"github.com/zatekoja/viewingscheduler/internal/domain/entities"
	"github.com/zatekoja/viewingscheduler/internal/domain/repositories"
)

// AgentService exposes the agents that can be assigned viewings
type AgentService struct {
	repo repositories.AgentRepository
}

// NewAgentService creates a new agent service
func NewAgentService(repo repositories.AgentRepository) *AgentService {
	return &AgentService{repo: repo}
}

// ListActive returns active agents ordered by name
func (s *AgentService) ListActive(ctx context.Context) ([]*entities.AgentSummary, error) {
	agents, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]*entities.AgentSummary, 0, len(agents))
	for _, a := range agents {
		summaries = append(summaries, a.Summary())
	}
	return summaries, nil
}
