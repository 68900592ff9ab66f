package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/viewingscheduler/internal/domain/entities"
)

// AgentLister lists agents that can take viewings
type AgentLister interface {
	ListActive(ctx context.Context) ([]*entities.AgentSummary, error)
}

// AgentHandler handles agent requests
type AgentHandler struct {
	service AgentLister
}

// NewAgentHandler creates a new agent handler
func NewAgentHandler(service AgentLister) *AgentHandler {
	return &AgentHandler{service: service}
}

// ListAgents handles GET /api/agents
func (h *AgentHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.service.ListActive(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"agents": agents,
		"count":  len(agents),
	})
}
