package loaders

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/zatekoja/viewingscheduler/internal/domain/entities"
	"github.com/zatekoja/viewingscheduler/internal/domain/repositories"
)

type ctxKey string

const loadersKey ctxKey = "dataloaders"

// Loaders contains the request-scoped batch loaders
type Loaders struct {
	AgentLoader *dataloader.Loader[string, *entities.Agent]
}

// NewLoaders creates a new instance of Loaders
func NewLoaders(agentRepo repositories.AgentRepository) *Loaders {
	return &Loaders{
		AgentLoader: dataloader.NewBatchedLoader(
			func(ctx context.Context, keys []string) []*dataloader.Result[*entities.Agent] {
				results := make([]*dataloader.Result[*entities.Agent], len(keys))
				agents, err := agentRepo.GetByIDs(ctx, keys)

				agentMap := make(map[string]*entities.Agent, len(agents))
				if err == nil {
					for _, a := range agents {
						agentMap[a.ID] = a
					}
				}

				for i, key := range keys {
					if err != nil {
						results[i] = &dataloader.Result[*entities.Agent]{Error: err}
					} else if a, ok := agentMap[key]; ok {
						results[i] = &dataloader.Result[*entities.Agent]{Data: a}
					} else {
						results[i] = &dataloader.Result[*entities.Agent]{Error: fmt.Errorf("agent %s not found", key)}
					}
				}
				return results
			},
			dataloader.WithWait[string, *entities.Agent](2*time.Millisecond),
		),
	}
}

// For returns the loaders attached to ctx, or nil
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(loadersKey).(*Loaders)
	return l
}

// WithLoaders returns a new context with the loaders attached
func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}

// Middleware attaches fresh loaders to every request so cached agents never outlive it
func Middleware(agentRepo repositories.AgentRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithLoaders(r.Context(), NewLoaders(agentRepo))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
