package routes

import (
	"net/http"

	"github.com/zatekoja/viewingscheduler/internal/api/handlers"
	"github.com/zatekoja/viewingscheduler/internal/api/middleware"
	"github.com/zatekoja/viewingscheduler/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	appointmentHandler *handlers.AppointmentHandler
	geolocationHandler *handlers.GeolocationHandler
	agentHandler       *handlers.AgentHandler
	sseHandler         *handlers.SSEHandler

	requestScope   func(http.Handler) http.Handler
	allowedOrigins []string
	metrics        *observability.Metrics
}

// RouterDeps lists the handlers and middleware the router mounts
type RouterDeps struct {
	AppointmentHandler *handlers.AppointmentHandler
	GeolocationHandler *handlers.GeolocationHandler
	AgentHandler       *handlers.AgentHandler
	SSEHandler         *handlers.SSEHandler

	// RequestScope attaches per-request state such as the agent loaders
	RequestScope   func(http.Handler) http.Handler
	AllowedOrigins []string
	Metrics        *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(deps RouterDeps) *Router {
	return &Router{
		mux:                http.NewServeMux(),
		appointmentHandler: deps.AppointmentHandler,
		geolocationHandler: deps.GeolocationHandler,
		agentHandler:       deps.AgentHandler,
		sseHandler:         deps.SSEHandler,
		requestScope:       deps.RequestScope,
		allowedOrigins:     deps.AllowedOrigins,
		metrics:            deps.Metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Appointment endpoints
	r.mux.HandleFunc("POST /api/appointments", r.appointmentHandler.CreateAppointment)
	r.mux.HandleFunc("GET /api/appointments", r.appointmentHandler.ListAppointments)
	r.mux.HandleFunc("GET /api/appointments/schedule/{date}", r.appointmentHandler.GetDaySchedule)
	r.mux.HandleFunc("GET /api/appointments/{id}", r.appointmentHandler.GetAppointment)
	r.mux.HandleFunc("PUT /api/appointments/{id}", r.appointmentHandler.UpdateAppointment)
	r.mux.HandleFunc("DELETE /api/appointments/{id}", r.appointmentHandler.DeleteAppointment)

	// Live calendar updates
	if r.sseHandler != nil {
		r.mux.HandleFunc("GET /api/appointments/stream", r.sseHandler.StreamAppointmentUpdates)
	}

	// Postcode endpoints
	r.mux.HandleFunc("POST /api/validate-postcode", r.geolocationHandler.ValidatePostcode)
	r.mux.HandleFunc("GET /api/postcodes/{postcode}", r.geolocationHandler.LookupPostcode)

	// Agent endpoints
	r.mux.HandleFunc("GET /api/agents", r.agentHandler.ListAgents)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	if r.requestScope != nil {
		handler = r.requestScope(handler)
	}
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so headers are set on every response
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
