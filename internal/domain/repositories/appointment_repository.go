package repositories

import (
	"context"

	"github.com/zatekoja/viewingscheduler/internal/domain/entities"
)

// AppointmentRepository defines the interface for appointment data operations
type AppointmentRepository interface {
	// Create creates a new appointment
	Create(ctx context.Context, appointment *entities.Appointment) error

	// GetByID retrieves an appointment by ID
	GetByID(ctx context.Context, id string) (*entities.Appointment, error)

	// Update updates an appointment
	Update(ctx context.Context, appointment *entities.Appointment) error

	// Delete removes an appointment permanently
	Delete(ctx context.Context, id string) error

	// List retrieves appointments matching the filter together with the unpaginated total
	List(ctx context.Context, filter AppointmentFilter) ([]*entities.Appointment, int, error)

	// ListCommitments retrieves the appointments an agent is committed to on a date
	ListCommitments(ctx context.Context, query CommitmentQuery) ([]*entities.Appointment, error)
}

// AppointmentFilter defines filters for listing appointments
type AppointmentFilter struct {
	Status    entities.AppointmentStatus
	Date      *entities.Date
	StartDate *entities.Date
	EndDate   *entities.Date
	Limit     int
	Offset    int
}

// CommitmentQuery selects one agent's appointments on one date.
type CommitmentQuery struct {
	AgentID   string
	Date      entities.Date
	Statuses  []entities.AppointmentStatus
	ExcludeID string
}
