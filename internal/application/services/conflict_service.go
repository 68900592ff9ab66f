package services

import (
	"context"
	"fmt"
	"time"

	"github.com/zatekoja/viewingscheduler/internal/domain/entities"
	"github.com/zatekoja/viewingscheduler/internal/domain/repositories"
	"github.com/zatekoja/viewingscheduler/internal/infrastructure/observability"
	"go.opentelemetry.io/otel/attribute"
)

// ConflictCheck describes a candidate busy interval for one agent on one date
type ConflictCheck struct {
	AgentID            string
	Date               entities.Date
	DepartureTime      entities.TimeOfDay
	AvailableAgainTime entities.TimeOfDay
	ExcludeID          string
}

// ConflictResult reports the first commitment overlapping the candidate
type ConflictResult struct {
	HasConflict            bool
	ConflictingAppointment *entities.Appointment
	Message                string
}

// ConflictService detects overlapping agent commitments
type ConflictService struct {
	repo repositories.AppointmentRepository
	loc  *time.Location
}

// NewConflictService creates a new conflict service
func NewConflictService(repo repositories.AppointmentRepository, loc *time.Location) *ConflictService {
	if loc == nil {
		loc = time.UTC
	}
	return &ConflictService{repo: repo, loc: loc}
}

// CheckConflicts compares the candidate against the agent's scheduled appointments on the date.
// Intervals are half-open so back-to-back bookings do not conflict.
func (s *ConflictService) CheckConflicts(ctx context.Context, check ConflictCheck) (*ConflictResult, error) {
	ctx, span := observability.StartSpan(ctx, "conflicts.check")
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.String("agent.id", check.AgentID),
		attribute.String("appointment.date", check.Date.String()),
	)

	existing, err := s.repo.ListCommitments(ctx, repositories.CommitmentQuery{
		AgentID:   check.AgentID,
		Date:      check.Date,
		Statuses:  []entities.AppointmentStatus{entities.AppointmentStatusScheduled},
		ExcludeID: check.ExcludeID,
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	candidate := entities.NewBusyInterval(check.Date, check.DepartureTime, check.AvailableAgainTime, s.loc)

	for _, appt := range existing {
		if appt.ID == check.ExcludeID {
			continue
		}
		interval, ok := appt.BusyInterval(s.loc)
		if !ok {
			continue
		}
		if candidate.Overlaps(interval) {
			observability.SetSpanAttributes(span, attribute.String("conflict.appointment_id", appt.ID))
			return &ConflictResult{
				HasConflict:            true,
				ConflictingAppointment: appt,
				Message:                fmt.Sprintf("Conflicts with appointment for %s at %s", appt.CustomerName, appt.AppointmentTime.Short()),
			}, nil
		}
	}

	return &ConflictResult{HasConflict: false}, nil
}
