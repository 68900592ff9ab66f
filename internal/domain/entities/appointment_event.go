package entities

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentEventType represents what happened to an appointment
type AppointmentEventType string

const (
	AppointmentEventCreated AppointmentEventType = "appointment_created"
	AppointmentEventUpdated AppointmentEventType = "appointment_updated"
	AppointmentEventDeleted AppointmentEventType = "appointment_deleted"
)

// AppointmentEvent is broadcast to calendar views when bookings change
type AppointmentEvent struct {
	ID              string               `json:"id"`
	AppointmentID   string               `json:"appointment_id"`
	AgentID         *string              `json:"agent_id,omitempty"`
	EventType       AppointmentEventType `json:"event_type"`
	AppointmentDate string               `json:"appointment_date"`
	Status          AppointmentStatus    `json:"status"`
	Timestamp       time.Time            `json:"timestamp"`
}

// NewAppointmentEvent creates a new appointment event
func NewAppointmentEvent(appointment *Appointment, eventType AppointmentEventType) *AppointmentEvent {
	return &AppointmentEvent{
		ID:              uuid.New().String(),
		AppointmentID:   appointment.ID,
		AgentID:         appointment.AgentID,
		EventType:       eventType,
		AppointmentDate: appointment.AppointmentDate.String(),
		Status:          appointment.Status,
		Timestamp:       time.Now(),
	}
}
