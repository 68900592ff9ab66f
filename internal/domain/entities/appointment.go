package entities

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusUnassigned AppointmentStatus = "unassigned"
	AppointmentStatusScheduled  AppointmentStatus = "scheduled"
	AppointmentStatusCompleted  AppointmentStatus = "completed"
	AppointmentStatusCancelled  AppointmentStatus = "cancelled"
	AppointmentStatusNoShow     AppointmentStatus = "no_show"
)

// DefaultAppointmentDuration is how long an agent spends at a viewing.
const DefaultAppointmentDuration = 60 * time.Minute

// IsValid reports whether s is a known status.
func (s AppointmentStatus) IsValid() bool {
	switch s {
	case AppointmentStatusUnassigned, AppointmentStatusScheduled, AppointmentStatusCompleted,
		AppointmentStatusCancelled, AppointmentStatusNoShow:
		return true
	}
	return false
}

// StatusForAgent returns the status implied by the presence of an agent.
func StatusForAgent(agentID *string) AppointmentStatus {
	if agentID == nil || *agentID == "" {
		return AppointmentStatusUnassigned
	}
	return AppointmentStatusScheduled
}

// Appointment represents a property viewing booked for a customer
type Appointment struct {
	ID      string  `json:"id" db:"id"`
	AgentID *string `json:"agent_id" db:"agent_id"`

	CustomerName  string  `json:"customer_name" db:"customer_name"`
	CustomerEmail *string `json:"customer_email" db:"customer_email"`
	CustomerPhone string  `json:"customer_phone" db:"customer_phone"`

	PropertyAddress   string   `json:"property_address" db:"property_address"`
	PropertyPostcode  string   `json:"property_postcode" db:"property_postcode"`
	PropertyLatitude  *float64 `json:"property_latitude" db:"property_latitude"`
	PropertyLongitude *float64 `json:"property_longitude" db:"property_longitude"`

	AppointmentDate    Date       `json:"appointment_date" db:"appointment_date"`
	AppointmentTime    TimeOfDay  `json:"appointment_time" db:"appointment_time"`
	DepartureTime      *TimeOfDay `json:"departure_time" db:"departure_time"`
	ReturnTime         *TimeOfDay `json:"return_time" db:"return_time"`
	AvailableAgainTime *TimeOfDay `json:"available_again_time" db:"available_again_time"`

	DistanceKm        *float64 `json:"distance_km" db:"distance_km"`
	TravelTimeMinutes *int     `json:"travel_time_minutes" db:"travel_time_minutes"`

	Status    AppointmentStatus `json:"status" db:"status"`
	Notes     *string           `json:"notes" db:"notes"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" db:"updated_at"`

	Agent *AgentSummary `json:"agent,omitempty" db:"-"`
}

// IsAssigned reports whether an agent holds the appointment.
func (a *Appointment) IsAssigned() bool {
	return a.AgentID != nil && *a.AgentID != ""
}

// BusyInterval returns the half-open [departure, availableAgain) window on the appointment date.
// ok is false until the schedule has been computed.
func (a *Appointment) BusyInterval(loc *time.Location) (interval BusyInterval, ok bool) {
	if a.DepartureTime == nil || a.AvailableAgainTime == nil {
		return BusyInterval{}, false
	}
	return NewBusyInterval(a.AppointmentDate, *a.DepartureTime, *a.AvailableAgainTime, loc), true
}

// NewBusyInterval anchors wall-clock start and end on date. An end at or before the start
// is taken to fall on the following day.
func NewBusyInterval(date Date, start, end TimeOfDay, loc *time.Location) BusyInterval {
	interval := BusyInterval{Start: date.At(start, loc), End: date.At(end, loc)}
	if !interval.End.After(interval.Start) {
		interval.End = interval.End.AddDate(0, 0, 1)
	}
	return interval
}

// BusyInterval is a half-open span during which an agent cannot take another viewing.
type BusyInterval struct {
	Start time.Time
	End   time.Time
}

// Overlaps uses half-open semantics: touching endpoints do not overlap.
func (i BusyInterval) Overlaps(other BusyInterval) bool {
	return i.Start.Before(other.End) && i.End.After(other.Start)
}

// ScheduleTimes are the wall-clock times derived from an appointment time and travel duration.
type ScheduleTimes struct {
	DepartureTime      TimeOfDay `json:"departure_time"`
	ReturnTime         TimeOfDay `json:"return_time"`
	AvailableAgainTime TimeOfDay `json:"available_again_time"`
}

// ApplySchedule copies derived schedule times onto the appointment.
func (a *Appointment) ApplySchedule(s ScheduleTimes) {
	departure, ret, available := s.DepartureTime, s.ReturnTime, s.AvailableAgainTime
	a.DepartureTime = &departure
	a.ReturnTime = &ret
	a.AvailableAgainTime = &available
}

// ApplyTravel copies travel distance and duration onto the appointment.
func (a *Appointment) ApplyTravel(distanceKm float64, travelTimeMinutes int) {
	a.DistanceKm = &distanceKm
	a.TravelTimeMinutes = &travelTimeMinutes
}
