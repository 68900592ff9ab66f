package services

import (
	"bytes"
	"encoding/json"

	"github.com/zatekoja/viewingscheduler/internal/domain/entities"
)

// CreateAppointmentInput is the payload for booking a viewing
type CreateAppointmentInput struct {
	AgentID          *string `json:"agent_id" validate:"omitempty,uuid"`
	CustomerName     string  `json:"customer_name" validate:"required,min=2,max=100,personname"`
	CustomerEmail    *string `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone    string  `json:"customer_phone" validate:"required,ukphone"`
	PropertyAddress  string  `json:"property_address" validate:"required,min=10,max=500"`
	PropertyPostcode string  `json:"property_postcode" validate:"required,ukpostcode"`
	AppointmentDate  string  `json:"appointment_date" validate:"required,datetime=2006-01-02"`
	AppointmentTime  string  `json:"appointment_time" validate:"required,hhmm"`
	Notes            *string `json:"notes" validate:"omitempty,max=1000"`
}

// UpdateAppointmentInput is a partial update. Optional fields distinguish absent from explicit null.
type UpdateAppointmentInput struct {
	AgentID          Optional[string] `json:"agent_id" validate:"omitempty,uuid"`
	CustomerName     *string          `json:"customer_name" validate:"omitempty,min=2,max=100,personname"`
	CustomerEmail    Optional[string] `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone    *string          `json:"customer_phone" validate:"omitempty,ukphone"`
	PropertyAddress  *string          `json:"property_address" validate:"omitempty,min=10,max=500"`
	PropertyPostcode *string          `json:"property_postcode" validate:"omitempty,ukpostcode"`
	AppointmentDate  *string          `json:"appointment_date" validate:"omitempty,datetime=2006-01-02"`
	AppointmentTime  *string          `json:"appointment_time" validate:"omitempty,hhmm"`
	Status           *string          `json:"status" validate:"omitempty,oneof=scheduled completed cancelled no_show"`
	Notes            Optional[string] `json:"notes" validate:"omitempty,max=1000"`
}

// Optional is a JSON field that records whether it was present, including as null.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns a present, non-null Optional
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null returns a present Optional holding null
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// UnmarshalJSON implements json.Unmarshaler
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// ListAppointmentsQuery holds list filters as received from the caller
type ListAppointmentsQuery struct {
	Status    string `json:"status" validate:"omitempty,oneof=scheduled completed cancelled no_show unassigned"`
	Date      string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	StartDate string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Limit     *int   `json:"limit" validate:"omitempty,min=1,max=100"`
	Offset    *int   `json:"offset" validate:"omitempty,min=0"`
}

// AppointmentResult is a stored appointment plus the travel estimate that produced it
type AppointmentResult struct {
	Appointment  *entities.Appointment `json:"appointment"`
	TravelInfo   *TravelInfo           `json:"travel_info,omitempty"`
	Recalculated bool                  `json:"recalculated"`
}

// AppointmentPage is one page of a filtered listing
type AppointmentPage struct {
	Appointments []*entities.Appointment `json:"appointments"`
	Pagination   Pagination              `json:"pagination"`
}

// Pagination describes the position of a page in the full result
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// DaySchedule is an agent's committed viewings on one date
type DaySchedule struct {
	Date         entities.Date           `json:"date"`
	AgentID      string                  `json:"agent_id,omitempty"`
	Appointments []*entities.Appointment `json:"appointments"`
	Summary      DayScheduleSummary      `json:"summary"`
}

// DayScheduleSummary totals the round trips of a day
type DayScheduleSummary struct {
	TotalAppointments int          `json:"total_appointments"`
	TotalTravelTime   int          `json:"total_travel_time"`
	TotalDistance     float64      `json:"total_distance"`
	BusyPeriods       []BusyPeriod `json:"busy_periods"`
}

// BusyPeriod is one [start, end) block in a day schedule
type BusyPeriod struct {
	AppointmentID string              `json:"appointment_id"`
	Start         *entities.TimeOfDay `json:"start"`
	End           *entities.TimeOfDay `json:"end"`
	Customer      string              `json:"customer"`
	AgentID       *string             `json:"agent_id"`
}

// PostcodeValidation is a geocoded postcode plus the trip to it when it could be computed
type PostcodeValidation struct {
	Postcode      string      `json:"postcode"`
	Latitude      float64     `json:"latitude"`
	Longitude     float64     `json:"longitude"`
	Region        string      `json:"region,omitempty"`
	AdminDistrict string      `json:"admin_district,omitempty"`
	Country       string      `json:"country,omitempty"`
	TravelInfo    *TravelInfo `json:"travel_info,omitempty"`
}
