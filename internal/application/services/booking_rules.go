package services

import (
	"time"

	"github.com/zatekoja/viewingscheduler/internal/domain/entities"
	apperrors "github.com/zatekoja/viewingscheduler/pkg/errors"
)

const (
	businessOpenHour  = 8
	businessCloseHour = 18
	minimumLeadTime   = time.Hour
)

// BookingRules enforces when viewings may be booked. They apply to the requested
// date and time before any travel adjustment.
type BookingRules struct {
	loc *time.Location
	now func() time.Time
}

// NewBookingRules creates rules evaluated in loc. A nil now uses time.Now.
func NewBookingRules(loc *time.Location, now func() time.Time) *BookingRules {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &BookingRules{loc: loc, now: now}
}

// Validate returns a BUSINESS_RULE_VIOLATION error for the first rule that fails.
func (r *BookingRules) Validate(date entities.Date, at entities.TimeOfDay) error {
	now := r.now().In(r.loc)
	today := entities.DateOf(now)

	if date.Before(today) {
		return ruleViolation("Appointment date must be in the future")
	}
	if date.After(today.AddDate(1, 0, 0)) {
		return ruleViolation("Appointment date cannot be more than 1 year in advance")
	}
	if at.Hour() < businessOpenHour || at.Hour() > businessCloseHour {
		return ruleViolation("Appointments must be between 8:00 AM and 6:00 PM")
	}
	if at.Minute() != 0 && at.Minute() != 30 {
		return ruleViolation("Appointments can only be scheduled at :00 or :30 minutes")
	}
	return r.checkSlot(date, at, now)
}

// ValidateReschedule applies the looser rules used when an existing appointment moves.
// A supplied date must not be in the past. Weekday and lead time are only checked
// when both date and time are supplied.
func (r *BookingRules) ValidateReschedule(date *entities.Date, at *entities.TimeOfDay) error {
	now := r.now().In(r.loc)

	if date != nil && date.Before(entities.DateOf(now)) {
		return ruleViolation("Appointment date must be in the future")
	}
	if date == nil || at == nil {
		return nil
	}
	return r.checkSlot(*date, *at, now)
}

func (r *BookingRules) checkSlot(date entities.Date, at entities.TimeOfDay, now time.Time) error {
	if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return ruleViolation("Appointments cannot be scheduled on weekends")
	}
	if date.At(at, r.loc).Before(now.Add(minimumLeadTime)) {
		return ruleViolation("Appointments must be scheduled at least 1 hour in advance")
	}
	return nil
}

func ruleViolation(message string) error {
	return apperrors.NewValidationError(message).WithCode(apperrors.CodeBusinessRuleViolation)
}
