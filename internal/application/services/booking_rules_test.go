package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/zatekoja/viewingscheduler/internal/application/services"
	"github.com/zatekoja/viewingscheduler/internal/domain/entities"
	apperrors "github.com/zatekoja/viewingscheduler/pkg/errors"
)

// Monday 2 March 2026, 10:00
var rulesNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func TestBookingRules_Validate(t *testing.T) {
	rules := services.NewBookingRules(time.UTC, func() time.Time { return rulesNow })

	tests := []struct {
		name    string
		date    entities.Date
		at      entities.TimeOfDay
		wantMsg string
	}{
		{name: "next weekday morning", date: entities.NewDate(2026, 3, 3), at: tod(9, 0)},
		{name: "latest start", date: entities.NewDate(2026, 3, 3), at: tod(18, 30)},
		{name: "exactly one hour ahead", date: entities.NewDate(2026, 3, 2), at: tod(11, 0)},
		{name: "one year ahead", date: entities.NewDate(2027, 3, 2), at: tod(10, 0)},
		{name: "yesterday", date: entities.NewDate(2026, 3, 1), at: tod(10, 0), wantMsg: "Appointment date must be in the future"},
		{name: "beyond a year", date: entities.NewDate(2027, 3, 3), at: tod(10, 0), wantMsg: "Appointment date cannot be more than 1 year in advance"},
		{name: "too early", date: entities.NewDate(2026, 3, 3), at: tod(7, 30), wantMsg: "Appointments must be between 8:00 AM and 6:00 PM"},
		{name: "too late", date: entities.NewDate(2026, 3, 3), at: tod(19, 0), wantMsg: "Appointments must be between 8:00 AM and 6:00 PM"},
		{name: "quarter past", date: entities.NewDate(2026, 3, 3), at: tod(10, 15), wantMsg: "Appointments can only be scheduled at :00 or :30 minutes"},
		{name: "saturday", date: entities.NewDate(2026, 3, 7), at: tod(10, 0), wantMsg: "Appointments cannot be scheduled on weekends"},
		{name: "within the hour", date: entities.NewDate(2026, 3, 2), at: tod(10, 30), wantMsg: "Appointments must be scheduled at least 1 hour in advance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := rules.Validate(tt.date, tt.at)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}

			appErr, ok := apperrors.As(err)
			if assert.True(t, ok) {
				assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
				assert.Equal(t, apperrors.CodeBusinessRuleViolation, appErr.Code)
				assert.Equal(t, tt.wantMsg, appErr.Message)
			}
		})
	}
}

func TestBookingRules_UsesBusinessTimezone(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// 09:30 BST is 08:30 UTC, so 10:00 local is less than an hour away.
	now := time.Date(2026, 6, 1, 8, 30, 0, 0, time.UTC)
	rules := services.NewBookingRules(london, func() time.Time { return now })

	assert.True(t, apperrors.HasCode(rules.Validate(entities.NewDate(2026, 6, 1), tod(10, 0)), apperrors.CodeBusinessRuleViolation))
	assert.NoError(t, rules.Validate(entities.NewDate(2026, 6, 1), tod(10, 30)))
}

func TestBookingRules_ValidateReschedule(t *testing.T) {
	rules := services.NewBookingRules(time.UTC, func() time.Time { return rulesNow })
	date := func(y int, m time.Month, d int) *entities.Date {
		v := entities.NewDate(y, m, d)
		return &v
	}
	at := func(h, m int) *entities.TimeOfDay {
		v := tod(h, m)
		return &v
	}

	tests := []struct {
		name    string
		date    *entities.Date
		at      *entities.TimeOfDay
		wantMsg string
	}{
		{name: "nothing supplied"},
		{name: "time outside business hours alone", at: at(7, 15)},
		{name: "saturday without a time", date: date(2026, 3, 7)},
		{name: "beyond a year", date: date(2027, 6, 1), at: at(10, 0)},
		{name: "evening slot on a weekday", date: date(2026, 3, 3), at: at(19, 45)},
		{name: "past date", date: date(2026, 3, 1), wantMsg: "Appointment date must be in the future"},
		{name: "saturday with a time", date: date(2026, 3, 7), at: at(10, 0), wantMsg: "Appointments cannot be scheduled on weekends"},
		{name: "within the hour", date: date(2026, 3, 2), at: at(10, 30), wantMsg: "Appointments must be scheduled at least 1 hour in advance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := rules.ValidateReschedule(tt.date, tt.at)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}

			appErr, ok := apperrors.As(err)
			if assert.True(t, ok) {
				assert.Equal(t, apperrors.CodeBusinessRuleViolation, appErr.Code)
				assert.Equal(t, tt.wantMsg, appErr.Message)
			}
		})
	}
}
