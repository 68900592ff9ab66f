package services_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/viewingscheduler/internal/application/services"
	apperrors "github.com/zatekoja/viewingscheduler/pkg/errors"
)

func validCreateInput() services.CreateAppointmentInput {
	return services.CreateAppointmentInput{
		CustomerName:     "Jane O'Neil-Smith",
		CustomerEmail:    strPtr("jane@example.com"),
		CustomerPhone:    "07700 900123",
		PropertyAddress:  "10 Downing Street, London",
		PropertyPostcode: "sw1a 1aa",
		AppointmentDate:  "2026-03-03",
		AppointmentTime:  "14:00",
	}
}

func fieldMessages(t *testing.T, err error) map[string]string {
	t.Helper()
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)

	out := make(map[string]string, len(appErr.Details))
	for _, d := range appErr.Details {
		out[d.Field] = d.Message
	}
	return out
}

func TestInputValidator_ValidateCreate(t *testing.T) {
	v := services.NewInputValidator()

	t.Run("valid input is trimmed", func(t *testing.T) {
		input := validCreateInput()
		input.CustomerName = "  Jane Smith  "
		input.AgentID = strPtr("  ")
		require.NoError(t, v.ValidateCreate(&input))
		assert.Equal(t, "Jane Smith", input.CustomerName)
		assert.Nil(t, input.AgentID)
	})

	t.Run("reports every invalid field", func(t *testing.T) {
		input := validCreateInput()
		input.CustomerName = "J"
		input.CustomerEmail = strPtr("not-an-email")
		input.CustomerPhone = "12345"
		input.PropertyAddress = "short"
		input.PropertyPostcode = "NOTAPOSTCODE"
		input.AppointmentDate = "03/03/2026"
		input.AppointmentTime = "2pm"
		input.AgentID = strPtr("agent-1")
		input.Notes = strPtr(strings.Repeat("x", 1001))

		msgs := fieldMessages(t, v.ValidateCreate(&input))

		assert.Equal(t, "Customer name must be between 2 and 100 characters", msgs["customer_name"])
		assert.Equal(t, "Please provide a valid email address", msgs["customer_email"])
		assert.Equal(t, "Please provide a valid UK phone number", msgs["customer_phone"])
		assert.Equal(t, "Property address must be between 10 and 500 characters", msgs["property_address"])
		assert.Equal(t, "Please provide a valid UK postcode", msgs["property_postcode"])
		assert.Equal(t, "Please provide a valid date in YYYY-MM-DD format", msgs["appointment_date"])
		assert.Equal(t, "Please provide a valid time in HH:MM format", msgs["appointment_time"])
		assert.Equal(t, "Invalid agent ID format", msgs["agent_id"])
		assert.Equal(t, "Notes cannot exceed 1000 characters", msgs["notes"])
	})

	t.Run("name characters", func(t *testing.T) {
		input := validCreateInput()
		input.CustomerName = "Jane 5mith"
		msgs := fieldMessages(t, v.ValidateCreate(&input))
		assert.Equal(t, "Customer name can only contain letters, spaces, hyphens, apostrophes, and periods", msgs["customer_name"])
	})

	t.Run("uk phone formats", func(t *testing.T) {
		for _, phone := range []string{"07700900123", "+447700900123", "020 7946 0018", "(020) 7946-0018"} {
			input := validCreateInput()
			input.CustomerPhone = phone
			assert.NoError(t, v.ValidateCreate(&input), phone)
		}
	})
}

func TestInputValidator_ValidateUpdate(t *testing.T) {
	v := services.NewInputValidator()

	t.Run("empty update is valid", func(t *testing.T) {
		assert.NoError(t, v.ValidateUpdate(&services.UpdateAppointmentInput{}))
	})

	t.Run("explicit null agent is valid", func(t *testing.T) {
		var input services.UpdateAppointmentInput
		require.NoError(t, json.Unmarshal([]byte(`{"agent_id": null}`), &input))
		assert.True(t, input.AgentID.Set)
		assert.Nil(t, input.AgentID.Value)
		assert.NoError(t, v.ValidateUpdate(&input))
	})

	t.Run("optional values are validated", func(t *testing.T) {
		var input services.UpdateAppointmentInput
		require.NoError(t, json.Unmarshal([]byte(`{"agent_id": "nope", "customer_email": "bad", "status": "unassigned"}`), &input))

		msgs := fieldMessages(t, v.ValidateUpdate(&input))
		assert.Equal(t, "Invalid agent ID format", msgs["agent_id"])
		assert.Equal(t, "Please provide a valid email address", msgs["customer_email"])
		assert.Equal(t, "Status must be one of: scheduled, completed, cancelled, no_show", msgs["status"])
	})
}

func TestInputValidator_ValidateQuery(t *testing.T) {
	v := services.NewInputValidator()
	zero, big, negative := 0, 101, -1

	assert.NoError(t, v.ValidateQuery(&services.ListAppointmentsQuery{Status: "unassigned", Date: "2026-03-02"}))

	msgs := fieldMessages(t, v.ValidateQuery(&services.ListAppointmentsQuery{Limit: &zero, Offset: &negative}))
	assert.Equal(t, "Limit must be between 1 and 100", msgs["limit"])
	assert.Equal(t, "Offset must be 0 or greater", msgs["offset"])

	msgs = fieldMessages(t, v.ValidateQuery(&services.ListAppointmentsQuery{Limit: &big, StartDate: "yesterday"}))
	assert.Contains(t, msgs, "limit")
	assert.Equal(t, "Start date must be in YYYY-MM-DD format", msgs["start_date"])
}

func TestInputValidator_IDsAndPostcodes(t *testing.T) {
	v := services.NewInputValidator()

	assert.NoError(t, v.ValidateID("3f2504e0-4f89-41d3-9a0c-0305e82c3301"))
	assert.True(t, apperrors.IsType(v.ValidateID("123"), apperrors.ErrorTypeValidation))

	assert.NoError(t, v.ValidatePostcodeFormat("M1 1AE"))
	assert.NoError(t, v.ValidatePostcodeFormat("ec1a1bb"))
	assert.Error(t, v.ValidatePostcodeFormat("12345"))
}

func TestOptional_UnmarshalJSON(t *testing.T) {
	var input services.UpdateAppointmentInput
	require.NoError(t, json.Unmarshal([]byte(`{"notes": "ring the bell"}`), &input))

	assert.True(t, input.Notes.Set)
	assert.Equal(t, "ring the bell", *input.Notes.Value)
	assert.False(t, input.AgentID.Set)
	assert.False(t, input.CustomerEmail.Set)
}
