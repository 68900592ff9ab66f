package database

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/viewingscheduler/internal/domain/entities"
	"github.com/zatekoja/viewingscheduler/internal/domain/repositories"
	"github.com/zatekoja/viewingscheduler/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/viewingscheduler/pkg/errors"
)

var appointmentColumnNames = []string{
	"id", "agent_id", "customer_name", "customer_email", "customer_phone",
	"property_address", "property_postcode", "property_latitude", "property_longitude",
	"appointment_date", "appointment_time", "departure_time", "return_time", "available_again_time",
	"distance_km", "travel_time_minutes", "status", "notes", "created_at", "updated_at",
}

func setupMockDB(t *testing.T) (*postgres.Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return postgres.NewClientFromDB(db), mock
}

func appointmentRow(id string, agentID interface{}, status string) []driver.Value {
	created := time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC)
	return []driver.Value{
		id, agentID, "Jane Doe", nil, "07700900123",
		"1 High Street, London", "EC1A1BB", 51.52018, -0.09768,
		time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), "14:00:00", "13:40:00", "15:20:00", "15:20:00",
		5.43, int64(20), status, nil, created, created,
	}
}

func TestAppointmentAdapter_GetByID(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewAppointmentAdapter(client)

	mock.ExpectQuery(`FROM "appointments" WHERE \("id" = 'appt-1'\)`).
		WillReturnRows(sqlmock.NewRows(appointmentColumnNames).AddRow(appointmentRow("appt-1", "agent-1", "scheduled")...))

	appointment, err := adapter.GetByID(context.Background(), "appt-1")
	require.NoError(t, err)

	assert.Equal(t, "appt-1", appointment.ID)
	require.NotNil(t, appointment.AgentID)
	assert.Equal(t, "agent-1", *appointment.AgentID)
	assert.Nil(t, appointment.CustomerEmail)
	assert.Nil(t, appointment.Notes)
	assert.Equal(t, "2026-03-02", appointment.AppointmentDate.String())
	assert.Equal(t, "14:00:00", appointment.AppointmentTime.String())
	require.NotNil(t, appointment.DepartureTime)
	assert.Equal(t, "13:40:00", appointment.DepartureTime.String())
	require.NotNil(t, appointment.TravelTimeMinutes)
	assert.Equal(t, 20, *appointment.TravelTimeMinutes)
	assert.Equal(t, entities.AppointmentStatusScheduled, appointment.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentAdapter_GetByIDNotFound(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewAppointmentAdapter(client)

	mock.ExpectQuery(`FROM "appointments"`).
		WillReturnRows(sqlmock.NewRows(appointmentColumnNames))

	_, err := adapter.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAppointmentNotFound))
}

func TestAppointmentAdapter_Create(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewAppointmentAdapter(client)

	agentID := "agent-1"
	appointment := &entities.Appointment{
		ID:               "appt-1",
		AgentID:          &agentID,
		CustomerName:     "Jane Doe",
		CustomerPhone:    "07700900123",
		PropertyAddress:  "1 High Street, London",
		PropertyPostcode: "EC1A1BB",
		AppointmentDate:  entities.NewDate(2026, 3, 2),
		AppointmentTime:  entities.NewTimeOfDay(14, 0, 0),
		Status:           entities.AppointmentStatusScheduled,
	}
	appointment.ApplySchedule(entities.ScheduleTimes{
		DepartureTime:      entities.NewTimeOfDay(13, 40, 0),
		ReturnTime:         entities.NewTimeOfDay(15, 20, 0),
		AvailableAgainTime: entities.NewTimeOfDay(15, 20, 0),
	})

	mock.ExpectExec(`INSERT INTO "appointments"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := adapter.Create(context.Background(), appointment)
	require.NoError(t, err)
	assert.False(t, appointment.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentAdapter_CreateUnknownAgent(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewAppointmentAdapter(client)

	agentID := "ghost"
	mock.ExpectExec(`INSERT INTO "appointments"`).
		WillReturnError(&pq.Error{Code: pqForeignKeyViolation})

	err := adapter.Create(context.Background(), &entities.Appointment{
		ID:              "appt-1",
		AgentID:         &agentID,
		AppointmentDate: entities.NewDate(2026, 3, 2),
		Status:          entities.AppointmentStatusScheduled,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAgentNotFound))
}

func TestAppointmentAdapter_UpdateNotFound(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewAppointmentAdapter(client)

	mock.ExpectExec(`UPDATE "appointments" SET .* WHERE \("id" = 'appt-1'\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := adapter.Update(context.Background(), &entities.Appointment{
		ID:              "appt-1",
		AppointmentDate: entities.NewDate(2026, 3, 2),
		Status:          entities.AppointmentStatusUnassigned,
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentAdapter_Delete(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewAppointmentAdapter(client)

	mock.ExpectExec(`DELETE FROM "appointments" WHERE \("id" = 'appt-1'\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, adapter.Delete(context.Background(), "appt-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentAdapter_ListAppliesFiltersAndPagination(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewAppointmentAdapter(client)

	start := entities.NewDate(2026, 3, 1)
	end := entities.NewDate(2026, 3, 31)

	mock.ExpectQuery(`SELECT COUNT\(\*\).*FROM "appointments" WHERE .*"status" = 'scheduled'.*"appointment_date" >= '2026-03-01'.*"appointment_date" <= '2026-03-31'`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(12)))
	mock.ExpectQuery(`FROM "appointments" WHERE .* ORDER BY "appointment_date" ASC, "appointment_time" ASC, "id" ASC LIMIT 10 OFFSET 10`).
		WillReturnRows(sqlmock.NewRows(appointmentColumnNames).
			AddRow(appointmentRow("appt-11", "agent-1", "scheduled")...).
			AddRow(appointmentRow("appt-12", "agent-2", "scheduled")...))

	appointments, total, err := adapter.List(context.Background(), repositories.AppointmentFilter{
		Status:    entities.AppointmentStatusScheduled,
		StartDate: &start,
		EndDate:   &end,
		Limit:     10,
		Offset:    10,
	})
	require.NoError(t, err)

	assert.Equal(t, 12, total)
	require.Len(t, appointments, 2)
	assert.Equal(t, "appt-11", appointments[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentAdapter_ListCommitmentsExcludesSelf(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewAppointmentAdapter(client)

	mock.ExpectQuery(`"agent_id" = 'agent-1'.*"appointment_date" = '2026-03-02'.*"status" IN \('scheduled'\).*"id" != 'appt-9'.*ORDER BY "appointment_time" ASC, "id" ASC`).
		WillReturnRows(sqlmock.NewRows(appointmentColumnNames).
			AddRow(appointmentRow("appt-1", "agent-1", "scheduled")...))

	appointments, err := adapter.ListCommitments(context.Background(), repositories.CommitmentQuery{
		AgentID:   "agent-1",
		Date:      entities.NewDate(2026, 3, 2),
		Statuses:  []entities.AppointmentStatus{entities.AppointmentStatusScheduled},
		ExcludeID: "appt-9",
	})
	require.NoError(t, err)

	require.Len(t, appointments, 1)
	assert.Equal(t, "appt-1", appointments[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentAdapter_ListPagesOnUniqueOrder(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewAppointmentAdapter(client)

	day := entities.NewDate(2026, 3, 2)

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectQuery(`ORDER BY "appointment_date" ASC, "appointment_time" ASC, "id" ASC LIMIT 2$`).
		WillReturnRows(sqlmock.NewRows(appointmentColumnNames).
			AddRow(appointmentRow("appt-a", "agent-1", "scheduled")...).
			AddRow(appointmentRow("appt-b", "agent-2", "scheduled")...))
	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectQuery(`ORDER BY "appointment_date" ASC, "appointment_time" ASC, "id" ASC LIMIT 2 OFFSET 2$`).
		WillReturnRows(sqlmock.NewRows(appointmentColumnNames).
			AddRow(appointmentRow("appt-c", "agent-3", "scheduled")...))

	first, _, err := adapter.List(context.Background(), repositories.AppointmentFilter{StartDate: &day, EndDate: &day, Limit: 2})
	require.NoError(t, err)
	second, total, err := adapter.List(context.Background(), repositories.AppointmentFilter{StartDate: &day, EndDate: &day, Limit: 2, Offset: 2})
	require.NoError(t, err)

	assert.Equal(t, 3, total)
	var ids []string
	for _, a := range append(first, second...) {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"appt-a", "appt-b", "appt-c"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
