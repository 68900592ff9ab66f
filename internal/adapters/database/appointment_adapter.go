package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"
	"github.com/zatekoja/viewingscheduler/internal/domain/entities"
	"github.com/zatekoja/viewingscheduler/internal/domain/repositories"
	"github.com/zatekoja/viewingscheduler/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/viewingscheduler/pkg/errors"
)

const (
	appointmentsTable = "appointments"

	pqForeignKeyViolation = "23503"
)

var appointmentColumns = []interface{}{
	"id", "agent_id", "customer_name", "customer_email", "customer_phone",
	"property_address", "property_postcode", "property_latitude", "property_longitude",
	"appointment_date", "appointment_time", "departure_time", "return_time", "available_again_time",
	"distance_km", "travel_time_minutes", "status", "notes", "created_at", "updated_at",
}

// AppointmentAdapter implements the AppointmentRepository interface
type AppointmentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAppointmentAdapter creates a new appointment adapter
func NewAppointmentAdapter(client *postgres.Client) repositories.AppointmentRepository {
	return &AppointmentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new appointment
func (a *AppointmentAdapter) Create(ctx context.Context, appointment *entities.Appointment) error {
	now := time.Now().UTC()
	if appointment.CreatedAt.IsZero() {
		appointment.CreatedAt = now
	}
	appointment.UpdatedAt = now

	record := appointmentRecord(appointment)
	record["id"] = appointment.ID
	record["created_at"] = appointment.CreatedAt

	query, args, err := a.db.Insert(appointmentsTable).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewPersistenceError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return translateWriteError("failed to create appointment", err)
	}

	return nil
}

// GetByID retrieves an appointment by ID
func (a *AppointmentAdapter) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	query, args, err := a.db.Select(appointmentColumns...).
		From(appointmentsTable).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to build query", err)
	}

	appointment, err := scanAppointment(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id)).
			WithCode(apperrors.CodeAppointmentNotFound)
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to get appointment", err)
	}

	return appointment, nil
}

// Update updates an appointment
func (a *AppointmentAdapter) Update(ctx context.Context, appointment *entities.Appointment) error {
	appointment.UpdatedAt = time.Now().UTC()

	query, args, err := a.db.Update(appointmentsTable).
		Set(appointmentRecord(appointment)).
		Where(goqu.Ex{"id": appointment.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewPersistenceError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return translateWriteError("failed to update appointment", err)
	}

	return expectOneRow(result, appointment.ID)
}

// Delete removes an appointment permanently
func (a *AppointmentAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete(appointmentsTable).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewPersistenceError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewPersistenceError("failed to delete appointment", err)
	}

	return expectOneRow(result, id)
}

// List retrieves appointments matching the filter ordered by date then time.
// id breaks ties so LIMIT/OFFSET pages stay disjoint.
func (a *AppointmentAdapter) List(ctx context.Context, filter repositories.AppointmentFilter) ([]*entities.Appointment, int, error) {
	conditions := listConditions(filter)

	countQuery, countArgs, err := a.db.From(appointmentsTable).
		Select(goqu.COUNT("*")).
		Where(conditions...).
		ToSQL()
	if err != nil {
		return nil, 0, apperrors.NewPersistenceError("failed to build count query", err)
	}

	var total int
	if err := a.client.DB().QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, apperrors.NewPersistenceError("failed to count appointments", err)
	}

	ds := a.db.Select(appointmentColumns...).
		From(appointmentsTable).
		Where(conditions...).
		Order(goqu.I("appointment_date").Asc(), goqu.I("appointment_time").Asc(), goqu.I("id").Asc())

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	appointments, err := a.query(ctx, ds)
	if err != nil {
		return nil, 0, err
	}

	return appointments, total, nil
}

// ListCommitments retrieves one agent's appointments on one date ordered by time
func (a *AppointmentAdapter) ListCommitments(ctx context.Context, q repositories.CommitmentQuery) ([]*entities.Appointment, error) {
	conditions := []exp.Expression{
		goqu.Ex{
			"agent_id":         q.AgentID,
			"appointment_date": q.Date.String(),
		},
	}
	if len(q.Statuses) > 0 {
		statuses := make([]string, len(q.Statuses))
		for i, s := range q.Statuses {
			statuses[i] = string(s)
		}
		conditions = append(conditions, goqu.C("status").In(statuses))
	}
	if q.ExcludeID != "" {
		conditions = append(conditions, goqu.C("id").Neq(q.ExcludeID))
	}

	ds := a.db.Select(appointmentColumns...).
		From(appointmentsTable).
		Where(conditions...).
		Order(goqu.I("appointment_time").Asc(), goqu.I("id").Asc())

	return a.query(ctx, ds)
}

func (a *AppointmentAdapter) query(ctx context.Context, ds *goqu.SelectDataset) ([]*entities.Appointment, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to list appointments", err)
	}
	defer rows.Close()

	appointments := make([]*entities.Appointment, 0)
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, apperrors.NewPersistenceError("failed to scan appointment", err)
		}
		appointments = append(appointments, appointment)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("failed to iterate appointments", err)
	}

	return appointments, nil
}

func listConditions(filter repositories.AppointmentFilter) []exp.Expression {
	var conditions []exp.Expression
	if filter.Status != "" {
		conditions = append(conditions, goqu.Ex{"status": string(filter.Status)})
	}
	if filter.Date != nil {
		conditions = append(conditions, goqu.Ex{"appointment_date": filter.Date.String()})
	}
	if filter.StartDate != nil {
		conditions = append(conditions, goqu.C("appointment_date").Gte(filter.StartDate.String()))
	}
	if filter.EndDate != nil {
		conditions = append(conditions, goqu.C("appointment_date").Lte(filter.EndDate.String()))
	}
	return conditions
}

// appointmentRecord holds every mutable column.
func appointmentRecord(appointment *entities.Appointment) goqu.Record {
	return goqu.Record{
		"agent_id":             nullableString(appointment.AgentID),
		"customer_name":        appointment.CustomerName,
		"customer_email":       nullableString(appointment.CustomerEmail),
		"customer_phone":       appointment.CustomerPhone,
		"property_address":     appointment.PropertyAddress,
		"property_postcode":    appointment.PropertyPostcode,
		"property_latitude":    nullableFloat(appointment.PropertyLatitude),
		"property_longitude":   nullableFloat(appointment.PropertyLongitude),
		"appointment_date":     appointment.AppointmentDate.String(),
		"appointment_time":     appointment.AppointmentTime.String(),
		"departure_time":       nullableTimeOfDay(appointment.DepartureTime),
		"return_time":          nullableTimeOfDay(appointment.ReturnTime),
		"available_again_time": nullableTimeOfDay(appointment.AvailableAgainTime),
		"distance_km":          nullableFloat(appointment.DistanceKm),
		"travel_time_minutes":  nullableInt(appointment.TravelTimeMinutes),
		"status":               string(appointment.Status),
		"notes":                nullableString(appointment.Notes),
		"updated_at":           appointment.UpdatedAt,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAppointment(row rowScanner) (*entities.Appointment, error) {
	appointment := &entities.Appointment{}
	var status string

	err := row.Scan(
		&appointment.ID,
		&appointment.AgentID,
		&appointment.CustomerName,
		&appointment.CustomerEmail,
		&appointment.CustomerPhone,
		&appointment.PropertyAddress,
		&appointment.PropertyPostcode,
		&appointment.PropertyLatitude,
		&appointment.PropertyLongitude,
		&appointment.AppointmentDate,
		&appointment.AppointmentTime,
		&appointment.DepartureTime,
		&appointment.ReturnTime,
		&appointment.AvailableAgainTime,
		&appointment.DistanceKm,
		&appointment.TravelTimeMinutes,
		&status,
		&appointment.Notes,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	appointment.Status = entities.AppointmentStatus(status)
	return appointment, nil
}

func expectOneRow(result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewPersistenceError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id)).
			WithCode(apperrors.CodeAppointmentNotFound)
	}
	return nil
}

func translateWriteError(message string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
		return apperrors.NewValidationError("agent does not exist").WithCode(apperrors.CodeAgentNotFound)
	}
	return apperrors.NewPersistenceError(message, err)
}

func nullableString(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableTimeOfDay(v *entities.TimeOfDay) interface{} {
	if v == nil {
		return nil
	}
	return v.String()
}
