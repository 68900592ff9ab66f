package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/zatekoja/viewingscheduler/internal/application/services"
	"github.com/zatekoja/viewingscheduler/internal/domain/entities"
	apperrors "github.com/zatekoja/viewingscheduler/pkg/errors"
)

// AppointmentService defines the interface for appointment operations
type AppointmentService interface {
	Create(ctx context.Context, input services.CreateAppointmentInput) (*services.AppointmentResult, error)
	Update(ctx context.Context, id string, input services.UpdateAppointmentInput) (*services.AppointmentResult, error)
	GetByID(ctx context.Context, id string) (*entities.Appointment, error)
	List(ctx context.Context, query services.ListAppointmentsQuery) (*services.AppointmentPage, error)
	Delete(ctx context.Context, id string) (*entities.Appointment, error)
	DaySchedule(ctx context.Context, date, agentID string) (*services.DaySchedule, error)
}

// AppointmentHandler handles appointment requests
type AppointmentHandler struct {
	service AppointmentService
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(service AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{
		service: service,
	}
}

// CreateAppointment handles POST /api/appointments
func (h *AppointmentHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var input services.CreateAppointmentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	result, err := h.service.Create(r.Context(), input)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"appointment": result.Appointment,
		"travel_info": result.TravelInfo,
	})
}

// ListAppointments handles GET /api/appointments
func (h *AppointmentHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := services.ListAppointmentsQuery{
		Status:    q.Get("status"),
		Date:      q.Get("date"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	}

	var invalid []apperrors.FieldError
	var err error
	if query.Limit, err = optionalInt(q.Get("limit")); err != nil {
		invalid = append(invalid, apperrors.FieldError{Field: "limit", Message: "Limit must be between 1 and 100"})
	}
	if query.Offset, err = optionalInt(q.Get("offset")); err != nil {
		invalid = append(invalid, apperrors.FieldError{Field: "offset", Message: "Offset must be 0 or greater"})
	}
	if len(invalid) > 0 {
		respondWithAppError(w, r, apperrors.NewFieldValidationError(invalid))
		return
	}

	page, err := h.service.List(r.Context(), query)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, page)
}

// GetAppointment handles GET /api/appointments/{id}
func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	appointment, err := h.service.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"appointment": appointment,
	})
}

// UpdateAppointment handles PUT /api/appointments/{id}
func (h *AppointmentHandler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	var input services.UpdateAppointmentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	result, err := h.service.Update(r.Context(), r.PathValue("id"), input)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// DeleteAppointment handles DELETE /api/appointments/{id}
func (h *AppointmentHandler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.service.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"deleted_appointment": map[string]interface{}{
			"id":       deleted.ID,
			"customer": deleted.CustomerName,
			"date":     deleted.AppointmentDate,
			"time":     deleted.AppointmentTime,
		},
	})
}

// GetDaySchedule handles GET /api/appointments/schedule/{date}?agent_id=
func (h *AppointmentHandler) GetDaySchedule(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.service.DaySchedule(r.Context(), r.PathValue("date"), r.URL.Query().Get("agent_id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, schedule)
}

func optionalInt(value string) (*int, error) {
	if value == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
