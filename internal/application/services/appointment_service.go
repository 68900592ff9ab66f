package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/viewingscheduler/internal/application/loaders"
	"github.com/zatekoja/viewingscheduler/internal/domain/entities"
	"github.com/zatekoja/viewingscheduler/internal/domain/providers"
	"github.com/zatekoja/viewingscheduler/internal/domain/repositories"
	"github.com/zatekoja/viewingscheduler/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/viewingscheduler/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// AppointmentServiceConfig holds the scheduling constants of the orchestrator
type AppointmentServiceConfig struct {
	AppointmentDuration time.Duration
	Location            *time.Location
	LockTTL             time.Duration
}

// AppointmentService sequences geocoding, travel estimation, scheduling and conflict
// detection for every booking change.
type AppointmentService struct {
	repo      repositories.AppointmentRepository
	agentRepo repositories.AgentRepository
	geocoder  *GeocodingService
	travel    *TravelService
	conflicts *ConflictService
	rules     *BookingRules
	validator *InputValidator
	locker    providers.BookingLocker
	events    providers.EventBus
	metrics   *observability.Metrics
	cfg       AppointmentServiceConfig
}

// AppointmentServiceDeps groups the collaborators of AppointmentService.
// Locker, Events and Metrics may be nil.
type AppointmentServiceDeps struct {
	Repo      repositories.AppointmentRepository
	AgentRepo repositories.AgentRepository
	Geocoder  *GeocodingService
	Travel    *TravelService
	Conflicts *ConflictService
	Rules     *BookingRules
	Validator *InputValidator
	Locker    providers.BookingLocker
	Events    providers.EventBus
	Metrics   *observability.Metrics
}

// NewAppointmentService creates a new appointment service
func NewAppointmentService(deps AppointmentServiceDeps, cfg AppointmentServiceConfig) *AppointmentService {
	if cfg.AppointmentDuration <= 0 {
		cfg.AppointmentDuration = entities.DefaultAppointmentDuration
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Second
	}
	if deps.Validator == nil {
		deps.Validator = NewInputValidator()
	}
	if deps.Rules == nil {
		deps.Rules = NewBookingRules(cfg.Location, nil)
	}
	return &AppointmentService{
		repo:      deps.Repo,
		agentRepo: deps.AgentRepo,
		geocoder:  deps.Geocoder,
		travel:    deps.Travel,
		conflicts: deps.Conflicts,
		rules:     deps.Rules,
		validator: deps.Validator,
		locker:    deps.Locker,
		events:    deps.Events,
		metrics:   deps.Metrics,
		cfg:       cfg,
	}
}

// Create books a viewing. Without an agent the booking is stored unassigned and no
// conflict check runs.
func (s *AppointmentService) Create(ctx context.Context, input CreateAppointmentInput) (*AppointmentResult, error) {
	ctx, span := observability.StartSpan(ctx, "appointments.create")
	defer span.End()
	logger := observability.LoggerFromContext(ctx)

	if err := s.validator.ValidateCreate(&input); err != nil {
		return nil, err
	}
	date, at, err := parseDateTime(input.AppointmentDate, input.AppointmentTime)
	if err != nil {
		return nil, err
	}
	if err := s.rules.Validate(date, at); err != nil {
		return nil, err
	}

	var agent *entities.Agent
	if input.AgentID != nil {
		if agent, err = s.agentRepo.GetByID(ctx, *input.AgentID); err != nil {
			return nil, err
		}
	}

	info, err := s.travel.CalculateTravelInfo(ctx, input.PropertyPostcode)
	if err != nil {
		observability.RecordError(span, err)
		return nil, mapGeocodingError(err)
	}

	appointment := &entities.Appointment{
		ID:              uuid.New().String(),
		AgentID:         input.AgentID,
		CustomerName:    input.CustomerName,
		CustomerEmail:   input.CustomerEmail,
		CustomerPhone:   input.CustomerPhone,
		PropertyAddress: input.PropertyAddress,
		AppointmentDate: date,
		AppointmentTime: at,
		Status:          entities.StatusForAgent(input.AgentID),
		Notes:           input.Notes,
	}
	s.applyTravel(appointment, info)

	logger.Debug().
		Str("postcode", appointment.PropertyPostcode).
		Str("routing_method", string(info.RoutingMethod)).
		Int("travel_minutes", info.TravelTimeMinutes).
		Msg("Travel calculated for new appointment")

	persist := func(ctx context.Context) error {
		if appointment.IsAssigned() {
			if err := s.ensureNoConflict(ctx, appointment, "", "create"); err != nil {
				return err
			}
		}
		return s.repo.Create(ctx, appointment)
	}
	if err := s.withBookingLock(ctx, appointment, persist); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	if agent != nil {
		appointment.Agent = agent.Summary()
	}
	observability.SetSpanAttributes(span,
		attribute.String("appointment.id", appointment.ID),
		attribute.String("appointment.status", string(appointment.Status)),
	)
	logger.Info().
		Str("appointment_id", appointment.ID).
		Str("status", string(appointment.Status)).
		Msg("Appointment created")

	s.publish(ctx, appointment, entities.AppointmentEventCreated)
	return &AppointmentResult{Appointment: appointment, TravelInfo: info}, nil
}

// Update applies a partial change. Travel and schedule are recomputed when the date,
// time or postcode changes or when the agent field is present, even as null.
func (s *AppointmentService) Update(ctx context.Context, id string, input UpdateAppointmentInput) (*AppointmentResult, error) {
	ctx, span := observability.StartSpan(ctx, "appointments.update")
	defer span.End()
	observability.SetSpanAttributes(span, attribute.String("appointment.id", id))
	logger := observability.LoggerFromContext(ctx)

	if err := s.validator.ValidateID(id); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateUpdate(&input); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	updated := *existing
	updated.Agent = nil

	var newDate *entities.Date
	var newTime *entities.TimeOfDay
	if input.AppointmentDate != nil {
		parsed, err := entities.ParseDate(*input.AppointmentDate)
		if err != nil {
			return nil, fieldError("appointment_date", err)
		}
		newDate = &parsed
	}
	if input.AppointmentTime != nil {
		parsed, err := entities.ParseTimeOfDay(*input.AppointmentTime)
		if err != nil {
			return nil, fieldError("appointment_time", err)
		}
		newTime = &parsed
	}
	if err := s.rules.ValidateReschedule(newDate, newTime); err != nil {
		return nil, err
	}

	date, at := existing.AppointmentDate, existing.AppointmentTime
	if newDate != nil {
		date = *newDate
	}
	if newTime != nil {
		at = *newTime
	}

	timeChanged := at != existing.AppointmentTime
	dateChanged := date != existing.AppointmentDate
	postcodeChanged := input.PropertyPostcode != nil &&
		NormalizePostcode(*input.PropertyPostcode) != NormalizePostcode(existing.PropertyPostcode)
	recalculate := timeChanged || dateChanged || postcodeChanged || input.AgentID.Set

	if input.CustomerName != nil {
		updated.CustomerName = *input.CustomerName
	}
	if input.CustomerEmail.Set {
		updated.CustomerEmail = input.CustomerEmail.Value
	}
	if input.CustomerPhone != nil {
		updated.CustomerPhone = *input.CustomerPhone
	}
	if input.PropertyAddress != nil {
		updated.PropertyAddress = *input.PropertyAddress
	}
	if input.Notes.Set {
		updated.Notes = input.Notes.Value
	}

	if input.AgentID.Set {
		updated.AgentID = input.AgentID.Value
		updated.Status = entities.StatusForAgent(updated.AgentID)
	} else if input.Status != nil {
		updated.Status = entities.AppointmentStatus(*input.Status)
	}

	var (
		agent *entities.Agent
		info  *TravelInfo
	)
	if input.AgentID.Set && updated.IsAssigned() {
		if agent, err = s.agentRepo.GetByID(ctx, *updated.AgentID); err != nil {
			return nil, err
		}
	}

	if !recalculate {
		if err := s.repo.Update(ctx, &updated); err != nil {
			observability.RecordError(span, err)
			return nil, err
		}
	} else {
		postcode := existing.PropertyPostcode
		if input.PropertyPostcode != nil {
			postcode = *input.PropertyPostcode
		}
		if info, err = s.travel.CalculateTravelInfo(ctx, postcode); err != nil {
			observability.RecordError(span, err)
			return nil, mapGeocodingError(err)
		}
		updated.AppointmentDate = date
		updated.AppointmentTime = at
		s.applyTravel(&updated, info)

		logger.Debug().
			Bool("time_changed", timeChanged).
			Bool("date_changed", dateChanged).
			Bool("postcode_changed", postcodeChanged).
			Bool("agent_changed", input.AgentID.Set).
			Msg("Recalculating appointment schedule")

		persist := func(ctx context.Context) error {
			if updated.IsAssigned() {
				if err := s.ensureNoConflict(ctx, &updated, updated.ID, "update"); err != nil {
					return err
				}
			}
			return s.repo.Update(ctx, &updated)
		}
		if err := s.withBookingLock(ctx, &updated, persist); err != nil {
			observability.RecordError(span, err)
			return nil, err
		}
	}

	if agent != nil {
		updated.Agent = agent.Summary()
	} else if err := s.attachAgents(ctx, []*entities.Appointment{&updated}); err != nil {
		logger.Warn().Err(err).Str("appointment_id", id).Msg("Failed to load agent for appointment")
	}

	logger.Info().
		Str("appointment_id", id).
		Bool("recalculated", recalculate).
		Str("status", string(updated.Status)).
		Msg("Appointment updated")

	s.publish(ctx, &updated, entities.AppointmentEventUpdated)
	return &AppointmentResult{Appointment: &updated, TravelInfo: info, Recalculated: recalculate}, nil
}

// GetByID returns one appointment joined with its agent
func (s *AppointmentService) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	if err := s.validator.ValidateID(id); err != nil {
		return nil, err
	}
	appointment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachAgents(ctx, []*entities.Appointment{appointment}); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("appointment_id", id).Msg("Failed to load agent for appointment")
	}
	return appointment, nil
}

// List returns a page of appointments ordered by date and time. A single date takes
// precedence over a range.
func (s *AppointmentService) List(ctx context.Context, query ListAppointmentsQuery) (*AppointmentPage, error) {
	if err := s.validator.ValidateQuery(&query); err != nil {
		return nil, err
	}

	filter := repositories.AppointmentFilter{
		Status: entities.AppointmentStatus(query.Status),
		Limit:  defaultListLimit,
	}
	if query.Limit != nil {
		filter.Limit = min(*query.Limit, maxListLimit)
	}
	if query.Offset != nil {
		filter.Offset = *query.Offset
	}

	var err error
	switch {
	case query.Date != "":
		if filter.Date, err = parseOptionalDate("date", query.Date); err != nil {
			return nil, err
		}
	default:
		if filter.StartDate, err = parseOptionalDate("start_date", query.StartDate); err != nil {
			return nil, err
		}
		if filter.EndDate, err = parseOptionalDate("end_date", query.EndDate); err != nil {
			return nil, err
		}
	}

	appointments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := s.attachAgents(ctx, appointments); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("Failed to load agents for appointments")
	}

	return &AppointmentPage{
		Appointments: appointments,
		Pagination: Pagination{
			Total:   total,
			Limit:   filter.Limit,
			Offset:  filter.Offset,
			HasMore: filter.Offset+filter.Limit < total,
		},
	}, nil
}

// Delete removes an appointment permanently and returns what was removed
func (s *AppointmentService) Delete(ctx context.Context, id string) (*entities.Appointment, error) {
	if err := s.validator.ValidateID(id); err != nil {
		return nil, err
	}
	appointment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().Str("appointment_id", id).Msg("Appointment deleted")
	s.publish(ctx, appointment, entities.AppointmentEventDeleted)
	return appointment, nil
}

// DaySchedule returns the scheduled viewings on a date with round-trip totals.
// An empty agentID covers every agent.
func (s *AppointmentService) DaySchedule(ctx context.Context, dateValue, agentID string) (*DaySchedule, error) {
	date, err := entities.ParseDate(dateValue)
	if err != nil {
		return nil, apperrors.NewFieldValidationError([]apperrors.FieldError{
			{Field: "date", Message: fieldMessages["appointment_date"]},
		})
	}

	var appointments []*entities.Appointment
	if agentID != "" {
		if err := s.validator.validate.Var(agentID, "uuid"); err != nil {
			return nil, apperrors.NewFieldValidationError([]apperrors.FieldError{
				{Field: "agent_id", Message: fieldMessages["agent_id"]},
			})
		}
		appointments, err = s.repo.ListCommitments(ctx, repositories.CommitmentQuery{
			AgentID:  agentID,
			Date:     date,
			Statuses: []entities.AppointmentStatus{entities.AppointmentStatusScheduled},
		})
	} else {
		appointments, _, err = s.repo.List(ctx, repositories.AppointmentFilter{
			Status: entities.AppointmentStatusScheduled,
			Date:   &date,
		})
	}
	if err != nil {
		return nil, err
	}
	if err := s.attachAgents(ctx, appointments); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("Failed to load agents for schedule")
	}

	summary := DayScheduleSummary{
		TotalAppointments: len(appointments),
		BusyPeriods:       make([]BusyPeriod, 0, len(appointments)),
	}
	var distance float64
	for _, appt := range appointments {
		if appt.TravelTimeMinutes != nil {
			summary.TotalTravelTime += *appt.TravelTimeMinutes * 2
		}
		if appt.DistanceKm != nil {
			distance += *appt.DistanceKm * 2
		}
		summary.BusyPeriods = append(summary.BusyPeriods, BusyPeriod{
			AppointmentID: appt.ID,
			Start:         appt.DepartureTime,
			End:           appt.AvailableAgainTime,
			Customer:      appt.CustomerName,
			AgentID:       appt.AgentID,
		})
	}
	summary.TotalDistance = roundTo(distance, 2)

	return &DaySchedule{
		Date:         date,
		AgentID:      agentID,
		Appointments: appointments,
		Summary:      summary,
	}, nil
}

// ValidatePostcode geocodes a postcode and adds the trip from the office when it can be
// computed. A travel failure does not fail the lookup.
func (s *AppointmentService) ValidatePostcode(ctx context.Context, postcode string) (*PostcodeValidation, error) {
	if err := s.validator.ValidatePostcodeFormat(postcode); err != nil {
		return nil, err
	}

	info, travelErr := s.travel.CalculateTravelInfo(ctx, postcode)
	if travelErr == nil {
		return postcodeValidation(info.Property, info), nil
	}
	var geoErr *GeocodingError
	if errors.As(travelErr, &geoErr) && geoErr.Role == GeocodingRoleProperty {
		return nil, mapGeocodingError(travelErr)
	}

	location, err := s.geocoder.GetCoordinates(ctx, postcode)
	if err != nil {
		return nil, mapGeocodingError(&GeocodingError{Role: GeocodingRoleProperty, Postcode: NormalizePostcode(postcode), Err: err})
	}
	observability.LoggerFromContext(ctx).Warn().Err(travelErr).Str("postcode", location.Postcode).Msg("Travel info unavailable for postcode")
	return postcodeValidation(location, nil), nil
}

func postcodeValidation(location *providers.PostcodeLocation, info *TravelInfo) *PostcodeValidation {
	return &PostcodeValidation{
		Postcode:      location.Postcode,
		Latitude:      location.Coordinates.Latitude,
		Longitude:     location.Coordinates.Longitude,
		Region:        location.Region,
		AdminDistrict: location.AdminDistrict,
		Country:       location.Country,
		TravelInfo:    info,
	}
}

// applyTravel copies the geocoded property and the derived schedule onto appointment
func (s *AppointmentService) applyTravel(appointment *entities.Appointment, info *TravelInfo) {
	applyTravelInfo(appointment, info, s.cfg.AppointmentDuration)
}

// applyTravelInfo copies the property coordinates, travel figures and derived schedule onto appointment.
func applyTravelInfo(appointment *entities.Appointment, info *TravelInfo, duration time.Duration) {
	if info.Property != nil {
		lat, lon := info.Property.Coordinates.Latitude, info.Property.Coordinates.Longitude
		appointment.PropertyPostcode = NormalizePostcode(info.Property.Postcode)
		appointment.PropertyLatitude = &lat
		appointment.PropertyLongitude = &lon
	}
	appointment.ApplyTravel(info.DistanceKm, info.TravelTimeMinutes)
	appointment.ApplySchedule(CalculateScheduleTimes(appointment.AppointmentTime, info.TravelTimeMinutes, duration))
}

func (s *AppointmentService) ensureNoConflict(ctx context.Context, appointment *entities.Appointment, excludeID, operation string) error {
	result, err := s.conflicts.CheckConflicts(ctx, ConflictCheck{
		AgentID:            *appointment.AgentID,
		Date:               appointment.AppointmentDate,
		DepartureTime:      *appointment.DepartureTime,
		AvailableAgainTime: *appointment.AvailableAgainTime,
		ExcludeID:          excludeID,
	})
	if err != nil {
		return err
	}
	if !result.HasConflict {
		return nil
	}

	observability.RecordConflict(ctx, s.metrics, operation)
	conflicting := result.ConflictingAppointment
	observability.LoggerFromContext(ctx).Info().
		Str("agent_id", *appointment.AgentID).
		Str("conflicting_appointment_id", conflicting.ID).
		Msg("Appointment conflict detected")

	return apperrors.NewConflictError(result.Message).
		WithCode(apperrors.CodeConflictDetected).
		WithMeta("conflicting_appointment", map[string]interface{}{
			"id":               conflicting.ID,
			"customer_name":    conflicting.CustomerName,
			"appointment_time": conflicting.AppointmentTime.Short(),
		})
}

// withBookingLock runs fn while holding the agent's lock for the appointment date.
// Unassigned appointments need no lock.
func (s *AppointmentService) withBookingLock(ctx context.Context, appointment *entities.Appointment, fn func(context.Context) error) error {
	if s.locker == nil || !appointment.IsAssigned() {
		return fn(ctx)
	}

	key := *appointment.AgentID + ":" + appointment.AppointmentDate.String()
	start := time.Now()
	release, err := s.locker.Acquire(ctx, key, s.cfg.LockTTL)
	observability.RecordLockWait(ctx, s.metrics, time.Since(start), err == nil)
	if err != nil {
		if errors.Is(err, providers.ErrLockNotAcquired) {
			return apperrors.NewUnavailableError("another booking for this agent is in progress, please retry", err).
				WithCode(apperrors.CodeBookingLockUnavailable)
		}
		return apperrors.NewInternalError("failed to acquire booking lock", err)
	}
	defer func() {
		if err := release(ctx); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("lock_key", key).Msg("Failed to release booking lock")
		}
	}()

	return fn(ctx)
}

// attachAgents joins agent summaries through the request's batch loader
func (s *AppointmentService) attachAgents(ctx context.Context, appointments []*entities.Appointment) error {
	seen := make(map[string]struct{})
	ids := make([]string, 0, len(appointments))
	for _, appt := range appointments {
		if !appt.IsAssigned() {
			continue
		}
		if _, ok := seen[*appt.AgentID]; !ok {
			seen[*appt.AgentID] = struct{}{}
			ids = append(ids, *appt.AgentID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	l := loaders.For(ctx)
	if l == nil {
		l = loaders.NewLoaders(s.agentRepo)
	}

	agents, errs := l.AgentLoader.LoadMany(ctx, ids)()
	byID := make(map[string]*entities.Agent, len(agents))
	var firstErr error
	for i, id := range ids {
		if i < len(errs) && errs[i] != nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		if i < len(agents) && agents[i] != nil {
			byID[id] = agents[i]
		}
	}

	for _, appt := range appointments {
		if !appt.IsAssigned() {
			continue
		}
		if agent, ok := byID[*appt.AgentID]; ok {
			appt.Agent = agent.Summary()
		}
	}
	return firstErr
}

func (s *AppointmentService) publish(ctx context.Context, appointment *entities.Appointment, eventType entities.AppointmentEventType) {
	if s.events == nil {
		return
	}
	event := entities.NewAppointmentEvent(appointment, eventType)
	logger := observability.LoggerFromContext(ctx)

	if err := s.events.Publish(ctx, providers.EventChannelAppointmentUpdates, event); err != nil {
		logger.Warn().Err(err).Str("appointment_id", appointment.ID).Msg("Failed to publish appointment event")
	}
	if appointment.IsAssigned() {
		if err := s.events.Publish(ctx, providers.GetAgentChannel(*appointment.AgentID), event); err != nil {
			logger.Warn().Err(err).Str("appointment_id", appointment.ID).Msg("Failed to publish agent event")
		}
	}
}

// mapGeocodingError turns a travel or geocoding failure into a client-facing error
func mapGeocodingError(err error) error {
	var geoErr *GeocodingError
	role := GeocodingRoleProperty
	if errors.As(err, &geoErr) {
		role = geoErr.Role
	}

	switch {
	case errors.Is(err, providers.ErrGeocodingTimeout):
		return apperrors.NewUnavailableError("postcode lookup timed out, please retry", err).
			WithCode(apperrors.CodeGeocodingTimeout)
	case errors.Is(err, providers.ErrPostcodeNotFound) && role == GeocodingRoleProperty:
		return (&apperrors.AppError{
			Type:    apperrors.ErrorTypeValidation,
			Message: "The provided postcode was not found",
			Details: []apperrors.FieldError{{Field: "property_postcode", Message: "Postcode not found"}},
			Err:     err,
		}).WithCode(apperrors.CodeInvalidPostcode)
	case errors.Is(err, providers.ErrPostcodeNotFound):
		return apperrors.NewExternalError("office location could not be resolved", err).
			WithCode(apperrors.CodeGeocodingProviderError)
	default:
		return apperrors.NewExternalError("postcode lookup failed", err).
			WithCode(apperrors.CodeGeocodingProviderError)
	}
}

func parseDateTime(dateValue, timeValue string) (entities.Date, entities.TimeOfDay, error) {
	date, err := entities.ParseDate(dateValue)
	if err != nil {
		return entities.Date{}, 0, fieldError("appointment_date", err)
	}
	at, err := entities.ParseTimeOfDay(timeValue)
	if err != nil {
		return entities.Date{}, 0, fieldError("appointment_time", err)
	}
	return date, at, nil
}

func parseOptionalDate(field, value string) (*entities.Date, error) {
	if value == "" {
		return nil, nil
	}
	date, err := entities.ParseDate(value)
	if err != nil {
		return nil, fieldError(field, err)
	}
	return &date, nil
}

func fieldError(field string, err error) error {
	message, ok := fieldMessages[field]
	if !ok {
		message = fmt.Sprintf("%s is invalid: %v", field, err)
	}
	appErr := apperrors.NewFieldValidationError([]apperrors.FieldError{{Field: field, Message: message}})
	appErr.Err = err
	return appErr
}
