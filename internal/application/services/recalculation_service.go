package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/viewingscheduler/internal/domain/entities"
	"github.com/zatekoja/viewingscheduler/internal/domain/repositories"
)

// RecalculationBatchSize is the page size used when walking appointments
const RecalculationBatchSize = 100

// RecalculationSummary counts the outcome of a recalculation run
type RecalculationSummary struct {
	TotalProcessed int
	UpdatedCount   int
	FailureCount   int
	// ConflictCount is the number of distinct appointment pairs that now overlap.
	// A pair found from both sides counts once.
	ConflictCount int
}

// RecalculationService re-derives travel and schedule times for open appointments,
// for example after the office postcode or the travel speed changes.
type RecalculationService struct {
	repo        repositories.AppointmentRepository
	travel      *TravelService
	conflicts   *ConflictService
	duration    time.Duration
	workerCount int
}

// NewRecalculationService creates a new recalculation service
func NewRecalculationService(
	repo repositories.AppointmentRepository,
	travel *TravelService,
	conflicts *ConflictService,
	duration time.Duration,
	workers int,
) *RecalculationService {
	if workers <= 0 {
		workers = 1
	}
	if duration <= 0 {
		duration = entities.DefaultAppointmentDuration
	}
	return &RecalculationService{
		repo:        repo,
		travel:      travel,
		conflicts:   conflicts,
		duration:    duration,
		workerCount: workers,
	}
}

// RecalculateRange walks every unassigned or scheduled appointment between start and end inclusive.
// Overlaps created by the new figures are counted and logged, not resolved.
func (s *RecalculationService) RecalculateRange(ctx context.Context, start, end entities.Date) (*RecalculationSummary, error) {
	var processed, updated, failure int64
	conflicts := newConflictPairs()

	apptChan := make(chan *entities.Appointment, RecalculationBatchSize)
	var wg sync.WaitGroup

	for i := 0; i < s.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for appt := range apptChan {
				conflictingID, err := s.recalculate(ctx, appt)
				atomic.AddInt64(&processed, 1)
				if err != nil {
					atomic.AddInt64(&failure, 1)
					log.Error().Err(err).Str("appointment_id", appt.ID).Msg("Failed to recalculate appointment")
					continue
				}
				atomic.AddInt64(&updated, 1)
				if conflictingID != "" {
					conflicts.add(appt.ID, conflictingID)
				}
			}
		}()
	}

	produceErr := s.produce(ctx, start, end, apptChan)
	close(apptChan)
	wg.Wait()

	summary := &RecalculationSummary{
		TotalProcessed: int(processed),
		UpdatedCount:   int(updated),
		FailureCount:   int(failure),
		ConflictCount:  conflicts.count(),
	}
	if produceErr != nil {
		return summary, produceErr
	}
	return summary, nil
}

func (s *RecalculationService) produce(ctx context.Context, start, end entities.Date, out chan<- *entities.Appointment) error {
	for _, status := range []entities.AppointmentStatus{entities.AppointmentStatusUnassigned, entities.AppointmentStatusScheduled} {
		offset := 0
		for {
			page, total, err := s.repo.List(ctx, repositories.AppointmentFilter{
				Status:    status,
				StartDate: &start,
				EndDate:   &end,
				Limit:     RecalculationBatchSize,
				Offset:    offset,
			})
			if err != nil {
				return fmt.Errorf("failed to list %s appointments: %w", status, err)
			}

			for _, appt := range page {
				select {
				case out <- appt:
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			offset += len(page)
			if len(page) == 0 || offset >= total {
				break
			}
		}
	}
	return nil
}

// RecalculateOne refreshes a single appointment
func (s *RecalculationService) RecalculateOne(ctx context.Context, id string) error {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.recalculate(ctx, appt)
	return err
}

// recalculate returns the ID of an appointment the refreshed one now overlaps, if any.
func (s *RecalculationService) recalculate(ctx context.Context, appt *entities.Appointment) (string, error) {
	info, err := s.travel.CalculateTravelInfo(ctx, appt.PropertyPostcode)
	if err != nil {
		return "", fmt.Errorf("travel for %s: %w", appt.PropertyPostcode, err)
	}

	applyTravelInfo(appt, info, s.duration)
	if err := s.repo.Update(ctx, appt); err != nil {
		return "", err
	}

	if !appt.IsAssigned() || appt.Status != entities.AppointmentStatusScheduled {
		return "", nil
	}

	result, err := s.conflicts.CheckConflicts(ctx, ConflictCheck{
		AgentID:            *appt.AgentID,
		Date:               appt.AppointmentDate,
		DepartureTime:      *appt.DepartureTime,
		AvailableAgainTime: *appt.AvailableAgainTime,
		ExcludeID:          appt.ID,
	})
	if err != nil {
		return "", err
	}
	if !result.HasConflict {
		return "", nil
	}
	log.Warn().
		Str("appointment_id", appt.ID).
		Str("conflicting_id", result.ConflictingAppointment.ID).
		Str("date", appt.AppointmentDate.String()).
		Msg(result.Message)
	return result.ConflictingAppointment.ID, nil
}

// conflictPairs records overlapping appointments as unordered pairs.
type conflictPairs struct {
	mu    sync.Mutex
	pairs map[[2]string]struct{}
}

func newConflictPairs() *conflictPairs {
	return &conflictPairs{pairs: make(map[[2]string]struct{})}
}

func (c *conflictPairs) add(a, b string) {
	if b < a {
		a, b = b, a
	}
	c.mu.Lock()
	c.pairs[[2]string{a, b}] = struct{}{}
	c.mu.Unlock()
}

func (c *conflictPairs) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pairs)
}
