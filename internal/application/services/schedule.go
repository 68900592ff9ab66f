package services

import (
	"time"

	"github.com/zatekoja/viewingscheduler/internal/domain/entities"
)

// CalculateScheduleTimes derives the busy block around a viewing from its wall-clock time.
// The agent leaves travelTimeMinutes before the viewing, stays for duration and drives back.
func CalculateScheduleTimes(appointmentTime entities.TimeOfDay, travelTimeMinutes int, duration time.Duration) entities.ScheduleTimes {
	durationMinutes := int(duration / time.Minute)
	returnTime := appointmentTime.AddMinutes(durationMinutes + travelTimeMinutes)

	return entities.ScheduleTimes{
		DepartureTime:      appointmentTime.AddMinutes(-travelTimeMinutes),
		ReturnTime:         returnTime,
		AvailableAgainTime: returnTime,
	}
}
