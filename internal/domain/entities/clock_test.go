package entities_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/viewingscheduler/internal/domain/entities"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "14:00", want: "14:00:00"},
		{input: "09:30:15", want: "09:30:15"},
		{input: " 8:05 ", want: "08:05:00"},
		{input: "25:00", wantErr: true},
		{input: "noon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := entities.ParseTimeOfDay(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestTimeOfDay_AddMinutesWrapsLikeAWallClock(t *testing.T) {
	assert.Equal(t, "13:40:00", entities.NewTimeOfDay(14, 0, 0).AddMinutes(-20).String())
	assert.Equal(t, "00:10:00", entities.NewTimeOfDay(23, 50, 0).AddMinutes(20).String())
	assert.Equal(t, "23:50:00", entities.NewTimeOfDay(0, 10, 0).AddMinutes(-20).String())
}

func TestTimeOfDay_ScanPostgresFormats(t *testing.T) {
	var tod entities.TimeOfDay

	require.NoError(t, tod.Scan([]byte("13:40:00")))
	assert.Equal(t, "13:40:00", tod.String())

	require.NoError(t, tod.Scan("07:05:09.000000"))
	assert.Equal(t, "07:05:09", tod.String())

	require.NoError(t, tod.Scan(time.Date(0, 1, 1, 16, 20, 0, 0, time.UTC)))
	assert.Equal(t, "16:20:00", tod.String())

	assert.Error(t, tod.Scan(42))
}

func TestDate_JSONRoundTripAndHelpers(t *testing.T) {
	var d entities.Date
	require.NoError(t, json.Unmarshal([]byte(`"2026-03-02"`), &d))
	assert.Equal(t, "2026-03-02", d.String())
	assert.Equal(t, time.Monday, d.Weekday())

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `"2026-03-02"`, string(out))

	assert.True(t, d.Before(d.AddDate(0, 0, 1)))
	assert.True(t, d.AddDate(1, 0, 0).After(d))
	assert.Equal(t,
		time.Date(2026, 3, 2, 13, 40, 0, 0, time.UTC),
		d.At(entities.NewTimeOfDay(13, 40, 0), time.UTC),
	)

	assert.Error(t, json.Unmarshal([]byte(`"02/03/2026"`), &d))
}

func TestBusyInterval_HalfOpenOverlap(t *testing.T) {
	day := entities.NewDate(2026, 3, 2)
	at := func(h, m int) time.Time { return day.At(entities.NewTimeOfDay(h, m, 0), time.UTC) }

	existing := entities.BusyInterval{Start: at(14, 0), End: at(15, 0)}

	assert.False(t, entities.BusyInterval{Start: at(13, 0), End: at(14, 0)}.Overlaps(existing))
	assert.True(t, entities.BusyInterval{Start: at(13, 0), End: at(14, 30)}.Overlaps(existing))
	assert.True(t, entities.BusyInterval{Start: at(14, 15), End: at(14, 45)}.Overlaps(existing))
	assert.False(t, entities.BusyInterval{Start: at(15, 0), End: at(16, 0)}.Overlaps(existing))
}

func TestNewBusyInterval_EndPastMidnightRollsOver(t *testing.T) {
	day := entities.NewDate(2026, 3, 2)

	interval := entities.NewBusyInterval(day, entities.NewTimeOfDay(23, 30, 0), entities.NewTimeOfDay(0, 50, 0), time.UTC)

	assert.Equal(t, time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC), interval.Start)
	assert.Equal(t, time.Date(2026, 3, 3, 0, 50, 0, 0, time.UTC), interval.End)
}

func TestAppointment_BusyIntervalRequiresSchedule(t *testing.T) {
	appt := &entities.Appointment{AppointmentDate: entities.NewDate(2026, 3, 2)}

	_, ok := appt.BusyInterval(time.UTC)
	assert.False(t, ok)

	appt.ApplySchedule(entities.ScheduleTimes{
		DepartureTime:      entities.NewTimeOfDay(13, 40, 0),
		ReturnTime:         entities.NewTimeOfDay(15, 20, 0),
		AvailableAgainTime: entities.NewTimeOfDay(15, 20, 0),
	})
	interval, ok := appt.BusyInterval(time.UTC)
	require.True(t, ok)
	assert.Equal(t, 100*time.Minute, interval.End.Sub(interval.Start))
}
