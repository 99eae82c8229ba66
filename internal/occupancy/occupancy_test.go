package occupancy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
)

// Monday.
var dec1 = schedule.Date{Year: 2025, Month: time.December, Day: 1}

func appt(room, prof, spec string, d schedule.Date, hour, minute int, status schedule.Status) schedule.Record {
	return schedule.Record{
		Date:             d,
		Time:             schedule.Clock{Hour: hour, Minute: minute},
		Status:           status,
		RoomName:         room,
		ProfessionalName: prof,
		SpecialtyName:    spec,
	}
}

func free(room, prof, spec string, d schedule.Date, hour, minute int) schedule.Record {
	return appt(room, prof, spec, d, hour, minute, schedule.StatusFree)
}

func TestNaturalSort(t *testing.T) {
	rooms := []string{"Room 2", "Room 10", "Room 1"}
	SortNatural(rooms)
	assert.Equal(t, []string{"Room 1", "Room 2", "Room 10"}, rooms)

	mixed := []string{"sala 10b", "Sala 9", "CONSULTÓRIO 1", "Sala 010a", "sala"}
	SortNatural(mixed)
	assert.Equal(t, []string{"CONSULTÓRIO 1", "sala", "Sala 9", "Sala 010a", "sala 10b"}, mixed)
}

func TestPeriodOfNoonIsAfternoon(t *testing.T) {
	assert.Equal(t, Morning, PeriodOf(schedule.Clock{Hour: 11, Minute: 59, Second: 59}))
	assert.Equal(t, Afternoon, PeriodOf(schedule.Clock{Hour: 12}))
	assert.Equal(t, "Manhã", Morning.Label())
}

func TestBuildDailyExcludesInactiveStatuses(t *testing.T) {
	records := []schedule.Record{
		appt("Sala 1", "A", "X", dec1, 9, 0, schedule.StatusConfirmed),
		appt("Sala 1", "A", "X", dec1, 9, 0, schedule.StatusNoShow),
	}
	m := BuildDaily(records, dec1, nil, DefaultOptions())

	require.Len(t, m.Rows, 1)
	row := m.Rows[0]
	assert.Equal(t, "Sala 1", row.Room)
	assert.Equal(t, Morning, row.Period)
	assert.Equal(t, "A", row.Professional)
	assert.Equal(t, "09:00-09:00", row.TimeRange())
	assert.Equal(t, 1, row.Occupied)
	assert.Equal(t, 1, row.GridSize)
	assert.Equal(t, 100, row.Percent)
	assert.Equal(t, 1, m.Filtered.InactiveStatus)
	assert.Equal(t, 1, m.Records)
}

func TestBuildDailyCountsFreeSlotsInGrid(t *testing.T) {
	records := []schedule.Record{
		appt("Sala 1", "A", "X", dec1, 9, 0, schedule.StatusConfirmed),
		free("Sala 1", "A", "X", dec1, 9, 30),
		free("Sala 1", "A", "X", dec1, 10, 0),
		free("Sala 1", "A", "X", dec1, 10, 30),
		free("Sala 1", "A", "X", dec1, 14, 0),
	}
	m := BuildDaily(records, dec1, nil, DefaultOptions())

	require.Len(t, m.Rows, 2)
	morning := m.Rows[0]
	assert.Equal(t, 1, morning.Occupied)
	assert.Equal(t, 4, morning.GridSize)
	assert.Equal(t, 25, morning.Percent)
	assert.Equal(t, "09:00-10:30", morning.TimeRange())
	assert.Equal(t, Afternoon, m.Rows[1].Period)

	assert.Equal(t, 1, m.Totals[0].Occupied)
	assert.Equal(t, 4, m.Totals[0].GridSize)
	assert.Equal(t, 0, m.Totals[1].Occupied)
	assert.Equal(t, 5, m.Overall.GridSize)
	assert.Equal(t, 20, m.Overall.Percent)
}

func TestBuildDailyNeverExceedsFullOccupancy(t *testing.T) {
	records := []schedule.Record{
		appt("Sala 1", "A", "X", dec1, 9, 0, schedule.StatusConfirmed),
		appt("Sala 1", "A", "X", dec1, 9, 0, schedule.StatusAttended),
		appt("Sala 1", "A", "X", dec1, 9, 0, schedule.StatusWaiting),
		free("Sala 1", "A", "X", dec1, 9, 30),
	}
	m := BuildDaily(records, dec1, nil, DefaultOptions())
	require.Len(t, m.Rows, 1)
	assert.Equal(t, 3, m.Rows[0].Occupied)
	assert.Equal(t, 3, m.Rows[0].GridSize)
	assert.LessOrEqual(t, m.Rows[0].Percent, 100)
}

func TestBuildDailyDropsExcludedRoomsAndSortsNaturally(t *testing.T) {
	records := []schedule.Record{
		appt("Sala 10", "B", "Y", dec1, 8, 0, schedule.StatusConfirmed),
		appt("Laboratório", "C", "Z", dec1, 8, 0, schedule.StatusConfirmed),
		appt("Sala 2", "A", "X", dec1, 8, 0, schedule.StatusConfirmed),
	}
	m := BuildDaily(records, dec1, nil, DefaultOptions())
	require.Len(t, m.Rows, 2)
	assert.Equal(t, "Sala 2", m.Rows[0].Room)
	assert.Equal(t, "Sala 10", m.Rows[1].Room)
	assert.Equal(t, 1, m.Filtered.ExcludedRoom)
}

func TestBuildWeeklyGroupsByRoomAndWeekday(t *testing.T) {
	tue := dec1.AddDays(1)
	sun := dec1.AddDays(6)
	records := []schedule.Record{
		appt("Sala 1", "A", "X", dec1, 8, 0, schedule.StatusConfirmed),
		free("Sala 1", "A", "X", dec1, 11, 30),
		appt("Sala 1", "B", "Y", dec1, 14, 0, schedule.StatusConfirmed),
		appt("Sala 2", "A", "X", tue, 9, 0, schedule.StatusAttended),
		appt("Sala 2", "A", "X", sun, 9, 0, schedule.StatusAttended),
		appt("Sala 2", "A", "X", tue, 10, 0, schedule.StatusCanceledByPatient),
	}
	m := BuildWeekly(records, dec1, dec1.AddDays(6), nil, DefaultOptions())

	require.Len(t, m.Days, 6, "sunday has no column")
	assert.Equal(t, "Segunda-feira", m.Days[0].Label)
	assert.Equal(t, dec1, m.Days[0].Date)
	require.Len(t, m.Rows, 2)
	assert.Equal(t, "Sala 1", m.Rows[0].Room)

	monday := m.Rows[0].Cells[0]
	require.Len(t, monday.Items, 2)
	assert.Equal(t, "A", monday.Items[0].Professional)
	assert.Equal(t, "08:00-11:30", monday.Items[0].TimeRange())
	assert.Equal(t, "B", monday.Items[1].Professional)
	assert.True(t, m.Rows[0].Cells[1].Empty())

	tuesday := m.Rows[1].Cells[1]
	require.Len(t, tuesday.Items, 1)
	assert.Equal(t, "09:00-09:00", tuesday.Items[0].TimeRange())

	assert.Equal(t, 4, m.Records)
	assert.Equal(t, 1, m.Filtered.InactiveStatus)

	morning := m.Occupancy[0]
	assert.Equal(t, Ratio{Used: 1, Total: 2, Percent: 50}, morning.ByDay[0])
	assert.Equal(t, Ratio{Used: 1, Total: 2, Percent: 50}, morning.ByDay[1])
	assert.Equal(t, Ratio{Used: 0, Total: 2, Percent: 0}, morning.ByDay[2])
}

func TestRoomUsageExcludesAdministrativeRooms(t *testing.T) {
	rooms := []schedule.Room{
		{ID: 1, Name: "Sala 1"},
		{ID: 2, Name: "Sala 2"},
		{ID: 3, Name: "Sala 3"},
		{ID: 4, Name: "Sala 4"},
		{ID: 5, Name: "Recepção Principal"},
		{ID: 6, Name: "Sala de Vacina"},
	}
	records := []schedule.Record{
		appt("Sala 1", "A", "X", dec1, 8, 0, schedule.StatusConfirmed),
		free("Sala 2", "B", "Y", dec1, 9, 0),
		appt("Sala 1", "A", "X", dec1, 15, 0, schedule.StatusConfirmed),
		appt("Sala 3", "C", "Z", dec1, 15, 0, schedule.StatusRescheduled),
	}
	stats := RoomUsage(rooms, records, DefaultOptions())

	assert.Equal(t, 4, stats.TotalRooms)
	assert.Equal(t, 2, stats.ByPeriod[0].UsedRooms)
	assert.Equal(t, 50, stats.ByPeriod[0].Percent)
	assert.Equal(t, 1, stats.ByPeriod[1].UsedRooms)
	assert.Equal(t, 25, stats.ByPeriod[1].Percent)
}

func TestRoomUsageRaisesTotalForUnknownRooms(t *testing.T) {
	records := []schedule.Record{
		appt("Sala 1", "A", "X", dec1, 8, 0, schedule.StatusConfirmed),
		appt("Sala 2", "B", "X", dec1, 8, 0, schedule.StatusConfirmed),
	}
	stats := RoomUsage([]schedule.Room{{ID: 1, Name: "Sala 1"}}, records, DefaultOptions())
	assert.Equal(t, 2, stats.TotalRooms)
	assert.Equal(t, 100, stats.ByPeriod[0].Percent)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0, Percent(3, 0))
	assert.Equal(t, 33, Percent(1, 3))
	assert.Equal(t, 67, Percent(2, 3))
}
