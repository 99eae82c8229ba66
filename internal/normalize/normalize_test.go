package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want schedule.Date
		ok   bool
	}{
		{"05-03-2024", schedule.Date{Year: 2024, Month: time.March, Day: 5}, true},
		{"5/3/2024", schedule.Date{Year: 2024, Month: time.March, Day: 5}, true},
		{"2024-03-05", schedule.Date{Year: 2024, Month: time.March, Day: 5}, true},
		{"2024-03-05 09:30:00", schedule.Date{Year: 2024, Month: time.March, Day: 5}, true},
		{"2024-03-05T09:30:00-03:00", schedule.Date{Year: 2024, Month: time.March, Day: 5}, true},
		{"31-02-2024", schedule.Date{}, false},
		{"nan", schedule.Date{}, false},
		{"amanhã", schedule.Date{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"09:30:15", "09:30:15", true},
		{"9:30", "09:30:00", true},
		{"14h30", "14:30:00", true},
		{"14 H 05", "14:05:00", true},
		{"2024-03-05 16:45:00", "16:45:00", true},
		{"25:00", "", false},
		{"", "", false},
		{"manhã", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseClock(tt.in)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got.String())
			}
		})
	}
}

func TestCleanTextAndFold(t *testing.T) {
	assert.Equal(t, "Sala 1", CleanText("  Sala    1 "))
	assert.Equal(t, "", CleanText("NaN"))
	assert.Equal(t, "", CleanText(" None "))
	assert.Equal(t, Fold("SALA DE VACÍNA"), Fold(" sala  de vacina"))
	assert.Equal(t, "laboratorio", Fold("LABORATÓRIO"))
}

func TestNormalizeDropsRowsLackingDateAndID(t *testing.T) {
	rows := []schedule.RawAppointment{
		{AppointmentID: schedule.LooseInt(1), Date: schedule.LooseString("01-12-2025"), Time: schedule.LooseString("09:00")},
		{AppointmentID: schedule.LooseString("abc"), Date: schedule.LooseString("garbage")},
		{AppointmentID: schedule.LooseInt(3), Date: schedule.LooseString("???"), Time: schedule.LooseString("10h15")},
		{Date: schedule.LooseString("2025-12-01"), Time: schedule.LooseString("x")},
	}
	out, diag := Normalize(rows)

	require.Len(t, out, 3)
	assert.Equal(t, 4, diag.RowsBefore)
	assert.Equal(t, 3, diag.RowsAfter)
	assert.Equal(t, 1, diag.Dropped())
	assert.Equal(t, 2, diag.Missing[FieldDate])
	assert.Equal(t, 2, diag.Missing[FieldAppointmentID])
	assert.Equal(t, 2, diag.Missing[FieldTime])
	assert.Equal(t, "abc", diag.Samples[FieldAppointmentID][0].Value)

	assert.False(t, out[1].Date.Valid)
	assert.Equal(t, int64(3), out[1].AppointmentID.Value)
	assert.Equal(t, "10:15:00", out[1].Time.Value.String())
}

func TestNormalizeSampleCap(t *testing.T) {
	rows := make([]schedule.RawAppointment, 25)
	for i := range rows {
		rows[i] = schedule.RawAppointment{AppointmentID: schedule.LooseInt(int64(i + 1)), Date: schedule.LooseString("nope")}
	}
	_, diag := Normalize(rows)
	assert.Equal(t, 25, diag.Missing[FieldDate])
	assert.Len(t, diag.Samples[FieldDate], MaxSamples)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	rows := []schedule.RawAppointment{
		{
			AppointmentID:    schedule.LooseString("10.0"),
			Date:             schedule.LooseString("2025-12-01T09:00:00"),
			Time:             schedule.LooseString("2025-12-01 09:00:00"),
			ProfessionalID:   schedule.LooseString("5"),
			SpecialtyID:      schedule.Loose{},
			RoomID:           schedule.LooseInt(3),
			PatientID:        schedule.LooseString("4821.0"),
			ProfessionalName: schedule.LooseString("  Ana   Souza "),
			RoomName:         schedule.LooseString("nan"),
			UnitName:         schedule.LooseString("Centro   Médico"),
		},
		{AppointmentID: schedule.LooseInt(11), Time: schedule.LooseString("8h05")},
	}
	first, _ := Normalize(rows)
	second, diag := Normalize(rawRows(first))

	assert.Equal(t, first, second)
	assert.Equal(t, diag.RowsBefore, diag.RowsAfter)
	assert.Equal(t, "Ana Souza", second[0].ProfessionalName)
	assert.Equal(t, "", second[0].RoomName)
	assert.Equal(t, "Centro Médico", second[0].UnitName)
	assert.Equal(t, schedule.Some(int64(4821)), second[0].PatientID)
	assert.False(t, second[1].PatientID.Valid)
}

func TestNormalizeCountsUnparseablePatient(t *testing.T) {
	rows := []schedule.RawAppointment{
		{AppointmentID: schedule.LooseInt(1), Date: schedule.LooseString("01-12-2025"), PatientID: schedule.LooseInt(77)},
		{AppointmentID: schedule.LooseInt(2), Date: schedule.LooseString("01-12-2025"), PatientID: schedule.LooseString("anônimo")},
		{AppointmentID: schedule.LooseInt(3), Date: schedule.LooseString("01-12-2025")},
	}
	out, diag := Normalize(rows)

	require.Len(t, out, 3)
	assert.Equal(t, int64(77), out[0].PatientID.Value)
	assert.False(t, out[1].PatientID.Valid)
	assert.Equal(t, 2, diag.Missing[FieldPatient])
	assert.Equal(t, "anônimo", diag.Samples[FieldPatient][0].Value)
}

func rawRows(rows []Row) []schedule.RawAppointment {
	out := make([]schedule.RawAppointment, len(rows))
	for i, r := range rows {
		out[i] = r.Raw()
	}
	return out
}
