// Package normalize cleans raw appointment rows coming from the scheduling API.
// It never fails: unparseable values become missing fields and are reported in
// Diagnostics.
package normalize

import (
	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
)

// MaxSamples bounds the number of example rows kept per missing-field category.
const MaxSamples = 10

// Missing-field categories reported in Diagnostics.
const (
	FieldDate          = "date"
	FieldTime          = "time"
	FieldAppointmentID = "appointment_id"
	FieldProfessional  = "professional_id"
	FieldSpecialty     = "specialty_id"
	FieldRoom          = "room_id"
	FieldStatus        = "status_id"
	FieldPatient       = "patient_id"
)

// Row is a cleaned appointment row. Identifier and temporal columns are typed and
// optional; text columns are cleaned with CleanText.
type Row struct {
	AppointmentID  schedule.Opt[int64]
	Date           schedule.Opt[schedule.Date]
	Time           schedule.Opt[schedule.Clock]
	ProfessionalID schedule.Opt[int64]
	SpecialtyID    schedule.Opt[int64]
	RoomID         schedule.Opt[int64]
	UnitID         schedule.Opt[int64]
	StatusID       schedule.Opt[int64]
	PatientID      schedule.Opt[int64]

	ProfessionalName string
	UnitName         string
	SpecialtyName    string
	RoomName         string
}

// Raw renders the row back into the upstream shape using canonical formats.
func (r Row) Raw() schedule.RawAppointment {
	out := schedule.RawAppointment{
		AppointmentID:    looseInt(r.AppointmentID),
		ProfessionalID:   looseInt(r.ProfessionalID),
		SpecialtyID:      looseInt(r.SpecialtyID),
		RoomID:           looseInt(r.RoomID),
		UnitID:           looseInt(r.UnitID),
		StatusID:         looseInt(r.StatusID),
		PatientID:        looseInt(r.PatientID),
		ProfessionalName: schedule.LooseString(r.ProfessionalName),
		UnitName:         schedule.LooseString(r.UnitName),
		SpecialtyName:    schedule.LooseString(r.SpecialtyName),
		RoomName:         schedule.LooseString(r.RoomName),
	}
	if r.Date.Valid {
		out.Date = schedule.LooseString(r.Date.Value.BR())
	}
	if r.Time.Valid {
		out.Time = schedule.LooseString(r.Time.Value.String())
	}
	return out
}

func looseInt(v schedule.Opt[int64]) schedule.Loose {
	if !v.Valid {
		return schedule.Loose{}
	}
	return schedule.LooseInt(v.Value)
}

// Sample points at a row that failed to parse a field.
type Sample struct {
	Index int    `json:"index"`
	Value string `json:"value"`
}

// Diagnostics summarizes what the normalizer had to discard or leave empty.
type Diagnostics struct {
	RowsBefore int                 `json:"rows_before"`
	RowsAfter  int                 `json:"rows_after"`
	Missing    map[string]int      `json:"missing"`
	Samples    map[string][]Sample `json:"samples"`
}

// Dropped is the number of rows removed for lacking both date and appointment id.
func (d Diagnostics) Dropped() int {
	return d.RowsBefore - d.RowsAfter
}

func (d *Diagnostics) record(field string, index int, value string) {
	d.Missing[field]++
	if len(d.Samples[field]) < MaxSamples {
		d.Samples[field] = append(d.Samples[field], Sample{Index: index, Value: value})
	}
}

// Normalize cleans raw rows. Rows without both a parseable date and an appointment id
// are dropped; every other missing field is kept and counted.
func Normalize(rows []schedule.RawAppointment) ([]Row, Diagnostics) {
	diag := Diagnostics{
		RowsBefore: len(rows),
		Missing:    map[string]int{},
		Samples:    map[string][]Sample{},
	}
	out := make([]Row, 0, len(rows))
	for i, raw := range rows {
		row := Row{
			ProfessionalName: CleanText(raw.ProfessionalName.String()),
			UnitName:         CleanText(raw.UnitName.String()),
			SpecialtyName:    CleanText(raw.SpecialtyName.String()),
			RoomName:         CleanText(raw.RoomName.String()),
		}

		row.AppointmentID = parseID(&diag, FieldAppointmentID, i, raw.AppointmentID)
		row.ProfessionalID = parseID(&diag, FieldProfessional, i, raw.ProfessionalID)
		row.SpecialtyID = parseID(&diag, FieldSpecialty, i, raw.SpecialtyID)
		row.RoomID = parseID(&diag, FieldRoom, i, raw.RoomID)
		row.StatusID = parseID(&diag, FieldStatus, i, raw.StatusID)
		row.PatientID = parseID(&diag, FieldPatient, i, raw.PatientID)
		if id, ok := raw.UnitID.Int(); ok {
			row.UnitID = schedule.Some(id)
		}

		if d, ok := ParseDate(raw.Date.String()); ok {
			row.Date = schedule.Some(d)
		} else {
			diag.record(FieldDate, i, raw.Date.String())
		}
		if c, ok := ParseClock(raw.Time.String()); ok {
			row.Time = schedule.Some(c)
		} else {
			diag.record(FieldTime, i, raw.Time.String())
		}

		if !row.Date.Valid && !row.AppointmentID.Valid {
			continue
		}
		out = append(out, row)
	}
	diag.RowsAfter = len(out)
	return out, diag
}

func parseID(diag *Diagnostics, field string, index int, v schedule.Loose) schedule.Opt[int64] {
	id, ok := v.Int()
	if !ok {
		diag.record(field, index, v.String())
		return schedule.Opt[int64]{}
	}
	return schedule.Some(id)
}
