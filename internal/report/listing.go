package report

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/clinic-occupancy-maps/internal/feegow"
	"github.com/wolfman30/clinic-occupancy-maps/internal/normalize"
	"github.com/wolfman30/clinic-occupancy-maps/internal/occupancy"
	"github.com/wolfman30/clinic-occupancy-maps/internal/resolve"
	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
)

// AppointmentFilter narrows the appointment listing. Zero ids and an empty status list
// match everything.
type AppointmentFilter struct {
	UnitID         int64
	From           schedule.Date
	To             schedule.Date
	ProfessionalID int64
	SpecialtyID    int64
	RoomID         int64
	Statuses       []schedule.Status
}

// Appointment is one resolved row of the listing.
type Appointment struct {
	AppointmentID  int64           `json:"agendamento_id"`
	Status         schedule.Status `json:"status_id"`
	StatusLabel    string          `json:"status"`
	Date           schedule.Date   `json:"data"`
	Time           schedule.Clock  `json:"horario"`
	ProfessionalID int64           `json:"profissional_id"`
	Professional   string          `json:"nome_profissional"`
	SpecialtyID    int64           `json:"especialidade_id"`
	Specialty      string          `json:"especialidade"`
	PatientID      int64           `json:"paciente_id,omitempty"`
	UnitID         int64           `json:"unidade_id"`
	Unit           string          `json:"unidade"`
	RoomID         int64           `json:"local_id"`
	Room           string          `json:"sala"`
}

// AppointmentList is the filtered listing with the cleaning counters of the run.
type AppointmentList struct {
	From         schedule.Date         `json:"from"`
	To           schedule.Date         `json:"to"`
	Appointments []Appointment         `json:"appointments"`
	Normalize    normalize.Diagnostics `json:"normalize"`
	Resolve      resolve.Stats         `json:"resolve"`
}

// Appointments lists booked appointments in [From, To] with resolved names and status
// labels, ordered by date, time and room.
func (s *Service) Appointments(ctx context.Context, f AppointmentFilter) (list *AppointmentList, err error) {
	if f.From.IsZero() || f.To.IsZero() {
		return nil, fmt.Errorf("report: appointment listing needs a date range")
	}
	if f.To.Before(f.From) {
		return nil, fmt.Errorf("report: listing ends (%s) before it starts (%s)", f.To.BR(), f.From.BR())
	}

	ctx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()
	ctx, span := tracer.Start(ctx, "report.appointments")
	span.SetAttributes(
		attribute.Int64("unit.id", f.UnitID),
		attribute.String("report.from", f.From.ISO()),
		attribute.String("report.to", f.To.ISO()),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	snap, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("report: load reference tables: %w", err)
	}
	raw, err := s.appointments.FetchAppointments(ctx, feegow.AppointmentQuery{
		UnitID: f.UnitID,
		From:   f.From,
		To:     f.To,
	})
	if err != nil {
		return nil, fmt.Errorf("report: fetch appointments: %w", err)
	}

	rows, diag := normalize.Normalize(raw)
	s.observe("normalize_incomplete", diag.Dropped())
	sortRows(rows)

	ref := resolve.NewReference(snap.Professionals, snap.Specialties, snap.Rooms, snap.Units)
	records, stats := resolve.New(ref, rows, s.logger).Appointments(rows)
	s.observeResolve(stats)

	var statuses schedule.StatusSet
	if len(f.Statuses) > 0 {
		statuses = schedule.NewStatusSet(f.Statuses...)
	}

	out := make([]Appointment, 0, len(records))
	for _, rec := range records {
		if !rec.Date.Within(f.From, f.To) || !f.matches(rec, statuses) {
			continue
		}
		out = append(out, Appointment{
			AppointmentID:  rec.AppointmentID,
			Status:         rec.Status,
			StatusLabel:    rec.Status.Label(),
			Date:           rec.Date,
			Time:           rec.Time,
			ProfessionalID: rec.ProfessionalID,
			Professional:   rec.ProfessionalName,
			SpecialtyID:    rec.SpecialtyID,
			Specialty:      rec.SpecialtyName,
			PatientID:      rec.PatientID,
			UnitID:         rec.UnitID,
			Unit:           rec.UnitName,
			RoomID:         rec.RoomID,
			Room:           rec.RoomName,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		if a.Time != b.Time {
			return a.Time.Before(b.Time)
		}
		return occupancy.NaturalLess(a.Room, b.Room)
	})

	span.SetAttributes(attribute.Int("report.appointments", len(out)))
	return &AppointmentList{
		From:         f.From,
		To:           f.To,
		Appointments: out,
		Normalize:    diag,
		Resolve:      stats,
	}, nil
}

func (f AppointmentFilter) matches(rec schedule.Record, statuses schedule.StatusSet) bool {
	switch {
	case f.UnitID != 0 && rec.UnitID != 0 && rec.UnitID != f.UnitID:
		return false
	case f.ProfessionalID != 0 && rec.ProfessionalID != f.ProfessionalID:
		return false
	case f.SpecialtyID != 0 && rec.SpecialtyID != f.SpecialtyID:
		return false
	case f.RoomID != 0 && rec.RoomID != f.RoomID:
		return false
	case statuses.Len() > 0 && !statuses.Contains(rec.Status):
		return false
	}
	return true
}
