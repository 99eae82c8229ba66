package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/clinic-occupancy-maps/internal/normalize"
	"github.com/wolfman30/clinic-occupancy-maps/internal/occupancy"
	"github.com/wolfman30/clinic-occupancy-maps/internal/resolve"
	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
)

// Type is the map layout.
type Type string

const (
	TypeWeekly Type = "weekly"
	TypeDaily  Type = "daily"
)

// Metadata describes a generated map.
type Metadata struct {
	Type        Type            `json:"type"`
	UnitID      int64           `json:"unit_id"`
	UnitName    string          `json:"unit_name"`
	From        schedule.Date   `json:"from"`
	To          schedule.Date   `json:"to"`
	GeneratedAt time.Time       `json:"generated_at"`
	Simulated   bool            `json:"simulated"`
	MirrorDates []schedule.Date `json:"mirror_dates,omitempty"`
	GapDates    []schedule.Date `json:"gap_dates,omitempty"`
	Footnote    string          `json:"footnote,omitempty"`
}

// Diagnostics collects the per-stage counters of one run.
type Diagnostics struct {
	Normalize           normalize.Diagnostics `json:"normalize"`
	Appointments        resolve.Stats         `json:"appointments"`
	Slots               resolve.Stats         `json:"slots"`
	OtherUnit           int                   `json:"other_unit"`
	BlockedAppointments int                   `json:"blocked_appointments"`
	BlockedSlots        int                   `json:"blocked_slots"`
	ShadowedSlots       int                   `json:"shadowed_slots"`
	FailedTargets       int                   `json:"failed_targets"`
	Filtered            occupancy.FilterStats `json:"filtered"`
}

// Document is what the renderer receives. Exactly one of Weekly and Daily is set.
type Document struct {
	Metadata    Metadata                `json:"metadata"`
	Weekly      *occupancy.WeeklyMatrix `json:"weekly,omitempty"`
	Daily       *occupancy.DailyMatrix  `json:"daily,omitempty"`
	Diagnostics Diagnostics             `json:"diagnostics"`
	// Warning explains an empty map.
	Warning  string   `json:"warning,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Empty reports whether no record reached the grid.
func (d *Document) Empty() bool {
	switch {
	case d.Weekly != nil:
		return d.Weekly.Empty()
	case d.Daily != nil:
		return d.Daily.Empty()
	}
	return true
}

func (d *Document) addWarning(msg string) {
	d.Warnings = append(d.Warnings, msg)
}

func footnote(m Metadata) string {
	var parts []string
	if m.Simulated {
		parts = append(parts, fmt.Sprintf(
			"Horários livres de %s reconstruídos a partir da mesma agenda uma ou duas semanas à frente.",
			joinDates(m.MirrorDates)))
	}
	if len(m.GapDates) > 0 {
		parts = append(parts, fmt.Sprintf("Sem dados de disponibilidade para %s.", joinDates(m.GapDates)))
	}
	return strings.Join(parts, " ")
}

func joinDates(dates []schedule.Date) string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.BR()
	}
	return strings.Join(out, ", ")
}
