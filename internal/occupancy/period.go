package occupancy

import (
	"time"

	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
)

// Period splits a day at noon.
type Period int

const (
	Morning Period = iota
	Afternoon
)

// Periods lists periods in display order.
var Periods = []Period{Morning, Afternoon}

func (p Period) String() string {
	if p == Morning {
		return "morning"
	}
	return "afternoon"
}

// Label is the display label used on the printed maps.
func (p Period) Label() string {
	if p == Morning {
		return "Manhã"
	}
	return "Tarde"
}

func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// PeriodOf buckets a time: strictly before 12:00:00 is morning, noon onward is afternoon.
func PeriodOf(c schedule.Clock) Period {
	if c.Hour < 12 {
		return Morning
	}
	return Afternoon
}

// WeekDays are the weekly map columns. Sunday has no column.
var WeekDays = []time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
	time.Saturday,
}

var weekdayLabels = map[time.Weekday]string{
	time.Sunday:    "Domingo",
	time.Monday:    "Segunda-feira",
	time.Tuesday:   "Terça-feira",
	time.Wednesday: "Quarta-feira",
	time.Thursday:  "Quinta-feira",
	time.Friday:    "Sexta-feira",
	time.Saturday:  "Sábado",
}

// WeekdayLabel returns the display name of a weekday.
func WeekdayLabel(d time.Weekday) string {
	return weekdayLabels[d]
}
