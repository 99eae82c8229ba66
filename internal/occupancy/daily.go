package occupancy

import (
	"sort"

	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
)

// DailyRow is one (room, professional, specialty, period) group.
type DailyRow struct {
	Room   string `json:"room"`
	Period Period `json:"period"`
	Item
}

// PeriodTotal aggregates occupied slots against grid size for one period.
type PeriodTotal struct {
	Period   Period `json:"period"`
	Label    string `json:"label"`
	Occupied int    `json:"occupied"`
	GridSize int    `json:"grid_size"`
	Percent  int    `json:"percent"`
}

// DailyMatrix is the room × professional × specialty × period grid for one date.
type DailyMatrix struct {
	Date      schedule.Date `json:"date"`
	Rows      []DailyRow    `json:"rows"`
	Totals    []PeriodTotal `json:"totals"`
	Overall   PeriodTotal   `json:"overall"`
	RoomUsage RoomStats     `json:"room_usage"`
	Filtered  FilterStats   `json:"filtered"`
	Records   int           `json:"records"`
}

func (m DailyMatrix) Empty() bool {
	return m.Records == 0
}

type dailyKey struct {
	room         string
	professional string
	specialty    string
	period       Period
}

// BuildDaily groups the records of one date. Records dated otherwise are ignored.
func BuildDaily(records []schedule.Record, date schedule.Date, rooms []schedule.Room, opts Options) DailyMatrix {
	c := opts.compile()
	eligible, filtered := c.eligible(records)

	m := DailyMatrix{Date: date, Filtered: filtered}
	groups := make(map[dailyKey]*accumulator)
	var onDay []schedule.Record
	for _, rec := range eligible {
		if rec.Date != date {
			continue
		}
		onDay = append(onDay, rec)
		k := dailyKey{room: rec.RoomName, professional: rec.ProfessionalName, specialty: rec.SpecialtyName, period: PeriodOf(rec.Time)}
		acc, ok := groups[k]
		if !ok {
			acc = newAccumulator(rec)
			groups[k] = acc
		}
		acc.add(rec, c.active)
	}
	m.Records = len(onDay)

	totals := make(map[Period]*PeriodTotal, len(Periods))
	for _, p := range Periods {
		totals[p] = &PeriodTotal{Period: p, Label: p.Label()}
	}
	for k, acc := range groups {
		row := DailyRow{Room: k.room, Period: k.period, Item: acc.item()}
		m.Rows = append(m.Rows, row)
		totals[k.period].Occupied += row.Occupied
		totals[k.period].GridSize += row.GridSize
	}
	sort.SliceStable(m.Rows, func(i, j int) bool {
		a, b := m.Rows[i], m.Rows[j]
		if a.Room != b.Room {
			return NaturalLess(a.Room, b.Room)
		}
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		if a.Start != b.Start {
			return a.Start.Before(b.Start)
		}
		if a.Professional != b.Professional {
			return NaturalLess(a.Professional, b.Professional)
		}
		return NaturalLess(a.Specialty, b.Specialty)
	})

	m.Overall = PeriodTotal{Label: "Total"}
	for _, p := range Periods {
		t := totals[p]
		t.Percent = Percent(t.Occupied, t.GridSize)
		m.Totals = append(m.Totals, *t)
		m.Overall.Occupied += t.Occupied
		m.Overall.GridSize += t.GridSize
	}
	m.Overall.Percent = Percent(m.Overall.Occupied, m.Overall.GridSize)

	m.RoomUsage = c.roomUsage(rooms, onDay)
	m.RoomUsage.Date = date
	return m
}
