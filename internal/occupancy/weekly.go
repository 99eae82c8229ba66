package occupancy

import (
	"time"

	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
)

// Day is a weekly map column.
type Day struct {
	Weekday time.Weekday  `json:"weekday"`
	Label   string        `json:"label"`
	Date    schedule.Date `json:"date"`
}

// WeeklyRow holds one room's cells, aligned with WeeklyMatrix.Days.
type WeeklyRow struct {
	Room  string `json:"room"`
	Cells []Cell `json:"cells"`
}

// DayOccupancy is the share of matrix rooms in use for each day of one period.
type DayOccupancy struct {
	Period Period  `json:"period"`
	Label  string  `json:"label"`
	ByDay  []Ratio `json:"by_day"`
}

// WeeklyMatrix is the room × weekday grid.
type WeeklyMatrix struct {
	From      schedule.Date  `json:"from"`
	To        schedule.Date  `json:"to"`
	Days      []Day          `json:"days"`
	Rows      []WeeklyRow    `json:"rows"`
	Occupancy []DayOccupancy `json:"occupancy"`
	// RoomUsage is computed per day against the unit's physical rooms.
	RoomUsage []RoomStats `json:"room_usage"`
	Filtered  FilterStats `json:"filtered"`
	Records   int         `json:"records"`
}

// Empty reports whether no record reached the grid.
func (m WeeklyMatrix) Empty() bool {
	return m.Records == 0
}

type weeklyKey struct {
	room         string
	weekday      time.Weekday
	specialty    string
	professional string
}

// BuildWeekly groups records by (room, weekday, specialty, professional) over [from, to].
// Records outside the range or on Sunday are ignored. rooms is the unit's room table and
// only feeds RoomUsage.
func BuildWeekly(records []schedule.Record, from, to schedule.Date, rooms []schedule.Room, opts Options) WeeklyMatrix {
	c := opts.compile()
	eligible, filtered := c.eligible(records)

	m := WeeklyMatrix{From: from, To: to, Filtered: filtered}
	dayIndex := make(map[time.Weekday]int)
	dates := make(map[time.Weekday]schedule.Date)
	for d := from; !d.After(to); d = d.AddDays(1) {
		if _, ok := dates[d.Weekday()]; !ok {
			dates[d.Weekday()] = d
		}
	}
	for _, wd := range WeekDays {
		d, ok := dates[wd]
		if !ok {
			continue
		}
		dayIndex[wd] = len(m.Days)
		m.Days = append(m.Days, Day{Weekday: wd, Label: WeekdayLabel(wd), Date: d})
	}

	groups := make(map[weeklyKey]*accumulator)
	var order []weeklyKey
	roomSet := make(map[string]struct{})
	used := make(map[time.Weekday]map[Period]map[string]struct{})
	inRange := make([]schedule.Record, 0, len(eligible))

	for _, rec := range eligible {
		if !rec.Date.Within(from, to) {
			continue
		}
		wd := rec.Date.Weekday()
		if _, ok := dayIndex[wd]; !ok {
			continue
		}
		inRange = append(inRange, rec)
		k := weeklyKey{room: rec.RoomName, weekday: wd, specialty: rec.SpecialtyName, professional: rec.ProfessionalName}
		acc, ok := groups[k]
		if !ok {
			acc = newAccumulator(rec)
			groups[k] = acc
			order = append(order, k)
		}
		acc.add(rec, c.active)
		roomSet[rec.RoomName] = struct{}{}

		if used[wd] == nil {
			used[wd] = map[Period]map[string]struct{}{}
		}
		p := PeriodOf(rec.Time)
		if used[wd][p] == nil {
			used[wd][p] = map[string]struct{}{}
		}
		used[wd][p][rec.RoomName] = struct{}{}
	}
	m.Records = len(inRange)

	roomNames := make([]string, 0, len(roomSet))
	for r := range roomSet {
		roomNames = append(roomNames, r)
	}
	SortNatural(roomNames)
	rowIndex := make(map[string]int, len(roomNames))
	for i, r := range roomNames {
		rowIndex[r] = i
		m.Rows = append(m.Rows, WeeklyRow{Room: r, Cells: make([]Cell, len(m.Days))})
	}
	for _, k := range order {
		row := &m.Rows[rowIndex[k.room]]
		col := dayIndex[k.weekday]
		row.Cells[col].Items = append(row.Cells[col].Items, groups[k].item())
	}
	for i := range m.Rows {
		for j := range m.Rows[i].Cells {
			sortItems(m.Rows[i].Cells[j].Items)
		}
	}

	for _, p := range Periods {
		occ := DayOccupancy{Period: p, Label: p.Label(), ByDay: make([]Ratio, len(m.Days))}
		for i, day := range m.Days {
			occ.ByDay[i] = newRatio(len(used[day.Weekday][p]), len(m.Rows))
		}
		m.Occupancy = append(m.Occupancy, occ)
	}

	for _, day := range m.Days {
		var dayRecords []schedule.Record
		for _, rec := range inRange {
			if rec.Date.Weekday() == day.Weekday {
				dayRecords = append(dayRecords, rec)
			}
		}
		stats := c.roomUsage(rooms, dayRecords)
		stats.Date = day.Date
		m.RoomUsage = append(m.RoomUsage, stats)
	}
	return m
}
