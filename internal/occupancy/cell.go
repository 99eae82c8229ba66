package occupancy

import (
	"sort"

	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
)

// Item is one occupant of a cell: a professional working a specialty in a room over a
// time range.
type Item struct {
	Specialty    string         `json:"specialty"`
	Professional string         `json:"professional"`
	Start        schedule.Clock `json:"start"`
	End          schedule.Clock `json:"end"`
	Occupied     int            `json:"occupied"`
	GridSize     int            `json:"grid_size"`
	Percent      int            `json:"percent"`
}

// TimeRange renders "HH:MM-HH:MM".
func (i Item) TimeRange() string {
	return i.Start.HHMM() + "-" + i.End.HHMM()
}

// Cell is the ordered list of items occupying one grid position.
type Cell struct {
	Items []Item `json:"items"`
}

func (c Cell) Empty() bool {
	return len(c.Items) == 0
}

// Ratio is a used/total pair with its rounded percentage.
type Ratio struct {
	Used    int `json:"used"`
	Total   int `json:"total"`
	Percent int `json:"percent"`
}

func newRatio(used, total int) Ratio {
	return Ratio{Used: used, Total: total, Percent: Percent(used, total)}
}

// accumulator tracks one group's time range and slot counts.
type accumulator struct {
	specialty    string
	professional string
	start, end   schedule.Clock
	slots        map[int]struct{}
	active       int
}

func newAccumulator(rec schedule.Record) *accumulator {
	return &accumulator{
		specialty:    rec.SpecialtyName,
		professional: rec.ProfessionalName,
		start:        rec.Time,
		end:          rec.Time,
		slots:        make(map[int]struct{}),
	}
}

func (a *accumulator) add(rec schedule.Record, active schedule.StatusSet) {
	if rec.Time.Before(a.start) {
		a.start = rec.Time
	}
	if a.end.Before(rec.Time) {
		a.end = rec.Time
	}
	a.slots[rec.Time.Seconds()] = struct{}{}
	if !rec.IsFree() && active.Contains(rec.Status) {
		a.active++
	}
}

// counts returns the occupied count and grid size, raising the grid to the occupied
// count when double bookings exceed the distinct slot times.
func (a *accumulator) counts() (occupied, grid int) {
	occupied, grid = a.active, len(a.slots)
	if occupied > grid {
		grid = occupied
	}
	return occupied, grid
}

func (a *accumulator) item() Item {
	occupied, grid := a.counts()
	return Item{
		Specialty:    a.specialty,
		Professional: a.professional,
		Start:        a.start,
		End:          a.end,
		Occupied:     occupied,
		GridSize:     grid,
		Percent:      Percent(occupied, grid),
	}
}

func sortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Start != b.Start {
			return a.Start.Before(b.Start)
		}
		if a.Specialty != b.Specialty {
			return NaturalLess(a.Specialty, b.Specialty)
		}
		return NaturalLess(a.Professional, b.Professional)
	})
}
