package occupancy

import (
	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
)

// PeriodUsage is the number of physical rooms holding at least one professional.
type PeriodUsage struct {
	Period    Period `json:"period"`
	Label     string `json:"label"`
	UsedRooms int    `json:"used_rooms"`
	Percent   int    `json:"percent"`
}

// RoomStats compares rooms in use with the unit's physical rooms.
type RoomStats struct {
	Date       schedule.Date `json:"date"`
	TotalRooms int           `json:"total_rooms"`
	ByPeriod   []PeriodUsage `json:"by_period"`
}

// RoomUsage counts, per period, the rooms holding at least one eligible record against
// the physical rooms of the unit. Excluded and administrative rooms are not counted.
// When records reference rooms missing from the room table the total is raised so the
// percentage never exceeds 100.
func RoomUsage(rooms []schedule.Room, records []schedule.Record, opts Options) RoomStats {
	c := opts.compile()
	eligible, _ := c.eligible(records)
	return c.roomUsage(rooms, eligible)
}

func (c compiled) roomUsage(rooms []schedule.Room, records []schedule.Record) RoomStats {
	physical := make(map[string]struct{}, len(rooms))
	for _, r := range rooms {
		if c.excludedRoom(r.Name) || c.adminRoom(r.Name) {
			continue
		}
		physical[r.Name] = struct{}{}
	}

	used := make(map[Period]map[string]struct{}, len(Periods))
	for _, rec := range records {
		if c.adminRoom(rec.RoomName) {
			continue
		}
		p := PeriodOf(rec.Time)
		if used[p] == nil {
			used[p] = make(map[string]struct{})
		}
		used[p][rec.RoomName] = struct{}{}
	}

	total := len(physical)
	for _, rs := range used {
		if len(rs) > total {
			total = len(rs)
		}
	}

	stats := RoomStats{TotalRooms: total}
	for _, p := range Periods {
		n := len(used[p])
		stats.ByPeriod = append(stats.ByPeriod, PeriodUsage{
			Period:    p,
			Label:     p.Label(),
			UsedRooms: n,
			Percent:   Percent(n, total),
		})
	}
	return stats
}
