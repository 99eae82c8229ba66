package occupancy

import (
	"math"
	"strings"

	"github.com/wolfman30/clinic-occupancy-maps/internal/normalize"
	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
)

// DefaultExcludedRooms are non-clinical rooms left out of every map.
var DefaultExcludedRooms = []string{
	"LABORATÓRIO",
	"COLETA DOMICILIAR",
	"RAIO X",
	"SALA DE VACINA",
	"PRÉ-CONSULTA",
	"TELEMEDICINA",
}

// DefaultAdminRoomKeywords mark rooms that are not counted as physical consultation rooms.
var DefaultAdminRoomKeywords = []string{
	"ADMINISTRA",
	"RECEPÇÃO",
	"ALMOXARIFADO",
	"ARQUIVO",
	"COPA",
}

// Options configures matrix construction.
type Options struct {
	Active            schedule.StatusSet
	ExcludedRooms     []string
	AdminRoomKeywords []string
}

// DefaultOptions returns the default active statuses and room lists.
func DefaultOptions() Options {
	return Options{
		Active:            schedule.DefaultStatusSet(),
		ExcludedRooms:     DefaultExcludedRooms,
		AdminRoomKeywords: DefaultAdminRoomKeywords,
	}
}

type compiled struct {
	active   schedule.StatusSet
	excluded map[string]struct{}
	admin    []string
}

func (o Options) compile() compiled {
	active := o.Active
	if active.Len() == 0 {
		active = schedule.DefaultStatusSet()
	}
	admin := make([]string, 0, len(o.AdminRoomKeywords))
	for _, k := range o.AdminRoomKeywords {
		if f := normalize.Fold(k); f != "" {
			admin = append(admin, f)
		}
	}
	return compiled{
		active:   active,
		excluded: normalize.FoldSet(o.ExcludedRooms),
		admin:    admin,
	}
}

func (c compiled) excludedRoom(name string) bool {
	_, ok := c.excluded[normalize.Fold(name)]
	return ok
}

func (c compiled) adminRoom(name string) bool {
	folded := normalize.Fold(name)
	for _, k := range c.admin {
		if strings.Contains(folded, k) {
			return true
		}
	}
	return false
}

// FilterStats counts records removed before aggregation.
type FilterStats struct {
	InactiveStatus int `json:"inactive_status"`
	ExcludedRoom   int `json:"excluded_room"`
}

// eligible keeps free slots and active appointments outside excluded rooms.
func (c compiled) eligible(records []schedule.Record) ([]schedule.Record, FilterStats) {
	var stats FilterStats
	out := make([]schedule.Record, 0, len(records))
	for _, rec := range records {
		if !c.active.Eligible(rec.Status) {
			stats.InactiveStatus++
			continue
		}
		if c.excludedRoom(rec.RoomName) {
			stats.ExcludedRoom++
			continue
		}
		out = append(out, rec)
	}
	return out, stats
}

// Percent returns part/total as a rounded percentage, 0 when total is 0.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
