package blocking

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
	"github.com/wolfman30/clinic-occupancy-maps/pkg/logging"
)

var (
	dayStart = schedule.Clock{}
	dayEnd   = schedule.Clock{Hour: 23, Minute: 59, Second: 59}
)

// Source lists the blocks overlapping a date range.
type Source interface {
	ListBlocks(ctx context.Context, from, to schedule.Date) ([]schedule.Block, error)
}

// Filter removes records that fall inside a declared block.
type Filter struct {
	source Source
	logger *logging.Logger
}

func NewFilter(source Source, logger *logging.Logger) *Filter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Filter{source: source, logger: logger}
}

// Apply fetches the blocks for [from, to] once and drops every record matching any of them.
func (f *Filter) Apply(ctx context.Context, records []schedule.Record, from, to schedule.Date) ([]schedule.Record, int, error) {
	if len(records) == 0 {
		return records, 0, nil
	}
	blocks, err := f.source.ListBlocks(ctx, from, to)
	if err != nil {
		return nil, 0, fmt.Errorf("blocking: list blocks: %w", err)
	}
	kept, removed := Exclude(records, blocks)
	if removed > 0 {
		f.logger.Info("blocked records removed",
			"from", from.ISO(),
			"to", to.ISO(),
			"blocks", len(blocks),
			"removed", removed,
		)
	}
	return kept, removed, nil
}

// Exclude is the pure part of Apply.
func Exclude(records []schedule.Record, blocks []schedule.Block) ([]schedule.Record, int) {
	if len(blocks) == 0 {
		return records, 0
	}
	compiled := make([]compiledBlock, len(blocks))
	for i, b := range blocks {
		compiled[i] = compile(b)
	}
	kept := make([]schedule.Record, 0, len(records))
	removed := 0
	for _, rec := range records {
		if anyMatch(compiled, rec) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	return kept, removed
}

func anyMatch(blocks []compiledBlock, rec schedule.Record) bool {
	for _, b := range blocks {
		if b.matches(rec) {
			return true
		}
	}
	return false
}

// Matches reports whether rec falls inside b.
func Matches(b schedule.Block, rec schedule.Record) bool {
	return compile(b).matches(rec)
}

// AppliesToUnit reports whether b covers unitID: an empty unit list or one containing 0
// covers every unit.
func AppliesToUnit(b schedule.Block, unitID int64) bool {
	return compile(b).appliesTo(unitID)
}

// UnitIDs canonicalizes a block's unit list to integers. Textual entries such as "12" or
// "3, 4" are parsed; entries that are not integers are ignored. all is true when the list
// is empty or contains the 0 sentinel.
func UnitIDs(units []schedule.Loose) (ids []int64, all bool) {
	present := 0
	for _, u := range units {
		if !u.Valid() || strings.TrimSpace(u.String()) == "" {
			continue
		}
		present++
		for _, part := range strings.Split(u.String(), ",") {
			id, ok := schedule.LooseString(part).Int()
			if !ok {
				continue
			}
			if id == 0 {
				all = true
			}
			ids = append(ids, id)
		}
	}
	if present == 0 {
		all = true
	}
	return ids, all
}

type compiledBlock struct {
	block    schedule.Block
	start    schedule.Clock
	end      schedule.Clock
	allUnits bool
	units    map[int64]struct{}
}

func compile(b schedule.Block) compiledBlock {
	ids, all := UnitIDs(b.Units)
	units := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		units[id] = struct{}{}
	}
	return compiledBlock{
		block:    b,
		start:    b.StartTime.Or(dayStart),
		end:      b.EndTime.Or(dayEnd),
		allUnits: all,
		units:    units,
	}
}

func (c compiledBlock) appliesTo(unitID int64) bool {
	if c.allUnits {
		return true
	}
	_, ok := c.units[unitID]
	return ok
}

func (c compiledBlock) matches(rec schedule.Record) bool {
	if !c.appliesTo(rec.UnitID) {
		return false
	}
	if c.block.ProfessionalID != 0 && c.block.ProfessionalID != rec.ProfessionalID {
		return false
	}
	if !rec.Date.Within(c.block.StartDate, c.block.EndDate) {
		return false
	}
	secs := rec.Time.Seconds()
	return secs >= c.start.Seconds() && secs <= c.end.Seconds()
}
