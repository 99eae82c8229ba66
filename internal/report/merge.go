package report

import (
	"context"
	"sort"

	"github.com/wolfman30/clinic-occupancy-maps/internal/blocking"
	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
)

type slotKey struct {
	date schedule.Date
	secs int
	pid  int64
}

func keyOf(rec schedule.Record) slotKey {
	return slotKey{date: rec.Date, secs: rec.Time.Seconds(), pid: rec.ProfessionalID}
}

// merge joins appointments with reconstructed free slots. A free slot sharing
// (date, time, professional) with an active appointment is dropped; inactive
// appointments (canceled, no-show) leave the slot in place. The result is sorted by
// date, time and professional.
func merge(appointments, free []schedule.Record, active schedule.StatusSet) ([]schedule.Record, int) {
	booked := make(map[slotKey]struct{}, len(appointments))
	for _, rec := range appointments {
		if active.Contains(rec.Status) {
			booked[keyOf(rec)] = struct{}{}
		}
	}

	out := make([]schedule.Record, 0, len(appointments)+len(free))
	out = append(out, appointments...)
	shadowed := 0
	for _, rec := range free {
		if _, ok := booked[keyOf(rec)]; ok {
			shadowed++
			continue
		}
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		if a.Time != b.Time {
			return a.Time.Before(b.Time)
		}
		return a.ProfessionalID < b.ProfessionalID
	})
	return out, shadowed
}

// rangeSource lists the blocks of the whole report range once, whatever sub-range a
// caller asks for. Blocks carry their own dates, so a wider listing filters the same.
// Blocks declared for other units are left out.
type rangeSource struct {
	memo     *blocking.MemoSource
	unitID   int64
	from, to schedule.Date
}

func newRangeSource(source blocking.Source, unitID int64, from, to schedule.Date) *rangeSource {
	if source == nil {
		return nil
	}
	return &rangeSource{memo: blocking.NewMemoSource(source), unitID: unitID, from: from, to: to}
}

func (r *rangeSource) ListBlocks(ctx context.Context, _, _ schedule.Date) ([]schedule.Block, error) {
	blocks, err := r.memo.ListBlocks(ctx, r.from, r.to)
	if err != nil {
		return nil, err
	}
	out := make([]schedule.Block, 0, len(blocks))
	for _, b := range blocks {
		if blocking.AppliesToUnit(b, r.unitID) {
			out = append(out, b)
		}
	}
	return out, nil
}
