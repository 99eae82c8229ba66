// Package availability rebuilds the free-slot grid of a professional for a given day.
//
// The scheduling API only returns slots that have not elapsed yet. Past days, and the
// elapsed part of today, are rebuilt from the same weekday one or two weeks ahead
// (the mirror date), on the assumption that the weekly template is stable.
package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
	"github.com/wolfman30/clinic-occupancy-maps/pkg/logging"
)

// Feed returns live free slots.
type Feed interface {
	FetchAvailableSlots(ctx context.Context, q schedule.SlotQuery) ([]schedule.Slot, error)
}

// Blocker removes blocked records for a date range.
type Blocker interface {
	Apply(ctx context.Context, records []schedule.Record, from, to schedule.Date) ([]schedule.Record, int, error)
}

// Mode describes how a target date relates to today.
type Mode string

const (
	ModeFuture Mode = "future"
	ModeToday  Mode = "today"
	ModePast   Mode = "past"
)

// DefaultMirrorOffsets are tried in order until one returns slots.
var DefaultMirrorOffsets = []int{7, 14}

// Target is one (unit, professional, specialty, date) combination.
type Target struct {
	UnitID         int64
	ProfessionalID int64
	SpecialtyID    int64
	Date           schedule.Date
}

// Result is the reconstructed free-slot set for a Target.
type Result struct {
	Target  Target
	Mode    Mode
	Records []schedule.Record
	// MirrorDate is set when the mirror strategy produced data.
	MirrorDate schedule.Opt[schedule.Date]
	// Gap is true when a mirror was needed and no mirror date had data. For today it
	// also requires the live feed to have nothing left after now.
	Gap     bool
	Blocked int
	Err     error
}

// Simulated reports whether any slot came from a mirror date.
func (r Result) Simulated() bool {
	return r.MirrorDate.Valid
}

// Config wires a Reconstructor.
type Config struct {
	Feed          Feed
	Blocker       Blocker
	Location      *time.Location
	MirrorOffsets []int
	Now           func() time.Time
	Logger        *logging.Logger
}

type Reconstructor struct {
	feed    Feed
	blocker Blocker
	loc     *time.Location
	offsets []int
	now     func() time.Time
	logger  *logging.Logger
}

func New(cfg Config) (*Reconstructor, error) {
	if cfg.Feed == nil {
		return nil, fmt.Errorf("availability: feed is required")
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	offsets := cfg.MirrorOffsets
	if len(offsets) == 0 {
		offsets = DefaultMirrorOffsets
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Reconstructor{
		feed:    cfg.Feed,
		blocker: cfg.Blocker,
		loc:     loc,
		offsets: offsets,
		now:     now,
		logger:  logger,
	}, nil
}

// Reconstruct returns the free slots that existed on target.Date. Upstream failures are
// returned as errors; an empty mirror is reported through Result.Gap.
func (r *Reconstructor) Reconstruct(ctx context.Context, target Target) (Result, error) {
	now := r.now().In(r.loc)
	today := schedule.DateOf(now)
	cutoff := schedule.Clock{Hour: now.Hour(), Minute: now.Minute(), Second: now.Second()}

	res := Result{Target: target}
	var records []schedule.Record

	switch {
	case target.Date.After(today):
		res.Mode = ModeFuture
		live, err := r.live(ctx, target)
		if err != nil {
			return res, err
		}
		records = live

	case target.Date == today:
		res.Mode = ModeToday
		mirrored, mirrorDate, err := r.mirror(ctx, target)
		if err != nil {
			return res, err
		}
		res.MirrorDate = mirrorDate
		for _, rec := range mirrored {
			if rec.Time.Before(cutoff) {
				records = append(records, rec)
			}
		}
		live, err := r.live(ctx, target)
		if err != nil {
			return res, err
		}
		upcoming := 0
		for _, rec := range live {
			if !rec.Time.Before(cutoff) {
				records = append(records, rec)
				upcoming++
			}
		}
		res.Gap = !mirrorDate.Valid && upcoming == 0

	default:
		res.Mode = ModePast
		mirrored, mirrorDate, err := r.mirror(ctx, target)
		if err != nil {
			return res, err
		}
		res.MirrorDate = mirrorDate
		res.Gap = !mirrorDate.Valid
		records = mirrored
	}

	records = dedupe(records)

	if r.blocker != nil && len(records) > 0 {
		kept, removed, err := r.blocker.Apply(ctx, records, target.Date, target.Date)
		if err != nil {
			return res, fmt.Errorf("availability: apply blocks: %w", err)
		}
		records = kept
		res.Blocked = removed
	}
	res.Records = records

	if res.Gap {
		r.logger.Warn("availability mirror empty",
			"professional_id", target.ProfessionalID,
			"specialty_id", target.SpecialtyID,
			"date", target.Date.ISO(),
		)
	}
	return res, nil
}

func (r *Reconstructor) live(ctx context.Context, target Target) ([]schedule.Record, error) {
	slots, err := r.fetch(ctx, target, target.Date)
	if err != nil {
		return nil, err
	}
	return toRecords(slots, target, target.Date, schedule.OriginLive), nil
}

// mirror tries each offset in turn and relabels the first non-empty result onto the
// target date.
func (r *Reconstructor) mirror(ctx context.Context, target Target) ([]schedule.Record, schedule.Opt[schedule.Date], error) {
	for _, offset := range r.offsets {
		mirrorDate := target.Date.AddDays(offset)
		slots, err := r.fetch(ctx, target, mirrorDate)
		if err != nil {
			return nil, schedule.Opt[schedule.Date]{}, err
		}
		if len(slots) == 0 {
			continue
		}
		return toRecords(slots, target, target.Date, schedule.OriginMirror), schedule.Some(mirrorDate), nil
	}
	return nil, schedule.Opt[schedule.Date]{}, nil
}

func (r *Reconstructor) fetch(ctx context.Context, target Target, day schedule.Date) ([]schedule.Slot, error) {
	slots, err := r.feed.FetchAvailableSlots(ctx, schedule.SlotQuery{
		UnitID:         target.UnitID,
		ProfessionalID: target.ProfessionalID,
		SpecialtyID:    target.SpecialtyID,
		From:           day,
		To:             day,
	})
	if err != nil {
		return nil, fmt.Errorf("availability: fetch slots for professional %d on %s: %w", target.ProfessionalID, day.ISO(), err)
	}
	// The feed may return neighbouring days; keep only the requested one.
	out := slots[:0:0]
	for _, s := range slots {
		if s.Date == day {
			out = append(out, s)
		}
	}
	return out, nil
}

func toRecords(slots []schedule.Slot, target Target, day schedule.Date, origin schedule.Origin) []schedule.Record {
	out := make([]schedule.Record, 0, len(slots))
	for _, s := range slots {
		pid := s.ProfessionalID
		if pid == 0 {
			pid = target.ProfessionalID
		}
		out = append(out, schedule.Record{
			Date:           day,
			Time:           s.Time,
			ProfessionalID: pid,
			SpecialtyID:    target.SpecialtyID,
			RoomID:         s.RoomID,
			UnitID:         target.UnitID,
			Status:         schedule.StatusFree,
			Origin:         origin,
		})
	}
	return out
}

// dedupe keeps the first record per (time, professional) and sorts by time.
func dedupe(records []schedule.Record) []schedule.Record {
	type key struct {
		secs int
		pid  int64
	}
	seen := make(map[key]struct{}, len(records))
	out := make([]schedule.Record, 0, len(records))
	for _, rec := range records {
		k := key{rec.Time.Seconds(), rec.ProfessionalID}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Time != out[j].Time {
			return out[i].Time.Before(out[j].Time)
		}
		return out[i].ProfessionalID < out[j].ProfessionalID
	})
	return out
}
