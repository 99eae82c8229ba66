package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wolfman30/clinic-occupancy-maps/internal/refcache"
	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
)

// UnknownUnitsError lists requested units that matched nothing.
type UnknownUnitsError struct {
	Names []string
}

func (e *UnknownUnitsError) Error() string {
	return fmt.Sprintf("report: unknown units: %s", strings.Join(e.Names, ", "))
}

// ResolveUnit matches a unit by numeric id or by name, ignoring case, accents and
// repeated whitespace.
func ResolveUnit(snap *refcache.Snapshot, ref string) (schedule.Unit, bool) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return snap.UnitByID(id)
	}
	return snap.UnitByName(ref)
}

// ResolveUnits maps requested names to units, preserving request order and dropping
// duplicates. An empty request selects every unit. Any unmatched name fails the call.
func ResolveUnits(snap *refcache.Snapshot, requested []string) ([]schedule.Unit, error) {
	var refs []string
	for _, r := range requested {
		if r = strings.TrimSpace(r); r != "" {
			refs = append(refs, r)
		}
	}
	if len(refs) == 0 {
		return append([]schedule.Unit(nil), snap.Units...), nil
	}

	var (
		out     []schedule.Unit
		unknown []string
		seen    = map[int64]struct{}{}
	)
	for _, r := range refs {
		u, ok := ResolveUnit(snap, r)
		if !ok {
			unknown = append(unknown, r)
			continue
		}
		if _, dup := seen[u.ID]; dup {
			continue
		}
		seen[u.ID] = struct{}{}
		out = append(out, u)
	}
	if len(unknown) > 0 {
		return nil, &UnknownUnitsError{Names: unknown}
	}
	return out, nil
}
