package resolve

import (
	"github.com/wolfman30/clinic-occupancy-maps/internal/normalize"
	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
)

// FillSpecialties forward-fills then backward-fills missing specialty ids inside each
// professional's group, in record order. Rows without a professional are left as-is.
// It returns a new slice and the number of ids that were filled.
func FillSpecialties(rows []normalize.Row) ([]normalize.Row, int) {
	out := make([]normalize.Row, len(rows))
	copy(out, rows)

	groups := make(map[int64][]int)
	var order []int64
	for i, row := range out {
		if !row.ProfessionalID.Valid {
			continue
		}
		pid := row.ProfessionalID.Value
		if _, seen := groups[pid]; !seen {
			order = append(order, pid)
		}
		groups[pid] = append(groups[pid], i)
	}

	filled := 0
	for _, pid := range order {
		idx := groups[pid]
		var last schedule.Opt[int64]
		for _, i := range idx {
			if out[i].SpecialtyID.Valid {
				last = out[i].SpecialtyID
				continue
			}
			if last.Valid {
				out[i].SpecialtyID = last
				filled++
			}
		}
		var next schedule.Opt[int64]
		for j := len(idx) - 1; j >= 0; j-- {
			i := idx[j]
			if out[i].SpecialtyID.Valid {
				next = out[i].SpecialtyID
				continue
			}
			if next.Valid {
				out[i].SpecialtyID = next
				filled++
			}
		}
	}
	return out, filled
}

// DominantSpecialties returns, per professional, the most frequent non-missing specialty
// id. Ties go to the specialty encountered first.
func DominantSpecialties(rows []normalize.Row) map[int64]int64 {
	type tally struct {
		counts map[int64]int
		first  map[int64]int
		seq    int
	}
	tallies := make(map[int64]*tally)
	for _, row := range rows {
		if !row.ProfessionalID.Valid || !row.SpecialtyID.Valid {
			continue
		}
		pid, sid := row.ProfessionalID.Value, row.SpecialtyID.Value
		t := tallies[pid]
		if t == nil {
			t = &tally{counts: map[int64]int{}, first: map[int64]int{}}
			tallies[pid] = t
		}
		if _, ok := t.first[sid]; !ok {
			t.first[sid] = t.seq
			t.seq++
		}
		t.counts[sid]++
	}

	out := make(map[int64]int64, len(tallies))
	for pid, t := range tallies {
		best, bestCount, bestFirst := int64(0), -1, 0
		for sid, n := range t.counts {
			if n > bestCount || (n == bestCount && t.first[sid] < bestFirst) {
				best, bestCount, bestFirst = sid, n, t.first[sid]
			}
		}
		out[pid] = best
	}
	return out
}
