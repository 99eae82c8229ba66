package availability

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds concurrent reconstructions when no limit is given.
const DefaultWorkers = 4

// ReconstructAll runs Reconstruct for every target with at most workers in flight.
// Per-target upstream failures are recorded in Result.Err and do not stop the others.
// Results are ordered by professional, specialty and date regardless of completion order.
func (r *Reconstructor) ReconstructAll(ctx context.Context, targets []Target, workers int) []Result {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	results := make([]Result, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, target := range targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Result{Target: target, Err: err}
				return nil
			}
			res, err := r.Reconstruct(gctx, target)
			if err != nil {
				res.Target = target
				res.Err = err
				r.logger.Warn("availability reconstruction failed",
					"professional_id", target.ProfessionalID,
					"specialty_id", target.SpecialtyID,
					"date", target.Date.ISO(),
					"error", err,
				)
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].Target, results[j].Target
		if a.ProfessionalID != b.ProfessionalID {
			return a.ProfessionalID < b.ProfessionalID
		}
		if a.SpecialtyID != b.SpecialtyID {
			return a.SpecialtyID < b.SpecialtyID
		}
		return a.Date.Before(b.Date)
	})
	return results
}
