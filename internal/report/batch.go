package report

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
)

// Status is the outcome of one unit in a batch.
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// UnitResult is one unit's outcome. Document is nil when Status is StatusError.
type UnitResult struct {
	Unit     schedule.Unit
	Status   Status
	Message  string
	Document *Document
	Err      error
}

// Summary counts batch outcomes.
type Summary struct {
	Success int `json:"success"`
	Warning int `json:"warning"`
	Error   int `json:"error"`
	Total   int `json:"total"`
}

func Summarize(results []UnitResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusSuccess:
			s.Success++
		case StatusWarning:
			s.Warning++
		default:
			s.Error++
		}
	}
	return s
}

// Classify maps a run's document and error to a unit status and message.
func Classify(doc *Document, err error) (Status, string) {
	switch {
	case errors.Is(err, ErrNoData):
		if doc != nil && doc.Warning != "" {
			return StatusWarning, doc.Warning
		}
		return StatusWarning, err.Error()
	case err != nil:
		return StatusError, err.Error()
	case doc != nil && len(doc.Warnings) > 0:
		return StatusWarning, strings.Join(doc.Warnings, " ")
	}
	return StatusSuccess, ""
}

// DailyBatch builds the daily map of every unit for date. One unit failing never
// stops the others; results keep the order of units.
func (s *Service) DailyBatch(ctx context.Context, units []schedule.Unit, date schedule.Date, workers int) []UnitResult {
	return s.batch(ctx, TypeDaily, units, workers, func(ctx context.Context, unitID int64) (*Document, error) {
		return s.Daily(ctx, unitID, date)
	})
}

// WeeklyBatch builds the weekly map of every unit starting at start.
func (s *Service) WeeklyBatch(ctx context.Context, units []schedule.Unit, start schedule.Date, workers int) []UnitResult {
	return s.batch(ctx, TypeWeekly, units, workers, func(ctx context.Context, unitID int64) (*Document, error) {
		return s.Weekly(ctx, unitID, start)
	})
}

func (s *Service) batch(ctx context.Context, kind Type, units []schedule.Unit, workers int, build func(context.Context, int64) (*Document, error)) []UnitResult {
	if workers <= 0 {
		workers = 1
	}
	results := make([]UnitResult, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, unit := range units {
		g.Go(func() error {
			doc, err := build(gctx, unit.ID)
			status, msg := Classify(doc, err)
			results[i] = UnitResult{Unit: unit, Status: status, Message: msg, Document: doc, Err: err}
			if status == StatusError {
				results[i].Document = nil
				s.logger.Error("map failed", "type", kind, "unit_id", unit.ID, "unit", unit.Name, "error", err)
			} else {
				s.logger.Info("map generated", "type", kind, "unit_id", unit.ID, "unit", unit.Name, "status", status)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
