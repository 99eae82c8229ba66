// Package mapjob runs the scheduled map generation for a set of units: it builds
// each unit's map, saves and uploads the files, and records the outcome.
package mapjob

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/wolfman30/clinic-occupancy-maps/internal/normalize"
	"github.com/wolfman30/clinic-occupancy-maps/internal/publish"
	"github.com/wolfman30/clinic-occupancy-maps/internal/refcache"
	"github.com/wolfman30/clinic-occupancy-maps/internal/report"
	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
	"github.com/wolfman30/clinic-occupancy-maps/pkg/logging"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitError   = 1
	ExitUnits   = 2
	ExitWarning = 3
)

// Builder produces batches of maps. *report.Service satisfies it.
type Builder interface {
	DailyBatch(ctx context.Context, units []schedule.Unit, date schedule.Date, workers int) []report.UnitResult
	WeeklyBatch(ctx context.Context, units []schedule.Unit, start schedule.Date, workers int) []report.UnitResult
}

// Catalog exposes the reference tables.
type Catalog interface {
	Snapshot(ctx context.Context) (*refcache.Snapshot, error)
}

// Uploader stores a rendered map remotely. *publish.Store satisfies it.
type Uploader interface {
	Enabled() bool
	Upload(ctx context.Context, meta report.Metadata, file report.Rendered) (string, error)
}

// RunRecorder persists per-unit outcomes. *runlog.Repository satisfies it.
type RunRecorder interface {
	RecordBatch(ctx context.Context, kind report.Type, date schedule.Date, results []report.UnitResult, keys map[int64]string) error
}

// Options are the per-invocation settings.
type Options struct {
	Type          report.Type
	When          string
	Date          string
	Units         []string
	OutputDir     string
	SaveLocal     bool
	Upload        bool
	FailOnWarning bool
	Workers       int
}

// Outcome is the result of one invocation.
type Outcome struct {
	Type    report.Type
	Date    schedule.Date
	Results []report.UnitResult
	Summary report.Summary
	Files   map[int64]string
	Keys    map[int64]string
}

// Runner executes map jobs.
type Runner struct {
	Builder  Builder
	Catalog  Catalog
	Renderer report.Renderer
	Uploader Uploader
	Runs     RunRecorder
	Today    func() schedule.Date
	Logger   *logging.Logger

	// SaveFile writes a rendered map under dir. Defaults to publish.SaveLocal.
	SaveFile func(dir string, file report.Rendered) (string, error)
}

// UnitsError wraps a unit selection failure.
type UnitsError struct {
	Err error
}

func (e *UnitsError) Error() string { return e.Err.Error() }
func (e *UnitsError) Unwrap() error { return e.Err }

// ResolveDate maps --when and --date onto a calendar date.
func ResolveDate(when, date string, today schedule.Date) (schedule.Date, error) {
	switch strings.ToLower(strings.TrimSpace(when)) {
	case "", "today":
		return today, nil
	case "tomorrow":
		return today.AddDays(1), nil
	case "date":
		d, ok := normalize.ParseDate(date)
		if !ok {
			return schedule.Date{}, fmt.Errorf("mapjob: --date must be DD-MM-YYYY, got %q", date)
		}
		return d, nil
	}
	return schedule.Date{}, fmt.Errorf("mapjob: unknown --when %q (today, tomorrow or date)", when)
}

// Run builds the maps and stores them. Per-unit failures are reported in the
// outcome; only setup failures return an error.
func (r *Runner) Run(ctx context.Context, opts Options) (*Outcome, error) {
	logger := r.Logger
	if logger == nil {
		logger = logging.Default()
	}
	today := r.Today
	if today == nil {
		today = func() schedule.Date { return schedule.DateOf(time.Now()) }
	}
	kind := opts.Type
	if kind == "" {
		kind = report.TypeDaily
	}
	if kind != report.TypeDaily && kind != report.TypeWeekly {
		return nil, fmt.Errorf("mapjob: unknown map type %q", kind)
	}

	date, err := ResolveDate(opts.When, opts.Date, today())
	if err != nil {
		return nil, err
	}
	snap, err := r.Catalog.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("mapjob: load units: %w", err)
	}
	units, err := report.ResolveUnits(snap, opts.Units)
	if err != nil {
		return nil, &UnitsError{Err: err}
	}
	if len(units) == 0 {
		return nil, &UnitsError{Err: errors.New("mapjob: no units available")}
	}

	logger.Info("map job started", "type", kind, "date", date.BR(), "units", len(units))

	var results []report.UnitResult
	if kind == report.TypeWeekly {
		results = r.Builder.WeeklyBatch(ctx, units, date, opts.Workers)
	} else {
		results = r.Builder.DailyBatch(ctx, units, date, opts.Workers)
	}

	out := &Outcome{
		Type:    kind,
		Date:    date,
		Results: results,
		Files:   map[int64]string{},
		Keys:    map[int64]string{},
	}
	uploading := opts.Upload && r.Uploader != nil && r.Uploader.Enabled()
	if opts.Upload && !uploading {
		logger.Warn("upload requested but no bucket configured")
	}
	for i := range results {
		r.store(ctx, &results[i], opts, uploading, out, logger)
	}

	if r.Runs != nil {
		if err := r.Runs.RecordBatch(ctx, kind, date, results, out.Keys); err != nil {
			logger.Error("failed to record map runs", "error", err)
		}
	}

	out.Summary = report.Summarize(results)
	logger.Info("map job finished",
		"type", kind,
		"date", date.BR(),
		"success", out.Summary.Success,
		"warning", out.Summary.Warning,
		"error", out.Summary.Error,
	)
	return out, nil
}

// store renders, saves and uploads one unit's map. A storage failure turns the
// unit into an error.
func (r *Runner) store(ctx context.Context, res *report.UnitResult, opts Options, uploading bool, out *Outcome, logger *logging.Logger) {
	if res.Document == nil || (!opts.SaveLocal && !uploading) {
		return
	}
	renderer := r.Renderer
	if renderer == nil {
		renderer = report.JSONRenderer{}
	}
	file, err := renderer.Render(ctx, res.Document)
	if err != nil {
		fail(res, err, logger)
		return
	}
	if opts.SaveLocal {
		save := r.SaveFile
		if save == nil {
			save = publish.SaveLocal
		}
		dir := filepath.Join(opts.OutputDir, string(out.Type))
		path, err := save(dir, file)
		if err != nil {
			fail(res, err, logger)
			return
		}
		out.Files[res.Unit.ID] = path
	}
	if uploading {
		key, err := r.Uploader.Upload(ctx, res.Document.Metadata, file)
		if err != nil {
			fail(res, err, logger)
			return
		}
		out.Keys[res.Unit.ID] = key
	}
}

func fail(res *report.UnitResult, err error, logger *logging.Logger) {
	logger.Error("failed to store map", "unit_id", res.Unit.ID, "unit", res.Unit.Name, "error", err)
	res.Status = report.StatusError
	res.Message = err.Error()
	res.Err = err
}

// ExitCode maps an outcome to the process exit status.
func ExitCode(out *Outcome, err error, failOnWarning bool) int {
	var unitsErr *UnitsError
	switch {
	case errors.As(err, &unitsErr):
		return ExitUnits
	case err != nil:
		return ExitError
	case out.Summary.Error > 0:
		return ExitError
	case failOnWarning && out.Summary.Warning > 0:
		return ExitWarning
	}
	return ExitOK
}
