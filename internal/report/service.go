// Package report assembles occupancy maps for a unit: it pulls appointments and
// reference tables, runs them through normalization and resolution, rebuilds free
// slots, removes blocked rows and hands the records to the matrix builder.
package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/clinic-occupancy-maps/internal/availability"
	"github.com/wolfman30/clinic-occupancy-maps/internal/blocking"
	"github.com/wolfman30/clinic-occupancy-maps/internal/feegow"
	"github.com/wolfman30/clinic-occupancy-maps/internal/normalize"
	"github.com/wolfman30/clinic-occupancy-maps/internal/occupancy"
	"github.com/wolfman30/clinic-occupancy-maps/internal/refcache"
	"github.com/wolfman30/clinic-occupancy-maps/internal/resolve"
	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
	"github.com/wolfman30/clinic-occupancy-maps/pkg/logging"
)

var tracer = otel.Tracer("occupancy.internal.report")

const (
	DefaultHistoryDays = 28
	DefaultDeadline    = 5 * time.Minute
	weekLength         = 7
)

// ErrNoData marks a run that finished without any record for the unit and range.
var ErrNoData = errors.New("report: no data")

// AppointmentSource returns raw appointment rows.
type AppointmentSource interface {
	FetchAppointments(ctx context.Context, q feegow.AppointmentQuery) ([]schedule.RawAppointment, error)
}

// Catalog returns the shared reference tables.
type Catalog interface {
	Snapshot(ctx context.Context) (*refcache.Snapshot, error)
}

// Recorder receives pipeline counters. *metrics.PipelineMetrics satisfies it.
type Recorder interface {
	ObserveDropped(reason string, count int)
	ObserveBlocked(origin string, count int)
	ObserveReport(reportType, outcome string, seconds float64)
}

// Config wires a Service.
type Config struct {
	Appointments  AppointmentSource
	Slots         availability.Feed
	Blocks        blocking.Source
	Catalog       Catalog
	Location      *time.Location
	Now           func() time.Time
	Workers       int
	Deadline      time.Duration
	HistoryDays   int
	MirrorOffsets []int
	Options       occupancy.Options
	Recorder      Recorder
	Logger        *logging.Logger
}

// Service builds weekly and daily maps.
type Service struct {
	appointments AppointmentSource
	slots        availability.Feed
	blocks       blocking.Source
	catalog      Catalog
	loc          *time.Location
	now          func() time.Time
	workers      int
	deadline     time.Duration
	historyDays  int
	offsets      []int
	opts         occupancy.Options
	recorder     Recorder
	logger       *logging.Logger
}

func New(cfg Config) (*Service, error) {
	if cfg.Appointments == nil {
		return nil, fmt.Errorf("report: appointment source is required")
	}
	if cfg.Slots == nil {
		return nil, fmt.Errorf("report: availability feed is required")
	}
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("report: catalog is required")
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = availability.DefaultWorkers
	}
	deadline := cfg.Deadline
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	history := cfg.HistoryDays
	if history < 0 {
		history = 0
	} else if history == 0 {
		history = DefaultHistoryDays
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		appointments: cfg.Appointments,
		slots:        cfg.Slots,
		blocks:       cfg.Blocks,
		catalog:      cfg.Catalog,
		loc:          loc,
		now:          now,
		workers:      workers,
		deadline:     deadline,
		historyDays:  history,
		offsets:      cfg.MirrorOffsets,
		opts:         cfg.Options,
		recorder:     cfg.Recorder,
		logger:       logger,
	}, nil
}

// Weekly builds the room × weekday map for the seven days starting at start.
// A range without records returns a document with Warning set and ErrNoData.
func (s *Service) Weekly(ctx context.Context, unitID int64, start schedule.Date) (*Document, error) {
	end := start.AddDays(weekLength - 1)
	var dates []schedule.Date
	for d := start; !d.After(end); d = d.AddDays(1) {
		if d.Weekday() != time.Sunday {
			dates = append(dates, d)
		}
	}
	return s.run(ctx, TypeWeekly, unitID, start, end, dates)
}

// Daily builds the room × professional × period map for date.
func (s *Service) Daily(ctx context.Context, unitID int64, date schedule.Date) (*Document, error) {
	return s.run(ctx, TypeDaily, unitID, date, date, []schedule.Date{date})
}

// Today returns the current date in the service timezone.
func (s *Service) Today() schedule.Date {
	return schedule.DateOf(s.now().In(s.loc))
}

// Location is the timezone used to decide past, today and future dates.
func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) run(ctx context.Context, kind Type, unitID int64, from, to schedule.Date, dates []schedule.Date) (doc *Document, err error) {
	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	ctx, span := tracer.Start(ctx, "report."+string(kind))
	defer span.End()
	span.SetAttributes(
		attribute.Int64("occupancy.unit_id", unitID),
		attribute.String("occupancy.from", from.ISO()),
		attribute.String("occupancy.to", to.ISO()),
	)

	defer func() {
		outcome := "success"
		switch {
		case errors.Is(err, ErrNoData):
			outcome = "no_data"
		case err != nil:
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case doc != nil && len(doc.Warnings) > 0:
			outcome = "warning"
		}
		if s.recorder != nil {
			s.recorder.ObserveReport(string(kind), outcome, time.Since(started).Seconds())
		}
	}()

	snap, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("report: load reference tables: %w", err)
	}
	unit, ok := snap.UnitByID(unitID)
	if !ok {
		return nil, fmt.Errorf("report: unknown unit %d", unitID)
	}
	rooms := snap.RoomsOfUnit(unitID)

	doc = &Document{
		Metadata: Metadata{
			Type:        kind,
			UnitID:      unit.ID,
			UnitName:    unit.Name,
			From:        from,
			To:          to,
			GeneratedAt: s.now().In(s.loc),
		},
	}

	set, err := s.collect(ctx, unit, snap, from, to, dates, doc)
	if err != nil {
		return nil, err
	}

	switch kind {
	case TypeWeekly:
		m := occupancy.BuildWeekly(set, from, to, rooms, s.opts)
		doc.Weekly = &m
		doc.Diagnostics.Filtered = m.Filtered
		if m.Empty() {
			doc.Warning = fmt.Sprintf("Nenhum registro encontrado para %s entre %s e %s.", unit.Name, from.BR(), to.BR())
		}
	case TypeDaily:
		m := occupancy.BuildDaily(set, from, rooms, s.opts)
		doc.Daily = &m
		doc.Diagnostics.Filtered = m.Filtered
		if m.Empty() {
			doc.Warning = fmt.Sprintf("Nenhum registro encontrado para %s em %s.", unit.Name, from.BR())
		}
	}
	doc.Metadata.Footnote = footnote(doc.Metadata)

	s.logger.Info("report assembled",
		"type", kind,
		"unit_id", unit.ID,
		"from", from.ISO(),
		"to", to.ISO(),
		"records", len(set),
		"warnings", len(doc.Warnings),
	)
	if doc.Warning != "" {
		return doc, ErrNoData
	}
	return doc, nil
}

// collect produces the merged, resolved and block-filtered record set for the unit.
func (s *Service) collect(ctx context.Context, unit schedule.Unit, snap *refcache.Snapshot, from, to schedule.Date, dates []schedule.Date, doc *Document) ([]schedule.Record, error) {
	raw, err := s.appointments.FetchAppointments(ctx, feegow.AppointmentQuery{
		UnitID: unit.ID,
		From:   from.AddDays(-s.historyDays),
		To:     to,
	})
	if err != nil {
		return nil, fmt.Errorf("report: fetch appointments: %w", err)
	}

	rows, diag := normalize.Normalize(raw)
	doc.Diagnostics.Normalize = diag
	s.observe("normalize_incomplete", diag.Dropped())
	sortRows(rows)

	ref := resolve.NewReference(snap.Professionals, snap.Specialties, snap.Rooms, snap.Units)
	resolver := resolve.New(ref, rows, s.logger)

	resolved, stats := resolver.Appointments(rows)
	doc.Diagnostics.Appointments = stats
	s.observeResolve(stats)

	var appointments []schedule.Record
	pairs := newPairSet()
	for _, rec := range resolved {
		if rec.UnitID != 0 && rec.UnitID != unit.ID {
			doc.Diagnostics.OtherUnit++
			continue
		}
		pairs.add(rec.ProfessionalID, rec.SpecialtyID)
		if rec.Date.Within(from, to) {
			appointments = append(appointments, rec)
		}
	}

	blocks := newRangeSource(s.blocks, unit.ID, from, to)
	var filter *blocking.Filter
	if blocks != nil {
		filter = blocking.NewFilter(blocks, s.logger)
	}

	free, err := s.reconstruct(ctx, unit, pairs.list(), dates, filter, resolver, doc)
	if err != nil {
		return nil, err
	}

	if filter != nil {
		kept, removed, err := filter.Apply(ctx, appointments, from, to)
		if err != nil {
			return nil, fmt.Errorf("report: apply blocks: %w", err)
		}
		appointments = kept
		doc.Diagnostics.BlockedAppointments = removed
		s.observeBlocked(string(schedule.OriginAppointment), removed)
	}

	merged, shadowed := merge(appointments, free, s.activeSet())
	doc.Diagnostics.ShadowedSlots = shadowed
	return merged, nil
}

func (s *Service) reconstruct(ctx context.Context, unit schedule.Unit, pairs []pair, dates []schedule.Date, filter *blocking.Filter, resolver *resolve.Resolver, doc *Document) ([]schedule.Record, error) {
	if len(pairs) == 0 || len(dates) == 0 {
		return nil, nil
	}
	cfg := availability.Config{
		Feed:          s.slots,
		Location:      s.loc,
		MirrorOffsets: s.offsets,
		Now:           s.now,
		Logger:        s.logger,
	}
	if filter != nil {
		cfg.Blocker = filter
	}
	rec, err := availability.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("report: availability: %w", err)
	}

	targets := make([]availability.Target, 0, len(pairs)*len(dates))
	for _, p := range pairs {
		for _, d := range dates {
			targets = append(targets, availability.Target{
				UnitID:         unit.ID,
				ProfessionalID: p.professionalID,
				SpecialtyID:    p.specialtyID,
				Date:           d,
			})
		}
	}

	results := rec.ReconstructAll(ctx, targets, s.workers)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("report: reconstruct availability: %w", err)
	}

	var free []schedule.Record
	mirrors := map[schedule.Date]struct{}{}
	gaps := map[schedule.Date]bool{}
	for _, res := range results {
		if res.Err != nil {
			doc.Diagnostics.FailedTargets++
			doc.addWarning(targetWarning(res))
			continue
		}
		doc.Diagnostics.BlockedSlots += res.Blocked
		if res.MirrorDate.Valid {
			mirrors[res.Target.Date] = struct{}{}
		}
		// A date is a gap only when every target for it came back empty.
		if _, seen := gaps[res.Target.Date]; !seen {
			gaps[res.Target.Date] = res.Gap
		} else if !res.Gap {
			gaps[res.Target.Date] = false
		}
		free = append(free, res.Records...)
	}
	s.observeBlocked("availability", doc.Diagnostics.BlockedSlots)

	named, stats := resolver.Names(free)
	doc.Diagnostics.Slots = stats
	s.observeResolve(stats)

	for d := range mirrors {
		doc.Metadata.MirrorDates = append(doc.Metadata.MirrorDates, d)
	}
	for d, gap := range gaps {
		if gap {
			doc.Metadata.GapDates = append(doc.Metadata.GapDates, d)
		}
	}
	sortDates(doc.Metadata.MirrorDates)
	sortDates(doc.Metadata.GapDates)
	doc.Metadata.Simulated = len(doc.Metadata.MirrorDates) > 0
	return named, nil
}

func (s *Service) activeSet() schedule.StatusSet {
	if s.opts.Active.Len() > 0 {
		return s.opts.Active
	}
	return schedule.DefaultStatusSet()
}

func (s *Service) observe(reason string, n int) {
	if s.recorder != nil {
		s.recorder.ObserveDropped(reason, n)
	}
}

func (s *Service) observeBlocked(origin string, n int) {
	if s.recorder != nil {
		s.recorder.ObserveBlocked(origin, n)
	}
}

func (s *Service) observeResolve(stats resolve.Stats) {
	s.observe("incomplete", stats.DroppedIncomplete)
	s.observe("specialty", stats.DroppedSpecialty)
	s.observe("professional", stats.DroppedProfessional)
	s.observe("room", stats.DroppedRoom)
}

func targetWarning(res availability.Result) string {
	kind := "falha temporária"
	if feegow.IsValidation(res.Err) {
		kind = "requisição rejeitada"
	}
	return fmt.Sprintf("Disponibilidade do profissional %d em %s ignorada (%s).",
		res.Target.ProfessionalID, res.Target.Date.BR(), kind)
}

// sortRows orders rows chronologically so sibling fills follow the schedule.
// Rows without a date or time sort after dated ones, keeping their relative order.
func sortRows(rows []normalize.Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Date.Valid != b.Date.Valid {
			return a.Date.Valid
		}
		if a.Date.Valid && a.Date.Value != b.Date.Value {
			return a.Date.Value.Before(b.Date.Value)
		}
		if a.Time.Valid != b.Time.Valid {
			return a.Time.Valid
		}
		return a.Time.Valid && a.Time.Value.Before(b.Time.Value)
	})
}

func sortDates(dates []schedule.Date) {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
}

type pair struct {
	professionalID int64
	specialtyID    int64
}

type pairSet struct {
	seen  map[pair]struct{}
	order []pair
}

func newPairSet() *pairSet {
	return &pairSet{seen: make(map[pair]struct{})}
}

func (p *pairSet) add(professionalID, specialtyID int64) {
	k := pair{professionalID, specialtyID}
	if _, ok := p.seen[k]; ok {
		return
	}
	p.seen[k] = struct{}{}
	p.order = append(p.order, k)
}

func (p *pairSet) list() []pair {
	out := append([]pair(nil), p.order...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].professionalID != out[j].professionalID {
			return out[i].professionalID < out[j].professionalID
		}
		return out[i].specialtyID < out[j].specialtyID
	})
	return out
}
