// Package runlog keeps a Postgres ledger of generated maps.
package runlog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/clinic-occupancy-maps/internal/report"
	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
)

const defaultListLimit = 50

// Run is one unit's map generation outcome.
type Run struct {
	ID         uuid.UUID     `json:"id"`
	MapType    report.Type   `json:"map_type"`
	TargetDate schedule.Date `json:"target_date"`
	UnitID     int64         `json:"unit_id"`
	UnitName   string        `json:"unit_name"`
	Status     report.Status `json:"status"`
	Message    string        `json:"message,omitempty"`
	ObjectKey  string        `json:"object_key,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Repository struct {
	db  querier
	now func() time.Time
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("runlog: pgx pool required")
	}
	return &Repository{db: pool, now: time.Now}
}

func newRepositoryWithQuerier(db querier, now func() time.Time) *Repository {
	return &Repository{db: db, now: now}
}

// Record inserts run, assigning its id and timestamp when empty.
func (r *Repository) Record(ctx context.Context, run *Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = r.now().UTC()
	}
	query := `
		INSERT INTO map_runs (id, map_type, target_date, unit_id, unit_name, status, message, object_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		run.ID,
		string(run.MapType),
		run.TargetDate.Time(),
		run.UnitID,
		run.UnitName,
		string(run.Status),
		run.Message,
		run.ObjectKey,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("runlog: insert run: %w", err)
	}
	return nil
}

// RecordBatch stores one row per unit result.
func (r *Repository) RecordBatch(ctx context.Context, kind report.Type, date schedule.Date, results []report.UnitResult, keys map[int64]string) error {
	for _, res := range results {
		run := &Run{
			MapType:    kind,
			TargetDate: date,
			UnitID:     res.Unit.ID,
			UnitName:   res.Unit.Name,
			Status:     res.Status,
			Message:    res.Message,
			ObjectKey:  keys[res.Unit.ID],
		}
		if err := r.Record(ctx, run); err != nil {
			return err
		}
	}
	return nil
}

// Recent lists the latest runs for a target date, newest first.
func (r *Repository) Recent(ctx context.Context, date schedule.Date, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := `
		SELECT id, map_type, target_date, unit_id, unit_name, status, message, object_key, created_at
		FROM map_runs
		WHERE target_date = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, date.Time(), limit)
	if err != nil {
		return nil, fmt.Errorf("runlog: list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			run     Run
			mapType string
			target  time.Time
			status  string
		)
		if err := rows.Scan(&run.ID, &mapType, &target, &run.UnitID, &run.UnitName, &status, &run.Message, &run.ObjectKey, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("runlog: scan run: %w", err)
		}
		run.MapType = report.Type(mapType)
		run.Status = report.Status(status)
		run.TargetDate = schedule.DateOf(target)
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("runlog: iterate runs: %w", err)
	}
	return out, nil
}
