// Package refcache holds the reference tables (professionals, specialties, rooms, units)
// shared by report runs, refreshed on a time-to-live basis.
package refcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/clinic-occupancy-maps/internal/normalize"
	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
	"github.com/wolfman30/clinic-occupancy-maps/pkg/logging"
)

// DefaultTTL is used when no TTL is configured.
const DefaultTTL = 15 * time.Minute

// Source fetches reference tables from the scheduling API.
type Source interface {
	ListProfessionals(ctx context.Context) ([]schedule.Professional, error)
	ListSpecialties(ctx context.Context) ([]schedule.Specialty, error)
	ListRooms(ctx context.Context) ([]schedule.Room, error)
	ListUnits(ctx context.Context) ([]schedule.Unit, error)
}

// Store is a second-level cache shared between processes. Load returns nil, nil on miss.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot, ttl time.Duration) error
}

// Snapshot is an immutable copy of the reference tables.
type Snapshot struct {
	Professionals []schedule.Professional `json:"professionals"`
	Specialties   []schedule.Specialty    `json:"specialties"`
	Rooms         []schedule.Room         `json:"rooms"`
	Units         []schedule.Unit         `json:"units"`
	FetchedAt     time.Time               `json:"fetched_at"`
}

// RoomsOfUnit returns the rooms owned by unitID.
func (s *Snapshot) RoomsOfUnit(unitID int64) []schedule.Room {
	var out []schedule.Room
	for _, r := range s.Rooms {
		if r.UnitID == unitID {
			out = append(out, r)
		}
	}
	return out
}

// UnitByName finds a unit ignoring case, accents and whitespace runs.
func (s *Snapshot) UnitByName(name string) (schedule.Unit, bool) {
	key := normalize.Fold(name)
	if key == "" {
		return schedule.Unit{}, false
	}
	for _, u := range s.Units {
		if normalize.Fold(u.Name) == key {
			return u, true
		}
	}
	return schedule.Unit{}, false
}

// UnitByID finds a unit by id.
func (s *Snapshot) UnitByID(id int64) (schedule.Unit, bool) {
	for _, u := range s.Units {
		if u.ID == id {
			return u, true
		}
	}
	return schedule.Unit{}, false
}

// Config wires a Catalog.
type Config struct {
	Source Source
	Store  Store
	TTL    time.Duration
	Now    func() time.Time
	Logger *logging.Logger
}

// Catalog is a read-through TTL cache over Source. Safe for concurrent use.
type Catalog struct {
	source Source
	store  Store
	ttl    time.Duration
	now    func() time.Time
	logger *logging.Logger

	mu      sync.Mutex
	current *Snapshot
	expires time.Time
}

func NewCatalog(cfg Config) (*Catalog, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("refcache: source is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Catalog{
		source: cfg.Source,
		store:  cfg.Store,
		ttl:    ttl,
		now:    now,
		logger: logger,
	}, nil
}

// Snapshot returns the cached tables, refreshing them when the TTL has elapsed.
func (c *Catalog) Snapshot(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.current != nil && now.Before(c.expires) {
		return c.current, nil
	}

	if c.store != nil {
		snap, err := c.store.Load(ctx)
		if err != nil {
			c.logger.Warn("reference cache store load failed", "error", err)
		} else if snap != nil && now.Sub(snap.FetchedAt) < c.ttl {
			c.set(snap, snap.FetchedAt)
			return snap, nil
		}
	}

	snap, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	snap.FetchedAt = now
	c.set(snap, now)

	if c.store != nil {
		if err := c.store.Save(ctx, snap, c.ttl); err != nil {
			c.logger.Warn("reference cache store save failed", "error", err)
		}
	}
	c.logger.Info("reference tables refreshed",
		"professionals", len(snap.Professionals),
		"specialties", len(snap.Specialties),
		"rooms", len(snap.Rooms),
		"units", len(snap.Units),
	)
	return snap, nil
}

// Invalidate drops the in-memory copy. The shared store keeps its own TTL.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = nil
	c.expires = time.Time{}
}

func (c *Catalog) set(snap *Snapshot, fetchedAt time.Time) {
	c.current = snap
	c.expires = fetchedAt.Add(c.ttl)
}

func (c *Catalog) fetch(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := c.source.ListProfessionals(gctx)
		if err != nil {
			return fmt.Errorf("refcache: list professionals: %w", err)
		}
		snap.Professionals = v
		return nil
	})
	g.Go(func() error {
		v, err := c.source.ListSpecialties(gctx)
		if err != nil {
			return fmt.Errorf("refcache: list specialties: %w", err)
		}
		snap.Specialties = v
		return nil
	})
	g.Go(func() error {
		v, err := c.source.ListRooms(gctx)
		if err != nil {
			return fmt.Errorf("refcache: list rooms: %w", err)
		}
		snap.Rooms = v
		return nil
	})
	g.Go(func() error {
		v, err := c.source.ListUnits(gctx)
		if err != nil {
			return fmt.Errorf("refcache: list units: %w", err)
		}
		snap.Units = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}
