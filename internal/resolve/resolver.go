package resolve

import (
	"github.com/wolfman30/clinic-occupancy-maps/internal/normalize"
	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
	"github.com/wolfman30/clinic-occupancy-maps/pkg/logging"
)

// Reference holds the lookup tables for one report run. It is read-only once built.
type Reference struct {
	Professionals map[int64]schedule.Professional
	Specialties   map[int64]schedule.Specialty
	Rooms         map[int64]schedule.Room
	Units         map[int64]schedule.Unit
}

// NewReference indexes reference tables by id. Later duplicates win.
func NewReference(pros []schedule.Professional, specs []schedule.Specialty, rooms []schedule.Room, units []schedule.Unit) Reference {
	ref := Reference{
		Professionals: make(map[int64]schedule.Professional, len(pros)),
		Specialties:   make(map[int64]schedule.Specialty, len(specs)),
		Rooms:         make(map[int64]schedule.Room, len(rooms)),
		Units:         make(map[int64]schedule.Unit, len(units)),
	}
	for _, p := range pros {
		ref.Professionals[p.ID] = p
	}
	for _, s := range specs {
		ref.Specialties[s.ID] = s
	}
	for _, r := range rooms {
		ref.Rooms[r.ID] = r
	}
	for _, u := range units {
		ref.Units[u.ID] = u
	}
	return ref
}

// Stats counts what the resolver filled and dropped.
type Stats struct {
	Input               int `json:"input"`
	Output              int `json:"output"`
	FilledFromSiblings  int `json:"filled_from_siblings"`
	FilledFromDominant  int `json:"filled_from_dominant"`
	FilledFromRegistry  int `json:"filled_from_registry"`
	DroppedIncomplete   int `json:"dropped_incomplete"`
	DroppedSpecialty    int `json:"dropped_specialty"`
	DroppedProfessional int `json:"dropped_professional"`
	DroppedRoom         int `json:"dropped_room"`
}

// Dropped is the total number of records removed.
func (s Stats) Dropped() int {
	return s.DroppedIncomplete + s.DroppedSpecialty + s.DroppedProfessional + s.DroppedRoom
}

func (s *Stats) add(other Stats) {
	s.Input += other.Input
	s.Output += other.Output
	s.FilledFromSiblings += other.FilledFromSiblings
	s.FilledFromDominant += other.FilledFromDominant
	s.FilledFromRegistry += other.FilledFromRegistry
	s.DroppedIncomplete += other.DroppedIncomplete
	s.DroppedSpecialty += other.DroppedSpecialty
	s.DroppedProfessional += other.DroppedProfessional
	s.DroppedRoom += other.DroppedRoom
}

// Resolver joins records against the reference tables and fills missing keys.
type Resolver struct {
	ref      Reference
	dominant map[int64]int64
	logger   *logging.Logger
}

// New creates a Resolver. history feeds the dominant-specialty heuristic and may
// include the rows that will later be resolved.
func New(ref Reference, history []normalize.Row, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{
		ref:      ref,
		dominant: DominantSpecialties(history),
		logger:   logger,
	}
}

// Reference returns the tables the resolver joins against.
func (r *Resolver) Reference() Reference {
	return r.ref
}

// SpecialtyFor returns the dominant or registered specialty for a professional.
func (r *Resolver) SpecialtyFor(professionalID int64) (int64, bool) {
	if id, ok := r.dominant[professionalID]; ok {
		return id, true
	}
	if p, ok := r.ref.Professionals[professionalID]; ok && len(p.SpecialtyIDs) > 0 {
		return p.SpecialtyIDs[0], true
	}
	return 0, false
}

// Appointments fills specialties, converts rows into records and resolves display names.
// Rows missing date, time, professional or room are dropped.
func (r *Resolver) Appointments(rows []normalize.Row) ([]schedule.Record, Stats) {
	var stats Stats
	stats.Input = len(rows)

	filled, siblings := FillSpecialties(rows)
	stats.FilledFromSiblings = siblings

	records := make([]schedule.Record, 0, len(filled))
	for _, row := range filled {
		if !row.Date.Valid || !row.Time.Valid || !row.ProfessionalID.Valid || !row.RoomID.Valid {
			stats.DroppedIncomplete++
			continue
		}
		rec := schedule.Record{
			AppointmentID:    row.AppointmentID.Value,
			Date:             row.Date.Value,
			Time:             row.Time.Value,
			ProfessionalID:   row.ProfessionalID.Value,
			RoomID:           row.RoomID.Value,
			UnitID:           row.UnitID.Value,
			PatientID:        row.PatientID.Value,
			Status:           schedule.Status(row.StatusID.Value),
			Origin:           schedule.OriginAppointment,
			ProfessionalName: row.ProfessionalName,
			SpecialtyName:    row.SpecialtyName,
			RoomName:         row.RoomName,
			UnitName:         row.UnitName,
		}
		if row.SpecialtyID.Valid {
			rec.SpecialtyID = row.SpecialtyID.Value
		} else if id, ok := r.dominant[rec.ProfessionalID]; ok {
			rec.SpecialtyID = id
			stats.FilledFromDominant++
		} else if p, ok := r.ref.Professionals[rec.ProfessionalID]; ok && len(p.SpecialtyIDs) > 0 {
			rec.SpecialtyID = p.SpecialtyIDs[0]
			stats.FilledFromRegistry++
		}
		records = append(records, rec)
	}

	resolved, nameStats := r.Names(records)
	stats.add(Stats{
		DroppedSpecialty:    nameStats.DroppedSpecialty,
		DroppedProfessional: nameStats.DroppedProfessional,
		DroppedRoom:         nameStats.DroppedRoom,
	})
	stats.Output = len(resolved)

	if stats.Dropped() > 0 {
		r.logger.Debug("resolver dropped records",
			"input", stats.Input,
			"incomplete", stats.DroppedIncomplete,
			"specialty", stats.DroppedSpecialty,
			"professional", stats.DroppedProfessional,
			"room", stats.DroppedRoom,
		)
	}
	return resolved, stats
}

// Names resolves display names for records that already carry ids. Any record whose
// specialty, professional or room name resolves to an empty or null-like token is dropped.
func (r *Resolver) Names(records []schedule.Record) ([]schedule.Record, Stats) {
	stats := Stats{Input: len(records)}
	out := make([]schedule.Record, 0, len(records))
	for _, rec := range records {
		switch s, ok := r.ref.Specialties[rec.SpecialtyID]; {
		case rec.SpecialtyID == 0:
			rec.SpecialtyName = ""
		case ok:
			rec.SpecialtyName = s.Name
		}
		if p, ok := r.ref.Professionals[rec.ProfessionalID]; ok {
			rec.ProfessionalName = p.DisplayName()
		}
		room, hasRoom := r.ref.Rooms[rec.RoomID]
		if hasRoom {
			rec.RoomName = room.Name
			if rec.UnitID == 0 {
				rec.UnitID = room.UnitID
			}
		}
		if normalize.IsNullToken(rec.UnitName) {
			rec.UnitName = r.unitName(rec, room, hasRoom)
		}

		rec.SpecialtyName = normalize.CleanText(rec.SpecialtyName)
		rec.ProfessionalName = normalize.CleanText(rec.ProfessionalName)
		rec.RoomName = normalize.CleanText(rec.RoomName)
		rec.UnitName = normalize.CleanText(rec.UnitName)

		switch {
		case rec.SpecialtyName == "":
			stats.DroppedSpecialty++
			continue
		case rec.ProfessionalName == "":
			stats.DroppedProfessional++
			continue
		case rec.RoomName == "":
			stats.DroppedRoom++
			continue
		}
		out = append(out, rec)
	}
	stats.Output = len(out)
	return out, stats
}

func (r *Resolver) unitName(rec schedule.Record, room schedule.Room, hasRoom bool) string {
	if hasRoom {
		if u, ok := r.ref.Units[room.UnitID]; ok {
			return u.Name
		}
	}
	if u, ok := r.ref.Units[rec.UnitID]; ok {
		return u.Name
	}
	return ""
}
