package feegow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/wolfman30/clinic-occupancy-maps/internal/normalize"
	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
)

type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Content json.RawMessage `json:"content"`
}

// decodeContent unwraps the {"success":..,"content":..} envelope.
func decodeContent(status int, data []byte) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if env.Success != nil && !*env.Success {
		msg := env.Message
		if msg == "" && len(env.Content) > 0 && env.Content[0] == '"' {
			_ = json.Unmarshal(env.Content, &msg)
		}
		return nil, &APIError{StatusCode: status, Message: msg, Body: string(data)}
	}
	return env.Content, nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("[]")) || bytes.Equal(trimmed, []byte("{}"))
}

// looseList accepts an array of scalars, a single scalar, or null.
type looseList []schedule.Loose

func (l *looseList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []schedule.Loose
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var single schedule.Loose
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	if single.Valid() {
		*l = looseList{single}
	} else {
		*l = nil
	}
	return nil
}

type specialtyRef struct {
	ID schedule.Loose `json:"especialidade_id"`
}

type professionalPayload struct {
	ID          schedule.Loose `json:"profissional_id"`
	Name        schedule.Loose `json:"nome"`
	Title       schedule.Loose `json:"tratamento"`
	Specialties []specialtyRef `json:"especialidades"`
	Units       looseList      `json:"unidades"`
}

func (p professionalPayload) toDomain() (schedule.Professional, bool) {
	id, ok := p.ID.Int()
	if !ok {
		return schedule.Professional{}, false
	}
	out := schedule.Professional{
		ID:    id,
		Name:  normalize.CleanText(p.Name.String()),
		Title: normalize.CleanText(p.Title.String()),
	}
	for _, s := range p.Specialties {
		if sid, ok := s.ID.Int(); ok {
			out.SpecialtyIDs = append(out.SpecialtyIDs, sid)
		}
	}
	for _, u := range p.Units {
		if uid, ok := u.Int(); ok {
			out.UnitIDs = append(out.UnitIDs, uid)
		}
	}
	return out, true
}

type specialtyPayload struct {
	ID      schedule.Loose `json:"especialidade_id"`
	Name    schedule.Loose `json:"nome"`
	AltName schedule.Loose `json:"nome_especialidade"`
}

func (p specialtyPayload) toDomain() (schedule.Specialty, bool) {
	id, ok := p.ID.Int()
	if !ok {
		return schedule.Specialty{}, false
	}
	name := normalize.CleanText(p.Name.String())
	if name == "" {
		name = normalize.CleanText(p.AltName.String())
	}
	return schedule.Specialty{ID: id, Name: name}, true
}

type roomPayload struct {
	ID     schedule.Loose `json:"id"`
	Name   schedule.Loose `json:"local"`
	UnitID schedule.Loose `json:"unidade_id"`
}

func (p roomPayload) toDomain() (schedule.Room, bool) {
	id, ok := p.ID.Int()
	if !ok {
		return schedule.Room{}, false
	}
	unitID, _ := p.UnitID.Int()
	return schedule.Room{ID: id, Name: normalize.CleanText(p.Name.String()), UnitID: unitID}, true
}

type unitPayload struct {
	ID        schedule.Loose `json:"unidade_id"`
	Name      schedule.Loose `json:"nome_fantasia"`
	LegalName schedule.Loose `json:"nome"`
}

func (p unitPayload) toDomain() (schedule.Unit, bool) {
	id, ok := p.ID.Int()
	if !ok {
		return schedule.Unit{}, false
	}
	name := normalize.CleanText(p.Name.String())
	if name == "" {
		name = normalize.CleanText(p.LegalName.String())
	}
	return schedule.Unit{ID: id, Name: name}, true
}

type blockPayload struct {
	ID             schedule.Loose `json:"id"`
	ProfessionalID schedule.Loose `json:"professional_id"`
	Units          looseList      `json:"units"`
	UnitID         schedule.Loose `json:"unidade_id"`
	DateStart      schedule.Loose `json:"date_start"`
	DateEnd        schedule.Loose `json:"date_end"`
	TimeStart      schedule.Loose `json:"time_start"`
	TimeEnd        schedule.Loose `json:"time_end"`
}

func (p blockPayload) toDomain() (schedule.Block, bool) {
	start, ok := normalize.ParseDate(p.DateStart.String())
	if !ok {
		return schedule.Block{}, false
	}
	end, ok := normalize.ParseDate(p.DateEnd.String())
	if !ok {
		end = start
	}
	id, _ := p.ID.Int()
	pid, _ := p.ProfessionalID.Int()
	out := schedule.Block{
		ID:             id,
		ProfessionalID: pid,
		Units:          []schedule.Loose(p.Units),
		StartDate:      start,
		EndDate:        end,
	}
	if len(out.Units) == 0 && p.UnitID.Valid() {
		out.Units = []schedule.Loose{p.UnitID}
	}
	if c, ok := normalize.ParseClock(p.TimeStart.String()); ok {
		out.StartTime = schedule.Some(c)
	}
	if c, ok := normalize.ParseClock(p.TimeEnd.String()); ok {
		out.EndTime = schedule.Some(c)
	}
	return out, true
}

// decodeList decodes content that is either an array or an object wrapping the array
// under one of keys.
func decodeList[T any](content json.RawMessage, keys ...string) ([]T, error) {
	if isEmptyJSON(content) {
		return nil, nil
	}
	trimmed := bytes.TrimSpace(content)
	if trimmed[0] == '[' {
		var out []T
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return out, nil
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	for _, k := range keys {
		if inner, ok := wrapper[k]; ok {
			return decodeList[T](inner)
		}
	}
	return nil, fmt.Errorf("%w: expected list content", ErrMalformedPayload)
}

// decodeSlots walks content.profissional_id.<pid>.local_id.<room>.<date>: [times].
// Some accounts nest the dates under "horarios"; both shapes are accepted.
func decodeSlots(content json.RawMessage) ([]schedule.Slot, error) {
	if isEmptyJSON(content) {
		return nil, nil
	}
	var root struct {
		Professionals map[string]struct {
			Rooms map[string]json.RawMessage `json:"local_id"`
		} `json:"profissional_id"`
	}
	if err := json.Unmarshal(content, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	var out []schedule.Slot
	for pidText, prof := range root.Professionals {
		pid, _ := schedule.LooseString(pidText).Int()
		for roomText, raw := range prof.Rooms {
			roomID, _ := schedule.LooseString(roomText).Int()
			slots, err := decodeDates(raw, pid, roomID)
			if err != nil {
				return nil, err
			}
			out = append(out, slots...)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		if a.Time != b.Time {
			return a.Time.Before(b.Time)
		}
		if a.ProfessionalID != b.ProfessionalID {
			return a.ProfessionalID < b.ProfessionalID
		}
		return a.RoomID < b.RoomID
	})
	return out, nil
}

func decodeDates(raw json.RawMessage, pid, roomID int64) ([]schedule.Slot, error) {
	if isEmptyJSON(raw) {
		return nil, nil
	}
	var byKey map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byKey); err != nil {
		return nil, fmt.Errorf("%w: slots for room %d: %v", ErrMalformedPayload, roomID, err)
	}
	var out []schedule.Slot
	for key, value := range byKey {
		if key == "horarios" {
			nested, err := decodeDates(value, pid, roomID)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
			continue
		}
		day, ok := normalize.ParseDate(key)
		if !ok {
			continue
		}
		var times []schedule.Loose
		if err := json.Unmarshal(value, &times); err != nil {
			return nil, fmt.Errorf("%w: times for %s: %v", ErrMalformedPayload, key, err)
		}
		for _, t := range times {
			clock, ok := normalize.ParseClock(t.String())
			if !ok {
				continue
			}
			out = append(out, schedule.Slot{Date: day, Time: clock, ProfessionalID: pid, RoomID: roomID})
		}
	}
	return out, nil
}
