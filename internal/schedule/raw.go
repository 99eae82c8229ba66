package schedule

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Loose holds a scalar JSON value that may arrive as a string, a number, a bool or null.
// The upstream API is inconsistent about column types, so raw rows keep the textual
// form and leave interpretation to the normalizer.
type Loose struct {
	raw   string
	valid bool
}

// LooseString builds a present value from text.
func LooseString(s string) Loose {
	return Loose{raw: s, valid: true}
}

// LooseInt builds a present value from an integer.
func LooseInt(n int64) Loose {
	return Loose{raw: strconv.FormatInt(n, 10), valid: true}
}

func (l *Loose) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = Loose{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = Loose{raw: s, valid: true}
		return nil
	}
	if data[0] == '{' || data[0] == '[' {
		// Nested structures are not scalar columns; keep them as absent.
		*l = Loose{}
		return nil
	}
	*l = Loose{raw: string(data), valid: true}
	return nil
}

func (l Loose) MarshalJSON() ([]byte, error) {
	if !l.valid {
		return []byte("null"), nil
	}
	return json.Marshal(l.raw)
}

// Valid reports whether the value was present and non-null.
func (l Loose) Valid() bool {
	return l.valid
}

// String returns the raw text, or "" when absent.
func (l Loose) String() string {
	return l.raw
}

// Int parses the value as an integer id. Float text with a zero fraction ("12.0") is
// accepted because spreadsheet-like exports produce it.
func (l Loose) Int() (int64, bool) {
	if !l.valid {
		return 0, false
	}
	s := strings.TrimSpace(l.raw)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

// RawAppointment is an appointment row as returned by the upstream appointment listing.
type RawAppointment struct {
	AppointmentID    Loose `json:"agendamento_id"`
	Date             Loose `json:"data"`
	Time             Loose `json:"horario"`
	ProfessionalID   Loose `json:"profissional_id"`
	SpecialtyID      Loose `json:"especialidade_id"`
	RoomID           Loose `json:"local_id"`
	UnitID           Loose `json:"unidade_id"`
	StatusID         Loose `json:"status_id"`
	PatientID        Loose `json:"paciente_id"`
	ProfessionalName Loose `json:"nome_profissional"`
	UnitName         Loose `json:"nome_fantasia"`
	SpecialtyName    Loose `json:"especialidade"`
	RoomName         Loose `json:"sala"`
}
