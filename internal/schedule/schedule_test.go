package schedule

import (
	"encoding/json"
	"testing"
	"time"
)

func TestLooseUnmarshalMixedTypes(t *testing.T) {
	var row RawAppointment
	payload := `{"agendamento_id": 123, "data": "05-03-2024", "profissional_id": "42", "especialidade_id": null, "local_id": 7.0, "status_id": true}`
	if err := json.Unmarshal([]byte(payload), &row); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if id, ok := row.AppointmentID.Int(); !ok || id != 123 {
		t.Fatalf("expected appointment id 123, got %d ok=%v", id, ok)
	}
	if id, ok := row.ProfessionalID.Int(); !ok || id != 42 {
		t.Fatalf("expected professional id 42, got %d ok=%v", id, ok)
	}
	if row.SpecialtyID.Valid() {
		t.Fatalf("expected null specialty to be invalid")
	}
	if id, ok := row.RoomID.Int(); !ok || id != 7 {
		t.Fatalf("expected room id 7, got %d ok=%v", id, ok)
	}
	if _, ok := row.StatusID.Int(); ok {
		t.Fatalf("boolean status should not parse as int")
	}
	if row.Time.Valid() {
		t.Fatalf("missing column should be invalid")
	}
}

func TestLooseIntRejectsFraction(t *testing.T) {
	if _, ok := LooseString("12.5").Int(); ok {
		t.Fatalf("fractional id should not parse")
	}
	if _, ok := LooseString("  ").Int(); ok {
		t.Fatalf("blank id should not parse")
	}
}

func TestDateArithmetic(t *testing.T) {
	d := Date{Year: 2024, Month: time.February, Day: 28}
	if got := d.AddDays(1); got != (Date{Year: 2024, Month: time.February, Day: 29}) {
		t.Fatalf("leap day: got %v", got)
	}
	if got := d.AddDays(14).ISO(); got != "2024-03-13" {
		t.Fatalf("expected 2024-03-13, got %s", got)
	}
	if DaysBetween(d, d.AddDays(7)) != 7 {
		t.Fatalf("expected 7 days between")
	}
	if d.BR() != "28-02-2024" {
		t.Fatalf("unexpected BR format %s", d.BR())
	}
	if !d.Within(d, d) {
		t.Fatalf("date should be within its own closed range")
	}
}

func TestStatusSetEligibility(t *testing.T) {
	set := DefaultStatusSet()
	if !set.Contains(StatusConfirmed) || set.Contains(StatusNoShow) {
		t.Fatalf("unexpected membership")
	}
	if !set.Eligible(StatusFree) {
		t.Fatalf("free slots must be grid eligible")
	}
	if set.Eligible(StatusCanceledByPatient) {
		t.Fatalf("canceled appointments must not be eligible")
	}
	sorted := set.Sorted()
	if len(sorted) != 5 || sorted[0] != StatusScheduled || sorted[4] != StatusConfirmed {
		t.Fatalf("unexpected sorted statuses %v", sorted)
	}
}

func TestClockValidation(t *testing.T) {
	if _, ok := NewClock(24, 0, 0); ok {
		t.Fatalf("hour 24 must be rejected")
	}
	c, ok := NewClock(9, 5, 0)
	if !ok || c.HHMM() != "09:05" || c.String() != "09:05:00" {
		t.Fatalf("unexpected clock %v", c)
	}
}
