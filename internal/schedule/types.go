package schedule

import (
	"fmt"
	"time"
)

// Clock is a wall-clock time of day with second precision.
type Clock struct {
	Hour   int
	Minute int
	Second int
}

// NewClock builds a Clock, returning false when a component is out of range.
func NewClock(h, m, s int) (Clock, bool) {
	if h < 0 || h > 23 || m < 0 || m > 59 || s < 0 || s > 59 {
		return Clock{}, false
	}
	return Clock{Hour: h, Minute: m, Second: s}, true
}

// Seconds returns the offset of the clock from midnight.
func (c Clock) Seconds() int {
	return c.Hour*3600 + c.Minute*60 + c.Second
}

// Before reports whether c is strictly earlier than other.
func (c Clock) Before(other Clock) bool {
	return c.Seconds() < other.Seconds()
}

// HHMM formats the clock as "15:04".
func (c Clock) HHMM() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

// Date is a calendar date without a time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time returns midnight UTC for the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays shifts the date by n days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

func (d Date) After(other Date) bool {
	return d.Time().After(other.Time())
}

// Within reports whether d lies in the closed range [from, to].
func (d Date) Within(from, to Date) bool {
	return !d.Before(from) && !d.After(to)
}

// ISO formats the date as YYYY-MM-DD, the layout used by the upstream API.
func (d Date) ISO() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// BR formats the date as DD-MM-YYYY.
func (d Date) BR() string {
	return fmt.Sprintf("%02d-%02d-%04d", d.Day, int(d.Month), d.Year)
}

func (d Date) String() string {
	return d.ISO()
}

// DaysBetween returns the number of days from a to b (negative when b precedes a).
func DaysBetween(a, b Date) int {
	return int(b.Time().Sub(a.Time()).Hours() / 24)
}

// Origin distinguishes booked appointments from reconstructed free slots.
type Origin string

const (
	OriginAppointment Origin = "appointment"
	OriginLive        Origin = "availability_live"
	OriginMirror      Origin = "availability_mirror"
)

// Record is the unified schedule row flowing through the pipeline after normalization.
type Record struct {
	AppointmentID  int64
	Date           Date
	Time           Clock
	ProfessionalID int64
	SpecialtyID    int64
	RoomID         int64
	UnitID         int64
	PatientID      int64
	Status         Status
	Origin         Origin

	// Display fields. Filled by the resolver when empty.
	ProfessionalName string
	SpecialtyName    string
	RoomName         string
	UnitName         string
}

// IsFree reports whether the record is a reconstructed availability slot.
func (r Record) IsFree() bool {
	return r.Status == StatusFree
}

// Professional is an entry of the professional reference table.
type Professional struct {
	ID           int64
	Name         string
	Title        string  // honorific prefix, e.g. "Dr."
	SpecialtyIDs []int64 // registered specialties in vendor order
	UnitIDs      []int64
}

// DisplayName joins the honorific prefix with the name.
func (p Professional) DisplayName() string {
	if p.Title == "" {
		return p.Name
	}
	return p.Title + " " + p.Name
}

type Specialty struct {
	ID   int64
	Name string
}

type Room struct {
	ID     int64
	Name   string
	UnitID int64
}

type Unit struct {
	ID   int64
	Name string
}

// Slot is one free (date, time) returned by the live availability feed.
type Slot struct {
	Date           Date
	Time           Clock
	ProfessionalID int64
	RoomID         int64
}

// Block is an administrative blackout entry. ProfessionalID zero applies to every professional.
// Units keeps the identifiers exactly as the source sent them; the source mixes numeric and
// textual forms, so comparison must go through the blocking package.
type Block struct {
	ID             int64
	ProfessionalID int64
	Units          []Loose
	StartDate      Date
	EndDate        Date
	StartTime      Opt[Clock]
	EndTime        Opt[Clock]
}

// Opt is an optional value.
type Opt[T any] struct {
	Value T
	Valid bool
}

// Some wraps a present value.
func Some[T any](v T) Opt[T] {
	return Opt[T]{Value: v, Valid: true}
}

// Or returns the value when present, otherwise fallback.
func (o Opt[T]) Or(fallback T) T {
	if o.Valid {
		return o.Value
	}
	return fallback
}

// SlotQuery selects live availability for one professional and specialty.
type SlotQuery struct {
	UnitID         int64
	ProfessionalID int64
	SpecialtyID    int64
	From           Date
	To             Date
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.ISO()), nil
}
