package feegow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
)

const (
	pathProfessionals = "/professional/list"
	pathSpecialties   = "/specialties/list"
	pathRooms         = "/company/list-local"
	pathUnits         = "/company/list-unity"
	pathAppointments  = "/appoints/search"
	pathAvailability  = "/appoints/available-schedule"
	pathBlocks        = "/appoints/blocks"
)

// AppointmentQuery selects appointments in a closed date range. UnitID zero means every unit.
type AppointmentQuery struct {
	UnitID int64
	From   schedule.Date
	To     schedule.Date
}

func (q AppointmentQuery) validate() error {
	if q.From.IsZero() || q.To.IsZero() {
		return errors.New("feegow: appointment query needs a date range")
	}
	if q.To.Before(q.From) {
		return fmt.Errorf("feegow: appointment range ends (%s) before it starts (%s)", q.To.ISO(), q.From.ISO())
	}
	return nil
}

type appointmentBody struct {
	DateStart string `json:"data_start"`
	DateEnd   string `json:"data_end"`
	UnitID    int64  `json:"unidade_id,omitempty"`
}

type availabilityBody struct {
	Kind           string `json:"tipo"`
	SpecialtyID    int64  `json:"especialidade_id,omitempty"`
	UnitID         int64  `json:"unidade_id,omitempty"`
	ProfessionalID int64  `json:"profissional_id"`
	DateStart      string `json:"data_start"`
	DateEnd        string `json:"data_end"`
}

// ListProfessionals returns the professional reference table.
func (c *Client) ListProfessionals(ctx context.Context) ([]schedule.Professional, error) {
	payloads, err := getList[professionalPayload](ctx, c, pathProfessionals)
	if err != nil {
		return nil, err
	}
	return convert(c, pathProfessionals, payloads, professionalPayload.toDomain), nil
}

// ListSpecialties returns the specialty reference table.
func (c *Client) ListSpecialties(ctx context.Context) ([]schedule.Specialty, error) {
	payloads, err := getList[specialtyPayload](ctx, c, pathSpecialties, "especialidades")
	if err != nil {
		return nil, err
	}
	return convert(c, pathSpecialties, payloads, specialtyPayload.toDomain), nil
}

// ListRooms returns every room of every unit.
func (c *Client) ListRooms(ctx context.Context) ([]schedule.Room, error) {
	payloads, err := getList[roomPayload](ctx, c, pathRooms, "locais")
	if err != nil {
		return nil, err
	}
	return convert(c, pathRooms, payloads, roomPayload.toDomain), nil
}

// ListUnits returns the clinic units.
func (c *Client) ListUnits(ctx context.Context) ([]schedule.Unit, error) {
	payloads, err := getList[unitPayload](ctx, c, pathUnits, "unidades")
	if err != nil {
		return nil, err
	}
	return convert(c, pathUnits, payloads, unitPayload.toDomain), nil
}

// FetchAppointments returns raw appointment rows; cleaning is left to the normalizer.
func (c *Client) FetchAppointments(ctx context.Context, q AppointmentQuery) ([]schedule.RawAppointment, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	data, err := c.invoke(ctx, http.MethodGet, pathAppointments, nil, appointmentBody{
		DateStart: q.From.BR(),
		DateEnd:   q.To.BR(),
		UnitID:    q.UnitID,
	})
	if err != nil {
		return nil, err
	}
	content, err := decodeContent(http.StatusOK, data)
	if err != nil {
		return nil, err
	}
	return decodeList[schedule.RawAppointment](content, "agendamentos")
}

// FetchAvailableSlots returns the live free slots of one professional. Elapsed slots are
// never returned by the API.
func (c *Client) FetchAvailableSlots(ctx context.Context, q schedule.SlotQuery) ([]schedule.Slot, error) {
	if q.ProfessionalID == 0 {
		return nil, errors.New("feegow: professional id required")
	}
	data, err := c.invoke(ctx, http.MethodGet, pathAvailability, nil, availabilityBody{
		Kind:           "E",
		SpecialtyID:    q.SpecialtyID,
		UnitID:         q.UnitID,
		ProfessionalID: q.ProfessionalID,
		DateStart:      q.From.BR(),
		DateEnd:        q.To.BR(),
	})
	if err != nil {
		return nil, err
	}
	content, err := decodeContent(http.StatusOK, data)
	if err != nil {
		return nil, err
	}
	return decodeSlots(content)
}

// ListBlocks returns the blocks overlapping [from, to].
func (c *Client) ListBlocks(ctx context.Context, from, to schedule.Date) ([]schedule.Block, error) {
	q := url.Values{}
	q.Set("data_start", from.BR())
	q.Set("data_end", to.BR())
	data, err := c.invoke(ctx, http.MethodGet, pathBlocks, q, nil)
	if err != nil {
		return nil, err
	}
	content, err := decodeContent(http.StatusOK, data)
	if err != nil {
		return nil, err
	}
	payloads, err := decodeList[blockPayload](content, "bloqueios", "blocks")
	if err != nil {
		return nil, err
	}
	return convert(c, pathBlocks, payloads, blockPayload.toDomain), nil
}

func getList[T any](ctx context.Context, c *Client, path string, keys ...string) ([]T, error) {
	data, err := c.invoke(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	content, err := decodeContent(http.StatusOK, data)
	if err != nil {
		return nil, err
	}
	return decodeList[T](content, keys...)
}

// convert maps payloads to domain values, skipping rows without a usable id.
func convert[P any, D any](c *Client, path string, payloads []P, fn func(P) (D, bool)) []D {
	out := make([]D, 0, len(payloads))
	skipped := 0
	for _, p := range payloads {
		d, ok := fn(p)
		if !ok {
			skipped++
			continue
		}
		out = append(out, d)
	}
	if skipped > 0 {
		c.logger.Debug("feegow skipped rows without id", "path", path, "skipped", skipped)
	}
	return out
}
