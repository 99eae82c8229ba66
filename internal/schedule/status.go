package schedule

import "sort"

// Status is the vendor appointment status code.
type Status int

const (
	StatusFree                   Status = -1
	StatusScheduled              Status = 1
	StatusInProgress             Status = 2
	StatusAttended               Status = 3
	StatusWaiting                Status = 4
	StatusNoShow                 Status = 6
	StatusConfirmed              Status = 7
	StatusCanceledByPatient      Status = 11
	StatusRescheduled            Status = 15
	StatusCanceledByProfessional Status = 16
	StatusCanceledByClinic       Status = 22
)

var statusLabels = map[Status]string{
	StatusFree:                   "LIVRE",
	StatusScheduled:              "MARCADO - NÃO CONFIRMADO",
	StatusInProgress:             "EM ANDAMENTO",
	StatusAttended:               "ATENDIDO",
	StatusWaiting:                "EM ATENDIMENTO/AGUARDANDO",
	StatusNoShow:                 "NÃO COMPARECEU",
	StatusConfirmed:              "MARCADO - CONFIRMADO",
	StatusCanceledByPatient:      "DESMARCADO PELO PACIENTE",
	StatusRescheduled:            "REMARCADO",
	StatusCanceledByProfessional: "DESMARCADO PELO PROFISSIONAL",
	StatusCanceledByClinic:       "CANCELADO PELO PROFISSIONAL",
}

// Label returns the vendor display label, or an empty string for unknown codes.
func (s Status) Label() string {
	return statusLabels[s]
}

// DefaultActiveStatuses are the statuses that count as room occupancy.
var DefaultActiveStatuses = []Status{
	StatusScheduled,
	StatusConfirmed,
	StatusInProgress,
	StatusAttended,
	StatusWaiting,
}

// StatusSet is an immutable membership set of statuses.
type StatusSet struct {
	members map[Status]struct{}
}

func NewStatusSet(statuses ...Status) StatusSet {
	m := make(map[Status]struct{}, len(statuses))
	for _, s := range statuses {
		m[s] = struct{}{}
	}
	return StatusSet{members: m}
}

// DefaultStatusSet wraps DefaultActiveStatuses.
func DefaultStatusSet() StatusSet {
	return NewStatusSet(DefaultActiveStatuses...)
}

func (s StatusSet) Contains(status Status) bool {
	_, ok := s.members[status]
	return ok
}

func (s StatusSet) Len() int {
	return len(s.members)
}

// Eligible reports whether a record enters the occupancy grid: free slots and active statuses do.
func (s StatusSet) Eligible(status Status) bool {
	return status == StatusFree || s.Contains(status)
}

// Sorted returns members in ascending code order.
func (s StatusSet) Sorted() []Status {
	out := make([]Status, 0, len(s.members))
	for st := range s.members {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
