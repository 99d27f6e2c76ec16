package order

import (
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// Status is the fulfilment state of an order.
//
// Pending is the only initial state. Completed and Cancelled are terminal:
// a terminal order accepts a transition to its own status as a no-op and
// rejects everything else. Non-terminal states may move to any state.
type Status uint8

const (
	_ Status = iota
	StatusPending
	StatusConfirmed
	StatusPreparing
	StatusReady
	StatusCompleted
	StatusCancelled
)

var statusNames = [...]string{
	StatusPending:   "pending",
	StatusConfirmed: "confirmed",
	StatusPreparing: "preparing",
	StatusReady:     "ready",
	StatusCompleted: "completed",
	StatusCancelled: "cancelled",
}

// ErrUnknownStatus is returned by ParseStatus for values outside the set.
var ErrUnknownStatus = errors.New("unknown status")

// Statuses returns all statuses in lifecycle order.
func Statuses() []Status {
	return []Status{
		StatusPending,
		StatusConfirmed,
		StatusPreparing,
		StatusReady,
		StatusCompleted,
		StatusCancelled,
	}
}

// ParseStatus converts the wire value into a Status.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses() {
		if statusNames[st] == s {
			return st, nil
		}
	}
	return 0, ErrUnknownStatus
}

// Valid reports whether s is a member of the status set.
func (s Status) Valid() bool {
	return s >= StatusPending && s <= StatusCancelled
}

func (s Status) String() string {
	if !s.Valid() {
		return "unknown"
	}
	return statusNames[s]
}

// Label is the display form, e.g. "Preparing".
func (s Status) Label() string {
	name := s.String()
	return strings.ToUpper(name[:1]) + name[1:]
}

// IsTerminal reports whether no further status or content change is
// permitted.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled:
		return true
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReady:
		return false
	default:
		return false
	}
}

// IsDeletable reports whether an order in this status may be deleted.
func (s Status) IsDeletable() bool {
	switch s {
	case StatusPending, StatusCancelled:
		return true
	case StatusConfirmed, StatusPreparing, StatusReady, StatusCompleted:
		return false
	default:
		return false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, errors.Errorf("invalid status %d", uint8(s))
	}
	return []byte(statusNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return errors.Wrapf(err, "%q", b)
	}
	*s = v
	return nil
}

func validStatusList() string {
	names := make([]string, 0, len(statusNames))
	for _, st := range Statuses() {
		names = append(names, st.String())
	}
	return strings.Join(names, ", ")
}

// Transition moves the order to target. It reports whether anything
// changed: a terminal order asked for its own status is left untouched.
func (o *Order) Transition(target Status, now time.Time) (bool, error) {
	if !target.Valid() {
		return false, invalid("invalid status, must be one of: %s", validStatusList())
	}
	if o.Status.IsTerminal() {
		if target != o.Status {
			return false, invalidState("cannot change status of a %s order", o.Status)
		}
		return false, nil
	}
	o.Status = target
	o.UpdatedAt = now
	return true, nil
}
