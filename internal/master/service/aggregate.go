package service

import v1 "github.com/flightlab-io/flightlab/api/v1"

// Aggregate rolls component statuses up into a SystemState. NOT_APPLICABLE
// entries are ignored; an empty set is OFF.
func Aggregate(statuses []v1.Status) v1.SystemState {
	var on, off, transient, unknown bool
	for _, s := range statuses {
		switch s {
		case v1.StatusUnknown:
			unknown = true
		case v1.StatusTransient:
			transient = true
		case v1.StatusOn:
			on = true
		case v1.StatusOff:
			off = true
		}
	}

	switch {
	case unknown:
		return v1.SystemStateUnknown
	case transient:
		return v1.SystemStateTransient
	case on && off:
		return v1.SystemStateTransient
	case on:
		return v1.SystemStateOn
	default:
		return v1.SystemStateOff
	}
}

// SystemStates lists every state, for gauges that track the current one.
var SystemStates = []string{
	v1.SystemStateUnknown.String(),
	v1.SystemStateOff.String(),
	v1.SystemStateOn.String(),
	v1.SystemStateTransient.String(),
}
