package v1

// Fixed per-kind tables deriving the generic status from the kind status.

var appStatusMapping = map[AppStatus]Status{
	AppStatusUnknown:    StatusUnknown,
	AppStatusRunning:    StatusOn,
	AppStatusNotRunning: StatusOff,
}

var projectorStatusMapping = map[ProjectorStatus]Status{
	ProjectorStatusUnknown:  StatusUnknown,
	ProjectorStatusOn:       StatusOn,
	ProjectorStatusOff:      StatusOff,
	ProjectorStatusWarmUp:   StatusTransient,
	ProjectorStatusCoolDown: StatusTransient,
}

// AppGenericStatus maps an app status to the generic status.
func AppGenericStatus(s AppStatus) Status {
	if g, ok := appStatusMapping[s]; ok {
		return g
	}
	return StatusUnknown
}

// WindowsAppGenericStatus maps a windows_app status to the generic status.
// Only apps driven by the NORMAL run option take part in the system state.
func WindowsAppGenericStatus(opt RunOption, s AppStatus) Status {
	if opt != RunOptionNormal {
		return StatusNotApplicable
	}
	return AppGenericStatus(s)
}

// ProjectorGenericStatus maps a projector status to the generic status.
func ProjectorGenericStatus(s ProjectorStatus) Status {
	if g, ok := projectorStatusMapping[s]; ok {
		return g
	}
	return StatusUnknown
}

// BadgerGenericStatus maps a badger status to the generic status. Access
// readers never hold the system state.
func BadgerGenericStatus(BadgerStatus) Status {
	return StatusNotApplicable
}

// DefaultStatus is the generic status the component reports before its first
// observation.
func (c *Component) DefaultStatus() Status {
	switch {
	case c.App != nil, c.Projector != nil:
		return StatusUnknown
	case c.WindowsApp != nil:
		return WindowsAppGenericStatus(c.WindowsApp.RunOption, AppStatusUnknown)
	}
	return StatusNotApplicable
}
