package v1

import "fmt"

// Kind names the settings variant of a component.
type Kind string

const (
	KindUnknown     Kind = ""
	KindApp         Kind = "app"
	KindCommandLine Kind = "commandline"
	KindWindowsApp  Kind = "windows_app"
	KindLight       Kind = "light"
	KindProjector   Kind = "projector"
	KindSound       Kind = "sound"
	KindBadger      Kind = "badger"
)

// Kind reports which settings variant is set. It returns KindUnknown when
// none is set; Validate rejects components with more than one.
func (c *Component) Kind() Kind {
	kinds := c.kinds()
	if len(kinds) == 0 {
		return KindUnknown
	}
	return kinds[0]
}

// Validate checks that exactly one kind variant is set.
func (c *Component) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("component name is required")
	}
	switch kinds := c.kinds(); len(kinds) {
	case 0:
		return fmt.Errorf("component %q: no kind settings", c.Name)
	case 1:
		return nil
	default:
		return fmt.Errorf("component %q: multiple kinds set %v", c.Name, kinds)
	}
}

func (c *Component) kinds() []Kind {
	var kinds []Kind
	if c.App != nil {
		kinds = append(kinds, KindApp)
	}
	if c.CommandLine != nil {
		kinds = append(kinds, KindCommandLine)
	}
	if c.WindowsApp != nil {
		kinds = append(kinds, KindWindowsApp)
	}
	if c.Light != nil {
		kinds = append(kinds, KindLight)
	}
	if c.Projector != nil {
		kinds = append(kinds, KindProjector)
	}
	if c.Sound != nil {
		kinds = append(kinds, KindSound)
	}
	if c.Badger != nil {
		kinds = append(kinds, KindBadger)
	}
	return kinds
}

// HasKindStatus reports whether the kind carries its own status enum.
func (k Kind) HasKindStatus() bool {
	switch k {
	case KindApp, KindWindowsApp, KindProjector, KindBadger:
		return true
	}
	return false
}

// StatusReport builds the wire status of the component from its config.
func (c *Component) StatusReport() *ComponentStatus {
	cs := &ComponentStatus{Name: c.Name, Status: c.Status}
	switch {
	case c.App != nil:
		s := c.App.Status
		cs.AppStatus = &s
	case c.WindowsApp != nil:
		s := c.WindowsApp.Status
		cs.WindowsAppStatus = &s
	case c.Projector != nil:
		s := c.Projector.Status
		cs.ProjectorStatus = &s
	case c.Badger != nil:
		s := c.Badger.Status
		cs.BadgerStatus = &s
	}
	return cs
}

// ApplyStatus copies the generic status and the kind status of cs into the
// component. A kind status that does not match the component's kind is ignored.
func (c *Component) ApplyStatus(cs *ComponentStatus) {
	c.Status = cs.Status
	switch {
	case c.App != nil && cs.AppStatus != nil:
		c.App.Status = *cs.AppStatus
	case c.WindowsApp != nil && cs.WindowsAppStatus != nil:
		c.WindowsApp.Status = *cs.WindowsAppStatus
	case c.Projector != nil && cs.ProjectorStatus != nil:
		c.Projector.Status = *cs.ProjectorStatus
	case c.Badger != nil && cs.BadgerStatus != nil:
		c.Badger.Status = *cs.BadgerStatus
	}
}

// KindStatus returns the kind status carried by cs, or nil if there is none.
func (cs *ComponentStatus) KindStatus() fmt.Stringer {
	switch {
	case cs.AppStatus != nil:
		return *cs.AppStatus
	case cs.WindowsAppStatus != nil:
		return *cs.WindowsAppStatus
	case cs.ProjectorStatus != nil:
		return *cs.ProjectorStatus
	case cs.BadgerStatus != nil:
		return *cs.BadgerStatus
	}
	return nil
}

// Machine returns the machine with the given name, or nil.
func (s *SystemConfig) Machine(name string) *Machine {
	for _, m := range s.Machines {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Master returns the master machine, or nil if it is missing.
func (s *SystemConfig) Master() *Machine {
	return s.Machine(s.MasterMachineName)
}

// Component returns the component with the given name, or nil.
func (m *Machine) Component(name string) *Component {
	for _, c := range m.Components {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Statuses returns the generic status of every component on every machine.
func (s *SystemConfig) Statuses() []Status {
	var out []Status
	for _, m := range s.Machines {
		for _, c := range m.Components {
			out = append(out, c.Status)
		}
	}
	return out
}
