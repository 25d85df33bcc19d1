package v1

// DeepCopy returns an independent copy of the configuration.
func (s *SystemConfig) DeepCopy() *SystemConfig {
	if s == nil {
		return nil
	}
	out := &SystemConfig{
		MasterMachineName: s.MasterMachineName,
		State:             s.State,
	}
	if s.Machines != nil {
		out.Machines = make([]*Machine, len(s.Machines))
		for i, m := range s.Machines {
			out.Machines[i] = m.DeepCopy()
		}
	}
	return out
}

func (m *Machine) DeepCopy() *Machine {
	if m == nil {
		return nil
	}
	out := *m
	if m.Components != nil {
		out.Components = make([]*Component, len(m.Components))
		for i, c := range m.Components {
			out.Components[i] = c.DeepCopy()
		}
	}
	return &out
}

func (c *Component) DeepCopy() *Component {
	if c == nil {
		return nil
	}
	out := &Component{Name: c.Name, Status: c.Status}
	if c.App != nil {
		a := c.App.deepCopy()
		out.App = &a
	}
	if c.CommandLine != nil {
		out.CommandLine = &CommandLineSettings{
			WhenOn:  copyArgvs(c.CommandLine.WhenOn),
			WhenOff: copyArgvs(c.CommandLine.WhenOff),
		}
	}
	if c.WindowsApp != nil {
		w := *c.WindowsApp
		w.AppSettings = c.WindowsApp.AppSettings.deepCopy()
		out.WindowsApp = &w
	}
	if c.Light != nil {
		l := *c.Light
		l.Channels = append([]int(nil), c.Light.Channels...)
		out.Light = &l
	}
	if c.Projector != nil {
		p := *c.Projector
		out.Projector = &p
	}
	if c.Sound != nil {
		s := *c.Sound
		s.Player = append([]string(nil), c.Sound.Player...)
		out.Sound = &s
	}
	if c.Badger != nil {
		b := *c.Badger
		out.Badger = &b
	}
	return out
}

func (a AppSettings) deepCopy() AppSettings {
	out := a
	out.Arguments = append([]string(nil), a.Arguments...)
	if a.Env != nil {
		out.Env = make(map[string]string, len(a.Env))
		for k, v := range a.Env {
			out.Env[k] = v
		}
	}
	return out
}

func copyArgvs(in [][]string) [][]string {
	if in == nil {
		return nil
	}
	out := make([][]string, len(in))
	for i, argv := range in {
		out[i] = append([]string(nil), argv...)
	}
	return out
}

// DeepCopy returns an independent copy of the status report.
func (s *MachineStatus) DeepCopy() *MachineStatus {
	if s == nil {
		return nil
	}
	out := &MachineStatus{Name: s.Name}
	if s.ComponentStatus != nil {
		out.ComponentStatus = make([]*ComponentStatus, len(s.ComponentStatus))
		for i, cs := range s.ComponentStatus {
			c := *cs
			out.ComponentStatus[i] = &c
		}
	}
	return out
}
