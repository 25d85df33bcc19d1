package v1

import (
	"fmt"
	"strings"
)

// Status is the normalized status every component reports, regardless of kind.
type Status int32

const (
	// StatusUnknown means the status has not been observed yet.
	StatusUnknown Status = iota
	// StatusOff means the component is off or not running.
	StatusOff
	// StatusOn means the component is on or running.
	StatusOn
	// StatusTransient means the component is between OFF and ON (warming up, cooling down).
	StatusTransient
	// StatusNotApplicable excludes the component from system state aggregation.
	StatusNotApplicable
)

var statusNames = map[Status]string{
	StatusUnknown:       "UNKNOWN",
	StatusOff:           "OFF",
	StatusOn:            "ON",
	StatusTransient:     "TRANSIENT",
	StatusNotApplicable: "NOT_APPLICABLE",
}

func (s Status) String() string {
	return enumString(statusNames, s)
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	return parseEnum(statusNames, "status", b, s)
}

// SystemState is the master's rollup of all component statuses.
type SystemState int32

const (
	SystemStateUnknown SystemState = iota
	SystemStateOff
	SystemStateOn
	SystemStateTransient
)

var systemStateNames = map[SystemState]string{
	SystemStateUnknown:   "UNKNOWN",
	SystemStateOff:       "OFF",
	SystemStateOn:        "ON",
	SystemStateTransient: "TRANSIENT",
}

func (s SystemState) String() string {
	return enumString(systemStateNames, s)
}

func (s SystemState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SystemState) UnmarshalText(b []byte) error {
	return parseEnum(systemStateNames, "system state", b, s)
}

// Command is a system-wide instruction issued by the master operator.
// The master only retains the latest value; it is a level, not an edge.
type Command int32

const (
	CommandUnspecified Command = iota
	// CommandStart turns on every component.
	CommandStart
	// CommandStop turns off every component.
	CommandStop
	// CommandRestart restarts every component.
	CommandRestart
	// CommandExit terminates the client processes.
	CommandExit
	// CommandDebug asks each client to dump its active tasks.
	CommandDebug
)

var commandNames = map[Command]string{
	CommandUnspecified: "UNSPECIFIED",
	CommandStart:       "START",
	CommandStop:        "STOP",
	CommandRestart:     "RESTART",
	CommandExit:        "EXIT",
	CommandDebug:       "DEBUG",
}

func (c Command) String() string {
	return enumString(commandNames, c)
}

func (c Command) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Command) UnmarshalText(b []byte) error {
	return parseEnum(commandNames, "command", b, c)
}

// AppStatus is the kind status of app and windows_app components.
type AppStatus int32

const (
	AppStatusUnknown AppStatus = iota
	AppStatusRunning
	AppStatusNotRunning
)

var appStatusNames = map[AppStatus]string{
	AppStatusUnknown:    "UNKNOWN",
	AppStatusRunning:    "RUNNING",
	AppStatusNotRunning: "NOT_RUNNING",
}

func (s AppStatus) String() string {
	return enumString(appStatusNames, s)
}

func (s AppStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *AppStatus) UnmarshalText(b []byte) error {
	return parseEnum(appStatusNames, "app status", b, s)
}

// ProjectorStatus is the kind status of projector components.
type ProjectorStatus int32

const (
	ProjectorStatusUnknown ProjectorStatus = iota
	ProjectorStatusOff
	ProjectorStatusOn
	ProjectorStatusWarmUp
	ProjectorStatusCoolDown
)

var projectorStatusNames = map[ProjectorStatus]string{
	ProjectorStatusUnknown:  "UNKNOWN",
	ProjectorStatusOff:      "OFF",
	ProjectorStatusOn:       "ON",
	ProjectorStatusWarmUp:   "WARM_UP",
	ProjectorStatusCoolDown: "COOL_DOWN",
}

func (s ProjectorStatus) String() string {
	return enumString(projectorStatusNames, s)
}

func (s ProjectorStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ProjectorStatus) UnmarshalText(b []byte) error {
	return parseEnum(projectorStatusNames, "projector status", b, s)
}

// BadgerStatus is the kind status of badge reader components.
type BadgerStatus int32

const (
	BadgerStatusUnknown BadgerStatus = iota
	BadgerStatusAuthorized
	BadgerStatusUnauthorized
)

var badgerStatusNames = map[BadgerStatus]string{
	BadgerStatusUnknown:      "UNKNOWN",
	BadgerStatusAuthorized:   "AUTHORIZED",
	BadgerStatusUnauthorized: "UNAUTHORIZED",
}

func (s BadgerStatus) String() string {
	return enumString(badgerStatusNames, s)
}

func (s BadgerStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *BadgerStatus) UnmarshalText(b []byte) error {
	return parseEnum(badgerStatusNames, "badger status", b, s)
}

// RunOption controls how a windows_app reacts to system commands.
type RunOption int32

const (
	// RunOptionNormal starts on START and stops on STOP.
	RunOptionNormal RunOption = iota
	// RunOptionRunAlways starts at launch and ignores every command.
	RunOptionRunAlways
	// RunOptionRunWhenOff runs only while the system is off.
	RunOptionRunWhenOff
	// RunOptionStopOnly is never started by the controller, only stopped on STOP.
	RunOptionStopOnly
)

var runOptionNames = map[RunOption]string{
	RunOptionNormal:     "NORMAL",
	RunOptionRunAlways:  "RUN_ALWAYS",
	RunOptionRunWhenOff: "RUN_WHEN_OFF",
	RunOptionStopOnly:   "STOP_ONLY",
}

func (o RunOption) String() string {
	return enumString(runOptionNames, o)
}

func (o RunOption) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *RunOption) UnmarshalText(b []byte) error {
	return parseEnum(runOptionNames, "run option", b, o)
}

func enumString[T ~int32](names map[T]string, v T) string {
	if name, ok := names[v]; ok {
		return name
	}
	return fmt.Sprintf("%d", int32(v))
}

func parseEnum[T ~int32](names map[T]string, what string, text []byte, out *T) error {
	s := strings.ToUpper(strings.TrimSpace(string(text)))
	for v, name := range names {
		if name == s {
			*out = v
			return nil
		}
	}
	return fmt.Errorf("invalid %s %q", what, string(text))
}
