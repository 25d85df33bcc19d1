package v1

// SystemConfig describes every machine in the lab, the designated master and
// the aggregate state derived from all component statuses.
type SystemConfig struct {
	Machines          []*Machine  `json:"machines" yaml:"machines" cbor:"1,keyasint"`
	MasterMachineName string      `json:"masterMachineName" yaml:"master_machine_name" cbor:"2,keyasint"`
	State             SystemState `json:"state" yaml:"state,omitempty" cbor:"3,keyasint"`
}

// Machine is a host participating in the system.
type Machine struct {
	Name       string       `json:"name" yaml:"name" cbor:"1,keyasint"`
	IP         string       `json:"ip" yaml:"ip" cbor:"2,keyasint"`
	Components []*Component `json:"components,omitempty" yaml:"components,omitempty" cbor:"3,keyasint,omitempty"`

	// GrpcPort is the ControlService port. Only meaningful on the master.
	GrpcPort int `json:"grpcPort,omitempty" yaml:"grpc_port,omitempty" cbor:"4,keyasint,omitempty"`
	// HttpPort is the HTTP port of the master façade or the client listener.
	HttpPort int `json:"httpPort,omitempty" yaml:"http_port,omitempty" cbor:"5,keyasint,omitempty"`
}

// Component is the configuration and last known status of a controllable unit.
// Exactly one of the kind fields is set.
type Component struct {
	Name   string `json:"name" yaml:"name" cbor:"1,keyasint"`
	Status Status `json:"status" yaml:"status,omitempty" cbor:"2,keyasint"`

	App         *AppSettings         `json:"app,omitempty" yaml:"app,omitempty" cbor:"10,keyasint,omitempty"`
	CommandLine *CommandLineSettings `json:"commandline,omitempty" yaml:"commandline,omitempty" cbor:"11,keyasint,omitempty"`
	WindowsApp  *WindowsAppSettings  `json:"windowsApp,omitempty" yaml:"windows_app,omitempty" cbor:"12,keyasint,omitempty"`
	Light       *LightSettings       `json:"light,omitempty" yaml:"light,omitempty" cbor:"13,keyasint,omitempty"`
	Projector   *ProjectorSettings   `json:"projector,omitempty" yaml:"projector,omitempty" cbor:"14,keyasint,omitempty"`
	Sound       *SoundSettings       `json:"sound,omitempty" yaml:"sound,omitempty" cbor:"15,keyasint,omitempty"`
	Badger      *BadgerSettings      `json:"badger,omitempty" yaml:"badger,omitempty" cbor:"16,keyasint,omitempty"`
}

// AppSettings launches a command-line based application.
type AppSettings struct {
	ExecutablePath string            `json:"executablePath" yaml:"executable_path" cbor:"1,keyasint"`
	Arguments      []string          `json:"arguments,omitempty" yaml:"arguments,omitempty" cbor:"2,keyasint,omitempty"`
	WorkingDir     string            `json:"workingDir,omitempty" yaml:"working_dir,omitempty" cbor:"3,keyasint,omitempty"`
	Env            map[string]string `json:"env,omitempty" yaml:"env,omitempty" cbor:"4,keyasint,omitempty"`
	RestartOnCrash bool              `json:"restartOnCrash,omitempty" yaml:"restart_on_crash,omitempty" cbor:"5,keyasint,omitempty"`
	Status         AppStatus         `json:"status" yaml:"status,omitempty" cbor:"6,keyasint"`
}

// CommandLineSettings runs one-shot commands when the system turns on or off.
// Each entry is an argv list.
type CommandLineSettings struct {
	WhenOn  [][]string `json:"whenOn,omitempty" yaml:"when_on,omitempty" cbor:"1,keyasint,omitempty"`
	WhenOff [][]string `json:"whenOff,omitempty" yaml:"when_off,omitempty" cbor:"2,keyasint,omitempty"`
}

// WindowsAppSettings launches a desktop application with a run policy.
type WindowsAppSettings struct {
	AppSettings    `yaml:",inline"`
	RunOption      RunOption `json:"runOption" yaml:"run_option,omitempty" cbor:"20,keyasint"`
	StartMinimized bool      `json:"startMinimized,omitempty" yaml:"start_minimized,omitempty" cbor:"21,keyasint,omitempty"`
}

// LightSettings drives DMX fixtures through an Enttec USB interface.
type LightSettings struct {
	Com      string `json:"com" yaml:"com" cbor:"1,keyasint"`
	Channels []int  `json:"channels,omitempty" yaml:"channels,omitempty" cbor:"2,keyasint,omitempty"`
}

// ProjectorSettings addresses a PJLink capable projector.
type ProjectorSettings struct {
	IP       string          `json:"ip" yaml:"ip" cbor:"1,keyasint"`
	Port     int             `json:"port,omitempty" yaml:"port,omitempty" cbor:"2,keyasint,omitempty"`
	Password string          `json:"-" yaml:"password,omitempty" cbor:"-"`
	Status   ProjectorStatus `json:"status" yaml:"status,omitempty" cbor:"4,keyasint"`
}

// SoundSettings plays a media file when the system starts.
type SoundSettings struct {
	// MediaPath is a local path or an s3://bucket/key URL.
	MediaPath string   `json:"mediaPath" yaml:"media_path" cbor:"1,keyasint"`
	Player    []string `json:"player,omitempty" yaml:"player,omitempty" cbor:"2,keyasint,omitempty"`
}

// BadgerSettings configures a USB badge reader and its validation endpoint.
type BadgerSettings struct {
	URL          string       `json:"url" yaml:"url" cbor:"1,keyasint"`
	KeyParam     string       `json:"keyParam" yaml:"key_param" cbor:"2,keyasint"`
	USBVendorID  string       `json:"usbVendorId" yaml:"usb_vendor_id" cbor:"3,keyasint"`
	USBProductID string       `json:"usbProductId" yaml:"usb_product_id" cbor:"4,keyasint"`
	Status       BadgerStatus `json:"status" yaml:"status,omitempty" cbor:"5,keyasint"`
}

// ComponentStatus is one component's entry in a status report.
// At most one of the kind status fields is set.
type ComponentStatus struct {
	Name   string `json:"name" cbor:"1,keyasint"`
	Status Status `json:"status" cbor:"2,keyasint"`

	AppStatus        *AppStatus       `json:"appStatus,omitempty" cbor:"10,keyasint,omitempty"`
	WindowsAppStatus *AppStatus       `json:"windowsAppStatus,omitempty" cbor:"11,keyasint,omitempty"`
	ProjectorStatus  *ProjectorStatus `json:"projectorStatus,omitempty" cbor:"12,keyasint,omitempty"`
	BadgerStatus     *BadgerStatus    `json:"badgerStatus,omitempty" cbor:"13,keyasint,omitempty"`
}

// MachineStatus is a point-in-time report from a client.
type MachineStatus struct {
	Name            string             `json:"name" cbor:"1,keyasint"`
	ComponentStatus []*ComponentStatus `json:"componentStatus" cbor:"2,keyasint"`
}

// MachineID identifies the client watching for commands.
type MachineID struct {
	Name string `json:"name" cbor:"1,keyasint"`
}

// SystemCommand wraps a Command on the wire.
type SystemCommand struct {
	Command Command `json:"command" cbor:"1,keyasint"`
}

// SystemStateResponse carries only the aggregate state.
type SystemStateResponse struct {
	State SystemState `json:"state"`
}
