package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/flightlab-io/flightlab/api/v1"
)

func TestLoad(t *testing.T) {
	cfg, err := Load("testdata/system.yaml")
	require.NoError(t, err)

	assert.Equal(t, v1.SystemStateUnknown, cfg.State)
	require.Len(t, cfg.Machines, 2)

	master := cfg.Master()
	require.NotNil(t, master)
	assert.Equal(t, DefaultGrpcPort, master.GrpcPort)
	assert.Equal(t, DefaultHttpPort, master.HttpPort)
	assert.Equal(t, DefaultClientHttpPort, cfg.Machine("sim-1").HttpPort)

	p := master.Component("projector")
	assert.Equal(t, DefaultPJLinkPort, p.Projector.Port)
	assert.Equal(t, "secret", p.Projector.Password)
	assert.Equal(t, v1.StatusUnknown, p.Status)

	assert.Equal(t, DefaultLightChannels, master.Component("lights").Light.Channels)
	assert.Equal(t, v1.StatusNotApplicable, master.Component("lights").Status)

	sim := cfg.Machine("sim-1")
	assert.Equal(t, v1.RunOptionRunAlways, sim.Component("briefing").WindowsApp.RunOption)
	assert.Equal(t, v1.StatusNotApplicable, sim.Component("briefing").Status)
	assert.True(t, sim.Component("xplane").App.RestartOnCrash)
	assert.Equal(t, DefaultPlayer, sim.Component("intro").Sound.Player)
	assert.Equal(t, [][]string{{"systemctl", "poweroff"}}, sim.Component("shutdown").CommandLine.WhenOff)

	addr, err := MasterAddr(cfg)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:9000", addr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("testdata/nope.yaml")
	assert.Error(t, err)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "no master",
			yaml: "master_machine_name: m\nmachines:\n  - name: a\n    ip: 1.2.3.4\n",
			want: `master machine "m" is not defined`,
		},
		{
			name: "duplicate machine",
			yaml: "master_machine_name: a\nmachines:\n  - name: a\n    ip: 1.2.3.4\n  - name: a\n    ip: 1.2.3.5\n",
			want: "duplicate name",
		},
		{
			name: "duplicate component",
			yaml: "master_machine_name: a\nmachines:\n  - name: a\n    ip: 1.2.3.4\n    components:\n" +
				"      - {name: x, light: {com: /dev/ttyUSB0}}\n      - {name: x, light: {com: /dev/ttyUSB1}}\n",
			want: `duplicate component "x"`,
		},
		{
			name: "two kinds",
			yaml: "master_machine_name: a\nmachines:\n  - name: a\n    ip: 1.2.3.4\n    components:\n" +
				"      - {name: x, light: {com: c}, sound: {media_path: m}}\n",
			want: "multiple kinds",
		},
		{
			name: "bad enum",
			yaml: "master_machine_name: a\nmachines:\n  - name: a\n    ip: 1.2.3.4\n    components:\n" +
				"      - {name: x, windows_app: {executable_path: e, run_option: SOMETIMES}}\n",
			want: "SOMETIMES",
		},
		{
			name: "unknown field",
			yaml: "master_machine_name: a\ncolour: red\nmachines:\n  - name: a\n    ip: 1.2.3.4\n",
			want: "colour",
		},
		{
			name: "master without ip",
			yaml: "master_machine_name: a\nmachines:\n  - name: a\n",
			want: "ip is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestResolveMachine(t *testing.T) {
	cfg, err := Load("testdata/system.yaml")
	require.NoError(t, err)

	m, err := ResolveMachine(cfg, "sim-1", HostInfo{})
	require.NoError(t, err)
	assert.Equal(t, "sim-1", m.Name)

	_, err = ResolveMachine(cfg, "sim-9", HostInfo{})
	assert.True(t, errors.Is(err, ErrMachineNotFound))

	m, err = ResolveMachine(cfg, "", HostInfo{Hostname: "box", Addrs: []string{"127.0.0.1", "10.0.0.11"}})
	require.NoError(t, err)
	assert.Equal(t, "sim-1", m.Name)

	m, err = ResolveMachine(cfg, "", HostInfo{Hostname: "MASTER.lab.local"})
	require.NoError(t, err)
	assert.Equal(t, "master", m.Name)

	_, err = ResolveMachine(cfg, "", HostInfo{Hostname: "laptop", Addrs: []string{"192.168.1.2"}})
	assert.ErrorIs(t, err, ErrMachineNotFound)
}
