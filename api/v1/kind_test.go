package v1

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/emptypb"
)

func TestComponentKind(t *testing.T) {
	tests := []struct {
		name    string
		c       Component
		want    Kind
		wantErr bool
	}{
		{name: "app", c: Component{Name: "sim", App: &AppSettings{}}, want: KindApp},
		{name: "projector", c: Component{Name: "p1", Projector: &ProjectorSettings{}}, want: KindProjector},
		{name: "none", c: Component{Name: "x"}, want: KindUnknown, wantErr: true},
		{name: "two", c: Component{Name: "y", Light: &LightSettings{}, Sound: &SoundSettings{}}, want: KindLight, wantErr: true},
		{name: "unnamed", c: Component{Badger: &BadgerSettings{}}, want: KindBadger, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.c.Kind())
			if tt.wantErr {
				assert.Error(t, tt.c.Validate())
			} else {
				assert.NoError(t, tt.c.Validate())
			}
		})
	}
}

func TestGenericStatusMapping(t *testing.T) {
	assert.Equal(t, StatusTransient, ProjectorGenericStatus(ProjectorStatusWarmUp))
	assert.Equal(t, StatusTransient, ProjectorGenericStatus(ProjectorStatusCoolDown))
	assert.Equal(t, StatusOn, ProjectorGenericStatus(ProjectorStatusOn))
	assert.Equal(t, StatusOff, AppGenericStatus(AppStatusNotRunning))
	assert.Equal(t, StatusOn, WindowsAppGenericStatus(RunOptionNormal, AppStatusRunning))
	assert.Equal(t, StatusNotApplicable, WindowsAppGenericStatus(RunOptionRunAlways, AppStatusRunning))
	assert.Equal(t, StatusNotApplicable, BadgerGenericStatus(BadgerStatusAuthorized))

	assert.Equal(t, StatusUnknown, (&Component{App: &AppSettings{}}).DefaultStatus())
	assert.Equal(t, StatusNotApplicable, (&Component{Light: &LightSettings{}}).DefaultStatus())
	assert.Equal(t, StatusNotApplicable,
		(&Component{WindowsApp: &WindowsAppSettings{RunOption: RunOptionStopOnly}}).DefaultStatus())
}

func TestApplyStatusIgnoresMismatchedKind(t *testing.T) {
	c := &Component{Name: "p1", Projector: &ProjectorSettings{}}
	app := AppStatusRunning
	c.ApplyStatus(&ComponentStatus{Name: "p1", Status: StatusOn, AppStatus: &app})

	assert.Equal(t, StatusOn, c.Status)
	assert.Equal(t, ProjectorStatusUnknown, c.Projector.Status)

	warm := ProjectorStatusWarmUp
	c.ApplyStatus(&ComponentStatus{Name: "p1", Status: StatusTransient, ProjectorStatus: &warm})
	assert.Equal(t, ProjectorStatusWarmUp, c.Projector.Status)
	assert.Equal(t, ProjectorStatusWarmUp, c.StatusReport().KindStatus())
}

func TestEnumText(t *testing.T) {
	var s ProjectorStatus
	require.NoError(t, s.UnmarshalText([]byte("warm_up")))
	assert.Equal(t, ProjectorStatusWarmUp, s)

	var cmd Command
	assert.Error(t, cmd.UnmarshalText([]byte("REBOOT")))

	out, err := json.Marshal(SystemStateResponse{State: SystemStateTransient})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"TRANSIENT"}`, string(out))
}

func TestCodec(t *testing.T) {
	on := AppStatusRunning
	in := &MachineStatus{
		Name:            "sim-1",
		ComponentStatus: []*ComponentStatus{{Name: "xplane", Status: StatusOn, AppStatus: &on}},
	}
	data, err := Marshal(in)
	require.NoError(t, err)

	out := &MachineStatus{}
	require.NoError(t, Unmarshal(data, out))
	assert.Equal(t, in, out)

	data, err = Marshal(&emptypb.Empty{})
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.NoError(t, Unmarshal(data, &emptypb.Empty{}))
}

func TestDeepCopyIsIndependent(t *testing.T) {
	cfg := &SystemConfig{
		MasterMachineName: "master",
		Machines: []*Machine{{
			Name: "master",
			Components: []*Component{{
				Name: "app",
				App:  &AppSettings{Arguments: []string{"-a"}, Env: map[string]string{"K": "V"}},
			}},
		}},
	}
	cp := cfg.DeepCopy()
	cp.Machines[0].Components[0].App.Arguments[0] = "-b"
	cp.Machines[0].Components[0].App.Env["K"] = "W"
	cp.Machines[0].Components[0].Status = StatusOn

	orig := cfg.Machines[0].Components[0]
	assert.Equal(t, "-a", orig.App.Arguments[0])
	assert.Equal(t, "V", orig.App.Env["K"])
	assert.Equal(t, StatusUnknown, orig.Status)
}
