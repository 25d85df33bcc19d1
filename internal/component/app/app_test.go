package app

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/flightlab-io/flightlab/api/v1"
	"github.com/flightlab-io/flightlab/internal/component"
	"github.com/flightlab-io/flightlab/pkg/log"
)

func requireBinary(t *testing.T, name string) string {
	t.Helper()
	path, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
	return path
}

func deps() component.Deps {
	return component.Deps{Logger: log.NewNopLogger()}
}

func TestMain(m *testing.M) {
	pollInterval = 20 * time.Millisecond
	os.Exit(m.Run())
}

func TestAppStartStop(t *testing.T) {
	sleep := requireBinary(t, "sleep")
	cfg := &v1.Component{Name: "xplane", Status: v1.StatusUnknown, App: &v1.AppSettings{
		ExecutablePath: sleep,
		Arguments:      []string{"30"},
	}}

	c, err := component.New(cfg, deps())
	require.NoError(t, err)
	defer c.Close()

	var events atomic.Int32
	c.OnStatusChanged(func(component.Component) { events.Add(1) })

	require.NoError(t, c.Start(context.Background()))
	st := c.Status()
	assert.Equal(t, v1.StatusOn, st.Status)
	assert.Equal(t, v1.AppStatusRunning, *st.AppStatus)

	// Starting twice keeps the same child.
	require.NoError(t, c.Start(context.Background()))

	require.NoError(t, c.Stop(context.Background()))
	st = c.Status()
	assert.Equal(t, v1.StatusOff, st.Status)
	assert.Equal(t, v1.AppStatusNotRunning, *st.AppStatus)
	require.Eventually(t, func() bool { return events.Load() >= 2 }, time.Second, 10*time.Millisecond)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

func TestAppRestartsOnCrash(t *testing.T) {
	sh := requireBinary(t, "sh")
	marker := filepath.Join(t.TempDir(), "runs")
	cfg := &v1.Component{Name: "crashy", App: &v1.AppSettings{
		ExecutablePath: sh,
		Arguments:      []string{"-c", "echo run >> " + marker + "; sleep 0.05; exit 3"},
		RestartOnCrash: true,
	}}

	c, err := NewApp(cfg, deps())
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Start(context.Background()))
	require.Eventually(t, func() bool {
		data, _ := os.ReadFile(marker)
		return len(data) >= len("run\nrun\n")
	}, 5*time.Second, 10*time.Millisecond)
}

func TestAppMonitorReportsNotRunning(t *testing.T) {
	cfg := &v1.Component{Name: "idle", Status: v1.StatusUnknown, App: &v1.AppSettings{ExecutablePath: "/nonexistent"}}

	c, err := NewApp(cfg, deps())
	require.NoError(t, err)
	defer c.Close()

	require.Eventually(t, func() bool { return c.Status().Status == v1.StatusOff }, time.Second, 5*time.Millisecond)
	assert.Error(t, c.Start(context.Background()))
}

func TestWindowsAppRunOptions(t *testing.T) {
	sleep := requireBinary(t, "sleep")
	ctx := context.Background()

	newWin := func(opt v1.RunOption) *WindowsApp {
		cfg := &v1.Component{Name: "win-" + opt.String(), WindowsApp: &v1.WindowsAppSettings{
			AppSettings: v1.AppSettings{ExecutablePath: sleep, Arguments: []string{"30"}},
			RunOption:   opt,
		}}
		cfg.Status = cfg.DefaultStatus()
		c, err := NewWindowsApp(cfg, deps())
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })
		return c.(*WindowsApp)
	}

	always := newWin(v1.RunOptionRunAlways)
	assert.True(t, always.run.running())
	require.NoError(t, always.Stop(ctx))
	assert.True(t, always.run.running(), "RUN_ALWAYS ignores STOP")
	assert.Equal(t, v1.StatusNotApplicable, always.Status().Status)
	assert.Equal(t, v1.AppStatusRunning, *always.Status().WindowsAppStatus)

	whenOff := newWin(v1.RunOptionRunWhenOff)
	assert.True(t, whenOff.run.running())
	require.NoError(t, whenOff.Start(ctx))
	assert.False(t, whenOff.run.running())
	require.NoError(t, whenOff.Stop(ctx))
	assert.True(t, whenOff.run.running())

	stopOnly := newWin(v1.RunOptionStopOnly)
	require.NoError(t, stopOnly.Start(ctx))
	assert.False(t, stopOnly.run.running())

	normal := newWin(v1.RunOptionNormal)
	require.NoError(t, normal.Start(ctx))
	assert.Equal(t, v1.StatusOn, normal.Status().Status)
	require.NoError(t, normal.Restart(ctx))
	assert.True(t, normal.run.running())
}

func TestCommandLine(t *testing.T) {
	sh := requireBinary(t, "sh")
	dir := t.TempDir()
	on := filepath.Join(dir, "on")
	off := filepath.Join(dir, "off")

	cfg := &v1.Component{Name: "hooks", Status: v1.StatusNotApplicable, CommandLine: &v1.CommandLineSettings{
		WhenOn:  [][]string{{sh, "-c", "exit 1"}, {sh, "-c", "touch " + on}},
		WhenOff: [][]string{{sh, "-c", "touch " + off}, {}},
	}}
	c, err := NewCommandLine(cfg, deps())
	require.NoError(t, err)

	assert.Error(t, c.Start(context.Background()), "first command fails")
	assert.FileExists(t, on, "later commands still run")

	require.NoError(t, c.Stop(context.Background()))
	assert.FileExists(t, off)
	assert.Equal(t, v1.StatusNotApplicable, c.Status().Status)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}
