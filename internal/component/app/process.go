package app

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"time"

	v1 "github.com/flightlab-io/flightlab/api/v1"
)

// killTimeout is how long a child gets to exit after an interrupt.
const killTimeout = 5 * time.Second

// process is one launched child.
type process struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

func launch(s *v1.AppSettings) (*process, error) {
	cmd := exec.Command(s.ExecutablePath, s.Arguments...)
	cmd.Dir = s.WorkingDir
	if len(s.Env) > 0 {
		cmd.Env = append(os.Environ(), envList(s.Env)...)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("launch %s: %w", s.ExecutablePath, err)
	}

	p := &process{cmd: cmd, done: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

func envList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

func (p *process) alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *process) pid() int {
	return p.cmd.Process.Pid
}

// exitCode is -1 while running or when killed by a signal.
func (p *process) exitCode() int {
	if p.alive() {
		return -1
	}
	return p.cmd.ProcessState.ExitCode()
}

// terminate interrupts the child, then kills it after killTimeout.
func (p *process) terminate() error {
	if !p.alive() {
		return nil
	}

	if err := p.cmd.Process.Signal(os.Interrupt); err == nil {
		select {
		case <-p.done:
			return nil
		case <-time.After(killTimeout):
		}
	}

	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill pid %d: %w", p.pid(), err)
	}
	<-p.done
	return nil
}
