package component

import (
	"slices"
	"sync"

	v1 "github.com/flightlab-io/flightlab/api/v1"
	"github.com/flightlab-io/flightlab/pkg/log"
)

// Base carries the state shared by every kind: identity, status, listeners
// and the close-once guard. Kinds embed *Base.
type Base struct {
	owner Component
	name  string
	kind  v1.Kind
	log   log.Logger

	mu        sync.Mutex
	status    v1.Status
	kindState any
	listeners []func(Component)

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

// NewBase returns a Base for owner, starting at the configured status.
func NewBase(owner Component, cfg *v1.Component, l log.Logger) *Base {
	b := &Base{
		owner:  owner,
		name:   cfg.Name,
		kind:   cfg.Kind(),
		log:    l,
		status: cfg.Status,
		closed: make(chan struct{}),
	}
	if ks := cfg.StatusReport().KindStatus(); ks != nil {
		b.kindState = ks
	}
	return b
}

func (b *Base) Name() string { return b.name }

func (b *Base) Kind() v1.Kind { return b.kind }

// Logger returns the component's logger.
func (b *Base) Logger() log.Logger { return b.log }

// Status returns a copy of the current status.
func (b *Base) Status() v1.ComponentStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.report()
}

func (b *Base) report() v1.ComponentStatus {
	cs := v1.ComponentStatus{Name: b.name, Status: b.status}
	switch s := b.kindState.(type) {
	case v1.AppStatus:
		if b.kind == v1.KindWindowsApp {
			cs.WindowsAppStatus = &s
		} else {
			cs.AppStatus = &s
		}
	case v1.ProjectorStatus:
		cs.ProjectorStatus = &s
	case v1.BadgerStatus:
		cs.BadgerStatus = &s
	}
	return cs
}

// OnStatusChanged registers fn.
func (b *Base) OnStatusChanged(fn func(Component)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

// SetStatus records the generic status and, for kinds that have one, the kind
// status (v1.AppStatus, v1.ProjectorStatus or v1.BadgerStatus; nil keeps the
// current value). Listeners run synchronously, and only when something changed.
// It reports whether the status changed.
func (b *Base) SetStatus(status v1.Status, kindStatus any) bool {
	b.mu.Lock()
	changed := b.status != status
	b.status = status
	if kindStatus != nil && kindStatus != b.kindState {
		b.kindState = kindStatus
		changed = true
	}
	listeners := slices.Clone(b.listeners)
	b.mu.Unlock()

	if !changed {
		return false
	}

	b.log.Debug("Status changed", "status", status, "kindStatus", kindStatus)
	for _, fn := range listeners {
		fn(b.owner)
	}
	return true
}

// CloseOnce runs fn the first time it is called and returns its error; later
// calls return the same error without running anything.
func (b *Base) CloseOnce(fn func() error) error {
	b.closeOnce.Do(func() {
		close(b.closed)
		if fn != nil {
			b.closeErr = fn()
		}
	})
	return b.closeErr
}

// Closed reports whether Close has been called.
func (b *Base) Closed() bool {
	select {
	case <-b.closed:
		return true
	default:
		return false
	}
}

// Done is closed once Close has been called.
func (b *Base) Done() <-chan struct{} {
	return b.closed
}
