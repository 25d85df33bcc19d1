package fsm

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
)

// WrapEvent adapts fn into an fsm.Callback. A non-nil error from fn cancels
// the transition when used in a before_ or leave_ callback.
func WrapEvent(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Cancel(err)
		}
	}
}

// Fire triggers event and treats "already in the target state" as success.
func Fire(ctx context.Context, f *fsm.FSM, event string, args ...any) error {
	err := f.Event(ctx, event, args...)
	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) && noTransition.Err == nil {
		return nil
	}
	return err
}

// SetState moves f to state without running callbacks. Used to follow a state
// observed on the device rather than one we caused.
func SetState(f *fsm.FSM, state string) bool {
	if f.Current() == state {
		return false
	}
	f.SetState(state)
	return true
}
