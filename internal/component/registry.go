package component

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"k8s.io/utils/clock"

	v1 "github.com/flightlab-io/flightlab/api/v1"
	"github.com/flightlab-io/flightlab/pkg/log"
	"github.com/flightlab-io/flightlab/pkg/options"
)

// ErrUnknownKind is returned by New for a kind nobody registered.
var ErrUnknownKind = errors.New("unknown component kind")

// Deps are the process-level collaborators handed to every constructor.
type Deps struct {
	// Logger is already scoped to the machine.
	Logger log.Logger
	// S3 is used by kinds that fetch remote media. May be disabled.
	S3 *options.S3Options
	// Clock drives timers and delayed callbacks. Defaults to the real clock.
	Clock clock.WithTickerAndDelayedExecution
}

// Constructor builds a component of one kind from its configuration.
type Constructor func(cfg *v1.Component, deps Deps) (Component, error)

var (
	mu           sync.RWMutex
	constructors = map[v1.Kind]Constructor{}
)

// Register makes a kind available to New. Registering a kind twice panics.
func Register(kind v1.Kind, fn Constructor) {
	mu.Lock()
	defer mu.Unlock()

	if _, dup := constructors[kind]; dup {
		panic(fmt.Sprintf("component: kind %q registered twice", kind))
	}
	constructors[kind] = fn
}

// Kinds returns the registered kinds in sorted order.
func Kinds() []v1.Kind {
	mu.RLock()
	defer mu.RUnlock()

	kinds := make([]v1.Kind, 0, len(constructors))
	for k := range constructors {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// New builds the component described by cfg.
func New(cfg *v1.Component, deps Deps) (Component, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mu.RLock()
	fn, ok := constructors[cfg.Kind()]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("component %q: %w %q", cfg.Name, ErrUnknownKind, cfg.Kind())
	}

	if deps.Logger == nil {
		deps.Logger = log.Std()
	}
	deps.Logger = deps.Logger.WithValues("component", cfg.Name, "kind", string(cfg.Kind()))
	if deps.Clock == nil {
		deps.Clock = clock.RealClock{}
	}

	return fn(cfg, deps)
}
