package task

import (
	"fmt"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/flightlab-io/flightlab/pkg/log"
)

var registry = &activeSet{names: map[uint64]string{}}

type activeSet struct {
	mu    sync.Mutex
	next  atomic.Uint64
	names map[uint64]string
}

func (s *activeSet) add(name string) uint64 {
	id := s.next.Add(1)
	s.mu.Lock()
	s.names[id] = name
	s.mu.Unlock()
	return id
}

func (s *activeSet) remove(id uint64) {
	s.mu.Lock()
	delete(s.names, id)
	s.mu.Unlock()
}

// Active returns the sorted names of every running Task and Go function.
func Active() []string {
	registry.mu.Lock()
	names := make([]string, 0, len(registry.names))
	for _, n := range registry.names {
		names = append(names, n)
	}
	registry.mu.Unlock()

	slices.Sort(names)
	return names
}

// Go runs fn in a tracked goroutine. A panic in fn is logged, not propagated.
// The returned channel is closed when fn has returned.
func Go(name string, fn func()) <-chan struct{} {
	done := make(chan struct{})
	id := registry.add(name)

	go func() {
		defer close(done)
		defer registry.remove(id)
		defer func() {
			if r := recover(); r != nil {
				log.Error(fmt.Errorf("panic: %v", r), "Recovered from panic", "task", name, "stack", string(debug.Stack()))
			}
		}()
		fn()
	}()

	return done
}
