package light

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/flightlab-io/flightlab/internal/pkg/task"
	"github.com/flightlab-io/flightlab/pkg/log"
)

const (
	effectInterval = 100 * time.Millisecond
	idleLevel      = 0.1
	// idleRate is the number of ticks for a full trip around the hue wheel.
	idleRate = 360.0
)

// rampStep is how far each value may move per tick.
var rampStep = effectInterval.Seconds() / 5

// Effect slowly cycles a fixture through the hue wheel. While the system is
// on the fixture fades to black, while off it glows at idleLevel.
type Effect struct {
	universe *Universe
	channel  int
	phase    float64

	mu          sync.Mutex
	count       int
	color       float64
	level       float64
	white       float64
	targetLevel float64
	targetWhite float64

	task *task.Task
}

func NewEffect(u *Universe, channel int, c clock.Clock, l log.Logger) *Effect {
	e := &Effect{
		universe:    u,
		channel:     channel,
		phase:       rand.Float64(),
		level:       idleLevel,
		targetLevel: idleLevel,
	}
	e.task = task.New(fmt.Sprintf("light effect channel %d", channel), e.run,
		task.WithClock(c),
		task.WithLogger(l),
	)
	return e
}

// On fades the fixture out.
func (e *Effect) On() { e.target(0) }

// Off returns the fixture to its idle glow.
func (e *Effect) Off() { e.target(idleLevel) }

func (e *Effect) target(level float64) {
	e.mu.Lock()
	e.targetLevel = level
	e.targetWhite = 0
	e.mu.Unlock()
}

func (e *Effect) Start() { e.task.Start() }

func (e *Effect) Stop() { e.task.Stop() }

func (e *Effect) run(ctx context.Context) error {
	if err := e.tick(); err != nil {
		return err
	}
	e.task.Sleep(ctx, effectInterval)
	return nil
}

// tick advances the ramps by one step and renders the universe.
func (e *Effect) tick() error {
	e.mu.Lock()
	e.count++
	hue := math.Mod(float64(e.count)/idleRate+e.phase, 1)
	e.color = ramp(e.color, hue, rampStep)
	e.level = ramp(e.level, e.targetLevel, rampStep)
	e.white = ramp(e.white, e.targetWhite, rampStep)
	color, level, white := e.color, e.level, e.white
	e.mu.Unlock()

	e.universe.SetHSV(e.channel, color, 1, level, white)
	return e.universe.Render()
}

// ramp moves value towards goal by at most inc.
func ramp(value, goal, inc float64) float64 {
	diff := goal - value
	switch {
	case math.Abs(diff) <= inc:
		return goal
	case diff > 0:
		return value + inc
	default:
		return value - inc
	}
}
