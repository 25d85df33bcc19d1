package badger

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/fsnotify/fsnotify"
	"k8s.io/utils/clock"

	"github.com/flightlab-io/flightlab/internal/pkg/task"
	"github.com/flightlab-io/flightlab/pkg/log"
)

// retryInterval bounds the wait for a missing or disconnected reader.
const retryInterval = 10 * time.Second

type openFunc func() (io.ReadCloser, error)

// Reader runs a Task that keeps the badge reader open and reports every
// badge read.
type Reader struct {
	open     openFunc
	watchDir string
	onBadge  func(ctx context.Context, id string)
	clock    clock.Clock
	log      log.Logger
	task     *task.Task
}

func newReader(name string, open openFunc, watchDir string, onBadge func(context.Context, string), c clock.Clock, l log.Logger) *Reader {
	r := &Reader{open: open, watchDir: watchDir, onBadge: onBadge, clock: c, log: l}
	r.task = task.New("badger "+name, r.step, task.WithClock(c), task.WithLogger(l))
	return r
}

func (r *Reader) Start() { r.task.Start() }

func (r *Reader) Stop() { r.task.Stop() }

func (r *Reader) step(ctx context.Context) error {
	dev, err := r.open()
	if err != nil {
		if errors.Is(err, ErrDeviceNotFound) {
			r.log.Warn("Device may be disconnected, waiting for it", "error", err)
		} else {
			r.log.Error(err, "Failed to open badge reader")
		}
		r.waitForDevice(ctx)
		return nil
	}
	r.log.Info("Badge reader device found")

	// Closing the device unblocks the read when the task stops.
	stop := context.AfterFunc(ctx, func() { _ = dev.Close() })
	err = readBadges(dev, func(id string) { r.onBadge(ctx, id) })
	if stop() {
		_ = dev.Close()
	}
	if ctx.Err() != nil {
		return nil
	}

	r.log.Warn("Device may be disconnected, attempting to reconnect", "error", err)
	r.task.Sleep(ctx, retryInterval)
	return nil
}

// waitForDevice returns when something appears in watchDir, after
// retryInterval, or when ctx is done.
func (r *Reader) waitForDevice(ctx context.Context) {
	w, err := fsnotify.NewWatcher()
	if err == nil {
		defer w.Close()
		err = w.Add(r.watchDir)
	}
	if err != nil {
		r.log.Debug("Cannot watch input devices", "dir", r.watchDir, "error", err)
		r.task.Sleep(ctx, retryInterval)
		return
	}

	timer := r.clock.NewTimer(retryInterval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C():
			return
		case ev, ok := <-w.Events:
			if !ok || ev.Has(fsnotify.Create) {
				return
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			r.log.Debug("Input device watch error", "error", err)
		}
	}
}
