// Package badger authorizes USB badge scans against an HTTP service.
package badger

import (
	"context"
	"io"
	"sync"
	"time"

	"k8s.io/utils/clock"

	v1 "github.com/flightlab-io/flightlab/api/v1"
	"github.com/flightlab-io/flightlab/internal/component"
)

func init() {
	component.Register(v1.KindBadger, New)
}

// authTimeout is how long a badge result is reported before the status
// falls back to UNKNOWN.
const authTimeout = 10 * time.Second

// Badger reports AUTHORIZED or UNAUTHORIZED after every scan. It takes no
// part in the system state and ignores commands.
type Badger struct {
	*component.Base
	validator *Validator
	reader    *Reader
	clock     clock.WithTickerAndDelayedExecution

	mu     sync.Mutex
	deauth clock.Timer
}

var _ component.Component = (*Badger)(nil)

func New(cfg *v1.Component, deps component.Deps) (component.Component, error) {
	vendor, err := parseUSBID(cfg.Badger.USBVendorID)
	if err != nil {
		return nil, err
	}
	product, err := parseUSBID(cfg.Badger.USBProductID)
	if err != nil {
		return nil, err
	}
	b := newBadger(cfg, deps, func() (io.ReadCloser, error) {
		return openDevice(vendor, product)
	}, devInputDir)
	b.reader.Start()
	return b, nil
}

func newBadger(cfg *v1.Component, deps component.Deps, open openFunc, watchDir string) *Badger {
	c := deps.Clock
	if c == nil {
		c = clock.RealClock{}
	}
	b := &Badger{
		validator: NewValidator(cfg.Badger.URL, cfg.Badger.KeyParam),
		clock:     c,
	}
	b.Base = component.NewBase(b, cfg, deps.Logger)
	b.reader = newReader(cfg.Name, open, watchDir, b.onBadge, c, deps.Logger)
	return b
}

func (b *Badger) onBadge(ctx context.Context, id string) {
	b.Logger().Info("Badge read successfully", "badge", id)

	ok, err := b.validator.Validate(ctx, id)
	if err != nil {
		b.Logger().Error(err, "Badge validation failed", "badge", id)
	}
	s := v1.BadgerStatusUnauthorized
	if ok {
		b.Logger().Info("Badge validated", "badge", id)
		s = v1.BadgerStatusAuthorized
	} else {
		b.Logger().Info("Invalid badge", "badge", id)
	}
	b.SetStatus(v1.BadgerGenericStatus(s), s)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Closed() {
		return
	}
	if b.deauth != nil {
		b.deauth.Stop()
	}
	b.deauth = b.clock.AfterFunc(authTimeout, b.deauthorize)
}

func (b *Badger) deauthorize() {
	b.Logger().Info("Deauthorizing")
	b.SetStatus(v1.BadgerGenericStatus(v1.BadgerStatusUnknown), v1.BadgerStatusUnknown)
}

func (b *Badger) Start(context.Context) error { return nil }

func (b *Badger) Stop(context.Context) error { return nil }

func (b *Badger) Restart(context.Context) error { return nil }

func (b *Badger) Close() error {
	return b.CloseOnce(func() error {
		b.mu.Lock()
		if b.deauth != nil {
			b.deauth.Stop()
		}
		b.mu.Unlock()
		b.reader.Stop()
		return nil
	})
}
