package bridge

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anicoll/senec-integration/internal/pkg/contxt"
	"github.com/anicoll/senec-integration/internal/pkg/model"
)

// Side names the client a change originated from.
type Side int

const (
	Local Side = iota
	Cloud
)

func (s Side) String() string {
	if s == Local {
		return "local"
	}
	return "cloud"
}

const (
	defaultLimit   = 4
	defaultTimeout = 30 * time.Second
)

// Wallboxes is the wallbox control surface both clients expose.
// sync == true asks the receiving client to propagate the change back through the bridge.
type Wallboxes interface {
	SetWallboxMode(ctx context.Context, slot model.WallboxSlot, mode model.WallboxMode, sync bool) error
	SetWallboxAllowIntercharge(ctx context.Context, slot model.WallboxSlot, allow bool, sync bool) error
	SetWallboxCurrentLimit(ctx context.Context, slot model.WallboxSlot, amps float64, sync bool) error
}

// Bridge mirrors wallbox writes between the local and cloud client of one plant.
// It only acts once both sides are attached; until then every call is a no-op.
type Bridge struct {
	mu      sync.RWMutex
	local   Wallboxes
	cloud   Wallboxes
	group   *errgroup.Group
	timeout time.Duration
	logger  *zap.Logger

	queueMu  sync.Mutex
	queue    map[jobKey]*job
	starting sync.WaitGroup
}

type jobKey struct {
	from Side
	what string
	slot model.WallboxSlot
}

// job holds the latest pending value of one change. A newer value replaces
// an older one that has not started yet.
type job struct {
	target Wallboxes
	fn     func(ctx context.Context, w Wallboxes) error
	dirty  bool
}

type Option func(*Bridge)

// WithLimit bounds the number of in-flight mirrored writes.
func WithLimit(n int) Option {
	return func(b *Bridge) { b.group.SetLimit(n) }
}

func WithTimeout(d time.Duration) Option {
	return func(b *Bridge) { b.timeout = d }
}

func New(opts ...Option) *Bridge {
	b := &Bridge{
		group:   &errgroup.Group{},
		timeout: defaultTimeout,
		logger:  zap.L(),
		queue:   map[jobKey]*job{},
	}
	b.group.SetLimit(defaultLimit)
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *Bridge) AttachLocal(w Wallboxes) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.local = w
}

func (b *Bridge) AttachCloud(w Wallboxes) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cloud = w
}

func (b *Bridge) Available() bool {
	if b == nil {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.local != nil && b.cloud != nil
}

func (b *Bridge) counterpart(from Side) Wallboxes {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.local == nil || b.cloud == nil {
		return nil
	}
	if from == Local {
		return b.cloud
	}
	return b.local
}

// WallboxModeChanged schedules the mode on the other client. It reports whether the write was scheduled.
func (b *Bridge) WallboxModeChanged(from Side, slot model.WallboxSlot, mode model.WallboxMode) bool {
	return b.schedule(from, "wallbox_mode", slot, func(ctx context.Context, w Wallboxes) error {
		return w.SetWallboxMode(ctx, slot, mode, false)
	})
}

func (b *Bridge) AllowInterchargeChanged(from Side, slot model.WallboxSlot, allow bool) bool {
	return b.schedule(from, "allow_intercharge", slot, func(ctx context.Context, w Wallboxes) error {
		return w.SetWallboxAllowIntercharge(ctx, slot, allow, false)
	})
}

func (b *Bridge) CurrentLimitChanged(from Side, slot model.WallboxSlot, amps float64) bool {
	return b.schedule(from, "current_limit", slot, func(ctx context.Context, w Wallboxes) error {
		return w.SetWallboxCurrentLimit(ctx, slot, amps, false)
	})
}

// schedule queues fn for the other side without blocking the caller. Writes
// of the same change and slot run one at a time and only the latest waiting
// value is sent.
func (b *Bridge) schedule(from Side, what string, slot model.WallboxSlot, fn func(ctx context.Context, w Wallboxes) error) bool {
	if b == nil {
		return false
	}
	target := b.counterpart(from)
	if target == nil {
		return false
	}
	key := jobKey{from: from, what: what, slot: slot}

	b.queueMu.Lock()
	if j, ok := b.queue[key]; ok {
		j.target, j.fn, j.dirty = target, fn, true
		b.queueMu.Unlock()
		return true
	}
	b.queue[key] = &job{target: target, fn: fn, dirty: true}
	b.starting.Add(1)
	b.queueMu.Unlock()

	go func() {
		defer b.starting.Done()
		b.group.Go(func() error {
			b.drain(key)
			return nil
		})
	}()
	return true
}

func (b *Bridge) drain(key jobKey) {
	logger := b.logger.With(zap.String("from", key.from.String()), zap.String("change", key.what), zap.Stringer("slot", key.slot))
	for {
		b.queueMu.Lock()
		j := b.queue[key]
		if !j.dirty {
			delete(b.queue, key)
			b.queueMu.Unlock()
			return
		}
		target, fn := j.target, j.fn
		j.dirty = false
		b.queueMu.Unlock()

		ctx, cancel := contxt.NewContext(b.timeout)
		if err := fn(ctx, target); err != nil {
			logger.Warn("failed to mirror wallbox change", zap.Error(err))
		} else {
			logger.Debug("mirrored wallbox change")
		}
		cancel()
	}
}

// Wait blocks until every scheduled write has finished.
func (b *Bridge) Wait() {
	if b == nil {
		return
	}
	b.starting.Wait()
	_ = b.group.Wait()
}
