package cmd

import (
	"context"

	"github.com/anicoll/senec-integration/internal/pkg/handler"
	"github.com/anicoll/senec-integration/internal/pkg/metrics"
	"github.com/anicoll/senec-integration/internal/pkg/model"
	"github.com/anicoll/senec-integration/internal/pkg/senec"
	"github.com/anicoll/senec-integration/internal/pkg/web"
)

// controller routes write triggers from HTTP and MQTT to the configured
// backends. Wallbox writes are made with sync so the bridge mirrors them.
type controller struct {
	local   *senec.Client
	cloud   *web.Client
	metrics *metrics.Metrics
}

func (c *controller) observe(backend model.Backend, key string, err error) error {
	c.metrics.ObserveWrite(backend, key, err)
	return err
}

func (c *controller) SetSwitch(ctx context.Context, key string, on bool) error {
	if c.local == nil {
		return handler.ErrNotConfigured
	}
	return c.observe(model.BackendLocal, key, c.local.SetSwitch(ctx, key, on))
}

func (c *controller) SetArraySwitch(ctx context.Context, key string, idx int, on bool) error {
	if c.local == nil {
		return handler.ErrNotConfigured
	}
	return c.observe(model.BackendLocal, key, c.local.SetArraySwitch(ctx, key, idx, on))
}

func (c *controller) SetNumber(ctx context.Context, key string, v float64) error {
	if c.local == nil {
		return handler.ErrNotConfigured
	}
	return c.observe(model.BackendLocal, key, c.local.SetNumber(ctx, key, v))
}

func (c *controller) SetArrayNumber(ctx context.Context, key string, idx int, v float64) error {
	if c.local == nil {
		return handler.ErrNotConfigured
	}
	return c.observe(model.BackendLocal, key, c.local.SetArrayNumber(ctx, key, idx, v))
}

func (c *controller) SetWallboxMode(ctx context.Context, backend model.Backend, slot model.WallboxSlot, mode model.WallboxMode) error {
	switch {
	case backend == model.BackendLocal && c.local != nil:
		return c.observe(backend, "wallbox_mode", c.local.SetWallboxMode(ctx, slot, mode, true))
	case backend == model.BackendCloud && c.cloud != nil:
		return c.observe(backend, "wallbox_mode", c.cloud.SetWallboxMode(ctx, slot, mode, true))
	}
	return handler.ErrNotConfigured
}

func (c *controller) SetWallboxCurrentLimit(ctx context.Context, backend model.Backend, slot model.WallboxSlot, amps float64) error {
	switch {
	case backend == model.BackendLocal && c.local != nil:
		return c.observe(backend, "wallbox_current_limit", c.local.SetWallboxCurrentLimit(ctx, slot, amps, true))
	case backend == model.BackendCloud && c.cloud != nil:
		return c.observe(backend, "wallbox_current_limit", c.cloud.SetWallboxCurrentLimit(ctx, slot, amps, true))
	}
	return handler.ErrNotConfigured
}

func (c *controller) SetWallboxAllowIntercharge(ctx context.Context, backend model.Backend, slot model.WallboxSlot, allow bool) error {
	switch {
	case backend == model.BackendLocal && c.local != nil:
		return c.observe(backend, "wallbox_allow_intercharge", c.local.SetWallboxAllowIntercharge(ctx, slot, allow, true))
	case backend == model.BackendCloud && c.cloud != nil:
		return c.observe(backend, "wallbox_allow_intercharge", c.cloud.SetWallboxAllowIntercharge(ctx, slot, allow, true))
	}
	return handler.ErrNotConfigured
}

func (c *controller) SetSpareCapacity(ctx context.Context, percent int) error {
	if c.cloud == nil {
		return handler.ErrNotConfigured
	}
	return c.observe(model.BackendCloud, "spare_capacity", c.cloud.SetSpareCapacity(ctx, percent))
}

func (c *controller) SetPeakShaving(ctx context.Context, settings web.PeakShaving) error {
	if c.cloud == nil {
		return handler.ErrNotConfigured
	}
	return c.observe(model.BackendCloud, "peak_shaving", c.cloud.SetPeakShaving(ctx, settings))
}
