package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/anicoll/senec-integration/internal/pkg/bridge"
	"github.com/anicoll/senec-integration/internal/pkg/model"
)

// Charging mode types of the app gateway.
const (
	chargingModeLocked = "LOCKED"
	chargingModeSolar  = "SOLAR"
	chargingModeFast   = "FAST"
)

type wallboxData struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	ProhibitUsage        bool    `json:"prohibitUsage"`
	ChargingMode         string  `json:"chargingMode"`
	AllowIntercharge     bool    `json:"allowIntercharge"`
	ChargingCurrentLimit float64 `json:"chargingCurrentLimitInA"`
	MinChargingCurrent   float64 `json:"minChargingCurrentInA"`
	ChargingPower        float64 `json:"currentApparentChargingPowerInKw"`
	EVConnected          bool    `json:"electricVehicleConnected"`
	IsCharging           bool    `json:"isCharging"`
}

func (w *wallboxData) mode() model.WallboxMode {
	if w.ProhibitUsage || w.ChargingMode == chargingModeLocked {
		return model.WallboxModeLocked
	}
	if w.ChargingMode == chargingModeFast {
		return model.WallboxModeFast
	}
	return model.WallboxModeOptimized
}

func chargingModeFor(mode model.WallboxMode) (string, error) {
	switch mode {
	case model.WallboxModeLocked:
		return chargingModeLocked, nil
	case model.WallboxModeOptimized:
		return chargingModeSolar, nil
	case model.WallboxModeFast:
		return chargingModeFast, nil
	}
	return "", fmt.Errorf("%w %q", model.ErrUnknownWallboxMode, mode)
}

func (c *Client) wallboxPath(slot model.WallboxSlot, suffix string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("%s/%s/wallboxes/%d%s", appPlantsPath, c.appPlantID, slot.Number(), suffix)
}

// WallboxCount is the number of wallbox slots still polled this session.
func (c *Client) WallboxCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wallboxMax
}

// updateWallboxes walks slots 1..N. The first slot without data shrinks N
// for the rest of the session.
func (c *Client) updateWallboxes(ctx context.Context) error {
	if !c.isAppAuthenticated() {
		if err := c.AppAuthenticate(ctx); err != nil {
			return err
		}
	}
	var fetched model.WallboxArray[*wallboxData]
	limit := c.WallboxCount()
	for _, slot := range model.AllWallboxSlots[:limit] {
		data := &wallboxData{}
		err := c.withAppSession(ctx, func(ctx context.Context) error {
			return c.doApp(ctx, http.MethodGet, c.wallboxPath(slot, ""), nil, data)
		})
		if errors.Is(err, ErrNoData) {
			c.mu.Lock()
			c.wallboxMax = slot.Index()
			c.mu.Unlock()
			c.logger.Info("no data for wallbox, not polling it again", zap.Stringer("slot", slot))
			break
		}
		if err != nil {
			return fmt.Errorf("%s: %w", slot, err)
		}
		fetched[slot] = data
	}
	c.mu.Lock()
	c.wallboxes = fetched
	c.mu.Unlock()
	return nil
}

func (c *Client) wallbox(slot model.WallboxSlot) (wallboxData, bool) {
	if !slot.Valid() {
		return wallboxData{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.wallboxes[slot]
	if w == nil {
		return wallboxData{}, false
	}
	return *w, true
}

func (c *Client) patchWallbox(slot model.WallboxSlot, fn func(w *wallboxData)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if w := c.wallboxes[slot]; w != nil {
		cp := *w
		fn(&cp)
		c.wallboxes[slot] = &cp
	}
}

func (c *Client) writeWallbox(ctx context.Context, slot model.WallboxSlot, setting string, body any) error {
	if !slot.Valid() {
		return fmt.Errorf("invalid wallbox slot %d", slot)
	}
	return c.withAppSession(ctx, func(ctx context.Context) error {
		return c.doApp(ctx, http.MethodPut, c.wallboxPath(slot, "/settings/"+setting), body, nil)
	})
}

// SetWallboxMode sets the charging mode. With sync the local client is told as well.
func (c *Client) SetWallboxMode(ctx context.Context, slot model.WallboxSlot, mode model.WallboxMode, sync bool) error {
	typ, err := chargingModeFor(mode)
	if err != nil {
		return err
	}
	if err := c.writeWallbox(ctx, slot, "chargingMode", map[string]string{"type": typ}); err != nil {
		return err
	}
	c.patchWallbox(slot, func(w *wallboxData) {
		w.ChargingMode = typ
		w.ProhibitUsage = mode == model.WallboxModeLocked
	})
	if sync {
		c.bridge.WallboxModeChanged(bridge.Cloud, slot, mode)
	}
	return nil
}

func (c *Client) SetWallboxCurrentLimit(ctx context.Context, slot model.WallboxSlot, amps float64, sync bool) error {
	if err := c.writeWallbox(ctx, slot, "chargingCurrentLimit", map[string]float64{"chargingCurrentLimitInA": amps}); err != nil {
		return err
	}
	c.patchWallbox(slot, func(w *wallboxData) { w.ChargingCurrentLimit = amps })
	if sync {
		c.bridge.CurrentLimitChanged(bridge.Cloud, slot, amps)
	}
	return nil
}

func (c *Client) SetWallboxAllowIntercharge(ctx context.Context, slot model.WallboxSlot, allow bool, sync bool) error {
	if err := c.writeWallbox(ctx, slot, "allowIntercharge", map[string]bool{"allowIntercharge": allow}); err != nil {
		return err
	}
	c.patchWallbox(slot, func(w *wallboxData) { w.AllowIntercharge = allow })
	if sync {
		c.bridge.AllowInterchargeChanged(bridge.Cloud, slot, allow)
	}
	return nil
}
