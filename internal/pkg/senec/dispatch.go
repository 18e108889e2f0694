package senec

import (
	"context"
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/anicoll/senec-integration/internal/pkg/model"
)

type switchHandler struct {
	get func() (bool, bool)
	set func(ctx context.Context, on bool) error
}

type arraySwitchHandler struct {
	size int
	get  func(idx int) (bool, bool)
	set  func(ctx context.Context, idx int, on bool) error
}

type numberHandler struct {
	get func() (float64, bool)
	set func(ctx context.Context, v float64) error
}

type arrayNumberHandler struct {
	size int
	get  func(idx int) (float64, bool)
	set  func(ctx context.Context, idx int, v float64) error
}

func (c *Client) arraySwitch(f field) arraySwitchHandler {
	return arraySwitchHandler{
		size: f.size,
		get:  func(idx int) (bool, bool) { return c.readBoolAt(f.section, f.name, idx) },
		set: func(ctx context.Context, idx int, on bool) error {
			return c.writeArrays(ctx, idx, arrayValue{f, flag(on)})
		},
	}
}

func (c *Client) arrayNumber(f field) arrayNumberHandler {
	return arrayNumberHandler{
		size: f.size,
		get:  func(idx int) (float64, bool) { return c.readFloatAt(f.section, f.name, idx) },
		set: func(ctx context.Context, idx int, v float64) error {
			return c.writeArrays(ctx, idx, arrayValue{f, v})
		},
	}
}

// buildDispatch maps entity keys to their read/write pair.
func (c *Client) buildDispatch() {
	c.switches = map[string]switchHandler{
		"safe_charge":     {get: c.SafeCharge, set: c.SetSafeCharge},
		"li_storage_mode": {get: c.LiStorageMode, set: c.SetLiStorageMode},
	}

	intercharge := c.arraySwitch(fieldWallboxIntercharge)
	intercharge.set = func(ctx context.Context, idx int, on bool) error {
		return c.SetWallboxAllowIntercharge(ctx, model.WallboxSlot(idx), on, true)
	}
	// releasing a locked wallbox restores the mode its smart-charge flag implies.
	prohibit := c.arraySwitch(fieldWallboxProhibit)
	prohibit.set = func(ctx context.Context, idx int, on bool) error {
		slot := model.WallboxSlot(idx)
		mode := model.WallboxModeLocked
		if !on {
			mode = model.WallboxModeFast
			if smart, _ := c.WallboxSmartChargeActive(slot); smart {
				mode = model.WallboxModeOptimized
			}
		}
		return c.SetWallboxMode(ctx, slot, mode, true)
	}
	c.arraySwitches = map[string]arraySwitchHandler{
		"wallbox_allow_intercharge":   intercharge,
		"wallbox_prohibit_usage":      prohibit,
		"wallbox_smart_charge_active": c.arraySwitch(fieldWallboxSmartCharge),
		"sockets_enable":              c.arraySwitch(fieldSocketEnable),
		"sockets_force_on":            c.arraySwitch(fieldSocketForceOn),
		"sockets_use_time":            c.arraySwitch(fieldSocketUseTime),
	}

	c.numbers = map[string]numberHandler{
		"wallbox_max_total_current_by_grid": {
			get: c.WallboxMaxTotalCurrentByGrid,
			set: func(ctx context.Context, v float64) error {
				return c.writeField(ctx, fieldMaxTotalCurrentByGrid, v)
			},
		},
	}

	icmax := c.arrayNumber(fieldWallboxICMax)
	icmax.set = func(ctx context.Context, idx int, v float64) error {
		return c.SetWallboxCurrentLimit(ctx, model.WallboxSlot(idx), v, true)
	}
	c.arrayNumbers = map[string]arrayNumberHandler{
		"wallbox_set_icmax":        icmax,
		"sockets_lower_limit":      c.arrayNumber(fieldSocketLowerLimit),
		"sockets_upper_limit":      c.arrayNumber(fieldSocketUpperLimit),
		"sockets_power_on_time":    c.arrayNumber(fieldSocketPowerOnTime),
		"sockets_switch_on_hour":   c.arrayNumber(fieldSocketSwitchOnHour),
		"sockets_switch_on_minute": c.arrayNumber(fieldSocketSwitchOnMinute),
		"sockets_time_limit":       c.arrayNumber(fieldSocketTimeLimit),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}

func (c *Client) SwitchKeys() []string      { return sortedKeys(c.switches) }
func (c *Client) ArraySwitchKeys() []string { return sortedKeys(c.arraySwitches) }
func (c *Client) NumberKeys() []string      { return sortedKeys(c.numbers) }
func (c *Client) ArrayNumberKeys() []string { return sortedKeys(c.arrayNumbers) }

func (c *Client) Switch(key string) (bool, bool, error) {
	h, ok := c.switches[key]
	if !ok {
		return false, false, fmt.Errorf("%w: switch %q", ErrUnknownKey, key)
	}
	v, ok := h.get()
	return v, ok, nil
}

func (c *Client) SetSwitch(ctx context.Context, key string, on bool) error {
	h, ok := c.switches[key]
	if !ok {
		return fmt.Errorf("%w: switch %q", ErrUnknownKey, key)
	}
	return h.set(ctx, on)
}

func (c *Client) ArraySwitch(key string, idx int) (bool, bool, error) {
	h, ok := c.arraySwitches[key]
	if !ok {
		return false, false, fmt.Errorf("%w: array switch %q", ErrUnknownKey, key)
	}
	v, ok := h.get(idx)
	return v, ok, nil
}

func (c *Client) SetArraySwitch(ctx context.Context, key string, idx int, on bool) error {
	h, ok := c.arraySwitches[key]
	if !ok {
		return fmt.Errorf("%w: array switch %q", ErrUnknownKey, key)
	}
	if idx < 0 || idx >= h.size {
		return fmt.Errorf("%w: %s[%d]", ErrIndexOutOfRange, key, idx)
	}
	return h.set(ctx, idx, on)
}

func (c *Client) Number(key string) (float64, bool, error) {
	h, ok := c.numbers[key]
	if !ok {
		return 0, false, fmt.Errorf("%w: number %q", ErrUnknownKey, key)
	}
	v, ok := h.get()
	return v, ok, nil
}

func (c *Client) SetNumber(ctx context.Context, key string, v float64) error {
	h, ok := c.numbers[key]
	if !ok {
		return fmt.Errorf("%w: number %q", ErrUnknownKey, key)
	}
	return h.set(ctx, v)
}

func (c *Client) ArrayNumber(key string, idx int) (float64, bool, error) {
	h, ok := c.arrayNumbers[key]
	if !ok {
		return 0, false, fmt.Errorf("%w: array number %q", ErrUnknownKey, key)
	}
	v, ok := h.get(idx)
	return v, ok, nil
}

func (c *Client) SetArrayNumber(ctx context.Context, key string, idx int, v float64) error {
	h, ok := c.arrayNumbers[key]
	if !ok {
		return fmt.Errorf("%w: array number %q", ErrUnknownKey, key)
	}
	if idx < 0 || idx >= h.size {
		return fmt.Errorf("%w: %s[%d]", ErrIndexOutOfRange, key, idx)
	}
	return h.set(ctx, idx, v)
}
