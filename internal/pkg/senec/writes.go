package senec

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/anicoll/senec-integration/internal/pkg/bridge"
	"github.com/anicoll/senec-integration/internal/pkg/codec"
	"github.com/anicoll/senec-integration/internal/pkg/model"
	"github.com/anicoll/senec-integration/internal/pkg/overwrite"
)

// field describes how a writable field is encoded on the wire.
type field struct {
	section string
	name    string
	typ     string
	length  int // hex digits
	size    int // array length, 0 for scalars
}

var (
	fieldMaxTotalCurrentByGrid = field{SectionWallbox, "MAX_TOTAL_CURRENT_BY_GRID", codec.TypeFloat, 8, 0}
	fieldWallboxProhibit       = field{SectionWallbox, "PROHIBIT_USAGE", codec.TypeU8, 2, model.MaxWallboxes}
	fieldWallboxIntercharge    = field{SectionWallbox, "ALLOW_INTERCHARGE", codec.TypeU8, 2, model.MaxWallboxes}
	fieldWallboxSmartCharge    = field{SectionWallbox, "SMART_CHARGE_ACTIVE", codec.TypeU8, 2, model.MaxWallboxes}
	fieldWallboxICMax          = field{SectionWallbox, "SET_ICMAX", codec.TypeFloat, 8, model.MaxWallboxes}
	fieldSocketEnable          = field{SectionSockets, "ENABLE", codec.TypeU1, 4, Sockets}
	fieldSocketForceOn         = field{SectionSockets, "FORCE_ON", codec.TypeU1, 4, Sockets}
	fieldSocketUseTime         = field{SectionSockets, "USE_TIME", codec.TypeU1, 4, Sockets}
	fieldSocketLowerLimit      = field{SectionSockets, "LOWER_LIMIT", codec.TypeU1, 4, Sockets}
	fieldSocketUpperLimit      = field{SectionSockets, "UPPER_LIMIT", codec.TypeU1, 4, Sockets}
	fieldSocketPowerOnTime     = field{SectionSockets, "POWER_ON_TIME", codec.TypeU1, 4, Sockets}
	fieldSocketSwitchOnHour    = field{SectionSockets, "SWITCH_ON_HOUR", codec.TypeU1, 4, Sockets}
	fieldSocketSwitchOnMinute  = field{SectionSockets, "SWITCH_ON_MINUTE", codec.TypeU1, 4, Sockets}
	fieldSocketTimeLimit       = field{SectionSockets, "TIME_LIMIT", codec.TypeU1, 4, Sockets}
)

// nativeValue is what the decoder would have produced for v, so patched
// trees look like polled ones.
func (f field) nativeValue(v any) any {
	if f.typ == codec.TypeFloat {
		fv, _ := model.AsFloat(v)
		return fv
	}
	iv, _ := model.AsInt(v)
	return iv
}

// arrayValue is one index of an array field to change.
type arrayValue struct {
	field field
	value any
}

// writeField stamps the overwrite, patches the tree and posts the single field.
func (c *Client) writeField(ctx context.Context, f field, value any) error {
	native := f.nativeValue(value)
	c.overwrites.Set(overwrite.Key(f.section, f.name), native)
	c.patch(f.section, f.name, native)
	return c.send(ctx, request{
		f.section: {f.name: codec.Encode(f.typ, native, f.length)},
	})
}

// writeArrays changes index idx of one or more array fields in a single post.
// In memory the whole array is kept; on the wire every other index is "".
func (c *Client) writeArrays(ctx context.Context, idx int, values ...arrayValue) error {
	delta := request{}
	for _, av := range values {
		f := av.field
		if idx < 0 || idx >= f.size {
			return fmt.Errorf("%w: %s[%d]", ErrIndexOutOfRange, f.name, idx)
		}
		native := f.nativeValue(av.value)

		current, _ := c.readArray(f.section, f.name)
		full := make([]any, f.size)
		copy(full, current)
		full[idx] = native
		c.overwrites.Set(overwrite.Key(f.section, f.name), full)
		c.patch(f.section, f.name, full)

		wire := make([]any, f.size)
		for i := range wire {
			wire[i] = ""
		}
		wire[idx] = codec.Encode(f.typ, native, f.length)
		if delta[f.section] == nil {
			delta[f.section] = map[string]any{}
		}
		delta[f.section][f.name] = wire
	}
	return c.send(ctx, delta)
}

// writeCommand posts a one-shot trigger field and optimistically flips the
// status field that reflects it.
func (c *Client) writeCommand(ctx context.Context, command, status string, value bool) error {
	native := flag(value)
	c.overwrites.Set(overwrite.Key(SectionEnergy, status), native)
	c.patch(SectionEnergy, status, native)
	return c.send(ctx, request{
		SectionEnergy: {command: codec.Encode(codec.TypeU8, 1, 2)},
	})
}

func (c *Client) patch(section, name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// committed trees are shared with readers, never mutate them in place.
	tree := c.tree.Clone()
	if tree == nil {
		tree = model.Tree{}
	}
	tree.Set(section, name, value)
	c.tree = tree
}

func (c *Client) send(ctx context.Context, delta request) error {
	data, err := c.post(ctx, delta)
	if err != nil {
		c.logger.Error("lala.cgi write failed", zap.Any("delta", delta), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	c.logger.Debug("lala.cgi write", zap.Any("delta", delta), zap.ByteString("response", data))
	c.mu.Lock()
	c.lastWriteResponse = data
	c.mu.Unlock()
	return nil
}

func flag(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func (c *Client) SetSafeCharge(ctx context.Context, on bool) error {
	if on {
		return c.writeCommand(ctx, "SAFE_CHARGE_FORCE", "SAFE_CHARGE_RUNNING", true)
	}
	return c.writeCommand(ctx, "SAFE_CHARGE_PROHIBIT", "SAFE_CHARGE_RUNNING", false)
}

func (c *Client) SetLiStorageMode(ctx context.Context, on bool) error {
	if on {
		return c.writeCommand(ctx, "LI_STORAGE_MODE_START", "LI_STORAGE_MODE_RUNNING", true)
	}
	return c.writeCommand(ctx, "LI_STORAGE_MODE_STOP", "LI_STORAGE_MODE_RUNNING", false)
}

// SetWallboxMode maps the mode onto PROHIBIT_USAGE and SMART_CHARGE_ACTIVE.
// With sync the cloud client is told as well.
func (c *Client) SetWallboxMode(ctx context.Context, slot model.WallboxSlot, mode model.WallboxMode, sync bool) error {
	if !slot.Valid() {
		return fmt.Errorf("%w: %s", ErrIndexOutOfRange, slot)
	}
	var values []arrayValue
	switch mode {
	case model.WallboxModeLocked:
		values = []arrayValue{{fieldWallboxProhibit, 1}}
	case model.WallboxModeOptimized:
		values = []arrayValue{{fieldWallboxProhibit, 0}, {fieldWallboxSmartCharge, 1}}
	case model.WallboxModeFast:
		values = []arrayValue{{fieldWallboxProhibit, 0}, {fieldWallboxSmartCharge, 0}}
	default:
		return fmt.Errorf("%w %q", model.ErrUnknownWallboxMode, mode)
	}
	if err := c.writeArrays(ctx, slot.Index(), values...); err != nil {
		return err
	}
	if sync {
		c.bridge.WallboxModeChanged(bridge.Local, slot, mode)
	}
	return nil
}

func (c *Client) SetWallboxAllowIntercharge(ctx context.Context, slot model.WallboxSlot, allow bool, sync bool) error {
	if err := c.writeArrays(ctx, slot.Index(), arrayValue{fieldWallboxIntercharge, flag(allow)}); err != nil {
		return err
	}
	if sync {
		c.bridge.AllowInterchargeChanged(bridge.Local, slot, allow)
	}
	return nil
}

func (c *Client) SetWallboxCurrentLimit(ctx context.Context, slot model.WallboxSlot, amps float64, sync bool) error {
	if err := c.writeArrays(ctx, slot.Index(), arrayValue{fieldWallboxICMax, amps}); err != nil {
		return err
	}
	if sync {
		c.bridge.CurrentLimitChanged(bridge.Local, slot, amps)
	}
	return nil
}
