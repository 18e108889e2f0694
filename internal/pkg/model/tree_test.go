package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTree_AbsentValues(t *testing.T) {
	var nilTree Tree
	_, ok := nilTree.Float("ENERGY", "X")
	assert.False(t, ok)

	tree := Tree{"ENERGY": {"GUI_HOUSE_POW": 512.5, "STAT_STATE": int64(14)}}
	_, ok = tree.Float("PV1", "MPP_POWER")
	assert.False(t, ok)
	_, ok = tree.Float("ENERGY", "GUI_GRID_POW")
	assert.False(t, ok)

	v, ok := tree.Float("ENERGY", "GUI_HOUSE_POW")
	assert.True(t, ok)
	assert.Equal(t, 512.5, v)

	n, ok := tree.Int("ENERGY", "STAT_STATE")
	assert.True(t, ok)
	assert.Equal(t, int64(14), n)
}

func TestTree_ArrayIndex(t *testing.T) {
	tree := Tree{"PV1": {"MPP_VOL": []any{401.5, 390.0}}}
	v, ok := tree.FloatAt("PV1", "MPP_VOL", 1)
	assert.True(t, ok)
	assert.Equal(t, 390.0, v)

	_, ok = tree.FloatAt("PV1", "MPP_VOL", 2)
	assert.False(t, ok)
	_, ok = tree.FloatAt("PV1", "MPP_VOL", -1)
	assert.False(t, ok)
}

func TestTree_CloneDoesNotAlias(t *testing.T) {
	tree := Tree{"WALLBOX": {"PROHIBIT_USAGE": []any{int64(0), int64(0)}}}
	c := tree.Clone()
	c["WALLBOX"]["PROHIBIT_USAGE"].([]any)[0] = int64(1)
	c.Set("NEW", "FIELD", "x")

	assert.Equal(t, int64(0), tree["WALLBOX"]["PROHIBIT_USAGE"].([]any)[0])
	assert.NotContains(t, tree, "NEW")
}

func TestWallboxSlot(t *testing.T) {
	s, err := WallboxSlotFromNumber(3)
	assert.NoError(t, err)
	assert.Equal(t, 2, s.Index())
	assert.Equal(t, 3, s.Number())

	_, err = WallboxSlotFromNumber(5)
	assert.Error(t, err)
}

func TestParseWallboxMode(t *testing.T) {
	m, err := ParseWallboxMode("optimized")
	assert.NoError(t, err)
	assert.Equal(t, WallboxModeOptimized, m)

	_, err = ParseWallboxMode("turbo")
	assert.ErrorIs(t, err, ErrUnknownWallboxMode)
}
