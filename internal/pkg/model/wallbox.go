package model

import (
	"errors"
	"fmt"
)

var ErrUnknownWallboxMode = errors.New("unknown wallbox mode")

// MaxWallboxes is the number of wallboxes a plant can report.
const MaxWallboxes = 4

// WallboxSlot identifies one physical wallbox. The local device indexes
// wallboxes 0..3, the cloud API numbers them 1..4.
type WallboxSlot int

func WallboxSlotFromNumber(n int) (WallboxSlot, error) {
	if n < 1 || n > MaxWallboxes {
		return 0, fmt.Errorf("wallbox number %d out of range", n)
	}
	return WallboxSlot(n - 1), nil
}

func (s WallboxSlot) Index() int  { return int(s) }
func (s WallboxSlot) Number() int { return int(s) + 1 }

func (s WallboxSlot) Valid() bool {
	return s >= 0 && s < MaxWallboxes
}

func (s WallboxSlot) String() string {
	return fmt.Sprintf("wallbox_%d", s.Number())
}

// AllWallboxSlots lists every slot in index order.
var AllWallboxSlots = []WallboxSlot{0, 1, 2, 3}

// WallboxArray is a per-slot value set, as the local device reports them.
type WallboxArray[T any] [MaxWallboxes]T

func (a WallboxArray[T]) At(s WallboxSlot) T {
	return a[s]
}

type WallboxMode string

func (m WallboxMode) String() string {
	return string(m)
}

const (
	WallboxModeLocked    WallboxMode = "locked"
	WallboxModeOptimized WallboxMode = "optimized"
	WallboxModeFast      WallboxMode = "fast"
)

func ParseWallboxMode(s string) (WallboxMode, error) {
	switch m := WallboxMode(s); m {
	case WallboxModeLocked, WallboxModeOptimized, WallboxModeFast:
		return m, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownWallboxMode, s)
}
