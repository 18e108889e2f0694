package handler

import "github.com/anicoll/senec-integration/internal/pkg/web"

type SwitchRequest struct {
	Value bool `json:"value"` // true switches on.
}

type NumberRequest struct {
	Value float64 `json:"value"`
}

type WallboxModeRequest struct {
	Mode string `json:"mode"` // locked, optimized or fast.
}

type SpareCapacityRequest struct {
	Percent int `json:"percent"`
}

type PeakShavingRequest struct {
	Mode          string `json:"mode"`           // DEACTIVATED, MANUAL or AUTO.
	CapacityLimit int    `json:"capacity_limit"` // percent.
	EndTime       int64  `json:"end_time"`       // unix millis.
}

func (r PeakShavingRequest) settings() web.PeakShaving {
	return web.PeakShaving{
		Mode:          r.Mode,
		CapacityLimit: r.CapacityLimit,
		EndTime:       r.EndTime,
	}
}
