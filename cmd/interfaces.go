package cmd

import (
	"context"
	"time"

	"github.com/anicoll/senec-integration/internal/pkg/model"
)

// Source is a polled backend, as run expects it.
type Source interface {
	Update(ctx context.Context) error
	Sensors() []model.DeviceStatus
}

type source struct {
	device   model.Device
	interval time.Duration
	client   Source
}
