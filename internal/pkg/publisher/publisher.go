package publisher

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/senec-integration/internal/pkg/model"
)

var errAlreadyRegistered = errors.New("publisher already registered")

type publisher interface {
	// Write publishes the changed sensor payloads.
	Write(ctx context.Context, data []map[string]any) error
	RegisterDevice(device *model.Device) error
}

// Publisher fans sensor snapshots out to the registered sinks, sending each
// sensor only when its value changed.
type Publisher struct {
	mu         sync.RWMutex
	publishers map[string]publisher
	sensors    sync.Map
	logger     *zap.Logger
	now        func() time.Time
}

func New() *Publisher {
	return &Publisher{
		publishers: make(map[string]publisher),
		logger:     zap.L(),
		now:        time.Now,
	}
}

func (p *Publisher) RegisterPublisher(name string, pub publisher) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.publishers[name]; ok {
		return errAlreadyRegistered
	}
	p.publishers[name] = pub
	return nil
}

// PublishData sends the changed statuses and returns how many were sent.
// Statuses without a value are skipped. A value counts as published once
// at least one sink accepted it; until then it is sent again on the next call.
func (p *Publisher) PublishData(ctx context.Context, deviceStatusMap map[model.Device][]model.DeviceStatus) int {
	data := make([]map[string]any, 0)
	pending := make(map[string]string)
	for device, statuses := range deviceStatusMap {
		identifier := device.Identifier()
		for _, status := range statuses {
			if status.Value == nil {
				continue
			}
			val := *status.Value
			if !model.TextSensors.HasSlug(textSlug(status.Slug)) {
				value, ok := new(big.Rat).SetString(val)
				if !ok {
					p.logger.Debug("non numeric sensor value", zap.String("slug", status.Slug), zap.String("value", val))
				} else {
					val = value.FloatString(4)
				}
			}

			key := sensorKey(identifier, status.Slug)
			if !p.shouldUpdate(key, val) {
				continue
			}
			pending[key] = val
			data = append(data, map[string]any{
				"value":               val,
				"slug":                status.Slug,
				"timestamp":           p.now(),
				"identifier":          identifier,
				"backend":             device.Backend.String(),
				"unit_of_measurement": status.Unit,
			})
		}
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	delivered := false
	for name, pub := range p.publishers {
		if err := pub.Write(ctx, data); err != nil {
			p.logger.Error("failed to publish data", zap.Error(err), zap.String("publisher", name))
			continue
		}
		delivered = true
		p.logger.Debug("updated sensors", zap.Int("count", len(data)), zap.String("publisher", name))
	}
	if delivered {
		p.commit(pending)
	}
	return len(data)
}

func (p *Publisher) RegisterDevice(device *model.Device) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for name, pub := range p.publishers {
		if err := pub.RegisterDevice(device); err != nil {
			p.logger.Error("failed to register device", zap.Error(err), zap.String("publisher", name))
			continue
		}
		p.logger.Debug("registered device", zap.String("device", device.SerialNumber), zap.String("publisher", name))
	}
}

func sensorKey(identifier, slug string) string {
	return fmt.Sprintf("%s_%s", identifier, slug)
}

func (p *Publisher) shouldUpdate(key, newValue string) bool {
	oldValue, exists := p.sensors.Load(key)
	return !exists || !strings.EqualFold(newValue, oldValue.(string))
}

func (p *Publisher) commit(values map[string]string) {
	for key, value := range values {
		if _, loaded := p.sensors.Swap(key, value); !loaded {
			p.logger.Info("configured sensor", zap.String("sensor", key), zap.String("value", value))
		}
	}
}

// textSlug strips per-slot and backend prefixes so "wallbox_1_wallbox_mode"
// and "cloud_peak_shaving_mode" match their text sensor.
func textSlug(slug string) string {
	for _, t := range model.TextSensors {
		if strings.HasSuffix(slug, t.String()) {
			return t.String()
		}
	}
	return slug
}
