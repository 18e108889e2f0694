package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anicoll/senec-integration/internal/pkg/model"
)

func (s *service) Write(ctx context.Context, data []map[string]any) error {
	for _, d := range data {
		if err := s.PublishData(d); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) RegisterDevice(device *model.Device) error {
	s.mu.Lock()
	_, exists := s.configuredDevices[device.ID]
	s.mu.Unlock()
	if exists {
		return nil
	}
	registerMessage := defaultRegisterMsg(device)

	topic := fmt.Sprintf("homeassistant/sensor/%s/config", device.Identifier())

	payload, err := json.Marshal(registerMessage)
	if err != nil {
		return err
	}
	token := s.client.Publish(topic, 1, true, payload)
	if res := token.WaitTimeout(time.Second * 5); !res {
		return fmt.Errorf("register %s: publish timed out", device.ID)
	}
	if err := token.Error(); err != nil {
		return err
	}
	s.mu.Lock()
	s.configuredDevices[device.ID] = struct{}{}
	s.mu.Unlock()
	return nil
}

func (s *service) PublishData(data map[string]any) error {
	slug := data["slug"].(string)
	isTextSensor := model.TextSensors.HasSlug(slug)
	topic := fmt.Sprintf("homeassistant/sensor/%s/%s/state", data["identifier"], slug)

	payload := map[string]string{
		"value": data["value"].(string),
	}
	if unit, ok := data["unit_of_measurement"].(string); ok && !isTextSensor && unit != "" {
		payload["unit_of_measurement"] = unit
	}

	publishData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	token := s.client.Publish(topic, 0, false, publishData)
	res := token.WaitTimeout(time.Second * 10)
	if res {
		return token.Error()
	}
	if err := token.Error(); err != nil {
		return err
	}
	return nil
}

func defaultRegisterMsg(device *model.Device) model.RegisterMessage {
	name := fmt.Sprintf("%s %s", device.Model, device.SerialNumber)
	slugIdentifier := device.Identifier()

	return model.RegisterMessage{
		Tilda:      fmt.Sprintf("homeassistant/sensor/%s", slugIdentifier),
		Name:       name,
		ID:         strings.ToLower(slugIdentifier),
		StateTopic: "~/state",
		Device: model.RegisterDevice{
			Name:         name,
			Identifiers:  []string{slugIdentifier},
			Model:        device.Model,
			Manufacturer: "SENEC",
		},
	}
}
