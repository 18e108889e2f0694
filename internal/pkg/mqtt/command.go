package mqtt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/anicoll/senec-integration/internal/pkg/contxt"
	"github.com/anicoll/senec-integration/internal/pkg/model"
)

var ErrInvalidCommand = errors.New("invalid command")

const commandTimeout = 30 * time.Second

type controller interface {
	SetSwitch(ctx context.Context, key string, on bool) error
	SetArraySwitch(ctx context.Context, key string, idx int, on bool) error
	SetNumber(ctx context.Context, key string, v float64) error
	SetArrayNumber(ctx context.Context, key string, idx int, v float64) error
	SetWallboxMode(ctx context.Context, backend model.Backend, slot model.WallboxSlot, mode model.WallboxMode) error
	SetWallboxCurrentLimit(ctx context.Context, backend model.Backend, slot model.WallboxSlot, amps float64) error
	SetWallboxAllowIntercharge(ctx context.Context, backend model.Backend, slot model.WallboxSlot, allow bool) error
	SetSpareCapacity(ctx context.Context, percent int) error
}

type commandKind string

const (
	switchCommand        commandKind = "switch"
	arraySwitchCommand   commandKind = "array_switch"
	numberCommand        commandKind = "number"
	arrayNumberCommand   commandKind = "array_number"
	wallboxCommand       commandKind = "wallbox"
	spareCapacityCommand commandKind = "spare_capacity"
)

const (
	wallboxModeSetting        = "mode"
	wallboxCurrentSetting     = "current"
	wallboxInterchargeSetting = "intercharge"
)

type command struct {
	kind    commandKind
	key     string
	index   int
	backend model.Backend
	slot    model.WallboxSlot
	payload string
}

// Subscribe routes <base>/command/.../set messages to ctrl.
func (s *service) Subscribe(ctrl controller) error {
	topic := s.baseTopic + "/command/#"
	token := s.client.Subscribe(topic, 1, func(_ paho_mqtt.Client, msg paho_mqtt.Message) {
		s.handleMessage(ctrl, msg.Topic(), msg.Payload())
	})
	if res := token.WaitTimeout(time.Second * 5); !res {
		return fmt.Errorf("subscribe %s: timed out", topic)
	}
	return token.Error()
}

func (s *service) handleMessage(ctrl controller, topic string, payload []byte) {
	logger := s.logger.With(zap.String("topic", topic))
	cmd, err := parseCommand(s.baseTopic, topic, payload)
	if err != nil {
		logger.Warn("ignoring command", zap.Error(err))
		return
	}
	ctx, cancel := contxt.NewContext(commandTimeout)
	defer cancel()
	if err := execute(ctx, ctrl, cmd); err != nil {
		logger.Error("command failed", zap.Error(err), zap.String("payload", cmd.payload))
		return
	}
	logger.Info("command applied", zap.String("payload", cmd.payload))
}

func parseCommand(base, topic string, payload []byte) (command, error) {
	rest, ok := strings.CutPrefix(topic, base+"/command/")
	if !ok {
		return command{}, fmt.Errorf("%w: unexpected topic %q", ErrInvalidCommand, topic)
	}
	parts := strings.Split(rest, "/")
	if len(parts) < 2 || parts[len(parts)-1] != "set" {
		return command{}, fmt.Errorf("%w: unexpected topic %q", ErrInvalidCommand, topic)
	}
	parts = parts[:len(parts)-1]
	cmd := command{kind: commandKind(parts[0]), payload: strings.TrimSpace(string(payload))}

	var err error
	switch cmd.kind {
	case switchCommand, numberCommand:
		if len(parts) != 2 {
			return command{}, fmt.Errorf("%w: %s needs a key", ErrInvalidCommand, cmd.kind)
		}
		cmd.key = parts[1]
	case arraySwitchCommand, arrayNumberCommand:
		if len(parts) != 3 {
			return command{}, fmt.Errorf("%w: %s needs a key and index", ErrInvalidCommand, cmd.kind)
		}
		cmd.key = parts[1]
		if cmd.index, err = strconv.Atoi(parts[2]); err != nil {
			return command{}, fmt.Errorf("%w: index %q", ErrInvalidCommand, parts[2])
		}
	case wallboxCommand:
		if len(parts) != 4 {
			return command{}, fmt.Errorf("%w: wallbox needs backend, number and setting", ErrInvalidCommand)
		}
		cmd.backend = model.Backend(parts[1])
		if cmd.backend != model.BackendLocal && cmd.backend != model.BackendCloud {
			return command{}, fmt.Errorf("%w: backend %q", ErrInvalidCommand, parts[1])
		}
		n, err := strconv.Atoi(parts[2])
		if err != nil {
			return command{}, fmt.Errorf("%w: wallbox %q", ErrInvalidCommand, parts[2])
		}
		if cmd.slot, err = model.WallboxSlotFromNumber(n); err != nil {
			return command{}, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
		}
		cmd.key = parts[3]
		switch cmd.key {
		case wallboxModeSetting, wallboxCurrentSetting, wallboxInterchargeSetting:
		default:
			return command{}, fmt.Errorf("%w: wallbox setting %q", ErrInvalidCommand, cmd.key)
		}
	case spareCapacityCommand:
		if len(parts) != 1 {
			return command{}, fmt.Errorf("%w: unexpected topic %q", ErrInvalidCommand, topic)
		}
	default:
		return command{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidCommand, cmd.kind)
	}
	return cmd, nil
}

func execute(ctx context.Context, ctrl controller, cmd command) error {
	switch cmd.kind {
	case switchCommand:
		on, err := parseSwitch(cmd.payload)
		if err != nil {
			return err
		}
		return ctrl.SetSwitch(ctx, cmd.key, on)
	case arraySwitchCommand:
		on, err := parseSwitch(cmd.payload)
		if err != nil {
			return err
		}
		return ctrl.SetArraySwitch(ctx, cmd.key, cmd.index, on)
	case numberCommand:
		v, err := parseNumber(cmd.payload)
		if err != nil {
			return err
		}
		return ctrl.SetNumber(ctx, cmd.key, v)
	case arrayNumberCommand:
		v, err := parseNumber(cmd.payload)
		if err != nil {
			return err
		}
		return ctrl.SetArrayNumber(ctx, cmd.key, cmd.index, v)
	case wallboxCommand:
		switch cmd.key {
		case wallboxModeSetting:
			mode, err := model.ParseWallboxMode(strings.ToLower(cmd.payload))
			if err != nil {
				return err
			}
			return ctrl.SetWallboxMode(ctx, cmd.backend, cmd.slot, mode)
		case wallboxInterchargeSetting:
			allow, err := parseSwitch(cmd.payload)
			if err != nil {
				return err
			}
			return ctrl.SetWallboxAllowIntercharge(ctx, cmd.backend, cmd.slot, allow)
		}
		v, err := parseNumber(cmd.payload)
		if err != nil {
			return err
		}
		return ctrl.SetWallboxCurrentLimit(ctx, cmd.backend, cmd.slot, v)
	case spareCapacityCommand:
		v, err := strconv.Atoi(cmd.payload)
		if err != nil {
			return fmt.Errorf("%w: percent %q", ErrInvalidCommand, cmd.payload)
		}
		return ctrl.SetSpareCapacity(ctx, v)
	}
	return fmt.Errorf("%w: unknown kind %q", ErrInvalidCommand, cmd.kind)
}

// parseSwitch accepts the Home Assistant ON/OFF payloads as well as booleans.
func parseSwitch(payload string) (bool, error) {
	switch strings.ToUpper(payload) {
	case "ON":
		return true, nil
	case "OFF":
		return false, nil
	}
	v, err := strconv.ParseBool(payload)
	if err != nil {
		return false, fmt.Errorf("%w: switch payload %q", ErrInvalidCommand, payload)
	}
	return v, nil
}

func parseNumber(payload string) (float64, error) {
	v, err := strconv.ParseFloat(payload, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: number payload %q", ErrInvalidCommand, payload)
	}
	return v, nil
}
