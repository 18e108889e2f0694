package mqtt

import (
	"errors"
	"sync"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

type service struct {
	client    paho_mqtt.Client
	baseTopic string
	logger    *zap.Logger

	mu                sync.Mutex
	configuredDevices map[string]struct{}
}

func New(client paho_mqtt.Client, baseTopic string) *service {
	return &service{
		client:            client,
		baseTopic:         baseTopic,
		logger:            zap.L(),
		configuredDevices: make(map[string]struct{}),
	}
}

func (s *service) Connect() error {
	token := s.client.Connect()
	res := token.WaitTimeout(time.Second * 5)
	if res {
		return token.Error()
	}
	if err := token.Error(); err != nil {
		return err
	}
	return errors.New("unable to connect in time")
}

func (s *service) Disconnect() {
	s.client.Disconnect(250)
}
