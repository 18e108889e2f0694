package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/anicoll/senec-integration/internal/pkg/bridge"
	"github.com/anicoll/senec-integration/internal/pkg/config"
	"github.com/anicoll/senec-integration/internal/pkg/inverter"
	"github.com/anicoll/senec-integration/internal/pkg/metrics"
	"github.com/anicoll/senec-integration/internal/pkg/model"
	"github.com/anicoll/senec-integration/internal/pkg/mqtt"
	"github.com/anicoll/senec-integration/internal/pkg/publisher"
	"github.com/anicoll/senec-integration/internal/pkg/senec"
	"github.com/anicoll/senec-integration/internal/pkg/web"
)

const identityTimeout = 30 * time.Second

type services struct {
	sources   []source
	ctrl      *controller
	publisher *publisher.Publisher
	metrics   *metrics.Metrics
	registry  *prometheus.Registry
	bridge    *bridge.Bridge
	// startMQTT is nil when no broker is configured.
	startMQTT func(ctrl *controller) error
}

func newServices(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*services, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	svcs := &services{
		ctrl:      &controller{metrics: m},
		publisher: publisher.New(),
		metrics:   m,
		registry:  reg,
		bridge:    bridge.New(),
	}
	sensorSources := map[model.Backend]metrics.SensorSource{}

	if cfg.SenecCfg.Enabled() {
		local := senec.New(&cfg.SenecCfg, senec.FeaturesFromConfig(&cfg.SenecCfg), senec.WithBridge(svcs.bridge))
		vctx, cancel := context.WithTimeout(ctx, identityTimeout)
		if err := local.ReadVersion(vctx); err != nil {
			logger.Warn("unable to read device identity", zap.Error(err))
		}
		cancel()
		serial, ok := local.DeviceID()
		if !ok {
			serial = cfg.SenecCfg.Host
		}
		deviceModel := "SENEC.Home"
		if sysType, ok := local.SystemType(); ok {
			deviceModel = fmt.Sprintf("SENEC.Home %s", sysType)
		}
		svcs.sources = append(svcs.sources, source{
			device:   model.Device{ID: "senec_local", Model: deviceModel, SerialNumber: serial, Backend: model.BackendLocal},
			interval: cfg.SenecCfg.PollInterval,
			client:   local,
		})
		svcs.ctrl.local = local
		sensorSources[model.BackendLocal] = local.Sensors
	}

	if cfg.InverterCfg.Enabled() {
		inv := inverter.New(&cfg.InverterCfg)
		vctx, cancel := context.WithTimeout(ctx, identityTimeout)
		if err := inv.ReadVersions(vctx); err != nil {
			logger.Warn("unable to read inverter identity", zap.Error(err))
		}
		cancel()
		serial, ok := inv.SerialNumber()
		if !ok {
			serial = cfg.InverterCfg.Host
		}
		svcs.sources = append(svcs.sources, source{
			device:   model.Device{ID: "senec_inverter", Model: "SENEC.Inverter", SerialNumber: serial, Backend: model.BackendInverter},
			interval: cfg.InverterCfg.PollInterval,
			client:   inv,
		})
		sensorSources[model.BackendInverter] = inv.Sensors
	}

	if cfg.WebCfg.Enabled() {
		cloud, err := web.New(&cfg.WebCfg, web.WithBridge(svcs.bridge))
		if err != nil {
			return nil, err
		}
		plant := "master"
		if cfg.WebCfg.PlantNumber != nil {
			plant = strconv.Itoa(*cfg.WebCfg.PlantNumber)
		}
		svcs.sources = append(svcs.sources, source{
			device:   model.Device{ID: "senec_cloud", Model: "SENEC.Cloud", SerialNumber: plant, Backend: model.BackendCloud},
			interval: cfg.WebCfg.PollInterval,
			client:   cloud,
		})
		svcs.ctrl.cloud = cloud
		sensorSources[model.BackendCloud] = cloud.Sensors
	}

	reg.MustRegister(metrics.NewSensorCollector(sensorSources))

	if cfg.MqttCfg.Enabled() {
		opts := paho_mqtt.NewClientOptions().
			AddBroker(cfg.MqttCfg.Host).
			SetUsername(cfg.MqttCfg.Username).
			SetPassword(cfg.MqttCfg.Password).
			SetClientID("senec-integration").
			SetAutoReconnect(true).
			SetCleanSession(false).
			SetResumeSubs(true).
			SetConnectionLostHandler(func(_ paho_mqtt.Client, err error) {
				logger.Warn("mqtt connection lost", zap.Error(err))
			})
		svc := mqtt.New(paho_mqtt.NewClient(opts), cfg.MqttCfg.BaseTopic)
		svcs.startMQTT = func(ctrl *controller) error {
			if err := svc.Connect(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			if err := svcs.publisher.RegisterPublisher("mqtt", svc); err != nil {
				return err
			}
			return svc.Subscribe(ctrl)
		}
	}

	if len(svcs.sources) == 0 {
		logger.Warn("no backend configured, only the http server will run")
	}
	return svcs, nil
}
