package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/anicoll/senec-integration/internal/pkg/model"
)

const namespace = "senec"

// Metrics counts polls and writes per backend.
type Metrics struct {
	polls        *prometheus.CounterVec
	pollDuration *prometheus.HistogramVec
	writes       *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Polls per backend and result.",
		}, []string{"backend", "result"}),
		pollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Poll duration per backend, retries included.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"backend"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writes_total",
			Help:      "Write triggers per backend, key and result.",
		}, []string{"backend", "key", "result"}),
	}
	reg.MustRegister(m.polls, m.pollDuration, m.writes)
	return m
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) ObservePoll(backend model.Backend, start time.Time, err error) {
	m.polls.WithLabelValues(backend.String(), result(err)).Inc()
	m.pollDuration.WithLabelValues(backend.String()).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveWrite(backend model.Backend, key string, err error) {
	m.writes.WithLabelValues(backend.String(), key, result(err)).Inc()
}

// SensorSource returns the current sensor snapshot of one backend.
type SensorSource func() []model.DeviceStatus

// SensorCollector exposes every numeric sensor as a gauge.
type SensorCollector struct {
	value   *prometheus.Desc
	sources map[model.Backend]SensorSource
}

func NewSensorCollector(sources map[model.Backend]SensorSource) *SensorCollector {
	return &SensorCollector{
		value: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "sensor_value"),
			"Last polled sensor value",
			[]string{"backend", "sensor", "unit"},
			nil,
		),
		sources: sources,
	}
}

// Describe implements prometheus.Collector
func (c *SensorCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.value
}

// Collect implements prometheus.Collector
func (c *SensorCollector) Collect(ch chan<- prometheus.Metric) {
	for backend, source := range c.sources {
		for _, s := range source() {
			if s.Value == nil {
				continue
			}
			v, err := strconv.ParseFloat(*s.Value, 64)
			if err != nil {
				// text sensors have no gauge.
				continue
			}
			ch <- prometheus.MustNewConstMetric(c.value, prometheus.GaugeValue, v, backend.String(), s.Slug, s.Unit)
		}
	}
}
