package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anicoll/senec-integration/internal/pkg/model"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObservePoll(model.BackendLocal, time.Now(), nil)
	m.ObservePoll(model.BackendLocal, time.Now(), errors.New("boom"))
	m.ObservePoll(model.BackendCloud, time.Now(), nil)
	m.ObserveWrite(model.BackendLocal, "safe_charge", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.polls.WithLabelValues("local", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.polls.WithLabelValues("cloud", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.writes.WithLabelValues("local", "safe_charge", "ok")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.pollDuration))
}

func TestSensorCollector(t *testing.T) {
	collector := NewSensorCollector(map[model.Backend]SensorSource{
		model.BackendLocal: func() []model.DeviceStatus {
			return []model.DeviceStatus{
				model.FloatStatus("house power", model.NumericUnitWatt, 812, true),
				model.FloatStatus("grid frequency", model.NumericUnitHertz, 0, false),
				model.TextStatus("system_state", "CHARGE", true),
			}
		},
	})
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(collector))

	expected := `
# HELP senec_sensor_value Last polled sensor value
# TYPE senec_sensor_value gauge
senec_sensor_value{backend="local",sensor="house_power",unit="W"} 812
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "senec_sensor_value"))
}
