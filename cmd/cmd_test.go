package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/anicoll/senec-integration/internal/pkg/bridge"
	"github.com/anicoll/senec-integration/internal/pkg/config"
	"github.com/anicoll/senec-integration/internal/pkg/handler"
	"github.com/anicoll/senec-integration/internal/pkg/metrics"
	"github.com/anicoll/senec-integration/internal/pkg/model"
	"github.com/anicoll/senec-integration/internal/pkg/publisher"
	"github.com/anicoll/senec-integration/internal/pkg/senec"
	"github.com/anicoll/senec-integration/internal/pkg/web"
)

type fakeSource struct {
	updates atomic.Int32
	err     error
}

func (f *fakeSource) Update(context.Context) error {
	f.updates.Add(1)
	return f.err
}

func (f *fakeSource) Sensors() []model.DeviceStatus {
	return []model.DeviceStatus{model.FloatStatus("house power", model.NumericUnitWatt, 500, true)}
}

type fakeSink struct {
	mu      sync.Mutex
	writes  [][]map[string]any
	devices []string
}

func (f *fakeSink) Write(_ context.Context, data []map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, data)
	return nil
}

func (f *fakeSink) RegisterDevice(device *model.Device) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devices = append(f.devices, device.ID)
	return nil
}

func (f *fakeSink) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func newTestServices(t *testing.T, sources ...source) (*services, *fakeSink) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svcs := &services{
		sources:   sources,
		ctrl:      &controller{metrics: m},
		publisher: publisher.New(),
		metrics:   m,
		registry:  reg,
		bridge:    bridge.New(),
	}
	sink := &fakeSink{}
	require.NoError(t, svcs.publisher.RegisterPublisher("fake", sink))
	return svcs, sink
}

func localSource(client Source) source {
	return source{
		device:   model.Device{ID: "senec_local", Model: "SENEC.Home", SerialNumber: "1", Backend: model.BackendLocal},
		interval: time.Hour,
		client:   client,
	}
}

func TestPollOnce_Publishes(t *testing.T) {
	src := &fakeSource{}
	svcs, sink := newTestServices(t, localSource(src))
	errorChan := make(chan error, 1)

	pollOnce(context.Background(), svcs, svcs.sources[0], errorChan)

	assert.Equal(t, int32(1), src.updates.Load())
	require.Equal(t, 1, sink.writeCount())
	assert.Equal(t, "500.0000", sink.writes[0][0]["value"])
	assert.Empty(t, errorChan)

	count, err := testutil.GatherAndCount(svcs.registry, "senec_polls_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPollOnce_ErrorReported(t *testing.T) {
	src := &fakeSource{err: senec.ErrUpdateFailed}
	svcs, sink := newTestServices(t, localSource(src))
	errorChan := make(chan error, 1)

	pollOnce(context.Background(), svcs, svcs.sources[0], errorChan)

	require.Len(t, errorChan, 1)
	assert.ErrorIs(t, <-errorChan, senec.ErrUpdateFailed)
	assert.Equal(t, 0, sink.writeCount())
}

func TestRun_ContextCancellation(t *testing.T) {
	t.Setenv("CONTEXT_TEST", "true")
	logger := zaptest.NewLogger(t)
	cfg := &config.Config{ListenAddr: "127.0.0.1:0"}
	src := &fakeSource{}
	svcs, sink := newTestServices(t, localSource(src))

	ctx, cancel := context.WithCancel(context.Background())
	var runErr error
	var wg sync.WaitGroup
	wg.Go(func() {
		runErr = run(ctx, cfg, svcs, make(chan error, 10), logger)
	})

	// the first poll happens right away, not after the interval.
	assert.Eventually(t, func() bool { return sink.writeCount() > 0 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	wg.Wait()

	assert.ErrorIs(t, runErr, context.Canceled)
	assert.Equal(t, []string{"senec_local"}, sink.devices)
	assert.Equal(t, int32(1), src.updates.Load())
}

func TestRun_NoPlantIsFatal(t *testing.T) {
	t.Setenv("CONTEXT_TEST", "true")
	logger := zaptest.NewLogger(t)
	cfg := &config.Config{ListenAddr: "127.0.0.1:0"}
	svcs, _ := newTestServices(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	errorChan := make(chan error, 10)
	errorChan <- fmt.Errorf("cloud poll: %w", senec.ErrUpdateFailed)
	errorChan <- fmt.Errorf("cloud poll: %w", web.ErrNoPlant)

	err := run(ctx, cfg, svcs, errorChan, logger)
	assert.ErrorIs(t, err, web.ErrNoPlant)
}

func TestRun_MQTTStartFails(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := &config.Config{ListenAddr: "127.0.0.1:0"}
	svcs, _ := newTestServices(t)
	errConnect := errors.New("mqtt connect: refused")
	svcs.startMQTT = func(*controller) error { return errConnect }

	err := run(context.Background(), cfg, svcs, make(chan error), logger)
	assert.ErrorIs(t, err, errConnect)
}

func TestRouter(t *testing.T) {
	svcs, _ := newTestServices(t)
	router := newRouter(svcs)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		code   int
	}{
		{name: "metrics", method: http.MethodGet, path: "/metrics", code: http.StatusOK},
		{name: "write needs post", method: http.MethodGet, path: "/switch/safe_charge", code: http.StatusBadRequest},
		{name: "local not configured", method: http.MethodPost, path: "/switch/safe_charge", body: `{"value":true}`, code: http.StatusServiceUnavailable},
		{name: "cloud not configured", method: http.MethodPost, path: "/cloud/spare-capacity", body: `{"percent":20}`, code: http.StatusServiceUnavailable},
		{name: "unknown route", method: http.MethodPost, path: "/battery", code: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestController_LocalWrites(t *testing.T) {
	var mu sync.Mutex
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(data))
		mu.Unlock()
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	svcs, _ := newTestServices(t)
	svcs.ctrl.local = senec.New(&config.SenecConfig{Host: "senec.local"}, senec.Features{Wallbox: true},
		senec.WithBaseURL(srv.URL), senec.WithBridge(svcs.bridge))
	ctx := context.Background()

	require.NoError(t, svcs.ctrl.SetSwitch(ctx, "safe_charge", true))
	require.NoError(t, svcs.ctrl.SetWallboxMode(ctx, model.BackendLocal, 0, model.WallboxModeLocked))
	assert.ErrorIs(t, svcs.ctrl.SetSwitch(ctx, "nope", true), senec.ErrUnknownKey)
	assert.ErrorIs(t, svcs.ctrl.SetWallboxMode(ctx, model.BackendCloud, 0, model.WallboxModeFast), handler.ErrNotConfigured)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 2)
	assert.JSONEq(t, `{"ENERGY":{"SAFE_CHARGE_FORCE":"u8_01"}}`, bodies[0])
	assert.JSONEq(t, `{"WALLBOX":{"PROHIBIT_USAGE":["u8_01","","",""]}}`, bodies[1])

	count, err := testutil.GatherAndCount(svcs.registry, "senec_writes_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestController_CloudInterchargeMirrorsToLocal(t *testing.T) {
	var mu sync.Mutex
	var localBodies, cloudWrites []string
	local := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		localBodies = append(localBodies, string(data))
		mu.Unlock()
		_, _ = w.Write(data)
	}))
	defer local.Close()
	app := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/senec/login":
			_, _ = w.Write([]byte(`{"token":"app-token"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v1/senec/anlagen":
			_, _ = w.Write([]byte(`[{"id":"p1","wallboxIds":["w1","w2"]}]`))
		case r.Method == http.MethodPut:
			data, _ := io.ReadAll(r.Body)
			mu.Lock()
			cloudWrites = append(cloudWrites, r.URL.Path+" "+string(data))
			mu.Unlock()
			_, _ = w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer app.Close()

	svcs, _ := newTestServices(t)
	svcs.ctrl.local = senec.New(&config.SenecConfig{Host: "senec.local"}, senec.Features{Wallbox: true},
		senec.WithBaseURL(local.URL), senec.WithBridge(svcs.bridge))
	cloud, err := web.New(&config.WebConfig{BaseURL: app.URL, AppBaseURL: app.URL, Username: "u", Password: "p"},
		web.WithBridge(svcs.bridge))
	require.NoError(t, err)
	svcs.ctrl.cloud = cloud
	require.True(t, svcs.bridge.Available())

	require.NoError(t, svcs.ctrl.SetWallboxAllowIntercharge(context.Background(), model.BackendCloud, 1, true))
	svcs.bridge.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{`/v1/senec/anlagen/p1/wallboxes/2/settings/allowIntercharge {"allowIntercharge":true}`}, cloudWrites)
	require.Len(t, localBodies, 1)
	assert.JSONEq(t, `{"WALLBOX":{"ALLOW_INTERCHARGE":["","u8_01","",""]}}`, localBodies[0])

	count, err := testutil.GatherAndCount(svcs.registry, "senec_writes_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
