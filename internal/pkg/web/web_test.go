package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/anicoll/senec-integration/internal/pkg/bridge"
	"github.com/anicoll/senec-integration/internal/pkg/config"
	"github.com/anicoll/senec-integration/internal/pkg/model"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

// fakeCloud serves the portal and the app gateway from one server.
type fakeCloud struct {
	mu sync.Mutex

	plants       []bool // master flag per plant number
	generatedNow float64
	wallboxes    int
	token        string
	rejectWeb    int // portal 401s to send; negative rejects forever
	putFailures  int

	webLogins    int
	webRejected  int
	appLogins    int
	probes       []int
	overviewHits map[int]int
	peakHits     int
	spareHits    int
	wallboxHits  map[int]int
	puts         []string
	putBodies    []map[string]any
}

func newFakeCloud() *fakeCloud {
	return &fakeCloud{
		plants:       []bool{true},
		generatedNow: 1.5,
		token:        "app-token",
		overviewHits: map[int]int{},
		wallboxHits:  map[int]int{},
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeCloud) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := r.URL.Path

	switch {
	case path == webLoginPath:
		f.webLogins++
		_ = r.ParseForm()
		if r.PostForm.Get("username") != "user" || r.PostForm.Get("password") != "pass" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "stale", Path: "/"})
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "valid", Path: "/endkunde"})
		return
	case path == appLoginPath:
		f.appLogins++
		writeJSON(w, map[string]string{"token": f.token})
		return
	case strings.HasPrefix(path, appPlantsPath):
		if r.Header.Get("Authorization") != "Bearer "+f.token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.serveApp(w, r)
		return
	case strings.HasPrefix(path, "/endkunde/"):
		cookie, err := r.Cookie("JSESSIONID")
		if err != nil || cookie.Value != "valid" || f.rejectWeb != 0 {
			if f.rejectWeb > 0 {
				f.rejectWeb--
			}
			f.webRejected++
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.servePortal(w, r)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (f *fakeCloud) servePortal(w http.ResponseWriter, r *http.Request) {
	plant, _ := strconv.Atoi(r.URL.Query().Get("anlageNummer"))
	switch path := r.URL.Path; {
	case path == systemInfoPath:
		f.probes = append(f.probes, plant)
		if plant >= len(f.plants) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, systemInfo{PlantNumber: plant, Master: f.plants[plant]})
	case path == overviewPath:
		f.overviewHits[plant]++
		writeJSON(w, map[string]any{
			"powergenerated": map[string]any{"now": f.generatedNow, "today": 12.5},
			"acculevel":      map[string]any{"now": 55},
		})
	case path == totalsPath:
		writeJSON(w, total{Total: 1000})
	case path == peakShavingPath:
		f.peakHits++
		writeJSON(w, PeakShaving{Mode: PeakShavingManual, CapacityLimit: 80})
	case path == savePeakShaving:
		w.WriteHeader(http.StatusOK)
	case strings.HasSuffix(path, "/emergencypower/reserve-in-percent"):
		if r.Method == http.MethodGet {
			f.spareHits++
			writeJSON(w, spareCapacity{Percent: 20})
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeCloud) serveApp(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == appPlantsPath {
		ids := []string{}
		for i := range model.MaxWallboxes {
			ids = append(ids, strconv.Itoa(i+1))
		}
		writeJSON(w, []appPlant{{ID: "42", WallboxIDs: ids}})
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, appPlantsPath+"/42/wallboxes/")
	num, setting, _ := strings.Cut(rest, "/settings/")
	n, _ := strconv.Atoi(num)
	if r.Method == http.MethodPut {
		f.puts = append(f.puts, fmt.Sprintf("%d/%s", n, setting))
		body := map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.putBodies = append(f.putBodies, body)
		if f.putFailures != 0 {
			if f.putFailures > 0 {
				f.putFailures--
			}
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		return
	}
	f.wallboxHits[n]++
	if n > f.wallboxes {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, wallboxData{ID: num, ChargingMode: chargingModeSolar, ChargingCurrentLimit: 16})
}

func newTestClient(t *testing.T, cloud *fakeCloud, mutate func(cfg *config.WebConfig), opts ...Option) (*Client, *fakeClock) {
	t.Helper()
	srv := httptest.NewServer(cloud)
	t.Cleanup(srv.Close)
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	cfg := &config.WebConfig{
		Username:     "user",
		Password:     "pass",
		BaseURL:      srv.URL,
		AppBaseURL:   srv.URL,
		PollInterval: time.Minute,
	}
	if mutate != nil {
		mutate(cfg)
	}
	c, err := New(cfg, append([]Option{WithClock(clock.now)}, opts...)...)
	require.NoError(t, err)
	c.logger = zaptest.NewLogger(t)
	return c, clock
}

func TestUpdate_AutodetectMaster(t *testing.T) {
	cloud := newFakeCloud()
	cloud.plants = []bool{false, true, false}
	c, _ := newTestClient(t, cloud, nil)
	ctx := context.Background()

	require.NoError(t, c.Update(ctx))
	require.NoError(t, c.Update(ctx))

	master, ok := c.MasterPlant()
	assert.True(t, ok)
	assert.Equal(t, 1, master)
	assert.Equal(t, []int{0, 2}, c.SlavePlants())
	// plants 0..2 exist; the end of the list is only known from the 404 at
	// index 3, so that one extra probe is expected. No plant is probed twice.
	assert.Equal(t, []int{0, 1, 2, 3}, cloud.probes, "walk stops at the first missing plant and only once")
	assert.Equal(t, map[int]int{1: 2}, cloud.overviewHits, "slaves are never polled")
	assert.Equal(t, 1, cloud.webLogins)
}

func TestUpdate_ConfiguredPlant(t *testing.T) {
	cloud := newFakeCloud()
	cloud.plants = []bool{true, false, false}
	c, _ := newTestClient(t, cloud, func(cfg *config.WebConfig) {
		plant := 2
		cfg.PlantNumber = &plant
	})

	require.NoError(t, c.Update(context.Background()))
	assert.Empty(t, cloud.probes)
	assert.Equal(t, map[int]int{2: 1}, cloud.overviewHits)
}

func TestUpdate_NoMaster(t *testing.T) {
	cloud := newFakeCloud()
	cloud.plants = []bool{false}
	c, _ := newTestClient(t, cloud, nil)

	err := c.Update(context.Background())
	assert.ErrorIs(t, err, ErrUpdateFailed)
	assert.ErrorIs(t, err, ErrNoPlant)
}

func TestUpdate_Values(t *testing.T) {
	cloud := newFakeCloud()
	c, _ := newTestClient(t, cloud, nil)
	require.NoError(t, c.Update(context.Background()))

	v, ok := c.SolarGeneratedPower()
	assert.True(t, ok)
	assert.Equal(t, 1.5, v)
	v, _ = c.Today(MetricPowerGenerated)
	assert.Equal(t, 12.5, v)
	v, _ = c.BatteryChargePercent()
	assert.Equal(t, 55.0, v)
	_, ok = c.Today(MetricAccuLevel)
	assert.False(t, ok)
	_, ok = c.GridImportedPower()
	assert.False(t, ok)
	v, ok = c.Total(MetricGridImport)
	assert.True(t, ok)
	assert.Equal(t, 1000.0, v)

	ps, ok := c.PeakShaving()
	assert.True(t, ok)
	assert.Equal(t, PeakShavingManual, ps.Mode)
	spare, _ := c.SpareCapacity()
	assert.Equal(t, 20, spare)
}

func TestUpdate_SettingsThrottled(t *testing.T) {
	cloud := newFakeCloud()
	c, clock := newTestClient(t, cloud, nil)
	ctx := context.Background()

	require.NoError(t, c.Update(ctx))
	clock.advance(time.Hour)
	require.NoError(t, c.Update(ctx))
	assert.Equal(t, 1, cloud.peakHits)
	assert.Equal(t, 1, cloud.spareHits)

	clock.advance(23 * time.Hour)
	require.NoError(t, c.Update(ctx))
	assert.Equal(t, 2, cloud.peakHits)
	assert.Equal(t, 2, cloud.spareHits)
	assert.Equal(t, 3, cloud.overviewHits[0])
}

func TestUpdate_WebSessionExpired(t *testing.T) {
	cloud := newFakeCloud()
	c, _ := newTestClient(t, cloud, nil)
	ctx := context.Background()
	require.NoError(t, c.Update(ctx))

	cloud.mu.Lock()
	cloud.rejectWeb = 1
	cloud.mu.Unlock()

	require.NoError(t, c.Update(ctx))
	assert.Equal(t, 2, cloud.webLogins)
	assert.Equal(t, 2, cloud.overviewHits[0])
}

func TestUpdate_WallboxShrink(t *testing.T) {
	cloud := newFakeCloud()
	cloud.wallboxes = 2
	c, _ := newTestClient(t, cloud, func(cfg *config.WebConfig) { cfg.QueryWallbox = true })
	ctx := context.Background()

	require.NoError(t, c.Update(ctx))
	assert.Equal(t, 2, c.WallboxCount())
	require.NoError(t, c.Update(ctx))

	assert.Equal(t, map[int]int{1: 2, 2: 2, 3: 1}, cloud.wallboxHits)
	mode, ok := c.WallboxMode(1)
	assert.True(t, ok)
	assert.Equal(t, model.WallboxModeOptimized, mode)
	_, ok = c.WallboxMode(2)
	assert.False(t, ok)
}

func TestWrite_Unauthorized(t *testing.T) {
	tests := map[string]struct {
		failures      int
		expectedErr   error
		expectedPuts  int
		expectedLogin int
	}{
		"second 401 propagates": {
			failures:      -1,
			expectedErr:   ErrUnauthorized,
			expectedPuts:  2,
			expectedLogin: 2,
		},
		"retry succeeds": {
			failures:      1,
			expectedPuts:  2,
			expectedLogin: 2,
		},
		"no failure": {
			expectedPuts:  1,
			expectedLogin: 1,
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			cloud := newFakeCloud()
			cloud.putFailures = test.failures
			c, _ := newTestClient(t, cloud, nil)

			err := c.SetWallboxMode(context.Background(), 0, model.WallboxModeFast, false)
			if test.expectedErr != nil {
				assert.ErrorIs(t, err, test.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Len(t, cloud.puts, test.expectedPuts)
			assert.Equal(t, test.expectedLogin, cloud.appLogins)
			assert.Equal(t, "1/chargingMode", cloud.puts[0])
			assert.Equal(t, map[string]any{"type": chargingModeFast}, cloud.putBodies[0])
		})
	}
}

type localCall struct {
	slot  model.WallboxSlot
	value any
	sync  bool
}

type fakeLocal struct {
	mu    sync.Mutex
	calls []localCall
}

func (f *fakeLocal) add(c localCall) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return nil
}

func (f *fakeLocal) SetWallboxMode(_ context.Context, slot model.WallboxSlot, mode model.WallboxMode, sync bool) error {
	return f.add(localCall{slot, mode, sync})
}

func (f *fakeLocal) SetWallboxAllowIntercharge(_ context.Context, slot model.WallboxSlot, allow bool, sync bool) error {
	return f.add(localCall{slot, allow, sync})
}

func (f *fakeLocal) SetWallboxCurrentLimit(_ context.Context, slot model.WallboxSlot, amps float64, sync bool) error {
	return f.add(localCall{slot, amps, sync})
}

func TestWrite_Bridge(t *testing.T) {
	b := bridge.New()
	local := &fakeLocal{}
	b.AttachLocal(local)
	cloud := newFakeCloud()
	cloud.wallboxes = 2
	c, _ := newTestClient(t, cloud, func(cfg *config.WebConfig) { cfg.QueryWallbox = true }, WithBridge(b))
	ctx := context.Background()
	require.NoError(t, c.Update(ctx))

	require.NoError(t, c.SetWallboxAllowIntercharge(ctx, 1, true, true))
	require.NoError(t, c.SetWallboxCurrentLimit(ctx, 0, 10, false))
	b.Wait()

	assert.Equal(t, []localCall{{1, true, false}}, local.calls)
	allow, ok := c.WallboxAllowIntercharge(1)
	assert.True(t, ok)
	assert.True(t, allow)
	limit, _ := c.WallboxCurrentLimit(0)
	assert.Equal(t, 10.0, limit)
}

func TestSetSpareCapacity(t *testing.T) {
	cloud := newFakeCloud()
	c, _ := newTestClient(t, cloud, nil)
	ctx := context.Background()

	assert.Error(t, c.SetSpareCapacity(ctx, 101))
	require.NoError(t, c.SetSpareCapacity(ctx, 35))
	spare, ok := c.SpareCapacity()
	assert.True(t, ok)
	assert.Equal(t, 35, spare)

	assert.Error(t, c.SetPeakShaving(ctx, PeakShaving{Mode: "SOMETIMES"}))
	require.NoError(t, c.SetPeakShaving(ctx, PeakShaving{Mode: PeakShavingAuto, CapacityLimit: 60}))
	ps, _ := c.PeakShaving()
	assert.Equal(t, PeakShavingAuto, ps.Mode)
}

func TestAppToken_Expiry(t *testing.T) {
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	cloud := newFakeCloud()
	cloud.token = expired
	c, _ := newTestClient(t, cloud, nil)

	require.NoError(t, c.AppAuthenticate(context.Background()))
	assert.False(t, c.isAppAuthenticated(), "expired tokens are dropped before use")

	assert.True(t, tokenExpiry("not-a-jwt").IsZero())
}

func TestPlausibility(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := newGeneratedPowerPolicy(time.Minute)

	assert.Equal(t, 1e-05, p.apply(1e-05, start), "nothing known yet")
	assert.Equal(t, 2.5, p.apply(2.5, start))
	assert.Equal(t, 2.5, p.apply(1e-05, start.Add(time.Minute)))
	assert.Equal(t, 2.5, p.apply(1e-05, start.Add(149*time.Second)))
	assert.Equal(t, 1e-05, p.apply(1e-05, start.Add(150*time.Second)))
	assert.Equal(t, 0.0, p.apply(0, start.Add(151*time.Second)))
}

func TestUpdate_PlausibilityApplied(t *testing.T) {
	cloud := newFakeCloud()
	c, clock := newTestClient(t, cloud, nil)
	ctx := context.Background()
	require.NoError(t, c.Update(ctx))

	cloud.mu.Lock()
	cloud.generatedNow = 1e-05
	cloud.mu.Unlock()
	clock.advance(time.Minute)
	require.NoError(t, c.Update(ctx))

	v, _ := c.SolarGeneratedPower()
	assert.Equal(t, 1.5, v)
}

func TestWebWrite_Unauthorized(t *testing.T) {
	writes := map[string]func(ctx context.Context, c *Client) error{
		"peak shaving": func(ctx context.Context, c *Client) error {
			return c.SetPeakShaving(ctx, PeakShaving{Mode: PeakShavingAuto, CapacityLimit: 70})
		},
		"spare capacity": func(ctx context.Context, c *Client) error {
			return c.SetSpareCapacity(ctx, 30)
		},
	}
	tests := map[string]struct {
		rejections       int
		expectedErr      error
		expectedRejected int
	}{
		"second 401 propagates": {
			rejections:       -1,
			expectedErr:      ErrUnauthorized,
			expectedRejected: 2,
		},
		"retry succeeds": {
			rejections:       1,
			expectedRejected: 1,
		},
	}
	for writeName, write := range writes {
		for name, test := range tests {
			t.Run(writeName+" "+name, func(t *testing.T) {
				cloud := newFakeCloud()
				c, _ := newTestClient(t, cloud, nil)
				ctx := context.Background()
				_, err := c.ensurePlant(ctx)
				require.NoError(t, err)

				cloud.mu.Lock()
				cloud.rejectWeb = test.rejections
				cloud.mu.Unlock()

				err = write(ctx, c)
				if test.expectedErr != nil {
					assert.ErrorIs(t, err, test.expectedErr)
				} else {
					assert.NoError(t, err)
				}
				assert.Equal(t, 2, cloud.webLogins)
				assert.Equal(t, test.expectedRejected, cloud.webRejected)
			})
		}
	}
}
