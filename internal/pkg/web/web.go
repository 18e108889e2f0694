package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/senec-integration/internal/pkg/bridge"
	"github.com/anicoll/senec-integration/internal/pkg/config"
	"github.com/anicoll/senec-integration/internal/pkg/model"
)

var (
	ErrUpdateFailed = errors.New("cloud update failed")
	ErrUnauthorized = errors.New("cloud session not authenticated")
	ErrNoData       = errors.New("cloud returned no data")
	ErrNoPlant      = errors.New("no master plant found")
)

// settingsRefresh is how often the rarely changing settings are fetched.
const settingsRefresh = 24 * time.Hour

// maxPlants bounds the autodetect walk.
const maxPlants = 16

// Client talks to the cloud portal (cookie session) and the app gateway
// (bearer session) on behalf of one plant.
type Client struct {
	cfg        *config.WebConfig
	webBase    *url.URL
	appBase    string
	httpClient *http.Client
	jar        *pathPriorityJar
	logger     *zap.Logger
	bridge     *bridge.Bridge
	now        func() time.Time

	mu sync.Mutex

	// web session
	webAuthenticated bool
	masterPlant      *int
	slavePlants      []int

	// app session
	appToken       string
	appTokenExpiry time.Time
	appPlantID     string
	wallboxMax     int

	overview        map[string]series
	totals          map[string]float64
	peakShaving     *PeakShaving
	peakShavingAt   time.Time
	spareCapacity   *int
	spareCapacityAt time.Time
	wallboxes       model.WallboxArray[*wallboxData]
	generatedPolicy *plausibility
}

type Option func(*Client)

// WithHTTPClient replaces the transport. The client's jar is always the
// path priority jar.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBridge registers the client as the cloud side of b.
func WithBridge(b *bridge.Bridge) Option {
	return func(c *Client) { c.bridge = b }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func New(cfg *config.WebConfig, opts ...Option) (*Client, error) {
	webBase, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid web base url: %w", err)
	}
	c := &Client{
		cfg:        cfg,
		webBase:    webBase,
		appBase:    cfg.AppBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     zap.L(), // returns the global logger.
		now:        time.Now,
		wallboxMax: model.MaxWallboxes,
	}
	for _, o := range opts {
		o(c)
	}
	if cfg.PlantNumber != nil {
		n := *cfg.PlantNumber
		c.masterPlant = &n
	}
	c.jar = newPathPriorityJar(c.now)
	hc := *c.httpClient
	hc.Jar = c.jar
	c.httpClient = &hc
	c.generatedPolicy = newGeneratedPowerPolicy(cfg.PollInterval)
	if c.bridge != nil {
		c.bridge.AttachCloud(c)
	}
	return c, nil
}

// Update refreshes everything that is due: the now/today overview and
// totals on every call, the settings once a day and the wallboxes when enabled.
func (c *Client) Update(ctx context.Context) error {
	plant, err := c.ensurePlant(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}
	if err := c.updateOverview(ctx, plant); err != nil {
		return fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}
	if err := c.updateTotals(ctx, plant); err != nil {
		return fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}
	if c.due(&c.peakShavingAt) {
		if err := c.updatePeakShaving(ctx, plant); err != nil {
			return fmt.Errorf("%w: %w", ErrUpdateFailed, err)
		}
	}
	if c.due(&c.spareCapacityAt) {
		if err := c.updateSpareCapacity(ctx, plant); err != nil {
			return fmt.Errorf("%w: %w", ErrUpdateFailed, err)
		}
	}
	if c.cfg.QueryWallbox {
		if err := c.updateWallboxes(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrUpdateFailed, err)
		}
	}
	return nil
}

func (c *Client) due(last *time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return last.IsZero() || !c.now().Before(last.Add(settingsRefresh))
}

func (c *Client) markFetched(last *time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*last = c.now()
}

func isUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
