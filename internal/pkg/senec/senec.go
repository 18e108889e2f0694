package senec

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/senec-integration/internal/pkg/bridge"
	"github.com/anicoll/senec-integration/internal/pkg/codec"
	"github.com/anicoll/senec-integration/internal/pkg/config"
	"github.com/anicoll/senec-integration/internal/pkg/model"
	"github.com/anicoll/senec-integration/internal/pkg/overwrite"
	"github.com/anicoll/senec-integration/internal/pkg/retry"
)

var (
	ErrUpdateFailed      = errors.New("senec update failed")
	ErrMalformedResponse = errors.New("senec malformed response")
	ErrWriteFailed       = errors.New("senec write failed")
	ErrUnknownKey        = errors.New("unknown key")
	ErrIndexOutOfRange   = errors.New("index out of range")
)

const lalaPath = "/lala.cgi"

// Client polls the local lala.cgi endpoint of one plant.
type Client struct {
	baseURL    string
	httpClient *http.Client
	features   Features
	request    request
	logger     *zap.Logger
	bridge     *bridge.Bridge
	overwrites *overwrite.Cache
	now        func() time.Time
	retryDelay time.Duration

	mu                sync.RWMutex
	tree              model.Tree
	version           model.Tree
	lastWriteResponse []byte

	switches      map[string]switchHandler
	arraySwitches map[string]arraySwitchHandler
	numbers       map[string]numberHandler
	arrayNumbers  map[string]arrayNumberHandler
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBridge registers the client as the local side of b.
func WithBridge(b *bridge.Bridge) Option {
	return func(c *Client) { c.bridge = b }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// WithBaseURL overrides the scheme://host derived from the config.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func New(cfg *config.SenecConfig, features Features, opts ...Option) *Client {
	scheme := "http"
	if cfg.Ssl {
		scheme = "https"
	}
	c := &Client{
		baseURL:  (&url.URL{Scheme: scheme, Host: cfg.Host}).String(),
		features: features,
		request:  buildRequest(features),
		logger:   zap.L(), // returns the global logger.
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				// the device ships a self signed certificate.
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		now:        time.Now,
		retryDelay: retry.Delay,
	}
	for _, o := range opts {
		o(c)
	}
	c.overwrites = overwrite.New(c.now)
	c.buildDispatch()
	if c.bridge != nil {
		c.bridge.AttachLocal(c)
	}
	return c
}

// FeaturesFromConfig resolves the polled sections from the config flags.
func FeaturesFromConfig(cfg *config.SenecConfig) Features {
	return Features{
		Statistic:         cfg.QueryStatistic,
		BMS:               cfg.QueryBMS,
		BMSCells:          cfg.QueryBMSCells,
		Wallbox:           cfg.QueryWallbox,
		Sockets:           cfg.QuerySockets,
		Fans:              cfg.QueryFans,
		PowerMeter:        cfg.QueryPowerMeter,
		Temperatures:      cfg.QueryTemperatures,
		PVStrings:         cfg.QueryPVStrings,
		IgnoreSystemState: cfg.IgnoreSystemState,
	}
}

// Update polls the device and replaces the raw tree.
func (c *Client) Update(ctx context.Context) error {
	return c.readWithRetry(ctx)
}

func (c *Client) readWithRetry(ctx context.Context) error {
	err := retry.Once(ctx, c.retryDelay, c.logger, func(ctx context.Context, _ bool) error {
		return c.poll(ctx)
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrMalformedResponse) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUpdateFailed, err)
}

func (c *Client) poll(ctx context.Context) error {
	tree, err := c.query(ctx, c.request)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.tree = tree
	c.mu.Unlock()
	return nil
}

// ReadVersion fetches the identity sections once.
func (c *Client) ReadVersion(ctx context.Context) error {
	c.mu.RLock()
	loaded := c.version != nil
	c.mu.RUnlock()
	if loaded {
		return nil
	}
	tree, err := c.query(ctx, versionShape)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.version = tree
	c.mu.Unlock()
	c.logger.Info("senec version", zap.Any("version", tree))
	return nil
}

func (c *Client) query(ctx context.Context, req request) (model.Tree, error) {
	data, err := c.post(ctx, req)
	if err != nil {
		return nil, err
	}
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		c.logger.Error("failed to parse lala.cgi response", zap.ByteString("body", data), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	tree, err := codec.DecodeTree(raw)
	if err != nil {
		c.logger.Error("failed to decode lala.cgi response", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return tree, nil
}

func (c *Client) post(ctx context.Context, body request) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+lalaPath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		c.logger.Warn("unexpected lala.cgi status", zap.Int("status", res.StatusCode), zap.ByteString("body", data))
		return nil, fmt.Errorf("unexpected status code %d", res.StatusCode)
	}
	return data, nil
}

// Tree returns the last committed raw tree. Callers must not mutate it.
func (c *Client) Tree() model.Tree {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tree
}

// LastWriteResponse is the raw body of the most recent write, kept for diagnostics.
func (c *Client) LastWriteResponse() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastWriteResponse
}

func (c *Client) Features() Features {
	return c.features
}

// read returns section.field, preferring a live overwrite.
func (c *Client) read(section, field string) (any, bool) {
	if v, ok := c.overwrites.Get(overwrite.Key(section, field)); ok {
		return v, true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tree.Get(section, field)
}

func (c *Client) readFloat(section, field string) (float64, bool) {
	v, ok := c.read(section, field)
	if !ok {
		return 0, false
	}
	return model.AsFloat(v)
}

func (c *Client) readInt(section, field string) (int64, bool) {
	v, ok := c.read(section, field)
	if !ok {
		return 0, false
	}
	return model.AsInt(v)
}

func (c *Client) readBool(section, field string) (bool, bool) {
	v, ok := c.readInt(section, field)
	return v == 1, ok
}

func (c *Client) readArray(section, field string) ([]any, bool) {
	v, ok := c.read(section, field)
	if !ok {
		return nil, false
	}
	a, ok := v.([]any)
	return a, ok
}

func (c *Client) readFloatAt(section, field string, idx int) (float64, bool) {
	a, ok := c.readArray(section, field)
	if !ok || idx < 0 || idx >= len(a) {
		return 0, false
	}
	return model.AsFloat(a[idx])
}

func (c *Client) readIntAt(section, field string, idx int) (int64, bool) {
	a, ok := c.readArray(section, field)
	if !ok || idx < 0 || idx >= len(a) {
		return 0, false
	}
	return model.AsInt(a[idx])
}

func (c *Client) readBoolAt(section, field string, idx int) (bool, bool) {
	v, ok := c.readIntAt(section, field, idx)
	return v == 1, ok
}

func (c *Client) versionString(section, field string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.version.Get(section, field)
	if !ok {
		return "", false
	}
	return fmt.Sprint(v), true
}
