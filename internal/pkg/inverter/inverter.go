package inverter

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/senec-integration/internal/pkg/config"
	"github.com/anicoll/senec-integration/internal/pkg/retry"
)

var (
	ErrUpdateFailed      = errors.New("inverter update failed")
	ErrMalformedResponse = errors.New("inverter malformed response")
)

const (
	versionsPath     = "/all.xml"
	measurementsPath = "/measurements.xml"
)

type document struct {
	XMLName xml.Name `xml:"root"`
	Device  device   `xml:"Device"`
}

type device struct {
	Name         string        `xml:"Name,attr"`
	Type         string        `xml:"Type,attr"`
	Serial       string        `xml:"Serial,attr"`
	NetBiosName  string        `xml:"NetBiosName,attr"`
	NominalPower string        `xml:"NominalPower,attr"`
	MacAddress   string        `xml:"MacAddress,attr"`
	Versions     []software    `xml:"Versions>Software"`
	Measurements []measurement `xml:"Measurements>Measurement"`
}

type software struct {
	Device  string `xml:"Device,attr"`
	Name    string `xml:"Name,attr"`
	Version string `xml:"Version,attr"`
}

type measurement struct {
	Type  string `xml:"Type,attr"`
	Value string `xml:"Value,attr"`
	Unit  string `xml:"Unit,attr"`
}

// Client polls the XML endpoints of the embedded inverter. It is read only.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	retryDelay time.Duration

	mu       sync.RWMutex
	identity *device
	values   map[MeasurementType]float64
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func New(cfg *config.InverterConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:    (&url.URL{Scheme: "http", Host: cfg.Host}).String(),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     zap.L(),
		retryDelay: retry.Delay,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ReadVersions fetches the identity document once; later calls are no-ops.
func (c *Client) ReadVersions(ctx context.Context) error {
	c.mu.RLock()
	loaded := c.identity != nil
	c.mu.RUnlock()
	if loaded {
		return nil
	}
	doc, err := c.fetch(ctx, versionsPath)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.identity = &doc.Device
	c.mu.Unlock()
	c.logger.Info("inverter identity",
		zap.String("name", doc.Device.Name),
		zap.String("serial", doc.Device.Serial),
		zap.Int("versions", len(doc.Device.Versions)),
	)
	return nil
}

// Update polls the measurements document and replaces the known values.
func (c *Client) Update(ctx context.Context) error {
	var doc *document
	err := retry.Once(ctx, c.retryDelay, c.logger, func(ctx context.Context, _ bool) error {
		// cache buster, the device serves stale documents otherwise.
		path := measurementsPath + "?" + strconv.FormatInt(time.Now().UnixMilli(), 10)
		var err error
		doc, err = c.fetch(ctx, path)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrMalformedResponse) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}

	values := make(map[MeasurementType]float64, len(doc.Device.Measurements))
	for _, m := range doc.Device.Measurements {
		typ := MeasurementType(m.Type)
		if !knownTypes[typ] || m.Value == "" {
			continue
		}
		v, err := strconv.ParseFloat(m.Value, 64)
		if err != nil {
			c.logger.Warn("skipping unparsable measurement", zap.String("type", m.Type), zap.String("value", m.Value))
			continue
		}
		values[typ] = v
	}
	c.mu.Lock()
	c.values = values
	c.mu.Unlock()
	return nil
}

func (c *Client) fetch(ctx context.Context, path string) (*document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
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
		c.logger.Warn("unexpected inverter status", zap.String("path", path), zap.Int("status", res.StatusCode))
		return nil, fmt.Errorf("unexpected status code %d", res.StatusCode)
	}
	doc := &document{}
	if err := xml.Unmarshal(data, doc); err != nil {
		c.logger.Error("failed to parse inverter document", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return doc, nil
}
