package web

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"
)

const (
	overviewPath      = "/endkunde/api/status/getstatusoverview.php"
	totalsPath        = "/endkunde/api/status/getstatus.php"
	peakShavingPath   = "/endkunde/api/peakshaving/getSettings"
	savePeakShaving   = "/endkunde/api/peakshaving/saveSettings"
	spareCapacityPath = "/endkunde/api/senec/%d/emergencypower/reserve-in-percent"
)

// Metrics reported by the overview and totals endpoints.
const (
	MetricPowerGenerated = "powergenerated"
	MetricConsumption    = "consumption"
	MetricGridExport     = "gridexport"
	MetricGridImport     = "gridimport"
	MetricAccuExport     = "accuexport"
	MetricAccuImport     = "accuimport"
	MetricAccuLevel      = "acculevel"
)

// TotalMetrics are the series that have a lifetime total.
var TotalMetrics = []string{
	MetricPowerGenerated,
	MetricConsumption,
	MetricGridExport,
	MetricGridImport,
	MetricAccuExport,
	MetricAccuImport,
}

// series is one metric of the overview: current power and today's energy.
type series struct {
	Now   *float64 `json:"now"`
	Today *float64 `json:"today"`
}

type total struct {
	Total float64 `json:"total"`
}

// PeakShavingMode values as the portal names them.
const (
	PeakShavingDeactivated = "DEACTIVATED"
	PeakShavingManual      = "MANUAL"
	PeakShavingAuto        = "AUTO"
)

type PeakShaving struct {
	Mode          string `json:"liPeakShavingMode"`
	CapacityLimit int    `json:"liPeakShavingCapacityLimitInPercent"`
	EndTime       int64  `json:"liPeakShavingEndTime"`
}

type spareCapacity struct {
	Percent int `json:"reserveInPercent"`
}

func (c *Client) updateOverview(ctx context.Context, plant int) error {
	overview := map[string]series{}
	err := c.withWebSession(ctx, func(ctx context.Context) error {
		return c.doWeb(ctx, http.MethodGet, overviewPath, plantQuery(plant), nil, &overview)
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := overview[c.generatedPolicy.metric]; ok && s.Now != nil {
		v := c.generatedPolicy.apply(*s.Now, c.now())
		if v != *s.Now {
			c.logger.Debug("replaced implausible reading", zap.String("metric", c.generatedPolicy.metric), zap.Float64("value", v))
		}
		s.Now = &v
		overview[c.generatedPolicy.metric] = s
	}
	c.overview = overview
	return nil
}

func (c *Client) updateTotals(ctx context.Context, plant int) error {
	totals := make(map[string]float64, len(TotalMetrics))
	for _, metric := range TotalMetrics {
		t := total{}
		query := plantQuery(plant)
		query.Set("type", metric)
		query.Set("period", "all")
		err := c.withWebSession(ctx, func(ctx context.Context) error {
			return c.doWeb(ctx, http.MethodGet, totalsPath, query, nil, &t)
		})
		if err != nil {
			return fmt.Errorf("total %s: %w", metric, err)
		}
		totals[metric] = t.Total
	}
	c.mu.Lock()
	c.totals = totals
	c.mu.Unlock()
	return nil
}

func (c *Client) updatePeakShaving(ctx context.Context, plant int) error {
	ps := PeakShaving{}
	err := c.withWebSession(ctx, func(ctx context.Context) error {
		return c.doWeb(ctx, http.MethodGet, peakShavingPath, plantQuery(plant), nil, &ps)
	})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.peakShaving = &ps
	c.mu.Unlock()
	c.markFetched(&c.peakShavingAt)
	return nil
}

func (c *Client) updateSpareCapacity(ctx context.Context, plant int) error {
	sc := spareCapacity{}
	err := c.withWebSession(ctx, func(ctx context.Context) error {
		return c.doWeb(ctx, http.MethodGet, fmt.Sprintf(spareCapacityPath, plant), nil, nil, &sc)
	})
	if err != nil {
		return err
	}
	c.mu.Lock()
	percent := sc.Percent
	c.spareCapacity = &percent
	c.mu.Unlock()
	c.markFetched(&c.spareCapacityAt)
	return nil
}

// SetPeakShaving stores new peak shaving settings for the master plant.
func (c *Client) SetPeakShaving(ctx context.Context, settings PeakShaving) error {
	switch settings.Mode {
	case PeakShavingDeactivated, PeakShavingManual, PeakShavingAuto:
	default:
		return fmt.Errorf("unknown peak shaving mode %q", settings.Mode)
	}
	plant, err := c.ensurePlant(ctx)
	if err != nil {
		return err
	}
	query := plantQuery(plant)
	query.Set("mode", settings.Mode)
	query.Set("capacityLimit", strconv.Itoa(settings.CapacityLimit))
	query.Set("endzeit", strconv.FormatInt(settings.EndTime, 10))
	err = c.withWebSession(ctx, func(ctx context.Context) error {
		return c.doWeb(ctx, http.MethodPost, savePeakShaving, query, nil, nil)
	})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.peakShaving = &settings
	c.mu.Unlock()
	return nil
}

// SetSpareCapacity sets the emergency power reserve in percent.
func (c *Client) SetSpareCapacity(ctx context.Context, percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("spare capacity %d out of range", percent)
	}
	plant, err := c.ensurePlant(ctx)
	if err != nil {
		return err
	}
	query := url.Values{"reserve-in-percent": {strconv.Itoa(percent)}}
	err = c.withWebSession(ctx, func(ctx context.Context) error {
		return c.doWeb(ctx, http.MethodPost, fmt.Sprintf(spareCapacityPath, plant), query, nil, nil)
	})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.spareCapacity = &percent
	c.mu.Unlock()
	return nil
}
