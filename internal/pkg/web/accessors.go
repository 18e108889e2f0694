package web

import (
	"github.com/anicoll/senec-integration/internal/pkg/model"
)

// Current returns the "now" value of an overview metric (kW, % for acculevel).
func (c *Client) Current(metric string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.overview[metric]
	if !ok || s.Now == nil {
		return 0, false
	}
	return *s.Now, true
}

// Today returns today's energy of an overview metric in kWh.
func (c *Client) Today(metric string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.overview[metric]
	if !ok || s.Today == nil {
		return 0, false
	}
	return *s.Today, true
}

// Total returns the lifetime energy of a metric in kWh.
func (c *Client) Total(metric string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.totals[metric]
	return v, ok
}

func (c *Client) SolarGeneratedPower() (float64, bool)   { return c.Current(MetricPowerGenerated) }
func (c *Client) HouseConsumption() (float64, bool)      { return c.Current(MetricConsumption) }
func (c *Client) GridExportedPower() (float64, bool)     { return c.Current(MetricGridExport) }
func (c *Client) GridImportedPower() (float64, bool)     { return c.Current(MetricGridImport) }
func (c *Client) BatteryChargePower() (float64, bool)    { return c.Current(MetricAccuImport) }
func (c *Client) BatteryDischargePower() (float64, bool) { return c.Current(MetricAccuExport) }
func (c *Client) BatteryChargePercent() (float64, bool)  { return c.Current(MetricAccuLevel) }

func (c *Client) PeakShaving() (PeakShaving, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.peakShaving == nil {
		return PeakShaving{}, false
	}
	return *c.peakShaving, true
}

func (c *Client) SpareCapacity() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.spareCapacity == nil {
		return 0, false
	}
	return *c.spareCapacity, true
}

func (c *Client) WallboxMode(slot model.WallboxSlot) (model.WallboxMode, bool) {
	w, ok := c.wallbox(slot)
	if !ok {
		return "", false
	}
	return w.mode(), true
}

func (c *Client) WallboxCurrentLimit(slot model.WallboxSlot) (float64, bool) {
	w, ok := c.wallbox(slot)
	return w.ChargingCurrentLimit, ok
}

func (c *Client) WallboxMinChargingCurrent(slot model.WallboxSlot) (float64, bool) {
	w, ok := c.wallbox(slot)
	return w.MinChargingCurrent, ok
}

func (c *Client) WallboxAllowIntercharge(slot model.WallboxSlot) (bool, bool) {
	w, ok := c.wallbox(slot)
	return w.AllowIntercharge, ok
}

// WallboxChargingPower is the apparent charging power in kW.
func (c *Client) WallboxChargingPower(slot model.WallboxSlot) (float64, bool) {
	w, ok := c.wallbox(slot)
	return w.ChargingPower, ok
}

func (c *Client) WallboxEVConnected(slot model.WallboxSlot) (bool, bool) {
	w, ok := c.wallbox(slot)
	return w.EVConnected, ok
}

func (c *Client) WallboxIsCharging(slot model.WallboxSlot) (bool, bool) {
	w, ok := c.wallbox(slot)
	return w.IsCharging, ok
}

func (c *Client) Sensors() []model.DeviceStatus {
	out := []model.DeviceStatus{}
	for _, metric := range []string{MetricPowerGenerated, MetricConsumption, MetricGridExport, MetricGridImport, MetricAccuExport, MetricAccuImport} {
		v, ok := c.Current(metric)
		out = append(out, model.FloatStatus("cloud "+metric+" now", model.NumericUnitKiloWatt, v, ok))
		v, ok = c.Today(metric)
		out = append(out, model.FloatStatus("cloud "+metric+" today", model.NumericUnitKiloWattHour, v, ok))
		v, ok = c.Total(metric)
		out = append(out, model.FloatStatus("cloud "+metric+" total", model.NumericUnitKiloWattHour, v, ok))
	}
	v, ok := c.BatteryChargePercent()
	out = append(out, model.FloatStatus("cloud acculevel now", model.NumericUnitPercent, v, ok))

	ps, ok := c.PeakShaving()
	out = append(out, model.TextStatus("cloud "+model.PeakShavingModeTextSensor.String(), ps.Mode, ok))
	out = append(out, model.FloatStatus("cloud peak shaving capacity limit", model.NumericUnitPercent, float64(ps.CapacityLimit), ok))
	spare, ok := c.SpareCapacity()
	out = append(out, model.FloatStatus("cloud spare capacity", model.NumericUnitPercent, float64(spare), ok))

	if c.cfg.QueryWallbox {
		for _, slot := range model.AllWallboxSlots {
			mode, ok := c.WallboxMode(slot)
			out = append(out, model.TextStatus("cloud "+slot.String()+" "+model.WallboxModeTextSensor.String(), mode.String(), ok))
			v, ok := c.WallboxChargingPower(slot)
			out = append(out, model.FloatStatus("cloud "+slot.String()+" charging power", model.NumericUnitKiloWatt, v, ok))
			v, ok = c.WallboxCurrentLimit(slot)
			out = append(out, model.FloatStatus("cloud "+slot.String()+" current limit", model.NumericUnitAmp, v, ok))
		}
	}
	return out
}
