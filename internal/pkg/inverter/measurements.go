package inverter

import (
	"github.com/anicoll/senec-integration/internal/pkg/model"
)

// MeasurementType is the Type attribute of a <Measurement> element.
type MeasurementType string

const (
	ACVoltage         MeasurementType = "AC_Voltage"
	ACCurrent         MeasurementType = "AC_Current"
	ACPower           MeasurementType = "AC_Power"
	ACPowerFast       MeasurementType = "AC_Power_fast"
	ACFrequency       MeasurementType = "AC_Frequency"
	BDCBatVoltage     MeasurementType = "BDC_BAT_Voltage"
	BDCBatCurrent     MeasurementType = "BDC_BAT_Current"
	BDCBatPower       MeasurementType = "BDC_BAT_Power"
	BDCLinkVoltage    MeasurementType = "BDC_LINK_Voltage"
	BDCLinkCurrent    MeasurementType = "BDC_LINK_Current"
	BDCLinkPower      MeasurementType = "BDC_LINK_Power"
	DCVoltage1        MeasurementType = "DC_Voltage1"
	DCVoltage2        MeasurementType = "DC_Voltage2"
	DCCurrent1        MeasurementType = "DC_Current1"
	DCCurrent2        MeasurementType = "DC_Current2"
	LinkVoltage       MeasurementType = "LINK_Voltage"
	GridPower         MeasurementType = "GridPower"
	GridConsumedPower MeasurementType = "GridConsumedPower"
	GridInjectedPower MeasurementType = "GridInjectedPower"
	OwnConsumedPower  MeasurementType = "OwnConsumedPower"
	Derating          MeasurementType = "Derating"
)

type sensor struct {
	typ  MeasurementType
	name string
	unit model.NumericUnit
}

var sensors = []sensor{
	{ACVoltage, "ac voltage", model.NumericUnitVolt},
	{ACCurrent, "ac current", model.NumericUnitAmp},
	{ACPower, "ac power", model.NumericUnitWatt},
	{ACPowerFast, "ac power fast", model.NumericUnitWatt},
	{ACFrequency, "ac frequency", model.NumericUnitHertz},
	{BDCBatVoltage, "bdc battery voltage", model.NumericUnitVolt},
	{BDCBatCurrent, "bdc battery current", model.NumericUnitAmp},
	{BDCBatPower, "bdc battery power", model.NumericUnitWatt},
	{BDCLinkVoltage, "bdc link voltage", model.NumericUnitVolt},
	{BDCLinkCurrent, "bdc link current", model.NumericUnitAmp},
	{BDCLinkPower, "bdc link power", model.NumericUnitWatt},
	{DCVoltage1, "dc voltage 1", model.NumericUnitVolt},
	{DCVoltage2, "dc voltage 2", model.NumericUnitVolt},
	{DCCurrent1, "dc current 1", model.NumericUnitAmp},
	{DCCurrent2, "dc current 2", model.NumericUnitAmp},
	{LinkVoltage, "link voltage", model.NumericUnitVolt},
	{GridPower, "grid power", model.NumericUnitWatt},
	{GridConsumedPower, "grid consumed power", model.NumericUnitWatt},
	{GridInjectedPower, "grid injected power", model.NumericUnitWatt},
	{OwnConsumedPower, "own consumed power", model.NumericUnitWatt},
	{Derating, "derating", model.NumericUnitPercent},
}

var knownTypes = func() map[MeasurementType]bool {
	m := make(map[MeasurementType]bool, len(sensors))
	for _, s := range sensors {
		m[s.typ] = true
	}
	return m
}()

// Value returns the last polled measurement of typ as the device reported it.
func (c *Client) Value(typ MeasurementType) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[typ]
	return v, ok
}

func (c *Client) ACVoltage() (float64, bool)         { return c.Value(ACVoltage) }
func (c *Client) ACCurrent() (float64, bool)         { return c.Value(ACCurrent) }
func (c *Client) ACPower() (float64, bool)           { return c.Value(ACPower) }
func (c *Client) ACPowerFast() (float64, bool)       { return c.Value(ACPowerFast) }
func (c *Client) ACFrequency() (float64, bool)       { return c.Value(ACFrequency) }
func (c *Client) BDCBatteryVoltage() (float64, bool) { return c.Value(BDCBatVoltage) }
func (c *Client) BDCBatteryCurrent() (float64, bool) { return c.Value(BDCBatCurrent) }
func (c *Client) BDCBatteryPower() (float64, bool)   { return c.Value(BDCBatPower) }
func (c *Client) BDCLinkVoltage() (float64, bool)    { return c.Value(BDCLinkVoltage) }
func (c *Client) BDCLinkCurrent() (float64, bool)    { return c.Value(BDCLinkCurrent) }
func (c *Client) BDCLinkPower() (float64, bool)      { return c.Value(BDCLinkPower) }
func (c *Client) DCVoltage1() (float64, bool)        { return c.Value(DCVoltage1) }
func (c *Client) DCVoltage2() (float64, bool)        { return c.Value(DCVoltage2) }
func (c *Client) DCCurrent1() (float64, bool)        { return c.Value(DCCurrent1) }
func (c *Client) DCCurrent2() (float64, bool)        { return c.Value(DCCurrent2) }
func (c *Client) LinkVoltage() (float64, bool)       { return c.Value(LinkVoltage) }
func (c *Client) GridPower() (float64, bool)         { return c.Value(GridPower) }
func (c *Client) GridConsumedPower() (float64, bool) { return c.Value(GridConsumedPower) }
func (c *Client) GridInjectedPower() (float64, bool) { return c.Value(GridInjectedPower) }
func (c *Client) OwnConsumedPower() (float64, bool)  { return c.Value(OwnConsumedPower) }

// Derating is the power reduction in percent. The device reports the
// remaining headroom instead.
func (c *Client) Derating() (float64, bool) {
	v, ok := c.Value(Derating)
	if !ok {
		return 0, false
	}
	return 100 - v, true
}

func (c *Client) DeviceName() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.identity == nil {
		return "", false
	}
	return c.identity.Name, true
}

func (c *Client) SerialNumber() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.identity == nil {
		return "", false
	}
	return c.identity.Serial, true
}

func (c *Client) NetBiosName() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.identity == nil {
		return "", false
	}
	return c.identity.NetBiosName, true
}

// Versions maps software component names to their versions.
func (c *Client) Versions() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := map[string]string{}
	if c.identity == nil {
		return out
	}
	for _, s := range c.identity.Versions {
		out[s.Name] = s.Version
	}
	return out
}

func (c *Client) Sensors() []model.DeviceStatus {
	out := make([]model.DeviceStatus, 0, len(sensors)+1)
	name, ok := c.DeviceName()
	out = append(out, model.TextStatus(model.InverterDeviceNameTextSensor.String(), name, ok))
	for _, s := range sensors {
		v, ok := c.Value(s.typ)
		if s.typ == Derating {
			v, ok = c.Derating()
		}
		out = append(out, model.FloatStatus("inverter "+s.name, s.unit, v, ok))
	}
	return out
}
