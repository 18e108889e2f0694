package senec

import (
	"fmt"

	"github.com/anicoll/senec-integration/internal/pkg/model"
)

// Sensors snapshots every readable value the enabled features provide.
func (c *Client) Sensors() []model.DeviceStatus {
	f := c.features
	out := []model.DeviceStatus{}
	num := func(name string, unit model.NumericUnit, v float64, ok bool) {
		out = append(out, model.FloatStatus(name, unit, v, ok))
	}
	flagged := func(name string, v, ok bool) {
		out = append(out, model.BoolStatus(name, v, ok))
	}

	state, ok := c.SystemStateName()
	out = append(out, model.TextStatus(model.SystemStateTextSensor.String(), state, ok))
	v, ok := c.HousePower()
	num("house power", model.NumericUnitWatt, v, ok)
	v, ok = c.SolarGeneratedPower()
	num("solar generated power", model.NumericUnitWatt, v, ok)
	v, ok = c.BatteryChargePower()
	num("battery charge power", model.NumericUnitWatt, v, ok)
	v, ok = c.BatteryDischargePower()
	num("battery discharge power", model.NumericUnitWatt, v, ok)
	v, ok = c.GridImportedPower()
	num("grid imported power", model.NumericUnitWatt, v, ok)
	v, ok = c.GridExportedPower()
	num("grid exported power", model.NumericUnitWatt, v, ok)
	v, ok = c.BatteryChargePercent()
	num("battery charge percent", model.NumericUnitPercent, v, ok)
	v, ok = c.BatteryVoltage()
	num("battery voltage", model.NumericUnitVolt, v, ok)
	v, ok = c.BatteryCurrent()
	num("battery current", model.NumericUnitAmp, v, ok)
	b, ok := c.SafeCharge()
	flagged("safe charge", b, ok)
	b, ok = c.LiStorageMode()
	flagged("li storage mode", b, ok)

	if f.Statistic {
		v, ok = c.BatteryChargedEnergy()
		num("battery charged energy", model.NumericUnitKiloWattHour, v, ok)
		v, ok = c.BatteryDischargedEnergy()
		num("battery discharged energy", model.NumericUnitKiloWattHour, v, ok)
		v, ok = c.GridImportedEnergy()
		num("grid imported energy", model.NumericUnitKiloWattHour, v, ok)
		v, ok = c.GridExportedEnergy()
		num("grid exported energy", model.NumericUnitKiloWattHour, v, ok)
		v, ok = c.HouseConsumedEnergy()
		num("house consumed energy", model.NumericUnitKiloWattHour, v, ok)
		v, ok = c.SolarGeneratedEnergy()
		num("solar generated energy", model.NumericUnitKiloWattHour, v, ok)
		v, ok = c.WallboxEnergy()
		num("wallbox energy", model.NumericUnitKiloWattHour, v, ok)
	}
	if f.Temperatures {
		v, ok = c.BatteryTemperature()
		num("battery temperature", model.NumericUnitDegreeC, v, ok)
		v, ok = c.CaseTemperature()
		num("case temperature", model.NumericUnitDegreeC, v, ok)
		v, ok = c.MCUTemperature()
		num("mcu temperature", model.NumericUnitDegreeC, v, ok)
	}
	if f.PVStrings {
		v, ok = c.SolarPowerRatio()
		num("solar power ratio", model.NumericUnitPercent, v, ok)
		for i := range 3 {
			v, ok = c.SolarMPPVoltage(i)
			num(fmt.Sprintf("solar mpp%d voltage", i+1), model.NumericUnitVolt, v, ok)
			v, ok = c.SolarMPPCurrent(i)
			num(fmt.Sprintf("solar mpp%d current", i+1), model.NumericUnitAmp, v, ok)
			v, ok = c.SolarMPPPower(i)
			num(fmt.Sprintf("solar mpp%d power", i+1), model.NumericUnitWatt, v, ok)
		}
	}
	if f.PowerMeter {
		v, ok = c.GridFrequency()
		num("grid frequency", model.NumericUnitHertz, v, ok)
		v, ok = c.GridTotalPower()
		num("grid total power", model.NumericUnitWatt, v, ok)
		v, ok = c.HouseTotalPower()
		num("house total power", model.NumericUnitWatt, v, ok)
		for p := range Phases {
			v, ok = c.GridVoltage(p)
			num(fmt.Sprintf("grid voltage p%d", p+1), model.NumericUnitVolt, v, ok)
			v, ok = c.GridCurrent(p)
			num(fmt.Sprintf("grid current p%d", p+1), model.NumericUnitAmp, v, ok)
			v, ok = c.GridPhasePower(p)
			num(fmt.Sprintf("grid power p%d", p+1), model.NumericUnitWatt, v, ok)
			v, ok = c.HouseVoltage(p)
			num(fmt.Sprintf("house voltage p%d", p+1), model.NumericUnitVolt, v, ok)
			v, ok = c.HouseCurrent(p)
			num(fmt.Sprintf("house current p%d", p+1), model.NumericUnitAmp, v, ok)
			v, ok = c.HousePhasePower(p)
			num(fmt.Sprintf("house power p%d", p+1), model.NumericUnitWatt, v, ok)
		}
	}
	if f.Fans {
		b, ok = c.FanInverterLV()
		flagged("fan inverter lv", b, ok)
		b, ok = c.FanInverterHV()
		flagged("fan inverter hv", b, ok)
	}
	if f.BMS {
		for m, name := range BMSModules {
			v, ok = c.BMSSoC(m)
			num("bms soc "+name, model.NumericUnitPercent, v, ok)
			v, ok = c.BMSSoH(m)
			num("bms soh "+name, model.NumericUnitPercent, v, ok)
			cycles, ok := c.BMSCycles(m)
			num("bms cycles "+name, model.NumericUnitNone, float64(cycles), ok)
			v, ok = c.BMSCurrent(m)
			num("bms current "+name, model.NumericUnitAmp, v, ok)
			v, ok = c.BMSVoltage(m)
			num("bms voltage "+name, model.NumericUnitVolt, v, ok)
		}
	}
	if f.BMSCells {
		for m, name := range BMSModules {
			for cell := range c.BMSCellCount(m) {
				v, ok = c.BMSCellVoltage(m, cell)
				num(fmt.Sprintf("bms cell voltage %s%d", name, cell+1), model.NumericUnitMilliVolt, v, ok)
				v, ok = c.BMSCellTemperature(m, cell)
				num(fmt.Sprintf("bms cell temperature %s%d", name, cell+1), model.NumericUnitDegreeC, v, ok)
			}
		}
	}
	if f.Wallbox {
		for _, s := range model.AllWallboxSlots {
			v, ok = c.WallboxApparentChargingPower(s)
			num(s.String()+" power", model.NumericUnitWatt, v, ok)
			for p := range Phases {
				v, ok = c.WallboxPhaseCurrent(s, p)
				num(fmt.Sprintf("%s l%d current", s, p+1), model.NumericUnitAmp, v, ok)
			}
			v, ok = c.WallboxCurrentLimit(s)
			num(s.String()+" set icmax", model.NumericUnitAmp, v, ok)
			b, ok = c.WallboxEVConnected(s)
			flagged(s.String()+" ev connected", b, ok)
			mode, ok := c.WallboxMode(s)
			out = append(out, model.TextStatus(s.String()+" "+model.WallboxModeTextSensor.String(), mode.String(), ok))
		}
	}
	if f.Sockets {
		for i := range Sockets {
			b, ok = c.SocketPowerOn(i)
			flagged(fmt.Sprintf("socket%d power on", i+1), b, ok)
			b, ok = c.SocketEnabled(i)
			flagged(fmt.Sprintf("socket%d enable", i+1), b, ok)
		}
	}
	return out
}
