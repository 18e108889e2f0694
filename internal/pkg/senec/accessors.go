package senec

import (
	"math"

	"github.com/anicoll/senec-integration/internal/pkg/model"
)

// Phases of the three-phase power meters.
const Phases = 3

// Sockets is the number of switchable sockets on the device.
const Sockets = 2

// BMSModules names the battery modules reported in the BMS arrays.
var BMSModules = []string{"A", "B", "C", "D"}

// SystemState is the raw STAT_STATE code.
func (c *Client) SystemState() (int64, bool) {
	return c.readInt(SectionEnergy, "STAT_STATE")
}

func (c *Client) SystemStateName() (string, bool) {
	code, ok := c.SystemState()
	if !ok {
		return "", false
	}
	return SystemStateText(code), true
}

func (c *Client) HousePower() (float64, bool) {
	return c.readFloat(SectionEnergy, "GUI_HOUSE_POW")
}

func (c *Client) SolarGeneratedPower() (float64, bool) {
	v, ok := c.readFloat(SectionEnergy, "GUI_INVERTER_POWER")
	return math.Abs(v), ok
}

// BatteryPower is the signed battery flow; positive while charging.
func (c *Client) BatteryPower() (float64, bool) {
	return c.readFloat(SectionEnergy, "GUI_BAT_DATA_POWER")
}

// BatteryChargePower splits the signed battery power. Unless system state is
// ignored, the charge side only counts while STAT_STATE is a charging state.
func (c *Client) BatteryChargePower() (float64, bool) {
	p, ok := c.BatteryPower()
	if !ok {
		return 0, false
	}
	if c.features.IgnoreSystemState {
		return math.Max(p, 0), true
	}
	state, ok := c.SystemState()
	if ok && isCharging(state) {
		return math.Abs(p), true
	}
	return 0, true
}

func (c *Client) BatteryDischargePower() (float64, bool) {
	p, ok := c.BatteryPower()
	if !ok {
		return 0, false
	}
	if c.features.IgnoreSystemState {
		return math.Max(-p, 0), true
	}
	state, ok := c.SystemState()
	if ok && isDischarging(state) {
		return math.Abs(p), true
	}
	return 0, true
}

// GridPower is the signed grid flow; positive while importing.
func (c *Client) GridPower() (float64, bool) {
	return c.readFloat(SectionEnergy, "GUI_GRID_POW")
}

func (c *Client) GridImportedPower() (float64, bool) {
	p, ok := c.GridPower()
	return math.Max(p, 0), ok
}

func (c *Client) GridExportedPower() (float64, bool) {
	p, ok := c.GridPower()
	return math.Max(-p, 0), ok
}

func (c *Client) BatteryChargePercent() (float64, bool) {
	return c.readFloat(SectionEnergy, "GUI_BAT_DATA_FUEL_CHARGE")
}

func (c *Client) BatteryVoltage() (float64, bool) {
	return c.readFloat(SectionEnergy, "GUI_BAT_DATA_VOLTAGE")
}

func (c *Client) BatteryCurrent() (float64, bool) {
	return c.readFloat(SectionEnergy, "GUI_BAT_DATA_CURRENT")
}

func (c *Client) ChargingInfo() (bool, bool) {
	return c.readBool(SectionEnergy, "GUI_CHARGING_INFO")
}

func (c *Client) BoostingInfo() (bool, bool) {
	return c.readBool(SectionEnergy, "GUI_BOOSTING_INFO")
}

func (c *Client) SafeCharge() (bool, bool) {
	return c.readBool(SectionEnergy, "SAFE_CHARGE_RUNNING")
}

func (c *Client) LiStorageMode() (bool, bool) {
	return c.readBool(SectionEnergy, "LI_STORAGE_MODE_RUNNING")
}

// Statistic counters, kWh since commissioning.

func (c *Client) BatteryChargedEnergy() (float64, bool) {
	return c.readFloat(SectionStatistic, "LIVE_BAT_CHARGE")
}

func (c *Client) BatteryDischargedEnergy() (float64, bool) {
	return c.readFloat(SectionStatistic, "LIVE_BAT_DISCHARGE")
}

func (c *Client) GridImportedEnergy() (float64, bool) {
	return c.readFloat(SectionStatistic, "LIVE_GRID_IMPORT")
}

func (c *Client) GridExportedEnergy() (float64, bool) {
	return c.readFloat(SectionStatistic, "LIVE_GRID_EXPORT")
}

func (c *Client) HouseConsumedEnergy() (float64, bool) {
	return c.readFloat(SectionStatistic, "LIVE_HOUSE_CONS")
}

func (c *Client) SolarGeneratedEnergy() (float64, bool) {
	return c.readFloat(SectionStatistic, "LIVE_PV_GEN")
}

func (c *Client) WallboxEnergy() (float64, bool) {
	return c.readFloat(SectionStatistic, "LIVE_WB_ENERGY")
}

func (c *Client) BatteryTemperature() (float64, bool) {
	return c.readFloat(SectionTempMeasure, "BATTERY_TEMP")
}

func (c *Client) CaseTemperature() (float64, bool) {
	return c.readFloat(SectionTempMeasure, "CASE_TEMP")
}

func (c *Client) MCUTemperature() (float64, bool) {
	return c.readFloat(SectionTempMeasure, "MCU_TEMP")
}

// PV strings.

func (c *Client) SolarPowerRatio() (float64, bool) {
	return c.readFloat(SectionPV1, "POWER_RATIO")
}

func (c *Client) SolarMPPVoltage(pv int) (float64, bool) {
	return c.readFloatAt(SectionPV1, "MPP_VOL", pv)
}

func (c *Client) SolarMPPCurrent(pv int) (float64, bool) {
	return c.readFloatAt(SectionPV1, "MPP_CUR", pv)
}

func (c *Client) SolarMPPPower(pv int) (float64, bool) {
	return c.readFloatAt(SectionPV1, "MPP_POWER", pv)
}

// Grid meter (PM1OBJ1).

func (c *Client) GridFrequency() (float64, bool) {
	return c.readFloat(SectionPM1Obj1, "FREQ")
}

func (c *Client) GridTotalPower() (float64, bool) {
	return c.readFloat(SectionPM1Obj1, "P_TOTAL")
}

func (c *Client) GridVoltage(phase int) (float64, bool) {
	return c.readFloatAt(SectionPM1Obj1, "U_AC", phase)
}

func (c *Client) GridCurrent(phase int) (float64, bool) {
	return c.readFloatAt(SectionPM1Obj1, "I_AC", phase)
}

func (c *Client) GridPhasePower(phase int) (float64, bool) {
	return c.readFloatAt(SectionPM1Obj1, "P_AC", phase)
}

// House meter (PM1OBJ2).

func (c *Client) HouseFrequency() (float64, bool) {
	return c.readFloat(SectionPM1Obj2, "FREQ")
}

func (c *Client) HouseTotalPower() (float64, bool) {
	return c.readFloat(SectionPM1Obj2, "P_TOTAL")
}

func (c *Client) HouseVoltage(phase int) (float64, bool) {
	return c.readFloatAt(SectionPM1Obj2, "U_AC", phase)
}

func (c *Client) HouseCurrent(phase int) (float64, bool) {
	return c.readFloatAt(SectionPM1Obj2, "I_AC", phase)
}

func (c *Client) HousePhasePower(phase int) (float64, bool) {
	return c.readFloatAt(SectionPM1Obj2, "P_AC", phase)
}

func (c *Client) FanInverterLV() (bool, bool) {
	return c.readBool(SectionFanSpeed, "INV_LV")
}

func (c *Client) FanInverterHV() (bool, bool) {
	return c.readBool(SectionFanSpeed, "INV_HV")
}

// BMS, per battery module.

func (c *Client) BMSModulesInstalled() (int64, bool) {
	return c.readInt(SectionBMS, "NR_INSTALLED")
}

func (c *Client) BMSSoC(module int) (float64, bool) {
	return c.readFloatAt(SectionBMS, "SOC", module)
}

func (c *Client) BMSSoH(module int) (float64, bool) {
	return c.readFloatAt(SectionBMS, "SOH", module)
}

func (c *Client) BMSCycles(module int) (int64, bool) {
	return c.readIntAt(SectionBMS, "CYCLES", module)
}

func (c *Client) BMSCurrent(module int) (float64, bool) {
	return c.readFloatAt(SectionBMS, "CURRENT", module)
}

func (c *Client) BMSVoltage(module int) (float64, bool) {
	return c.readFloatAt(SectionBMS, "VOLTAGE", module)
}

func (c *Client) BMSMaxCellVoltage(module int) (float64, bool) {
	return c.readFloatAt(SectionBMS, "MAX_CELL_VOLTAGE", module)
}

func (c *Client) BMSMinCellVoltage(module int) (float64, bool) {
	return c.readFloatAt(SectionBMS, "MIN_CELL_VOLTAGE", module)
}

func (c *Client) BMSCellTemperature(module, cell int) (float64, bool) {
	if module < 0 || module >= len(BMSModules) {
		return 0, false
	}
	return c.readFloatAt(SectionBMS, "CELL_TEMPERATURES_MODULE_"+BMSModules[module], cell)
}

func (c *Client) BMSCellVoltage(module, cell int) (float64, bool) {
	if module < 0 || module >= len(BMSModules) {
		return 0, false
	}
	return c.readFloatAt(SectionBMS, "CELL_VOLTAGES_MODULE_"+BMSModules[module], cell)
}

// BMSCellCount is the number of cells reported for module.
func (c *Client) BMSCellCount(module int) int {
	if module < 0 || module >= len(BMSModules) {
		return 0
	}
	a, _ := c.readArray(SectionBMS, "CELL_VOLTAGES_MODULE_"+BMSModules[module])
	return len(a)
}

// Wallbox, per slot.

func (c *Client) WallboxPhaseCurrent(slot model.WallboxSlot, phase int) (float64, bool) {
	if phase < 0 || phase >= Phases {
		return 0, false
	}
	field := []string{"L1_CHARGING_CURRENT", "L2_CHARGING_CURRENT", "L3_CHARGING_CURRENT"}[phase]
	return c.readFloatAt(SectionWallbox, field, slot.Index())
}

func (c *Client) WallboxApparentChargingPower(slot model.WallboxSlot) (float64, bool) {
	return c.readFloatAt(SectionWallbox, "APPARENT_CHARGING_POWER", slot.Index())
}

func (c *Client) WallboxEVConnected(slot model.WallboxSlot) (bool, bool) {
	return c.readBoolAt(SectionWallbox, "EV_CONNECTED", slot.Index())
}

func (c *Client) WallboxState(slot model.WallboxSlot) (int64, bool) {
	return c.readIntAt(SectionWallbox, "STATE", slot.Index())
}

// WallboxCurrentLimit is the configured maximum charging current (SET_ICMAX).
func (c *Client) WallboxCurrentLimit(slot model.WallboxSlot) (float64, bool) {
	return c.readFloatAt(SectionWallbox, "SET_ICMAX", slot.Index())
}

func (c *Client) WallboxMinChargingCurrent(slot model.WallboxSlot) (float64, bool) {
	return c.readFloatAt(SectionWallbox, "MIN_CHARGING_CURRENT", slot.Index())
}

func (c *Client) WallboxMaxTotalCurrentByGrid() (float64, bool) {
	return c.readFloat(SectionWallbox, "MAX_TOTAL_CURRENT_BY_GRID")
}

func (c *Client) WallboxProhibitUsage(slot model.WallboxSlot) (bool, bool) {
	return c.readBoolAt(SectionWallbox, "PROHIBIT_USAGE", slot.Index())
}

func (c *Client) WallboxAllowIntercharge(slot model.WallboxSlot) (bool, bool) {
	return c.readBoolAt(SectionWallbox, "ALLOW_INTERCHARGE", slot.Index())
}

func (c *Client) WallboxSmartChargeActive(slot model.WallboxSlot) (bool, bool) {
	return c.readBoolAt(SectionWallbox, "SMART_CHARGE_ACTIVE", slot.Index())
}

// WallboxMode derives the charging mode from PROHIBIT_USAGE and SMART_CHARGE_ACTIVE.
func (c *Client) WallboxMode(slot model.WallboxSlot) (model.WallboxMode, bool) {
	prohibit, ok := c.WallboxProhibitUsage(slot)
	if !ok {
		return "", false
	}
	if prohibit {
		return model.WallboxModeLocked, true
	}
	smart, ok := c.WallboxSmartChargeActive(slot)
	if !ok {
		return "", false
	}
	if smart {
		return model.WallboxModeOptimized, true
	}
	return model.WallboxModeFast, true
}

// WallboxCurrents returns SET_ICMAX for every slot.
func (c *Client) WallboxCurrents() model.WallboxArray[*float64] {
	var out model.WallboxArray[*float64]
	for _, s := range model.AllWallboxSlots {
		if v, ok := c.WallboxCurrentLimit(s); ok {
			out[s] = &v
		}
	}
	return out
}

// Sockets, per index.

func (c *Client) SocketEnabled(idx int) (bool, bool) {
	return c.readBoolAt(SectionSockets, "ENABLE", idx)
}

func (c *Client) SocketForceOn(idx int) (bool, bool) {
	return c.readBoolAt(SectionSockets, "FORCE_ON", idx)
}

func (c *Client) SocketLowerLimit(idx int) (int64, bool) {
	return c.readIntAt(SectionSockets, "LOWER_LIMIT", idx)
}

func (c *Client) SocketUpperLimit(idx int) (int64, bool) {
	return c.readIntAt(SectionSockets, "UPPER_LIMIT", idx)
}

func (c *Client) SocketPowerOnTime(idx int) (int64, bool) {
	return c.readIntAt(SectionSockets, "POWER_ON_TIME", idx)
}

func (c *Client) SocketSwitchOnHour(idx int) (int64, bool) {
	return c.readIntAt(SectionSockets, "SWITCH_ON_HOUR", idx)
}

func (c *Client) SocketSwitchOnMinute(idx int) (int64, bool) {
	return c.readIntAt(SectionSockets, "SWITCH_ON_MINUTE", idx)
}

func (c *Client) SocketTimeLimit(idx int) (int64, bool) {
	return c.readIntAt(SectionSockets, "TIME_LIMIT", idx)
}

func (c *Client) SocketUseTime(idx int) (bool, bool) {
	return c.readBoolAt(SectionSockets, "USE_TIME", idx)
}

func (c *Client) SocketAlreadySwitched(idx int) (bool, bool) {
	return c.readBoolAt(SectionSockets, "ALREADY_SWITCHED", idx)
}

func (c *Client) SocketPowerOn(idx int) (bool, bool) {
	return c.readBoolAt(SectionSockets, "POWER_ON", idx)
}

// Identity, available after ReadVersion.

func (c *Client) ApplicationVersion() (string, bool) {
	return c.versionString(SectionWizard, "APPLICATION_VERSION")
}

func (c *Client) InterfaceVersion() (string, bool) {
	return c.versionString(SectionWizard, "INTERFACE_VERSION")
}

func (c *Client) NPUVersion() (string, bool) {
	return c.versionString(SectionSysUpdate, "NPU_VER")
}

func (c *Client) NPUImageVersion() (string, bool) {
	return c.versionString(SectionSysUpdate, "NPU_IMAGE_VERSION")
}

func (c *Client) DeviceID() (string, bool) {
	return c.versionString(SectionFactory, "DEVICE_ID")
}

func (c *Client) SystemType() (string, bool) {
	return c.versionString(SectionFactory, "SYS_TYPE")
}

func (c *Client) DesignCapacity() (string, bool) {
	return c.versionString(SectionFactory, "DESIGN_CAPACITY")
}
