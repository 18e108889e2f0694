package senec

// Section names of the lala.cgi document.
const (
	SectionEnergy      = "ENERGY"
	SectionStatistic   = "STATISTIC"
	SectionTempMeasure = "TEMPMEASURE"
	SectionPV1         = "PV1"
	SectionPM1Obj1     = "PM1OBJ1"
	SectionPM1Obj2     = "PM1OBJ2"
	SectionFanSpeed    = "FAN_SPEED"
	SectionBMS         = "BMS"
	SectionWallbox     = "WALLBOX"
	SectionSockets     = "SOCKETS"
	SectionWizard      = "WIZARD"
	SectionSysUpdate   = "SYS_UPDATE"
	SectionFactory     = "FACTORY"
)

// Features selects the optional sections polled on every update.
// It is resolved once when the client is built.
type Features struct {
	Statistic         bool
	BMS               bool
	BMSCells          bool
	Wallbox           bool
	Sockets           bool
	Fans              bool
	PowerMeter        bool
	Temperatures      bool
	PVStrings         bool
	IgnoreSystemState bool
}

var energyFields = []string{
	"STAT_STATE",
	"GUI_BAT_DATA_POWER",
	"GUI_INVERTER_POWER",
	"GUI_HOUSE_POW",
	"GUI_GRID_POW",
	"GUI_BAT_DATA_FUEL_CHARGE",
	"GUI_CHARGING_INFO",
	"GUI_BOOSTING_INFO",
	"GUI_BAT_DATA_VOLTAGE",
	"GUI_BAT_DATA_CURRENT",
	"SAFE_CHARGE_RUNNING",
	"LI_STORAGE_MODE_RUNNING",
}

var statisticFields = []string{
	"LIVE_BAT_CHARGE",
	"LIVE_BAT_DISCHARGE",
	"LIVE_GRID_IMPORT",
	"LIVE_GRID_EXPORT",
	"LIVE_HOUSE_CONS",
	"LIVE_PV_GEN",
	"LIVE_WB_ENERGY",
}

var temperatureFields = []string{"BATTERY_TEMP", "CASE_TEMP", "MCU_TEMP"}

var pvFields = []string{"POWER_RATIO", "MPP_VOL", "MPP_CUR", "MPP_POWER"}

var meterFields = []string{"FREQ", "U_AC", "I_AC", "P_AC", "P_TOTAL"}

var fanFields = []string{"INV_LV", "INV_HV"}

var bmsFields = []string{
	"NR_INSTALLED",
	"SOC",
	"SOH",
	"CYCLES",
	"CURRENT",
	"VOLTAGE",
	"MAX_CELL_VOLTAGE",
	"MIN_CELL_VOLTAGE",
}

var bmsCellFields = []string{
	"CELL_TEMPERATURES_MODULE_A",
	"CELL_TEMPERATURES_MODULE_B",
	"CELL_TEMPERATURES_MODULE_C",
	"CELL_TEMPERATURES_MODULE_D",
	"CELL_VOLTAGES_MODULE_A",
	"CELL_VOLTAGES_MODULE_B",
	"CELL_VOLTAGES_MODULE_C",
	"CELL_VOLTAGES_MODULE_D",
}

var wallboxFields = []string{
	"L1_CHARGING_CURRENT",
	"L2_CHARGING_CURRENT",
	"L3_CHARGING_CURRENT",
	"APPARENT_CHARGING_POWER",
	"EV_CONNECTED",
	"STATE",
	"SET_ICMAX",
	"MIN_CHARGING_CURRENT",
	"MAX_TOTAL_CURRENT_BY_GRID",
	"PROHIBIT_USAGE",
	"ALLOW_INTERCHARGE",
	"SMART_CHARGE_ACTIVE",
}

var socketFields = []string{
	"ENABLE",
	"FORCE_ON",
	"LOWER_LIMIT",
	"UPPER_LIMIT",
	"POWER_ON_TIME",
	"SWITCH_ON_HOUR",
	"SWITCH_ON_MINUTE",
	"TIME_LIMIT",
	"USE_TIME",
	"ALREADY_SWITCHED",
	"POWER_ON",
}

var versionShape = request{
	SectionWizard:    shape("APPLICATION_VERSION", "INTERFACE_VERSION"),
	SectionSysUpdate: shape("NPU_VER", "NPU_IMAGE_VERSION"),
	SectionFactory:   shape("DEVICE_ID", "SYS_TYPE", "DESIGN_CAPACITY", "MAX_CHARGE_POWER_DC", "MAX_DISCHARGE_POWER_DC"),
}

// request is the lala.cgi document: section -> field -> value ("" when querying).
type request map[string]map[string]any

func shape(fields ...string) map[string]any {
	m := make(map[string]any, len(fields))
	for _, f := range fields {
		m[f] = ""
	}
	return m
}

// buildRequest returns the query document for the enabled features.
// The result depends only on f, so every poll asks for the same shape.
func buildRequest(f Features) request {
	req := request{
		SectionEnergy: shape(energyFields...),
	}
	if f.Statistic {
		req[SectionStatistic] = shape(statisticFields...)
	}
	if f.Temperatures {
		req[SectionTempMeasure] = shape(temperatureFields...)
	}
	if f.PVStrings {
		req[SectionPV1] = shape(pvFields...)
	}
	if f.PowerMeter {
		req[SectionPM1Obj1] = shape(meterFields...)
		req[SectionPM1Obj2] = shape(meterFields...)
	}
	if f.Fans {
		req[SectionFanSpeed] = shape(fanFields...)
	}
	if f.BMS || f.BMSCells {
		fields := []string{}
		if f.BMS {
			fields = append(fields, bmsFields...)
		}
		if f.BMSCells {
			fields = append(fields, bmsCellFields...)
		}
		req[SectionBMS] = shape(fields...)
	}
	if f.Wallbox {
		req[SectionWallbox] = shape(wallboxFields...)
	}
	if f.Sockets {
		req[SectionSockets] = shape(socketFields...)
	}
	return req
}
