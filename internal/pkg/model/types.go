package model

type Backend string

func (b Backend) String() string {
	return string(b)
}

const (
	BackendLocal    Backend = "local"
	BackendInverter Backend = "inverter"
	BackendCloud    Backend = "cloud"
)

type NumericUnit string

const (
	NumericUnitAmp          NumericUnit = "A"
	NumericUnitMilliVolt    NumericUnit = "mV"
	NumericUnitPercent      NumericUnit = "%"
	NumericUnitKiloWatt     NumericUnit = "kW"
	NumericUnitWatt         NumericUnit = "W"
	NumericUnitKiloWattHour NumericUnit = "kWh"
	NumericUnitDegreeC      NumericUnit = "°C"
	NumericUnitVolt         NumericUnit = "V"
	NumericUnitHertz        NumericUnit = "Hz"
	NumericUnitRPM          NumericUnit = "rpm"
	NumericUnitNone         NumericUnit = ""
)

var NumericUnits = []NumericUnit{
	NumericUnitAmp,
	NumericUnitMilliVolt,
	NumericUnitPercent,
	NumericUnitKiloWatt,
	NumericUnitWatt,
	NumericUnitKiloWattHour,
	NumericUnitDegreeC,
	NumericUnitVolt,
	NumericUnitHertz,
	NumericUnitRPM,
}

type (
	TextSensor  string
	TextSensorz []TextSensor
)

const (
	SystemStateTextSensor        TextSensor = "system_state"
	PeakShavingModeTextSensor    TextSensor = "peak_shaving_mode"
	WallboxModeTextSensor        TextSensor = "wallbox_mode"
	InverterDeviceNameTextSensor TextSensor = "inverter_device_name"
)

func (t TextSensor) String() string {
	return string(t)
}

func (ts TextSensorz) HasSlug(slug string) bool {
	for _, t := range ts {
		if t.String() == slug {
			return true
		}
	}
	return false
}

var TextSensors TextSensorz = TextSensorz{
	SystemStateTextSensor,
	PeakShavingModeTextSensor,
	WallboxModeTextSensor,
	InverterDeviceNameTextSensor,
}
