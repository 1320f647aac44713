package rules

import (
	"strings"
)

// Mode is the climate device's mode, as far as zone control is concerned.
type Mode int

const (
	Off Mode = iota
	Cooling
	Heating
	Other
)

var modeNames = map[Mode]string{
	Off:     "off",
	Cooling: "cooling",
	Heating: "heating",
	Other:   "other",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// Controlled returns true if zones are opened and closed based on their temperature.
func (m Mode) Controlled() bool {
	return m == Cooling || m == Heating
}

// An Estimator returns the outside temperature and the climate device's target temperature. It is only called
// when the climate device's mode doesn't tell whether it's heating or cooling.
type Estimator func() (outside float64, target float64, ok bool)

// Classify determines the Mode from the climate device's state.
//
// If the state doesn't say whether the device is heating or cooling (e.g. "auto" or "heat_cool"), Classify guesses:
// if it's warmer outside than the device's target temperature, the device is assumed to be cooling. If it's colder,
// it's assumed to be heating. This is a best-effort guess: a device in auto mode may well be idling, or be heating on
// a warm day. If the estimate can't be made, or both temperatures are equal, Classify returns Other.
func Classify(state string, estimate Estimator) Mode {
	state = strings.ToLower(strings.TrimSpace(state))
	switch {
	case state == "off":
		return Off
	case state == "auto" || state == "heat_cool":
	case strings.Contains(state, "cool"):
		return Cooling
	case strings.Contains(state, "heat"):
		return Heating
	case state == "fan_only" || state == "dry":
		return Other
	}
	return estimateMode(estimate)
}

func estimateMode(estimate Estimator) Mode {
	if estimate == nil {
		return Other
	}
	outside, target, ok := estimate()
	switch {
	case !ok:
		return Other
	case outside > target:
		return Cooling
	case outside < target:
		return Heating
	default:
		return Other
	}
}
