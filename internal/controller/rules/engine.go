package rules

import (
	"context"
	"errors"
	"fmt"
	"github.com/clambin/smarterzones/internal/host"
	"github.com/clambin/smarterzones/internal/registry"
	"log/slog"
	"strconv"
	"strings"
)

// Decision is the outcome of evaluating a zone: open its switch, close it, or leave it as it is.
type Decision int

const (
	NoChange Decision = iota
	Open
	Closed
)

var decisionNames = map[Decision]string{
	NoChange: "no_change",
	Open:     "open",
	Closed:   "closed",
}

func (d Decision) String() string {
	if name, ok := decisionNames[d]; ok {
		return name
	}
	return "unknown"
}

// SensorFallbackOffset is added to a zone's target temperature when its local temperature sensor can't be read.
// The zone then appears too warm: it can still be opened for cooling, but is never opened for heating.
const SensorFallbackOffset = 5.0

// Result is the outcome of evaluating a zone.
type Result struct {
	Zone     string
	Reason   string
	Faults   []error
	Band     Band
	Current  float64
	Wanted   float64
	Mode     Mode
	Decision Decision
	// SensorFault indicates Current is a fallback value, as the zone's temperature sensor couldn't be read.
	SensorFault bool
	// Measured indicates Current, Wanted and Band were determined.
	Measured bool
}

func (r Result) LogValue() slog.Value {
	attrs := make([]slog.Attr, 4, 9)
	attrs[0] = slog.String("zone", r.Zone)
	attrs[1] = slog.String("mode", r.Mode.String())
	attrs[2] = slog.String("decision", r.Decision.String())
	attrs[3] = slog.String("reason", r.Reason)
	if r.Measured {
		attrs = append(attrs,
			slog.Float64("current", r.Current),
			slog.Float64("wanted", r.Wanted),
			slog.Any("band", r.Band),
		)
	}
	if r.SensorFault {
		attrs = append(attrs, slog.Bool("sensorFault", true))
	}
	if len(r.Faults) > 0 {
		attrs = append(attrs, slog.String("faults", errors.Join(r.Faults...).Error()))
	}
	return slog.GroupValue(attrs...)
}

// Engine decides whether a zone's switch should be opened or closed, based on the current state of the climate
// device and the zone's sensors. Engine doesn't keep any state: each evaluation reads a fresh snapshot from the host.
type Engine struct {
	Host           host.Host
	ClimateDevice  string
	ExteriorSensor string
}

// Evaluate determines the Decision for the zone. It never fails: problems reading the zone's sensors are handled as
// documented for each step, and reported in the Result's Faults.
//
// The evaluation stops at the first step that determines the outcome:
//
//  1. if the climate device is off, the zone is closed.
//  2. if the zone's manual override is on, the zone is left alone.
//  3. if the climate device is heating or cooling and the zone's conditions aren't met, the zone is closed.
//  4. otherwise, the zone's temperature is compared with the hysteresis band around its target temperature.
func (e Engine) Evaluate(ctx context.Context, zone registry.Zone) Result {
	result := Result{Zone: zone.Name}

	state, err := e.readState(ctx, e.ClimateDevice)
	if err != nil {
		result.Faults = append(result.Faults, err)
		result.Reason = "climate device unavailable"
		return result
	}
	if strings.EqualFold(strings.TrimSpace(state), "off") {
		result.Mode = Off
		result.Decision = Closed
		result.Reason = "climate device is off"
		return result
	}

	if OverrideActive(ctx, e.Host, zone.ManualOverride) {
		result.Reason = "manual override is on"
		return result
	}

	result.Mode = Classify(state, e.estimator(ctx, zone, &result))

	if result.Mode.Controlled() {
		met, faults := ConditionsMet(ctx, e.Host, zone.Conditions)
		result.Faults = append(result.Faults, faults...)
		if !met {
			result.Decision = Closed
			result.Reason = "conditions not met"
			return result
		}
	}

	if result.Wanted, err = e.readTemperature(ctx, zone.TargetTemp); err != nil {
		result.Faults = append(result.Faults, err)
		result.Reason = "target temperature unavailable"
		return result
	}
	if result.Current, err = e.readTemperature(ctx, zone.LocalTempSensor); err != nil {
		result.Faults = append(result.Faults, err)
		result.Current = result.Wanted + SensorFallbackOffset
		result.SensorFault = true
	}

	offset, err := ResolveOffset(zone, result.Mode)
	if err != nil {
		result.Faults = append(result.Faults, err)
	}
	result.Band = offset.Band(result.Wanted)
	result.Measured = true
	result.Decision, result.Reason = Hysteresis(result.Mode, result.Current, result.Band)
	return result
}

// Hysteresis decides whether a zone should be opened or closed, given its current temperature and its band.
// While the temperature is within the band, the zone's switch isn't changed. When the climate device's mode is
// Other (fan, dry, undetermined), the zone is opened.
func Hysteresis(mode Mode, current float64, band Band) (Decision, string) {
	switch mode {
	case Cooling:
		switch {
		case current >= band.Max:
			return Open, "cooling and " + formatTemperature(current) + " is above " + formatTemperature(band.Max)
		case current <= band.Min:
			return Closed, "cooling and " + formatTemperature(current) + " is below " + formatTemperature(band.Min)
		}
	case Heating:
		switch {
		case current <= band.Min:
			return Open, "heating and " + formatTemperature(current) + " is below " + formatTemperature(band.Min)
		case current >= band.Max:
			return Closed, "heating and " + formatTemperature(current) + " is above " + formatTemperature(band.Max)
		}
	case Other:
		return Open, "climate device is not heating or cooling"
	case Off:
		return Closed, "climate device is off"
	}
	return NoChange, formatTemperature(current) + " is within " + band.String()
}

// estimator returns an Estimator that compares the outside temperature with the climate device's target temperature.
// If the climate device has no target temperature, the zone's target temperature is used instead.
func (e Engine) estimator(ctx context.Context, zone registry.Zone, result *Result) Estimator {
	return func() (float64, float64, bool) {
		if e.ExteriorSensor == "" {
			return 0, 0, false
		}
		outside, err := e.readTemperature(ctx, e.ExteriorSensor)
		if err != nil {
			result.Faults = append(result.Faults, err)
			return 0, 0, false
		}
		target, err := e.readAttributeTemperature(ctx, e.ClimateDevice, "temperature")
		if err != nil {
			if target, err = e.readTemperature(ctx, zone.TargetTemp); err != nil {
				result.Faults = append(result.Faults, err)
				return 0, 0, false
			}
		}
		return outside, target, true
	}
}

func (e Engine) readState(ctx context.Context, entityID string) (string, error) {
	state, err := e.Host.ReadState(ctx, entityID)
	if err == nil && host.Unavailable(state) {
		err = errUnavailable(state)
	}
	if err != nil {
		return "", &SensorReadError{Entity: entityID, err: err}
	}
	return state, nil
}

func (e Engine) readTemperature(ctx context.Context, entityID string) (float64, error) {
	state, err := e.readState(ctx, entityID)
	if err != nil {
		return 0, err
	}
	return parseTemperature(entityID, state)
}

func (e Engine) readAttributeTemperature(ctx context.Context, entityID, attribute string) (float64, error) {
	value, err := e.Host.ReadAttribute(ctx, entityID, attribute)
	if err != nil {
		return 0, &SensorReadError{Entity: entityID + "[" + attribute + "]", err: err}
	}
	return parseTemperature(entityID+"["+attribute+"]", value)
}

func parseTemperature(entityID, value string) (float64, error) {
	temperature, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, &SensorReadError{Entity: entityID, err: fmt.Errorf("invalid temperature %q", value)}
	}
	return temperature, nil
}

func formatTemperature(temperature float64) string {
	return strconv.FormatFloat(temperature, 'f', 1, 64)
}
