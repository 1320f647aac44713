package rules

import (
	"context"
	"github.com/clambin/smarterzones/internal/configuration"
	"github.com/clambin/smarterzones/internal/host"
	"strings"
)

// Trigger turns on the climate device when the trigger sensor crosses one of its thresholds while the device is off:
// at or above the upper threshold, the device is set to cooling. At or below the lower threshold, it's set to heating.
//
// Trigger returns the command and true if a command was issued.
func (e Engine) Trigger(ctx context.Context, trigger configuration.TriggerConfiguration) (host.Command, bool, error) {
	state, err := e.readState(ctx, e.ClimateDevice)
	if err != nil || !strings.EqualFold(strings.TrimSpace(state), "off") {
		return host.Command{}, false, err
	}
	temperature, err := e.readTemperature(ctx, trigger.Sensor)
	if err != nil {
		return host.Command{}, false, err
	}

	var mode string
	switch {
	case temperature >= trigger.Upper:
		mode = "cool"
	case temperature <= trigger.Lower:
		mode = "heat"
	default:
		return host.Command{}, false, nil
	}

	cmd := host.Command{
		Kind:     host.SetHVACMode,
		EntityID: e.ClimateDevice,
		Params:   map[string]string{"hvac_mode": mode},
	}
	if err = e.Host.Command(ctx, cmd); err != nil {
		return cmd, false, &CommandError{Command: cmd, err: err}
	}
	return cmd, true, nil
}
