package rules

import (
	"context"
	"github.com/clambin/smarterzones/internal/host"
	"strings"
)

// FanGuard keeps the climate device's fan in auto mode. If the fan mode changes to a mode that isn't an auto mode,
// and the device supports auto fan modes, FanGuard sets the fan mode to the auto variant of the new mode
// (e.g. "High" becomes "High/Auto"). Nothing is done while the device is off.
//
// FanGuard returns the command and true if a command was issued.
func (e Engine) FanGuard(ctx context.Context, fanMode string) (host.Command, bool, error) {
	if host.Unavailable(fanMode) || strings.Contains(strings.ToLower(fanMode), "auto") {
		return host.Command{}, false, nil
	}
	state, err := e.readState(ctx, e.ClimateDevice)
	if err != nil || strings.EqualFold(strings.TrimSpace(state), "off") {
		return host.Command{}, false, err
	}
	fanModes, err := e.Host.ReadAttribute(ctx, e.ClimateDevice, "fan_modes")
	if err != nil {
		return host.Command{}, false, &SensorReadError{Entity: e.ClimateDevice + "[fan_modes]", err: err}
	}
	if !strings.Contains(strings.ToLower(fanModes), "auto") {
		return host.Command{}, false, nil
	}

	cmd := host.Command{
		Kind:     host.SetFanMode,
		EntityID: e.ClimateDevice,
		Params:   map[string]string{"fan_mode": fanMode + "/Auto"},
	}
	if err = e.Host.Command(ctx, cmd); err != nil {
		return cmd, false, &CommandError{Command: cmd, err: err}
	}
	return cmd, true, nil
}
