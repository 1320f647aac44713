package rules

import (
	"github.com/clambin/smarterzones/internal/host"
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestEngine_FanGuard(t *testing.T) {
	tests := []struct {
		name     string
		climate  string
		fanModes string
		fanMode  string
		want     string
		wantErr  assert.ErrorAssertionFunc
	}{
		{name: "manual fan mode", climate: "cool", fanModes: "Low, High, Low/Auto, High/Auto", fanMode: "High", want: "High/Auto", wantErr: assert.NoError},
		{name: "auto fan mode", climate: "cool", fanModes: "Low, High, Low/Auto, High/Auto", fanMode: "High/Auto", wantErr: assert.NoError},
		{name: "no auto fan modes", climate: "cool", fanModes: "Low, High", fanMode: "High", wantErr: assert.NoError},
		{name: "climate device off", climate: "off", fanModes: "Low, High, Low/Auto, High/Auto", fanMode: "High", wantErr: assert.NoError},
		{name: "fan mode unavailable", climate: "cool", fanModes: "Low, High, Low/Auto, High/Auto", fanMode: "unavailable", wantErr: assert.NoError},
		{name: "fan modes unavailable", climate: "cool", fanMode: "High", wantErr: assert.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHost(map[string]string{"climate.ac": tt.climate})
			if tt.fanModes != "" {
				h.SetAttribute("climate.ac", "fan_modes", tt.fanModes)
			}
			e := Engine{Host: h, ClimateDevice: "climate.ac"}

			cmd, issued, err := e.FanGuard(t.Context(), tt.fanMode)
			tt.wantErr(t, err)
			assert.Equal(t, tt.want != "", issued)
			if !issued {
				assert.Empty(t, h.Commands())
				return
			}
			assert.Equal(t, host.Command{Kind: host.SetFanMode, EntityID: "climate.ac", Params: map[string]string{"fan_mode": tt.want}}, cmd)
			fanMode, _ := h.ReadAttribute(t.Context(), "climate.ac", "fan_mode")
			assert.Equal(t, tt.want, fanMode)
		})
	}
}
