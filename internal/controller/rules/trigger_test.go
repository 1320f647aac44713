package rules

import (
	"errors"
	"github.com/clambin/smarterzones/internal/configuration"
	"github.com/clambin/smarterzones/internal/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestEngine_Trigger(t *testing.T) {
	trigger := configuration.TriggerConfiguration{Sensor: "sensor.trigger", Upper: 28, Lower: 16}

	tests := []struct {
		name        string
		climate     string
		temperature string
		wantMode    string
		wantErr     assert.ErrorAssertionFunc
	}{
		{name: "too warm", climate: "off", temperature: "28", wantMode: "cool", wantErr: assert.NoError},
		{name: "too cold", climate: "off", temperature: "16", wantMode: "heat", wantErr: assert.NoError},
		{name: "comfortable", climate: "off", temperature: "22", wantErr: assert.NoError},
		{name: "climate device on", climate: "heat", temperature: "30", wantErr: assert.NoError},
		{name: "climate device unavailable", climate: "unavailable", temperature: "30", wantErr: assert.Error},
		{name: "invalid temperature", climate: "off", temperature: "hot", wantErr: assert.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHost(map[string]string{"climate.ac": tt.climate, "sensor.trigger": tt.temperature})
			e := Engine{Host: h, ClimateDevice: "climate.ac"}

			cmd, issued, err := e.Trigger(t.Context(), trigger)
			tt.wantErr(t, err)
			assert.Equal(t, tt.wantMode != "", issued)
			if !issued {
				assert.Empty(t, h.Commands())
				return
			}
			assert.Equal(t, host.Command{Kind: host.SetHVACMode, EntityID: "climate.ac", Params: map[string]string{"hvac_mode": tt.wantMode}}, cmd)
			state, _ := h.ReadState(t.Context(), "climate.ac")
			assert.Equal(t, tt.wantMode, state)
		})
	}
}

func TestEngine_Trigger_Rejected(t *testing.T) {
	h := newHost(map[string]string{"climate.ac": "off", "sensor.trigger": "30"})
	h.RejectCommands(errors.New("host offline"))
	e := Engine{Host: h, ClimateDevice: "climate.ac"}

	_, issued, err := e.Trigger(t.Context(), configuration.TriggerConfiguration{Sensor: "sensor.trigger", Upper: 28, Lower: 16})
	assert.False(t, issued)
	require.Error(t, err)
	assert.ErrorIs(t, err, &CommandError{})
}
