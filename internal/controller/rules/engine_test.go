package rules

import (
	"errors"
	"github.com/clambin/smarterzones/internal/configuration"
	"github.com/clambin/smarterzones/internal/host"
	"github.com/clambin/smarterzones/internal/host/memory"
	"github.com/clambin/smarterzones/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

var lounge = registry.Zone{
	Name:            "lounge",
	TargetTemp:      "input_number.lounge",
	LocalTempSensor: "sensor.lounge",
	Switch:          "switch.lounge",
	ManualOverride:  "input_boolean.lounge_override",
	Conditions:      []configuration.Condition{{Entity: "binary_sensor.lounge_door", TargetState: "closed"}},
}

func newHost(states map[string]string) *memory.Store {
	h := memory.New()
	for entityID, state := range states {
		h.SetState(entityID, state)
	}
	return h
}

func loungeStates(climate string, current string) map[string]string {
	states := map[string]string{
		"climate.ac":                    climate,
		"input_number.lounge":           "22",
		"input_boolean.lounge_override": "off",
		"binary_sensor.lounge_door":     "closed",
		"switch.lounge":                 "off",
	}
	if current != "" {
		states["sensor.lounge"] = current
	}
	return states
}

func TestEngine_Evaluate(t *testing.T) {
	tests := []struct {
		name         string
		states       map[string]string
		attributes   map[string]string
		missing      []string
		wantDecision Decision
		wantMode     Mode
		wantReason   string
		wantFaults   []error
	}{
		{
			name:         "climate device off",
			states:       loungeStates("off", "30"),
			wantDecision: Closed,
			wantMode:     Off,
			wantReason:   "climate device is off",
		},
		{
			name:         "climate device unavailable",
			states:       loungeStates("unavailable", "30"),
			wantDecision: NoChange,
			wantReason:   "climate device unavailable",
			wantFaults:   []error{&SensorReadError{}},
		},
		{
			name:         "manual override",
			states:       merge(loungeStates("cool", "30"), map[string]string{"input_boolean.lounge_override": "On"}),
			wantDecision: NoChange,
			wantReason:   "manual override is on",
		},
		{
			name:         "cooling: within band",
			states:       loungeStates("cool", "22.1"),
			wantDecision: NoChange,
			wantMode:     Cooling,
			wantReason:   "22.1 is within 21.7-22.3",
		},
		{
			name:         "cooling: too warm",
			states:       loungeStates("cool", "22.4"),
			wantDecision: Open,
			wantMode:     Cooling,
			wantReason:   "cooling and 22.4 is above 22.3",
		},
		{
			name:         "cooling: cool enough",
			states:       loungeStates("cool", "21.6"),
			wantDecision: Closed,
			wantMode:     Cooling,
			wantReason:   "cooling and 21.6 is below 21.7",
		},
		{
			name:         "heating: too cold",
			states:       loungeStates("heat", "21.6"),
			wantDecision: Open,
			wantMode:     Heating,
			wantReason:   "heating and 21.6 is below 21.7",
		},
		{
			name:         "heating: warm enough",
			states:       loungeStates("heat", "22.4"),
			wantDecision: Closed,
			wantMode:     Heating,
			wantReason:   "heating and 22.4 is above 22.3",
		},
		{
			name:         "heating: conditions not met",
			states:       merge(loungeStates("heat", "15"), map[string]string{"binary_sensor.lounge_door": "open"}),
			wantDecision: Closed,
			wantMode:     Heating,
			wantReason:   "conditions not met",
		},
		{
			name:         "condition sensor missing",
			states:       loungeStates("heat", "15"),
			missing:      []string{"binary_sensor.lounge_door"},
			wantDecision: Open,
			wantMode:     Heating,
			wantReason:   "heating and 15.0 is below 21.7",
			wantFaults:   []error{&ConditionReadError{}},
		},
		{
			name:         "fan only: conditions are ignored",
			states:       merge(loungeStates("fan_only", "15"), map[string]string{"binary_sensor.lounge_door": "open"}),
			wantDecision: Open,
			wantMode:     Other,
			wantReason:   "climate device is not heating or cooling",
		},
		{
			name:         "heat_cool: warm outside",
			states:       merge(loungeStates("heat_cool", "22.4"), map[string]string{"sensor.outside": "30"}),
			attributes:   map[string]string{"temperature": "22"},
			wantDecision: Open,
			wantMode:     Cooling,
			wantReason:   "cooling and 22.4 is above 22.3",
		},
		{
			name:         "heat_cool: cold outside",
			states:       merge(loungeStates("heat_cool", "22.4"), map[string]string{"sensor.outside": "10"}),
			attributes:   map[string]string{"temperature": "22"},
			wantDecision: Closed,
			wantMode:     Heating,
			wantReason:   "heating and 22.4 is above 22.3",
		},
		{
			name:         "heat_cool: no target temperature on the climate device",
			states:       merge(loungeStates("heat_cool", "22.4"), map[string]string{"sensor.outside": "30"}),
			wantDecision: Open,
			wantMode:     Cooling,
			wantReason:   "cooling and 22.4 is above 22.3",
		},
		{
			name:         "auto: outside temperature unavailable",
			states:       loungeStates("auto", "22.1"),
			wantDecision: Open,
			wantMode:     Other,
			wantReason:   "climate device is not heating or cooling",
			wantFaults:   []error{&SensorReadError{}},
		},
		{
			name:         "cooling: sensor unavailable",
			states:       loungeStates("cool", ""),
			wantDecision: Open,
			wantMode:     Cooling,
			wantReason:   "cooling and 27.0 is above 22.3",
			wantFaults:   []error{&SensorReadError{}},
		},
		{
			name:         "heating: sensor unavailable",
			states:       loungeStates("heat", "n/a"),
			wantDecision: Closed,
			wantMode:     Heating,
			wantReason:   "heating and 27.0 is above 22.3",
			wantFaults:   []error{&SensorReadError{}},
		},
		{
			name:         "target temperature unavailable",
			states:       merge(loungeStates("cool", "30"), map[string]string{"input_number.lounge": "unknown"}),
			wantDecision: NoChange,
			wantMode:     Cooling,
			wantReason:   "target temperature unavailable",
			wantFaults:   []error{&SensorReadError{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHost(tt.states)
			for _, entityID := range tt.missing {
				h.Remove(entityID)
			}
			for attribute, value := range tt.attributes {
				h.SetAttribute("climate.ac", attribute, value)
			}
			e := Engine{Host: h, ClimateDevice: "climate.ac", ExteriorSensor: "sensor.outside"}

			result := e.Evaluate(t.Context(), lounge)
			assert.Equal(t, "lounge", result.Zone)
			assert.Equal(t, tt.wantDecision, result.Decision)
			assert.Equal(t, tt.wantMode, result.Mode)
			assert.Equal(t, tt.wantReason, result.Reason)
			require.Len(t, result.Faults, len(tt.wantFaults))
			for i, fault := range tt.wantFaults {
				assert.ErrorIs(t, result.Faults[i], fault)
			}
			assert.Empty(t, h.Commands())
		})
	}
}

func TestEngine_Evaluate_SensorFallback(t *testing.T) {
	states := loungeStates("cool", "")
	states["input_number.lounge"] = "20"
	e := Engine{Host: newHost(states), ClimateDevice: "climate.ac"}

	result := e.Evaluate(t.Context(), lounge)
	assert.True(t, result.SensorFault)
	assert.True(t, result.Measured)
	assert.Equal(t, 25.0, result.Current)
	assert.Equal(t, 20.0, result.Wanted)
	require.Len(t, result.Faults, 1)
	assert.ErrorIs(t, result.Faults[0], host.ErrNotFound)
}

func TestEngine_Evaluate_Offsets(t *testing.T) {
	zone := lounge
	zone.CoolingOffset = configuration.NewOffset(1, 0.5)
	zone.HeatingOffset = configuration.NewOffset(0.5, 1)

	tests := []struct {
		climate      string
		current      string
		wantBand     Band
		wantDecision Decision
	}{
		{climate: "cool", current: "22.4", wantBand: Band{Min: 21.5, Max: 23}, wantDecision: NoChange},
		{climate: "cool", current: "23", wantBand: Band{Min: 21.5, Max: 23}, wantDecision: Open},
		{climate: "heat", current: "21.6", wantBand: Band{Min: 21, Max: 22.5}, wantDecision: NoChange},
		{climate: "heat", current: "20.5", wantBand: Band{Min: 21, Max: 22.5}, wantDecision: Open},
		{climate: "dry", current: "30", wantBand: Band{Min: 21.5, Max: 23}, wantDecision: Open},
	}

	for _, tt := range tests {
		t.Run(tt.climate+"/"+tt.current, func(t *testing.T) {
			t.Parallel()
			e := Engine{Host: newHost(loungeStates(tt.climate, tt.current)), ClimateDevice: "climate.ac"}
			result := e.Evaluate(t.Context(), zone)
			assert.Equal(t, tt.wantBand, result.Band)
			assert.Equal(t, tt.wantDecision, result.Decision)
			assert.Empty(t, result.Faults)
		})
	}
}

func TestEngine_Evaluate_Idempotent(t *testing.T) {
	h := newHost(loungeStates("cool", "25"))
	e := Engine{Host: h, ClimateDevice: "climate.ac"}

	for range 2 {
		result := e.Evaluate(t.Context(), lounge)
		require.Equal(t, Open, result.Decision)
		_, _, err := SetSwitch(t.Context(), h, lounge.Switch, result.Decision)
		require.NoError(t, err)
	}

	assert.Equal(t, []host.Command{{Kind: host.TurnOn, EntityID: "switch.lounge"}}, h.Commands())
}

func TestEngine_Evaluate_OverrideIssuesNoCommands(t *testing.T) {
	for _, climate := range []string{"cool", "heat", "fan_only", "heat_cool"} {
		t.Run(climate, func(t *testing.T) {
			h := newHost(merge(loungeStates(climate, "30"), map[string]string{"input_boolean.lounge_override": "on"}))
			e := Engine{Host: h, ClimateDevice: "climate.ac"}

			result := e.Evaluate(t.Context(), lounge)
			assert.Equal(t, NoChange, result.Decision)
			_, issued, err := SetSwitch(t.Context(), h, lounge.Switch, result.Decision)
			require.NoError(t, err)
			assert.False(t, issued)
			assert.Empty(t, h.Commands())
		})
	}
}

func TestHysteresis(t *testing.T) {
	band := DefaultOffset.Band(22)
	tests := []struct {
		name    string
		mode    Mode
		current float64
		want    Decision
	}{
		{name: "cooling: within band", mode: Cooling, current: 22.1, want: NoChange},
		{name: "cooling: above band", mode: Cooling, current: 22.4, want: Open},
		{name: "cooling: below band", mode: Cooling, current: 21.6, want: Closed},
		{name: "heating: within band", mode: Heating, current: 21.9, want: NoChange},
		{name: "heating: above band", mode: Heating, current: 22.4, want: Closed},
		{name: "heating: below band", mode: Heating, current: 21.6, want: Open},
		{name: "other", mode: Other, current: 22, want: Open},
		{name: "off", mode: Off, current: 22, want: Closed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			decision, _ := Hysteresis(tt.mode, tt.current, band)
			assert.Equal(t, tt.want, decision)
		})
	}
}

func TestResult_LogValue(t *testing.T) {
	r := Result{
		Zone:     "lounge",
		Mode:     Cooling,
		Decision: Open,
		Reason:   "too warm",
		Measured: true,
		Current:  23,
		Wanted:   22,
		Band:     Band{Min: 21.7, Max: 22.3},
		Faults:   []error{errors.New("fault")},
	}
	assert.Equal(t, "[zone=lounge mode=cooling decision=open reason=too warm current=23 wanted=22 band=21.7-22.3 faults=fault]", r.LogValue().String())
}

func merge(states map[string]string, extra map[string]string) map[string]string {
	merged := make(map[string]string, len(states)+len(extra))
	for k, v := range states {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}
