package eval

import (
	"bytes"
	"fmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const zones = `
climatedevice: climate.ac
common_zone_switch: switch.hallway
zones:
  - name: lounge
    target_temp: input_number.lounge
    local_tempsensor: sensor.lounge
    zone_switch: switch.lounge
  - name: bedroom
    target_temp: input_number.bedroom
    local_tempsensor: sensor.bedroom
    zone_switch: switch.bedroom
    conditions:
      - entity: binary_sensor.bedroom_door
        targetstate: closed
  - name: hallway
    target_temp: input_number.hallway
    local_tempsensor: sensor.hallway
    zone_switch: switch.hallway
`

const snapshot = `
climate.ac:
  state: cool
  attributes:
    temperature: 22
input_number.lounge: 22
sensor.lounge: 22.5
switch.lounge: "off"
input_number.bedroom: 22
sensor.bedroom: 25
switch.bedroom: "off"
binary_sensor.bedroom_door: open
input_number.hallway: 22
sensor.hallway: 22
switch.hallway: "off"
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestEvaluate(t *testing.T) {
	zonesFile := writeFile(t, "zones.yaml", zones)
	snapshotFile := writeFile(t, "snapshot.yaml", snapshot)

	tests := []struct {
		name  string
		apply bool
		want  string
	}{
		{
			name:  "snapshot only",
			apply: false,
			want: fmt.Sprintf(formatString, "ZONE", "MODE", "BAND", "DECISION", "REASON") +
				fmt.Sprintf(formatString, "lounge", "cooling", "21.7-22.3", "open", "cooling and 22.5 is above 22.3") +
				fmt.Sprintf(formatString, "bedroom", "cooling", "-", "closed", "conditions not met") +
				fmt.Sprintf(formatString, "hallway", "-", "-", "open", "no other zone is open"),
		},
		{
			name:  "apply zone decisions",
			apply: true,
			want: fmt.Sprintf(formatString, "ZONE", "MODE", "BAND", "DECISION", "REASON") +
				fmt.Sprintf(formatString, "lounge", "cooling", "21.7-22.3", "open", "cooling and 22.5 is above 22.3") +
				fmt.Sprintf(formatString, "bedroom", "cooling", "-", "closed", "conditions not met") +
				fmt.Sprintf(formatString, "hallway", "-", "-", "no_change", "another zone is open and common zone is closed"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var output bytes.Buffer
			require.NoError(t, evaluate(t.Context(), &output, zonesFile, snapshotFile, tt.apply))
			assert.Equal(t, tt.want, output.String())
		})
	}
}

func TestEvaluate_Faults(t *testing.T) {
	zonesFile := writeFile(t, "zones.yaml", zones)
	snapshotFile := writeFile(t, "snapshot.yaml", `
climate.ac: heat
input_number.lounge: 22
switch.lounge: "off"
`)

	var output bytes.Buffer
	require.NoError(t, evaluate(t.Context(), &output, zonesFile, snapshotFile, false))
	assert.Contains(t, output.String(), "heating and 27.0 is above 22.3 [sensor sensor.lounge: sensor.lounge: entity not found]")
	assert.Contains(t, output.String(), "target temperature unavailable [condition binary_sensor.bedroom_door: binary_sensor.bedroom_door: entity not found; sensor input_number.bedroom: input_number.bedroom: entity not found]")
	assert.Contains(t, output.String(), "common zone switch unavailable [sensor switch.hallway: switch.hallway: entity not found]")
}

func TestEvaluate_Failures(t *testing.T) {
	zonesFile := writeFile(t, "zones.yaml", zones)
	snapshotFile := writeFile(t, "snapshot.yaml", snapshot)
	var output bytes.Buffer

	assert.Error(t, evaluate(t.Context(), &output, filepath.Join(t.TempDir(), "missing.yaml"), snapshotFile, false))
	assert.Error(t, evaluate(t.Context(), &output, zonesFile, filepath.Join(t.TempDir(), "missing.yaml"), false))
	assert.Error(t, evaluate(t.Context(), &output, writeFile(t, "zones.yaml", "zones: []"), snapshotFile, false))
	assert.Error(t, evaluate(t.Context(), &output, zonesFile, writeFile(t, "snapshot.yaml", "- foo"), false))
	assert.Empty(t, output.String())
}

func TestLoadSnapshot_Stdin(t *testing.T) {
	stdin := closeRecorder{Reader: strings.NewReader("climate.ac: cool\n")}
	h, err := loadSnapshotFrom("-", &stdin)
	require.NoError(t, err)
	state, err := h.ReadState(t.Context(), "climate.ac")
	require.NoError(t, err)
	assert.Equal(t, "cool", state)
	assert.False(t, stdin.closed)
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}
