package rules

import (
	"github.com/clambin/smarterzones/internal/configuration"
	"github.com/clambin/smarterzones/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"testing"
)

func TestResolveOffset(t *testing.T) {
	var malformed configuration.Offset
	require.NoError(t, yaml.Unmarshal([]byte(`{ upperbound: foo, lowerbound: 1 }`), &malformed))
	require.Error(t, malformed.Err())

	zone := registry.Zone{
		Name:          "lounge",
		CoolingOffset: configuration.NewOffset(1, 0.5),
		HeatingOffset: &malformed,
	}

	tests := []struct {
		name    string
		zone    registry.Zone
		mode    Mode
		want    Offset
		wantErr assert.ErrorAssertionFunc
	}{
		{name: "cooling", zone: zone, mode: Cooling, want: Offset{Upper: 1, Lower: 0.5}, wantErr: assert.NoError},
		{name: "other uses cooling offset", zone: zone, mode: Other, want: Offset{Upper: 1, Lower: 0.5}, wantErr: assert.NoError},
		{name: "malformed heating offset", zone: zone, mode: Heating, want: DefaultOffset, wantErr: assert.Error},
		{name: "no offsets", zone: registry.Zone{Name: "bedroom"}, mode: Heating, want: DefaultOffset, wantErr: assert.NoError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			offset, err := ResolveOffset(tt.zone, tt.mode)
			assert.Equal(t, tt.want, offset)
			tt.wantErr(t, err)
			if err != nil {
				assert.ErrorIs(t, err, &OffsetConfigError{})
			}
		})
	}
}

func TestBand(t *testing.T) {
	band := Offset{Upper: 0.5, Lower: 1}.Band(20)
	assert.Equal(t, Band{Min: 19, Max: 20.5}, band)
	assert.Equal(t, "19.0-20.5", band.String())
	assert.True(t, band.Contains(19))
	assert.True(t, band.Contains(20.5))
	assert.False(t, band.Contains(18.9))
	assert.False(t, band.Contains(20.6))
}
