package rules

import (
	"github.com/clambin/smarterzones/internal/configuration"
	"github.com/clambin/smarterzones/internal/registry"
	"log/slog"
	"strconv"
)

// DefaultOffset is used when a zone doesn't configure (valid) offsets for the current mode.
var DefaultOffset = Offset{Upper: 0.3, Lower: 0.3}

// Offset determines the width of a zone's hysteresis band around its target temperature.
type Offset struct {
	Upper float64
	Lower float64
}

// Band returns the hysteresis band around the wanted temperature.
func (o Offset) Band(wanted float64) Band {
	return Band{Min: wanted - o.Lower, Max: wanted + o.Upper}
}

// ResolveOffset returns the zone's offset for the mode: the heating offset when heating, otherwise the cooling offset.
// If the zone doesn't configure an offset for that mode, the DefaultOffset is returned. If the configured offset is
// malformed, the DefaultOffset is returned, along with an OffsetConfigError.
func ResolveOffset(zone registry.Zone, mode Mode) (Offset, error) {
	var cfg *configuration.Offset
	switch mode {
	case Heating:
		cfg = zone.HeatingOffset
	default:
		cfg = zone.CoolingOffset
	}
	if cfg == nil {
		return DefaultOffset, nil
	}
	if err := cfg.Err(); err != nil {
		return DefaultOffset, &OffsetConfigError{Zone: zone.Name, Mode: mode, err: err}
	}
	return Offset{Upper: cfg.Upper, Lower: cfg.Lower}, nil
}

// Band is the temperature range within which a zone's switch is left unchanged.
type Band struct {
	Min float64
	Max float64
}

func (b Band) String() string {
	return strconv.FormatFloat(b.Min, 'f', 1, 64) + "-" + strconv.FormatFloat(b.Max, 'f', 1, 64)
}

func (b Band) LogValue() slog.Value {
	return slog.GroupValue(slog.Float64("min", b.Min), slog.Float64("max", b.Max))
}

// Contains returns true if temperature lies within the band (inclusive).
func (b Band) Contains(temperature float64) bool {
	return temperature >= b.Min && temperature <= b.Max
}
