// Package registry holds the validated zone configuration and determines which entities need to be watched.
package registry

import (
	"errors"
	"github.com/clambin/go-common/set"
	"github.com/clambin/smarterzones/internal/configuration"
	"iter"
	"log/slog"
)

// Zone is a validated zone.
type Zone struct {
	CoolingOffset   *configuration.Offset
	HeatingOffset   *configuration.Offset
	Name            string
	TargetTemp      string
	LocalTempSensor string
	Switch          string
	ManualOverride  string
	Conditions      []configuration.Condition
}

// HasTemperature returns true if the zone's temperature can be compared against its target.
func (z Zone) HasTemperature() bool {
	return z.TargetTemp != "" && z.LocalTempSensor != ""
}

func (z Zone) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", z.Name),
		slog.String("switch", z.Switch),
	)
}

// Registry holds all zones, in configuration order, and the settings shared by all zones.
// A Registry is built once at startup and not modified afterwards.
type Registry struct {
	trigger              *configuration.TriggerConfiguration
	common               *Zone
	ClimateDevice        string
	ExteriorSensor       string
	zones                []Zone
	ForceAutoFan         bool
	CommonZoneRefinement bool
}

// New builds a Registry from the configuration. Invalid zones are logged and skipped. An invalid trigger sensor
// configuration disables the trigger sensor.
func New(cfg configuration.Configuration, logger *slog.Logger) *Registry {
	r := Registry{
		ClimateDevice:        cfg.ClimateDevice,
		ExteriorSensor:       cfg.ExteriorTempSensor,
		ForceAutoFan:         cfg.ForceAutoFan,
		CommonZoneRefinement: cfg.CommonZoneRefinement,
	}

	names := set.New[string]()
	for _, zoneCfg := range cfg.Zones {
		if err := zoneCfg.Validate(); err != nil {
			logger.Warn("skipping invalid zone", "err", err)
			continue
		}
		if names.Contains(zoneCfg.ZoneName()) {
			logger.Warn("skipping invalid zone", "err", &configuration.ConfigError{Zone: zoneCfg.ZoneName(), Field: "name", Reason: "duplicate"})
			continue
		}
		names.Add(zoneCfg.ZoneName())
		r.zones = append(r.zones, Zone{
			Name:            zoneCfg.ZoneName(),
			TargetTemp:      zoneCfg.TargetTemp,
			LocalTempSensor: zoneCfg.LocalTempSensor,
			Switch:          zoneCfg.ZoneSwitch,
			ManualOverride:  zoneCfg.ManualOverride,
			Conditions:      zoneCfg.Conditions,
			CoolingOffset:   zoneCfg.CoolingOffset,
			HeatingOffset:   zoneCfg.HeatingOffset,
		})
	}

	if cfg.CommonZoneSwitch != "" {
		r.common = r.findCommonZone(cfg.CommonZoneSwitch)
		logger.Info("common zone found", "zone", r.common.Name, "switch", r.common.Switch)
	}

	trigger, err := cfg.Trigger()
	switch {
	case err == nil:
		r.trigger = &trigger
		logger.Info("trigger sensor found", "sensor", trigger.Sensor, "upper", trigger.Upper, "lower", trigger.Lower)
	case errors.Is(err, configuration.ErrTriggerNotConfigured):
	default:
		logger.Warn("trigger sensor disabled", "err", err)
	}

	return &r
}

func (r *Registry) findCommonZone(zoneSwitch string) *Zone {
	for i := range r.zones {
		if r.zones[i].Switch == zoneSwitch {
			return &r.zones[i]
		}
	}
	// the common zone's switch doesn't belong to a configured zone. we can still manage it, but without temperature data.
	return &Zone{Name: "common zone", Switch: zoneSwitch}
}

// Zones returns all zones, in configuration order.
func (r *Registry) Zones() []Zone {
	return r.zones
}

// ManagedZones iterates over the zones whose switch is decided by their own temperature, i.e. all zones except the common zone.
func (r *Registry) ManagedZones() iter.Seq[Zone] {
	return func(yield func(Zone) bool) {
		for _, zone := range r.zones {
			if r.IsCommonZone(zone) {
				continue
			}
			if !yield(zone) {
				return
			}
		}
	}
}

// Zone returns the zone with the given name.
func (r *Registry) Zone(name string) (Zone, bool) {
	for _, zone := range r.zones {
		if zone.Name == name {
			return zone, true
		}
	}
	return Zone{}, false
}

// CommonZone returns the common zone, if one is configured.
func (r *Registry) CommonZone() (Zone, bool) {
	if r.common == nil {
		return Zone{}, false
	}
	return *r.common, true
}

// IsCommonZone returns true if zone is the common zone.
func (r *Registry) IsCommonZone(zone Zone) bool {
	return r.common != nil && r.common.Switch == zone.Switch
}

// Trigger returns the trigger sensor configuration, if the trigger sensor is enabled.
func (r *Registry) Trigger() (configuration.TriggerConfiguration, bool) {
	if r.trigger == nil {
		return configuration.TriggerConfiguration{}, false
	}
	return *r.trigger, true
}
