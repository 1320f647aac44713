package configuration

import (
	"errors"
	"fmt"
	"gopkg.in/yaml.v3"
	"io"
)

// Configuration describes the HVAC installation: the shared climate device, the zones it serves and the optional
// common zone and trigger sensor.
type Configuration struct {
	ClimateDevice        string              `yaml:"climatedevice"`
	ExteriorTempSensor   string              `yaml:"exteriortempsensor,omitempty"`
	CommonZoneSwitch     string              `yaml:"common_zone_switch,omitempty"`
	TriggerTempSensor    string              `yaml:"trigger_temp_sensor,omitempty"`
	TriggerTempUpper     *float64            `yaml:"trigger_temp_upper,omitempty"`
	TriggerTempLower     *float64            `yaml:"trigger_temp_lower,omitempty"`
	Zones                []ZoneConfiguration `yaml:"zones"`
	ForceAutoFan         bool                `yaml:"force_auto_fan,omitempty"`
	CommonZoneRefinement bool                `yaml:"common_zone_refinement,omitempty"`
}

// Load reads a Configuration from r. Only a missing climate device is considered fatal: invalid zones are
// reported by the registry when it is built and skipped.
func Load(r io.Reader) (Configuration, error) {
	var c Configuration
	if err := yaml.NewDecoder(r).Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Configuration{}, fmt.Errorf("zones: %w", err)
	}
	if c.ClimateDevice == "" {
		return Configuration{}, errors.New("zones: climatedevice is required")
	}
	return c, nil
}

// TriggerConfiguration holds the validated settings of the trigger sensor.
type TriggerConfiguration struct {
	Sensor string
	Upper  float64
	Lower  float64
}

var ErrTriggerNotConfigured = errors.New("no trigger sensor configured")

// Trigger validates the trigger sensor settings. It returns ErrTriggerNotConfigured if no trigger sensor is set.
func (c Configuration) Trigger() (TriggerConfiguration, error) {
	if c.TriggerTempSensor == "" {
		return TriggerConfiguration{}, ErrTriggerNotConfigured
	}
	if c.TriggerTempUpper == nil || c.TriggerTempLower == nil {
		return TriggerConfiguration{}, errors.New("trigger_temp_upper and trigger_temp_lower are required")
	}
	if *c.TriggerTempUpper <= *c.TriggerTempLower {
		return TriggerConfiguration{}, fmt.Errorf("trigger_temp_upper (%.1f) must be higher than trigger_temp_lower (%.1f)", *c.TriggerTempUpper, *c.TriggerTempLower)
	}
	return TriggerConfiguration{
		Sensor: c.TriggerTempSensor,
		Upper:  *c.TriggerTempUpper,
		Lower:  *c.TriggerTempLower,
	}, nil
}

// ZoneConfiguration describes a single zone.
type ZoneConfiguration struct {
	Name            string      `yaml:"name"`
	FriendlyName    string      `yaml:"friendly_name,omitempty"`
	TargetTemp      string      `yaml:"target_temp"`
	LocalTempSensor string      `yaml:"local_tempsensor"`
	ZoneSwitch      string      `yaml:"zone_switch"`
	ManualOverride  string      `yaml:"manual_override,omitempty"`
	Conditions      []Condition `yaml:"conditions,omitempty"`
	CoolingOffset   *Offset     `yaml:"cooling_offset,omitempty"`
	HeatingOffset   *Offset     `yaml:"heating_offset,omitempty"`
}

// ZoneName returns the name of the zone. friendly_name is accepted for older configuration files.
func (z ZoneConfiguration) ZoneName() string {
	if z.Name != "" {
		return z.Name
	}
	return z.FriendlyName
}

// Validate checks that all required fields are set.
func (z ZoneConfiguration) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"name", z.ZoneName()},
		{"target_temp", z.TargetTemp},
		{"local_tempsensor", z.LocalTempSensor},
		{"zone_switch", z.ZoneSwitch},
	}
	for _, r := range required {
		if r.value == "" {
			return &ConfigError{Zone: z.ZoneName(), Field: r.field, Reason: "missing"}
		}
	}
	for i, condition := range z.Conditions {
		if condition.Entity == "" {
			return &ConfigError{Zone: z.ZoneName(), Field: fmt.Sprintf("conditions[%d].entity", i), Reason: "missing"}
		}
	}
	return nil
}

// Condition requires an entity to be in a given state before the zone can be controlled automatically.
type Condition struct {
	Entity      string `yaml:"entity"`
	TargetState string `yaml:"targetstate,omitempty"`
	State       string `yaml:"state,omitempty"`
}

// Required returns the state the entity needs to be in. "state" is accepted as an alias of "targetstate".
func (c Condition) Required() string {
	if c.TargetState != "" {
		return c.TargetState
	}
	return c.State
}

var _ error = &ConfigError{}

// ConfigError reports a zone that can't be used because of invalid configuration.
type ConfigError struct {
	Zone   string
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	zone := e.Zone
	if zone == "" {
		zone = "<unnamed>"
	}
	return fmt.Sprintf("zone %s: %s: %s", zone, e.Field, e.Reason)
}

func (e *ConfigError) Is(err error) bool {
	var configError *ConfigError
	return errors.As(err, &configError)
}
