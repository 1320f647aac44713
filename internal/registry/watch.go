package registry

import (
	"github.com/clambin/go-common/set"
	"slices"
)

// A Key identifies a watched entity. If Attribute is set, only changes of that attribute are watched.
type Key struct {
	Entity    string
	Attribute string
}

// Kind describes why an entity is watched.
type Kind string

const (
	KindClimate   Kind = "climate"
	KindFanMode   Kind = "fan_mode"
	KindExterior  Kind = "exterior"
	KindTarget    Kind = "target"
	KindSensor    Kind = "sensor"
	KindOverride  Kind = "override"
	KindCondition Kind = "condition"
	KindSwitch    Kind = "switch"
	KindTrigger   Kind = "trigger"
)

// Watch describes what needs to be done when a watched entity changes.
type Watch struct {
	// Kinds lists why the entity is watched (an entity may serve more than one purpose).
	Kinds []Kind
	// Zones lists the zones to re-evaluate, in registry order.
	Zones []string
	// Reconcile indicates the common zone needs to be reconciled.
	Reconcile bool
	// Trigger indicates the entity is the trigger sensor.
	Trigger bool
	// FanMode indicates the entity is the climate device's fan mode.
	FanMode bool
}

// Table maps each watched entity to the work its changes trigger.
type Table map[Key]Watch

// Watches builds the subscription table for the registry.
func (r *Registry) Watches() Table {
	b := tableBuilder{registry: r, zones: make(map[Key]set.Set[string]), table: make(Table)}

	all := make([]string, 0, len(r.zones))
	for zone := range r.ManagedZones() {
		all = append(all, zone.Name)
	}

	b.add(Key{Entity: r.ClimateDevice}, KindClimate, all...)
	if r.ForceAutoFan {
		b.add(Key{Entity: r.ClimateDevice, Attribute: "fan_mode"}, KindFanMode)
	}
	if r.ExteriorSensor != "" {
		b.add(Key{Entity: r.ExteriorSensor}, KindExterior, all...)
	}

	for _, zone := range r.zones {
		var name []string
		if !r.IsCommonZone(zone) {
			name = []string{zone.Name}
		}
		b.add(Key{Entity: zone.TargetTemp}, KindTarget, name...)
		b.add(Key{Entity: zone.LocalTempSensor}, KindSensor, name...)
		if zone.ManualOverride != "" {
			b.add(Key{Entity: zone.ManualOverride}, KindOverride, name...)
		}
		for _, condition := range zone.Conditions {
			b.add(Key{Entity: condition.Entity}, KindCondition, name...)
		}
		b.add(Key{Entity: zone.Switch}, KindSwitch)
	}
	if common, ok := r.CommonZone(); ok {
		b.add(Key{Entity: common.Switch}, KindSwitch)
	}

	if trigger, ok := r.Trigger(); ok {
		b.add(Key{Entity: trigger.Sensor}, KindTrigger)
	}

	return b.build()
}

type tableBuilder struct {
	registry *Registry
	zones    map[Key]set.Set[string]
	table    Table
}

func (b *tableBuilder) add(key Key, kind Kind, zones ...string) {
	w := b.table[key]
	if !slices.Contains(w.Kinds, kind) {
		w.Kinds = append(w.Kinds, kind)
	}
	switch kind {
	case KindTrigger:
		w.Trigger = true
	case KindFanMode:
		w.FanMode = true
	default:
		w.Reconcile = w.Reconcile || b.registry.common != nil
	}
	b.table[key] = w

	if _, ok := b.zones[key]; !ok {
		b.zones[key] = set.New[string]()
	}
	b.zones[key].Add(zones...)
}

func (b *tableBuilder) build() Table {
	for key, w := range b.table {
		// keep zones in registry order, so evaluations happen in a predictable order
		for _, zone := range b.registry.zones {
			if b.zones[key].Contains(zone.Name) {
				w.Zones = append(w.Zones, zone.Name)
			}
		}
		b.table[key] = w
	}
	return b.table
}
