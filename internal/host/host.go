// Package host describes the home-automation platform the controller runs against: a state store keyed by entity id,
// a subscription mechanism for state and attribute changes, and a way to issue commands to entities.
package host

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"strings"
)

// ErrNotFound is returned when an entity (or one of its attributes) is not known to the host.
var ErrNotFound = errors.New("entity not found")

// Host is the capability interface the controller consumes from the home-automation platform.
type Host interface {
	ReadState(ctx context.Context, entityID string) (string, error)
	ReadAttribute(ctx context.Context, entityID, attribute string) (string, error)
	Subscribe(entityID, attribute string, callback Callback) error
	Command(ctx context.Context, command Command) error
}

// Callback is invoked by the Host when a subscribed entity's state (or attribute) changes.
type Callback func(Event)

// Event describes a change of an entity's state or, if Attribute is set, of one of its attributes.
type Event struct {
	EntityID  string
	Attribute string
	Old       string
	New       string
}

func (e Event) LogValue() slog.Value {
	attrs := make([]slog.Attr, 1, 4)
	attrs[0] = slog.String("entity", e.EntityID)
	if e.Attribute != "" {
		attrs = append(attrs, slog.String("attribute", e.Attribute))
	}
	attrs = append(attrs, slog.String("old", e.Old), slog.String("new", e.New))
	return slog.GroupValue(attrs...)
}

type CommandKind string

const (
	TurnOn         CommandKind = "turn_on"
	TurnOff        CommandKind = "turn_off"
	SetHVACMode    CommandKind = "set_hvac_mode"
	SetFanMode     CommandKind = "set_fan_mode"
	SetTemperature CommandKind = "set_temperature"
)

// Command is an instruction for the host to change an entity's state.
type Command struct {
	Params   map[string]string `json:"params,omitempty"`
	Kind     CommandKind       `json:"kind"`
	EntityID string            `json:"entity_id"`
}

func (c Command) String() string {
	var b strings.Builder
	b.WriteString(string(c.Kind))
	b.WriteString("(")
	b.WriteString(c.EntityID)
	for _, key := range slices.Sorted(maps.Keys(c.Params)) {
		b.WriteString(", ")
		b.WriteString(key)
		b.WriteString("=")
		b.WriteString(c.Params[key])
	}
	b.WriteString(")")
	return b.String()
}

// Unavailable returns true if the state reported by the host means the entity exists, but has no usable value.
func Unavailable(state string) bool {
	switch strings.ToLower(state) {
	case "", "unavailable", "unknown", "none":
		return true
	default:
		return false
	}
}
