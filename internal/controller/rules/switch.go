package rules

import (
	"context"
	"github.com/clambin/smarterzones/internal/host"
	"log/slog"
	"strings"
)

// A Transition describes a command issued to bring a switch in line with a Decision.
type Transition struct {
	Command  host.Command
	Switch   string
	From     string
	Decision Decision
}

func (t Transition) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("switch", t.Switch),
		slog.String("from", t.From),
		slog.String("decision", t.Decision.String()),
		slog.String("command", string(t.Command.Kind)),
	)
}

// SetSwitch opens or closes a switch as per decision. Commands are only issued if the switch isn't in the required
// state yet, so calling SetSwitch repeatedly with the same decision issues at most one command.
// If the switch's state can't be read, the command is issued anyway.
//
// SetSwitch returns the Transition and true if a command was issued. A command rejected by the host is returned
// as a CommandError.
func SetSwitch(ctx context.Context, h host.Host, entityID string, decision Decision) (Transition, bool, error) {
	var kind host.CommandKind
	var wanted string
	switch decision {
	case Open:
		kind, wanted = host.TurnOn, "on"
	case Closed:
		kind, wanted = host.TurnOff, "off"
	default:
		return Transition{}, false, nil
	}

	state, err := h.ReadState(ctx, entityID)
	if err == nil && strings.EqualFold(state, wanted) {
		return Transition{}, false, nil
	}

	t := Transition{
		Command:  host.Command{Kind: kind, EntityID: entityID},
		Switch:   entityID,
		From:     strings.ToLower(state),
		Decision: decision,
	}
	if err = h.Command(ctx, t.Command); err != nil {
		return t, false, &CommandError{Command: t.Command, err: err}
	}
	return t, true, nil
}

// SwitchOn returns true if the switch is on. If the switch can't be read, or is unavailable, SwitchOn returns false
// and a SensorReadError.
func SwitchOn(ctx context.Context, r StateReader, entityID string) (bool, error) {
	state, err := r.ReadState(ctx, entityID)
	if err == nil && host.Unavailable(state) {
		err = errUnavailable(state)
	}
	if err != nil {
		return false, &SensorReadError{Entity: entityID, err: err}
	}
	return strings.EqualFold(state, "on"), nil
}
