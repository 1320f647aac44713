package rules

import (
	"context"
	"github.com/clambin/smarterzones/internal/configuration"
	"github.com/clambin/smarterzones/internal/host"
	"strings"
)

// StateReader reads the current state of entities from the host.
type StateReader interface {
	ReadState(ctx context.Context, entityID string) (string, error)
	ReadAttribute(ctx context.Context, entityID, attribute string) (string, error)
}

// ConditionsMet checks whether all conditions are met, i.e. each condition's entity is in the required state
// (ignoring case). It stops at the first condition that isn't met. A zone without conditions always meets its conditions.
//
// A condition whose entity can't be read is considered met, so a missing or unavailable sensor doesn't keep a zone
// closed forever. Each such condition is reported as a ConditionReadError.
func ConditionsMet(ctx context.Context, r StateReader, conditions []configuration.Condition) (bool, []error) {
	var faults []error
	for _, condition := range conditions {
		state, err := r.ReadState(ctx, condition.Entity)
		if err == nil && host.Unavailable(state) {
			err = errUnavailable(state)
		}
		if err != nil {
			faults = append(faults, &ConditionReadError{Entity: condition.Entity, err: err})
			continue
		}
		if strings.ToLower(state) != strings.ToLower(condition.Required()) {
			return false, faults
		}
	}
	return true, faults
}

// OverrideActive returns true if the manual override switch is on. Without a switch, or if the switch can't be
// read, automatic control is not overridden.
func OverrideActive(ctx context.Context, r StateReader, entityID string) bool {
	if entityID == "" {
		return false
	}
	state, err := r.ReadState(ctx, entityID)
	return err == nil && strings.EqualFold(state, "on")
}

type errUnavailable string

func (e errUnavailable) Error() string {
	return "state is " + strings.ToLower(string(e))
}
