package rules

import (
	"context"
	"github.com/clambin/smarterzones/internal/registry"
	"iter"
	"log/slog"
)

// Coordinator decides whether the common zone should be opened or closed, based on the state of all other zones.
// The common zone provides a return-air path: it must be open when no other zone is, and is closed as soon as another
// zone opens.
type Coordinator struct {
	Engine Engine
	// Refinement keeps the common zone open while its own temperature lies outside its band.
	Refinement bool
}

// Reconciliation is the outcome of reconciling the common zone.
type Reconciliation struct {
	Zone     string
	Reason   string
	Faults   []error
	Decision Decision
	// AnyOtherOpen and CommonOpen hold the switch states the decision was based on.
	AnyOtherOpen bool
	CommonOpen   bool
	// KeptOpen indicates the common zone was kept open because of its temperature.
	KeptOpen bool
}

func (r Reconciliation) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("zone", r.Zone),
		slog.String("decision", r.Decision.String()),
		slog.String("reason", r.Reason),
		slog.Bool("anyOtherOpen", r.AnyOtherOpen),
		slog.Bool("commonOpen", r.CommonOpen),
		slog.Int("faults", len(r.Faults)),
	)
}

// Reconcile determines the Decision for the common zone, given all other zones. Switches of other zones that can't be
// read are considered closed. If the common zone's switch can't be read, or its manual override is on, Reconcile
// returns NoChange.
func (c Coordinator) Reconcile(ctx context.Context, common registry.Zone, others iter.Seq[registry.Zone]) Reconciliation {
	result := Reconciliation{Zone: common.Name}

	if OverrideActive(ctx, c.Engine.Host, common.ManualOverride) {
		result.Reason = "manual override is on"
		return result
	}

	var err error
	if result.CommonOpen, err = SwitchOn(ctx, c.Engine.Host, common.Switch); err != nil {
		result.Faults = append(result.Faults, err)
		result.Reason = "common zone switch unavailable"
		return result
	}

	for zone := range others {
		open, err := SwitchOn(ctx, c.Engine.Host, zone.Switch)
		if err != nil {
			result.Faults = append(result.Faults, err)
			continue
		}
		if open {
			result.AnyOtherOpen = true
			break
		}
	}

	if result.AnyOtherOpen && result.CommonOpen {
		result.KeptOpen = c.keepOpen(ctx, common, &result)
	}

	result.Decision = CommonZoneDecision(result.AnyOtherOpen, result.CommonOpen, result.KeptOpen)
	switch {
	case result.KeptOpen:
		result.Reason = "common zone still needs conditioning"
	case result.AnyOtherOpen && result.CommonOpen:
		result.Reason = "another zone is open"
	case result.AnyOtherOpen:
		result.Reason = "another zone is open and common zone is closed"
	case result.CommonOpen:
		result.Reason = "no other zone is open and common zone is open"
	default:
		result.Reason = "no other zone is open"
	}
	return result
}

// CommonZoneDecision implements the common zone's decision table:
//
//	anyOtherOpen  commonOpen  decision
//	false         false       Open
//	false         true        NoChange
//	true          true        Closed (NoChange if keepOpen)
//	true          false       NoChange
func CommonZoneDecision(anyOtherOpen, commonOpen, keepOpen bool) Decision {
	switch {
	case !anyOtherOpen && !commonOpen:
		return Open
	case anyOtherOpen && commonOpen && !keepOpen:
		return Closed
	default:
		return NoChange
	}
}

// keepOpen returns true if the common zone still needs conditioning: when cooling, its temperature is above its band;
// when heating, below it. In any other mode, a temperature outside the band keeps it open. Without refinement, or if
// the common zone's temperature can't be determined, the common zone isn't kept open.
func (c Coordinator) keepOpen(ctx context.Context, common registry.Zone, result *Reconciliation) bool {
	if !c.Refinement || !common.HasTemperature() {
		return false
	}
	state, err := c.Engine.readState(ctx, c.Engine.ClimateDevice)
	if err != nil {
		result.Faults = append(result.Faults, err)
		return false
	}
	var faults Result
	mode := Classify(state, c.Engine.estimator(ctx, common, &faults))
	result.Faults = append(result.Faults, faults.Faults...)
	if mode == Off {
		return false
	}
	wanted, err := c.Engine.readTemperature(ctx, common.TargetTemp)
	if err != nil {
		result.Faults = append(result.Faults, err)
		return false
	}
	current, err := c.Engine.readTemperature(ctx, common.LocalTempSensor)
	if err != nil {
		result.Faults = append(result.Faults, err)
		return false
	}
	offset, err := ResolveOffset(common, mode)
	if err != nil {
		result.Faults = append(result.Faults, err)
	}
	return needsConditioning(mode, current, offset.Band(wanted))
}

func needsConditioning(mode Mode, current float64, band Band) bool {
	switch mode {
	case Cooling:
		return current > band.Max
	case Heating:
		return current < band.Min
	case Off:
		return false
	default:
		return !band.Contains(current)
	}
}
