package controller

import (
	"github.com/clambin/smarterzones/internal/controller/rules"
	"github.com/clambin/smarterzones/internal/host"
	"github.com/clambin/smarterzones/internal/registry"
	"log/slog"
	"time"
)

// KindRefresh marks a Report of a full evaluation of all zones, i.e. at startup or when Refresh is called.
const KindRefresh registry.Kind = "refresh"

// A Report describes how the controller processed one event.
type Report struct {
	Time time.Time
	// Event is the host event that was processed. Nil for a refresh.
	Event *host.Event
	// Common holds the reconciliation of the common zone, if it was reconciled.
	Common *CommonReport
	// Kinds describes why the event's entity is watched.
	Kinds    []registry.Kind
	Zones    []ZoneReport
	Commands []CommandReport
}

// ZoneReport is the evaluation of one zone.
type ZoneReport struct {
	Switch string
	rules.Result
	// Open is the last known state of the zone's switch.
	Open bool
}

// CommonReport is the reconciliation of the common zone.
type CommonReport struct {
	Switch string
	rules.Reconciliation
	Open bool
}

// CommandReport is a command issued while processing the event. Err is set if the host rejected the command.
type CommandReport struct {
	Err error
	host.Command
}

func (r Report) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, 4)
	if r.Event != nil {
		attrs = append(attrs, slog.Any("event", *r.Event))
	}
	kinds := make([]string, len(r.Kinds))
	for i, kind := range r.Kinds {
		kinds[i] = string(kind)
	}
	attrs = append(attrs,
		slog.Any("kinds", kinds),
		slog.Int("zones", len(r.Zones)),
		slog.Int("commands", len(r.Commands)),
	)
	return slog.GroupValue(attrs...)
}

// Faults returns the number of faults reported while processing the event.
func (r Report) Faults() int {
	var count int
	for _, zone := range r.Zones {
		count += len(zone.Faults)
	}
	if r.Common != nil {
		count += len(r.Common.Faults)
	}
	return count
}
