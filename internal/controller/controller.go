// Package controller processes the events received from the host. For each event, it re-evaluates the zones that
// depend on the changed entity, reconciles the common zone and executes the resulting commands.
package controller

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"github.com/clambin/smarterzones/internal/controller/notifier"
	"github.com/clambin/smarterzones/internal/controller/rules"
	"github.com/clambin/smarterzones/internal/host"
	"github.com/clambin/smarterzones/internal/registry"
	"github.com/clambin/smarterzones/pkg/pubsub"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"time"
)

// A Reporter publishes a Report for each processed event.
//
//go:generate mockery --name Reporter
type Reporter interface {
	Subscribe() <-chan Report
	Unsubscribe(<-chan Report)
	Refresh()
}

var _ Reporter = &Controller{}

// A Controller processes host events one at a time, in the order they were received. Each event is handled
// completely (all affected zones in registry order, followed by the common zone) before the next event is processed.
//
// After each event, Controller publishes a Report to its subscribers.
type Controller struct {
	*pubsub.Publisher[Report]
	notifier    notifier.Notifier
	host        host.Host
	registry    *registry.Registry
	logger      *slog.Logger
	queue       *queue
	watches     registry.Table
	engine      rules.Engine
	coordinator rules.Coordinator
}

// New returns a Controller for the zones in the registry.
func New(h host.Host, r *registry.Registry, n notifier.Notifier, logger *slog.Logger) *Controller {
	engine := rules.Engine{Host: h, ClimateDevice: r.ClimateDevice, ExteriorSensor: r.ExteriorSensor}
	return &Controller{
		Publisher:   pubsub.New[Report](logger),
		notifier:    n,
		host:        h,
		registry:    r,
		logger:      logger,
		queue:       newQueue(),
		watches:     r.Watches(),
		engine:      engine,
		coordinator: rules.Coordinator{Engine: engine, Refinement: r.CommonZoneRefinement},
	}
}

// Run subscribes to all watched entities, evaluates all zones and then processes events until the context is canceled.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Debug("controller starting")
	defer c.logger.Debug("controller stopping")

	if err := c.subscribe(); err != nil {
		return err
	}
	c.Refresh()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.queue.ready:
			for {
				j, ok := c.queue.pop()
				if !ok {
					break
				}
				if report, ok := c.process(ctx, j); ok {
					c.Publish(report)
				}
			}
		}
	}
}

func (c *Controller) subscribe() error {
	keys := slices.SortedFunc(maps.Keys(c.watches), func(a, b registry.Key) int {
		return cmp.Or(cmp.Compare(a.Entity, b.Entity), cmp.Compare(a.Attribute, b.Attribute))
	})
	for _, key := range keys {
		if err := c.host.Subscribe(key.Entity, key.Attribute, c.onEvent); err != nil {
			return fmt.Errorf("subscribe %s: %w", key.Entity, err)
		}
	}
	c.logger.Debug("subscribed to host", "entities", len(keys))
	return nil
}

func (c *Controller) onEvent(event host.Event) {
	c.queue.push(job{event: event})
}

// Refresh schedules an evaluation of all zones.
func (c *Controller) Refresh() {
	c.queue.push(job{refresh: true})
}

// process handles one job. It returns false if the job's event isn't watched.
func (c *Controller) process(ctx context.Context, j job) (Report, bool) {
	if j.refresh {
		return c.refresh(ctx), true
	}
	watch, ok := c.watches[registry.Key{Entity: j.event.EntityID, Attribute: j.event.Attribute}]
	if !ok {
		c.logger.Debug("ignoring event for unwatched entity", "event", j.event)
		return Report{}, false
	}
	return c.handle(ctx, j.event, watch), true
}

func (c *Controller) refresh(ctx context.Context) Report {
	c.logger.Debug("evaluating all zones")
	report := Report{Time: time.Now(), Kinds: []registry.Kind{KindRefresh}}
	for zone := range c.registry.ManagedZones() {
		c.evaluate(ctx, zone, &report)
	}
	c.reconcile(ctx, &report)
	return report
}

func (c *Controller) handle(ctx context.Context, event host.Event, watch registry.Watch) Report {
	c.logger.Debug("processing event", "event", event, "kinds", watch.Kinds, "queued", c.queue.len())
	report := Report{Time: time.Now(), Event: &event, Kinds: watch.Kinds}

	if watch.Trigger {
		if trigger, ok := c.registry.Trigger(); ok {
			cmd, issued, err := c.engine.Trigger(ctx, trigger)
			c.climateCommand(cmd, issued, err, "trigger sensor at "+event.New, &report)
		}
	}
	if watch.FanMode {
		cmd, issued, err := c.engine.FanGuard(ctx, event.New)
		c.climateCommand(cmd, issued, err, "fan mode changed to "+event.New, &report)
	}

	for _, name := range watch.Zones {
		if zone, ok := c.registry.Zone(name); ok {
			c.evaluate(ctx, zone, &report)
		}
	}

	if watch.Reconcile {
		c.reconcile(ctx, &report)
	}
	return report
}

// evaluate evaluates the zone and opens or closes its switch as required. Errors are logged and reported,
// and never stop the controller from evaluating other zones.
func (c *Controller) evaluate(ctx context.Context, zone registry.Zone, report *Report) {
	result := c.engine.Evaluate(ctx, zone)
	for _, fault := range result.Faults {
		c.logger.Warn("zone evaluation fault", "zone", zone.Name, "err", fault)
	}

	transition, issued, err := rules.SetSwitch(ctx, c.host, zone.Switch, result.Decision)
	c.switchCommand(zone.Name, transition, issued, err, result.Reason, zoneDetails(result), report)
	if issued {
		c.logger.Info("zone switched", "zone", zone.Name, "from", transition.From, "to", result.Decision.String(), "result", result)
	} else {
		c.logger.Debug("zone evaluated", "result", result)
	}

	open, err := rules.SwitchOn(ctx, c.host, zone.Switch)
	if err != nil && !hasSensorFault(result.Faults, zone.Switch) {
		c.logger.Warn("zone switch unreadable", "zone", zone.Name, "err", err)
		result.Faults = append(result.Faults, err)
	}
	report.Zones = append(report.Zones, ZoneReport{Result: result, Switch: zone.Switch, Open: open})
}

// reconcile opens or closes the common zone, based on the state of all other zones.
func (c *Controller) reconcile(ctx context.Context, report *Report) {
	common, ok := c.registry.CommonZone()
	if !ok {
		return
	}
	result := c.coordinator.Reconcile(ctx, common, c.registry.ManagedZones())
	for _, fault := range result.Faults {
		c.logger.Warn("common zone fault", "zone", common.Name, "err", fault)
	}

	transition, issued, err := rules.SetSwitch(ctx, c.host, common.Switch, result.Decision)
	c.switchCommand(common.Name, transition, issued, err, result.Reason, commonDetails(result), report)
	if issued {
		c.logger.Info("common zone switched", "zone", common.Name, "from", transition.From, "to", result.Decision.String(), "result", result)
	} else {
		c.logger.Debug("common zone reconciled", "result", result)
	}

	open, err := rules.SwitchOn(ctx, c.host, common.Switch)
	if err != nil && !hasSensorFault(result.Faults, common.Switch) {
		c.logger.Warn("common zone switch unreadable", "zone", common.Name, "err", err)
		result.Faults = append(result.Faults, err)
	}
	report.Common = &CommonReport{Reconciliation: result, Switch: common.Switch, Open: open}
}

// hasSensorFault returns true if faults already holds a SensorReadError for the entity.
func hasSensorFault(faults []error, entityID string) bool {
	for _, fault := range faults {
		var sensorReadError *rules.SensorReadError
		if errors.As(fault, &sensorReadError) && sensorReadError.Entity == entityID {
			return true
		}
	}
	return false
}

func (c *Controller) switchCommand(zone string, transition rules.Transition, issued bool, err error, reason string, details []notifier.Detail, report *Report) {
	if err != nil {
		c.logger.Error("failed to switch zone", "zone", zone, "transition", transition, "err", err)
		report.Commands = append(report.Commands, CommandReport{Command: transition.Command, Err: err})
		return
	}
	if !issued {
		return
	}
	report.Commands = append(report.Commands, CommandReport{Command: transition.Command})
	action := "opening"
	if transition.Decision == rules.Closed {
		action = "closing"
	}
	c.notifier.Notify(notifier.Notification{Subject: zone, Action: action, Reason: reason, Details: details})
}

func zoneDetails(result rules.Result) []notifier.Detail {
	details := []notifier.Detail{{Name: "mode", Value: result.Mode.String()}}
	if result.Measured {
		details = append(details,
			notifier.Detail{Name: "temperature", Value: strconv.FormatFloat(result.Current, 'f', 1, 64)},
			notifier.Detail{Name: "target", Value: strconv.FormatFloat(result.Wanted, 'f', 1, 64)},
			notifier.Detail{Name: "band", Value: result.Band.String()},
		)
	}
	if result.SensorFault {
		details = append(details, notifier.Detail{Name: "sensor", Value: "unavailable"})
	}
	return details
}

func commonDetails(result rules.Reconciliation) []notifier.Detail {
	return []notifier.Detail{
		{Name: "other zones open", Value: strconv.FormatBool(result.AnyOtherOpen)},
	}
}

func (c *Controller) climateCommand(cmd host.Command, issued bool, err error, reason string, report *Report) {
	if err != nil {
		c.logger.Error("failed to update climate device", "err", err)
		if cmd.Kind != "" {
			report.Commands = append(report.Commands, CommandReport{Command: cmd, Err: err})
		}
		return
	}
	if !issued {
		return
	}
	report.Commands = append(report.Commands, CommandReport{Command: cmd})
	var action string
	switch cmd.Kind {
	case host.SetHVACMode:
		action = "setting hvac mode to " + cmd.Params["hvac_mode"]
	case host.SetFanMode:
		action = "setting fan mode to " + cmd.Params["fan_mode"]
	default:
		action = cmd.String()
	}
	c.logger.Info("climate device updated", "command", cmd.String(), "reason", reason)
	c.notifier.Notify(notifier.Notification{Subject: cmd.EntityID, Action: action, Reason: reason})
}
