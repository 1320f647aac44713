package collector

import (
	"context"
	"errors"
	"github.com/clambin/smarterzones/internal/controller"
	"github.com/clambin/smarterzones/internal/controller/mocks"
	"github.com/clambin/smarterzones/internal/controller/rules"
	"github.com/clambin/smarterzones/internal/host"
	"github.com/clambin/smarterzones/internal/registry"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func testReport() controller.Report {
	return controller.Report{
		Kinds: []registry.Kind{registry.KindSensor},
		Zones: []controller.ZoneReport{
			{
				Switch: "switch.lounge",
				Open:   true,
				Result: rules.Result{Zone: "lounge", Decision: rules.Open, Measured: true, Current: 24, Wanted: 22},
			},
			{
				Switch: "switch.bedroom",
				Result: rules.Result{
					Zone:        "bedroom",
					Decision:    rules.Closed,
					Measured:    true,
					Current:     27,
					Wanted:      22,
					SensorFault: true,
					Faults:      []error{&rules.SensorReadError{Entity: "sensor.bedroom"}},
				},
			},
		},
		Common: &controller.CommonReport{
			Switch:         "switch.hallway",
			Reconciliation: rules.Reconciliation{Zone: "hallway", Decision: rules.Closed},
		},
		Commands: []controller.CommandReport{
			{Command: host.Command{Kind: host.TurnOn, EntityID: "switch.lounge"}},
			{Command: host.Command{Kind: host.TurnOff, EntityID: "switch.hallway"}, Err: errors.New("host offline")},
		},
	}
}

func TestCollector(t *testing.T) {
	m := NewMetrics()
	c := Collector{Metrics: m, Logger: slog.New(slog.DiscardHandler)}

	c.process(testReport())

	require.NoError(t, testutil.CollectAndCompare(m, strings.NewReader(`
# HELP smarterzones_command_errors_total Number of commands rejected by the host
# TYPE smarterzones_command_errors_total counter
smarterzones_command_errors_total{entity="switch.hallway",kind="turn_off"} 1

# HELP smarterzones_events_total Number of events processed
# TYPE smarterzones_events_total counter
smarterzones_events_total{kind="sensor"} 1

# HELP smarterzones_faults_total Number of problems encountered while evaluating a zone
# TYPE smarterzones_faults_total counter
smarterzones_faults_total{kind="sensor_read",zone="bedroom"} 1

# HELP smarterzones_zone_decisions_total Number of decisions made for a zone
# TYPE smarterzones_zone_decisions_total counter
smarterzones_zone_decisions_total{decision="closed",zone="bedroom"} 1
smarterzones_zone_decisions_total{decision="closed",zone="hallway"} 1
smarterzones_zone_decisions_total{decision="open",zone="lounge"} 1

# HELP smarterzones_zone_open 1 if the zone's switch is on
# TYPE smarterzones_zone_open gauge
smarterzones_zone_open{zone="bedroom"} 0
smarterzones_zone_open{zone="hallway"} 0
smarterzones_zone_open{zone="lounge"} 1

# HELP smarterzones_zone_target_temperature_celsius Target temperature of this zone in degrees celsius
# TYPE smarterzones_zone_target_temperature_celsius gauge
smarterzones_zone_target_temperature_celsius{zone="bedroom"} 22
smarterzones_zone_target_temperature_celsius{zone="lounge"} 22

# HELP smarterzones_zone_temperature_celsius Current temperature of this zone in degrees celsius
# TYPE smarterzones_zone_temperature_celsius gauge
smarterzones_zone_temperature_celsius{zone="lounge"} 24
`)))
}

func TestFaultKind(t *testing.T) {
	assert.Equal(t, "sensor_read", faultKind(&rules.SensorReadError{}))
	assert.Equal(t, "condition_read", faultKind(&rules.ConditionReadError{}))
	assert.Equal(t, "offset_config", faultKind(&rules.OffsetConfigError{}))
	assert.Equal(t, "command", faultKind(&rules.CommandError{}))
	assert.Equal(t, "other", faultKind(errors.New("fault")))
}

func TestCollector_Run(t *testing.T) {
	ch := make(chan controller.Report)
	r := mocks.NewReporter(t)
	r.EXPECT().Subscribe().Return(ch).Once()
	r.EXPECT().Unsubscribe((<-chan controller.Report)(ch)).Once()

	m := NewMetrics()
	c := Collector{Reporter: r, Metrics: m, Logger: slog.New(slog.DiscardHandler)}

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error)
	go func() { errCh <- c.Run(ctx) }()

	ch <- testReport()
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.zoneOpen.WithLabelValues("lounge")) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-errCh)
}
