// Package collector exports the controller's decisions as Prometheus metrics.
package collector

import (
	"context"
	"errors"
	"github.com/clambin/smarterzones/internal/controller"
	"github.com/clambin/smarterzones/internal/controller/rules"
	"github.com/prometheus/client_golang/prometheus"
	"log/slog"
)

var _ prometheus.Collector = &Metrics{}

// Metrics holds the metrics derived from the controller's reports.
type Metrics struct {
	decisions     *prometheus.CounterVec
	zoneOpen      *prometheus.GaugeVec
	temperature   *prometheus.GaugeVec
	target        *prometheus.GaugeVec
	faults        *prometheus.CounterVec
	commandErrors *prometheus.CounterVec
	events        *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smarterzones",
			Subsystem: "zone",
			Name:      "decisions_total",
			Help:      "Number of decisions made for a zone",
		}, []string{"zone", "decision"}),
		zoneOpen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "smarterzones",
			Subsystem: "zone",
			Name:      "open",
			Help:      "1 if the zone's switch is on",
		}, []string{"zone"}),
		temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "smarterzones",
			Subsystem: "zone",
			Name:      "temperature_celsius",
			Help:      "Current temperature of this zone in degrees celsius",
		}, []string{"zone"}),
		target: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "smarterzones",
			Subsystem: "zone",
			Name:      "target_temperature_celsius",
			Help:      "Target temperature of this zone in degrees celsius",
		}, []string{"zone"}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smarterzones",
			Name:      "faults_total",
			Help:      "Number of problems encountered while evaluating a zone",
		}, []string{"zone", "kind"}),
		commandErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smarterzones",
			Name:      "command_errors_total",
			Help:      "Number of commands rejected by the host",
		}, []string{"entity", "kind"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smarterzones",
			Name:      "events_total",
			Help:      "Number of events processed",
		}, []string{"kind"}),
	}
}

func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.decisions.Describe(ch)
	m.zoneOpen.Describe(ch)
	m.temperature.Describe(ch)
	m.target.Describe(ch)
	m.faults.Describe(ch)
	m.commandErrors.Describe(ch)
	m.events.Describe(ch)
}

func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.decisions.Collect(ch)
	m.zoneOpen.Collect(ch)
	m.temperature.Collect(ch)
	m.target.Collect(ch)
	m.faults.Collect(ch)
	m.commandErrors.Collect(ch)
	m.events.Collect(ch)
}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// Collector updates Metrics with each report published by the controller.
type Collector struct {
	Reporter controller.Reporter
	Metrics  *Metrics
	Logger   *slog.Logger
}

func (c *Collector) Run(ctx context.Context) error {
	c.Logger.Debug("started")
	defer c.Logger.Debug("stopped")

	ch := c.Reporter.Subscribe()
	defer c.Reporter.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case report := <-ch:
			c.process(report)
		}
	}
}

func (c *Collector) process(report controller.Report) {
	for _, kind := range report.Kinds {
		c.Metrics.events.WithLabelValues(string(kind)).Inc()
	}

	for _, zone := range report.Zones {
		c.Metrics.decisions.WithLabelValues(zone.Zone, zone.Decision.String()).Inc()
		c.Metrics.zoneOpen.WithLabelValues(zone.Zone).Set(boolToFloat(zone.Open))
		if zone.Measured {
			c.Metrics.target.WithLabelValues(zone.Zone).Set(zone.Wanted)
			if !zone.SensorFault {
				c.Metrics.temperature.WithLabelValues(zone.Zone).Set(zone.Current)
			}
		}
		c.processFaults(zone.Zone, zone.Faults)
	}

	if common := report.Common; common != nil {
		c.Metrics.decisions.WithLabelValues(common.Zone, common.Decision.String()).Inc()
		c.Metrics.zoneOpen.WithLabelValues(common.Zone).Set(boolToFloat(common.Open))
		c.processFaults(common.Zone, common.Faults)
	}

	for _, cmd := range report.Commands {
		if cmd.Err != nil {
			c.Metrics.commandErrors.WithLabelValues(cmd.EntityID, string(cmd.Kind)).Inc()
		}
	}
}

func (c *Collector) processFaults(zone string, faults []error) {
	for _, fault := range faults {
		c.Metrics.faults.WithLabelValues(zone, faultKind(fault)).Inc()
	}
}

func faultKind(err error) string {
	switch {
	case errors.Is(err, &rules.ConditionReadError{}):
		return "condition_read"
	case errors.Is(err, &rules.OffsetConfigError{}):
		return "offset_config"
	case errors.Is(err, &rules.SensorReadError{}):
		return "sensor_read"
	case errors.Is(err, &rules.CommandError{}):
		return "command"
	default:
		return "other"
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
