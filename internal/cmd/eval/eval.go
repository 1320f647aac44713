// Package eval evaluates a zones file against a snapshot of entity states, without connecting to Home Assistant.
package eval

import (
	"context"
	"errors"
	"fmt"
	"github.com/clambin/go-common/charmer"
	"github.com/clambin/smarterzones/internal/configuration"
	"github.com/clambin/smarterzones/internal/controller/rules"
	"github.com/clambin/smarterzones/internal/host/memory"
	"github.com/clambin/smarterzones/internal/registry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"io"
	"log/slog"
	"os"
	"strings"
)

var (
	Cmd = cobra.Command{
		Use:   "eval <zones file> <snapshot file>",
		Short: "Evaluate the zones against a snapshot of entity states",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, files []string) error {
			return evaluate(cmd.Context(), cmd.OutOrStdout(), files[0], files[1], viper.GetBool("apply"))
		},
	}

	args = charmer.Arguments{
		"apply": {Default: false, Help: "apply the zone decisions to the snapshot before reconciling the common zone"},
	}
)

func init() {
	_ = charmer.SetPersistentFlags(&Cmd, viper.GetViper(), args)
}

func evaluate(ctx context.Context, w io.Writer, zonesFile, snapshotFile string, apply bool) error {
	cfg, err := loadZones(zonesFile)
	if err != nil {
		return err
	}
	h, err := loadSnapshot(snapshotFile)
	if err != nil {
		return err
	}

	r := registry.New(cfg, slog.Default())
	engine := rules.Engine{Host: h, ClimateDevice: r.ClimateDevice, ExteriorSensor: r.ExteriorSensor}

	var res results
	for zone := range r.ManagedZones() {
		result := engine.Evaluate(ctx, zone)
		line := zoneLine(result)
		if apply {
			if _, _, err = rules.SetSwitch(ctx, h, zone.Switch, result.Decision); err != nil {
				line.faults = append(line.faults, err)
			}
		}
		res = append(res, line)
	}

	if common, ok := r.CommonZone(); ok {
		c := rules.Coordinator{Engine: engine, Refinement: r.CommonZoneRefinement}
		res = append(res, reconciliationLine(c.Reconcile(ctx, common, r.ManagedZones())))
	}

	res.writeTo(w)
	return nil
}

func loadZones(path string) (configuration.Configuration, error) {
	f, err := os.Open(path)
	if err != nil {
		return configuration.Configuration{}, err
	}
	defer func() { _ = f.Close() }()
	cfg, err := configuration.Load(f)
	if err != nil {
		return configuration.Configuration{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func loadSnapshot(path string) (*memory.Store, error) {
	return loadSnapshotFrom(path, os.Stdin)
}

func loadSnapshotFrom(path string, stdin io.Reader) (*memory.Store, error) {
	r := io.NopCloser(stdin)
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		r = f
	}
	defer func() { _ = r.Close() }()
	return memory.Load(r)
}

const formatString = "%-20s %-8s %-10s %-10s %s\n"

type results []result

func (r results) writeTo(w io.Writer) {
	if len(r) > 0 {
		_, _ = fmt.Fprintf(w, formatString, "ZONE", "MODE", "BAND", "DECISION", "REASON")
		for _, res := range r {
			res.writeTo(w)
		}
	}
}

type result struct {
	zone     string
	mode     string
	band     string
	decision rules.Decision
	reason   string
	faults   []error
}

func (r result) writeTo(w io.Writer) {
	reason := r.reason
	if len(r.faults) > 0 {
		reason += " [" + strings.ReplaceAll(errors.Join(r.faults...).Error(), "\n", "; ") + "]"
	}
	_, _ = fmt.Fprintf(w, formatString, r.zone, r.mode, r.band, r.decision, reason)
}

func zoneLine(r rules.Result) result {
	line := result{
		zone:     r.Zone,
		mode:     r.Mode.String(),
		band:     "-",
		decision: r.Decision,
		reason:   r.Reason,
		faults:   r.Faults,
	}
	if r.Measured {
		line.band = r.Band.String()
	}
	return line
}

func reconciliationLine(r rules.Reconciliation) result {
	return result{
		zone:     r.Zone,
		mode:     "-",
		band:     "-",
		decision: r.Decision,
		reason:   r.Reason,
		faults:   r.Faults,
	}
}
