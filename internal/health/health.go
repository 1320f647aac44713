// Package health reports how the controller processed the last event.
package health

import (
	"context"
	"encoding/json"
	"github.com/clambin/smarterzones/internal/controller"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

type Health struct {
	controller.Reporter
	logger  *slog.Logger
	status  status
	updated bool
	lock    sync.RWMutex
}

func New(r controller.Reporter, logger *slog.Logger) *Health {
	return &Health{
		Reporter: r,
		logger:   logger,
	}
}

func (h *Health) Run(ctx context.Context) error {
	h.logger.Debug("started")
	defer h.logger.Debug("stopped")

	ch := h.Reporter.Subscribe()
	defer h.Reporter.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case report := <-ch:
			s := newStatus(report)
			h.lock.Lock()
			h.status = s
			h.updated = true
			h.lock.Unlock()
		}
	}
}

func (h *Health) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.lock.RLock()
	defer h.lock.RUnlock()
	if !h.updated {
		http.Error(w, "no update yet", http.StatusServiceUnavailable)
		h.Reporter.Refresh()
		return
	}

	w.Header().Set("Content-Type", "application/json")

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(h.status); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

type status struct {
	Time     time.Time `json:"time"`
	Event    *event    `json:"event,omitempty"`
	Common   *zone     `json:"common,omitempty"`
	Kinds    []string  `json:"kinds"`
	Zones    []zone    `json:"zones"`
	Commands []command `json:"commands,omitempty"`
}

type event struct {
	Entity    string `json:"entity"`
	Attribute string `json:"attribute,omitempty"`
	Old       string `json:"old"`
	New       string `json:"new"`
}

type zone struct {
	Band        *band    `json:"band,omitempty"`
	Current     *float64 `json:"current,omitempty"`
	Wanted      *float64 `json:"wanted,omitempty"`
	Name        string   `json:"name"`
	Switch      string   `json:"switch"`
	Mode        string   `json:"mode,omitempty"`
	Decision    string   `json:"decision"`
	Reason      string   `json:"reason"`
	Faults      []string `json:"faults,omitempty"`
	Open        bool     `json:"open"`
	SensorFault bool     `json:"sensorFault,omitempty"`
}

type band struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type command struct {
	Command string `json:"command"`
	Err     string `json:"error,omitempty"`
}

func newStatus(r controller.Report) status {
	s := status{
		Time:  r.Time,
		Kinds: make([]string, len(r.Kinds)),
		Zones: make([]zone, len(r.Zones)),
	}
	if r.Event != nil {
		s.Event = &event{Entity: r.Event.EntityID, Attribute: r.Event.Attribute, Old: r.Event.Old, New: r.Event.New}
	}
	for i, kind := range r.Kinds {
		s.Kinds[i] = string(kind)
	}
	for i, z := range r.Zones {
		s.Zones[i] = zone{
			Name:     z.Zone,
			Switch:   z.Switch,
			Open:     z.Open,
			Mode:     z.Mode.String(),
			Decision: z.Decision.String(),
			Reason:   z.Reason,
			Faults:   faults(z.Faults),
		}
		if z.Measured {
			s.Zones[i].Band = &band{Min: z.Band.Min, Max: z.Band.Max}
			s.Zones[i].Current = &z.Current
			s.Zones[i].Wanted = &z.Wanted
			s.Zones[i].SensorFault = z.SensorFault
		}
	}
	if r.Common != nil {
		s.Common = &zone{
			Name:     r.Common.Zone,
			Switch:   r.Common.Switch,
			Open:     r.Common.Open,
			Decision: r.Common.Decision.String(),
			Reason:   r.Common.Reason,
			Faults:   faults(r.Common.Faults),
		}
	}
	for _, cmd := range r.Commands {
		c := command{Command: cmd.Command.String()}
		if cmd.Err != nil {
			c.Err = cmd.Err.Error()
		}
		s.Commands = append(s.Commands, c)
	}
	return s
}

func faults(errs []error) []string {
	if len(errs) == 0 {
		return nil
	}
	result := make([]string, len(errs))
	for i, err := range errs {
		result[i] = err.Error()
	}
	return result
}
