package health

import (
	"errors"
	"github.com/clambin/smarterzones/internal/controller"
	"github.com/clambin/smarterzones/internal/controller/mocks"
	"github.com/clambin/smarterzones/internal/controller/rules"
	"github.com/clambin/smarterzones/internal/host"
	"github.com/clambin/smarterzones/internal/registry"
	"github.com/stretchr/testify/assert"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHealth_Handle(t *testing.T) {
	var subscribed atomic.Bool

	ch := make(chan controller.Report)
	r := mocks.NewReporter(t)
	r.EXPECT().Subscribe().RunAndReturn(func() <-chan controller.Report {
		subscribed.Store(true)
		return ch
	}).Once()
	r.EXPECT().Unsubscribe((<-chan controller.Report)(ch)).Run(func(_ <-chan controller.Report) {
		subscribed.Store(false)
	}).Maybe()
	r.EXPECT().Refresh().Once()

	h := New(r, slog.New(slog.DiscardHandler))
	go func() {
		_ = h.Run(t.Context())
		assert.False(t, subscribed.Load())
	}()

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, &http.Request{})
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)

	ch <- controller.Report{}

	assert.Eventually(t, func() bool {
		resp = httptest.NewRecorder()
		h.ServeHTTP(resp, &http.Request{})
		return resp.Code == http.StatusOK
	}, time.Second, 10*time.Millisecond)
}

func TestNewStatus(t *testing.T) {
	report := controller.Report{
		Time:  time.Date(2024, time.July, 1, 12, 0, 0, 0, time.UTC),
		Event: &host.Event{EntityID: "sensor.lounge", Old: "22", New: "24"},
		Kinds: []registry.Kind{registry.KindSensor},
		Zones: []controller.ZoneReport{{
			Switch: "switch.lounge",
			Open:   true,
			Result: rules.Result{
				Zone:     "lounge",
				Mode:     rules.Cooling,
				Decision: rules.Open,
				Reason:   "cooling and 24.0 is above 22.3",
				Measured: true,
				Current:  24,
				Wanted:   22,
				Band:     rules.Band{Min: 21.5, Max: 22.5},
			},
		}},
		Common: &controller.CommonReport{
			Switch:         "switch.hallway",
			Reconciliation: rules.Reconciliation{Zone: "hallway", Decision: rules.Closed, Reason: "another zone is open"},
		},
		Commands: []controller.CommandReport{
			{Command: host.Command{Kind: host.TurnOn, EntityID: "switch.lounge"}},
			{Command: host.Command{Kind: host.TurnOff, EntityID: "switch.hallway"}, Err: errors.New("host offline")},
		},
	}

	r := mocks.NewReporter(t)
	h := New(r, slog.New(slog.DiscardHandler))
	h.status = newStatus(report)
	h.updated = true

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, &http.Request{})
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/json", resp.Header().Get("Content-Type"))
	assert.JSONEq(t, `{
  "time": "2024-07-01T12:00:00Z",
  "event": { "entity": "sensor.lounge", "old": "22", "new": "24" },
  "kinds": [ "sensor" ],
  "zones": [
    {
      "name": "lounge",
      "switch": "switch.lounge",
      "open": true,
      "mode": "cooling",
      "decision": "open",
      "reason": "cooling and 24.0 is above 22.3",
      "band": { "min": 21.5, "max": 22.5 },
      "current": 24,
      "wanted": 22
    }
  ],
  "common": {
    "name": "hallway",
    "switch": "switch.hallway",
    "open": false,
    "decision": "closed",
    "reason": "another zone is open"
  },
  "commands": [
    { "command": "turn_on(switch.lounge)" },
    { "command": "turn_off(switch.hallway)", "error": "host offline" }
  ]
}`, resp.Body.String())
}
