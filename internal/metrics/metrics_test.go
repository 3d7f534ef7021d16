package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func gatherValue(t *testing.T, m *Metrics, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		var total float64
		for _, metric := range f.GetMetric() {
			if g := metric.GetGauge(); g != nil {
				total += g.GetValue()
			}
			if c := metric.GetCounter(); c != nil {
				total += c.GetValue()
			}
		}
		return total
	}
	t.Fatalf("metric %q not found", name)
	return 0
}

func TestMetrics_Values(t *testing.T) {
	m := New()

	m.SetEngineRunning(true)
	m.IncRestarts()
	m.IncRestarts()
	m.IncStartFailures()
	m.SetDevicesConnected(2)
	m.IncInstrumentChanges("next")
	m.IncInstrumentChanges("previous")
	m.SetStatusLevel(3)

	checks := map[string]float64{
		"pianod_engine_running":              1,
		"pianod_engine_restarts_total":       2,
		"pianod_engine_start_failures_total": 1,
		"pianod_midi_devices_connected":      2,
		"pianod_instrument_changes_total":    2,
		"pianod_status_level":                3,
	}
	for name, want := range checks {
		if got := gatherValue(t, m, name); got != want {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}

	m.SetEngineRunning(false)
	if got := gatherValue(t, m, "pianod_engine_running"); got != 0 {
		t.Errorf("engine_running after stop = %v", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.SetDevicesConnected(1)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "pianod_midi_devices_connected 1") {
		t.Errorf("exposition missing gauge:\n%s", body)
	}
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.IncRestarts()
	if got := gatherValue(t, b, "pianod_engine_restarts_total"); got != 0 {
		t.Errorf("registries share state: %v", got)
	}
}
