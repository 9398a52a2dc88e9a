package telemetry

import (
	"context"
	"testing"
	"time"
)

type fakeStatus struct {
	state State
	stats Stats
}

func (f fakeStatus) State() State { return f.state }
func (f fakeStatus) Stats() Stats { return f.stats }

func TestHealthReporter_DetermineStatus(t *testing.T) {
	tests := []struct {
		name      string
		state     State
		connected bool
		want      HealthStatus
	}{
		{"enabled and connected", StateEnabled, true, HealthHealthy},
		{"enabled mqtt down", StateEnabled, false, HealthDegraded},
		{"disabled", StateDisabled, true, HealthDegraded},
		{"fault", StateFault, true, HealthUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthReporter(HealthReporterConfig{
				Publisher: &fakeBus{connected: tt.connected},
				Source:    fakeStatus{state: tt.state},
			})
			if got, _ := h.determineStatus(); got != tt.want {
				t.Errorf("determineStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHealthReporter_PublishNow(t *testing.T) {
	bus := &fakeBus{connected: true}
	h := NewHealthReporter(HealthReporterConfig{
		Topic:     "weatherstation/lsst/health",
		Version:   "1.2.3",
		Publisher: bus,
		Source:    fakeStatus{state: StateEnabled, stats: Stats{Cycles: 4, Successes: 3, NoData: 1}},
	})

	if err := h.PublishNow(); err != nil {
		t.Fatalf("PublishNow() error = %v", err)
	}
	msgs := bus.list()
	if len(msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(msgs))
	}
	if msgs[0].topic != "weatherstation/lsst/health" || !msgs[0].retained {
		t.Errorf("published to %q retained=%v", msgs[0].topic, msgs[0].retained)
	}
	msg, ok := msgs[0].payload.(HealthMessage)
	if !ok {
		t.Fatalf("payload type = %T", msgs[0].payload)
	}
	if msg.Status != HealthHealthy || msg.State != StateEnabled || msg.Version != "1.2.3" || msg.Stats.Cycles != 4 {
		t.Errorf("message = %+v", msg)
	}
}

func TestHealthReporter_StartStop(t *testing.T) {
	bus := &fakeBus{connected: true}
	h := NewHealthReporter(HealthReporterConfig{
		Topic:     "health",
		Interval:  10 * time.Millisecond,
		Publisher: bus,
		Source:    fakeStatus{state: StateEnabled},
	})

	h.Start(context.Background())
	if !waitFor(func() bool { return len(bus.list()) >= 3 }) {
		t.Fatal("reporter did not publish periodically")
	}
	h.Stop()
	h.Stop()

	msgs := bus.list()
	last, _ := msgs[len(msgs)-1].payload.(HealthMessage)
	if last.Status != HealthStopping {
		t.Errorf("final status = %q, want %q", last.Status, HealthStopping)
	}
	count := len(msgs)
	time.Sleep(30 * time.Millisecond)
	if got := len(bus.list()); got != count {
		t.Errorf("published %d messages after Stop", got-count)
	}
}

func TestHealthReporter_NilPublisher(t *testing.T) {
	h := NewHealthReporter(HealthReporterConfig{Source: fakeStatus{state: StateEnabled}})
	if err := h.PublishNow(); err != nil {
		t.Errorf("PublishNow() error = %v, want nil", err)
	}
	if h.interval != defaultHealthInterval {
		t.Errorf("interval = %v, want %v", h.interval, defaultHealthInterval)
	}
}
