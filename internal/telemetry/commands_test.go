package telemetry

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
)

type fakeLifecycle struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeLifecycle) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeLifecycle) Enable(context.Context) error {
	f.record("enable")
	return nil
}

func (f *fakeLifecycle) Disable() error {
	f.record("disable")
	return nil
}

func (f *fakeLifecycle) ClearFault() error {
	f.record("clear-fault")
	return errBoom
}

func (f *fakeLifecycle) ResetError() { f.record("reset-error") }

func TestCommander_Handle(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"weatherstation/lsst/command/enable", "enable"},
		{"weatherstation/lsst/command/disable", "disable"},
		{"weatherstation/lsst/command/clear-fault", "clear-fault"},
		{"weatherstation/lsst/command/reset-error", "reset-error"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			lc := &fakeLifecycle{}
			c := NewCommander(context.Background(), lc, nil)

			if err := c.Handle(tt.topic, nil); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			c.Wait()
			if !slices.Equal(lc.calls, []string{tt.want}) {
				t.Errorf("calls = %v, want [%s]", lc.calls, tt.want)
			}
		})
	}
}

func TestCommander_UnknownCommand(t *testing.T) {
	lc := &fakeLifecycle{}
	c := NewCommander(context.Background(), lc, nil)

	err := c.Handle("weatherstation/lsst/command/reboot", []byte("{}"))
	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("Handle() error = %v, want ErrUnknownCommand", err)
	}
	c.Wait()
	if len(lc.calls) != 0 {
		t.Errorf("calls = %v, want none", lc.calls)
	}
}

func TestCommander_DrivesService(t *testing.T) {
	ctrl := newFakeController()
	svc, _, _ := newTestService(t, ctrl)
	c := NewCommander(context.Background(), svc, nil)

	if err := c.Handle("weatherstation/lsst/command/enable", nil); err != nil {
		t.Fatalf("Handle(enable) error = %v", err)
	}
	c.Wait()
	if got := svc.State(); got != StateEnabled {
		t.Fatalf("State() = %q, want %q", got, StateEnabled)
	}

	if err := c.Handle("weatherstation/lsst/command/disable", nil); err != nil {
		t.Fatalf("Handle(disable) error = %v", err)
	}
	c.Wait()
	if got := svc.State(); got != StateDisabled {
		t.Errorf("State() = %q, want %q", got, StateDisabled)
	}
}
