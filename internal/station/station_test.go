package station

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/nerrad567/weatherstation-core/internal/infrastructure/config"
)

func TestNew(t *testing.T) {
	c, err := New("lsst", nil)
	if err != nil {
		t.Fatalf("New(lsst) error = %v", err)
	}
	if _, ok := c.(*LSST); !ok {
		t.Errorf("New(lsst) = %T, want *LSST", c)
	}
	if _, ok := c.(CycleReporter); !ok {
		t.Error("lsst controller does not report cycles")
	}

	if _, err := New("vaisala-x", nil); !errors.Is(err, ErrUnknownController) {
		t.Errorf("New(unknown) error = %v, want ErrUnknownController", err)
	}
}

func TestRegister(t *testing.T) {
	Register("test-station", func(logger Logger) Controller { return NewLSST(logger) })
	t.Cleanup(func() {
		registryMu.Lock()
		delete(registry, "test-station")
		registryMu.Unlock()
	})

	if !slices.Contains(Types(), "test-station") {
		t.Errorf("Types() = %v, want test-station registered", Types())
	}
	if !slices.IsSorted(Types()) {
		t.Errorf("Types() = %v, want sorted", Types())
	}

	defer func() {
		if recover() == nil {
			t.Error("duplicate Register() did not panic")
		}
	}()
	Register("lsst", func(logger Logger) Controller { return NewLSST(logger) })
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name       string
		settings   Settings
		simulation bool
		wantErr    bool
	}{
		{"defaults filled", Settings{Timeout: time.Second}, false, false},
		{"zero timeout", Settings{}, false, true},
		{"negative buffer", Settings{Timeout: time.Second, BufferSize: -1}, false, true},
		{"port out of range", Settings{Timeout: time.Second, Port: 70000}, false, true},
		{"unknown transport", Settings{Timeout: time.Second, Transport: "udp"}, false, true},
		{"serial without device", Settings{Timeout: time.Second, Transport: TransportSerial}, false, true},
		{"serial without device in simulation", Settings{Timeout: time.Second, Transport: TransportSerial}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.settings.validate(tt.simulation)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidSettings) {
					t.Errorf("validate() error = %v, want ErrInvalidSettings", err)
				}
				return
			}
			if got.BufferSize == 0 || got.Transport == "" {
				t.Errorf("validate() did not fill defaults: %+v", got)
			}
		})
	}
}

func TestSettingsFromConfig(t *testing.T) {
	cfg := config.StationConfig{
		Type:       "lsst",
		Host:       "0.0.0.0",
		Port:       5000,
		BufferSize: 1024,
		Timeout:    1.5,
		Transport:  "serial",
	}
	cfg.Serial.Device = "/dev/ttyUSB0"
	cfg.Serial.BaudRate = 9600

	got := SettingsFromConfig(cfg)
	want := Settings{
		Host:         "0.0.0.0",
		Port:         5000,
		BufferSize:   1024,
		Timeout:      1500 * time.Millisecond,
		Transport:    "serial",
		SerialDevice: "/dev/ttyUSB0",
		BaudRate:     9600,
	}
	if got != want {
		t.Errorf("SettingsFromConfig() = %+v, want %+v", got, want)
	}
}
