package station

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/nerrad567/weatherstation-core/internal/infrastructure/config"
)

// Controller drives one weather station.
//
// Setup and Unset configure the controller; Start and Stop acquire and
// release the station connection and are safe to repeat. GetData runs
// exactly one fetch, parse, build and reduce cycle. ErrorReport returns the
// diagnostic left by the last failure and ResetError clears it.
//
// Only one GetData may run at a time.
type Controller interface {
	Setup(settings Settings, simulation bool) error
	Unset()
	Start(ctx context.Context) error
	Stop() error
	GetData(ctx context.Context) (TopicData, error)
	ErrorReport() string
	ResetError()
}

// CycleInfo describes the most recent successful cycle.
type CycleInfo struct {
	Header     Header
	FrameBytes int
	Warnings   []CardinalityWarning
	Duration   time.Duration
}

// CycleReporter is implemented by controllers that expose cycle details.
type CycleReporter interface {
	LastCycle() CycleInfo
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Transport names accepted in Settings.Transport.
const (
	TransportTCP    = "tcp"
	TransportSerial = "serial"
)

const defaultBufferSize = 4096

// Settings configures a controller's connection.
type Settings struct {
	// Host and Port are the listen address for the tcp transport.
	Host string
	Port int
	// BufferSize sizes the read buffer kept across cycles.
	BufferSize int
	// Timeout bounds the wait for one complete frame.
	Timeout   time.Duration
	Transport string
	// SerialDevice and BaudRate configure the serial transport.
	SerialDevice string
	BaudRate     int
}

// SettingsFromConfig converts the station section of the service config.
func SettingsFromConfig(c config.StationConfig) Settings {
	return Settings{
		Host:         c.Host,
		Port:         c.Port,
		BufferSize:   c.BufferSize,
		Timeout:      time.Duration(c.Timeout * float64(time.Second)),
		Transport:    c.Transport,
		SerialDevice: c.Serial.Device,
		BaudRate:     c.Serial.BaudRate,
	}
}

// validate fills defaults and rejects unusable settings.
func (s Settings) validate(simulation bool) (Settings, error) {
	if s.BufferSize == 0 {
		s.BufferSize = defaultBufferSize
	}
	if s.Transport == "" {
		s.Transport = TransportTCP
	}

	switch {
	case s.Timeout <= 0:
		return s, fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidSettings, s.Timeout)
	case s.BufferSize < 0:
		return s, fmt.Errorf("%w: buffer size must be positive, got %d", ErrInvalidSettings, s.BufferSize)
	case s.Port < 0 || s.Port > 65535:
		return s, fmt.Errorf("%w: port %d out of range", ErrInvalidSettings, s.Port)
	case s.Transport != TransportTCP && s.Transport != TransportSerial:
		return s, fmt.Errorf("%w: unknown transport %q", ErrInvalidSettings, s.Transport)
	case s.Transport == TransportSerial && s.SerialDevice == "" && !simulation:
		return s, fmt.Errorf("%w: serial transport needs a device", ErrInvalidSettings)
	}
	return s, nil
}

// Factory creates an unconfigured controller.
type Factory func(logger Logger) Controller

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a controller type available to New under name.
// It panics if name is registered twice.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic("station: Register called twice for " + name)
	}
	registry[name] = factory
}

// New creates a controller of the named type.
//
// Parameters:
//   - name: Registered controller type (e.g. "lsst")
//   - logger: Passed to the controller factory
//
// Returns:
//   - Controller: Unconfigured controller; call Setup before Start
//   - error: ErrUnknownController if name is not registered
func New(name string, logger Logger) (Controller, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownController, name, Types())
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return factory(logger), nil
}

// Types returns the registered controller types, sorted.
func Types() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func init() {
	Register("lsst", func(logger Logger) Controller { return NewLSST(logger) })
}
