package telemetry

import (
	"context"
	"math"
	"slices"
	"time"

	"github.com/nerrad567/weatherstation-core/internal/history"
	"github.com/nerrad567/weatherstation-core/internal/station"
)

// State is the lifecycle state of a Service.
type State string

const (
	StateDisabled State = "disabled"
	StateEnabled  State = "enabled"
	StateFault    State = "fault"
)

// Snapshot is the decoded output of one successful cycle.
type Snapshot struct {
	CycleID   string            `json:"cycle_id"`
	Time      time.Time         `json:"time"`
	StationID string            `json:"station_id,omitempty"`
	MessageID string            `json:"message_id,omitempty"`
	Data      station.TopicData `json:"data"`
}

// Topics returns the snapshot's topic names in sorted order.
func (s Snapshot) Topics() []string {
	names := make([]string, 0, len(s.Data))
	for name := range s.Data {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// TopicMessage is the per-topic payload published by the bus sinks.
type TopicMessage struct {
	CycleID   string         `json:"cycle_id"`
	Timestamp time.Time      `json:"timestamp"`
	StationID string         `json:"station_id,omitempty"`
	Topic     string         `json:"topic"`
	Fields    map[string]any `json:"fields"`
}

// Message returns the payload for one topic.
func (s Snapshot) Message(topic string) TopicMessage {
	return TopicMessage{
		CycleID:   s.CycleID,
		Timestamp: s.Time,
		StationID: s.StationID,
		Topic:     topic,
		Fields:    s.Data[topic],
	}
}

// Event is an errorCode event.
type Event struct {
	Code      int       `json:"errorCode"`
	Report    string    `json:"errorReport"`
	Traceback string    `json:"traceback,omitempty"`
	CycleID   string    `json:"cycle_id,omitempty"`
	Time      time.Time `json:"timestamp"`
}

// CycleResult summarises one cycle, successful or not.
type CycleResult struct {
	ID         string
	Started    time.Time
	Duration   time.Duration
	Outcome    string
	StationID  string
	MessageID  string
	FrameBytes int
	Warnings   int
	Err        error
}

// Stats are the service's cycle counters.
type Stats struct {
	Cycles      uint64    `json:"cycles"`
	Successes   uint64    `json:"successes"`
	NoData      uint64    `json:"no_data"`
	Failures    uint64    `json:"failures"`
	LastSuccess time.Time `json:"last_success,omitzero"`
}

// Sink receives every published snapshot.
type Sink interface {
	Name() string
	Publish(ctx context.Context, snap Snapshot) error
}

// EventSink is implemented by sinks that also carry errorCode events.
type EventSink interface {
	PublishEvent(ctx context.Context, ev Event) error
}

// CycleSink is implemented by sinks that record every cycle outcome.
type CycleSink interface {
	RecordCycle(res CycleResult)
}

// HistoryStore persists cycles and faults. *history.Repository implements it.
type HistoryStore interface {
	RecordCycle(ctx context.Context, c history.Cycle) error
	RecordFault(ctx context.Context, f history.Fault) (int64, error)
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// NumericFields returns the float fields of a topic, leaving out display
// strings, NaN and the no-data sentinel.
func NumericFields(fields map[string]any) map[string]float64 {
	out := make(map[string]float64, len(fields))
	for name, v := range fields {
		f, ok := v.(float64)
		if !ok || math.IsNaN(f) || station.IsSentinel(f) {
			continue
		}
		out[name] = f
	}
	return out
}
