package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/weatherstation-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/weatherstation-core/internal/infrastructure/nats"
)

// Sink names, also used as metric labels.
const (
	SinkMQTT      = "mqtt"
	SinkInfluxDB  = "influxdb"
	SinkNATS      = "nats"
	SinkBroadcast = "websocket"
)

// MQTTPublisher is the subset of *mqtt.Client used by MQTTSink.
type MQTTPublisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// MQTTSink publishes one message per topic under the site telemetry tree.
type MQTTSink struct {
	client MQTTPublisher
	topics mqtt.Topics
}

// NewMQTTSink returns a sink publishing through client.
func NewMQTTSink(client MQTTPublisher, topics mqtt.Topics) *MQTTSink {
	return &MQTTSink{client: client, topics: topics}
}

func (s *MQTTSink) Name() string { return SinkMQTT }

func (s *MQTTSink) Publish(_ context.Context, snap Snapshot) error {
	var errs []error
	for _, topic := range snap.Topics() {
		if err := s.client.PublishJSON(s.topics.Telemetry(topic), snap.Message(topic), false); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", topic, err))
		}
	}
	return errors.Join(errs...)
}

func (s *MQTTSink) PublishEvent(_ context.Context, ev Event) error {
	return s.client.PublishJSON(s.topics.ErrorCode(), ev, false)
}

// NATSPublisher is the subset of *nats.Client used by NATSSink.
type NATSPublisher interface {
	PublishJSON(subject string, v any) error
}

// NATSSink publishes one message per topic on the site telemetry subjects.
type NATSSink struct {
	client   NATSPublisher
	subjects nats.Subjects
}

// NewNATSSink returns a sink publishing through client.
func NewNATSSink(client NATSPublisher, subjects nats.Subjects) *NATSSink {
	return &NATSSink{client: client, subjects: subjects}
}

func (s *NATSSink) Name() string { return SinkNATS }

func (s *NATSSink) Publish(_ context.Context, snap Snapshot) error {
	var errs []error
	for _, topic := range snap.Topics() {
		if err := s.client.PublishJSON(s.subjects.Telemetry(topic), snap.Message(topic)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", topic, err))
		}
	}
	return errors.Join(errs...)
}

func (s *NATSSink) PublishEvent(_ context.Context, ev Event) error {
	return s.client.PublishJSON(s.subjects.Event("errorCode"), ev)
}

// InfluxWriter is the subset of *influxdb.Client used by InfluxSink.
type InfluxWriter interface {
	WriteTopic(topic string, tags map[string]string, fields map[string]float64, ts time.Time)
	WriteCycle(tags map[string]string, outcome string, duration time.Duration, frameBytes int, ts time.Time)
}

// InfluxSink writes numeric topic fields and cycle outcomes to InfluxDB.
// Writes are batched by the client, so Publish never fails.
type InfluxSink struct {
	writer InfluxWriter
	site   string
}

// NewInfluxSink returns a sink writing through w, tagging points with site.
func NewInfluxSink(w InfluxWriter, site string) *InfluxSink {
	return &InfluxSink{writer: w, site: site}
}

func (s *InfluxSink) Name() string { return SinkInfluxDB }

func (s *InfluxSink) Publish(_ context.Context, snap Snapshot) error {
	tags := s.tags(snap.StationID)
	for _, topic := range snap.Topics() {
		s.writer.WriteTopic(topic, tags, NumericFields(snap.Data[topic]), snap.Time)
	}
	return nil
}

func (s *InfluxSink) RecordCycle(res CycleResult) {
	s.writer.WriteCycle(s.tags(res.StationID), res.Outcome, res.Duration, res.FrameBytes, res.Started)
}

func (s *InfluxSink) tags(stationID string) map[string]string {
	tags := map[string]string{"site": s.site}
	if stationID != "" {
		tags["station"] = stationID
	}
	return tags
}

// Broadcaster is the subset of the websocket hub used by BroadcastSink.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Websocket channels.
const (
	ChannelTelemetry = "telemetry"
	ChannelEvents    = "events"
)

// BroadcastSink forwards snapshots and events to live websocket clients.
type BroadcastSink struct {
	hub Broadcaster
}

// NewBroadcastSink returns a sink broadcasting on hub.
func NewBroadcastSink(hub Broadcaster) *BroadcastSink {
	return &BroadcastSink{hub: hub}
}

func (s *BroadcastSink) Name() string { return SinkBroadcast }

func (s *BroadcastSink) Publish(_ context.Context, snap Snapshot) error {
	s.hub.Broadcast(ChannelTelemetry, snap)
	return nil
}

func (s *BroadcastSink) PublishEvent(_ context.Context, ev Event) error {
	s.hub.Broadcast(ChannelEvents, ev)
	return nil
}

var (
	_ EventSink = (*MQTTSink)(nil)
	_ EventSink = (*NATSSink)(nil)
	_ EventSink = (*BroadcastSink)(nil)
	_ CycleSink = (*InfluxSink)(nil)
)
