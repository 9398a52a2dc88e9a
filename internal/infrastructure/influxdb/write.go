package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// cycleMeasurement holds one point per telemetry cycle.
const cycleMeasurement = "weatherstation_cycles"

// WriteTopic writes one decoded topic as a point: the topic is the
// measurement and each numeric field a field. Nothing is written when
// fields is empty.
func (c *Client) WriteTopic(topic string, tags map[string]string, fields map[string]float64, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	if p := topicPoint(topic, tags, fields, ts); p != nil {
		c.writeAPI.WritePoint(p)
	}
}

// WriteCycle records the outcome of one telemetry cycle.
func (c *Client) WriteCycle(tags map[string]string, outcome string, duration time.Duration, frameBytes int, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(cyclePoint(tags, outcome, duration, frameBytes, ts))
}

// WritePoint writes an arbitrary point stamped with the current time.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

func topicPoint(topic string, tags map[string]string, fields map[string]float64, ts time.Time) *write.Point {
	if len(fields) == 0 {
		return nil
	}
	values := make(map[string]any, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	return write.NewPoint(topic, tags, values, ts)
}

func cyclePoint(tags map[string]string, outcome string, duration time.Duration, frameBytes int, ts time.Time) *write.Point {
	// NewPoint sorts tags; AddTag afterwards would not.
	all := make(map[string]string, len(tags)+1)
	for k, v := range tags {
		all[k] = v
	}
	all["outcome"] = outcome
	return write.NewPoint(cycleMeasurement, all, map[string]any{
		"duration_ms": float64(duration) / float64(time.Millisecond),
		"frame_bytes": int64(frameBytes),
	}, ts)
}
