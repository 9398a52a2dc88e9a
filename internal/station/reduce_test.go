package station

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func stringsReader(s string) *strings.Reader { return strings.NewReader(s) }

func TestAggregate_SentinelAlgebra(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
		agg  Aggregation
		want float64
	}{
		{"both missing", []string{":-99;", ":-99;"}, AggregateMean, Sentinel},
		{"one missing", []string{":-99;", ":22.1;"}, AggregateMean, 22.1},
		{"mean of two", []string{":22.2;", ":22.1;"}, AggregateMean, 22.15},
		{"unparsable dropped", []string{"garbage", ":22.1;"}, AggregateMean, 22.1},
		{"all unparsable", []string{"///", ""}, AggregateMean, Sentinel},
		{"single channel", []string{":0.0;"}, AggregateMean, 0},
		{"primary takes first", []string{":301;", ":138;"}, AggregatePrimary, 301},
		{"primary skips missing", []string{":-99;", ":138;"}, AggregatePrimary, 138},
		{"primary all missing", []string{":-99;", "x"}, AggregatePrimary, Sentinel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, topics := singleLeaf(t, tt.raw, tt.agg)
			data, err := Reduce(store, topics)
			if err != nil {
				t.Fatalf("Reduce() error = %v", err)
			}
			got, ok := data.Float("t", "f")
			if !ok {
				t.Fatalf("field t.f missing or not numeric: %v", data)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("t.f = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReduce_DisplayFields(t *testing.T) {
	store, _ := singleLeaf(t, []string{":1;"}, AggregateMean)
	topics, err := NewTopicMap([]TopicField{{Topic: "t", Field: "sensorName"}})
	if err != nil {
		t.Fatalf("NewTopicMap() error = %v", err)
	}

	data, err := Reduce(store, topics)
	if err != nil {
		t.Fatalf("Reduce() error = %v", err)
	}
	if got := data["t"]["sensorName"]; got != "" {
		t.Errorf("sensorName = %#v, want empty string", got)
	}
}

func TestReduce_UnresolvedPath(t *testing.T) {
	store, _ := singleLeaf(t, []string{":1;"}, AggregateMean)
	topics, err := NewTopicMap([]TopicField{
		{Topic: "t", Field: "f", Path: LeafKey{"XX", "AVG", "PT1M"}},
	})
	if err != nil {
		t.Fatalf("NewTopicMap() error = %v", err)
	}

	data, err := Reduce(store, topics)
	if data != nil {
		t.Errorf("Reduce() data = %v, want nil", data)
	}
	if !errors.Is(err, ErrInternalConsistency) {
		t.Errorf("Reduce() error = %v, want ErrInternalConsistency", err)
	}
}

func TestReduce_IsPure(t *testing.T) {
	frame, err := ParseFrame(simulationText(t))
	if err != nil {
		t.Fatalf("ParseFrame() error = %v", err)
	}
	store, _, err := BuildStore(context.Background(), DefaultSchema(), frame.Records)
	if err != nil {
		t.Fatalf("BuildStore() error = %v", err)
	}

	before := store.Keys()
	first, err := Reduce(store, DefaultTopicMap())
	if err != nil {
		t.Fatalf("Reduce() error = %v", err)
	}
	second, err := Reduce(store, DefaultTopicMap())
	if err != nil {
		t.Fatalf("Reduce() error = %v", err)
	}

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated Reduce() differs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(before, store.Keys()); diff != "" {
		t.Errorf("store keys changed (-before +after):\n%s", diff)
	}
}

func TestReduce_ReferenceFrame(t *testing.T) {
	frame, err := ParseFrame(simulationText(t))
	if err != nil {
		t.Fatalf("ParseFrame() error = %v", err)
	}
	store, _, err := BuildStore(context.Background(), DefaultSchema(), frame.Records)
	if err != nil {
		t.Fatalf("BuildStore() error = %v", err)
	}
	data, err := Reduce(store, DefaultTopicMap())
	if err != nil {
		t.Fatalf("Reduce() error = %v", err)
	}

	tests := []struct {
		topic, field string
		want         float64
	}{
		{"weather", "ambient_temp", 22.15},
		{"weather", "humidity", 59},
		{"weather", "pressure", 1002.35},
		{"windDirection", "value", 301},
		{"windDirection", "avg2M", 270},
		{"windDirection", "max10M", 328},
		{"windGustDirection", "value10M", 186},
		{"windSpeed", "value", 0},
		{"windSpeed", "avg10M", 0.05},
		{"windSpeed", "max2M", 0.1},
		{"airTemperature", "min24H", 20.5},
		{"relativeHumidity", "avg24H", 58},
		{"dewPoint", "avg1M", 13.75},
		{"snowDepth", "min24H", 11873.7},
		{"solarNetRadiation", "avg1M", -8},
		{"airPressure", "patrValue3H", -0.8},
		{"airPressure", "pateValue3H", 8},
		{"precipitation", "prSum1H", 0},
		{"soilTemperature", "max24H", 22.5},
	}

	for _, tt := range tests {
		t.Run(tt.topic+"."+tt.field, func(t *testing.T) {
			got, ok := data.Float(tt.topic, tt.field)
			if !ok {
				t.Fatalf("%s.%s missing", tt.topic, tt.field)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("%s.%s = %v, want %v", tt.topic, tt.field, got, tt.want)
			}
		})
	}

	for topic, fields := range data {
		if v, ok := fields["sensorName"]; ok && v != "" {
			t.Errorf("%s.sensorName = %#v, want empty string", topic, v)
		}
	}
}

// singleLeaf builds a store holding one leaf T/AVG/PT1M with the given raw
// values, and a topic map publishing it as t.f.
func singleLeaf(t *testing.T, raw []string, agg Aggregation) (*Store, *TopicMap) {
	t.Helper()

	channels := make([]int, len(raw))
	records := make([]Record, len(raw))
	for i, r := range raw {
		channels[i] = i + 1
		records[i] = Record{Category: "T", Statistic: "AVG", Period: "PT1M", Channel: i + 1, Value: r}
	}

	schema, err := NewSchema([]Leaf{{"T", "AVG", "PT1M", channels}})
	if err != nil {
		t.Fatalf("NewSchema() error = %v", err)
	}
	store, _, err := BuildStore(context.Background(), schema, NewRecordSet(records))
	if err != nil {
		t.Fatalf("BuildStore() error = %v", err)
	}
	topics, err := NewTopicMap([]TopicField{{Topic: "t", Field: "f", Path: LeafKey{"T", "AVG", "PT1M"}, Aggregation: agg}})
	if err != nil {
		t.Fatalf("NewTopicMap() error = %v", err)
	}
	return store, topics
}
