package station

import (
	"encoding/json"
	"fmt"
)

// Aggregation selects how a field combines the valid values of its channels.
type Aggregation int

const (
	// AggregateMean publishes the arithmetic mean of all valid channels.
	AggregateMean Aggregation = iota
	// AggregatePrimary publishes the first valid channel in declared order.
	// Used for wind directions, where averaging angles is meaningless.
	AggregatePrimary
)

func (a Aggregation) String() string {
	switch a {
	case AggregateMean:
		return "mean"
	case AggregatePrimary:
		return "primary"
	default:
		return fmt.Sprintf("Aggregation(%d)", int(a))
	}
}

// MarshalText encodes the aggregation by name.
func (a Aggregation) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// TopicField maps one published field to a schema path.
type TopicField struct {
	Topic string  `json:"topic"`
	Field string  `json:"field"`
	Path  LeafKey `json:"path"`
	// Aggregation is ignored for display fields (zero Path).
	Aggregation Aggregation `json:"aggregation"`
}

// TopicMap is an immutable table of topic fields.
type TopicMap struct {
	fields []TopicField
	topics []string
}

// NewTopicMap builds a topic map, rejecting duplicate topic/field pairs.
func NewTopicMap(fields []TopicField) (*TopicMap, error) {
	m := &TopicMap{fields: make([]TopicField, 0, len(fields))}
	seen := make(map[[2]string]bool, len(fields))
	topicSeen := make(map[string]bool)

	for _, f := range fields {
		if f.Topic == "" || f.Field == "" {
			return nil, fmt.Errorf("%w: topic field with empty name", ErrInvalidSettings)
		}
		key := [2]string{f.Topic, f.Field}
		if seen[key] {
			return nil, fmt.Errorf("%w: %s.%s mapped twice", ErrInvalidSettings, f.Topic, f.Field)
		}
		seen[key] = true
		if !topicSeen[f.Topic] {
			topicSeen[f.Topic] = true
			m.topics = append(m.topics, f.Topic)
		}
		m.fields = append(m.fields, f)
	}
	return m, nil
}

// Fields returns a copy of the table in declaration order.
func (m *TopicMap) Fields() []TopicField {
	return append([]TopicField(nil), m.fields...)
}

// Topics returns the topic names in declaration order.
func (m *TopicMap) Topics() []string {
	return append([]string(nil), m.topics...)
}

// Check verifies that every non-empty path exists in schema. A failure is
// a *ConsistencyError for the first unresolved field.
func (m *TopicMap) Check(schema *Schema) error {
	for _, f := range m.fields {
		if f.Path.IsZero() {
			continue
		}
		if _, ok := schema.Leaf(f.Path); !ok {
			return &ConsistencyError{Topic: f.Topic, Field: f.Field, Path: f.Path}
		}
	}
	return nil
}

// MarshalJSON encodes the table as a list of fields.
func (m *TopicMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.fields)
}

func leafPath(category, statistic, period string) LeafKey {
	return LeafKey{Category: category, Statistic: statistic, Period: period}
}

// statisticsFields returns the 24 hour / 1 minute summary fields shared by
// several topics.
func statisticsFields(topic, category string) []TopicField {
	return []TopicField{
		{Topic: topic, Field: "avg24H", Path: leafPath(category, "AVG", "PT24H")},
		{Topic: topic, Field: "avg1M", Path: leafPath(category, "AVG", "PT1M")},
		{Topic: topic, Field: "max24H", Path: leafPath(category, "MAX", "PT24H")},
		{Topic: topic, Field: "min24H", Path: leafPath(category, "MIN", "PT24H")},
		{Topic: topic, Field: "sensorName"},
	}
}

// windFields returns the instantaneous, 2 minute and 10 minute wind fields.
func windFields(topic, category string, agg Aggregation) []TopicField {
	return []TopicField{
		{Topic: topic, Field: "value", Path: leafPath(category, "VALUE", ""), Aggregation: agg},
		{Topic: topic, Field: "avg2M", Path: leafPath(category, "AVG", "PT2M"), Aggregation: agg},
		{Topic: topic, Field: "max2M", Path: leafPath(category, "MAX", "PT2M"), Aggregation: agg},
		{Topic: topic, Field: "min2M", Path: leafPath(category, "MIN", "PT2M"), Aggregation: agg},
		{Topic: topic, Field: "avg10M", Path: leafPath(category, "AVG", "PT10M"), Aggregation: agg},
		{Topic: topic, Field: "max10M", Path: leafPath(category, "MAX", "PT10M"), Aggregation: agg},
		{Topic: topic, Field: "sensorName"},
	}
}

func lsstTopicFields() []TopicField {
	var fields []TopicField
	add := func(f ...TopicField) { fields = append(fields, f...) }

	add(
		TopicField{Topic: "weather", Field: "ambient_temp", Path: leafPath("TA", "AVG", "PT1M")},
		TopicField{Topic: "weather", Field: "humidity", Path: leafPath("RH", "AVG", "PT1M")},
		TopicField{Topic: "weather", Field: "pressure", Path: leafPath("PA", "AVG", "PT1M")},
	)
	add(windFields("windDirection", "WD", AggregatePrimary)...)
	add(
		TopicField{Topic: "windGustDirection", Field: "value10M", Path: leafPath("WGD", "VALUE", ""), Aggregation: AggregatePrimary},
		TopicField{Topic: "windGustDirection", Field: "sensorName"},
	)
	add(windFields("windSpeed", "WS", AggregateMean)...)
	add(statisticsFields("airTemperature", "TA")...)
	add(statisticsFields("relativeHumidity", "RH")...)
	add(
		TopicField{Topic: "dewPoint", Field: "avg1M", Path: leafPath("TD", "AVG", "PT1M")},
		TopicField{Topic: "dewPoint", Field: "sensorName"},
	)
	add(statisticsFields("snowDepth", "SNH")...)
	add(statisticsFields("solarNetRadiation", "SRN")...)
	add(
		TopicField{Topic: "airPressure", Field: "paAvg1M", Path: leafPath("PA", "AVG", "PT1M")},
		TopicField{Topic: "airPressure", Field: "patrValue3H", Path: leafPath("PATR", "VALUE", "")},
		TopicField{Topic: "airPressure", Field: "pateValue3H", Path: leafPath("PATE", "VALUE", "")},
		TopicField{Topic: "airPressure", Field: "sensorName"},
	)
	add(
		TopicField{Topic: "precipitation", Field: "prSum1M", Path: leafPath("PR", "SUM", "PT1M")},
		TopicField{Topic: "precipitation", Field: "prSum1H", Path: leafPath("PR", "SUM", "PT1H")},
		TopicField{Topic: "precipitation", Field: "prfSum1M", Path: leafPath("PRF", "SUM", "PT1M")},
		TopicField{Topic: "precipitation", Field: "sensorName"},
	)
	add(statisticsFields("soilTemperature", "TS")...)
	return fields
}

var defaultTopicMap = func() *TopicMap {
	m, err := NewTopicMap(lsstTopicFields())
	if err != nil {
		panic(err)
	}
	return m
}()

// DefaultTopicMap returns the published topics for the LSST schema.
func DefaultTopicMap() *TopicMap { return defaultTopicMap }
