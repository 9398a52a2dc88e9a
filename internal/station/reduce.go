package station

// TopicData is a reduced frame: topic name to field name to value.
// Values are float64 for measurements and string for display fields.
type TopicData map[string]map[string]any

// Float returns a numeric field.
func (d TopicData) Float(topic, field string) (float64, bool) {
	v, ok := d[topic][field].(float64)
	return v, ok
}

// Reduce maps a store onto the topic map.
//
// Display fields (empty path) become "". Every other field normalizes the
// raw values of its leaf, drops NaN and Sentinel values and combines the
// rest according to its Aggregation; with nothing left the field is
// Sentinel. A path missing from the store returns a *ConsistencyError.
//
// Reduce does not modify its arguments.
func Reduce(store *Store, m *TopicMap) (TopicData, error) {
	out := make(TopicData, len(m.topics))

	for _, f := range m.fields {
		fields, ok := out[f.Topic]
		if !ok {
			fields = make(map[string]any)
			out[f.Topic] = fields
		}

		if f.Path.IsZero() {
			fields[f.Field] = ""
			continue
		}

		raw, ok := store.values[f.Path]
		if !ok {
			return nil, &ConsistencyError{Topic: f.Topic, Field: f.Field, Path: f.Path}
		}

		valid := make([]float64, 0, len(raw))
		for _, cv := range raw {
			if v := Normalize(cv.Raw); !IsSentinel(v) {
				valid = append(valid, v)
			}
		}
		fields[f.Field] = aggregate(valid, f.Aggregation)
	}

	return out, nil
}

func aggregate(values []float64, agg Aggregation) float64 {
	switch {
	case len(values) == 0:
		return Sentinel
	case len(values) == 1, agg == AggregatePrimary:
		return values[0]
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
