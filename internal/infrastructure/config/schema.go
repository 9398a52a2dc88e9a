package config

import (
	_ "embed"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed station.schema.json
var stationSchemaJSON []byte

var stationSchema = gojsonschema.NewBytesLoader(stationSchemaJSON)

// StationSchema returns the JSON Schema used to validate the station section.
func StationSchema() []byte {
	out := make([]byte, len(stationSchemaJSON))
	copy(out, stationSchemaJSON)
	return out
}

// ValidateStation checks a station section against the embedded JSON Schema
// and returns one message per violation.
func ValidateStation(s StationConfig) []string {
	result, err := gojsonschema.Validate(stationSchema, gojsonschema.NewGoLoader(s))
	if err != nil {
		return []string{fmt.Sprintf("station: schema validation failed: %v", err)}
	}
	if result.Valid() {
		return nil
	}

	var errs []string
	for _, e := range result.Errors() {
		if wrapperErrors[e.Type()] {
			continue
		}
		errs = append(errs, fmt.Sprintf("station.%s: %s", e.Field(), e.Description()))
	}
	if len(errs) == 0 {
		// Only wrappers failed; report them rather than nothing.
		for _, e := range result.Errors() {
			errs = append(errs, fmt.Sprintf("station.%s: %s", e.Field(), e.Description()))
		}
	}
	return errs
}

// wrapperErrors are the gojsonschema error types raised by allOf and
// if/then/else on top of the violation that caused them.
var wrapperErrors = map[string]bool{
	"condition_then": true,
	"condition_else": true,
	"number_all_of":  true,
}
