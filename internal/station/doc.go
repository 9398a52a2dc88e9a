// Package station decodes the ASCII telemetry stream of an automatic weather
// station into published measurement topics.
//
// A station pushes one frame per reporting interval:
//
//	SMS 0(S:AWS310_LSST;
//	D:190204;
//	...
//	TA|AVG|PT1M||1|degC|:22.2;
//	TA|AVG|PT1M||2|degC|:22.1;
//	...)D621
//
// Decoding runs in four stages:
//
//  1. Framer extracts the text between '(' and ')', one record per line.
//  2. ParseFrame splits it into a Header and an ordered RecordSet.
//  3. BuildStore assigns records to the leaves of a Schema, failing when a
//     leaf has fewer records than channels.
//  4. Reduce normalizes each leaf's values and aggregates redundant sensors
//     into the fields of a TopicMap. Missing data is published as -99.
//
// Controller wraps the stages in a poll cycle with a frame timeout and a
// retrievable diagnostic. Implementations register under a type name and
// are created with New; "lsst" is built in.
package station
