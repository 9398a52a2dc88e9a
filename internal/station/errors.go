package station

import (
	"errors"
	"fmt"
)

// Domain errors for the station package.
var (
	// ErrTransportTimeout is returned when no complete frame arrives within
	// the read timeout. The cycle is aborted and nothing is decoded.
	ErrTransportTimeout = errors.New("station: timed out waiting for frame")

	// ErrFrameParse is returned when a frame line cannot be tokenized.
	ErrFrameParse = errors.New("station: frame parse failed")

	// ErrSchemaCardinality is returned when a frame carries fewer records
	// for a leaf than the schema declares channels.
	ErrSchemaCardinality = errors.New("station: schema cardinality mismatch")

	// ErrInternalConsistency is returned when the reducer cannot resolve a
	// path the builder should have populated. It always indicates a defect
	// in the schema or topic map.
	ErrInternalConsistency = errors.New("station: internal consistency fault")

	// ErrConnectionClosed is returned when the stream ends before a frame starts.
	ErrConnectionClosed = errors.New("station: connection closed")

	// ErrNotStarted is returned by GetData when the transport has not been acquired.
	ErrNotStarted = errors.New("station: controller not started")

	// ErrCycleInProgress is returned when GetData is called while another
	// cycle is still running.
	ErrCycleInProgress = errors.New("station: cycle already in progress")

	// ErrUnknownController is returned by New for an unregistered type.
	ErrUnknownController = errors.New("station: unknown controller type")

	// ErrInvalidSettings is returned by Setup when settings are unusable.
	ErrInvalidSettings = errors.New("station: invalid settings")
)

// ParseError carries the text that failed to tokenize.
type ParseError struct {
	// Line is the offending line, verbatim.
	Line string
	// LineNo is the 1-based line number within the frame.
	LineNo int
	// Text is the whole frame the line came from.
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v: line %d %q: %s", ErrFrameParse, e.LineNo, e.Line, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrFrameParse }

// CardinalityError reports a leaf that matched too few records.
type CardinalityError struct {
	Leaf     LeafKey
	Matched  int
	Expected int
}

func (e *CardinalityError) Error() string {
	return fmt.Sprintf("%v: %s matched %d records, want %d", ErrSchemaCardinality, e.Leaf, e.Matched, e.Expected)
}

func (e *CardinalityError) Unwrap() error { return ErrSchemaCardinality }

// ConsistencyError reports a topic field whose path is missing from the store.
type ConsistencyError struct {
	Topic string
	Field string
	Path  LeafKey
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%v: %s.%s references %s which is not in the store", ErrInternalConsistency, e.Topic, e.Field, e.Path)
}

func (e *ConsistencyError) Unwrap() error { return ErrInternalConsistency }
