package telemetry

import "errors"

// Error codes carried by errorCode events and fault records.
const (
	CodeTelemetryLoop   = 7801
	CodeControllerStart = 7802
	CodeControllerStop  = 7803
)

var (
	// ErrFaulted is returned by Enable while the service is in the fault state.
	ErrFaulted = errors.New("telemetry: service is faulted, clear the fault first")

	// ErrNotFaulted is returned by ClearFault when there is no fault.
	ErrNotFaulted = errors.New("telemetry: service is not faulted")

	// ErrUnknownCommand is returned for command topics the Commander does not handle.
	ErrUnknownCommand = errors.New("telemetry: unknown command")
)
