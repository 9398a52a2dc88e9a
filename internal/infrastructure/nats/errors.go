package nats

import "errors"

var (
	// ErrDisabled is returned by Connect when the section is disabled.
	ErrDisabled = errors.New("nats: disabled in configuration")

	// ErrConnectionFailed is returned when the initial connect fails.
	ErrConnectionFailed = errors.New("nats: connection failed")

	// ErrNotConnected is returned by Publish while disconnected.
	ErrNotConnected = errors.New("nats: not connected")

	// ErrInvalidSubject is returned for an empty subject.
	ErrInvalidSubject = errors.New("nats: subject cannot be empty")
)
