// Package nats publishes decoded station telemetry to a NATS server.
//
// Each topic is published as JSON on
//
//	weatherstation.{site}.telemetry.{topic}
//
// and fault events on weatherstation.{site}.event.errorCode. The sink is
// optional; when the nats section is disabled Connect returns ErrDisabled.
package nats
