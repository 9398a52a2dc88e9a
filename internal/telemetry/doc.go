// Package telemetry runs the station telemetry loop.
//
// A Service owns one station.Controller. Enable starts the controller and a
// loop that calls GetData back to back and hands every decoded snapshot to
// the configured sinks (MQTT, InfluxDB, NATS, the websocket hub). Decode
// failures are logged and the loop carries on; anything else faults the
// service, stops the controller and publishes an errorCode event.
//
// Every cycle is written to the history store and counted in metrics. A
// HealthReporter publishes the service state on a retained MQTT topic, and
// a Commander maps MQTT command topics onto the lifecycle methods.
package telemetry
