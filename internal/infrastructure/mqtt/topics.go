package mqtt

import "fmt"

// TopicPrefix is the root of every weather station topic.
const TopicPrefix = "weatherstation"

// Topics builds the topic tree for one site:
//
//	weatherstation/{site}/telemetry/{topic}   decoded measurements
//	weatherstation/{site}/event/{name}        errorCode and other events
//	weatherstation/{site}/health              retained health summary
//	weatherstation/{site}/status              retained online/offline (LWT)
//	weatherstation/{site}/command/{name}      enable, disable, clear-fault
type Topics struct {
	Site string
}

func (t Topics) base() string {
	return fmt.Sprintf("%s/%s", TopicPrefix, t.Site)
}

// Telemetry returns the topic a decoded measurement topic is published on.
//
// Example: weatherstation/lsst/telemetry/windDirection
func (t Topics) Telemetry(topic string) string {
	return fmt.Sprintf("%s/telemetry/%s", t.base(), topic)
}

// Event returns the topic for a named event.
//
// Example: weatherstation/lsst/event/errorCode
func (t Topics) Event(name string) string {
	return fmt.Sprintf("%s/event/%s", t.base(), name)
}

// ErrorCode returns the fault event topic.
func (t Topics) ErrorCode() string { return t.Event("errorCode") }

// Health returns the retained health topic.
func (t Topics) Health() string { return t.base() + "/health" }

// Status returns the retained online/offline topic also used for the LWT.
func (t Topics) Status() string { return t.base() + "/status" }

// Command returns the topic a lifecycle command is received on.
//
// Example: weatherstation/lsst/command/enable
func (t Topics) Command(name string) string {
	return fmt.Sprintf("%s/command/%s", t.base(), name)
}

// AllCommands matches every command topic of the site.
func (t Topics) AllCommands() string { return t.base() + "/command/+" }

// AllTelemetry matches every telemetry topic of the site.
func (t Topics) AllTelemetry() string { return t.base() + "/telemetry/+" }
