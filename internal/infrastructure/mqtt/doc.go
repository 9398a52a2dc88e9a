// Package mqtt connects the weather station service to an MQTT broker.
//
// Decoded telemetry is published retained on one topic per measurement
// group, faults go out as errorCode events, and lifecycle commands are
// accepted on the command topics. See Topics for the tree.
//
// The client reconnects automatically with backoff and restores its
// subscriptions. A retained LWT on the status topic marks the service
// offline if it dies without disconnecting.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.Site.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := client.Topics().Telemetry("weather")
//	err = client.PublishJSON(topic, fields, true)
package mqtt
