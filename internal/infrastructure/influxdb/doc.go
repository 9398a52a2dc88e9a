// Package influxdb stores decoded station telemetry in InfluxDB v2.
//
// Each published topic becomes one point: measurement = topic name, tags
// identify the site and station, fields are the topic's numeric values and
// the timestamp is the station's own measurement time. A second
// measurement, weatherstation_cycles, records every cycle's outcome.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteTopic("weather", tags, map[string]float64{"ambient_temp": 22.15}, ts)
//
// Writes are batched according to batch_size and flush_interval; write
// errors arrive asynchronously through SetOnError.
package influxdb
