// Package influxdb is the vessel's telemetry exporter.
//
// It wraps influxdb-client-go v2 to persist the time series the
// harness produces each telemetry interval:
//   - the navigation track (position, speed, course)
//   - radar sweep summaries and contact density
//   - device health samples and bus throughput counters
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WritePosition("gps-1", 50.7989, -1.1100, 6.2, 184.0)
//
// # Write semantics
//
// All write helpers are non-blocking: points join a batch that flushes
// on the configured interval, and a disconnected exporter silently
// drops them, so a telemetry outage can never stall the tick loop.
// Failures surface asynchronously through SetOnError and accumulate in
// WriteErrors; PointsWritten counts what was handed to the batch.
// Deltas between the two show whether the exporter is keeping up.
//
// All methods are safe for concurrent use.
package influxdb
