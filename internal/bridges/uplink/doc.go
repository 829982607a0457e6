// Package uplink relays vessel bus traffic to an external MQTT broker.
//
// The uplink is itself a bus participant: it registers with the device
// manager like any instrument, advertises the communication capability,
// and consumes the Data traffic delivered to its address (including
// broadcasts from the GPS, radar and AIS simulators). Each consumed
// payload is republished to the broker under a topic derived from the
// sending address, so chart plotters and shore dashboards can follow the
// simulation without touching the in-process bus.
//
// # Flow Control
//
// The bus delivers messages during the manager's tick, which must never
// block on broker I/O. Consumed messages are therefore handed to a
// buffered channel and published from a dedicated pump goroutine. When
// the buffer is full the message is dropped and counted; telemetry is
// periodic, so the next report supersedes the lost one.
//
// # Topic Mapping
//
// By default a payload from address A is published to
// {prefix}/device/A/telemetry. Well-known feeds can be redirected with
// Routes, e.g. mapping the GPS address to the {prefix}/nav/position
// topic.
package uplink
