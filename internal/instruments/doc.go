// Package instruments provides the simulated vessel instruments that
// ride on the hardware bus: a GNSS receiver, a radar and an AIS
// receiver.
//
// Each instrument implements device.Device and is driven by the
// manager's scheduler. Instruments never talk to the bus directly;
// they return the messages they produce from Process and the manager
// forwards them, stamping the sender address. Reports are broadcast as
// JSON payloads so any listening device (or the host) can consume
// them.
//
// The GNSS receiver runs in one of two modes: simulated dead-reckoning
// motion from a starting position, or replay of canned NMEA 0183
// sentences through the same parser a hardware receiver would need.
package instruments
