// Package discovery implements best-effort, decentralised liveness
// tracking for devices on the virtual hardware bus.
//
// Each participant runs its own Protocol instance: the instance announces
// the participant's DeviceInfo every heartbeat interval, answers discovery
// requests whose filter it matches, and maintains a bounded known-devices
// table built from the Announce/Heartbeat/DiscoveryResponse traffic it
// observes. The table lags real device state by at most one cleanup
// interval; a periodic sweep evicts entries whose last_seen is older than
// the device timeout.
//
// Discovery rides on the same bus as application traffic but never
// interprets Data payloads. Its own envelopes are msgpack-encoded;
// malformed envelopes are dropped at debug severity and never surface as
// errors, because discovery is inherently best-effort.
//
// # Usage
//
//	agent := discovery.New(infoFn, conn, discovery.DefaultConfig())
//	agent.SetClock(clk)
//	agent.SetLogger(log)
//
//	// per scheduler tick
//	_ = agent.Tick()
//	for msg := range drained {
//	    agent.Handle(msg)
//	}
//
//	// enumerate GPS-capable devices
//	_ = agent.Discover(&discovery.Filter{
//	    Capabilities: []device.Capability{device.CapabilityGps},
//	})
//	known := agent.GetKnownDevices()
package discovery
