// Package mqtt is the vessel's shore uplink client.
//
// Telemetry produced on the in-process vessel bus is relayed to a
// broker (Mosquitto) where chart plotters, shore dashboards and loggers
// subscribe without touching the simulation itself:
//
//	Vessel Bus ↔ Uplink Bridge ↔ MQTT Broker ↔ Consumers
//
// Everything the vessel publishes lives under one prefix (default
// "windlass"); the Topics builders keep the hierarchy consistent across
// the codebase. The client announces itself on the system status topic
// with a retained StatusPayload, leaves a matching last will there so
// shore sees an unexpected drop, and replays its subscription set after
// every reconnect.
//
// # Usage
//
//	topics := mqtt.Topics{Prefix: cfg.Uplink.TopicPrefix}
//	client, err := mqtt.Connect(cfg.MQTT, topics)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Shore commands addressed to any device
//	err = client.Subscribe(topics.AllDeviceCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        return route(topic, payload)
//	    })
//
//	// A position report onto the navigation feed
//	client.Publish(topics.NavPosition(), payload, 1, false)
//
// # Security
//
//   - TLS for any uplink that leaves the boat network (cfg.Broker.TLS)
//   - Credentials validated against the broker ACL
//   - Anonymous access is for local development only
//
// # Link behaviour
//
// A vessel uplink is expected to drop: auto-reconnect and connect-retry
// are always on, backing off between the configured delays. Publish and
// subscribe fail fast with ErrNotConnected while the link is down so
// the uplink bridge can drop frames instead of stalling a tick.
package mqtt
