package mqtt

// maxPayloadSize caps a single uplink frame at 1MB. Instrument
// telemetry is small JSON; anything near this limit is a bug upstream,
// and rejecting it locally is cheaper than having the broker do it.
const maxPayloadSize = 1 << 20

// Publish sends one frame to the broker and waits for the QoS
// acknowledgement. Topics normally come from the Topics builders so
// everything stays under the windlass prefix.
//
// Retained publishes are for state topics (device status, system
// status) where late subscribers need the current value; telemetry and
// discovery traffic should not be retained.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := validateFrame(topic, qos); err != nil {
		return err
	}
	if len(payload) > maxPayloadSize {
		return ErrPayloadTooLarge
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	return waitToken(c.paho.Publish(topic, qos, retained, payload), tokenWait, ErrPublishFailed)
}

// PublishString publishes a string payload. Convenience for handwritten
// JSON in tests and tooling.
func (c *Client) PublishString(topic string, payload string, qos byte, retained bool) error {
	return c.Publish(topic, []byte(payload), qos, retained)
}

// PublishRetained publishes a retained state update at the configured
// default QoS.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}

// validateFrame checks the invariants shared by publish and subscribe.
func validateFrame(topic string, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	return nil
}
