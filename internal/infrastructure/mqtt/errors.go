package mqtt

import "errors"

// Sentinel errors for the shore uplink client. Callers branch with
// errors.Is; the uplink bridge maps ErrNotConnected onto its own
// degraded handling rather than retrying inline.
var (
	// ErrNotConnected means the broker link is down. Publishes fail fast
	// so the uplink bridge can drop or buffer instead of blocking a tick.
	ErrNotConnected = errors.New("mqtt: uplink not connected to broker")

	// ErrConnectionFailed wraps the reason the initial broker dial failed.
	ErrConnectionFailed = errors.New("mqtt: broker connection failed")

	// ErrPublishFailed wraps broker-side publish rejections and timeouts.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed wraps subscribe rejections and timeouts.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrUnsubscribeFailed wraps unsubscribe rejections and timeouts.
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS rejects QoS levels outside 0..2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic rejects an empty topic or pattern.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")

	// ErrPayloadTooLarge rejects payloads over the uplink frame limit
	// before they reach the broker.
	ErrPayloadTooLarge = errors.New("mqtt: payload exceeds uplink frame limit")
)
