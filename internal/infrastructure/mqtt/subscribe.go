package mqtt

import "fmt"

// Subscribe registers a handler for a topic pattern and adds it to the
// resubscribe set, so the subscription survives broker reconnects.
//
// Patterns use the usual MQTT wildcards against the windlass hierarchy:
// Topics{}.AllDeviceCommands() ("windlass/device/+/command") for shore
// command fan-in, Topics{}.AllTopics() ("windlass/#") for a mirror.
//
// Handlers run on paho's dispatch goroutines and should return quickly.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if err := validateFrame(topic, qos); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subMu.Lock()
	c.subs[topic] = subEntry{qos: qos, handler: handler}
	c.subMu.Unlock()

	token := c.paho.Subscribe(topic, qos, c.wrapHandler(handler))
	if err := waitToken(token, tokenWait, ErrSubscribeFailed); err != nil {
		// Failed patterns must not linger in the resubscribe set.
		c.subMu.Lock()
		delete(c.subs, topic)
		c.subMu.Unlock()
		return err
	}

	return nil
}

// Unsubscribe drops a pattern from the broker and the resubscribe set.
// Frames already in flight may still reach the handler.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subMu.Lock()
	delete(c.subs, topic)
	c.subMu.Unlock()

	return waitToken(c.paho.Unsubscribe(topic), tokenWait, ErrUnsubscribeFailed)
}

// SubscriptionCount returns the size of the resubscribe set.
func (c *Client) SubscriptionCount() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subs)
}

// HasSubscription reports whether the exact pattern is in the
// resubscribe set. No wildcard matching is attempted.
func (c *Client) HasSubscription(topic string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	_, ok := c.subs[topic]
	return ok
}
