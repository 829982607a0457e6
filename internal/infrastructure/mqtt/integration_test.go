//go:build integration

package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// End-to-end scenarios against a live broker, shaped like the vessel
// uplink: one client publishing the windlass hierarchy, a shore client
// consuming it. Requires Mosquitto at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -count=1 -v ./internal/infrastructure/mqtt/...

// shoreMirror subscribes to the whole vessel hierarchy and records
// everything it sees, keyed by topic.
type shoreMirror struct {
	mu     sync.Mutex
	frames map[string][]byte
}

func newShoreMirror(t *testing.T, client *Client, topics Topics) *shoreMirror {
	t.Helper()
	mirror := &shoreMirror{frames: make(map[string][]byte)}
	err := client.Subscribe(topics.AllTopics(), 1, func(topic string, payload []byte) error {
		mirror.mu.Lock()
		defer mirror.mu.Unlock()
		mirror.frames[topic] = append([]byte(nil), payload...)
		return nil
	})
	if err != nil {
		t.Fatalf("subscribing shore mirror: %v", err)
	}
	return mirror
}

func (m *shoreMirror) get(topic string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.frames[topic]
	return payload, ok
}

// waitTopic polls until the mirror has seen the topic.
func (m *shoreMirror) waitTopic(t *testing.T, topic string) []byte {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if payload, ok := m.get(topic); ok {
			return payload
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("shore mirror never saw %s", topic)
	return nil
}

// TestVesselToShoreFlow drives the full uplink surface: the retained
// system status, the navigation feeds, per-device telemetry and a
// discovery announcement, all arriving under the vessel's prefix.
func TestVesselToShoreFlow(t *testing.T) {
	prefix := fmt.Sprintf("windlass-int-%d", time.Now().UnixNano())
	topics := Topics{Prefix: prefix}

	vessel := connectOrSkip(t, "windlass-int-vessel", topics)
	shore := connectOrSkip(t, "windlass-int-shore", topics)
	mirror := newShoreMirror(t, shore, topics)

	fix, _ := json.Marshal(positionReport{
		Latitude: 50.7989, Longitude: -1.1100,
		SpeedKnots: 6.2, CourseDegrees: 184.0,
		FixQuality: 1, Satellites: 9,
	})
	publishes := []struct {
		topic    string
		payload  string
		retained bool
	}{
		{topics.NavPosition(), string(fix), false},
		{topics.NavRadar(), `{"sweep_deg":318.5,"contacts":3}`, false},
		{topics.DeviceTelemetry("ais-1"), `{"targets":5}`, false},
		{topics.DeviceStatus("gps-1"), `{"status":"online"}`, true},
		{topics.DeviceDiscovered("gps-1"), `{"name":"GPS Receiver","capabilities":["gps"]}`, false},
	}
	for _, p := range publishes {
		if err := vessel.Publish(p.topic, []byte(p.payload), 1, p.retained); err != nil {
			t.Fatalf("Publish(%s) error = %v", p.topic, err)
		}
	}

	for _, p := range publishes {
		got := mirror.waitTopic(t, p.topic)
		if string(got) != p.payload {
			t.Errorf("shore saw %s = %s, want %s", p.topic, got, p.payload)
		}
		if !strings.HasPrefix(p.topic, prefix+"/") {
			t.Errorf("topic %s escaped the vessel prefix %s", p.topic, prefix)
		}
	}

	// The vessel's own online announcement reaches shore too.
	status := mirror.waitTopic(t, topics.SystemStatus())
	var payload StatusPayload
	if err := json.Unmarshal(status, &payload); err != nil {
		t.Fatalf("system status is not JSON: %v", err)
	}
	if payload.Status != StatusOnline || payload.ClientID != "windlass-int-vessel" {
		t.Errorf("system status = %+v", payload)
	}
}

// TestShoreCommandFanIn models the reverse direction: shore addresses a
// command at one device, the vessel picks it up off the command
// wildcard and recovers the target address from the topic.
func TestShoreCommandFanIn(t *testing.T) {
	prefix := fmt.Sprintf("windlass-int-cmd-%d", time.Now().UnixNano())
	topics := Topics{Prefix: prefix}

	vessel := connectOrSkip(t, "windlass-int-cmd-vessel", topics)
	shore := connectOrSkip(t, "windlass-int-cmd-shore", topics)

	type command struct {
		address string
		payload []byte
	}
	commands := make(chan command, 2)
	err := vessel.Subscribe(topics.AllDeviceCommands(), 1, func(topic string, payload []byte) error {
		// .../device/<address>/command
		parts := strings.Split(topic, "/")
		commands <- command{address: parts[len(parts)-2], payload: payload}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	want := `{"action":"set_course","course_deg":90}`
	if err := shore.PublishString(topics.DeviceCommand("autopilot-1"), want, 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case cmd := <-commands:
		if cmd.address != "autopilot-1" {
			t.Errorf("command addressed to %q, want autopilot-1", cmd.address)
		}
		if string(cmd.payload) != want {
			t.Errorf("command payload = %s", cmd.payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("vessel never received the shore command")
	}
}

// TestReconnectRestoresSubscriptionsAndStatus exercises the reconnect
// path directly: handleConnect must replay the subscription set and
// re-announce the online status without help from callers.
func TestReconnectRestoresSubscriptionsAndStatus(t *testing.T) {
	prefix := fmt.Sprintf("windlass-int-rec-%d", time.Now().UnixNano())
	topics := Topics{Prefix: prefix}

	vessel := connectOrSkip(t, "windlass-int-rec-vessel", topics)
	logger := &recordingLogger{}
	vessel.SetLogger(logger)

	received := make(chan string, 8)
	if err := vessel.Subscribe(topics.AllNav(), 1, func(topic string, _ []byte) error {
		received <- topic
		return nil
	}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	reconnected := make(chan struct{}, 1)
	vessel.SetOnConnect(func() {
		select {
		case reconnected <- struct{}{}:
		default:
		}
	})

	// Drive the reconnect path as paho would after a link drop.
	vessel.handleConnect()

	select {
	case <-reconnected:
	case <-time.After(time.Second):
		t.Fatal("OnConnect callback did not fire")
	}
	if got := vessel.SubscriptionCount(); got != 1 {
		t.Errorf("SubscriptionCount() after reconnect = %d, want 1", got)
	}

	// Subscription still live: a publish on the pattern arrives.
	if err := vessel.PublishString(topics.NavPosition(), `{"latitude":50.8}`, 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	select {
	case topic := <-received:
		if topic != topics.NavPosition() {
			t.Errorf("received on %s, want %s", topic, topics.NavPosition())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("subscription did not survive the reconnect path")
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.infos) == 0 {
		t.Error("reconnect path logged nothing at info")
	}
}

// TestDisconnectCallback verifies the lost-link notification fires with
// the reason paho reported.
func TestDisconnectCallback(t *testing.T) {
	vessel := connectOrSkip(t, "windlass-int-disc", Topics{})

	dropped := make(chan error, 1)
	vessel.SetOnDisconnect(func(err error) {
		select {
		case dropped <- err:
		default:
		}
	})

	vessel.handleConnectionLost(fmt.Errorf("carrier lost"))

	select {
	case err := <-dropped:
		if err == nil || err.Error() != "carrier lost" {
			t.Errorf("disconnect reason = %v, want carrier lost", err)
		}
	case <-time.After(time.Second):
		t.Fatal("OnDisconnect callback did not fire")
	}
}
