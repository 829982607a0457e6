package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/windlass-marine/windlass-core/internal/infrastructure/config"
)

// testConfig returns broker settings for the local dev Mosquitto.
// Each test uses its own client ID so the broker does not kick
// same-ID sessions off mid-test.
func testConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// connectOrSkip returns a live uplink, or skips when no broker runs.
func connectOrSkip(t *testing.T, clientID string, topics Topics) *Client {
	t.Helper()
	client, err := Connect(testConfig(clientID), topics)
	if err != nil {
		t.Skipf("broker not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// positionReport is the uplink payload shape the GPS instrument
// publishes on the navigation position topic.
type positionReport struct {
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	SpeedKnots    float64 `json:"speed_knots"`
	CourseDegrees float64 `json:"course_deg"`
	FixQuality    int     `json:"fix_quality"`
	Satellites    int     `json:"satellites"`
}

// =============================================================================
// Topic scheme
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"device status", topics.DeviceStatus("gps-1"), "windlass/device/gps-1/status"},
		{"device telemetry", topics.DeviceTelemetry("radar-1"), "windlass/device/radar-1/telemetry"},
		{"device command", topics.DeviceCommand("autopilot-1"), "windlass/device/autopilot-1/command"},
		{"discovery", topics.DeviceDiscovered("ais-1"), "windlass/discovery/ais-1"},
		{"nav position", topics.NavPosition(), "windlass/nav/position"},
		{"nav radar", topics.NavRadar(), "windlass/nav/radar"},
		{"nav ais", topics.NavAIS(), "windlass/nav/ais"},
		{"system status", topics.SystemStatus(), "windlass/system/status"},
		{"system time", topics.SystemTime(), "windlass/system/time"},
		{"system shutdown", topics.SystemShutdown(), "windlass/system/shutdown"},
		{"all device status", topics.AllDeviceStatus(), "windlass/device/+/status"},
		{"all device telemetry", topics.AllDeviceTelemetry(), "windlass/device/+/telemetry"},
		{"all device commands", topics.AllDeviceCommands(), "windlass/device/+/command"},
		{"all discovery", topics.AllDiscovery(), "windlass/discovery/+"},
		{"all nav", topics.AllNav(), "windlass/nav/+"},
		{"everything", topics.AllTopics(), "windlass/#"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s topic = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestTopicBuildersCustomPrefix(t *testing.T) {
	topics := Topics{Prefix: "fleet/vessel-7"}

	if got := topics.NavPosition(); got != "fleet/vessel-7/nav/position" {
		t.Errorf("NavPosition() = %q", got)
	}
	if got := topics.DeviceTelemetry("gps-1"); got != "fleet/vessel-7/device/gps-1/telemetry" {
		t.Errorf("DeviceTelemetry() = %q", got)
	}
	if got := topics.SystemStatus(); got != "fleet/vessel-7/system/status" {
		t.Errorf("SystemStatus() = %q", got)
	}
}

// =============================================================================
// Status payloads and options
// =============================================================================

func TestStatusPayloadShape(t *testing.T) {
	body := statusJSON(StatusOffline, "windlass-sv-meridian", ReasonLostLink)

	var payload StatusPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("status payload is not JSON: %v", err)
	}

	if payload.Status != StatusOffline {
		t.Errorf("status = %q, want %q", payload.Status, StatusOffline)
	}
	if payload.ClientID != "windlass-sv-meridian" {
		t.Errorf("client_id = %q", payload.ClientID)
	}
	if payload.Reason != ReasonLostLink {
		t.Errorf("reason = %q, want %q", payload.Reason, ReasonLostLink)
	}
	if _, err := time.Parse(time.RFC3339, payload.Timestamp); err != nil {
		t.Errorf("timestamp %q is not RFC3339: %v", payload.Timestamp, err)
	}
}

func TestStatusPayloadOmitsEmptyReason(t *testing.T) {
	body := statusJSON(StatusOnline, "windlass-test", "")

	if strings.Contains(string(body), "reason") {
		t.Errorf("online payload carries a reason field: %s", body)
	}
}

func TestBrokerURL(t *testing.T) {
	cfg := testConfig("windlass-test")
	if got := brokerURL(cfg); got != "tcp://127.0.0.1:1883" {
		t.Errorf("brokerURL() = %q, want tcp://127.0.0.1:1883", got)
	}

	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883
	if got := brokerURL(cfg); got != "ssl://127.0.0.1:8883" {
		t.Errorf("brokerURL() with TLS = %q, want ssl://127.0.0.1:8883", got)
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig("windlass-sv-meridian")
	cfg.Auth.Username = "vessel"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)

	if opts.ClientID != "windlass-sv-meridian" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.Username != "vessel" || opts.Password != "secret" {
		t.Error("credentials were not applied")
	}
	if !opts.AutoReconnect || !opts.ConnectRetry {
		t.Error("uplink must auto-reconnect and retry the initial dial")
	}
	if !opts.CleanSession {
		t.Error("uplink must start with a clean session")
	}
}

// =============================================================================
// Validation without a broker
// =============================================================================

func TestPublishValidation(t *testing.T) {
	client := &Client{subs: make(map[string]subEntry)}

	if err := client.Publish("", []byte("x"), 1, false); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Publish("windlass/nav/position", []byte("x"), 3, false); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("QoS 3 error = %v, want ErrInvalidQoS", err)
	}

	oversized := make([]byte, maxPayloadSize+1)
	if err := client.Publish("windlass/nav/position", oversized, 1, false); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("oversized payload error = %v, want ErrPayloadTooLarge", err)
	}

	if err := client.Publish("windlass/nav/position", []byte("x"), 1, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("disconnected publish error = %v, want ErrNotConnected", err)
	}
}

func TestSubscribeValidation(t *testing.T) {
	client := &Client{subs: make(map[string]subEntry)}
	handler := func(string, []byte) error { return nil }

	if err := client.Subscribe("", 1, handler); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty pattern error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Subscribe("windlass/#", 5, handler); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("QoS 5 error = %v, want ErrInvalidQoS", err)
	}
	if err := client.Subscribe("windlass/#", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("nil handler error = %v, want ErrSubscribeFailed", err)
	}
	if err := client.Subscribe("windlass/#", 1, handler); !errors.Is(err, ErrNotConnected) {
		t.Errorf("disconnected subscribe error = %v, want ErrNotConnected", err)
	}
	if client.SubscriptionCount() != 0 {
		t.Errorf("failed subscribes left %d entries in the resubscribe set", client.SubscriptionCount())
	}
}

func TestUnsubscribeValidation(t *testing.T) {
	client := &Client{subs: make(map[string]subEntry)}

	if err := client.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Unsubscribe("windlass/nav/+"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("disconnected unsubscribe error = %v, want ErrNotConnected", err)
	}
}

func TestCloseZeroValue(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on zero client error = %v, want nil", err)
	}
}

func TestHasSubscriptionEmpty(t *testing.T) {
	client := &Client{subs: make(map[string]subEntry)}

	if client.HasSubscription("windlass/nav/+") {
		t.Error("HasSubscription() = true on an empty resubscribe set")
	}
	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", client.SubscriptionCount())
	}
}

// =============================================================================
// Handler wrapping
// =============================================================================

// recordingLogger captures log calls for assertions.
type recordingLogger struct {
	mu     sync.Mutex
	infos  []string
	warns  []string
	errors []string
}

func (l *recordingLogger) Info(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

// fakeFrame satisfies paho's Message interface for handler tests.
type fakeFrame struct {
	topic   string
	payload []byte
}

func (f fakeFrame) Duplicate() bool   { return false }
func (f fakeFrame) Qos() byte         { return 1 }
func (f fakeFrame) Retained() bool    { return false }
func (f fakeFrame) Topic() string     { return f.topic }
func (f fakeFrame) MessageID() uint16 { return 1 }
func (f fakeFrame) Payload() []byte   { return f.payload }
func (f fakeFrame) Ack()              {}

func TestWrapHandlerRecoversPanic(t *testing.T) {
	client := &Client{subs: make(map[string]subEntry)}
	logger := &recordingLogger{}
	client.SetLogger(logger)

	wrapped := client.wrapHandler(func(string, []byte) error {
		panic("corrupt frame")
	})

	// Must not propagate the panic to paho's dispatch goroutine.
	wrapped(nil, fakeFrame{topic: "windlass/nav/position"})

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.errors) != 1 {
		t.Fatalf("panic produced %d error logs, want 1", len(logger.errors))
	}
}

func TestWrapHandlerLogsErrors(t *testing.T) {
	client := &Client{subs: make(map[string]subEntry)}
	logger := &recordingLogger{}
	client.SetLogger(logger)

	wrapped := client.wrapHandler(func(string, []byte) error {
		return errors.New("unparseable fix")
	})
	wrapped(nil, fakeFrame{topic: "windlass/nav/position", payload: []byte("garbage")})

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.warns) != 1 {
		t.Fatalf("handler error produced %d warn logs, want 1", len(logger.warns))
	}
}

func TestWrapHandlerWithoutLogger(t *testing.T) {
	client := &Client{subs: make(map[string]subEntry)}

	wrapped := client.wrapHandler(func(string, []byte) error {
		panic("no logger attached")
	})
	wrapped(nil, fakeFrame{topic: "windlass/nav/position"}) // must not panic
}

// =============================================================================
// Live broker tests (skipped when Mosquitto is not running)
// =============================================================================

// waitFrame blocks for one received frame or fails the test.
func waitFrame(t *testing.T, frames <-chan fakeFrame) fakeFrame {
	t.Helper()
	select {
	case frame := <-frames:
		return frame
	case <-time.After(5 * time.Second):
		t.Fatal("no frame received within 5s")
		return fakeFrame{}
	}
}

// collectInto returns a handler that forwards frames to a channel.
func collectInto(frames chan<- fakeFrame) MessageHandler {
	return func(topic string, payload []byte) error {
		frames <- fakeFrame{topic: topic, payload: append([]byte(nil), payload...)}
		return nil
	}
}

func TestConnectUnreachableBroker(t *testing.T) {
	cfg := testConfig("windlass-test-unreachable")
	cfg.Broker.Port = 59999

	_, err := Connect(cfg, Topics{})
	if err == nil {
		t.Fatal("Connect() succeeded against an unreachable broker")
	}
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnectAndHealthCheck(t *testing.T) {
	client := connectOrSkip(t, "windlass-test-connect", Topics{})

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.HealthCheck(cancelled); err == nil {
		t.Error("HealthCheck() ignored a cancelled context")
	}
}

func TestOnlineStatusIsRetained(t *testing.T) {
	prefix := fmt.Sprintf("windlass-test-status-%d", time.Now().UnixNano())
	topics := Topics{Prefix: prefix}

	vessel := connectOrSkip(t, "windlass-test-status-vessel", topics)
	_ = vessel

	// A shore client subscribing after the vessel connected must still
	// see the online announcement, because it is retained.
	shore := connectOrSkip(t, "windlass-test-status-shore", topics)
	frames := make(chan fakeFrame, 4)
	if err := shore.Subscribe(topics.SystemStatus(), 1, collectInto(frames)); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	frame := waitFrame(t, frames)
	var status StatusPayload
	if err := json.Unmarshal(frame.payload, &status); err != nil {
		t.Fatalf("status payload is not JSON: %v", err)
	}
	if status.Status != StatusOnline {
		t.Errorf("retained status = %q, want %q", status.Status, StatusOnline)
	}
	if status.ClientID != "windlass-test-status-vessel" {
		t.Errorf("client_id = %q", status.ClientID)
	}
}

func TestGracefulCloseAnnouncesOffline(t *testing.T) {
	prefix := fmt.Sprintf("windlass-test-offline-%d", time.Now().UnixNano())
	topics := Topics{Prefix: prefix}

	cfg := testConfig("windlass-test-offline-vessel")
	vessel, err := Connect(cfg, topics)
	if err != nil {
		t.Skipf("broker not available: %v", err)
	}

	shore := connectOrSkip(t, "windlass-test-offline-shore", topics)
	frames := make(chan fakeFrame, 4)
	if err := shore.Subscribe(topics.SystemStatus(), 1, collectInto(frames)); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	// Drain the retained online status first.
	first := waitFrame(t, frames)
	var status StatusPayload
	if err := json.Unmarshal(first.payload, &status); err != nil || status.Status != StatusOnline {
		t.Fatalf("expected retained online status, got %s", first.payload)
	}

	if err := vessel.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	offline := waitFrame(t, frames)
	if err := json.Unmarshal(offline.payload, &status); err != nil {
		t.Fatalf("offline payload is not JSON: %v", err)
	}
	if status.Status != StatusOffline || status.Reason != ReasonShutdown {
		t.Errorf("offline status = %q/%q, want %q/%q",
			status.Status, status.Reason, StatusOffline, ReasonShutdown)
	}
}

func TestPositionRoundTrip(t *testing.T) {
	prefix := fmt.Sprintf("windlass-test-pos-%d", time.Now().UnixNano())
	topics := Topics{Prefix: prefix}
	client := connectOrSkip(t, "windlass-test-pos", topics)

	frames := make(chan fakeFrame, 1)
	if err := client.Subscribe(topics.NavPosition(), 1, collectInto(frames)); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	sent := positionReport{
		Latitude:      50.7989,
		Longitude:     -1.1100,
		SpeedKnots:    6.2,
		CourseDegrees: 184.0,
		FixQuality:    1,
		Satellites:    9,
	}
	body, _ := json.Marshal(sent)
	if err := client.Publish(topics.NavPosition(), body, 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	frame := waitFrame(t, frames)
	var got positionReport
	if err := json.Unmarshal(frame.payload, &got); err != nil {
		t.Fatalf("position payload is not JSON: %v", err)
	}
	if got != sent {
		t.Errorf("position round trip = %+v, want %+v", got, sent)
	}
}

func TestDeviceTelemetryWildcard(t *testing.T) {
	prefix := fmt.Sprintf("windlass-test-wild-%d", time.Now().UnixNano())
	topics := Topics{Prefix: prefix}
	client := connectOrSkip(t, "windlass-test-wild", topics)

	frames := make(chan fakeFrame, 4)
	if err := client.Subscribe(topics.AllDeviceTelemetry(), 1, collectInto(frames)); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	for _, address := range []string{"gps-1", "radar-1"} {
		topic := topics.DeviceTelemetry(address)
		if err := client.PublishString(topic, `{"up":true}`, 1, false); err != nil {
			t.Fatalf("Publish(%s) error = %v", topic, err)
		}
	}

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		seen[waitFrame(t, frames).topic] = true
	}
	for _, address := range []string{"gps-1", "radar-1"} {
		if !seen[topics.DeviceTelemetry(address)] {
			t.Errorf("wildcard missed telemetry from %s (saw %v)", address, seen)
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	prefix := fmt.Sprintf("windlass-test-unsub-%d", time.Now().UnixNano())
	topics := Topics{Prefix: prefix}
	client := connectOrSkip(t, "windlass-test-unsub", topics)

	frames := make(chan fakeFrame, 4)
	topic := topics.DeviceStatus("gps-1")
	if err := client.Subscribe(topic, 1, collectInto(frames)); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !client.HasSubscription(topic) {
		t.Fatal("HasSubscription() = false after Subscribe()")
	}

	if err := client.Unsubscribe(topic); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if client.HasSubscription(topic) {
		t.Error("HasSubscription() = true after Unsubscribe()")
	}

	if err := client.PublishString(topic, `{"status":"online"}`, 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	select {
	case frame := <-frames:
		t.Errorf("received frame on %s after unsubscribe", frame.topic)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestPublishRetainedUsesConfiguredQoS(t *testing.T) {
	prefix := fmt.Sprintf("windlass-test-ret-%d", time.Now().UnixNano())
	topics := Topics{Prefix: prefix}
	client := connectOrSkip(t, "windlass-test-ret", topics)

	topic := topics.DeviceStatus("ais-1")
	if err := client.PublishRetained(topic, []byte(`{"status":"online"}`)); err != nil {
		t.Fatalf("PublishRetained() error = %v", err)
	}

	// A late subscriber sees the retained state.
	late := connectOrSkip(t, "windlass-test-ret-late", topics)
	frames := make(chan fakeFrame, 1)
	if err := late.Subscribe(topic, 1, collectInto(frames)); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	frame := waitFrame(t, frames)
	if string(frame.payload) != `{"status":"online"}` {
		t.Errorf("retained payload = %s", frame.payload)
	}
}

func TestSubscriptionTracking(t *testing.T) {
	prefix := fmt.Sprintf("windlass-test-track-%d", time.Now().UnixNano())
	topics := Topics{Prefix: prefix}
	client := connectOrSkip(t, "windlass-test-track", topics)

	patterns := []string{
		topics.AllDeviceStatus(),
		topics.AllDiscovery(),
		topics.AllNav(),
	}
	handler := func(string, []byte) error { return nil }
	for _, pattern := range patterns {
		if err := client.Subscribe(pattern, 1, handler); err != nil {
			t.Fatalf("Subscribe(%s) error = %v", pattern, err)
		}
	}

	if got := client.SubscriptionCount(); got != len(patterns) {
		t.Errorf("SubscriptionCount() = %d, want %d", got, len(patterns))
	}

	if err := client.Unsubscribe(patterns[0]); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if got := client.SubscriptionCount(); got != len(patterns)-1 {
		t.Errorf("SubscriptionCount() after unsubscribe = %d, want %d", got, len(patterns)-1)
	}
}

func TestCloseDisconnects(t *testing.T) {
	cfg := testConfig("windlass-test-close")
	client, err := Connect(cfg, Topics{})
	if err != nil {
		t.Skipf("broker not available: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() after Close() = %v, want ErrNotConnected", err)
	}
}
