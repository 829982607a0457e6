package uplink

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/windlass-marine/windlass-core/internal/bus"
	"github.com/windlass-marine/windlass-core/internal/device"
	"github.com/windlass-marine/windlass-core/internal/infrastructure/mqtt"
)

// Publisher is the broker-side interface the uplink needs. Satisfied by
// *mqtt.Client; narrowed so tests can substitute a fake.
type Publisher interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Logger is the minimal logging interface the uplink needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Metrics is a snapshot of uplink counters.
type Metrics struct {
	// Published is the number of payloads delivered to the broker.
	Published uint64 `json:"published"`

	// Dropped is the number of payloads discarded because the buffer was
	// full or the broker rejected the publish.
	Dropped uint64 `json:"dropped"`
}

// Uplink relays consumed bus payloads to an MQTT broker. It implements
// the device lifecycle contract and the message handler extension, so it
// registers with the manager like any instrument.
type Uplink struct {
	cfg    Config
	pub    Publisher
	topics mqtt.Topics

	buf  chan bus.Message
	done chan struct{}
	wg   sync.WaitGroup

	running   atomic.Bool
	published atomic.Uint64
	dropped   atomic.Uint64

	logger   Logger
	loggerMu sync.RWMutex
}

var (
	_ device.Device         = (*Uplink)(nil)
	_ device.MessageHandler = (*Uplink)(nil)
)

// New creates an uplink bridge publishing through pub.
func New(cfg Config, pub Publisher) *Uplink {
	cfg = cfg.withDefaults()
	return &Uplink{
		cfg:    cfg,
		pub:    pub,
		topics: mqtt.Topics{Prefix: cfg.TopicPrefix},
		logger: noopLogger{},
	}
}

// SetLogger replaces the logger. Pass nil to restore the no-op logger.
func (u *Uplink) SetLogger(logger Logger) {
	u.loggerMu.Lock()
	defer u.loggerMu.Unlock()
	if logger == nil {
		logger = noopLogger{}
	}
	u.logger = logger
}

func (u *Uplink) log() Logger {
	u.loggerMu.RLock()
	defer u.loggerMu.RUnlock()
	return u.logger
}

// Initialize validates the configuration and starts the publish pump.
func (u *Uplink) Initialize(context.Context) error {
	if u.pub == nil {
		return fmt.Errorf("%w: %v", device.ErrInitialization, ErrNoPublisher)
	}
	if err := u.cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", device.ErrInitialization, err)
	}
	if u.running.Load() {
		return nil
	}

	u.buf = make(chan bus.Message, u.cfg.BufferSize)
	u.done = make(chan struct{})
	u.wg.Add(1)
	go u.pump()
	u.running.Store(true)
	return nil
}

// HandleMessage consumes a Data payload from the bus and hands it to the
// publish pump. It never blocks: when the buffer is full the payload is
// dropped and counted. It produces no bus output.
func (u *Uplink) HandleMessage(msg bus.Message) ([]bus.Message, error) {
	if !u.running.Load() || msg.Kind != bus.KindData {
		return nil, nil
	}

	select {
	case u.buf <- msg:
	default:
		u.dropped.Add(1)
		u.log().Debug("uplink buffer full, payload dropped", "from", msg.From)
	}
	return nil, nil
}

// Process emits nothing onto the bus; the uplink only consumes. It
// reports a fault while the pump is not running so the manager degrades
// the bridge instead of silently losing telemetry.
func (u *Uplink) Process() ([]bus.Message, error) {
	if !u.running.Load() {
		return nil, fmt.Errorf("%w: uplink not initialised", device.ErrProcess)
	}
	return nil, nil
}

// Info returns the uplink's discoverable description.
func (u *Uplink) Info() device.Info {
	return device.Info{
		Config: device.Config{
			Name:           u.cfg.Name,
			Capabilities:   []device.Capability{device.CapabilityCommunication},
			UpdateInterval: time.Second,
			QueueHint:      u.cfg.BufferSize,
		},
		Status:       device.StatusOnline,
		Version:      "1.0.0",
		Manufacturer: "Windlass",
	}
}

// Shutdown stops the pump and waits for in-flight publishes. Idempotent.
func (u *Uplink) Shutdown(context.Context) error {
	if !u.running.Swap(false) {
		return nil
	}
	close(u.done)
	u.wg.Wait()
	return nil
}

// GetMetrics returns a snapshot of the uplink counters.
func (u *Uplink) GetMetrics() Metrics {
	return Metrics{
		Published: u.published.Load(),
		Dropped:   u.dropped.Load(),
	}
}

// pump drains the buffer and publishes until Shutdown. Remaining buffered
// payloads are flushed before exit.
func (u *Uplink) pump() {
	defer u.wg.Done()
	for {
		select {
		case msg := <-u.buf:
			u.relay(msg)
		case <-u.done:
			for {
				select {
				case msg := <-u.buf:
					u.relay(msg)
				default:
					return
				}
			}
		}
	}
}

// relay publishes one payload to its resolved topic.
func (u *Uplink) relay(msg bus.Message) {
	if !u.pub.IsConnected() {
		u.dropped.Add(1)
		u.log().Debug("broker not connected, payload dropped", "from", msg.From)
		return
	}

	topic := u.topicFor(msg.From)
	if err := u.pub.Publish(topic, msg.Payload, u.cfg.QoS, false); err != nil {
		u.dropped.Add(1)
		u.log().Warn("uplink publish failed", "topic", topic, "error", err)
		return
	}
	u.published.Add(1)
}

// topicFor resolves the publish topic for a sending address. Routes win
// over the per-device telemetry default.
func (u *Uplink) topicFor(from bus.Address) string {
	if topic, ok := u.cfg.Routes[from]; ok {
		return topic
	}
	return u.topics.DeviceTelemetry(string(from))
}
