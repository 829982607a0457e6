package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/windlass-marine/windlass-core/internal/infrastructure/config"
)

const (
	// connectTimeout bounds the initial broker dial.
	connectTimeout = 10 * time.Second

	// tokenWait bounds publish, subscribe and unsubscribe acknowledgements.
	tokenWait = 5 * time.Second

	// disconnectQuiesceMS is how long Close lets in-flight frames drain.
	disconnectQuiesceMS = 1000

	// keepAlive is the PINGREQ interval that detects a dead link.
	keepAlive = 60 * time.Second

	// maxQoS is the highest MQTT QoS level.
	maxQoS = 2
)

// Client is the vessel's shore uplink: one paho connection that carries
// every topic under the configured windlass prefix. It announces itself
// on the system status topic, leaves a last will there for crash
// detection, and replays its subscription set after every reconnect.
//
// All methods are safe for concurrent use.
type Client struct {
	cfg    config.MQTTConfig
	topics Topics

	paho pahomqtt.Client

	// subs is the resubscribe set: every active pattern with its QoS and
	// handler, replayed against the broker when the link comes back.
	subs  map[string]subEntry
	subMu sync.RWMutex

	connected bool
	connMu    sync.RWMutex

	onConnect    func()
	onDisconnect func(err error)
	cbMu         sync.RWMutex

	logger   Logger
	loggerMu sync.RWMutex
}

// Logger is the slice of logging.Logger the uplink needs. Link state
// changes log at info, handler failures at warn, panics at error.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type subEntry struct {
	qos     byte
	handler MessageHandler
}

// MessageHandler receives inbound frames. Paho invokes handlers on its
// own goroutines; a returned error is logged and the frame is still
// acknowledged.
type MessageHandler func(topic string, payload []byte) error

// StatusPayload is the JSON body on the system status topic. The same
// shape serves the retained online announcement, the graceful offline
// announcement and the broker-side last will, so shore consumers parse
// one schema regardless of how the uplink went away.
type StatusPayload struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Status values and offline reasons used in StatusPayload.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"

	// ReasonLostLink marks the last will: the broker noticed the vessel
	// vanished without a DISCONNECT.
	ReasonLostLink = "unexpected_disconnect"

	// ReasonShutdown marks a clean Close.
	ReasonShutdown = "graceful_shutdown"
)

// statusJSON renders a StatusPayload stamped with the current time.
func statusJSON(status, clientID, reason string) []byte {
	body, _ := json.Marshal(StatusPayload{
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return body
}

// Connect dials the broker and brings the uplink online. The topics
// argument decides where status announcements and the last will land;
// the zero value uses the default windlass prefix. On success the
// retained online status has been queued and auto-reconnect is armed.
func Connect(cfg config.MQTTConfig, topics Topics) (*Client, error) {
	c := &Client{
		cfg:    cfg,
		topics: topics,
		subs:   make(map[string]subEntry),
	}

	opts := buildClientOptions(cfg)

	// The broker publishes this on our behalf if the vessel drops off
	// without a DISCONNECT, flipping the retained status to offline.
	opts.SetWill(topics.SystemStatus(),
		string(statusJSON(StatusOffline, cfg.Broker.ClientID, ReasonLostLink)),
		1, true)

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleConnectionLost(err)
	})
	opts.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		if logger := c.getLogger(); logger != nil {
			logger.Info("uplink reconnecting", "broker", brokerURL(cfg))
		}
	})

	c.paho = pahomqtt.NewClient(opts)
	if err := waitToken(c.paho.Connect(), connectTimeout, ErrConnectionFailed); err != nil {
		return nil, err
	}

	// The OnConnect callback runs asynchronously; mark the link up here
	// so IsConnected is true as soon as Connect returns.
	c.setConnected(true)

	return c, nil
}

// handleConnect runs on initial connect and on every reconnect.
func (c *Client) handleConnect() {
	c.setConnected(true)

	restored := c.resubscribe()
	if logger := c.getLogger(); logger != nil {
		logger.Info("uplink online",
			"client_id", c.cfg.Broker.ClientID,
			"subscriptions", restored,
		)
	}

	// Retained, so late shore subscribers see the current state.
	c.paho.Publish(c.topics.SystemStatus(), byte(c.cfg.QoS), true,
		statusJSON(StatusOnline, c.cfg.Broker.ClientID, ""))

	c.cbMu.RLock()
	callback := c.onConnect
	c.cbMu.RUnlock()
	if callback != nil {
		callback()
	}
}

// handleConnectionLost runs when the broker link drops. Paho's
// auto-reconnect takes over from here; we only track state and notify.
func (c *Client) handleConnectionLost(err error) {
	c.setConnected(false)

	if logger := c.getLogger(); logger != nil {
		logger.Warn("uplink lost broker link", "error", err)
	}

	c.cbMu.RLock()
	callback := c.onDisconnect
	c.cbMu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// resubscribe replays the subscription set after a reconnect and
// returns how many patterns were re-registered.
func (c *Client) resubscribe() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for pattern, sub := range c.subs {
		token := c.paho.Subscribe(pattern, sub.qos, c.wrapHandler(sub.handler))
		if err := waitToken(token, tokenWait, ErrSubscribeFailed); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("uplink resubscribe failed",
					"pattern", pattern,
					"error", err,
				)
			}
		}
	}
	return len(c.subs)
}

// Close announces the graceful offline status, drains in-flight frames
// and disconnects. The last will is not triggered by a clean Close.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}

	if c.IsConnected() {
		token := c.paho.Publish(c.topics.SystemStatus(), byte(c.cfg.QoS), true,
			statusJSON(StatusOffline, c.cfg.Broker.ClientID, ReasonShutdown))
		token.WaitTimeout(tokenWait)
	}

	c.paho.Disconnect(disconnectQuiesceMS)
	c.setConnected(false)
	return nil
}

// HealthCheck reports whether the broker link is up.
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports the last known link state. It satisfies the
// uplink bridge's Publisher interface.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected && c.paho.IsConnected()
}

func (c *Client) setConnected(up bool) {
	c.connMu.Lock()
	c.connected = up
	c.connMu.Unlock()
}

// SetOnConnect registers a callback for initial connect and reconnects.
func (c *Client) SetOnConnect(callback func()) {
	c.cbMu.Lock()
	c.onConnect = callback
	c.cbMu.Unlock()
}

// SetOnDisconnect registers a callback for lost links. The error is the
// reason paho reported for the drop.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.cbMu.Lock()
	c.onDisconnect = callback
	c.cbMu.Unlock()
}

// SetLogger attaches a logger for link state and handler failures.
// Without one the uplink stays silent.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// waitToken folds a paho token into one of the package sentinels.
func waitToken(token pahomqtt.Token, wait time.Duration, sentinel error) error {
	if !token.WaitTimeout(wait) {
		return fmt.Errorf("%w: no acknowledgement within %v", sentinel, wait)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return nil
}

// wrapHandler shields the paho dispatch goroutine from handler panics
// and logs handler errors instead of propagating them.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Error("uplink handler panic recovered",
						"topic", msg.Topic(),
						"panic", r,
					)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("uplink handler failed",
					"topic", msg.Topic(),
					"error", err,
				)
			}
		}
	}
}
