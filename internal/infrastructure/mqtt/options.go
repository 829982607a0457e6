package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/windlass-marine/windlass-core/internal/infrastructure/config"
)

// brokerURL renders the broker address for paho. Coastal installations
// run plain TCP on the boat network; TLS is for uplinks that cross the
// public internet.
func brokerURL(cfg config.MQTTConfig) string {
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)
}

// buildClientOptions maps the uplink configuration onto paho options.
// The last will and the event handlers are attached by Connect; this
// covers addressing, auth and the reconnect policy.
//
// Reconnect policy: a vessel uplink is expected to drop (marinas, cell
// coverage, radio horizon), so both auto-reconnect and connect-retry
// are on, backing off from the configured initial delay to the cap.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions().
		AddBroker(brokerURL(cfg)).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(secondsToDuration(cfg.Reconnect.InitialDelay)).
		SetMaxReconnectInterval(secondsToDuration(cfg.Reconnect.MaxDelay)).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(keepAlive)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	return opts
}

// secondsToDuration converts the config's integer seconds.
func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
