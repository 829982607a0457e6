package influxdb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/windlass-marine/windlass-core/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	// Batch defaults when the config leaves them zero. One flush per
	// telemetry interval is plenty for a single vessel's track.
	defaultBatchSize       = 100
	defaultFlushIntervalMS = 10_000

	msPerSecond = 1000
)

// Client is the vessel's telemetry exporter: it batches the navigation
// track, radar sweeps, device health and bus throughput into InfluxDB.
// Writes never block a tick; points queue in the non-blocking write API
// and failures surface through the error callback and the counters.
type Client struct {
	influx   influxdb2.Client
	writeAPI api.WriteAPI
	cfg      config.InfluxDBConfig

	connected atomic.Bool

	// written and failed count points handed to the write API and async
	// write errors. Deltas between telemetry intervals show whether the
	// exporter is keeping up.
	written atomic.Uint64
	failed  atomic.Uint64

	onError func(err error)
	cbMu    sync.RWMutex
}

// validateConfig rejects a connection attempt that cannot succeed
// before any network traffic happens.
func validateConfig(cfg config.InfluxDBConfig) error {
	switch {
	case cfg.URL == "":
		return fmt.Errorf("%w: url is required", ErrInvalidConfig)
	case cfg.Token == "":
		return fmt.Errorf("%w: token is required", ErrInvalidConfig)
	case cfg.Org == "":
		return fmt.Errorf("%w: org is required", ErrInvalidConfig)
	case cfg.Bucket == "":
		return fmt.Errorf("%w: bucket is required", ErrInvalidConfig)
	}
	return nil
}

// Connect validates the settings, dials the server and arms the
// batching write API. ErrDisabled when the config turns telemetry off.
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	flushMS := cfg.FlushInterval * msPerSecond
	if flushMS <= 0 {
		flushMS = defaultFlushIntervalMS
	}

	// #nosec G115 -- both values forced positive above
	options := influxdb2.DefaultOptions().
		SetBatchSize(uint(batchSize)).
		SetFlushInterval(uint(flushMS))

	influx := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, options)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	healthy, err := influx.Ping(ctx)
	if err != nil {
		influx.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		influx.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	c := &Client{
		influx:   influx,
		writeAPI: influx.WriteAPI(cfg.Org, cfg.Bucket),
		cfg:      cfg,
	}
	c.connected.Store(true)

	go c.drainWriteErrors(c.writeAPI.Errors())

	return c, nil
}

// drainWriteErrors consumes async failures from the write API. The
// channel closes when the client does.
func (c *Client) drainWriteErrors(errorsCh <-chan error) {
	for err := range errorsCh {
		c.failed.Add(1)

		c.cbMu.RLock()
		callback := c.onError
		c.cbMu.RUnlock()
		if callback != nil {
			callback(err)
		}
	}
}

// write hands one point to the batching API. All the measurement
// helpers in write.go funnel through here so the counters stay honest.
func (c *Client) write(point *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(point)
	c.written.Add(1)
}

// PointsWritten returns how many points were handed to the write API.
func (c *Client) PointsWritten() uint64 {
	return c.written.Load()
}

// WriteErrors returns how many async write failures have occurred.
func (c *Client) WriteErrors() uint64 {
	return c.failed.Load()
}

// Close flushes the pending batch and shuts the exporter down.
func (c *Client) Close() error {
	if c.influx == nil {
		return nil
	}
	c.connected.Store(false)
	c.writeAPI.Flush()
	c.influx.Close()
	return nil
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	checkCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	healthy, err := c.influx.Ping(checkCtx)
	if err != nil {
		return fmt.Errorf("influxdb health check failed: %w", err)
	}
	if !healthy {
		return fmt.Errorf("influxdb health check failed: server not healthy")
	}
	return nil
}

// IsConnected reports the last known state. HealthCheck performs an
// active ping when that matters.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// SetOnError registers a callback for async write failures. Writes are
// batched, so the failure arrives after the WritePosition call that
// caused it; the callback should log, not retry.
func (c *Client) SetOnError(callback func(err error)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.onError = callback
}

// Flush forces the pending batch out. Used before shutdown and by
// tests; a disconnected exporter is a no-op.
func (c *Client) Flush() {
	if c.writeAPI == nil || !c.IsConnected() {
		return
	}
	c.writeAPI.Flush()
}
