package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WritePosition records a vessel position fix on the navigation track.
//
// Non-blocking; the point joins the current batch. On a disconnected
// exporter the fix is silently skipped.
//
// Example:
//
//	client.WritePosition("gps-1", 50.7989, -1.1100, 6.2, 184.0)
func (c *Client) WritePosition(source string, latitude, longitude, speedKnots, courseDegrees float64) {
	c.write(write.NewPoint(
		"position",
		map[string]string{
			"source": source,
		},
		map[string]interface{}{
			"latitude":   latitude,
			"longitude":  longitude,
			"speed_kn":   speedKnots,
			"course_deg": courseDegrees,
		},
		time.Now(),
	))
}

// WriteRadarSweep records a radar sweep summary: antenna bearing at the
// end of the sweep, contact count inside the current scale, and the
// range scale in nautical miles.
func (c *Client) WriteRadarSweep(source string, sweepDegrees float64, contacts int, scaleNM float64) {
	c.write(write.NewPoint(
		"radar_sweep",
		map[string]string{
			"source": source,
		},
		map[string]interface{}{
			"sweep_deg": sweepDegrees,
			"contacts":  contacts,
			"scale_nm":  scaleNM,
		},
		time.Now(),
	))
}

// WriteDeviceStatus records a device health sample: up is 1.0 while the
// device is online, 0.0 otherwise. Tracks lifecycle transitions
// (online, degraded, offline) across the simulated fleet.
func (c *Client) WriteDeviceStatus(address string, status string, up float64) {
	c.write(write.NewPoint(
		"device_status",
		map[string]string{
			"address": address,
			"status":  status,
		},
		map[string]interface{}{
			"up": up,
		},
		time.Now(),
	))
}

// WriteBusStats records message bus throughput. Counters are cumulative
// since startup; rate queries derive deltas.
func (c *Client) WriteBusStats(sent, delivered, dropped uint64, participants int) {
	c.write(write.NewPoint(
		"bus_stats",
		map[string]string{},
		map[string]interface{}{
			"sent":         sent,
			"delivered":    delivered,
			"dropped":      dropped,
			"participants": participants,
		},
		time.Now(),
	))
}

// WritePoint records a custom measurement for anything the helpers
// don't cover.
//
// Example:
//
//	client.WritePoint("tick_stats",
//	    map[string]string{"vessel": "windlass-dev"},
//	    map[string]interface{}{"duration_ms": 4.2, "devices": 3})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.write(write.NewPoint(measurement, tags, fields, time.Now()))
}

// WritePointWithTime records a custom measurement with an explicit
// timestamp, for replayed rather than live data.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	c.write(write.NewPoint(measurement, tags, fields, timestamp))
}
