package instruments

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/windlass-marine/windlass-core/internal/bus"
	"github.com/windlass-marine/windlass-core/internal/device"
	"github.com/windlass-marine/windlass-core/internal/infrastructure/clock"
)

// PositionReport is the JSON payload a GNSS receiver broadcasts.
type PositionReport struct {
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	AltitudeM     float64   `json:"altitude_m,omitempty"`
	SpeedKnots    float64   `json:"speed_knots"`
	CourseDegrees float64   `json:"course_deg"`
	FixQuality    int       `json:"fix_quality"`
	Satellites    int       `json:"satellites"`
	Time          time.Time `json:"time"`
}

// GPSConfig configures a GNSS receiver instrument.
type GPSConfig struct {
	Name           string        `yaml:"name"`
	UpdateInterval time.Duration `yaml:"update_interval"`

	// Simulated motion parameters.
	StartLatitude  float64 `yaml:"start_latitude"`
	StartLongitude float64 `yaml:"start_longitude"`
	SpeedKnots     float64 `yaml:"speed_knots"`
	CourseDegrees  float64 `yaml:"course_deg"`

	// Sentences switches the receiver into NMEA replay mode: each
	// Process parses the next sentence instead of dead reckoning.
	Sentences []string `yaml:"sentences"`
}

// GPS is a simulated GNSS receiver.
type GPS struct {
	mu      sync.Mutex
	cfg     device.Config
	gps     GPSConfig
	clk     clock.Clock
	running bool

	lat, lon    float64
	lastAdvance time.Time
	sentenceIdx int
	lastReport  *PositionReport
}

// NewGPS creates a GNSS receiver. The update interval defaults to one
// second.
func NewGPS(cfg GPSConfig) *GPS {
	if cfg.Name == "" {
		cfg.Name = "GNSS Receiver"
	}
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = time.Second
	}
	return &GPS{
		cfg: device.Config{
			Name:           cfg.Name,
			Capabilities:   []device.Capability{device.CapabilityGps},
			UpdateInterval: cfg.UpdateInterval,
		},
		gps: cfg,
		clk: clock.System(),
		lat: cfg.StartLatitude,
		lon: cfg.StartLongitude,
	}
}

// SetClock replaces the time source. Call before Initialize.
func (g *GPS) SetClock(clk clock.Clock) {
	if clk != nil {
		g.clk = clk
	}
}

// Initialize validates the configuration and acquires the first fix.
func (g *GPS) Initialize(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.gps.Sentences) > 0 {
		usable := false
		for _, s := range g.gps.Sentences {
			if fix, ok := ParseSentence(s); ok && fix.HasPosition() {
				usable = true
				break
			}
		}
		if !usable {
			return fmt.Errorf("%w: no parseable sentence in replay set", device.ErrInitialization)
		}
	} else {
		if math.Abs(g.gps.StartLatitude) > 90 || math.Abs(g.gps.StartLongitude) > 180 {
			return fmt.Errorf("%w: start position out of range", device.ErrInitialization)
		}
	}

	g.lastAdvance = g.clk.Now()
	g.running = true
	return nil
}

// Process produces the next broadcast position report.
func (g *GPS) Process() ([]bus.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.running {
		return nil, fmt.Errorf("%w: receiver not initialised", device.ErrProcess)
	}

	var report PositionReport
	if len(g.gps.Sentences) > 0 {
		fix, err := g.nextFixLocked()
		if err != nil {
			return nil, err
		}
		report = g.reportFromFix(fix)
	} else {
		g.advanceLocked()
		report = PositionReport{
			Latitude:      g.lat,
			Longitude:     g.lon,
			SpeedKnots:    g.gps.SpeedKnots,
			CourseDegrees: g.gps.CourseDegrees,
			FixQuality:    1,
			Satellites:    10,
			Time:          g.clk.Now(),
		}
	}

	g.lastReport = &report
	payload, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding report: %v", device.ErrProcess, err)
	}
	return []bus.Message{bus.NewData("", bus.Broadcast, payload)}, nil
}

// nextFixLocked replays sentences until one yields a position,
// wrapping around the replay set. A full lap with no usable sentence
// is a process error.
func (g *GPS) nextFixLocked() (Fix, error) {
	for range g.gps.Sentences {
		s := g.gps.Sentences[g.sentenceIdx]
		g.sentenceIdx = (g.sentenceIdx + 1) % len(g.gps.Sentences)

		if fix, ok := ParseSentence(s); ok && fix.HasPosition() {
			return fix, nil
		}
	}
	return Fix{}, fmt.Errorf("%w: no usable sentence in replay set", device.ErrProcess)
}

func (g *GPS) reportFromFix(fix Fix) PositionReport {
	report := PositionReport{
		Latitude:      *fix.Latitude,
		Longitude:     *fix.Longitude,
		CourseDegrees: g.gps.CourseDegrees,
		FixQuality:    1,
		Time:          g.clk.Now(),
	}
	if fix.Altitude != nil {
		report.AltitudeM = *fix.Altitude
	}
	if fix.SpeedKnots != nil {
		report.SpeedKnots = *fix.SpeedKnots
	}
	if fix.FixQuality != nil {
		report.FixQuality = *fix.FixQuality
	}
	if fix.Satellites != nil {
		report.Satellites = *fix.Satellites
	}
	return report
}

// advanceLocked dead-reckons the position along the configured course.
func (g *GPS) advanceLocked() {
	now := g.clk.Now()
	dt := now.Sub(g.lastAdvance)
	g.lastAdvance = now
	if dt <= 0 || g.gps.SpeedKnots == 0 {
		return
	}

	distanceNM := g.gps.SpeedKnots * dt.Hours()
	course := g.gps.CourseDegrees * math.Pi / 180

	// One nautical mile is one minute of latitude.
	g.lat += distanceNM / 60 * math.Cos(course)
	g.lon += distanceNM / 60 * math.Sin(course) / math.Cos(g.lat*math.Pi/180)
}

// Info describes the receiver.
func (g *GPS) Info() device.Info {
	g.mu.Lock()
	defer g.mu.Unlock()
	return device.Info{
		Config:       g.cfg.DeepCopy(),
		Status:       device.StatusOnline,
		Version:      "1.0.0",
		Manufacturer: "Windlass",
	}
}

// LastReport returns the most recent position report, if any.
func (g *GPS) LastReport() (PositionReport, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastReport == nil {
		return PositionReport{}, false
	}
	return *g.lastReport, true
}

// Shutdown stops the receiver.
func (g *GPS) Shutdown(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.running = false
	return nil
}
