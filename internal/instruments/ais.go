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

// AISTarget is one tracked vessel.
type AISTarget struct {
	MMSI          uint32  `json:"mmsi" yaml:"mmsi"`
	Name          string  `json:"name" yaml:"name"`
	Latitude      float64 `json:"latitude" yaml:"latitude"`
	Longitude     float64 `json:"longitude" yaml:"longitude"`
	CourseDegrees float64 `json:"course_deg" yaml:"course_deg"`
	SpeedKnots    float64 `json:"speed_knots" yaml:"speed_knots"`
}

// AISReport is the JSON payload broadcast for one target update.
type AISReport struct {
	Target AISTarget `json:"target"`
	Time   time.Time `json:"time"`
}

// AISConfig configures an AIS receiver instrument.
type AISConfig struct {
	Name           string        `yaml:"name"`
	UpdateInterval time.Duration `yaml:"update_interval"`
	Targets        []AISTarget   `yaml:"targets"`
}

// AIS is a simulated AIS receiver. Targets move along their course and
// report round-robin, one per Process, the way real class A targets
// stagger their transmissions.
type AIS struct {
	mu      sync.Mutex
	cfg     device.Config
	clk     clock.Clock
	running bool

	targets     []AISTarget
	next        int
	lastAdvance time.Time
}

// NewAIS creates an AIS receiver. The update interval defaults to two
// seconds.
func NewAIS(cfg AISConfig) *AIS {
	if cfg.Name == "" {
		cfg.Name = "AIS Receiver"
	}
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = 2 * time.Second
	}
	targets := make([]AISTarget, len(cfg.Targets))
	copy(targets, cfg.Targets)
	return &AIS{
		cfg: device.Config{
			Name:           cfg.Name,
			Capabilities:   []device.Capability{device.CapabilityAis},
			UpdateInterval: cfg.UpdateInterval,
		},
		clk:     clock.System(),
		targets: targets,
	}
}

// SetClock replaces the time source. Call before Initialize.
func (a *AIS) SetClock(clk clock.Clock) {
	if clk != nil {
		a.clk = clk
	}
}

// Initialize starts the receiver.
func (a *AIS) Initialize(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastAdvance = a.clk.Now()
	a.running = true
	return nil
}

// Process moves every target along its course and broadcasts the next
// target's report. With no targets configured it produces nothing.
func (a *AIS) Process() ([]bus.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return nil, fmt.Errorf("%w: receiver not initialised", device.ErrProcess)
	}
	if len(a.targets) == 0 {
		return nil, nil
	}

	now := a.clk.Now()
	dt := now.Sub(a.lastAdvance)
	a.lastAdvance = now
	if dt > 0 {
		for i := range a.targets {
			advanceTarget(&a.targets[i], dt)
		}
	}

	target := a.targets[a.next]
	a.next = (a.next + 1) % len(a.targets)

	payload, err := json.Marshal(AISReport{Target: target, Time: now})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding report: %v", device.ErrProcess, err)
	}
	return []bus.Message{bus.NewData("", bus.Broadcast, payload)}, nil
}

// advanceTarget dead-reckons a target along its course.
func advanceTarget(t *AISTarget, dt time.Duration) {
	if t.SpeedKnots == 0 {
		return
	}
	distanceNM := t.SpeedKnots * dt.Hours()
	course := t.CourseDegrees * math.Pi / 180
	t.Latitude += distanceNM / 60 * math.Cos(course)
	t.Longitude += distanceNM / 60 * math.Sin(course) / math.Cos(t.Latitude*math.Pi/180)
}

// Info describes the receiver.
func (a *AIS) Info() device.Info {
	a.mu.Lock()
	defer a.mu.Unlock()
	return device.Info{
		Config:       a.cfg.DeepCopy(),
		Status:       device.StatusOnline,
		Version:      "1.0.0",
		Manufacturer: "Windlass",
	}
}

// Shutdown stops the receiver.
func (a *AIS) Shutdown(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.running = false
	return nil
}
