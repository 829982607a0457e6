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

// RadarContact is one target on the radar picture.
type RadarContact struct {
	ID             string  `json:"id"`
	BearingDegrees float64 `json:"bearing_deg"`
	RangeNM        float64 `json:"range_nm"`

	// Drift rates applied per second of simulated time.
	BearingRate float64 `json:"-" yaml:"bearing_rate"`
	RangeRate   float64 `json:"-" yaml:"range_rate"`
}

// RadarSweep is the JSON payload a radar broadcasts each revolution.
type RadarSweep struct {
	SweepDegrees float64        `json:"sweep_deg"`
	RangeScaleNM float64        `json:"range_scale_nm"`
	Contacts     []RadarContact `json:"contacts"`
	Time         time.Time      `json:"time"`
}

// RadarConfig configures a radar instrument.
type RadarConfig struct {
	Name           string         `yaml:"name"`
	UpdateInterval time.Duration  `yaml:"update_interval"`
	RangeScaleNM   float64        `yaml:"range_scale_nm"`
	RPM            float64        `yaml:"rpm"`
	Contacts       []RadarContact `yaml:"contacts"`
}

// Radar is a simulated radar with deterministically drifting contacts.
type Radar struct {
	mu      sync.Mutex
	cfg     device.Config
	radar   RadarConfig
	clk     clock.Clock
	running bool

	sweepDeg    float64
	contacts    []RadarContact
	lastAdvance time.Time
}

// NewRadar creates a radar. Range scale defaults to 12nm, antenna
// speed to 24rpm, update interval to one second.
func NewRadar(cfg RadarConfig) *Radar {
	if cfg.Name == "" {
		cfg.Name = "Radar"
	}
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = time.Second
	}
	if cfg.RangeScaleNM <= 0 {
		cfg.RangeScaleNM = 12
	}
	if cfg.RPM <= 0 {
		cfg.RPM = 24
	}
	contacts := make([]RadarContact, len(cfg.Contacts))
	copy(contacts, cfg.Contacts)
	return &Radar{
		cfg: device.Config{
			Name:           cfg.Name,
			Capabilities:   []device.Capability{device.CapabilityRadar},
			UpdateInterval: cfg.UpdateInterval,
		},
		radar:    cfg,
		clk:      clock.System(),
		contacts: contacts,
	}
}

// SetClock replaces the time source. Call before Initialize.
func (r *Radar) SetClock(clk clock.Clock) {
	if clk != nil {
		r.clk = clk
	}
}

// Initialize spins the antenna up.
func (r *Radar) Initialize(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastAdvance = r.clk.Now()
	r.running = true
	return nil
}

// Process advances the sweep, drifts the contacts and broadcasts the
// picture. Contacts that drift past the range scale drop off it.
func (r *Radar) Process() ([]bus.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return nil, fmt.Errorf("%w: antenna not spinning", device.ErrProcess)
	}

	now := r.clk.Now()
	dt := now.Sub(r.lastAdvance).Seconds()
	r.lastAdvance = now
	if dt > 0 {
		r.sweepDeg = math.Mod(r.sweepDeg+r.radar.RPM*6*dt, 360)
		for i := range r.contacts {
			r.contacts[i].BearingDegrees = math.Mod(
				r.contacts[i].BearingDegrees+r.contacts[i].BearingRate*dt+360, 360)
			r.contacts[i].RangeNM += r.contacts[i].RangeRate * dt
		}
	}

	visible := make([]RadarContact, 0, len(r.contacts))
	for _, c := range r.contacts {
		if c.RangeNM > 0 && c.RangeNM <= r.radar.RangeScaleNM {
			visible = append(visible, c)
		}
	}

	payload, err := json.Marshal(RadarSweep{
		SweepDegrees: r.sweepDeg,
		RangeScaleNM: r.radar.RangeScaleNM,
		Contacts:     visible,
		Time:         now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding sweep: %v", device.ErrProcess, err)
	}
	return []bus.Message{bus.NewData("", bus.Broadcast, payload)}, nil
}

// Info describes the radar.
func (r *Radar) Info() device.Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	return device.Info{
		Config:       r.cfg.DeepCopy(),
		Status:       device.StatusOnline,
		Version:      "1.0.0",
		Manufacturer: "Windlass",
	}
}

// Shutdown stops the antenna.
func (r *Radar) Shutdown(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	return nil
}
