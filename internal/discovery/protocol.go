package discovery

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/windlass-marine/windlass-core/internal/bus"
	"github.com/windlass-marine/windlass-core/internal/device"
	"github.com/windlass-marine/windlass-core/internal/infrastructure/clock"
)

// InfoProvider supplies the participant's current DeviceInfo. Called
// whenever the protocol announces or answers a discovery request, so
// status changes are reflected without re-registration.
type InfoProvider func() device.Info

// Sender puts messages on the bus. Both *bus.Bus and *bus.Connection
// satisfy it.
type Sender interface {
	Send(msg bus.Message) error
}

// Logger is the minimal logging interface the protocol needs.
// A no-op implementation is used unless SetLogger is called.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Protocol is one participant's view of discovery: it announces the
// participant, answers matching discovery requests, and tracks every
// other device it hears from.
//
// All methods are safe for concurrent use, though the expected pattern
// is single-threaded calls from the owner's scheduler tick.
type Protocol struct {
	cfg    Config
	self   InfoProvider
	sender Sender
	table  *table
	clk    clock.Clock
	logger Logger

	tickMu       sync.Mutex
	lastAnnounce time.Time
	lastCleanup  time.Time
}

// New creates a Protocol for the participant described by self,
// sending through sender. Zero config fields fall back to defaults.
func New(self InfoProvider, sender Sender, cfg Config) *Protocol {
	def := DefaultConfig()
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = def.HeartbeatInterval
	}
	if cfg.DeviceTimeout <= 0 {
		cfg.DeviceTimeout = def.DeviceTimeout
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	if cfg.MaxTrackedDevices <= 0 {
		cfg.MaxTrackedDevices = def.MaxTrackedDevices
	}
	return &Protocol{
		cfg:    cfg,
		self:   self,
		sender: sender,
		table:  newTable(cfg.MaxTrackedDevices),
		clk:    clock.System(),
		logger: noopLogger{},
	}
}

// SetClock replaces the time source. Call before first use.
func (p *Protocol) SetClock(clk clock.Clock) {
	if clk != nil {
		p.clk = clk
	}
}

// SetLogger replaces the no-op logger. Call before first use.
func (p *Protocol) SetLogger(logger Logger) {
	if logger != nil {
		p.logger = logger
	}
}

// Announce broadcasts the participant's current DeviceInfo.
func (p *Protocol) Announce() error {
	info := p.self()
	payload, err := encodeAnnounce(info)
	if err != nil {
		return fmt.Errorf("encoding announce: %w", err)
	}
	if err := p.sender.Send(bus.NewAnnounce(info.Address, payload)); err != nil {
		return fmt.Errorf("sending announce: %w", err)
	}
	p.tickMu.Lock()
	p.lastAnnounce = p.clk.Now()
	p.tickMu.Unlock()
	return nil
}

// Heartbeat broadcasts a lightweight liveness beacon. Unlike Announce
// it carries no DeviceInfo; receivers only refresh last_seen.
func (p *Protocol) Heartbeat() error {
	info := p.self()
	if err := p.sender.Send(bus.NewHeartbeat(info.Address)); err != nil {
		return fmt.Errorf("sending heartbeat: %w", err)
	}
	return nil
}

// Discover broadcasts a discovery request. Matching devices reply
// directly; the replies land in the known-devices table as the owner
// feeds them through Handle. A nil filter asks every device to respond.
func (p *Protocol) Discover(filter *Filter) error {
	info := p.self()
	payload, err := encodeRequest(filter)
	if err != nil {
		return fmt.Errorf("encoding discovery request: %w", err)
	}
	if err := p.sender.Send(bus.NewDiscoveryRequest(info.Address, payload)); err != nil {
		return fmt.Errorf("sending discovery request: %w", err)
	}
	return nil
}

// Handle processes one inbound message. Discovery kinds update the
// known-devices table or trigger a response; anything else returns
// ErrNotDiscovery so the caller can route it elsewhere. Malformed
// discovery envelopes are dropped at debug severity and never returned
// as errors.
func (p *Protocol) Handle(msg bus.Message) error {
	now := p.clk.Now()
	selfAddr := p.self().Address

	switch msg.Kind {
	case bus.KindAnnounce:
		info, err := decodeAnnounce(msg.Payload)
		if err != nil {
			p.logger.Debug("dropping malformed announce", "from", msg.From, "error", err)
			return nil
		}
		if info.Address == selfAddr {
			return nil
		}
		info.LastSeen = now
		p.record(info)
		return nil

	case bus.KindHeartbeat:
		if msg.From == selfAddr {
			return nil
		}
		if evicted, ok := p.table.touch(msg.From, now); ok {
			p.logger.Debug("evicted least recently seen device", "address", evicted)
		}
		return nil

	case bus.KindDiscoveryRequest:
		if msg.From == selfAddr {
			return nil
		}
		filter, err := decodeRequest(msg.Payload)
		if err != nil {
			p.logger.Debug("dropping malformed discovery request", "from", msg.From, "error", err)
			return nil
		}
		return p.respond(msg.From, filter)

	case bus.KindDiscoveryResponse:
		info, err := decodeResponse(msg.Payload)
		if err != nil {
			p.logger.Debug("dropping malformed discovery response", "from", msg.From, "error", err)
			return nil
		}
		if info.Address == selfAddr {
			return nil
		}
		info.LastSeen = now
		p.record(info)
		return nil

	default:
		return fmt.Errorf("%w: kind %s", ErrNotDiscovery, msg.Kind)
	}
}

// IsDiscoveryError reports whether Handle rejected a message because it
// was not discovery traffic.
func IsDiscoveryError(err error) bool {
	return errors.Is(err, ErrNotDiscovery)
}

// ObserveActivity refreshes last_seen for a sender whose traffic was
// seen outside the discovery envelopes, typically wired to the bus
// activity callback. Any message from a device proves it is alive.
func (p *Protocol) ObserveActivity(from bus.Address) {
	if from == "" || from == p.self().Address {
		return
	}
	if evicted, ok := p.table.touch(from, p.clk.Now()); ok {
		p.logger.Debug("evicted least recently seen device", "address", evicted)
	}
}

// Tick drives the periodic work: re-announce when the heartbeat
// interval has elapsed and sweep the table when the cleanup interval
// has elapsed. The first Tick always announces.
func (p *Protocol) Tick() error {
	now := p.clk.Now()

	p.tickMu.Lock()
	announce := p.lastAnnounce.IsZero() || now.Sub(p.lastAnnounce) >= p.cfg.HeartbeatInterval
	sweep := false
	if p.lastCleanup.IsZero() {
		p.lastCleanup = now
	} else if now.Sub(p.lastCleanup) >= p.cfg.CleanupInterval {
		sweep = true
		p.lastCleanup = now
	}
	p.tickMu.Unlock()

	if announce {
		if err := p.Announce(); err != nil {
			return err
		}
	}
	if sweep {
		p.Sweep()
	}
	return nil
}

// Sweep evicts every known device whose silence exceeds the device
// timeout and returns how many were removed. A device seen exactly at
// the timeout boundary survives.
func (p *Protocol) Sweep() int {
	removed := p.table.sweep(p.clk.Now(), p.cfg.DeviceTimeout)
	for _, addr := range removed {
		p.logger.Info("device timed out", "address", addr, "timeout", p.cfg.DeviceTimeout)
	}
	return len(removed)
}

// GetKnownDevices returns deep copies of all tracked devices, ordered
// by address.
func (p *Protocol) GetKnownDevices() []device.Info {
	return p.table.snapshot()
}

// GetDevice returns a deep copy of one tracked device.
func (p *Protocol) GetDevice(addr bus.Address) (device.Info, bool) {
	return p.table.get(addr)
}

// DeviceCount returns the number of tracked devices.
func (p *Protocol) DeviceCount() int {
	return p.table.count()
}

func (p *Protocol) record(info device.Info) {
	if evicted, ok := p.table.upsert(info); ok {
		p.logger.Debug("evicted least recently seen device", "address", evicted)
	}
}

func (p *Protocol) respond(to bus.Address, filter *Filter) error {
	self := p.self()
	if !filter.Matches(self) {
		return nil
	}
	payload, err := encodeResponse(self)
	if err != nil {
		return fmt.Errorf("encoding discovery response: %w", err)
	}
	if err := p.sender.Send(bus.NewDiscoveryResponse(self.Address, to, payload)); err != nil {
		return fmt.Errorf("sending discovery response: %w", err)
	}
	return nil
}
