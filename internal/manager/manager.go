package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/windlass-marine/windlass-core/internal/bus"
	"github.com/windlass-marine/windlass-core/internal/device"
	"github.com/windlass-marine/windlass-core/internal/discovery"
	"github.com/windlass-marine/windlass-core/internal/infrastructure/clock"
)

// Logger defines the logging interface used by the Manager.
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

// maxDrainPerTick bounds how many inbound messages one device consumes
// per tick, so a self-addressed feedback loop cannot starve the fleet.
const maxDrainPerTick = 256

// Config holds the manager's scheduling parameters.
type Config struct {
	// ProcessBudget is the wall-time allowance for a single Process
	// call. Exceeding it counts as a process error.
	ProcessBudget time.Duration `yaml:"process_budget"`

	// DegradedThreshold is the number of consecutive process errors
	// that mark a device Degraded.
	DegradedThreshold int `yaml:"degraded_threshold"`

	// Discovery configures the per-device discovery agents.
	Discovery discovery.Config `yaml:"discovery"`
}

// DefaultConfig returns the standard scheduling parameters: a 100ms
// process budget and degradation after 3 consecutive errors.
func DefaultConfig() Config {
	return Config{
		ProcessBudget:     100 * time.Millisecond,
		DegradedThreshold: 3,
		Discovery:         discovery.DefaultConfig(),
	}
}

// StartResult reports the outcome of starting one device.
type StartResult struct {
	Address bus.Address
	Err     error
}

// managedDevice pairs a device with its bus connection, its discovery
// agent and its lifecycle bookkeeping.
type managedDevice struct {
	dev   device.Device
	conn  *bus.Connection
	agent *discovery.Protocol

	stateMu     sync.Mutex
	state       device.State
	errStreak   int
	lastProcess time.Time
}

func (md *managedDevice) currentState() device.State {
	md.stateMu.Lock()
	defer md.stateMu.Unlock()
	return md.state
}

func (md *managedDevice) setState(s device.State) {
	md.stateMu.Lock()
	md.state = s
	md.stateMu.Unlock()
}

// Manager owns the registered devices and drives their lifecycle.
//
// All methods are safe for concurrent use, though Tick is expected to
// be called from a single scheduler goroutine.
type Manager struct {
	mu      sync.Mutex
	devices map[bus.Address]*managedDevice
	order   []bus.Address

	bus    *bus.Bus
	cfg    Config
	clk    clock.Clock
	logger Logger
}

// New creates a Manager routing through b. Zero config fields fall back
// to defaults.
func New(b *bus.Bus, cfg Config) *Manager {
	def := DefaultConfig()
	if cfg.ProcessBudget <= 0 {
		cfg.ProcessBudget = def.ProcessBudget
	}
	if cfg.DegradedThreshold <= 0 {
		cfg.DegradedThreshold = def.DegradedThreshold
	}
	return &Manager{
		devices: make(map[bus.Address]*managedDevice),
		bus:     b,
		cfg:     cfg,
		clk:     clock.System(),
		logger:  noopLogger{},
	}
}

// SetClock replaces the time source. Call before StartAll.
func (m *Manager) SetClock(clk clock.Clock) {
	if clk != nil {
		m.clk = clk
	}
}

// SetLogger replaces the no-op logger, including on the discovery
// agents of already registered devices.
func (m *Manager) SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	m.logger = logger
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, md := range m.devices {
		md.agent.SetLogger(logger)
	}
}

// AddDevice validates the device's configuration, reserves its bus
// address and registers it in the Uninitialized state. The device does
// not run until StartAll.
//
// Returns bus.ErrDuplicateAddress when the address is taken, or a
// device validation error when the configuration is unusable.
func (m *Manager) AddDevice(addr bus.Address, dev device.Device) error {
	cfg := dev.Info().Config
	if err := device.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("device %s: %w", addr, err)
	}

	conn, err := m.bus.Connect(addr, cfg.QueueHint)
	if err != nil {
		return fmt.Errorf("device %s: %w", addr, err)
	}

	md := &managedDevice{
		dev:   dev,
		conn:  conn,
		state: device.StateUninitialized,
	}
	md.agent = discovery.New(m.infoProvider(addr, md), conn, m.cfg.Discovery)
	md.agent.SetClock(m.clk)
	md.agent.SetLogger(m.logger)

	m.mu.Lock()
	m.devices[addr] = md
	m.order = append(m.order, addr)
	m.mu.Unlock()

	m.logger.Info("device registered", "address", string(addr), "name", cfg.Name)
	return nil
}

// infoProvider builds the DeviceInfo the discovery agent publishes:
// the device's self-description with the manager's lifecycle-derived
// status overlaid.
func (m *Manager) infoProvider(addr bus.Address, md *managedDevice) discovery.InfoProvider {
	return func() device.Info {
		info := md.dev.Info()
		info.Address = addr
		info.Status = device.StatusFor(md.currentState())
		return info
	}
}

// StartAll initialises every registered device in registration order.
// A failed initialisation stops only that device; the rest keep
// starting. Each successfully started device announces itself.
func (m *Manager) StartAll(ctx context.Context) []StartResult {
	results := make([]StartResult, 0, len(m.snapshotOrder()))
	for _, addr := range m.snapshotOrder() {
		md, ok := m.lookup(addr)
		if !ok || md.currentState() != device.StateUninitialized {
			continue
		}

		md.setState(device.StateInitializing)
		if err := md.dev.Initialize(ctx); err != nil {
			md.setState(device.StateStopped)
			wrapped := fmt.Errorf("%w: %s: %v", device.ErrInitialization, addr, err)
			m.logger.Error("device failed to initialise",
				"address", string(addr), "error", err)
			results = append(results, StartResult{Address: addr, Err: wrapped})
			continue
		}

		md.setState(device.StateRunning)
		if err := md.agent.Announce(); err != nil {
			m.logger.Warn("initial announce failed",
				"address", string(addr), "error", err)
		}
		m.logger.Info("device started", "address", string(addr))
		results = append(results, StartResult{Address: addr})
	}
	return results
}

// Tick runs one scheduling pass over the fleet in registration order:
// inbound drain, Process when due, output forwarding, discovery upkeep.
func (m *Manager) Tick() {
	for _, addr := range m.snapshotOrder() {
		md, ok := m.lookup(addr)
		if !ok {
			continue
		}
		switch md.currentState() {
		case device.StateRunning, device.StateDegraded:
			m.tickDevice(addr, md)
		}
	}
}

func (m *Manager) tickDevice(addr bus.Address, md *managedDevice) {
	m.drainInbound(addr, md)

	if m.processDue(md) {
		m.processDevice(addr, md)
	}

	if err := md.agent.Tick(); err != nil {
		m.logger.Warn("discovery tick failed", "address", string(addr), "error", err)
	}
}

// drainInbound consumes the device's pending messages. Discovery
// traffic goes to the agent; data traffic goes to the device when it
// implements device.MessageHandler and is otherwise discarded.
func (m *Manager) drainInbound(addr bus.Address, md *managedDevice) {
	handler, handles := md.dev.(device.MessageHandler)

	for i := 0; i < maxDrainPerTick; i++ {
		select {
		case msg, open := <-md.conn.Messages():
			if !open {
				return
			}
			if msg.IsDiscovery() {
				if err := md.agent.Handle(msg); err != nil {
					m.logger.Warn("discovery handling failed",
						"address", string(addr), "error", err)
				}
				continue
			}
			if !handles {
				m.logger.Debug("discarding data message for non-handler device",
					"address", string(addr), "from", string(msg.From))
				continue
			}
			out, err := handler.HandleMessage(msg)
			if err != nil {
				m.logger.Warn("message handling failed",
					"address", string(addr), "error", err)
				continue
			}
			m.forward(addr, md, out)
		default:
			return
		}
	}
}

func (m *Manager) processDue(md *managedDevice) bool {
	interval := md.dev.Info().Config.UpdateInterval
	md.stateMu.Lock()
	defer md.stateMu.Unlock()
	if md.lastProcess.IsZero() {
		return true
	}
	return m.clk.Now().Sub(md.lastProcess) >= interval
}

// processDevice runs one Process call and applies the degradation
// rules: budget overruns count as errors, the configured number of
// consecutive errors marks the device Degraded, and the first success
// afterwards restores Running.
func (m *Manager) processDevice(addr bus.Address, md *managedDevice) {
	start := m.clk.Now()
	out, err := md.dev.Process()
	elapsed := m.clk.Now().Sub(start)

	md.stateMu.Lock()
	md.lastProcess = start
	md.stateMu.Unlock()

	if err == nil && elapsed > m.cfg.ProcessBudget {
		err = fmt.Errorf("%w: %s: exceeded process budget (%s > %s)",
			device.ErrProcess, addr, elapsed, m.cfg.ProcessBudget)
	}

	if err != nil {
		m.recordProcessError(addr, md, err)
		return
	}

	m.recordProcessSuccess(addr, md)
	m.forward(addr, md, out)
}

func (m *Manager) recordProcessError(addr bus.Address, md *managedDevice, err error) {
	md.stateMu.Lock()
	md.errStreak++
	streak := md.errStreak
	degraded := false
	if streak >= m.cfg.DegradedThreshold && md.state == device.StateRunning {
		md.state = device.StateDegraded
		degraded = true
	}
	md.stateMu.Unlock()

	if degraded {
		m.logger.Warn("device degraded",
			"address", string(addr), "consecutive_errors", streak, "error", err)
		return
	}
	m.logger.Debug("device process error",
		"address", string(addr), "consecutive_errors", streak, "error", err)
}

func (m *Manager) recordProcessSuccess(addr bus.Address, md *managedDevice) {
	md.stateMu.Lock()
	recovered := md.state == device.StateDegraded
	md.errStreak = 0
	md.state = device.StateRunning
	md.stateMu.Unlock()

	if recovered {
		m.logger.Info("device recovered", "address", string(addr))
	}
}

func (m *Manager) forward(addr bus.Address, md *managedDevice, msgs []bus.Message) {
	for _, msg := range msgs {
		if err := md.conn.Send(msg); err != nil {
			m.logger.Debug("dropping undeliverable message",
				"from", string(addr), "to", string(msg.To), "error", err)
		}
	}
}

// Discover broadcasts a discovery request on behalf of a running
// device. Responses accumulate in that device's known-devices view.
func (m *Manager) Discover(addr bus.Address, filter *discovery.Filter) error {
	md, ok := m.lookup(addr)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, addr)
	}
	switch md.currentState() {
	case device.StateRunning, device.StateDegraded:
		return md.agent.Discover(filter)
	default:
		return fmt.Errorf("%w: %s is %s", ErrNotRunning, addr, md.currentState())
	}
}

// DiscoveredBy returns the known-devices view accumulated by one
// device's discovery agent.
func (m *Manager) DiscoveredBy(addr bus.Address) ([]device.Info, error) {
	md, ok := m.lookup(addr)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, addr)
	}
	return md.agent.GetKnownDevices(), nil
}

// ObserveActivity refreshes the sender's last_seen in every device's
// known-devices view. Wire it to the bus activity callback so any
// traffic from a device proves it alive, not just heartbeats.
func (m *Manager) ObserveActivity(from bus.Address) {
	m.mu.Lock()
	agents := make([]*discovery.Protocol, 0, len(m.devices))
	for _, md := range m.devices {
		agents = append(agents, md.agent)
	}
	m.mu.Unlock()

	for _, agent := range agents {
		agent.ObserveActivity(from)
	}
}

// RemoveDevice shuts a device down and releases its bus address. The
// address is disconnected even when Shutdown fails, so a faulty device
// cannot hold its registration hostage.
func (m *Manager) RemoveDevice(ctx context.Context, addr bus.Address) error {
	m.mu.Lock()
	md, ok := m.devices[addr]
	if ok {
		delete(m.devices, addr)
		for i, a := range m.order {
			if a == addr {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, addr)
	}

	err := m.stopDevice(ctx, addr, md)
	m.bus.Disconnect(addr)
	m.logger.Info("device removed", "address", string(addr))
	return err
}

// StopAll shuts every device down in reverse registration order and
// releases all bus addresses. Shutdown errors are aggregated; every
// device is attempted regardless.
func (m *Manager) StopAll(ctx context.Context) error {
	order := m.snapshotOrder()

	var errs []error
	for i := len(order) - 1; i >= 0; i-- {
		addr := order[i]
		md, ok := m.lookup(addr)
		if !ok {
			continue
		}
		if err := m.stopDevice(ctx, addr, md); err != nil {
			errs = append(errs, err)
		}
		m.bus.Disconnect(addr)
	}
	return errors.Join(errs...)
}

func (m *Manager) stopDevice(ctx context.Context, addr bus.Address, md *managedDevice) error {
	switch md.currentState() {
	case device.StateStopped, device.StateUninitialized:
		md.setState(device.StateStopped)
		return nil
	}

	md.setState(device.StateShuttingDown)
	err := md.dev.Shutdown(ctx)
	md.setState(device.StateStopped)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", device.ErrShutdown, addr, err)
	}
	m.logger.Info("device stopped", "address", string(addr))
	return nil
}

// State returns the lifecycle state of one device.
func (m *Manager) State(addr bus.Address) (device.State, error) {
	md, ok := m.lookup(addr)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownDevice, addr)
	}
	return md.currentState(), nil
}

// DeviceInfo returns one device's self-description with the lifecycle
// status overlaid. The manager's view is authoritative: a device
// claiming Online while Degraded still reports Degraded here.
func (m *Manager) DeviceInfo(addr bus.Address) (device.Info, error) {
	md, ok := m.lookup(addr)
	if !ok {
		return device.Info{}, fmt.Errorf("%w: %s", ErrUnknownDevice, addr)
	}
	info := md.dev.Info()
	info.Address = addr
	info.Status = device.StatusFor(md.currentState())
	return info.DeepCopy(), nil
}

// Devices returns the fleet's device descriptions in registration
// order, statuses overlaid.
func (m *Manager) Devices() []device.Info {
	order := m.snapshotOrder()
	out := make([]device.Info, 0, len(order))
	for _, addr := range order {
		info, err := m.DeviceInfo(addr)
		if err != nil {
			continue
		}
		out = append(out, info)
	}
	return out
}

// Count returns the number of registered devices.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.devices)
}

func (m *Manager) snapshotOrder() []bus.Address {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]bus.Address, len(m.order))
	copy(out, m.order)
	return out
}

func (m *Manager) lookup(addr bus.Address) (*managedDevice, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	md, ok := m.devices[addr]
	return md, ok
}
