// Windlass Core - Virtual Marine Instrument Platform
//
// This is the main entry point for the Windlass simulation runtime.
// Windlass hosts a fleet of virtual navigation instruments on an
// in-process message bus:
//   - Simulated GNSS, radar and AIS receivers producing live telemetry
//   - Peer discovery so instruments can enumerate each other
//   - Optional MQTT uplink and InfluxDB telemetry export
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/windlass-marine/windlass-core/internal/bridges/uplink"
	"github.com/windlass-marine/windlass-core/internal/bus"
	"github.com/windlass-marine/windlass-core/internal/device"
	"github.com/windlass-marine/windlass-core/internal/discovery"
	"github.com/windlass-marine/windlass-core/internal/infrastructure/config"
	"github.com/windlass-marine/windlass-core/internal/infrastructure/database"
	"github.com/windlass-marine/windlass-core/internal/infrastructure/influxdb"
	"github.com/windlass-marine/windlass-core/internal/infrastructure/logging"
	"github.com/windlass-marine/windlass-core/internal/infrastructure/mqtt"
	"github.com/windlass-marine/windlass-core/internal/instruments"
	"github.com/windlass-marine/windlass-core/internal/journal"
	"github.com/windlass-marine/windlass-core/internal/manager"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// Runtime intervals not worth configuring.
const (
	// uplinkAddress is the bus address of the MQTT uplink bridge.
	uplinkAddress bus.Address = "uplink-1"

	// telemetryInterval paces the InfluxDB status and bus-stats export.
	telemetryInterval = 10 * time.Second

	// pruneInterval paces journal retention enforcement.
	pruneInterval = time.Hour

	// shutdownTimeout bounds the device shutdown sequence.
	shutdownTimeout = 10 * time.Second
)

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Windlass Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings and the vessel identity
	log = logging.New(cfg.Logging, version).WithVessel(cfg.Vessel.ID)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Create the vessel bus
	vesselBus := bus.New()
	vesselBus.SetLogger(log)

	// Open the bus journal (optional, requires the database)
	var jnl *journal.Journal
	var jdb *database.DB
	if cfg.Journal.Enabled {
		db, openErr := database.Open(database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if openErr != nil {
			return fmt.Errorf("opening database: %w", openErr)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		log.Info("database connected", "path", cfg.Database.Path)

		jnl, err = journal.New(db)
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		defer func() {
			log.Info("closing journal", "dropped", jnl.Dropped())
			if closeErr := jnl.Close(); closeErr != nil {
				log.Error("error closing journal", "error", closeErr)
			}
		}()

		vesselBus.SetRecorder(jnl)
		jdb = db
		log.Info("bus journal enabled", "retention", cfg.JournalRetention())
	} else {
		log.Info("bus journal disabled")
	}

	// Create the device manager
	mgr := manager.New(vesselBus, manager.Config{
		ProcessBudget:     cfg.Simulation.ProcessBudget,
		DegradedThreshold: cfg.Simulation.DegradedThreshold,
		Discovery: discovery.Config{
			HeartbeatInterval: cfg.Discovery.HeartbeatInterval,
			DeviceTimeout:     cfg.Discovery.DeviceTimeout,
			CleanupInterval:   cfg.Discovery.CleanupInterval,
			MaxTrackedDevices: cfg.Discovery.MaxTrackedDevices,
		},
	})
	mgr.SetLogger(log)

	// Any traffic from a device proves it alive, not just heartbeats
	vesselBus.SetOnActivity(mgr.ObserveActivity)

	// Register the simulated instrument fleet
	if err := registerInstruments(mgr, cfg, log); err != nil {
		return fmt.Errorf("registering instruments: %w", err)
	}

	// Connect the MQTT uplink (optional)
	if cfg.Uplink.Enabled {
		mqttClient, connErr := mqtt.Connect(cfg.MQTT, mqtt.Topics{Prefix: cfg.Uplink.TopicPrefix})
		if connErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", connErr)
		}
		mqttClient.SetLogger(log)
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(discErr error) {
			log.Warn("MQTT disconnected", "error", discErr)
		})

		up := uplink.New(uplinkConfig(cfg), mqttClient)
		up.SetLogger(log)
		if addErr := mgr.AddDevice(uplinkAddress, up); addErr != nil {
			return fmt.Errorf("registering uplink: %w", addErr)
		}
		log.Info("uplink registered", "address", string(uplinkAddress), "topic_prefix", cfg.Uplink.TopicPrefix)
	} else {
		log.Info("uplink disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(writeErr error) {
			log.Error("InfluxDB write error", "error", writeErr)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start the fleet
	started := 0
	for _, result := range mgr.StartAll(ctx) {
		if result.Err != nil {
			log.Error("device failed to start", "address", string(result.Address), "error", result.Err)
			continue
		}
		started++
	}
	if started == 0 {
		return errors.New("no devices started")
	}
	log.Info("fleet started", "devices", started, "registered", mgr.Count())

	log.Info("initialisation complete, entering scheduling loop",
		"tick_interval", cfg.Simulation.TickInterval,
	)

	// Scheduling loop
	ticker := time.NewTicker(cfg.Simulation.TickInterval)
	defer ticker.Stop()
	telemetry := time.NewTicker(telemetryInterval)
	defer telemetry.Stop()
	prune := time.NewTicker(pruneInterval)
	defer prune.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown signal received, stopping fleet")
			stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stopCancel()
			if stopErr := mgr.StopAll(stopCtx); stopErr != nil {
				log.Error("errors during fleet shutdown", "error", stopErr)
			}
			log.Info("Windlass Core stopped")
			return nil

		case <-ticker.C:
			mgr.Tick()

		case <-telemetry.C:
			exportTelemetry(influxClient, vesselBus, mgr)

		case <-prune.C:
			if jnl != nil && cfg.JournalRetention() > 0 {
				pruned, pruneErr := jnl.Prune(ctx, cfg.JournalRetention())
				if pruneErr != nil {
					log.Warn("journal prune failed", "error", pruneErr)
				} else if pruned > 0 {
					// Fold the deletions out of the WAL so the file shrinks.
					if cpErr := jdb.Checkpoint(ctx); cpErr != nil {
						log.Warn("journal checkpoint failed", "error", cpErr)
					}
					log.Info("journal pruned", "entries", pruned)
				}
			}
		}
	}
}

// registerInstruments builds the enabled instruments from config and
// registers them with the manager.
func registerInstruments(mgr *manager.Manager, cfg *config.Config, log *logging.Logger) error {
	if cfg.Instruments.GPS.Enabled {
		gps := instruments.NewGPS(instruments.GPSConfig{
			UpdateInterval: cfg.Instruments.GPS.UpdateInterval,
			StartLatitude:  cfg.Instruments.GPS.StartLatitude,
			StartLongitude: cfg.Instruments.GPS.StartLongitude,
			SpeedKnots:     cfg.Instruments.GPS.SpeedKnots,
			CourseDegrees:  cfg.Instruments.GPS.CourseDegrees,
			Sentences:      cfg.Instruments.GPS.Sentences,
		})
		if err := mgr.AddDevice(bus.Address(cfg.Instruments.GPS.Address), gps); err != nil {
			return fmt.Errorf("gps: %w", err)
		}
		log.Info("instrument registered", "address", cfg.Instruments.GPS.Address, "type", "gps")
	}

	if cfg.Instruments.Radar.Enabled {
		radar := instruments.NewRadar(instruments.RadarConfig{
			UpdateInterval: cfg.Instruments.Radar.UpdateInterval,
			RangeScaleNM:   cfg.Instruments.Radar.RangeScaleNM,
			RPM:            cfg.Instruments.Radar.RPM,
			Contacts:       defaultRadarContacts(),
		})
		if err := mgr.AddDevice(bus.Address(cfg.Instruments.Radar.Address), radar); err != nil {
			return fmt.Errorf("radar: %w", err)
		}
		log.Info("instrument registered", "address", cfg.Instruments.Radar.Address, "type", "radar")
	}

	if cfg.Instruments.AIS.Enabled {
		ais := instruments.NewAIS(instruments.AISConfig{
			UpdateInterval: cfg.Instruments.AIS.UpdateInterval,
			Targets:        defaultAISTargets(cfg.Instruments.GPS.StartLatitude, cfg.Instruments.GPS.StartLongitude),
		})
		if err := mgr.AddDevice(bus.Address(cfg.Instruments.AIS.Address), ais); err != nil {
			return fmt.Errorf("ais: %w", err)
		}
		log.Info("instrument registered", "address", cfg.Instruments.AIS.Address, "type", "ais")
	}

	return nil
}

// uplinkConfig maps application config onto the uplink bridge, routing
// the well-known instrument feeds to their navigation topics.
func uplinkConfig(cfg *config.Config) uplink.Config {
	topics := mqtt.Topics{Prefix: cfg.Uplink.TopicPrefix}
	return uplink.Config{
		TopicPrefix: cfg.Uplink.TopicPrefix,
		QoS:         byte(cfg.MQTT.QoS),
		Routes: map[bus.Address]string{
			bus.Address(cfg.Instruments.GPS.Address):   topics.NavPosition(),
			bus.Address(cfg.Instruments.Radar.Address): topics.NavRadar(),
			bus.Address(cfg.Instruments.AIS.Address):   topics.NavAIS(),
		},
	}
}

// defaultRadarContacts seeds the radar picture with slow-moving traffic.
func defaultRadarContacts() []instruments.RadarContact {
	return []instruments.RadarContact{
		{ID: "contact-1", BearingDegrees: 45, RangeNM: 3.2, BearingRate: 0.05, RangeRate: -0.002},
		{ID: "contact-2", BearingDegrees: 180, RangeNM: 8.5, BearingRate: -0.02, RangeRate: 0.001},
		{ID: "contact-3", BearingDegrees: 310, RangeNM: 5.0, BearingRate: 0.01, RangeRate: 0},
	}
}

// defaultAISTargets seeds two class A targets near the own-ship start
// position.
func defaultAISTargets(lat, lon float64) []instruments.AISTarget {
	return []instruments.AISTarget{
		{MMSI: 235098765, Name: "EVENING STAR", Latitude: lat + 0.02, Longitude: lon - 0.01, CourseDegrees: 90, SpeedKnots: 8.5},
		{MMSI: 232004991, Name: "SOLENT ROSE", Latitude: lat - 0.015, Longitude: lon + 0.025, CourseDegrees: 275, SpeedKnots: 12.0},
	}
}

// exportTelemetry writes device health and bus throughput to InfluxDB.
// A nil client (InfluxDB disabled) is a no-op.
func exportTelemetry(influxClient *influxdb.Client, vesselBus *bus.Bus, mgr *manager.Manager) {
	if influxClient == nil {
		return
	}

	for _, info := range mgr.Devices() {
		up := 0.0
		if info.Status == device.StatusOnline {
			up = 1.0
		}
		influxClient.WriteDeviceStatus(string(info.Address), string(info.Status), up)
	}

	stats := vesselBus.GetStats()
	influxClient.WriteBusStats(stats.Sent, stats.Delivered, stats.Rejected, len(vesselBus.ConnectedAddresses()))
}

// getConfigPath returns the configuration file path.
// Uses WINDLASS_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("WINDLASS_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
