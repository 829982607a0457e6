// Package logging is the structured logging layer, a thin wrapper over
// log/slog.
//
// Every record carries the service name and build version; WithVessel
// adds the vessel identity once configuration is loaded, which is the
// field shore-side aggregation keys on when several vessels feed one
// sink. Component loggers derive via With and share the parent's level,
// so SetLevel at runtime affects the whole tree.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, or text for bench testing
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	log := logging.New(cfg.Logging, version).WithVessel(cfg.Vessel.ID)
//	busLog := log.With("component", "bus")
//	busLog.Info("participant connected", "address", "gps-1")
//
// # Security
//
// Never log secrets, tokens or credentials. Redact where context is
// needed:
//
//	log.Info("broker auth", "user", cfg.Auth.Username)
package logging
