package device

import "fmt"

// Validation limits.
const (
	maxNameLength = 128
	maxParams     = 64
)

// ValidateConfig checks a device configuration for errors.
//
// Returns an error wrapping one of the ErrInvalid* sentinels describing the
// first problem found, or nil if the config is valid.
func ValidateConfig(cfg Config) error {
	if cfg.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if len(cfg.Name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}

	if len(cfg.Capabilities) == 0 {
		return fmt.Errorf("%w: at least one capability is required", ErrInvalidCapability)
	}
	for _, cap := range cfg.Capabilities {
		if !validCapability(cap) {
			return fmt.Errorf("%w: %q", ErrInvalidCapability, cap)
		}
	}

	if cfg.UpdateInterval <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidInterval, cfg.UpdateInterval)
	}

	if cfg.QueueHint < 0 {
		return fmt.Errorf("%w: queue hint must not be negative", ErrInvalidConfig)
	}
	if len(cfg.Params) > maxParams {
		return fmt.Errorf("%w: more than %d params", ErrInvalidConfig, maxParams)
	}

	return nil
}

func validCapability(cap Capability) bool {
	for _, known := range AllCapabilities() {
		if cap == known {
			return true
		}
	}
	return false
}
