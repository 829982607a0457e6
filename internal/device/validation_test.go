package device

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Name:           "Primary GPS",
		Capabilities:   []Capability{CapabilityGps},
		UpdateInterval: time.Second,
		QueueHint:      64,
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "valid",
			mutate:  func(*Config) {},
			wantErr: nil,
		},
		{
			name:    "empty name",
			mutate:  func(c *Config) { c.Name = "" },
			wantErr: ErrInvalidName,
		},
		{
			name:    "name too long",
			mutate:  func(c *Config) { c.Name = strings.Repeat("x", 129) },
			wantErr: ErrInvalidName,
		},
		{
			name:    "no capabilities",
			mutate:  func(c *Config) { c.Capabilities = nil },
			wantErr: ErrInvalidCapability,
		},
		{
			name:    "unknown capability",
			mutate:  func(c *Config) { c.Capabilities = []Capability{"sonar"} },
			wantErr: ErrInvalidCapability,
		},
		{
			name:    "zero interval",
			mutate:  func(c *Config) { c.UpdateInterval = 0 },
			wantErr: ErrInvalidInterval,
		},
		{
			name:    "negative interval",
			mutate:  func(c *Config) { c.UpdateInterval = -time.Second },
			wantErr: ErrInvalidInterval,
		},
		{
			name:    "negative queue hint",
			mutate:  func(c *Config) { c.QueueHint = -1 },
			wantErr: ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := ValidateConfig(cfg)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateConfig() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateConfig() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
