package device

import (
	"testing"
	"time"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		state State
		want  Status
	}{
		{StateUninitialized, StatusOffline},
		{StateInitializing, StatusOffline},
		{StateRunning, StatusOnline},
		{StateDegraded, StatusDegraded},
		{StateShuttingDown, StatusOffline},
		{StateStopped, StatusOffline},
		{State("garbage"), StatusError},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := StatusFor(tt.state); got != tt.want {
				t.Errorf("StatusFor(%s) = %s, want %s", tt.state, got, tt.want)
			}
		})
	}
}

func TestConfigHasCapability(t *testing.T) {
	cfg := Config{Capabilities: []Capability{CapabilityGps, CapabilityCommunication}}

	if !cfg.HasCapability(CapabilityGps) {
		t.Error("expected Gps capability")
	}
	if cfg.HasCapability(CapabilityRadar) {
		t.Error("unexpected Radar capability")
	}
}

func TestInfoDeepCopy(t *testing.T) {
	original := Info{
		Address: "gps-1",
		Config: Config{
			Name:           "Primary GPS",
			Capabilities:   []Capability{CapabilityGps},
			UpdateInterval: time.Second,
			Params:         map[string]string{"datum": "WGS84"},
		},
		Status:   StatusOnline,
		LastSeen: time.Now(),
	}

	cpy := original.DeepCopy()
	cpy.Config.Capabilities[0] = CapabilityRadar
	cpy.Config.Params["datum"] = "ED50"

	if original.Config.Capabilities[0] != CapabilityGps {
		t.Error("capability slice is shared between copy and original")
	}
	if original.Config.Params["datum"] != "WGS84" {
		t.Error("params map is shared between copy and original")
	}
}

func TestAllCapabilitiesClosedSet(t *testing.T) {
	caps := AllCapabilities()
	if len(caps) != 5 {
		t.Fatalf("capability set has %d entries, want 5", len(caps))
	}
}
