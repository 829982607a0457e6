package discovery

import (
	"strings"

	"github.com/windlass-marine/windlass-core/internal/device"
)

// Filter narrows a discovery request to devices matching all of its
// populated fields. A zero Filter (or a nil *Filter) matches every
// device.
type Filter struct {
	// Capabilities that a device must all advertise.
	Capabilities []device.Capability `msgpack:"capabilities,omitempty" json:"capabilities,omitempty"`

	// NamePattern is a case-insensitive substring match against the
	// device name.
	NamePattern string `msgpack:"name_pattern,omitempty" json:"name_pattern,omitempty"`

	// Manufacturer must match exactly when set.
	Manufacturer string `msgpack:"manufacturer,omitempty" json:"manufacturer,omitempty"`

	// MinVersion is a lexicographic lower bound on the device version.
	MinVersion string `msgpack:"min_version,omitempty" json:"min_version,omitempty"`
}

// Matches reports whether info satisfies every populated criterion.
func (f *Filter) Matches(info device.Info) bool {
	if f == nil {
		return true
	}
	for _, c := range f.Capabilities {
		if !info.Config.HasCapability(c) {
			return false
		}
	}
	if f.NamePattern != "" {
		if !strings.Contains(strings.ToLower(info.Config.Name), strings.ToLower(f.NamePattern)) {
			return false
		}
	}
	if f.Manufacturer != "" && info.Manufacturer != f.Manufacturer {
		return false
	}
	if f.MinVersion != "" && info.Version < f.MinVersion {
		return false
	}
	return true
}
