package instruments

import (
	"strconv"
	"strings"
)

// Fix holds the fields extracted from one NMEA sentence. Optional
// fields are pointers so an absent field is distinguishable from zero.
type Fix struct {
	Timestamp  string   `json:"timestamp,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Altitude   *float64 `json:"altitude,omitempty"`
	SpeedKnots *float64 `json:"speed_knots,omitempty"`
	FixQuality *int     `json:"fix_quality,omitempty"`
	Satellites *int     `json:"satellites,omitempty"`
}

// HasPosition reports whether the fix carries both coordinates.
func (f Fix) HasPosition() bool {
	return f.Latitude != nil && f.Longitude != nil
}

// ParseSentence extracts a Fix from a GGA or RMC sentence. The second
// return is false for empty input, unsupported sentence types, and RMC
// sentences flagged void by the receiver.
func ParseSentence(sentence string) (Fix, bool) {
	if sentence == "" || !strings.HasPrefix(sentence, "$") {
		return Fix{}, false
	}

	// The checksum suffix is not part of the last field.
	if i := strings.IndexByte(sentence, '*'); i >= 0 {
		sentence = sentence[:i]
	}

	parts := strings.Split(sentence, ",")
	switch parts[0] {
	case "$GPGGA", "$GNGGA":
		return parseGGA(parts)
	case "$GPRMC", "$GNRMC":
		return parseRMC(parts)
	default:
		return Fix{}, false
	}
}

// parseGGA handles the fix data sentence:
//
//	$GPGGA,time,lat,N/S,lon,E/W,quality,sats,hdop,alt,M,geoid,M,age,station
func parseGGA(parts []string) (Fix, bool) {
	if len(parts) < 15 {
		return Fix{}, false
	}

	fix := Fix{Timestamp: parts[1]}
	fix.Latitude = parseCoordinate(parts[2], parts[3], "S")
	fix.Longitude = parseCoordinate(parts[4], parts[5], "W")
	if q, err := strconv.Atoi(parts[6]); err == nil {
		fix.FixQuality = &q
	}
	if s, err := strconv.Atoi(parts[7]); err == nil {
		fix.Satellites = &s
	}
	if alt, err := strconv.ParseFloat(parts[9], 64); err == nil {
		fix.Altitude = &alt
	}
	return fix, true
}

// parseRMC handles the recommended minimum sentence:
//
//	$GPRMC,time,status,lat,N/S,lon,E/W,speed,course,date,mag,var
//
// A status other than "A" means the receiver has no valid fix and the
// sentence is discarded.
func parseRMC(parts []string) (Fix, bool) {
	if len(parts) < 12 {
		return Fix{}, false
	}
	if parts[2] != "A" {
		return Fix{}, false
	}

	fix := Fix{Timestamp: parts[1]}
	fix.Latitude = parseCoordinate(parts[3], parts[4], "S")
	fix.Longitude = parseCoordinate(parts[5], parts[6], "W")
	if speed, err := strconv.ParseFloat(parts[7], 64); err == nil {
		fix.SpeedKnots = &speed
	}
	return fix, true
}

// parseCoordinate converts NMEA ddmm.mmmm (or dddmm.mmmm) plus a
// hemisphere letter into signed decimal degrees. Returns nil when
// either field is empty or unparseable.
func parseCoordinate(raw, hemisphere, negative string) *float64 {
	if raw == "" || hemisphere == "" {
		return nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}

	degrees := float64(int(value / 100))
	minutes := value - degrees*100
	decimal := degrees + minutes/60

	if hemisphere == negative {
		decimal = -decimal
	}
	return &decimal
}
