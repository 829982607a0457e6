package instruments

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/windlass-marine/windlass-core/internal/device"
	"github.com/windlass-marine/windlass-core/internal/infrastructure/clock"
)

var (
	_ device.Device = (*GPS)(nil)
	_ device.Device = (*Radar)(nil)
	_ device.Device = (*AIS)(nil)
)

func TestGPSSimulatedMotion(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	gps := NewGPS(GPSConfig{
		StartLatitude:  50.0,
		StartLongitude: -1.0,
		SpeedKnots:     6.0,
		CourseDegrees:  0, // due north
	})
	gps.SetClock(clk)

	if err := gps.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}

	// Ten minutes at 6 knots is one nautical mile north, one minute of
	// latitude.
	clk.Advance(10 * time.Minute)
	msgs, err := gps.Process()
	if err != nil {
		t.Fatalf("Process() = %v", err)
	}
	if len(msgs) != 1 || !msgs[0].IsBroadcast() {
		t.Fatalf("Process() produced %d messages, want 1 broadcast", len(msgs))
	}

	var report PositionReport
	if err := json.Unmarshal(msgs[0].Payload, &report); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	wantLat := 50.0 + 1.0/60.0
	if !almostEqual(report.Latitude, wantLat) {
		t.Errorf("latitude = %f, want %f", report.Latitude, wantLat)
	}
	if !almostEqual(report.Longitude, -1.0) {
		t.Errorf("longitude = %f, want -1.0 on a due-north course", report.Longitude)
	}
	if report.SpeedKnots != 6.0 {
		t.Errorf("speed = %f, want 6.0", report.SpeedKnots)
	}
}

func TestGPSReplayMode(t *testing.T) {
	gps := NewGPS(GPSConfig{
		Sentences: []string{
			"$GPGSV,3,1,11,03,03,111,00*74", // unparseable, skipped
			"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47",
			"$GPRMC,123520,A,4807.040,N,01131.002,E,022.4,084.4,230394,003.1,W*6A",
		},
	})

	if err := gps.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}

	msgs, err := gps.Process()
	if err != nil {
		t.Fatalf("Process() = %v", err)
	}
	var first PositionReport
	if err := json.Unmarshal(msgs[0].Payload, &first); err != nil {
		t.Fatal(err)
	}
	if !almostEqual(first.Latitude, 48.1173) {
		t.Errorf("replayed latitude = %f, want 48.1173", first.Latitude)
	}
	if first.Satellites != 8 {
		t.Errorf("satellites = %d, want 8", first.Satellites)
	}

	// The next call replays the RMC sentence, carrying speed.
	msgs, err = gps.Process()
	if err != nil {
		t.Fatalf("Process() = %v", err)
	}
	var second PositionReport
	if err := json.Unmarshal(msgs[0].Payload, &second); err != nil {
		t.Fatal(err)
	}
	if !almostEqual(second.SpeedKnots, 22.4) {
		t.Errorf("replayed speed = %f, want 22.4", second.SpeedKnots)
	}
}

func TestGPSReplayRejectsUnusableSet(t *testing.T) {
	gps := NewGPS(GPSConfig{
		Sentences: []string{"$GPGSV,3,1,11,03,03,111,00*74"},
	})

	err := gps.Initialize(context.Background())
	if !errors.Is(err, device.ErrInitialization) {
		t.Errorf("Initialize() = %v, want ErrInitialization", err)
	}
}

func TestGPSProcessBeforeInitialize(t *testing.T) {
	gps := NewGPS(GPSConfig{StartLatitude: 50, StartLongitude: -1})

	if _, err := gps.Process(); !errors.Is(err, device.ErrProcess) {
		t.Errorf("Process() before Initialize = %v, want ErrProcess", err)
	}
}

func TestGPSProcessAfterShutdown(t *testing.T) {
	gps := NewGPS(GPSConfig{StartLatitude: 50, StartLongitude: -1})
	if err := gps.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := gps.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := gps.Process(); !errors.Is(err, device.ErrProcess) {
		t.Errorf("Process() after Shutdown = %v, want ErrProcess", err)
	}
}

func TestGPSInitializeRejectsBadStart(t *testing.T) {
	gps := NewGPS(GPSConfig{StartLatitude: 120})

	if err := gps.Initialize(context.Background()); !errors.Is(err, device.ErrInitialization) {
		t.Errorf("Initialize() = %v, want ErrInitialization", err)
	}
}

func TestGPSInfo(t *testing.T) {
	gps := NewGPS(GPSConfig{Name: "Masthead GNSS"})

	info := gps.Info()
	if info.Config.Name != "Masthead GNSS" {
		t.Errorf("name = %q", info.Config.Name)
	}
	if !info.Config.HasCapability(device.CapabilityGps) {
		t.Error("missing gps capability")
	}
	if err := device.ValidateConfig(info.Config); err != nil {
		t.Errorf("instrument config fails validation: %v", err)
	}
}
