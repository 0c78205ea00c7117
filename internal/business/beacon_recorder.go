package business

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/Agurato/kolnoa/internal/metrics"
	"github.com/Agurato/kolnoa/internal/model"
)

var (
	beaconNames   = []string{"CLS", "FCP", "FID", "INP", "LCP", "TTFB"}
	beaconRatings = []string{"good", "needs-improvement", "poor"}
)

// BeaconRecorder turns web vitals sent by browsers into prometheus observations
type BeaconRecorder struct{}

func NewBeaconRecorder() *BeaconRecorder {
	return &BeaconRecorder{}
}

// Record validates and observes a batch of beacons. Nothing is observed if one of them is invalid.
func (br BeaconRecorder) Record(beacons []model.Beacon) error {
	if len(beacons) == 0 {
		return fmt.Errorf("no beacon: %w", model.ErrInvalidInput)
	}
	for i := range beacons {
		if err := ValidateBeacon(&beacons[i]); err != nil {
			metrics.BeaconsTotal.WithLabelValues("unknown", "rejected").Inc()
			return err
		}
	}
	for _, beacon := range beacons {
		metrics.WebVitals.WithLabelValues(beacon.Name, beacon.Rating).Observe(beacon.Value)
		metrics.BeaconsTotal.WithLabelValues(beacon.Name, "accepted").Inc()
	}
	return nil
}

// ValidateBeacon checks a beacon and normalizes its name
func ValidateBeacon(beacon *model.Beacon) error {
	beacon.Name = strings.ToUpper(strings.TrimSpace(beacon.Name))
	if !slices.Contains(beaconNames, beacon.Name) {
		return fmt.Errorf("unknown metric %q: %w", beacon.Name, model.ErrInvalidInput)
	}
	if math.IsNaN(beacon.Value) || math.IsInf(beacon.Value, 0) || beacon.Value < 0 {
		return fmt.Errorf("invalid value for %s: %w", beacon.Name, model.ErrInvalidInput)
	}
	if beacon.Rating != "" && !slices.Contains(beaconRatings, beacon.Rating) {
		return fmt.Errorf("invalid rating %q: %w", beacon.Rating, model.ErrInvalidInput)
	}
	if beacon.Rating == "" {
		beacon.Rating = "unrated"
	}
	return nil
}
