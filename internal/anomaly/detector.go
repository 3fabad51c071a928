// Package anomaly flags implausible meter readings. Flags are advisory; a
// flagged reading is still recorded.
package anomaly

import (
	"fmt"
)

// Flag labels the kind of anomaly found
type Flag string

const (
	FlagDecrease Flag = "decrease"
	FlagSpike    Flag = "spike"
)

// Finding describes a flagged reading
type Finding struct {
	Flag   Flag
	Reason string
}

// Detector handles anomaly detection with configurable thresholds
type Detector struct {
	spikeThreshold            float64
	minDataPointsForDetection int
}

// NewDetector creates a new anomaly detector with the specified thresholds
func NewDetector(spikeThreshold float64, minDataPointsForDetection int) *Detector {
	return &Detector{
		spikeThreshold:            spikeThreshold,
		minDataPointsForDetection: minDataPointsForDetection,
	}
}

// DetectAnomaly checks the consumption delta of a new reading against the
// deltas of earlier readings on the same meter.
func (d *Detector) DetectAnomaly(delta float64, historicalDeltas []float64) (Finding, bool) {
	// Meter went backwards
	if delta < 0 {
		return Finding{
			Flag:   FlagDecrease,
			Reason: fmt.Sprintf("reading decreased by %.2f units", -delta),
		}, true
	}

	// Need enough historical data for spike detection
	if len(historicalDeltas) < d.minDataPointsForDetection {
		return Finding{}, false
	}

	// Calculate rolling average
	sum := 0.0
	for _, v := range historicalDeltas {
		sum += v
	}
	average := sum / float64(len(historicalDeltas))

	// Detect sudden spike (>threshold x rolling average)
	if average > 0 && delta > d.spikeThreshold*average {
		return Finding{
			Flag: FlagSpike,
			Reason: fmt.Sprintf("sudden spike detected: consumption %.2f exceeds %.1fx rolling average %.2f",
				delta, d.spikeThreshold, average),
		}, true
	}

	return Finding{}, false
}
