package anomaly_test

import (
	"testing"

	"github.com/septivank/rent-manager/internal/anomaly"
)

const (
	testSpikeThreshold            = 3.0
	testMinDataPointsForDetection = 3
)

func TestDetectAnomaly_Decrease(t *testing.T) {
	detector := anomaly.NewDetector(testSpikeThreshold, testMinDataPointsForDetection)

	finding, isAnomaly := detector.DetectAnomaly(-10.5, []float64{100, 105, 98})

	if !isAnomaly {
		t.Fatal("Expected anomaly for decreasing reading")
	}

	if finding.Flag != anomaly.FlagDecrease {
		t.Errorf("Expected flag 'decrease', got '%s'", finding.Flag)
	}

	if finding.Reason != "reading decreased by 10.50 units" {
		t.Errorf("Unexpected reason '%s'", finding.Reason)
	}
}

func TestDetectAnomaly_DecreaseWithoutHistory(t *testing.T) {
	detector := anomaly.NewDetector(testSpikeThreshold, testMinDataPointsForDetection)

	finding, isAnomaly := detector.DetectAnomaly(-1, nil)

	if !isAnomaly || finding.Flag != anomaly.FlagDecrease {
		t.Error("Expected decrease flag even without history")
	}
}

func TestDetectAnomaly_SuddenSpike(t *testing.T) {
	detector := anomaly.NewDetector(testSpikeThreshold, testMinDataPointsForDetection)

	historical := []float64{100, 105, 98, 102, 99}
	delta := 350.0 // More than 3x the average (~100)

	finding, isAnomaly := detector.DetectAnomaly(delta, historical)

	if !isAnomaly {
		t.Fatal("Expected anomaly for sudden spike")
	}

	if finding.Flag != anomaly.FlagSpike {
		t.Errorf("Expected flag 'spike', got '%s'", finding.Flag)
	}

	if finding.Reason == "" {
		t.Error("Expected reason for spike anomaly")
	}
}

func TestDetectAnomaly_NormalValue(t *testing.T) {
	detector := anomaly.NewDetector(testSpikeThreshold, testMinDataPointsForDetection)

	historical := []float64{100, 105, 98, 102, 99}

	finding, isAnomaly := detector.DetectAnomaly(103.0, historical)

	if isAnomaly {
		t.Errorf("Expected no anomaly, but got: %s", finding.Reason)
	}
}

func TestDetectAnomaly_InsufficientData(t *testing.T) {
	detector := anomaly.NewDetector(testSpikeThreshold, testMinDataPointsForDetection)

	historical := []float64{100, 105} // Less than MinDataPointsForDetection

	_, isAnomaly := detector.DetectAnomaly(300.0, historical)

	if isAnomaly {
		t.Error("Should not detect spike with insufficient historical data")
	}
}

func TestDetectAnomaly_ZeroAverage(t *testing.T) {
	detector := anomaly.NewDetector(testSpikeThreshold, testMinDataPointsForDetection)

	historical := []float64{0, 0, 0}

	_, isAnomaly := detector.DetectAnomaly(100.0, historical)

	if isAnomaly {
		t.Error("Should not detect spike when average is zero")
	}
}

func TestDetectAnomaly_ExactThreshold(t *testing.T) {
	detector := anomaly.NewDetector(testSpikeThreshold, testMinDataPointsForDetection)

	historical := []float64{100, 100, 100}

	_, isAnomaly := detector.DetectAnomaly(300.0, historical)

	if isAnomaly {
		t.Error("Should not detect anomaly at exact threshold (needs to be > not >=)")
	}
}
