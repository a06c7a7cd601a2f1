package loadfactor

import "testing"

func TestComputeEmptySampleIsZero(t *testing.T) {
	lf := Compute(Sample{}, DefaultThresholds)
	if lf != 0 {
		t.Fatalf("expected 0, got %d", lf)
	}
}

func TestComputeSingleStatAtThresholdHitsHeavyLoadValue(t *testing.T) {
	thresholds := Thresholds{Connections: 100, Documents: 100, Sessions: 100, StoreSize: 100}
	lf := Compute(Sample{ActiveConnections: 100}, thresholds)
	if lf != HeavyLoadValue {
		t.Fatalf("expected %d, got %d", HeavyLoadValue, lf)
	}
}

func TestComputeIsAdditiveAcrossStats(t *testing.T) {
	thresholds := Thresholds{Connections: 100, Documents: 100, Sessions: 100, StoreSize: 100}
	lf := Compute(Sample{ActiveConnections: 50, ActiveDocuments: 50}, thresholds)
	if lf != HeavyLoadValue {
		t.Fatalf("expected %d, got %d", HeavyLoadValue, lf)
	}
}

func TestComputeZeroThresholdContributesNothing(t *testing.T) {
	thresholds := Thresholds{Connections: 0, Documents: 100, Sessions: 100, StoreSize: 100}
	lf := Compute(Sample{ActiveConnections: 1_000_000}, thresholds)
	if lf != 0 {
		t.Fatalf("expected 0, got %d", lf)
	}
}
