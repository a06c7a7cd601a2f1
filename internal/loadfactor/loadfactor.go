// Package loadfactor computes the composite scalar §4.7 describes: N
// independent stats, each mapped to [0,1] by its own "heavy load"
// threshold, summed and scaled by HeavyLoadValue. The mapping is
// additive so that any single stat crossing its threshold is sufficient
// to push the composite above HeavyLoadValue.
package loadfactor

import "math"

// HeavyLoadValue is the scale applied to the summed, normalized stats.
const HeavyLoadValue = 100

// Stat is one independent input to the composite: a current reading and
// the threshold at which it alone counts as "heavy".
type Stat struct {
	Name      string
	Value     float64
	Threshold float64
}

// normalized returns value/threshold, or 0 when threshold is non-positive
// (a misconfigured or inapplicable stat contributes nothing rather than
// dividing by zero).
func (s Stat) normalized() float64 {
	if s.Threshold <= 0 {
		return 0
	}
	return s.Value / s.Threshold
}

// Sample holds the live readings this system feeds into Compute: active
// websocket connections, active documents, active sessions, and a rough
// size figure from the store (§4.7's named stats).
type Sample struct {
	ActiveConnections int
	ActiveDocuments   int
	ActiveSessions    int
	StoreRoughSize    int64
}

// Thresholds is the "heavy load" point for each stat in a Sample.
type Thresholds struct {
	Connections float64
	Documents   float64
	Sessions    float64
	StoreSize   float64
}

// DefaultThresholds are reasonable heavy-load points for a single
// coordinator process. The configuration has no field for them.
var DefaultThresholds = Thresholds{
	Connections: 2000,
	Documents:   500,
	Sessions:    2000,
	StoreSize:   5_000_000_000, // bytes
}

// Compute returns the composite load factor for sample under thresholds,
// per §4.7's formula.
func Compute(sample Sample, thresholds Thresholds) int {
	stats := []Stat{
		{Name: "connections", Value: float64(sample.ActiveConnections), Threshold: thresholds.Connections},
		{Name: "documents", Value: float64(sample.ActiveDocuments), Threshold: thresholds.Documents},
		{Name: "sessions", Value: float64(sample.ActiveSessions), Threshold: thresholds.Sessions},
		{Name: "storeSize", Value: float64(sample.StoreRoughSize), Threshold: thresholds.StoreSize},
	}

	var sum float64
	for _, s := range stats {
		sum += s.normalized()
	}
	return int(math.Round(sum * HeavyLoadValue))
}
