package metrics

import "time"

// Sample is a single cognitive load / energy reading for a user.
// Samples are produced by the gateway and never modified after creation.
type Sample struct {
	Timestamp     int64 `json:"time" yaml:"time"` // seconds since epoch
	CognitiveLoad int   `json:"cognitive_load" yaml:"cognitive_load"`
	EnergyLevel   int   `json:"energy_level" yaml:"energy_level"`
}

// Time returns the sample timestamp as a local time.Time.
func (s Sample) Time() time.Time {
	return time.Unix(s.Timestamp, 0)
}

// ClampPercent bounds a gateway-provided value to [0, 100].
func ClampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Status represents the state of the live change subscription.
type Status int

const (
	StatusConnecting Status = iota
	StatusConnected
	StatusDisconnected
)

// String returns a human-readable status string.
func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Band is the severity classification of a cognitive load value.
type Band int

const (
	BandOptimal Band = iota
	BandHigh
	BandCritical
)

// Thresholds for load bands. Boundaries are strict: a value equal to a
// threshold belongs to the lower band.
const (
	HighThreshold     = 70
	CriticalThreshold = 90
)

// String returns the band label.
func (b Band) String() string {
	switch b {
	case BandCritical:
		return "critical"
	case BandHigh:
		return "high"
	default:
		return "optimal"
	}
}

// Classify maps a cognitive load value to its band.
func Classify(load int) Band {
	switch {
	case load > CriticalThreshold:
		return BandCritical
	case load > HighThreshold:
		return BandHigh
	default:
		return BandOptimal
	}
}

// Series is the chart-ready projection of a window: three parallel slices
// of equal length, element i of each belonging to the same sample.
type Series struct {
	Timestamps []int64
	Loads      []int
	Energies   []int
}

// Len returns the number of points in the series.
func (s Series) Len() int {
	return len(s.Timestamps)
}

// LoadValues returns the loads as float64 for graph rendering.
func (s Series) LoadValues() []float64 {
	return toFloats(s.Loads)
}

// EnergyValues returns the energies as float64 for graph rendering.
func (s Series) EnergyValues() []float64 {
	return toFloats(s.Energies)
}

func toFloats(in []int) []float64 {
	if len(in) == 0 {
		return nil
	}
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
