package fsm

import "math"

// DetectorConfig tunes how raw samples become weight events.
type DetectorConfig struct {
	// Threshold is the smallest change in grams reported as an event.
	Threshold float64
	// Stable is how many consecutive samples within Tolerance make a
	// reading stable.
	Stable int
	// Tolerance is the sample-to-sample noise accepted in grams.
	Tolerance float64
}

// DefaultDetectorConfig returns settings for a 0.1 g load cell.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{Threshold: 1, Stable: 3, Tolerance: 0.5}
}

// WeightDetector turns gross load-cell samples into weight events.
//
// Events carry the net weight, relative to the last tare. A stable gross
// reading back at zero after a load was present is reported as
// ContainerRemoved.
//
// WeightDetector is not safe for concurrent use; the control loop owns it.
type WeightDetector struct {
	cfg       DetectorConfig
	candidate float64
	count     int
	stable    float64
	offset    float64
	tare      bool
}

// NewWeightDetector creates a detector with an empty scale as its baseline.
func NewWeightDetector(cfg DetectorConfig) *WeightDetector {
	def := DefaultDetectorConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.Stable <= 0 {
		cfg.Stable = def.Stable
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = def.Tolerance
	}
	return &WeightDetector{cfg: cfg}
}

// Tare makes the last stable reading the new zero. A TareDone event is
// emitted with the next observation.
func (d *WeightDetector) Tare() {
	d.offset = d.stable
	d.tare = true
}

// Net returns the last stable reading relative to the tare.
func (d *WeightDetector) Net() float64 { return d.stable - d.offset }

// Observe feeds one gross sample and returns the events it produced.
func (d *WeightDetector) Observe(gross float64) []Event {
	var out []Event
	if d.tare {
		d.tare = false
		out = append(out, Event{Kind: TareDone})
	}

	if d.count > 0 && math.Abs(gross-d.candidate) <= d.cfg.Tolerance {
		d.count++
	} else {
		d.candidate, d.count = gross, 1
	}
	if d.count != d.cfg.Stable {
		return out
	}

	s := d.candidate
	delta := s - d.stable
	switch {
	case math.Abs(s) < d.cfg.Threshold && math.Abs(d.stable) >= d.cfg.Threshold:
		d.offset = 0
		out = append(out, Event{Kind: ContainerRemoved})
	case delta >= d.cfg.Threshold:
		out = append(out, Event{Kind: WeightIncreased, Weight: s - d.offset})
	case delta <= -d.cfg.Threshold:
		out = append(out, Event{Kind: WeightDecreased, Weight: s - d.offset})
	default:
		return out
	}
	d.stable = s
	return out
}
