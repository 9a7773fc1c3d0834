// Package signalproc implements the SignalProcessor: per-input
// rectify, IIR band-pass, offset/calibration accumulation and
// normalization, driven by a three-phase state machine.
package signalproc

import "math"

// Phase is the SignalProcessor's current lifecycle stage.
type Phase int

const (
	PhaseOffset Phase = iota
	PhaseCalibration
	PhaseMeasurement
)

// Options configures a Processor at construction. MinFrequency/MaxFrequency
// are already expressed relative to the sampling frequency (cutoff/fs);
// either is bypassed when it's <= 0 or >= 0.5.
type Options struct {
	Rectify      bool
	Normalize    bool
	MinFrequency float64
	MaxFrequency float64
}

// Processor is the per-Input SignalProcessor state machine.
type Processor struct {
	rectify   bool
	normalize bool

	lowpass  biquad
	highpass biquad

	phase Phase

	offsetSum   float64
	offsetCount int
	offset      float64

	min float64
	max float64
}

// New constructs a Processor starting in the OFFSET phase with a fresh
// offset accumulator and an empty calibration range.
func New(opts Options) *Processor {
	return &Processor{
		rectify:   opts.Rectify,
		normalize: opts.Normalize,
		lowpass:   newLowpass(opts.MaxFrequency),
		highpass:  newHighpass(opts.MinFrequency),
		phase:     PhaseOffset,
		min:       math.Inf(1),
		max:       math.Inf(-1),
	}
}

// SetPhase transitions the processor. Resetting into OFFSET clears the
// offset accumulator; resetting into CALIBRATION clears the min/max range.
// The filter's running state (z1/z2) is never cleared by a phase change,
// only Reset clears it.
func (p *Processor) SetPhase(phase Phase) {
	if phase == PhaseOffset {
		p.offsetSum = 0
		p.offsetCount = 0
	}
	if phase == PhaseCalibration {
		p.min = math.Inf(1)
		p.max = math.Inf(-1)
	}
	p.phase = phase
}

// Phase returns the processor's current phase.
func (p *Processor) Phase() Phase { return p.phase }

// Reset clears all accumulated state and filter history, returning the
// processor to OFFSET.
func (p *Processor) Reset() {
	p.offsetSum = 0
	p.offsetCount = 0
	p.offset = 0
	p.min = math.Inf(1)
	p.max = math.Inf(-1)
	p.lowpass.reset()
	p.highpass.reset()
	p.phase = PhaseOffset
}

// Update runs n raw samples through the processor and returns the scalar
// output for this tick.
func (p *Processor) Update(samples []float64, n int) float64 {
	raw := mean(samples[:n])

	switch p.phase {
	case PhaseOffset:
		p.offsetSum += raw
		p.offsetCount++
		p.offset = p.offsetSum / float64(p.offsetCount)
		return raw

	case PhaseCalibration:
		filtered := p.filter(raw - p.offset)
		if filtered < p.min {
			p.min = filtered
		}
		if filtered > p.max {
			p.max = filtered
		}
		return filtered

	default: // PhaseMeasurement
		filtered := p.filter(raw - p.offset)
		if !p.normalize {
			return filtered
		}
		return p.normalized(filtered)
	}
}

func (p *Processor) filter(x float64) float64 {
	if p.rectify {
		x = math.Abs(x)
	}
	x = p.lowpass.process(x)
	x = p.highpass.process(x)
	return x
}

func (p *Processor) normalized(x float64) float64 {
	span := p.max - p.min
	if span <= 0 {
		return 0
	}
	out := (x-p.min)/span*2 - 1
	if out > 1 {
		out = 1
	} else if out < -1 {
		out = -1
	}
	return out
}

func mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples))
}
