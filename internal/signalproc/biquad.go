package signalproc

import "math"

// biquad is a single second-order IIR stage in Direct Form II Transposed.
// A bypass biquad (identity) is produced whenever its cutoff frequency
// parameter is outside (0, 0.5).
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	z1, z2     float64
	bypass     bool
}

func bypassBiquad() biquad {
	return biquad{b0: 1, bypass: true}
}

// newLowpass builds a Butterworth-Q 2nd-order low-pass with a cutoff
// already expressed relative to the sampling frequency (cutoff/fs).
func newLowpass(relFreq float64) biquad {
	if relFreq <= 0 || relFreq >= 0.5 {
		return bypassBiquad()
	}
	return design(relFreq, lowpassCoeffs)
}

// newHighpass builds a Butterworth-Q 2nd-order high-pass, same cutoff
// convention as newLowpass.
func newHighpass(relFreq float64) biquad {
	if relFreq <= 0 || relFreq >= 0.5 {
		return bypassBiquad()
	}
	return design(relFreq, highpassCoeffs)
}

const sqrt2 = math.Sqrt2

func lowpassCoeffs(w0, alpha, cosW0 float64) (b0, b1, b2, a0, a1, a2 float64) {
	b0 = (1 - cosW0) / 2
	b1 = 1 - cosW0
	b2 = (1 - cosW0) / 2
	a0 = 1 + alpha
	a1 = -2 * cosW0
	a2 = 1 - alpha
	return
}

func highpassCoeffs(w0, alpha, cosW0 float64) (b0, b1, b2, a0, a1, a2 float64) {
	b0 = (1 + cosW0) / 2
	b1 = -(1 + cosW0)
	b2 = (1 + cosW0) / 2
	a0 = 1 + alpha
	a1 = -2 * cosW0
	a2 = 1 - alpha
	return
}

func design(relFreq float64, coeffs func(w0, alpha, cosW0 float64) (b0, b1, b2, a0, a1, a2 float64)) biquad {
	w0 := 2 * math.Pi * relFreq
	cosW0 := math.Cos(w0)
	sinW0 := math.Sin(w0)
	q := 1 / sqrt2 // Butterworth response
	alpha := sinW0 / (2 * q)

	b0, b1, b2, a0, a1, a2 := coeffs(w0, alpha, cosW0)
	return biquad{
		b0: b0 / a0,
		b1: b1 / a0,
		b2: b2 / a0,
		a1: a1 / a0,
		a2: a2 / a0,
	}
}

// process runs one sample through the stage. Bypass stages are the
// identity and keep no state.
func (bq *biquad) process(x float64) float64 {
	if bq.bypass {
		return x
	}
	// Direct Form II Transposed:
	// y[n] = b0*x[n] + z1
	// z1   = b1*x[n] - a1*y[n] + z2
	// z2   = b2*x[n] - a2*y[n]
	y := bq.b0*x + bq.z1
	bq.z1 = bq.b1*x - bq.a1*y + bq.z2
	bq.z2 = bq.b2*x - bq.a2*y
	return y
}

func (bq *biquad) reset() {
	bq.z1 = 0
	bq.z2 = 0
}
