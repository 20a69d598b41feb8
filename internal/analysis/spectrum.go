package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// Spectrum returns the magnitude of the non-negative frequency bins of a
// series sampled every dt seconds. The mean is removed and a Hann window
// applied first, so a constant offset does not swamp the first bins.
func Spectrum(series []float64, dt float64) (freqs, mags []float64) {
	n := len(series)
	if n < 4 || dt <= 0 {
		return nil, nil
	}

	mean := 0.0
	for _, v := range series {
		mean += v
	}
	mean /= float64(n)

	x := make([]float64, n)
	for i, v := range series {
		x[i] = v - mean
	}
	window.Apply(x, window.Hann)

	spec := fft.FFTReal(x)
	half := n / 2
	freqs = make([]float64, half)
	mags = make([]float64, half)
	for k := 0; k < half; k++ {
		freqs[k] = float64(k) / (float64(n) * dt)
		mags[k] = cmplx.Abs(spec[k])
	}
	return freqs, mags
}

// DominantFrequency is the frequency of the strongest bin above zero, or 0
// when the series is too short.
func DominantFrequency(series []float64, dt float64) float64 {
	freqs, mags := Spectrum(series, dt)
	best := 0
	for k := 1; k < len(mags); k++ {
		if best == 0 || mags[k] > mags[best] {
			best = k
		}
	}
	if best == 0 {
		return 0
	}
	return freqs[best]
}
