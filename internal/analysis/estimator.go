package analysis

import (
	"fmt"
	"math"
)

// Estimate is the outcome of one analysis cycle. When Voiced is false no
// pitch was detected and Frequency/Magnitude are meaningless.
type Estimate struct {
	Frequency float64 // Fundamental frequency in Hz.
	Magnitude float64 // Normalized peak magnitude, ~sinusoid amplitude.
	Voiced    bool
}

// Estimator locates the dominant fundamental frequency in a magnitude
// spectrum, restricted to a fixed search band.
type Estimator struct {
	binWidth  float64
	minBin    int
	maxBin    int
	minHz     float64
	maxHz     float64
	threshold float64
}

// NewEstimator builds an estimator for spectra of the given bin count and
// width. The search band [minHz, maxHz] is mapped to the bins fully inside
// it; the magnitude threshold rejects the silence/noise floor.
func NewEstimator(minHz, maxHz, threshold, binWidth float64, bins int) (*Estimator, error) {
	if minHz <= 0 || maxHz <= minHz {
		return nil, fmt.Errorf("invalid search band [%.1f, %.1f]", minHz, maxHz)
	}
	if binWidth <= 0 {
		return nil, fmt.Errorf("bin width must be positive, got %f", binWidth)
	}

	minBin := int(math.Ceil(minHz / binWidth))
	maxBin := int(math.Floor(maxHz / binWidth))
	if minBin < 1 {
		minBin = 1 // Never consider the DC bin.
	}
	if maxBin > bins-1 {
		maxBin = bins - 1
	}
	if minBin >= maxBin {
		return nil, fmt.Errorf("search band [%.1f, %.1f] spans no bins at width %.2f Hz",
			minHz, maxHz, binWidth)
	}

	return &Estimator{
		binWidth:  binWidth,
		minBin:    minBin,
		maxBin:    maxBin,
		minHz:     minHz,
		maxHz:     maxHz,
		threshold: threshold,
	}, nil
}

// Estimate scans the magnitude spectrum for the strongest component inside
// the search band and refines the peak with parabolic interpolation. Ties
// keep the lowest-frequency bin, preferring the fundamental over a harmonic
// of equal strength. Below the magnitude threshold the estimate is reported
// absent rather than as an error; silence is a first-class state.
func (e *Estimator) Estimate(magnitudes []float64) Estimate {
	peakBin := e.minBin
	peakMag := magnitudes[e.minBin]
	for bin := e.minBin + 1; bin <= e.maxBin; bin++ {
		// Strict > keeps the lowest bin on ties.
		if magnitudes[bin] > peakMag {
			peakMag = magnitudes[bin]
			peakBin = bin
		}
	}

	if peakMag < e.threshold {
		return Estimate{}
	}

	freq := float64(peakBin) * e.binWidth

	// Parabolic refinement across the peak and its neighbors overcomes the
	// bin-width quantization. Any peak with two spectrum neighbors is
	// refined; the band clamp below keeps the result inside [minHz, maxHz].
	if peakBin+1 < len(magnitudes) {
		left := magnitudes[peakBin-1]
		right := magnitudes[peakBin+1]
		denom := left - 2*peakMag + right
		if denom != 0 {
			offset := 0.5 * (left - right) / denom
			if offset > 0.5 {
				offset = 0.5
			} else if offset < -0.5 {
				offset = -0.5
			}
			freq = (float64(peakBin) + offset) * e.binWidth
		}
	}

	// Refinement of an edge bin can land up to half a bin outside the
	// configured band.
	if freq < e.minHz {
		freq = e.minHz
	} else if freq > e.maxHz {
		freq = e.maxHz
	}

	return Estimate{
		Frequency: freq,
		Magnitude: peakMag,
		Voiced:    true,
	}
}

// SearchBand returns the bin range scanned by the estimator.
func (e *Estimator) SearchBand() (minBin, maxBin int) {
	return e.minBin, e.maxBin
}
