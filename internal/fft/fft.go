// Package fft implements the windowing and FFT stage of the pitch
// pipeline: a tapering window applied to a fixed-size sample frame,
// followed by a real-input FFT producing a magnitude spectrum.
package fft

import (
	"fmt"
	"math/cmplx"
	"strings"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"chromatune/pkg/bitint"
)

// WindowFunc selects the tapering function applied before the FFT.
type WindowFunc int

const (
	Hann WindowFunc = iota
	Hamming
	Blackman
	BlackmanNuttall
	Nuttall
	Lanczos
)

// workspace holds pre-allocated buffers so Analyze never allocates.
type workspace struct {
	input     []float64    // Windowed input samples.
	coeffs    []complex128 // Complex FFT output.
	magnitude []float64    // Normalized magnitude spectrum.
	window    []float64    // Window coefficients.
}

// Analyzer computes magnitude spectra from fixed-size sample windows.
// It is not safe for concurrent use; the engine drives it from the
// capture thread only.
type Analyzer struct {
	size       int
	sampleRate float64
	fftObj     *fourier.FFT
	workspace  workspace
	norm       float64 // 2 / sum(window), undoes coherent window gain.
}

// NewAnalyzer plans an FFT of the given size and pre-computes the window
// coefficients. The size must be a power of 2 and the sample rate positive.
func NewAnalyzer(size int, sampleRate float64, windowType WindowFunc) (*Analyzer, error) {
	if !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", size)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}

	coeffs := make([]float64, size)
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	applyWindow(coeffs, windowType)

	var windowSum float64
	for _, c := range coeffs {
		windowSum += c
	}

	// Real FFT output is size/2 + 1 complex bins.
	outputSize := size/2 + 1

	return &Analyzer{
		size:       size,
		sampleRate: sampleRate,
		fftObj:     fourier.NewFFT(size),
		norm:       2 / windowSum,
		workspace: workspace{
			input:     make([]float64, size),
			coeffs:    make([]complex128, outputSize),
			magnitude: make([]float64, outputSize),
			window:    coeffs,
		},
	}, nil
}

// Analyze applies the window to samples and returns the normalized magnitude
// spectrum. Magnitudes are scaled so a unit-amplitude sinusoid reports a
// peak of roughly 1.0 regardless of FFT size or window choice.
//
// The returned slice is the analyzer's internal buffer: it is valid until
// the next Analyze call. Panics if len(samples) != Size(); a malformed
// window length is a programmer error, not a runtime condition.
func (a *Analyzer) Analyze(samples []float64) []float64 {
	if len(samples) != a.size {
		panic(fmt.Sprintf("fft: window length %d, analyzer configured for %d", len(samples), a.size))
	}

	for i, s := range samples {
		a.workspace.input[i] = s * a.workspace.window[i]
	}

	a.fftObj.Coefficients(a.workspace.coeffs, a.workspace.input)
	for i, c := range a.workspace.coeffs {
		a.workspace.magnitude[i] = cmplx.Abs(c) * a.norm
	}

	return a.workspace.magnitude
}

// Size returns the configured FFT size.
func (a *Analyzer) Size() int {
	return a.size
}

// SampleRate returns the configured sample rate in Hz.
func (a *Analyzer) SampleRate() float64 {
	return a.sampleRate
}

// Bins returns the number of magnitude bins produced per analysis.
func (a *Analyzer) Bins() int {
	return len(a.workspace.magnitude)
}

// BinWidth returns the frequency spacing between adjacent bins in Hz.
func (a *Analyzer) BinWidth() float64 {
	return a.sampleRate / float64(a.size)
}

// FreqForBin returns the center frequency (Hz) for a bin index, or 0 for an
// out-of-range index.
func (a *Analyzer) FreqForBin(bin int) float64 {
	if bin < 0 || bin >= len(a.workspace.magnitude) {
		return 0
	}
	return float64(bin) * a.BinWidth()
}

// ParseWindowFunc converts a window function name (case-insensitive) to a
// WindowFunc. Unknown names return Hann and an error.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "nuttall":
		return Nuttall, nil
	case "lanczos":
		return Lanczos, nil
	default:
		return Hann, fmt.Errorf("unknown FFT window function name: '%s'", name)
	}
}

func applyWindow(coeffs []float64, windowType WindowFunc) {
	switch windowType {
	case Hamming:
		window.Hamming(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	default:
		window.Hann(coeffs)
	}
}
