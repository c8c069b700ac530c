package fft

import (
	"math"
	"testing"

	"chromatune/pkg/utils"
)

const (
	testFFTSize    = 8192
	testSampleRate = 44100.0
)

func TestAnalyzePeakBin(t *testing.T) {
	analyzer, err := NewAnalyzer(testFFTSize, testSampleRate, Hann)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}

	samples := utils.GenerateSineWave(testFFTSize, testSampleRate, 440, 0.9)
	magnitudes := analyzer.Analyze(samples)

	peakBin := utils.FindPeakBin(magnitudes, 0, len(magnitudes)-1)
	peakFreq := analyzer.FreqForBin(peakBin)

	binWidth := analyzer.BinWidth()
	if math.Abs(peakFreq-440) > binWidth {
		t.Errorf("peak at %.2f Hz, want 440 Hz within one bin (%.2f Hz)", peakFreq, binWidth)
	}

	// Normalized magnitude: a 0.9-amplitude sine should read close to 0.9.
	if math.Abs(magnitudes[peakBin]-0.9) > 0.1 {
		t.Errorf("peak magnitude %.3f, want ~0.9", magnitudes[peakBin])
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	analyzer, err := NewAnalyzer(testFFTSize, testSampleRate, Hann)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}

	samples := utils.GenerateComplexWave(testFFTSize, testSampleRate)

	first := make([]float64, analyzer.Bins())
	copy(first, analyzer.Analyze(samples))
	second := analyzer.Analyze(samples)

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("bin %d differs between runs: %v != %v", i, first[i], second[i])
		}
	}
}

func TestAnalyzeWrongLengthPanics(t *testing.T) {
	analyzer, err := NewAnalyzer(1024, testSampleRate, Hann)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic for malformed window length")
		}
	}()
	analyzer.Analyze(make([]float64, 1000))
}

func TestNewAnalyzerRejectsBadArgs(t *testing.T) {
	if _, err := NewAnalyzer(5000, testSampleRate, Hann); err == nil {
		t.Error("expected error for non-power-of-2 size")
	}
	if _, err := NewAnalyzer(1024, 0, Hann); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

func TestAnalyzeHotPath(t *testing.T) {
	analyzer, err := NewAnalyzer(1024, testSampleRate, Hann)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}

	samples := utils.GenerateSineWave(1024, testSampleRate, 440, 0.5)

	// Warm-up call so first-call allocations don't count.
	analyzer.Analyze(samples)
	allocs := testing.AllocsPerRun(100, func() {
		analyzer.Analyze(samples)
	})

	if allocs > 0 {
		t.Errorf("Expected zero allocations in Analyze hot path, got %.1f", allocs)
	}
}

func TestParseWindowFunc(t *testing.T) {
	tests := []struct {
		name     string
		expected WindowFunc
		wantErr  bool
	}{
		{"hann", Hann, false},
		{"Hanning", Hann, false},
		{"HAMMING", Hamming, false},
		{"blackman", Blackman, false},
		{"nuttall", Nuttall, false},
		{"lanczos", Lanczos, false},
		{"rectangular", Hann, true},
	}

	for _, tt := range tests {
		got, err := ParseWindowFunc(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseWindowFunc(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if got != tt.expected {
			t.Errorf("ParseWindowFunc(%q) = %v, want %v", tt.name, got, tt.expected)
		}
	}
}

func TestFreqForBin(t *testing.T) {
	analyzer, err := NewAnalyzer(8192, 44100, Hann)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}

	if got := analyzer.FreqForBin(0); got != 0 {
		t.Errorf("FreqForBin(0) = %f, want 0", got)
	}
	want := 100 * 44100.0 / 8192.0
	if got := analyzer.FreqForBin(100); math.Abs(got-want) > 1e-9 {
		t.Errorf("FreqForBin(100) = %f, want %f", got, want)
	}
	if got := analyzer.FreqForBin(-1); got != 0 {
		t.Errorf("FreqForBin(-1) = %f, want 0", got)
	}
	if got := analyzer.FreqForBin(analyzer.Bins()); got != 0 {
		t.Errorf("FreqForBin(out of range) = %f, want 0", got)
	}
}

func BenchmarkAnalyze(b *testing.B) {
	analyzer, err := NewAnalyzer(testFFTSize, testSampleRate, Hann)
	if err != nil {
		b.Fatalf("NewAnalyzer: %v", err)
	}
	samples := utils.GenerateComplexWave(testFFTSize, testSampleRate)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		analyzer.Analyze(samples)
	}
}
