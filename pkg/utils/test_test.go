package utils

import (
	"math"
	"testing"
)

func TestGenerateSineWave(t *testing.T) {
	const (
		size       = 4410
		sampleRate = 44100.0
		frequency  = 441.0 // Integer number of cycles over the buffer.
		amplitude  = 0.8
	)

	wave := GenerateSineWave(size, sampleRate, frequency, amplitude)
	if len(wave) != size {
		t.Fatalf("length = %d, want %d", len(wave), size)
	}
	if wave[0] != 0 {
		t.Errorf("sine should start at zero, got %f", wave[0])
	}

	var peak float64
	for _, s := range wave {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if math.Abs(peak-amplitude) > 0.01 {
		t.Errorf("peak = %f, want ~%f", peak, amplitude)
	}
}

func TestGenerateComplexWaveBounded(t *testing.T) {
	wave := GenerateComplexWave(8192, 44100)
	for i, s := range wave {
		if math.Abs(s) > 1.0 {
			t.Fatalf("sample %d out of [-1, 1]: %f", i, s)
		}
	}
}

func TestFindPeakBin(t *testing.T) {
	tests := []struct {
		name       string
		magnitudes []float64
		start, end int
		expected   int
	}{
		{"empty", nil, 0, 10, 0},
		{"single peak", []float64{0, 1, 5, 2, 0}, 0, 4, 2},
		{"peak outside range ignored", []float64{9, 1, 5, 2, 0}, 1, 4, 2},
		{"tie keeps lowest bin", []float64{0, 3, 3, 1}, 0, 3, 1},
		{"clamped bounds", []float64{1, 2, 7}, -5, 99, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindPeakBin(tt.magnitudes, tt.start, tt.end); got != tt.expected {
				t.Errorf("FindPeakBin = %d, want %d", got, tt.expected)
			}
		})
	}
}
