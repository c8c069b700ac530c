// SPDX-License-Identifier: MIT
package audio

import "math"

func (e *Engine) EnableGate() {
	e.gateEnabled = true
}

func (e *Engine) DisableGate() {
	e.gateEnabled = false
}

// SetGateThreshold adjusts the noise gate threshold. The value is a peak
// amplitude in the range 0.0-1.0 where 0=always open, 1=always closed.
func (e *Engine) SetGateThreshold(threshold float64) {
	if threshold < 0.0 {
		threshold = 0.0
	}
	if threshold > 1.0 {
		threshold = 1.0
	}
	e.gateThreshold = float32(threshold)
}

// GateThreshold returns the current noise gate threshold in the range
// 0.0-1.0.
func (e *Engine) GateThreshold() float64 {
	return float64(e.gateThreshold)
}

// peakAmplitude returns the largest absolute sample value without
// branching on sign. Clearing the IEEE sign bit gives |s|, and for
// non-negative floats the bit patterns order the same as the values.
func peakAmplitude(samples []float32) float32 {
	var peak uint32
	for _, s := range samples {
		bits := math.Float32bits(s) &^ (1 << 31)
		if bits > peak {
			peak = bits
		}
	}
	return math.Float32frombits(peak)
}
