// Package analysis implements the pitch-detection pipeline: a sliding
// sample buffer feeding the FFT stage, a fundamental-frequency estimator,
// frequency-to-note mapping, a smoothing tracker and the reading publisher.
package analysis

// SlidingBuffer accumulates incoming audio samples until a full analysis
// window is available, then advances by a fixed hop so successive windows
// overlap. Capture delivers float32 samples; the buffer stores float64 for
// the FFT stage.
//
// Owned exclusively by the capture thread; no internal locking.
type SlidingBuffer struct {
	data    []float64 // Ring storage, capacity = window size.
	write   int       // Next ring write position.
	size    int       // Valid samples, up to len(data).
	hop     int       // Samples consumed per window.
	pending int       // New samples still needed before the next window.
}

// NewSlidingBuffer creates a buffer for windows of windowSize samples with
// the given overlap fraction (0 <= overlap < 1). An overlap of 0.5 means
// each window shares half its samples with the previous one.
func NewSlidingBuffer(windowSize int, overlap float64) *SlidingBuffer {
	hop := int(float64(windowSize) * (1 - overlap))
	if hop < 1 {
		hop = 1
	}
	if hop > windowSize {
		hop = windowSize
	}
	return &SlidingBuffer{
		data:    make([]float64, windowSize),
		hop:     hop,
		pending: windowSize,
	}
}

// Push appends new audio samples, evicting the oldest samples beyond the
// retained window. Never allocates.
func (b *SlidingBuffer) Push(samples []float32) {
	n := len(b.data)

	// Only the most recent window's worth of an oversized push can matter.
	if len(samples) > n {
		b.pending -= len(samples) - n
		samples = samples[len(samples)-n:]
	}

	for _, s := range samples {
		b.data[b.write] = float64(s)
		b.write++
		if b.write == n {
			b.write = 0
		}
	}
	if b.size += len(samples); b.size > n {
		b.size = n
	}
	b.pending -= len(samples)
}

// WindowReady reports whether a full analysis window is available. The first
// window requires a complete buffer fill; subsequent windows require one hop
// of fresh samples.
func (b *SlidingBuffer) WindowReady() bool {
	return b.size == len(b.data) && b.pending <= 0
}

// CopyWindow copies the most recent window into dst, oldest sample first,
// and primes the buffer for the next overlapping window. dst must have
// length equal to the window size. Callers must check WindowReady first;
// copying a partial buffer is a contract violation.
func (b *SlidingBuffer) CopyWindow(dst []float64) {
	if len(dst) != len(b.data) {
		panic("analysis: CopyWindow destination length mismatch")
	}
	if !b.WindowReady() {
		panic("analysis: CopyWindow called before a full window accumulated")
	}

	// Ring order: oldest sample sits at the write position once full.
	n := copy(dst, b.data[b.write:])
	copy(dst[n:], b.data[:b.write])

	// Prime for the next overlapping window. Any backlog beyond one window
	// is dropped: the buffer only retains the most recent window, so
	// replaying it would duplicate an identical analysis cycle.
	b.pending = b.hop
}

// Reset discards all buffered samples, e.g. when capture stops or the input
// device changes.
func (b *SlidingBuffer) Reset() {
	b.write = 0
	b.size = 0
	b.pending = len(b.data)
}

// WindowSize returns the configured analysis window length.
func (b *SlidingBuffer) WindowSize() int {
	return len(b.data)
}

// Hop returns the number of fresh samples consumed per window.
func (b *SlidingBuffer) Hop() int {
	return b.hop
}
