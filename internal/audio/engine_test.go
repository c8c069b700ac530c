package audio

import (
	"math"
	"testing"

	"chromatune/internal/analysis"
	"chromatune/internal/config"
)

// newCallbackEngine builds an engine wired to a real analysis pipeline but
// no audio stream, so the capture callback can be driven directly.
func newCallbackEngine(t *testing.T, cfg *config.Config) *Engine {
	t.Helper()
	pipeline, err := analysis.NewPipeline(cfg)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	return &Engine{
		cfg:           cfg,
		pipeline:      pipeline,
		inputBuffer:   make([]float32, cfg.Audio.FramesPerBuffer*cfg.Audio.InputChannels),
		monoBuffer:    make([]float32, cfg.Audio.FramesPerBuffer),
		gateEnabled:   cfg.Audio.GateEnabled,
		gateThreshold: float32(cfg.Audio.GateThreshold),
	}
}

// sineChunks generates seconds of a sine split into callback-sized buffers.
func sineChunks(cfg *config.Config, freq, amplitude, seconds float64) [][]float32 {
	frames := cfg.Audio.FramesPerBuffer
	channels := cfg.Audio.InputChannels
	count := int(cfg.Audio.SampleRate * seconds / float64(frames))
	step := 2 * math.Pi * freq / cfg.Audio.SampleRate

	chunks := make([][]float32, count)
	phase := 0.0
	for c := range chunks {
		chunk := make([]float32, frames*channels)
		for i := 0; i < frames; i++ {
			v := float32(amplitude * math.Sin(phase))
			phase += step
			for ch := 0; ch < channels; ch++ {
				chunk[i*channels+ch] = v
			}
		}
		chunks[c] = chunk
	}
	return chunks
}

func TestCallbackDetectsPitch(t *testing.T) {
	cfg := config.Default()
	engine := newCallbackEngine(t, cfg)

	for _, chunk := range sineChunks(cfg, 440.0, 0.5, 2.0) {
		engine.processInput(chunk)
	}

	r := engine.pipeline.Publisher().Latest()
	if !r.Voiced || r.String() != "A4" {
		t.Errorf("reading = %+v, want voiced A4", r)
	}
}

func TestCallbackGatesQuietInput(t *testing.T) {
	cfg := config.Default()
	cfg.Audio.GateThreshold = 0.01
	engine := newCallbackEngine(t, cfg)

	// A signal below the gate threshold never reaches the FFT, and after
	// enough gated buffers any previous reading clears.
	for _, chunk := range sineChunks(cfg, 440.0, 0.5, 1.0) {
		engine.processInput(chunk)
	}
	if !engine.pipeline.Publisher().Latest().Voiced {
		t.Fatal("expected a voiced reading from the loud signal")
	}

	quiet := sineChunks(cfg, 440.0, 0.001, 1.0)
	for _, chunk := range quiet {
		engine.processInput(chunk)
	}

	if r := engine.pipeline.Publisher().Latest(); r.Voiced {
		t.Errorf("reading still voiced after sustained gated input: %+v", r)
	}
}

func TestCallbackStereoDownmix(t *testing.T) {
	cfg := config.Default()
	cfg.Audio.InputChannels = 2
	engine := newCallbackEngine(t, cfg)

	for _, chunk := range sineChunks(cfg, 440.0, 0.5, 2.0) {
		engine.processInput(chunk)
	}

	r := engine.pipeline.Publisher().Latest()
	if !r.Voiced || r.String() != "A4" {
		t.Errorf("stereo reading = %+v, want voiced A4", r)
	}
}

func TestDownmixAverages(t *testing.T) {
	cfg := config.Default()
	cfg.Audio.InputChannels = 2
	cfg.Audio.FramesPerBuffer = 4
	engine := &Engine{
		cfg:        cfg,
		monoBuffer: make([]float32, 4),
	}

	interleaved := []float32{0.2, 0.4, -0.6, -0.2, 1.0, 0.0, 0.5, 0.5}
	mono := engine.downmix(interleaved)

	expected := []float32{0.3, -0.4, 0.5, 0.5}
	for i, want := range expected {
		if diff := mono[i] - want; diff > 1e-6 || diff < -1e-6 {
			t.Errorf("mono[%d] = %v, want %v", i, mono[i], want)
		}
	}
}

func TestDownmixMonoPassthrough(t *testing.T) {
	cfg := config.Default()
	engine := &Engine{
		cfg:        cfg,
		monoBuffer: make([]float32, cfg.Audio.FramesPerBuffer),
	}

	buf := make([]float32, cfg.Audio.FramesPerBuffer)
	buf[0] = 0.7
	if mono := engine.downmix(buf); &mono[0] != &buf[0] {
		t.Error("mono input should pass through without copying")
	}
}

func TestCallbackHotPath(t *testing.T) {
	cfg := config.Default()
	engine := newCallbackEngine(t, cfg)
	chunk := sineChunks(cfg, 440.0, 0.5, 0.1)[0]

	for i := 0; i < 16; i++ {
		engine.processInput(chunk)
	}

	// One small allocation is permitted per completed analysis window
	// (the published snapshot); the capture path itself must not allocate.
	allocs := testing.AllocsPerRun(50, func() {
		engine.processInput(chunk)
	})
	if allocs > 1 {
		t.Errorf("Expected at most one allocation per callback, got %.1f", allocs)
	}
}

func BenchmarkCallback(b *testing.B) {
	cfg := config.Default()
	pipeline, err := analysis.NewPipeline(cfg)
	if err != nil {
		b.Fatalf("NewPipeline failed: %v", err)
	}
	engine := &Engine{
		cfg:           cfg,
		pipeline:      pipeline,
		inputBuffer:   make([]float32, cfg.Audio.FramesPerBuffer),
		monoBuffer:    make([]float32, cfg.Audio.FramesPerBuffer),
		gateEnabled:   true,
		gateThreshold: float32(cfg.Audio.GateThreshold),
	}
	chunk := sineChunks(cfg, 440.0, 0.5, 0.1)[0]

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		engine.processInput(chunk)
	}
}
