package analysis

import (
	"fmt"

	"chromatune/internal/config"
	"chromatune/internal/fft"
	applog "chromatune/internal/log"
)

// Pipeline wires the pitch-detection stages together: sliding sample
// buffer, FFT analyzer, fundamental estimator, smoothing tracker and the
// reading publisher.
//
// Process runs on the capture thread only. The Publisher is the single
// cross-thread boundary.
type Pipeline struct {
	buffer    *SlidingBuffer
	analyzer  *fft.Analyzer
	estimator *Estimator
	tracker   *Tracker
	publisher *Publisher

	window []float64 // Pre-allocated analysis window.
}

// NewPipeline builds the pipeline from configuration.
func NewPipeline(cfg *config.Config) (*Pipeline, error) {
	windowType, err := fft.ParseWindowFunc(cfg.Analysis.Window)
	if err != nil {
		return nil, err
	}

	analyzer, err := fft.NewAnalyzer(cfg.Analysis.FFTSize, cfg.Audio.SampleRate, windowType)
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}

	estimator, err := NewEstimator(
		cfg.Analysis.MinFrequency,
		cfg.Analysis.MaxFrequency,
		cfg.Analysis.SilenceThreshold,
		analyzer.BinWidth(),
		analyzer.Bins(),
	)
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}

	tracker := NewTracker(TrackerParams{
		HistorySize:    cfg.Smoothing.HistorySize,
		ConfirmCycles:  cfg.Smoothing.ConfirmCycles,
		DeviationCents: cfg.Smoothing.DeviationCents,
		SilenceCycles:  cfg.Smoothing.SilenceCycles,
		CentsSmoothing: cfg.Smoothing.CentsSmoothing,
	})

	applog.Infof("Analysis: pipeline ready (FFT %d, band %.0f-%.0f Hz, hop %d samples)",
		cfg.Analysis.FFTSize, cfg.Analysis.MinFrequency, cfg.Analysis.MaxFrequency,
		int(float64(cfg.Analysis.FFTSize)*(1-cfg.Analysis.OverlapFraction)))

	return &Pipeline{
		buffer:    NewSlidingBuffer(cfg.Analysis.FFTSize, cfg.Analysis.OverlapFraction),
		analyzer:  analyzer,
		estimator: estimator,
		tracker:   tracker,
		publisher: NewPublisher(),
		window:    make([]float64, cfg.Analysis.FFTSize),
	}, nil
}

// Process pushes captured samples through the pipeline, running one
// analysis cycle per completed window. The analysis stages never allocate;
// the only per-cycle allocation is the published snapshot.
func (p *Pipeline) Process(samples []float32) {
	p.buffer.Push(samples)
	for p.buffer.WindowReady() {
		p.buffer.CopyWindow(p.window)
		magnitudes := p.analyzer.Analyze(p.window)
		estimate := p.estimator.Estimate(magnitudes)
		reading := p.tracker.Update(estimate)
		p.publisher.Publish(reading)
	}
}

// ProcessSilence advances the tracker's silence countdown without audio,
// used when the noise gate suppresses a buffer so a muted input still
// clears the display.
func (p *Pipeline) ProcessSilence() {
	reading := p.tracker.Update(Estimate{})
	p.publisher.Publish(reading)
}

// Reset flushes buffered samples, returns the tracker to NoSignal and
// clears the published reading. Called when capture stops or the input
// device changes so a stale reading is never displayed as current.
func (p *Pipeline) Reset() {
	p.buffer.Reset()
	p.tracker.Reset()
	p.publisher.Clear()
}

// Publisher returns the cross-thread reading handoff.
func (p *Pipeline) Publisher() *Publisher {
	return p.publisher
}
