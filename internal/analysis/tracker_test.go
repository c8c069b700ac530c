package analysis

import (
	"math"
	"testing"
)

func testParams() TrackerParams {
	return TrackerParams{
		HistorySize:    8,
		ConfirmCycles:  3,
		DeviationCents: 35,
		SilenceCycles:  4,
		CentsSmoothing: 0.8,
	}
}

func voiced(freq float64) Estimate {
	return Estimate{Frequency: freq, Magnitude: 0.5, Voiced: true}
}

func silent() Estimate {
	return Estimate{}
}

func feed(t *Tracker, est Estimate, n int) StableReading {
	var r StableReading
	for i := 0; i < n; i++ {
		r = t.Update(est)
	}
	return r
}

func TestTrackerStartsNoSignal(t *testing.T) {
	tr := NewTracker(testParams())
	if tr.State() != StateNoSignal {
		t.Errorf("initial state = %v, want NoSignal", tr.State())
	}
	r := tr.Update(silent())
	if r.Voiced {
		t.Error("silent update must not produce a voiced reading")
	}
}

func TestTrackerFirstEstimateTracks(t *testing.T) {
	tr := NewTracker(testParams())

	r := tr.Update(voiced(440))
	if tr.State() != StateTracking {
		t.Fatalf("state = %v, want Tracking after first valid estimate", tr.State())
	}
	if !r.Voiced || r.String() != "A4" {
		t.Errorf("reading = %+v, want voiced A4", r)
	}
}

func TestTrackerOutlierRejected(t *testing.T) {
	tr := NewTracker(testParams())

	feed(tr, voiced(440), 8)

	// A single spurious octave jump must not change the stable reading.
	r := tr.Update(voiced(880))
	if !r.Voiced || r.String() != "A4" {
		t.Errorf("reading after outlier = %+v, want A4 held", r)
	}
	if tr.State() != StateConfirming {
		t.Errorf("state = %v, want Confirming while the outlier is unconfirmed", tr.State())
	}

	// The outlier was one cycle only; 440 returns and breaks the streak.
	r = tr.Update(voiced(440))
	if tr.State() != StateTracking {
		t.Errorf("state = %v, want Tracking after streak broken", tr.State())
	}
	if !r.Voiced || r.String() != "A4" {
		t.Errorf("reading = %+v, want A4", r)
	}
}

func TestTrackerConfirmedChangeAccepted(t *testing.T) {
	params := testParams()
	tr := NewTracker(params)

	feed(tr, voiced(440), 8)

	// A sustained new pitch replaces the reading after ConfirmCycles.
	var r StableReading
	for i := 0; i < params.ConfirmCycles; i++ {
		r = tr.Update(voiced(660))
	}
	if tr.State() != StateTracking {
		t.Fatalf("state = %v, want Tracking after confirmation", tr.State())
	}
	if !r.Voiced || r.String() != "E5" {
		t.Errorf("reading = %+v, want E5 after confirmed change", r)
	}
}

func TestTrackerSilenceClearsAfterM(t *testing.T) {
	params := testParams()
	tr := NewTracker(params)

	feed(tr, voiced(440), 8)

	// Short dropouts are absorbed.
	r := feed(tr, silent(), params.SilenceCycles-1)
	if !r.Voiced {
		t.Fatal("reading cleared before M silent cycles")
	}

	r = tr.Update(silent())
	if r.Voiced {
		t.Error("reading still voiced after M silent cycles")
	}
	if tr.State() != StateNoSignal {
		t.Errorf("state = %v, want NoSignal", tr.State())
	}
}

func TestTrackerSilenceCounterResets(t *testing.T) {
	params := testParams()
	tr := NewTracker(params)

	feed(tr, voiced(440), 8)
	feed(tr, silent(), params.SilenceCycles-1)
	tr.Update(voiced(440)) // Signal returns; the countdown starts over.

	r := feed(tr, silent(), params.SilenceCycles-1)
	if !r.Voiced {
		t.Error("silence counter did not reset on a voiced estimate")
	}
}

func TestTrackerJitterSmoothed(t *testing.T) {
	tr := NewTracker(testParams())

	// Small frame-to-frame jitter around 440 stays on A4 with bounded cents.
	jitter := []float64{440, 440.6, 439.5, 440.3, 439.8, 440.1, 440.4, 439.7}
	var r StableReading
	for _, f := range jitter {
		r = tr.Update(voiced(f))
	}

	if !r.Voiced || r.String() != "A4" {
		t.Fatalf("reading = %+v, want A4", r)
	}
	if math.Abs(r.Cents) > 5 {
		t.Errorf("smoothed cents = %.2f, want near 0 under small jitter", r.Cents)
	}
}

func TestTrackerResetFromAnyState(t *testing.T) {
	tr := NewTracker(testParams())

	feed(tr, voiced(440), 8)
	tr.Update(voiced(880)) // -> Confirming

	tr.Reset()
	if tr.State() != StateNoSignal {
		t.Errorf("state after Reset = %v, want NoSignal", tr.State())
	}
	if r := tr.Update(silent()); r.Voiced {
		t.Error("reset tracker still reports a voiced reading")
	}

	// After a reset the first valid estimate tracks immediately again.
	r := tr.Update(voiced(330))
	if !r.Voiced || r.String() != "E4" {
		t.Errorf("reading = %+v, want E4", r)
	}
}

func TestTrackerUpdateHotPath(t *testing.T) {
	tr := NewTracker(testParams())
	est := voiced(440)

	feed(tr, est, 8) // Warm up into steady tracking.
	allocs := testing.AllocsPerRun(100, func() {
		tr.Update(est)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in tracker Update, got %.1f", allocs)
	}
}

func TestTrackerStateStrings(t *testing.T) {
	tests := []struct {
		state    TrackerState
		expected string
	}{
		{StateNoSignal, "NoSignal"},
		{StateTracking, "Tracking"},
		{StateConfirming, "Confirming"},
		{TrackerState(42), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("State %d = %q, want %q", tt.state, got, tt.expected)
		}
	}
}
