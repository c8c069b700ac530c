package analysis

// TrackerState identifies the smoothing filter's current mode.
type TrackerState int

const (
	// StateNoSignal means no pitch is being displayed.
	StateNoSignal TrackerState = iota
	// StateTracking means the stable reading follows incoming estimates.
	StateTracking
	// StateConfirming means a sufficiently different estimate arrived and is
	// awaiting confirmation before replacing the stable reading.
	StateConfirming
)

func (s TrackerState) String() string {
	switch s {
	case StateNoSignal:
		return "NoSignal"
	case StateTracking:
		return "Tracking"
	case StateConfirming:
		return "Confirming"
	default:
		return "Unknown"
	}
}

// StableReading is the smoothed, display-ready value. When Voiced is false
// the display shows "no signal" and the embedded NoteReading is zero.
type StableReading struct {
	Voiced bool
	NoteReading
}

// TrackerParams are the hysteresis tuning knobs. Zero values are rejected
// by config validation; the tracker itself assumes sane inputs.
type TrackerParams struct {
	HistorySize    int     // Rolling raw-estimate history length.
	ConfirmCycles  int     // Consecutive cycles required to accept a new value.
	DeviationCents float64 // Acceptance radius around the rolling median.
	SilenceCycles  int     // Silent cycles before the reading clears.
	CentsSmoothing float64 // EMA weight kept from the previous cents value.
}

// Tracker applies temporal smoothing and outlier rejection across
// successive raw estimates. It is an explicit state machine
// (NoSignal/Tracking/Confirming) rather than a set of flags, so the
// transition logic stays auditable and testable in isolation.
//
// Owned exclusively by the capture thread; the stable reading is handed to
// other threads through the Publisher.
type Tracker struct {
	params TrackerParams

	state         TrackerState
	current       NoteReading // Valid in Tracking and Confirming.
	smoothedCents float64
	candidateFreq float64
	confirmCount  int
	silentCount   int

	history []float64 // Ring of recent voiced frequencies.
	histLen int
	histPos int
	scratch []float64 // Median workspace, avoids per-cycle allocation.
}

// NewTracker creates a tracker in the NoSignal state.
func NewTracker(params TrackerParams) *Tracker {
	return &Tracker{
		params:  params,
		history: make([]float64, params.HistorySize),
		scratch: make([]float64, params.HistorySize),
	}
}

// Update feeds one raw estimate through the state machine and returns the
// resulting stable reading. Called once per analysis cycle; never allocates.
func (t *Tracker) Update(raw Estimate) StableReading {
	if !raw.Voiced {
		// Transient dropouts are absorbed; only sustained silence clears the
		// reading, so stale data never freezes on screen.
		if t.state != StateNoSignal {
			t.silentCount++
			if t.silentCount >= t.params.SilenceCycles {
				t.Reset()
			}
		}
		return t.reading()
	}

	t.silentCount = 0
	t.pushHistory(raw.Frequency)

	switch t.state {
	case StateNoSignal:
		t.track(raw.Frequency)

	case StateTracking:
		med := t.median()
		if abs(centsBetween(raw.Frequency, med)) <= t.params.DeviationCents &&
			abs(centsBetween(med, t.current.Frequency)) <= t.params.DeviationCents {
			t.follow(med)
		} else {
			t.state = StateConfirming
			t.candidateFreq = raw.Frequency
			t.confirmCount = 1
		}

	case StateConfirming:
		if abs(centsBetween(raw.Frequency, t.candidateFreq)) <= t.params.DeviationCents {
			t.confirmCount++
			if t.confirmCount >= t.params.ConfirmCycles {
				// Sustained evidence: the candidate becomes the new value.
				t.clearHistory()
				t.pushHistory(raw.Frequency)
				t.track(raw.Frequency)
			}
		} else {
			// Streak broken: fall back to the original value.
			t.state = StateTracking
			t.confirmCount = 0
		}
	}

	return t.reading()
}

// Reset returns the tracker to NoSignal and discards all history. Called on
// sustained silence and when capture stops or the device changes.
func (t *Tracker) Reset() {
	t.state = StateNoSignal
	t.current = NoteReading{}
	t.smoothedCents = 0
	t.candidateFreq = 0
	t.confirmCount = 0
	t.silentCount = 0
	t.clearHistory()
}

// State returns the current state machine state.
func (t *Tracker) State() TrackerState {
	return t.state
}

// track (re)starts tracking at freq, seeding the cents smoother.
func (t *Tracker) track(freq float64) {
	note, ok := ToNote(freq)
	if !ok {
		return
	}
	t.state = StateTracking
	t.current = note
	t.smoothedCents = note.Cents
	t.confirmCount = 0
}

// follow updates the tracked reading toward freq, smoothing the displayed
// cents with an EMA to keep the needle steady.
func (t *Tracker) follow(freq float64) {
	note, ok := ToNote(freq)
	if !ok {
		return
	}
	if note.Name == t.current.Name && note.Octave == t.current.Octave {
		k := t.params.CentsSmoothing
		t.smoothedCents = t.smoothedCents*k + note.Cents*(1-k)
	} else {
		// Same pitch drifted across a note boundary; restart the smoother
		// rather than averaging cents of different notes.
		t.smoothedCents = note.Cents
	}
	t.current = note
}

func (t *Tracker) reading() StableReading {
	if t.state == StateNoSignal {
		return StableReading{}
	}
	r := StableReading{Voiced: true, NoteReading: t.current}
	r.Cents = t.smoothedCents
	return r
}

func (t *Tracker) pushHistory(freq float64) {
	t.history[t.histPos] = freq
	t.histPos++
	if t.histPos == len(t.history) {
		t.histPos = 0
	}
	if t.histLen < len(t.history) {
		t.histLen++
	}
}

func (t *Tracker) clearHistory() {
	t.histLen = 0
	t.histPos = 0
}

// median returns the median of the rolling history using the pre-allocated
// scratch buffer. Insertion sort is fine at these history sizes.
func (t *Tracker) median() float64 {
	n := copy(t.scratch, t.history[:t.histLen])
	s := t.scratch[:n]
	for i := 1; i < n; i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
	return s[n/2]
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
