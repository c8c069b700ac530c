package analysis

import (
	"fmt"
	"math"
)

// ReferenceA4 is the equal-temperament tuning reference in Hz.
const ReferenceA4 = 440.0

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteReading is a frequency mapped onto the nearest equal-tempered note
// with its signed cent deviation.
type NoteReading struct {
	Name      string  // Note name without octave, e.g. "A#".
	Octave    int     // Scientific pitch octave, e.g. 4 for A4.
	Frequency float64 // The exact input frequency in Hz.
	Cents     float64 // Signed deviation from the note, always in (-50, +50].
}

// String renders the reading as e.g. "A4" or "C#3".
func (n NoteReading) String() string {
	return fmt.Sprintf("%s%d", n.Name, n.Octave)
}

// ToNote maps a frequency in Hz to the nearest equal-tempered note
// (A4 = 440 Hz, semitone ratio 2^(1/12)). The nearest semitone is chosen as
// ceil(semitones - 0.5), which keeps the cent deviation in (-50, +50] for
// every input: a frequency exactly halfway between two notes reads as the
// lower note at +50 cents. Returns false for frequencies <= 0, the one
// undefined input.
func ToNote(frequency float64) (NoteReading, bool) {
	if frequency <= 0 {
		return NoteReading{}, false
	}

	semitones := 12 * math.Log2(frequency/ReferenceA4)
	nearest := int(math.Ceil(semitones - 0.5))
	cents := 100 * (semitones - float64(nearest))

	// A4 is 9 semitones above C4.
	semitonesFromC4 := nearest + 9

	index := ((semitonesFromC4 % 12) + 12) % 12

	octave := 4
	if semitonesFromC4 >= 0 {
		octave += semitonesFromC4 / 12
	} else {
		octave += (semitonesFromC4 - 11) / 12
	}

	return NoteReading{
		Name:      noteNames[index],
		Octave:    octave,
		Frequency: frequency,
		Cents:     cents,
	}, true
}

// NoteIndex returns the chromatic index of a note name, 0 for "C" through
// 11 for "B", or -1 for an unknown name. Used by wire encodings that carry
// the note as a single byte.
func NoteIndex(name string) int {
	for i, n := range noteNames {
		if n == name {
			return i
		}
	}
	return -1
}

// centsBetween returns the signed distance from ref to f in cents.
func centsBetween(f, ref float64) float64 {
	return 1200 * math.Log2(f/ref)
}
