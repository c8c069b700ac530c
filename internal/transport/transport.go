// Package transport broadcasts stable pitch readings to external consumers.
package transport

import "chromatune/internal/analysis"

// Transport sends pitch readings to an external consumer.
// Implementations must be safe for concurrent use.
type Transport interface {
	Send(reading analysis.StableReading) error
	Close() error
}

// Reading is the JSON wire representation of a stable reading.
type Reading struct {
	Voiced    bool    `json:"voiced"`
	Note      string  `json:"note,omitempty"`
	Octave    int     `json:"octave,omitempty"`
	Frequency float64 `json:"frequency,omitempty"`
	Cents     float64 `json:"cents,omitempty"`
}

// NewReading converts a stable reading into its wire form.
func NewReading(r analysis.StableReading) Reading {
	if !r.Voiced {
		return Reading{}
	}
	return Reading{
		Voiced:    true,
		Note:      r.Name,
		Octave:    r.Octave,
		Frequency: r.Frequency,
		Cents:     r.Cents,
	}
}
