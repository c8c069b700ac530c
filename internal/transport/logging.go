package transport

import (
	"sync"

	"chromatune/internal/analysis"
	applog "chromatune/internal/log"
)

// LoggingTransport writes readings to the application log. It only logs
// when the reading changes, so a held note does not flood the output.
type LoggingTransport struct {
	mu   sync.Mutex
	last analysis.StableReading
}

// NewLoggingTransport creates a LoggingTransport.
func NewLoggingTransport() *LoggingTransport {
	applog.Infof("Transport: using logging transport")
	return &LoggingTransport{}
}

// Send logs the reading if it differs from the previous one.
func (lt *LoggingTransport) Send(reading analysis.StableReading) error {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	if reading == lt.last {
		return nil
	}
	lt.last = reading

	if !reading.Voiced {
		applog.Debugf("Reading: no signal")
		return nil
	}
	applog.Debugf("Reading: %s %+.1f cents (%.2f Hz)", reading.String(), reading.Cents, reading.Frequency)
	return nil
}

// Close is a no-op.
func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
