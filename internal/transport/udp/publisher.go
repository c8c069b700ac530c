// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"chromatune/internal/analysis"
	applog "chromatune/internal/log"
)

/*
Reading packet layout (BigEndian, 24 bytes):

| Field      | Type    | Size | Description                          |
|------------|---------|------|--------------------------------------|
| Sequence   | uint32  | 4    | Monotonically increasing             |
| Timestamp  | int64   | 8    | Nanoseconds since epoch              |
| Voiced     | uint8   | 1    | 1 when a pitch is being tracked      |
| NoteIndex  | uint8   | 1    | Chromatic index, 0 = C through 11 = B|
| Octave     | int8    | 1    | Scientific pitch octave              |
| (reserved) | uint8   | 1    | Always 0                             |
| Frequency  | float32 | 4    | Measured frequency in Hz             |
| Cents      | float32 | 4    | Smoothed deviation from the note     |

When Voiced is 0 every field after Timestamp is 0.
*/
type packet struct {
	Sequence  uint32
	Timestamp int64
	Voiced    uint8
	NoteIndex uint8
	Octave    int8
	_         uint8
	Frequency float32
	Cents     float32
}

// Publisher periodically samples the latest stable reading, packs it into
// the binary format above and sends it through a Sender. The goroutine is
// managed by Start and Stop.
type Publisher struct {
	sender   *Sender
	source   *analysis.Publisher
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	sequenceNum  uint32
	packetBuffer *bytes.Buffer
}

// NewPublisher creates a publisher reading from source. An interval <= 0
// defaults to 33ms (~30Hz).
func NewPublisher(interval time.Duration, sender *Sender, source *analysis.Publisher) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("udp publisher: sender cannot be nil")
	}
	if source == nil {
		return nil, fmt.Errorf("udp publisher: reading source cannot be nil")
	}

	if interval <= 0 {
		interval = 33 * time.Millisecond
		applog.Warnf("Transport: invalid UDP interval, defaulting to %s", interval)
	}

	return &Publisher{
		sender:       sender,
		source:       source,
		interval:     interval,
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Start launches the publishing goroutine. Calling Start on a running
// publisher is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("Transport: UDP publisher already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("Transport: UDP publisher started (interval %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.sendReading()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the goroutine to exit and waits for it. Safe to call more
// than once.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Infof("Transport: UDP publisher stopped")
	return nil
}

// Close implements io.Closer.
func (p *Publisher) Close() error {
	return p.Stop()
}

// sendReading packs the latest reading and sends it.
func (p *Publisher) sendReading() {
	p.sequenceNum++
	pkt := p.encode(p.source.Latest(), p.sequenceNum, time.Now().UnixNano())

	p.packetBuffer.Reset()
	if err := binary.Write(p.packetBuffer, binary.BigEndian, pkt); err != nil {
		applog.Errorf("Transport: failed to pack UDP packet: %v", err)
		return
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err != nil {
		applog.Debugf("Transport: UDP send failed: %v", err)
		return
	}
	applog.Debugf("Transport: sent UDP packet %d", p.sequenceNum)
}

// encode maps a stable reading onto the wire packet.
func (p *Publisher) encode(r analysis.StableReading, seq uint32, timestamp int64) packet {
	pkt := packet{
		Sequence:  seq,
		Timestamp: timestamp,
	}
	if !r.Voiced {
		return pkt
	}

	pkt.Voiced = 1
	if idx := analysis.NoteIndex(r.Name); idx >= 0 {
		pkt.NoteIndex = uint8(idx)
	}
	pkt.Octave = int8(r.Octave)
	pkt.Frequency = float32(r.Frequency)
	pkt.Cents = float32(r.Cents)
	return pkt
}

var _ interface{ Close() error } = (*Publisher)(nil)
