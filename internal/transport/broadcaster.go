package transport

import (
	"fmt"
	"sync"
	"time"

	"chromatune/internal/analysis"
	applog "chromatune/internal/log"
)

// Broadcaster periodically samples the latest stable reading and fans it
// out to every registered transport. Lifecycle is managed by Start and Stop.
type Broadcaster struct {
	source     *analysis.Publisher
	transports []Transport
	interval   time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.
}

// NewBroadcaster creates a broadcaster reading from source. An interval
// <= 0 defaults to 50ms.
func NewBroadcaster(interval time.Duration, source *analysis.Publisher, transports ...Transport) (*Broadcaster, error) {
	if source == nil {
		return nil, fmt.Errorf("broadcaster: reading source cannot be nil")
	}
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	return &Broadcaster{
		source:     source,
		transports: transports,
		interval:   interval,
	}, nil
}

// Start launches the broadcast goroutine. Calling Start on a running
// broadcaster is a no-op.
func (b *Broadcaster) Start() {
	b.mu.Lock()
	if b.ticker != nil {
		b.mu.Unlock()
		return
	}

	b.ticker = time.NewTicker(b.interval)
	b.doneChan = make(chan struct{})
	b.stopOnce = sync.Once{}

	ticker := b.ticker
	doneChan := b.doneChan
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-ticker.C:
				reading := b.source.Latest()
				for _, t := range b.transports {
					if err := t.Send(reading); err != nil {
						applog.Warnf("Transport: send failed: %v", err)
					}
				}
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the goroutine to exit and waits for it. Safe to call more
// than once.
func (b *Broadcaster) Stop() error {
	b.mu.Lock()
	if b.ticker == nil {
		b.mu.Unlock()
		return nil
	}

	b.stopOnce.Do(func() {
		close(b.doneChan)
		b.ticker.Stop()
		b.ticker = nil
	})
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}

// Close stops the broadcaster and closes every transport.
func (b *Broadcaster) Close() error {
	if err := b.Stop(); err != nil {
		return err
	}
	var firstErr error
	for _, t := range b.transports {
		if err := t.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
