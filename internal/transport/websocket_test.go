package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebSocketBroadcast(t *testing.T) {
	wst := NewWebSocketTransport("127.0.0.1:0")
	defer wst.Close()

	// Exercise the handler through a test server so the test does not
	// depend on a fixed port.
	srv := httptest.NewServer(http.HandlerFunc(wst.handleWebSocket))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()

	// Client registration happens after the handshake completes server-side,
	// so keep sending until the reading arrives.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				wst.Send(voicedReading("A", 4, 440.0, 2.5))
			case <-stop:
				return
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Reading
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON error: %v", err)
	}

	if !got.Voiced || got.Note != "A" || got.Octave != 4 {
		t.Errorf("received reading = %+v, want voiced A4", got)
	}
	if got.Frequency != 440.0 || got.Cents != 2.5 {
		t.Errorf("received reading = %+v, want 440 Hz at +2.5 cents", got)
	}
}

func TestWebSocketSendNeverBlocks(t *testing.T) {
	wst := NewWebSocketTransport("127.0.0.1:0")
	defer wst.Close()

	// With no clients and a bounded queue, sustained sends must not block
	// the caller.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			wst.Send(voicedReading("C", 3, 130.81, 0))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Send blocked with a full broadcast queue")
	}
}
