package dispatcher

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("DEBUG: %s %v", msg, keysAndValues))
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("INFO: %s %v", msg, keysAndValues))
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("ERROR: %s %v", msg, keysAndValues))
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	logger := &testLogger{}

	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}

	return d, logger
}

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got json.RawMessage
	d.Register("param:get", func(e Event) (any, error) {
		got = e.Payload
		return "result", nil
	})

	result, err := d.Dispatch(Event{Command: "param:get", Payload: json.RawMessage(`{"names":[]}`)})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if string(got) != `{"names":[]}` {
		t.Errorf("handler did not receive payload, got %q", got)
	}
	if result != "result" {
		t.Errorf("expected result, got %v", result)
	}
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(Event{Command: "warp"})
	if err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestDispatcher_HasHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register("reset", func(e Event) (any, error) { return nil, nil })

	if !d.HasHandler("reset") {
		t.Error("expected handler for reset")
	}
	if d.HasHandler("joy") {
		t.Error("did not expect handler for joy")
	}
}

func TestDispatcher_BufferedHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var processed atomic.Int64
	done := make(chan struct{}, 16)
	d.Register("joy", func(e Event) (any, error) {
		processed.Add(1)
		done <- struct{}{}
		return nil, nil
	}, Buffered(16))

	for i := 0; i < 10; i++ {
		result, err := d.Dispatch(Event{Command: "joy", Timestamp: time.Now()})
		if err != nil {
			t.Fatalf("dispatch %d failed: %v", i, err)
		}
		if result != "queued" {
			t.Fatalf("expected queued, got %v", result)
		}
	}

	for i := 0; i < 10; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for buffered handler")
		}
	}
	if processed.Load() != 10 {
		t.Errorf("expected 10 processed, got %d", processed.Load())
	}
}

func TestDispatcher_BufferedDropsWhenFull(t *testing.T) {
	d, _ := newTestDispatcher(t)

	block := make(chan struct{})
	d.Register("joy", func(e Event) (any, error) {
		<-block
		return nil, nil
	}, Buffered(1))

	// First fills the worker, second fills the buffer. Some following
	// dispatch must fail once both are occupied.
	var dropErr error
	for i := 0; i < 10 && dropErr == nil; i++ {
		_, dropErr = d.Dispatch(Event{Command: "joy"})
		time.Sleep(5 * time.Millisecond)
	}
	close(block)

	if dropErr == nil {
		t.Error("expected a drop error with a full queue")
	}
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("reset", func(e Event) (any, error) {
		return nil, fmt.Errorf("boom")
	}, Logged())

	_, err := d.Dispatch(Event{Command: "reset"})
	if err == nil {
		t.Fatal("expected handler error")
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()
	var sawError bool
	for _, m := range logger.messages {
		if fmt.Sprintf("%.6s", m) == "ERROR:" {
			sawError = true
		}
	}
	if !sawError {
		t.Error("expected an error log entry")
	}
}
