package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Emit(context.Context, Event) {
	<-s.release
}

type panicSink struct{}

func (panicSink) Emit(_ context.Context, event Event) {
	if event.EventType == "boom" {
		panic("sink failure")
	}
}

func TestNilDispatcherIsInert(t *testing.T) {
	var d *Dispatcher
	if d.Emit(context.Background(), Event{}) {
		t.Fatal("nil dispatcher must not accept events")
	}
	d.Close()
	if d.Dropped() != 0 || d.Delivered() != 0 {
		t.Fatal("expected nil dispatcher to report zero counts")
	}
}

func TestDispatcherDeliversToSink(t *testing.T) {
	sink := NewChannelSink(4)
	d := NewDispatcher(Config{BufferSize: 4}, sink, nil)
	defer d.Close()

	if !d.Emit(context.Background(), Event{EventType: "login_success", UserID: "u1", Success: true}) {
		t.Fatal("expected event to be queued")
	}

	select {
	case ev := <-sink.Events():
		if ev.EventType != "login_success" || ev.UserID != "u1" {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{BufferSize: 1, DropIfFull: true}, sink, nil)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "x"})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected drops with a blocked sink")
	}
	close(sink.release)
	d.Close()
}

func TestBlockingEmitHonorsContext(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{BufferSize: 1}, sink, nil)
	defer func() {
		close(sink.release)
		d.Close()
	}()

	// The first event occupies the worker, the second fills the buffer.
	d.Emit(context.Background(), Event{EventType: "a"})
	d.Emit(context.Background(), Event{EventType: "b"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if d.Emit(ctx, Event{EventType: "c"}) {
		t.Fatal("expected emit to give up when the context ends")
	}
}

func TestCloseDrainsBufferedEvents(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(Config{BufferSize: 8}, sink, nil)
	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: "x"})
	}
	d.Close()
	if got := len(sink.Events()); got != 5 {
		t.Fatalf("expected 5 drained events, got %d", got)
	}
	if d.Emit(context.Background(), Event{EventType: "after-close"}) {
		t.Fatal("expected emit after close to be rejected")
	}
	if got := d.Delivered(); got != 5 {
		t.Fatalf("expected 5 delivered, got %d", got)
	}
}

func TestDispatcherSurvivesSinkPanic(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	d := NewDispatcher(Config{BufferSize: 4}, panicSink{}, zap.New(core))

	d.Emit(context.Background(), Event{EventType: "boom"})
	d.Emit(context.Background(), Event{EventType: "fine"})
	d.Close()

	if got := d.Delivered(); got != 1 {
		t.Fatalf("expected 1 delivered event, got %d", got)
	}
	if logs.FilterMessage("audit sink panicked").Len() != 1 {
		t.Fatalf("expected panic to be logged, got %v", logs.All())
	}
}

func TestMultiSinkFansOut(t *testing.T) {
	a, b := NewChannelSink(1), NewChannelSink(1)
	MultiSink{a, nil, b}.Emit(context.Background(), Event{EventType: "logout"})

	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Fatal("expected every sink to receive the event")
	}
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{EventType: "logout", UserID: "u1", Success: true})
	sink.Emit(context.Background(), Event{EventType: "refresh_invalid", Error: "invalid_token"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var ev Event
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.EventType != "refresh_invalid" || ev.Error != "invalid_token" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestZapSinkLevels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewZapSink(zap.New(core))

	sink.Emit(context.Background(), Event{EventType: "login_success", UserID: "u1", Success: true})
	sink.Emit(context.Background(), Event{EventType: "login_failure", Error: "invalid_credentials", Metadata: map[string]string{"method": "password"}})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel || entries[0].LoggerName != "audit" {
		t.Fatalf("unexpected first entry %+v", entries[0].Entry)
	}
	if entries[1].Level != zapcore.WarnLevel {
		t.Fatalf("expected failure at warn, got %v", entries[1].Level)
	}
	fields := entries[1].ContextMap()
	if fields["error_code"] != "invalid_credentials" || fields["meta_method"] != "password" {
		t.Fatalf("unexpected fields %v", fields)
	}
}
