package replay

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/forge-engine/forge/ioloop"
	"github.com/forge-engine/forge/notify"
)

func TestRoundTripInputAndLifecycleEvents(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(&buf)

	in1 := ioloop.InputEvent{Kind: 0, Button: ioloop.MouseLeft, Down: true}
	lc := notify.LifecycleEvent{Kind: notify.KindExtensionLoaded, Name: "widgets", Timestamp: time.Unix(1000, 0).UTC()}
	in2 := ioloop.InputEvent{Codepoint: 'x'}

	if err := rec.RecordInput(in1); err != nil {
		t.Fatalf("RecordInput: %v", err)
	}
	if err := rec.RecordLifecycle(lc); err != nil {
		t.Fatalf("RecordLifecycle: %v", err)
	}
	if err := rec.RecordInput(in2); err != nil {
		t.Fatalf("RecordInput: %v", err)
	}

	p := NewPlayer(&buf)

	got1, err := p.Next()
	if err != nil {
		t.Fatalf("Next 1: %v", err)
	}
	if ev, ok := got1.(ioloop.InputEvent); !ok || ev != in1 {
		t.Fatalf("got1 = %+v, want %+v", got1, in1)
	}

	got2, err := p.Next()
	if err != nil {
		t.Fatalf("Next 2: %v", err)
	}
	ev2, ok := got2.(notify.LifecycleEvent)
	if !ok || ev2.Kind != lc.Kind || ev2.Name != lc.Name || !ev2.Timestamp.Equal(lc.Timestamp) {
		t.Fatalf("got2 = %+v, want %+v", got2, lc)
	}

	got3, err := p.Next()
	if err != nil {
		t.Fatalf("Next 3: %v", err)
	}
	if ev, ok := got3.(ioloop.InputEvent); !ok || ev != in2 {
		t.Fatalf("got3 = %+v, want %+v", got3, in2)
	}

	if _, err := p.Next(); err != io.EOF {
		t.Fatalf("Next at end = %v, want io.EOF", err)
	}
}

func TestPlayerRejectsOversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	hdr := make([]byte, lengthPrefixSize)
	hdr[0] = 0xFF // absurdly large length
	buf.Write(hdr)

	p := NewPlayer(&buf)
	if _, err := p.Next(); err != ErrTooLarge {
		t.Fatalf("Next = %v, want ErrTooLarge", err)
	}
}
