package ioloop

import "testing"

func TestKeyDownDurationAdvancesAcrossFrames(t *testing.T) {
	s := New()
	s.AddKeyEvent(KeyLeftShift, true)
	s.NewFrame(1.0 / 60)

	if !s.IsKeyDown(KeyLeftShift) {
		t.Fatal("key not down after press")
	}

	s.NewFrame(1.0 / 60)
	s.NewFrame(1.0 / 60)

	if !s.IsKeyDown(KeyLeftShift) {
		t.Fatal("key released unexpectedly")
	}

	s.AddKeyEvent(KeyLeftShift, false)
	s.NewFrame(1.0 / 60)
	if s.IsKeyDown(KeyLeftShift) {
		t.Fatal("key still down after release event")
	}
	if !s.KeyReleased(KeyLeftShift) {
		t.Fatal("KeyReleased should be true the frame a key goes up")
	}
}

func TestDuplicateKeyEventsAreDeduplicated(t *testing.T) {
	s := New()
	s.AddKeyEvent(KeyLeftCtrl, true)
	s.AddKeyEvent(KeyLeftCtrl, true)
	s.AddKeyEvent(KeyLeftCtrl, true)

	s.mu.Lock()
	n := len(s.eventQueue)
	s.mu.Unlock()
	if n != 1 {
		t.Fatalf("queued %d events, want 1 after dedup", n)
	}
}

func TestKeyModsComposedFromModifierKeys(t *testing.T) {
	s := New()
	s.AddKeyEvent(KeyLeftCtrl, true)
	s.AddKeyEvent(KeyRightShift, true)
	s.NewFrame(1.0 / 60)

	if s.KeyMods&ModCtrl == 0 {
		t.Fatal("ModCtrl not set")
	}
	if s.KeyMods&ModShift == 0 {
		t.Fatal("ModShift not set")
	}
	if s.KeyMods&ModAlt != 0 {
		t.Fatal("ModAlt unexpectedly set")
	}
}

func TestKeyPressedAmountOneShotWithoutRepeat(t *testing.T) {
	s := New()
	s.AddKeyEvent(KeyLeftAlt, true)
	s.NewFrame(1.0 / 60)

	if got := s.KeyPressedAmount(KeyLeftAlt, 0.3, 0); got != 1 {
		t.Fatalf("KeyPressedAmount just-pressed = %d, want 1", got)
	}

	s.NewFrame(1.0 / 60)
	if got := s.KeyPressedAmount(KeyLeftAlt, 0.3, 0); got != 0 {
		t.Fatalf("KeyPressedAmount held (rate<=0) = %d, want 0", got)
	}
}

func TestKeyPressedAmountRepeatsAtRate(t *testing.T) {
	s := New()
	s.AddKeyEvent(KeyLeftAlt, true)
	const dt = 0.1
	// Frame 1: just pressed, duration 0.
	s.NewFrame(dt)
	if got := s.KeyPressedAmount(KeyLeftAlt, 0.3, 0.1); got != 1 {
		t.Fatalf("press amount at t=0 = %d, want 1", got)
	}

	// Advance through the repeat delay: durations become
	// 0.1, 0.2, 0.3, 0.4 ...
	total := 0
	for i := 0; i < 5; i++ {
		s.NewFrame(dt)
		total += s.KeyPressedAmount(KeyLeftAlt, 0.3, 0.1)
	}
	if total == 0 {
		t.Fatal("expected repeat presses once past the repeat delay")
	}
}

func TestKeyPressedAmountZeroWhenNotDown(t *testing.T) {
	s := New()
	s.NewFrame(1.0 / 60)
	if got := s.KeyPressedAmount(KeyLeftAlt, 0.3, 0.1); got != 0 {
		t.Fatalf("KeyPressedAmount on untouched key = %d, want 0", got)
	}
}

func TestMouseClickAndDoubleClick(t *testing.T) {
	s := New()
	s.AddMousePosEvent(10, 10)
	s.AddMouseButtonEvent(MouseLeft, true)
	s.NewFrame(0.01)
	if !s.MouseClicked(MouseLeft) {
		t.Fatal("first click not detected")
	}
	if s.MouseDoubleClicked(MouseLeft) {
		t.Fatal("double click detected on first click")
	}

	s.AddMouseButtonEvent(MouseLeft, false)
	s.NewFrame(0.01)
	if !s.MouseReleased(MouseLeft) {
		t.Fatal("release not detected")
	}

	// Second click shortly after, at nearly the same position.
	s.AddMouseButtonEvent(MouseLeft, true)
	s.NewFrame(0.02)
	if !s.MouseDoubleClicked(MouseLeft) {
		t.Fatal("double click not detected on second click within time/distance window")
	}
}

func TestMouseDoubleClickRequiresProximity(t *testing.T) {
	s := New()
	s.AddMousePosEvent(0, 0)
	s.AddMouseButtonEvent(MouseLeft, true)
	s.NewFrame(0.01)

	s.AddMouseButtonEvent(MouseLeft, false)
	s.NewFrame(0.01)

	s.AddMousePosEvent(100, 100)
	s.AddMouseButtonEvent(MouseLeft, true)
	s.NewFrame(0.01)

	if s.MouseDoubleClicked(MouseLeft) {
		t.Fatal("double click detected despite large position delta")
	}
}

func TestMouseDragDetection(t *testing.T) {
	s := New()
	s.AddMousePosEvent(0, 0)
	s.AddMouseButtonEvent(MouseLeft, true)
	s.NewFrame(0.01)

	if s.MouseDragging(MouseLeft, 6.0) {
		t.Fatal("dragging reported before threshold crossed")
	}

	s.AddMousePosEvent(50, 0)
	s.NewFrame(0.01)

	if !s.MouseDragging(MouseLeft, 6.0) {
		t.Fatal("dragging not detected after threshold crossed")
	}
	delta := s.MouseDragDelta(MouseLeft, 6.0)
	if delta.X != 50 || delta.Y != 0 {
		t.Fatalf("drag delta = %+v, want {50 0}", delta)
	}
}

func TestMouseWheelNeverDeduplicatedAndAccumulates(t *testing.T) {
	s := New()
	s.AddMouseWheelEvent(1, 0)
	s.AddMouseWheelEvent(1, 0)
	s.AddMouseWheelEvent(0, 2)
	s.NewFrame(0.01)

	dx, dy := s.MouseWheelDelta()
	if dx != 2 || dy != 2 {
		t.Fatalf("wheel delta = (%v, %v), want (2, 2)", dx, dy)
	}

	// A second call before the next frame returns zero.
	dx, dy = s.MouseWheelDelta()
	if dx != 0 || dy != 0 {
		t.Fatalf("second wheel delta call = (%v, %v), want (0, 0)", dx, dy)
	}
}

func TestUTF16SurrogatePairReassembly(t *testing.T) {
	s := New()
	// U+1F600 GRINNING FACE = surrogate pair D83D DE00.
	s.AddTextEventUTF16(0xD83D)
	s.AddTextEventUTF16(0xDE00)
	s.NewFrame(0.01)

	q := s.DrainTextQueue()
	if len(q) != 1 || q[0] != 0x1F600 {
		t.Fatalf("decoded queue = %v, want [0x1F600]", q)
	}
}

func TestUTF16LoneSurrogateProducesReplacementChar(t *testing.T) {
	s := New()
	s.AddTextEventUTF16(0xD83D) // high surrogate, never paired
	s.AddTextEventUTF16('A')    // forces flush of the lone surrogate
	s.NewFrame(0.01)

	q := s.DrainTextQueue()
	if len(q) != 2 || q[0] != replacementChar || q[1] != 'A' {
		t.Fatalf("decoded queue = %v, want [U+FFFD, 'A']", q)
	}
}

func TestUTF8TextEventsForwardEachRune(t *testing.T) {
	s := New()
	s.AddTextEventsUTF8("hi!")
	s.NewFrame(0.01)

	q := s.DrainTextQueue()
	if string(q) != "hi!" {
		t.Fatalf("decoded queue = %q, want hi!", string(q))
	}
}

func TestFrameRateDerivedFromRingBuffer(t *testing.T) {
	s := New()
	for i := 0; i < 10; i++ {
		s.NewFrame(1.0 / 100) // 100 fps
	}
	if s.FrameRate < 90 || s.FrameRate > 110 {
		t.Fatalf("FrameRate = %v, want ~100", s.FrameRate)
	}
}

func TestViewportChangedFlag(t *testing.T) {
	s := New()
	s.SetViewport(800, 600)
	if !s.ViewportChanged {
		t.Fatal("ViewportChanged not set after first SetViewport")
	}
	s.NewFrame(0.01)
	if s.ViewportChanged {
		t.Fatal("ViewportChanged not cleared by NewFrame")
	}
	s.SetViewport(800, 600)
	if s.ViewportChanged {
		t.Fatal("ViewportChanged set for an unchanged size")
	}
}
