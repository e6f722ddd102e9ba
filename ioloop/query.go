package ioloop

// IsKeyDown reports whether key is currently held.
func (s *State) IsKeyDown(key Key) bool {
	ks, ok := s.keys[key]
	return ok && ks.downDuration >= 0
}

// KeyPressedAmount returns the number of key-press repeats that occurred
// this frame, derived from the key's duration history via the classical
// typematic formula. A key not currently down always yields 0.
func (s *State) KeyPressedAmount(key Key, repeatDelay, repeatRate float64) int {
	ks, ok := s.keys[key]
	if !ok || ks.downDuration < 0 {
		return 0
	}
	return typematicRepeatCount(ks.downDurationPrev, ks.downDuration, repeatDelay, repeatRate)
}

// KeyPressed reports whether key registers at least one press this
// frame, honoring repeat when enabled.
func (s *State) KeyPressed(key Key, repeatDelay, repeatRate float64) bool {
	return s.KeyPressedAmount(key, repeatDelay, repeatRate) > 0
}

// KeyReleased reports whether key transitioned from down to up this
// frame.
func (s *State) KeyReleased(key Key) bool {
	ks, ok := s.keys[key]
	if !ok {
		return false
	}
	return ks.downDuration < 0 && ks.downDurationPrev >= 0
}

// IsMouseDown reports whether button is currently held.
func (s *State) IsMouseDown(button MouseButton) bool {
	return s.mouseButtons[button].duration >= 0
}

// MouseClicked reports whether button transitioned from up to down this
// frame.
func (s *State) MouseClicked(button MouseButton) bool {
	return s.mouseButtons[button].clicked
}

// MouseReleased reports whether button transitioned from down to up
// this frame.
func (s *State) MouseReleased(button MouseButton) bool {
	return s.mouseButtons[button].released
}

// MouseDoubleClicked reports whether button was clicked this frame and
// that click completed a double-click (click count reaching exactly two).
func (s *State) MouseDoubleClicked(button MouseButton) bool {
	return s.mouseButtons[button].clicked && s.mouseButtons[button].clickCount == 2
}

// MouseDragging reports whether button's accumulated drag distance has
// crossed threshold.
func (s *State) MouseDragging(button MouseButton, threshold float64) bool {
	mb := &s.mouseButtons[button]
	return mb.dragMaxDistSq >= threshold*threshold
}

// MouseDragDelta returns the vector from the click position to the last
// valid mouse position, zero until the drag threshold is crossed.
func (s *State) MouseDragDelta(button MouseButton, threshold float64) Vec2 {
	mb := &s.mouseButtons[button]
	if mb.dragMaxDistSq < threshold*threshold {
		return Vec2{}
	}
	return s.lastValidMousePos.sub(mb.clickPos)
}

// MousePos returns the current mouse position.
func (s *State) MousePos() Vec2 { return s.mousePos }

// MouseWheelDelta returns and resets the accumulated wheel deltas for
// this frame. Callers are expected to call this at most once per frame;
// subsequent calls before the next NewFrame return zero.
func (s *State) MouseWheelDelta() (dx, dy float64) {
	dx, dy = s.mouseWheelX, s.mouseWheelY
	s.mouseWheelX, s.mouseWheelY = 0, 0
	return dx, dy
}

// DrainTextQueue returns and clears the queue of decoded text codepoints
// accumulated since the last call.
func (s *State) DrainTextQueue() []rune {
	q := s.TextQueue
	s.TextQueue = nil
	return q
}

// SetViewport updates the viewport size, setting ViewportChanged if it
// differs from the current size.
func (s *State) SetViewport(width, height float64) {
	if width != s.ViewportWidth || height != s.ViewportHeight {
		s.ViewportWidth = width
		s.ViewportHeight = height
		s.ViewportChanged = true
	}
}

// SetCursor requests a cursor shape to surface to the platform backend
// on the next frame boundary.
func (s *State) SetCursor(shape CursorShape) {
	if shape != s.NextCursor {
		s.NextCursor = shape
		s.CursorChanged = true
	}
}

// ApplyCursor clears CursorChanged and publishes NextCursor as Cursor. It
// acknowledges a pending cursor change once a platform backend has taken
// it; the host does not call it.
func (s *State) ApplyCursor() {
	s.Cursor = s.NextCursor
	s.CursorChanged = false
}
