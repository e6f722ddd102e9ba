package ioloop

// NewFrame performs the per-frame bookkeeping specified for the frame
// driver: advance time and frame counter, clear ViewportChanged, update
// the frame-time ring buffer and derived FrameRate, then drain the event
// queue and recompute keyboard/mouse derived state. dt is the wall-clock
// time since the previous frame, in seconds.
func (s *State) NewFrame(dt float64) {
	s.FrameCount++
	s.Time += dt
	s.DeltaTime = dt
	s.ViewportChanged = false

	s.pushFrameTime(dt)
	s.drainEvents()
	s.updateKeyboardDerivedState(dt)
	s.updateMouseDerivedState(dt)
}

func (s *State) pushFrameTime(dt float64) {
	s.frameTimes[s.frameTimeIdx] = dt
	s.frameTimeIdx = (s.frameTimeIdx + 1) % frameTimeWindow
	if s.frameTimeFilled < frameTimeWindow {
		s.frameTimeFilled++
	}

	var sum float64
	for i := 0; i < s.frameTimeFilled; i++ {
		sum += s.frameTimes[i]
	}
	if sum > 0 {
		s.FrameRate = float64(s.frameTimeFilled) / sum
	}
}

// drainEvents walks the queue in FIFO order, applying each event to
// IO state, then resets the queue. Mouse/key down flags are staged here;
// duration/clicked/released derivation happens afterward in
// updateKeyboardDerivedState / updateMouseDerivedState so that "clicked"
// can compare against the button's prior-frame duration.
func (s *State) drainEvents() {
	s.mu.Lock()
	queue := s.eventQueue
	s.eventQueue = nil
	s.mu.Unlock()

	for _, ev := range queue {
		switch ev.Kind {
		case eventMousePos:
			s.mousePos = ev.Pos
			s.lastValidMousePos = ev.Pos
		case eventMouseWheel:
			s.mouseWheelX += ev.WheelX
			s.mouseWheelY += ev.WheelY
		case eventMouseButton:
			s.mouseButtons[ev.Button].down = ev.Down
		case eventKey:
			s.keyStateFor(ev.Key).down = ev.Down
		case eventText:
			s.TextQueue = append(s.TextQueue, ev.Codepoint)
		}
	}
}

// updateKeyboardDerivedState composes KeyMods from the eight modifier
// keys, then advances every tracked key's duration history.
func (s *State) updateKeyboardDerivedState(dt float64) {
	s.KeyMods = 0
	if s.isKeyDownRaw(KeyLeftCtrl) || s.isKeyDownRaw(KeyRightCtrl) {
		s.KeyMods |= ModCtrl
	}
	if s.isKeyDownRaw(KeyLeftShift) || s.isKeyDownRaw(KeyRightShift) {
		s.KeyMods |= ModShift
	}
	if s.isKeyDownRaw(KeyLeftAlt) || s.isKeyDownRaw(KeyRightAlt) {
		s.KeyMods |= ModAlt
	}
	if s.isKeyDownRaw(KeyLeftSuper) || s.isKeyDownRaw(KeyRightSuper) {
		s.KeyMods |= ModSuper
	}

	for _, ks := range s.keys {
		ks.downDurationPrev = ks.downDuration
		if ks.down {
			if ks.downDurationPrev < 0 {
				ks.downDuration = 0
			} else {
				ks.downDuration = ks.downDurationPrev + dt
			}
		} else {
			ks.downDuration = -1
		}
	}
}

func (s *State) isKeyDownRaw(k Key) bool {
	ks, ok := s.keys[k]
	return ok && ks.down
}

// doubleClickTime and doubleClickMaxDist are the defaults used by click
// detection; both match common desktop UI conventions (roughly Dear
// ImGui's io.MouseDoubleClickTime / io.MouseDoubleClickMaxDist).
const (
	doubleClickTime    = 0.3
	doubleClickMaxDist = 6.0
)

func (s *State) updateMouseDerivedState(dt float64) {
	for i := range s.mouseButtons {
		mb := &s.mouseButtons[i]
		prevDuration := mb.duration

		mb.clicked = mb.down && prevDuration < 0
		mb.released = !mb.down && prevDuration >= 0

		if mb.down {
			if prevDuration < 0 {
				mb.duration = 0
			} else {
				mb.duration = prevDuration + dt
			}
		} else {
			mb.duration = -1
		}

		if mb.clicked {
			delta := s.mousePos.sub(mb.clickPos)
			withinDist := delta.lengthSq() <= doubleClickMaxDist*doubleClickMaxDist
			if s.Time-mb.lastClickTime < doubleClickTime && withinDist {
				mb.clickCount++
			} else {
				mb.clickCount = 1
			}
			mb.lastClickTime = s.Time
			mb.clickPos = s.mousePos
			mb.dragMaxDistSq = 0
		}

		if mb.down {
			d := s.mousePos.sub(mb.clickPos).lengthSq()
			if d > mb.dragMaxDistSq {
				mb.dragMaxDistSq = d
			}
		}
	}
}
