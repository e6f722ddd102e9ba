// Package ioloop implements the Input Event Pipeline and the per-frame
// IO state machine built on top of it: platform backends enqueue raw
// events at any time, and the frame driver drains them once per frame
// into derived key/mouse/text state that extensions and the application
// query.
package ioloop

// Key identifies a keyboard key. Platform backends assign their own
// integer key codes; the eight modifier keys below are the only ones
// this package gives meaning to directly (they compose KeyMods). Every
// other Key value is tracked generically for down/duration/repeat
// purposes without the package knowing what it represents.
type Key int

const (
	KeyLeftCtrl Key = iota + 1
	KeyRightCtrl
	KeyLeftShift
	KeyRightShift
	KeyLeftAlt
	KeyRightAlt
	KeyLeftSuper
	KeyRightSuper
)

// KeyMods is a bitmask of currently held modifier keys, recomputed once
// per frame from the eight modifier Key states.
type KeyMods int

const (
	ModCtrl KeyMods = 1 << iota
	ModShift
	ModAlt
	ModSuper
)

// MouseButton identifies one of the five tracked mouse buttons.
type MouseButton int

const (
	MouseLeft MouseButton = iota
	MouseRight
	MouseMiddle
	MouseButton4
	MouseButton5
	mouseButtonCount
)

// Vec2 is a 2D float coordinate, used for mouse position and drag deltas.
type Vec2 struct {
	X, Y float64
}

func (v Vec2) sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

func (v Vec2) lengthSq() float64 { return v.X*v.X + v.Y*v.Y }

// eventKind tags the variant of a queued InputEvent.
type eventKind int

const (
	eventMousePos eventKind = iota
	eventMouseWheel
	eventMouseButton
	eventKey
	eventText
)

// InputEvent is a single raw event appended to the queue by a platform
// backend and drained into derived IO state at the start of the next
// frame. Only the fields relevant to Kind are meaningful.
type InputEvent struct {
	Kind eventKind

	Pos       Vec2        // eventMousePos
	WheelX    float64     // eventMouseWheel
	WheelY    float64     // eventMouseWheel
	Button    MouseButton // eventMouseButton
	Key       Key         // eventKey
	Down      bool        // eventMouseButton, eventKey
	Codepoint rune        // eventText
}
