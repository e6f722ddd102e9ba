package ioloop

import "sync"

// frameTimeWindow is the size of the frame-time ring buffer used to
// derive FrameRate, per the core spec's 120-sample window.
const frameTimeWindow = 120

// keyState tracks one key's down/duration history, advanced once per
// frame by updateKeyboardDerivedState.
type keyState struct {
	down             bool
	downDuration     float64 // -1 while up
	downDurationPrev float64
}

// mouseButtonState tracks one mouse button's down/duration/click/drag
// history, advanced once per frame by updateMouseDerivedState.
type mouseButtonState struct {
	down          bool
	duration      float64 // -1 while up
	clicked       bool
	released      bool
	clickCount    int
	lastClickTime float64
	clickPos      Vec2
	dragMaxDistSq float64
}

// State is the process-wide IO state: frame bookkeeping, derived
// keyboard/mouse state, and the raw event queue awaiting drain. The zero
// value is not usable; construct with New.
type State struct {
	mu         sync.Mutex // guards the raw event queue and the dedup state below
	eventQueue []InputEvent

	// Dedup tracking for the enqueue side (guarded by mu alongside the
	// queue, since backends may enqueue from multiple goroutines).
	lastKeyDown       map[Key]bool
	lastMouseBtnDown  map[MouseButton]bool
	lastMousePosSet   bool
	lastMousePos      Vec2
	pendingHighSurrog rune // 0 when no high surrogate is pending

	// Frame bookkeeping, owned by the single update thread.
	FrameCount uint64
	Time       float64
	DeltaTime  float64

	frameTimes      [frameTimeWindow]float64
	frameTimeIdx    int
	frameTimeFilled int
	FrameRate       float64

	ViewportWidth   float64
	ViewportHeight  float64
	ViewportChanged bool

	Cursor        CursorShape
	NextCursor    CursorShape
	CursorChanged bool

	Running bool
	KeyMods KeyMods

	keys         map[Key]*keyState
	mouseButtons [mouseButtonCount]mouseButtonState

	mousePos          Vec2
	lastValidMousePos Vec2
	mouseWheelX       float64
	mouseWheelY       float64

	TextQueue []rune
}

// CursorShape is a platform-neutral cursor identifier the host surfaces
// to its platform backend via NextCursor/CursorChanged.
type CursorShape int

const (
	CursorArrow CursorShape = iota
	CursorText
	CursorResize
	CursorHand
	CursorHidden
)

// New constructs an empty State with Running set true.
func New() *State {
	s := &State{
		Running:          true,
		keys:             make(map[Key]*keyState),
		lastKeyDown:      make(map[Key]bool),
		lastMouseBtnDown: make(map[MouseButton]bool),
	}
	for i := range s.mouseButtons {
		s.mouseButtons[i].duration = -1
	}
	return s
}

func (s *State) keyStateFor(k Key) *keyState {
	ks, ok := s.keys[k]
	if !ok {
		ks = &keyState{downDuration: -1, downDurationPrev: -1}
		s.keys[k] = ks
	}
	return ks
}
