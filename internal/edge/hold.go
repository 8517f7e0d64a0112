package edge

// Press is the outcome of a Hold on one tick.
type Press int

const (
	PressNone Press = iota
	// PressShort fires on release when the button was let go before the hold time.
	PressShort
	// PressLong fires once, while still held, when the hold time runs out.
	// The release that follows is swallowed.
	PressLong
)

// Hold is a button detector with long-press semantics counted in ticks.
type Hold struct {
	button  Detector
	ticks   int
	counter int
}

func NewHold(ticks int) Hold {
	if ticks < 1 {
		ticks = 1
	}
	return Hold{button: NewButton(), ticks: ticks}
}

// Process feeds the button level for one tick.
func (h *Hold) Process(v float64) Press {
	switch h.button.Process(v) {
	case Falling:
		if h.counter > 0 {
			h.counter = 0
			return PressShort
		}
		return PressNone
	case Rising:
		h.counter = h.ticks
	}
	if h.button.High() && h.counter > 0 {
		h.counter--
		if h.counter == 0 {
			return PressLong
		}
	}
	return PressNone
}

// Held reports whether the button is currently down.
func (h *Hold) Held() bool { return h.button.High() }

func (h *Hold) Reset() {
	h.button.Reset()
	h.counter = 0
}

// Lockout refuses events for a span of time measured in seconds.
type Lockout struct {
	remaining float64
}

// Arm starts (or restarts) the lockout.
func (l *Lockout) Arm(seconds float64) { l.remaining = seconds }

// Active reports whether events are currently refused.
func (l *Lockout) Active() bool { return l.remaining > 0 }

// Elapse advances the lockout by dt seconds.
func (l *Lockout) Elapse(dt float64) {
	if l.remaining > 0 {
		l.remaining -= dt
	}
}

func (l *Lockout) Reset() { l.remaining = 0 }
