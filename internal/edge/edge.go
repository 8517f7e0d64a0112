package edge

// Trigger thresholds in volts, following the usual modular trigger convention.
const (
	TriggerHigh = 2.0
	TriggerLow  = 0.1
)

// Transition is what a detector saw on one tick.
type Transition int

const (
	None Transition = iota
	Rising
	Falling
)

// Threshold configures a Detector. The detector rises when the input reaches
// Rise (or exceeds it when Strict is set) and falls when the input is at or
// below Fall.
type Threshold struct {
	Rise   float64
	Fall   float64
	Strict bool
}

var (
	// Trigger is the hysteresis band used for clock, reset and gate inputs.
	Trigger = Threshold{Rise: TriggerHigh, Fall: TriggerLow}
	// Button treats any positive value as pressed.
	Button = Threshold{Rise: 0, Fall: 0, Strict: true}
)

// Detector converts a continuous signal into rising/falling transitions.
// It emits at most one transition per call.
type Detector struct {
	th   Threshold
	high bool
}

func New(th Threshold) Detector {
	return Detector{th: th}
}

func NewTrigger() Detector { return New(Trigger) }

func NewButton() Detector { return New(Button) }

// Process feeds one sample and reports the transition it caused, if any.
func (d *Detector) Process(v float64) Transition {
	if d.high {
		if v <= d.th.Fall {
			d.high = false
			return Falling
		}
		return None
	}
	if v > d.th.Rise || (!d.th.Strict && v == d.th.Rise) {
		d.high = true
		return Rising
	}
	return None
}

// High reports the latched level.
func (d *Detector) High() bool { return d.high }

// Reset drops the latch back to low without emitting a transition.
func (d *Detector) Reset() { d.high = false }
