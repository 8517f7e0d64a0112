package chordvault

import (
	"github.com/aetrion/chordvault-go/internal/engine"
	"github.com/aetrion/chordvault-go/internal/lfo"
	"github.com/aetrion/chordvault-go/internal/monitor"
	"github.com/aetrion/chordvault-go/internal/vault"
)

// Button names a front-panel push button.
type Button int

const (
	ButtonRecord Button = iota
	ButtonReset
	ButtonMode
	ButtonOffset
	numButtons
)

var buttonNames = [numButtons]string{"record", "reset", "mode", "offset"}

func (b Button) String() string {
	if b < 0 || b >= numButtons {
		return "unknown"
	}
	return buttonNames[b]
}

func ParseButton(name string) (Button, bool) {
	for i, n := range buttonNames {
		if n == name {
			return Button(i), true
		}
	}
	return 0, false
}

const (
	DefaultBPM        = 120.0
	DefaultGateLength = 0.5
	// DefaultPressTicks is a 20ms press at 48kHz.
	DefaultPressTicks = 960
	pressVolts        = 10.0
	clockVolts        = 10.0
)

type RigOptions struct {
	BPM        float64
	GateLength float64 // fraction of the beat the clock stays high
	Engine     engine.Options
	Monitor    monitor.Params
	LFORand    lfo.Rand
}

// Rig surrounds an Engine with what a patch would give it: a clock, knob
// positions, CV sources, buttons and a monitor synth listening to the
// outputs.
type Rig struct {
	engine     *engine.Engine
	monitor    *monitor.Monitor
	sampleRate int

	bpm        float64
	gateLength float64
	phase      float64
	clockOn    bool

	stepKnob   float64
	lengthKnob float64

	stepLFO           *lfo.LFO
	stepCV            float64
	stepCVConnected   bool
	lengthCV          float64
	lengthCVConnected bool

	presses [numButtons]int
	gates   [vault.Channels]float64
	pitches [vault.Channels]float64

	frame int64
	limit int64
	last  engine.Outputs
}

func NewRig(sampleRate int, opts RigOptions) *Rig {
	e := engine.NewWithOptions(sampleRate, opts.Engine)
	sampleRate = e.SampleRate()
	if opts.Monitor == (monitor.Params{}) {
		opts.Monitor = monitor.DefaultParams()
	}
	r := &Rig{
		engine:     e,
		monitor:    monitor.New(sampleRate, opts.Monitor),
		sampleRate: sampleRate,
		clockOn:    true,
		lengthKnob: engine.DefaultLength,
		stepLFO:    lfo.New(opts.LFORand),
	}
	r.SetBPM(opts.BPM)
	r.SetGateLength(opts.GateLength)
	return r
}

func (r *Rig) Engine() *engine.Engine { return r.engine }

func (r *Rig) Monitor() *monitor.Monitor { return r.monitor }

func (r *Rig) SampleRate() int { return r.sampleRate }

func (r *Rig) BPM() float64 { return r.bpm }

// SetBPM sets the clock tempo; values <= 0 restore the default.
func (r *Rig) SetBPM(bpm float64) {
	if bpm <= 0 {
		bpm = DefaultBPM
	}
	r.bpm = bpm
}

func (r *Rig) GateLength() float64 { return r.gateLength }

func (r *Rig) SetGateLength(f float64) {
	if f <= 0 || f >= 1 {
		f = DefaultGateLength
	}
	r.gateLength = f
}

// SetClockRunning starts or stops the clock. A started clock begins with
// its rising edge.
func (r *Rig) SetClockRunning(on bool) {
	if on && !r.clockOn {
		r.phase = 0
	}
	r.clockOn = on
}

// StartPlayback leaves recording the way the record button does, then
// restarts the clock so that the next tick carries a rising edge.
func (r *Rig) StartPlayback() {
	r.SetClockRunning(false)
	if r.engine.Recording() {
		r.Press(ButtonRecord, 1)
	}
	r.Next()
	r.Next()
	r.SetClockRunning(true)
}

func (r *Rig) StepKnob() float64 { return r.stepKnob }

func (r *Rig) SetStepKnob(v float64) { r.stepKnob = v }

func (r *Rig) LengthKnob() float64 { return r.lengthKnob }

func (r *Rig) SetLengthKnob(v float64) { r.lengthKnob = min(max(v, 1), vault.Size) }

// SetStepCV patches a constant voltage into the step CV input.
func (r *Rig) SetStepCV(v float64) {
	r.stepCV = v
	r.stepCVConnected = true
}

// SetStepLFO patches the LFO into the step CV input. A zero depth or rate
// leaves the constant step CV (if any) in charge.
func (r *Rig) SetStepLFO(offset, depth, rateHz float64, shape lfo.Shape) {
	r.stepLFO.Set(offset, depth, rateHz, shape)
	r.stepLFO.Reset()
}

func (r *Rig) DisconnectStepCV() {
	r.stepCVConnected = false
	r.stepLFO.Set(0, 0, 0, lfo.Triangle)
}

func (r *Rig) SetLengthCV(v float64) {
	r.lengthCV = v
	r.lengthCVConnected = true
}

func (r *Rig) DisconnectLengthCV() { r.lengthCVConnected = false }

// Press holds b down for the given number of ticks, starting on the next
// tick. Pressing a button that is already down restarts the hold.
func (r *Rig) Press(b Button, ticks int) {
	if b < 0 || b >= numButtons {
		return
	}
	if ticks <= 0 {
		ticks = DefaultPressTicks
	}
	r.presses[b] = ticks
}

// Feed sets the gate and pitch inputs until the next Feed.
func (r *Rig) Feed(gates, pitches *[vault.Channels]float64) {
	r.gates = *gates
	r.pitches = *pitches
}

// Release drops every input gate.
func (r *Rig) Release() {
	r.gates = [vault.Channels]float64{}
}

// SetDuration makes Finished report true after seconds of ticks from now.
// Zero runs forever.
func (r *Rig) SetDuration(seconds float64) {
	if seconds <= 0 {
		r.limit = 0
		return
	}
	r.limit = r.frame + int64(seconds*float64(r.sampleRate))
}

func (r *Rig) Finished() bool { return r.limit > 0 && r.frame >= r.limit }

// Frame is the number of ticks processed so far.
func (r *Rig) Frame() int64 { return r.frame }

// Last returns the outputs of the most recent tick.
func (r *Rig) Last() engine.Outputs { return r.last }

func (r *Rig) inputs() engine.Inputs {
	in := engine.Inputs{
		StepKnob:          r.stepKnob,
		LengthKnob:        r.lengthKnob,
		Gates:             r.gates,
		Pitches:           r.pitches,
		LengthCV:          r.lengthCV,
		LengthCVConnected: r.lengthCVConnected,
		StepCV:            r.stepCV,
		StepCVConnected:   r.stepCVConnected,
	}
	if r.stepLFO.Active() {
		in.StepCV = r.stepLFO.Sample(float64(r.sampleRate))
		in.StepCVConnected = true
	}
	if r.clockOn {
		if r.phase < r.gateLength {
			in.Clock = clockVolts
		}
		r.phase += r.bpm / 60 / float64(r.sampleRate)
		for r.phase >= 1 {
			r.phase--
		}
	}
	buttons := [numButtons]*float64{
		ButtonRecord: &in.RecordButton,
		ButtonReset:  &in.ResetButton,
		ButtonMode:   &in.ModeButton,
		ButtonOffset: &in.OffsetButton,
	}
	for b, v := range buttons {
		if r.presses[b] > 0 {
			r.presses[b]--
			*v = pressVolts
		}
	}
	return in
}

// Next runs one engine tick and returns its outputs. The step knob follows
// the position the engine reports, as a motorized control would.
func (r *Rig) Next() engine.Outputs {
	out := r.engine.Tick(r.inputs())
	r.stepKnob = float64(out.StepKnob)
	r.frame++
	r.last = out
	return out
}

// Process renders interleaved stereo from the monitor synth, one engine
// tick per frame.
func (r *Rig) Process(dst []float32) {
	frames := len(dst) / 2
	r.monitor.Begin(frames)
	for i := 0; i < frames; i++ {
		out := r.Next()
		r.monitor.Frame(i, &out.Gates, &out.Pitches, out.Channels)
	}
	r.monitor.Mix(dst)
}
