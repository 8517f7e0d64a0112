package engine

import (
	"log/slog"
	"math/rand/v2"

	"github.com/aetrion/chordvault-go/internal/advance"
	"github.com/aetrion/chordvault-go/internal/edge"
	"github.com/aetrion/chordvault-go/internal/vault"
)

const (
	// GateHigh is the voltage of an open output gate.
	GateHigh = 10.0
	// ResetLockout is how long, in seconds, a reset trigger is ignored after a clock edge.
	ResetLockout = 0.001

	DefaultChannels = 5
	MinChannels     = 3
	MaxChannels     = vault.Channels
	DefaultLength   = 4
)

// OffsetCV decides whether the step CV shifts the window start in offset mode.
type OffsetCV int

const (
	// OffsetCVAuto adds the step CV unless the strategy already uses it to
	// address steps (CV and Glide).
	OffsetCVAuto OffsetCV = iota
	OffsetCVAlways
	OffsetCVNever
)

// EventKind identifies discrete engine state changes.
type EventKind int

const (
	EventRecording EventKind = iota
	EventPlaying
	EventStepRecorded
	EventReset
	EventStrategy
	EventOffsetMode
)

var eventNames = [...]string{"recording", "playing", "step recorded", "reset", "strategy", "offset mode"}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[k]
}

// Event is passed to Options.OnEvent. Step is the cursor when the change
// happened; for EventStepRecorded it is the step that was just written.
type Event struct {
	Kind     EventKind
	Step     int
	Strategy advance.Strategy
}

type Options struct {
	// Rand replaces the process-wide generator, mainly for tests.
	Rand   advance.Rand
	Logger *slog.Logger
	// OnEvent is called synchronously from Tick.
	OnEvent  func(Event)
	OffsetCV OffsetCV
	// AlwaysAbsorbPartialClock swallows the first clock after play or reset
	// even when SkipPartialClock is off.
	AlwaysAbsorbPartialClock bool
}

// Settings are the user-facing options persisted with the vault.
type Settings struct {
	CVRange          advance.CVRange
	CVOrder          vault.Order
	Channels         int
	DynamicChannels  bool
	OffsetMode       bool
	SkipPartialClock bool
}

func DefaultSettings() Settings {
	return Settings{
		CVRange:  advance.ZeroTo5V,
		CVOrder:  vault.Sorted,
		Channels: DefaultChannels,
	}
}

// Inputs are the signals sampled on one tick. Knobs are positions in steps,
// everything else is in volts.
type Inputs struct {
	StepKnob   float64
	LengthKnob float64

	Clock float64
	Reset float64

	ResetButton  float64
	RecordButton float64
	ModeButton   float64
	OffsetButton float64

	Gates   [vault.Channels]float64
	Pitches [vault.Channels]float64

	LengthCV          float64
	LengthCVConnected bool
	StepCV            float64
	StepCVConnected   bool
}

// Outputs are the signals produced by one tick. Channels beyond Channels
// are silent.
type Outputs struct {
	Gates    [vault.Channels]float64
	Pitches  [vault.Channels]float64
	Channels int

	// StepKnob is where the step-select control should point.
	StepKnob int
	// Length is the effective window length.
	Length int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// Engine is the chord vault: step memory, record/playback state machine
// and output compositor, advanced one sample at a time by Tick.
type Engine struct {
	sampleRate   int
	sampleTime   float64
	rng          advance.Rand
	log          *slog.Logger
	onEvent      func(Event)
	offsetCV     OffsetCV
	alwaysAbsorb bool

	vault     vault.Vault
	settings  Settings
	strategy  advance.Strategy
	recording bool
	cursor    int
	window    advance.Window
	state     advance.State

	clock     edge.Detector
	resetTrig edge.Detector
	gate      edge.Detector
	resetBtn  edge.Detector
	recordBtn edge.Detector
	offsetBtn edge.Detector
	mode      edge.Hold
	lockout   edge.Lockout

	partialClock bool
	absorbing    bool
	previewTimer int
	lastKnob     int
	firstTick    bool
	active       int
	out          Outputs
}

func New(sampleRate int) *Engine {
	return NewWithOptions(sampleRate, Options{})
}

func NewWithOptions(sampleRate int, opts Options) *Engine {
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	e := &Engine{
		sampleRate:   sampleRate,
		sampleTime:   1 / float64(sampleRate),
		rng:          opts.Rand,
		log:          opts.Logger,
		onEvent:      opts.OnEvent,
		offsetCV:     opts.OffsetCV,
		alwaysAbsorb: opts.AlwaysAbsorbPartialClock,
	}
	if e.rng == nil {
		e.rng = globalRand{}
	}
	if e.log == nil {
		e.log = slog.New(slog.DiscardHandler)
	}
	e.Reset()
	return e
}

// Reset returns the engine to its power-on state: empty vault, recording,
// default settings and a cleared output.
func (e *Engine) Reset() {
	e.vault.Clear()
	e.settings = DefaultSettings()
	e.strategy = advance.Forward
	e.recording = true
	e.cursor = 0
	e.window = advance.Window{Start: 0, Length: DefaultLength}
	e.state.Reset()
	e.resetTransient()
	e.out = Outputs{}
	e.updateActiveChannels()
	e.log.Debug("engine reset")
}

func (e *Engine) resetTransient() {
	e.clock = edge.NewTrigger()
	e.resetTrig = edge.NewTrigger()
	e.gate = edge.NewTrigger()
	e.resetBtn = edge.NewButton()
	e.recordBtn = edge.NewButton()
	e.offsetBtn = edge.NewButton()
	e.mode = edge.NewHold(e.sampleRate)
	e.lockout.Reset()
	e.partialClock = false
	e.absorbing = false
	e.previewTimer = 0
	e.lastKnob = 0
	e.firstTick = true
}

// Tick advances the engine by one sample.
func (e *Engine) Tick(in Inputs) Outputs {
	if e.firstTick {
		e.firstTick = false
		e.lastKnob = int(in.StepKnob)
	}

	e.processRecordButton(in.RecordButton)
	e.processOffsetButton(in.OffsetButton)
	e.processModeButton(in.ModeButton)
	e.processLength(in)
	e.processStepSelect(in)
	if !e.recording {
		e.processReset(in)
	}
	e.processClock(in)
	e.processGates(in)

	gateOpen := e.clock.High()
	preview := false
	if e.previewTimer > 0 {
		e.previewTimer--
		gateOpen = true
		preview = true
	}

	if !e.recording && e.strategy == advance.Glide {
		e.setCursor(advance.Position(e.strategy, e.params(in), &e.state, e.rng))
	}

	e.compose(in, gateOpen, preview)
	e.updateActiveChannels()

	out := e.out
	out.Channels = e.active
	out.Length = e.window.Length
	if e.settings.OffsetMode && !e.recording {
		out.StepKnob = int(in.StepKnob)
	} else {
		out.StepKnob = e.cursor
	}
	return out
}

// Bypass keeps the reported channel count steady without processing.
func (e *Engine) Bypass() Outputs {
	out := e.out
	out.Channels = e.active
	out.Length = e.window.Length
	out.StepKnob = e.cursor
	return out
}

func (e *Engine) processRecordButton(v float64) {
	if e.recordBtn.Process(v) != edge.Rising {
		return
	}
	e.recording = !e.recording
	if e.recording {
		e.emit(EventRecording)
		return
	}
	// the step under the cursor is the one just recorded
	e.vault.Condense(e.cursor, e.settings.CVOrder)
	e.setCursor(e.window.Start)
	e.partialClock = e.absorbPartialClock()
	e.absorbing = false
	e.emit(EventPlaying)
}

func (e *Engine) processOffsetButton(v float64) {
	if e.offsetBtn.Process(v) != edge.Rising {
		return
	}
	e.settings.OffsetMode = !e.settings.OffsetMode
	if !e.settings.OffsetMode {
		e.window.Start = 0
	}
	e.emit(EventOffsetMode)
}

func (e *Engine) processModeButton(v float64) {
	switch e.mode.Process(v) {
	case edge.PressShort:
		e.setStrategy(e.strategy.Next())
	case edge.PressLong:
		e.setStrategy(e.strategy.Alternate())
	}
}

func (e *Engine) processLength(in Inputs) {
	if in.LengthCVConnected && !e.recording {
		n := vault.Wrap(int(in.LengthCV / 5.01 * vault.Size))
		e.window.Length = n + 1
		return
	}
	e.window.Length = min(max(int(in.LengthKnob), 1), vault.Size)
}

func (e *Engine) processStepSelect(in Inputs) {
	k := int(in.StepKnob)
	defer func() { e.lastKnob = k }()

	if e.settings.OffsetMode && !e.recording {
		e.window.Start = advance.WindowStart(in.StepKnob, e.offsetIncludesCV(), e.strategy, e.params(in), &e.state, e.rng)
		return
	}
	// A knob that only follows the cursor is not a user gesture.
	if k == e.lastKnob || vault.Wrap(k) == e.cursor {
		return
	}
	e.setCursor(k)
	e.previewTimer = e.sampleRate / 4
	e.partialClock = false
	e.absorbing = false
}

func (e *Engine) offsetIncludesCV() bool {
	switch e.offsetCV {
	case OffsetCVAlways:
		return true
	case OffsetCVNever:
		return false
	default:
		return !e.strategy.CVAddressed()
	}
}

func (e *Engine) processReset(in Inputs) {
	reset := e.resetBtn.Process(in.ResetButton) == edge.Rising
	if e.resetTrig.Process(in.Reset) == edge.Rising && !e.lockout.Active() {
		reset = true
	}
	e.lockout.Elapse(e.sampleTime)
	if !reset {
		return
	}
	e.setCursor(e.window.Start)
	e.partialClock = e.absorbPartialClock()
	e.absorbing = false
	e.previewTimer = 0
	e.emit(EventReset)
}

func (e *Engine) processClock(in Inputs) {
	switch e.clock.Process(in.Clock) {
	case edge.Falling:
		// the absorbed pulse has ended; the next rising edge plays
		if e.absorbing {
			e.absorbing = false
			e.partialClock = false
		}
		return
	case edge.None:
		return
	}
	e.lockout.Arm(ResetLockout)
	if e.recording {
		return
	}
	p := e.params(in)
	if e.partialClock {
		e.absorbing = true
		e.setCursor(advance.Start(e.strategy, e.cursor, p, &e.state, e.rng))
		return
	}
	e.setCursor(advance.Advance(e.strategy, e.cursor, p, &e.state, e.rng))
	e.previewTimer = 0
}

func (e *Engine) processGates(in Inputs) {
	var level float64
	for ci := 0; ci < e.settings.Channels; ci++ {
		level = max(level, in.Gates[ci])
	}
	switch e.gate.Process(level) {
	case edge.Rising:
		if e.recording {
			e.vault.ClearChannels(e.cursor)
		}
	case edge.Falling:
		if e.recording {
			e.vault.Condense(e.cursor, e.settings.CVOrder)
			e.emit(EventStepRecorded)
			e.setCursor(e.cursor + 1)
			e.previewTimer = 0
		}
	}
}

func (e *Engine) compose(in Inputs, gateOpen, preview bool) {
	n := e.settings.Channels
	if e.recording {
		for ci := 0; ci < n; ci++ {
			if in.Gates[ci] >= edge.TriggerHigh {
				e.vault.Write(e.cursor, ci, in.Pitches[ci])
			}
		}
	}

	step := e.vault.Step(e.cursor)
	for ci := 0; ci < n; ci++ {
		switch {
		case e.recording && e.gate.High():
			e.out.Pitches[ci] = in.Pitches[ci]
			e.out.Gates[ci] = in.Gates[ci]
		case e.recording && !preview, !e.recording && e.partialClock:
			e.out.Gates[ci] = 0
		default:
			e.out.Gates[ci] = 0
			if step.Active[ci] {
				if gateOpen {
					e.out.Gates[ci] = GateHigh
				}
				e.out.Pitches[ci] = step.Pitch[ci]
			}
		}
	}
	for ci := n; ci < vault.Channels; ci++ {
		e.out.Gates[ci] = 0
	}
}

func (e *Engine) updateActiveChannels() {
	if e.settings.DynamicChannels && !e.recording {
		e.active = e.vault.Step(e.cursor).ActiveCount(e.settings.Channels)
		return
	}
	e.active = e.settings.Channels
}

func (e *Engine) absorbPartialClock() bool {
	return e.alwaysAbsorb || e.settings.SkipPartialClock
}

func (e *Engine) params(in Inputs) advance.Params {
	p := advance.Params{
		Window:      e.window,
		CVConnected: in.StepCVConnected,
		Range:       e.settings.CVRange,
	}
	if in.StepCVConnected {
		p.CV = in.StepCV
	}
	return p
}

func (e *Engine) setCursor(pos int) {
	e.cursor = vault.Wrap(pos)
}

func (e *Engine) setStrategy(s advance.Strategy) {
	if !s.Valid() || s == e.strategy {
		return
	}
	e.strategy = s
	e.emit(EventStrategy)
}

func (e *Engine) emit(kind EventKind) {
	e.log.Debug("vault "+kind.String(),
		slog.Int("step", e.cursor),
		slog.String("strategy", e.strategy.String()),
		slog.Bool("offset", e.settings.OffsetMode))
	if e.onEvent != nil {
		e.onEvent(Event{Kind: kind, Step: e.cursor, Strategy: e.strategy})
	}
}
