package engine

import (
	"github.com/aetrion/chordvault-go/internal/advance"
	"github.com/aetrion/chordvault-go/internal/vault"
)

func (e *Engine) SampleRate() int { return e.sampleRate }

func (e *Engine) Cursor() int { return e.cursor }

func (e *Engine) Recording() bool { return e.recording }

func (e *Engine) Strategy() advance.Strategy { return e.strategy }

func (e *Engine) Window() advance.Window { return e.window }

func (e *Engine) Settings() Settings { return e.settings }

// Channels is the channel count reported on the last tick.
func (e *Engine) Channels() int { return e.active }

// Step returns a copy of one vault step.
func (e *Engine) Step(index int) vault.Step { return e.vault.Step(index) }

// Vault returns a copy of the whole vault.
func (e *Engine) Vault() vault.Vault { return e.vault }

// SetStrategy selects a strategy directly, as a menu would.
func (e *Engine) SetStrategy(s advance.Strategy) {
	e.setStrategy(s)
}

// SetRecording switches mode without the side effects of the record button.
func (e *Engine) SetRecording(on bool) {
	if e.recording == on {
		return
	}
	e.recording = on
	e.updateActiveChannels()
	if on {
		e.emit(EventRecording)
	} else {
		e.emit(EventPlaying)
	}
}

func (e *Engine) SetCVRange(r advance.CVRange) {
	if r.Valid() {
		e.settings.CVRange = r
	}
}

func (e *Engine) SetCVOrder(o vault.Order) {
	if o.Valid() {
		e.settings.CVOrder = o
	}
}

// SetChannels sets the configured polyphony, clamped to [MinChannels, MaxChannels].
func (e *Engine) SetChannels(n int) {
	e.settings.Channels = min(max(n, MinChannels), MaxChannels)
	e.updateActiveChannels()
}

func (e *Engine) SetDynamicChannels(on bool) {
	e.settings.DynamicChannels = on
	e.updateActiveChannels()
}

// SetOffsetMode behaves like the offset button: leaving the mode moves the
// window back to step 0.
func (e *Engine) SetOffsetMode(on bool) {
	if e.settings.OffsetMode == on {
		return
	}
	e.settings.OffsetMode = on
	if !on {
		e.window.Start = 0
	}
	e.emit(EventOffsetMode)
}

func (e *Engine) SetSkipPartialClock(on bool) {
	e.settings.SkipPartialClock = on
}

// ApplySettings sets every user option at once.
func (e *Engine) ApplySettings(s Settings) {
	e.SetCVRange(s.CVRange)
	e.SetCVOrder(s.CVOrder)
	e.SetChannels(s.Channels)
	e.SetDynamicChannels(s.DynamicChannels)
	e.SetOffsetMode(s.OffsetMode)
	e.SetSkipPartialClock(s.SkipPartialClock)
}

// Randomize fills every step with a random triad.
func (e *Engine) Randomize() {
	e.vault.Randomize(e.rng)
	e.updateActiveChannels()
	e.log.Debug("vault randomized")
}

// Transpose shifts every recorded note by semitones.
func (e *Engine) Transpose(semitones int) {
	e.vault.Transpose(semitones)
	e.log.Debug("vault transposed", "semitones", semitones)
}

// ClearVault empties every step without touching settings.
func (e *Engine) ClearVault() {
	e.vault.Clear()
	e.updateActiveChannels()
}
