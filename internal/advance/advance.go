package advance

import (
	"math"

	"github.com/aetrion/chordvault-go/internal/vault"
)

// DefaultSkipVoltage is the skip-chance voltage assumed when the step CV
// input is disconnected: 2V of 10V, a 20% chance.
const DefaultSkipVoltage = 2.0

// Rand is a uniform source over [0, 1).
type Rand interface {
	Float64() float64
}

// State is the auxiliary cursor state some strategies carry between clocks.
type State struct {
	// Ascending is the ping-pong direction.
	Ascending bool
	// Shuffle holds the current permutation of window offsets.
	Shuffle [vault.Size]int
	// ShuffleIndex is the slot of Shuffle that was played last.
	ShuffleIndex int

	glideNote int
	glideDraw float64
}

func NewState() State {
	var st State
	st.Reset()
	return st
}

// Reset restores the identity permutation and clears direction and memo.
func (st *State) Reset() {
	*st = State{}
	for i := range st.Shuffle {
		st.Shuffle[i] = i
	}
}

// Params carries everything outside the cursor that a strategy may read.
type Params struct {
	Window      Window
	CV          float64
	CVConnected bool
	Range       CVRange
}

type advancer func(cursor int, p Params, st *State, rng Rand) int

var advancers = [NumStrategies]advancer{
	Forward:  forward,
	Backward: backward,
	Random:   random,
	CV:       cvAddressed(CV),
	Skip:     skip,
	PingPong: pingPong,
	Shuffle:  shuffle,
	Glide:    cvAddressed(Glide),
}

// Advance returns the cursor after one clock under strategy s.
// A cursor inside the window always stays inside it.
func Advance(s Strategy, cursor int, p Params, st *State, rng Rand) int {
	p.Window = p.Window.Clamp()
	if !s.Valid() {
		s = Forward
	}
	return advancers[s](cursor, p, st, rng)
}

// Start returns the cursor for the clock that opens playback. Directional
// strategies jump to their first step instead of moving one step; Shuffle
// always begins a fresh permutation.
func Start(s Strategy, cursor int, p Params, st *State, rng Rand) int {
	p.Window = p.Window.Clamp()
	switch s {
	case Backward:
		return p.Window.Last()
	case Random, CV, Glide:
		return Advance(s, cursor, p, st, rng)
	case Shuffle:
		st.ShuffleIndex = 0
		return shuffle(cursor, p, st, rng)
	default:
		return p.Window.Start
	}
}

func forward(cursor int, p Params, _ *State, _ Rand) int {
	w := p.Window
	off := w.Offset(cursor) + 1
	if off >= w.Length {
		off = 0
	}
	return w.At(off)
}

func backward(cursor int, p Params, _ *State, _ Rand) int {
	w := p.Window
	off := w.Offset(cursor)
	if off == 0 || off >= w.Length {
		return w.Last()
	}
	return w.At(off - 1)
}

func random(cursor int, p Params, _ *State, rng Rand) int {
	w := p.Window
	if w.Length == 1 {
		return w.Start
	}
	d := min(int(rng.Float64()*float64(w.Length-1)), w.Length-2)
	if d >= w.Offset(cursor) {
		d++
	}
	return w.At(d)
}

func cvAddressed(s Strategy) advancer {
	return func(_ int, p Params, st *State, rng Rand) int {
		return Position(s, p, st, rng)
	}
}

func skip(cursor int, p Params, _ *State, rng Rand) int {
	w := p.Window
	chance := DefaultSkipVoltage
	if p.CVConnected {
		chance = p.CV
	}
	step := 1
	if rng.Float64() < chance/10 {
		step = 2
	}
	off := w.Offset(cursor)
	if off >= w.Length {
		off = w.Length - 1
	}
	return w.At((off + step) % w.Length)
}

func pingPong(cursor int, p Params, st *State, _ Rand) int {
	w := p.Window
	if w.Length == 1 {
		return w.Start
	}
	off := min(w.Offset(cursor), w.Length-1)
	if st.Ascending {
		off++
		if off >= w.Length {
			off = w.Length - 2
			st.Ascending = false
		}
	} else {
		off--
		if off < 0 {
			off = 1
			st.Ascending = true
		}
	}
	return w.At(off)
}

func shuffle(_ int, p Params, st *State, rng Rand) int {
	w := p.Window
	if st.ShuffleIndex <= 0 || st.ShuffleIndex >= w.Length {
		st.ShuffleIndex = 0
		for i := range st.Shuffle {
			st.Shuffle[i] = i
		}
		for i := 0; i < w.Length; i++ {
			d := min(int(rng.Float64()*float64(i)), max(i-1, 0))
			st.Shuffle[i], st.Shuffle[d] = st.Shuffle[d], st.Shuffle[i]
		}
	}
	st.ShuffleIndex++
	if st.ShuffleIndex >= w.Length {
		st.ShuffleIndex = 0
	}
	return w.At(wrapTo(st.Shuffle[st.ShuffleIndex], w.Length))
}

// Position maps the step CV onto a step inside the window.
func Position(s Strategy, p Params, st *State, rng Rand) int {
	w := p.Window.Clamp()
	n := int(Steps(s, p, w.Length, st, rng))
	return w.At(wrapTo(n, w.Length))
}

// WindowStart computes the window start in offset mode: the knob position,
// optionally shifted by the step CV read over the whole vault.
func WindowStart(knob float64, includeCV bool, s Strategy, p Params, st *State, rng Rand) int {
	pos := float64(int(knob))
	if includeCV {
		pos += Steps(s, p, vault.Size, st, rng)
	}
	return vault.Wrap(int(pos))
}

// Steps converts the step CV into a (possibly fractional) step count out
// of steps according to p.Range.
func Steps(s Strategy, p Params, steps int, st *State, rng Rand) float64 {
	switch p.Range {
	case ZeroTo10V:
		return p.CV / 10.01 * float64(steps)
	case WhiteKeys:
		return float64(whiteKeyStep(p.CV, steps, func(raw int) float64 {
			return st.blackKeyDraw(s, raw, rng)
		}))
	default:
		return p.CV / 5.01 * float64(steps)
	}
}

// whiteKeySteps maps chromatic semitones to diatonic steps. Black keys (-1)
// fall between two white keys and are resolved with a coin flip.
var whiteKeySteps = [12]int{0, -1, 1, -1, 2, 3, -1, 4, -1, 5, -1, 6}

func whiteKeyStep(v float64, steps int, draw func(raw int) float64) int {
	raw := int(math.Round(v * 12))
	note := wrapTo(raw, 12)
	octave := (raw - note) / 12
	step := whiteKeySteps[note]
	if step < 0 {
		step = whiteKeySteps[note-1]
		if draw(raw) >= 0.5 {
			step++
		}
	}
	return wrapTo(octave*7+step, steps)
}

// blackKeyDraw returns the coin flip for an ambiguous note. Glide samples
// the CV every tick, so it keeps one draw until the note changes; every
// other strategy reads the CV once per clock and draws afresh.
func (st *State) blackKeyDraw(s Strategy, raw int, rng Rand) float64 {
	if s != Glide {
		return rng.Float64()
	}
	if raw != st.glideNote {
		st.glideNote = raw
		st.glideDraw = rng.Float64()
	}
	return st.glideDraw
}
