package lfo

import "math/rand/v2"

// Shape of the modulation cycle.
type Shape int

const (
	// Ramp rises from 0 to 1 across the cycle, sweeping a CV-addressed
	// sequence forward one window per cycle.
	Ramp Shape = iota
	Square
	Triangle
	// Random holds a new uniform value for each cycle.
	Random
	NumShapes
)

var shapeNames = [NumShapes]string{"ramp", "square", "triangle", "random"}

func (s Shape) String() string {
	if s < 0 || s >= NumShapes {
		return "triangle"
	}
	return shapeNames[s]
}

// ParseShape maps a name back to a Shape; unknown names give Triangle.
func ParseShape(name string) (Shape, bool) {
	for i, n := range shapeNames {
		if n == name {
			return Shape(i), true
		}
	}
	return Triangle, false
}

// Rand is the source for the Random shape.
type Rand interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// LFO is a unipolar low-frequency voltage source. Its output sweeps
// offset..offset+depth volts.
type LFO struct {
	offset  float64 // volts at the bottom of the cycle
	depth   float64 // volts of swing above offset
	rateHz  float64
	shape   Shape
	phase   float64 // [0, 1)
	held    float64 // sample-and-hold value for Random
	rng     Rand
	started bool
}

func New(rng Rand) *LFO {
	if rng == nil {
		rng = globalRand{}
	}
	return &LFO{rng: rng, shape: Triangle}
}

// Set configures the LFO. An out-of-range shape falls back to Triangle.
func (l *LFO) Set(offset, depth, rateHz float64, shape Shape) {
	l.offset = offset
	l.depth = depth
	l.rateHz = rateHz
	if shape < 0 || shape >= NumShapes {
		shape = Triangle
	}
	l.shape = shape
}

// Settings returns the values last passed to Set.
func (l *LFO) Settings() (offset, depth, rateHz float64, shape Shape) {
	return l.offset, l.depth, l.rateHz, l.shape
}

// Sample returns the voltage for this sample and advances the phase.
// An inactive LFO holds its offset.
func (l *LFO) Sample(sampleRate float64) float64 {
	if !l.Active() || sampleRate == 0 {
		return l.offset
	}
	if l.rng == nil {
		l.rng = globalRand{}
	}
	if !l.started {
		l.started = true
		l.held = l.rng.Float64()
	}

	var v float64
	switch l.shape {
	case Ramp:
		v = l.phase
	case Square:
		if l.phase < 0.5 {
			v = 1
		}
	case Random:
		v = l.held
	default:
		if l.phase < 0.5 {
			v = 2 * l.phase
		} else {
			v = 2 - 2*l.phase
		}
	}

	old := l.phase
	l.phase += l.rateHz / sampleRate
	for l.phase >= 1 {
		l.phase--
	}
	if l.shape == Random && l.phase < old {
		l.held = l.rng.Float64()
	}
	return l.offset + v*l.depth
}

// Active reports whether the LFO moves at all.
func (l *LFO) Active() bool {
	return l.depth != 0 && l.rateHz != 0
}

func (l *LFO) Reset() {
	l.phase = 0
	l.started = false
}
