package vault

import "sort"

const (
	// Size is the number of steps in a vault.
	Size = 16
	// Channels is the polyphonic capacity of a single step.
	Channels = 8
)

// Rand is the uniform source used for chord randomization.
type Rand interface {
	Float64() float64
}

// Order selects how a recorded step is normalized once its gates close.
type Order int

const (
	// Sorted drops inactive channels and sorts pitches lowest to highest.
	Sorted Order = iota
	// Condensed drops inactive channels but keeps the played order.
	Condensed
	// Pristine leaves the step exactly as it was recorded.
	Pristine
	NumOrders
)

var orderNames = [NumOrders]string{"Sorted", "Condensed", "Pristine"}

func (o Order) String() string {
	if o < 0 || o >= NumOrders {
		return "Sorted"
	}
	return orderNames[o]
}

// Valid reports whether o is one of the known orders.
func (o Order) Valid() bool { return o >= 0 && o < NumOrders }

// ParseOrder maps a name produced by String back to an Order.
func ParseOrder(name string) (Order, bool) {
	for i, n := range orderNames {
		if n == name {
			return Order(i), true
		}
	}
	return Sorted, false
}

// Step is one vault slot: parallel pitch/active pairs.
type Step struct {
	Pitch  [Channels]float64
	Active [Channels]bool
}

// ActiveCount counts the active channels among the first limit channels.
func (s Step) ActiveCount(limit int) int {
	limit = min(max(limit, 0), Channels)
	n := 0
	for ci := 0; ci < limit; ci++ {
		if s.Active[ci] {
			n++
		}
	}
	return n
}

// Vault is a fixed ring of steps. Every index is taken modulo Size.
type Vault struct {
	steps [Size]Step
}

// Wrap maps any integer onto [0, Size).
func Wrap(i int) int {
	i %= Size
	if i < 0 {
		i += Size
	}
	return i
}

// Step returns a copy of the step at index.
func (v *Vault) Step(index int) Step {
	return v.steps[Wrap(index)]
}

// SetStep replaces the step at index, zeroing pitches of inactive channels.
func (v *Vault) SetStep(index int, s Step) {
	for ci := range s.Active {
		if !s.Active[ci] {
			s.Pitch[ci] = 0
		}
	}
	v.steps[Wrap(index)] = s
}

// Write stores pitch on channel and marks it active.
func (v *Vault) Write(index, channel int, pitch float64) {
	if channel < 0 || channel >= Channels {
		return
	}
	st := &v.steps[Wrap(index)]
	st.Pitch[channel] = pitch
	st.Active[channel] = true
}

// ClearChannels deactivates every channel of the step at index.
func (v *Vault) ClearChannels(index int) {
	st := &v.steps[Wrap(index)]
	for ci := range st.Active {
		st.Active[ci] = false
		st.Pitch[ci] = 0
	}
}

// Condense packs the active pitches of a step into its lowest channels,
// sorting them first when order is Sorted. Pristine is a no-op.
func (v *Vault) Condense(index int, order Order) {
	if order == Pristine {
		return
	}
	st := &v.steps[Wrap(index)]
	var pitches [Channels]float64
	n := 0
	for ci := 0; ci < Channels; ci++ {
		if st.Active[ci] {
			pitches[n] = st.Pitch[ci]
			n++
		}
	}
	if order == Sorted {
		sort.Float64s(pitches[:n])
	}
	for ci := 0; ci < Channels; ci++ {
		if ci < n {
			st.Active[ci] = true
			st.Pitch[ci] = pitches[ci]
		} else {
			st.Active[ci] = false
			st.Pitch[ci] = 0
		}
	}
}

// Transpose shifts every active pitch in the vault by semitones/12 volts.
func (v *Vault) Transpose(semitones int) {
	voct := float64(semitones) / 12
	for si := range v.steps {
		st := &v.steps[si]
		for ci := range st.Active {
			if st.Active[ci] {
				st.Pitch[ci] += voct
			}
		}
	}
}

// RandomizeChord overwrites the first three channels of a step with a
// triad drawn uniformly from Chords. The remaining channels are untouched.
func (v *Vault) RandomizeChord(index int, rng Rand) {
	chord := Chords[min(int(rng.Float64()*float64(len(Chords))), len(Chords)-1)]
	st := &v.steps[Wrap(index)]
	for ci, p := range chord.Pitches {
		st.Pitch[ci] = p
		st.Active[ci] = true
	}
}

// Randomize gives every step a random triad.
func (v *Vault) Randomize(rng Rand) {
	for si := range v.steps {
		v.RandomizeChord(si, rng)
	}
}

// Clear deactivates and zeroes every channel of every step.
func (v *Vault) Clear() {
	v.steps = [Size]Step{}
}
