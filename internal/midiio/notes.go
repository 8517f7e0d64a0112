package midiio

import (
	"math"
	"strconv"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// MiddleC is the MIDI key that 0V maps to.
const MiddleC = 60

// Channels is the number of gate/pitch pairs a Tracker follows.
const Channels = 8

// GateThreshold is the gate voltage treated as a held note.
const GateThreshold = 1.0

// VoltsToKey converts volt-per-octave pitch to the nearest MIDI key.
func VoltsToKey(v float64) uint8 {
	k := MiddleC + math.Round(v*12)
	return uint8(min(max(k, 0), 127))
}

// KeyToVolts converts a MIDI key to volt-per-octave pitch.
func KeyToVolts(key uint8) float64 {
	return float64(int(key)-MiddleC) / 12
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// KeyName renders a key in scientific pitch notation, e.g. 60 is "C4".
func KeyName(key uint8) string {
	return noteNames[key%12] + strconv.Itoa(int(key)/12-1)
}

// Event is a timed MIDI message. Frame counts samples from the start of
// the render.
type Event struct {
	Frame   int64
	Message gomidi.Message
}

// Tracker turns a per-sample stream of gate/pitch outputs into note on and
// note off messages, one MIDI channel per output channel. A pitch change
// under a held gate retriggers the note.
type Tracker struct {
	Velocity uint8
	open     [Channels]int
}

func NewTracker() *Tracker {
	t := &Tracker{Velocity: 100}
	for i := range t.open {
		t.open[i] = -1
	}
	return t
}

// Step compares one frame of outputs to the held notes and appends the
// resulting events to dst.
func (t *Tracker) Step(dst []Event, frame int64, gates, pitches *[Channels]float64, channels int) []Event {
	for ci := range t.open {
		on := ci < channels && gates[ci] >= GateThreshold
		key := int(VoltsToKey(pitches[ci]))
		held := t.open[ci]
		if held >= 0 && (!on || key != held) {
			dst = append(dst, Event{Frame: frame, Message: gomidi.NoteOff(uint8(ci), uint8(held))})
			t.open[ci] = -1
		}
		if on && t.open[ci] < 0 {
			dst = append(dst, Event{Frame: frame, Message: gomidi.NoteOn(uint8(ci), uint8(key), t.Velocity)})
			t.open[ci] = key
		}
	}
	return dst
}

// Flush releases every held note at frame.
func (t *Tracker) Flush(dst []Event, frame int64) []Event {
	for ci, held := range t.open {
		if held >= 0 {
			dst = append(dst, Event{Frame: frame, Message: gomidi.NoteOff(uint8(ci), uint8(held))})
			t.open[ci] = -1
		}
	}
	return dst
}
