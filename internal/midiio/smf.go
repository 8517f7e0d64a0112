package midiio

import (
	"io"
	"sort"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// DefaultPPQ is the SMF resolution used when none is given.
const DefaultPPQ = 960

// ErrNoNotes is returned when an SMF holds no playable notes.
var ErrNoNotes = errors.New("no notes in midi file")

// WriteSMF writes events as a single-track SMF with a tempo meta event.
// Frames are converted to ticks with sampleRate and bpm.
func WriteSMF(w io.Writer, events []Event, sampleRate int, bpm float64, ppq uint16) error {
	if sampleRate <= 0 || bpm <= 0 {
		return errors.Errorf("invalid timing: %d Hz at %.2f bpm", sampleRate, bpm)
	}
	if ppq == 0 {
		ppq = DefaultPPQ
	}
	ticksPerFrame := float64(ppq) * bpm / 60 / float64(sampleRate)

	sorted := append([]Event(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Frame < sorted[j].Frame })

	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName("chordvault"))
	tr.Add(0, smf.MetaTempo(bpm))
	var last uint32
	for _, ev := range sorted {
		tick := uint32(float64(ev.Frame) * ticksPerFrame)
		tr.Add(tick-last, ev.Message)
		last = tick
	}
	tr.Close(0)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(ppq)
	if err := s.Add(tr); err != nil {
		return errors.Wrap(err, "add track")
	}
	if _, err := s.WriteTo(w); err != nil {
		return errors.Wrap(err, "write smf")
	}
	return nil
}

// Chord is a group of overlapping notes: it begins when a note starts with
// nothing held and ends when every note is released.
type Chord struct {
	Keys   []uint8
	Start  float64 // seconds
	Length float64 // seconds
}

// Pitches returns the chord's keys as volt-per-octave values.
func (c Chord) Pitches() []float64 {
	out := make([]float64, len(c.Keys))
	for i, k := range c.Keys {
		out[i] = KeyToVolts(k)
	}
	return out
}

// ReadChords reads an SMF and groups its notes, across all tracks and
// channels, into chords in time order. The tempo of the file (the first
// tempo event, or 120 bpm) is returned with them.
func ReadChords(r io.Reader) ([]Chord, float64, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, 0, errors.Wrap(err, "read smf")
	}
	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, 0, errors.New("only metric time smf files are supported")
	}
	ppq := float64(uint16(mt))

	type note struct {
		tick  int64
		on    bool
		key   uint8
		order int
	}
	var notes []note
	bpm := 0.0
	for _, track := range s.Tracks {
		var abs int64
		for _, ev := range track {
			abs += int64(ev.Delta)
			msg := gomidi.Message(ev.Message)
			var ch, key, vel uint8
			var tempo float64
			switch {
			case bpm == 0 && ev.Message.GetMetaTempo(&tempo):
				bpm = tempo
			case msg.GetNoteStart(&ch, &key, &vel):
				notes = append(notes, note{tick: abs, on: true, key: key, order: len(notes)})
			case msg.GetNoteEnd(&ch, &key):
				notes = append(notes, note{tick: abs, key: key, order: len(notes)})
			}
		}
	}
	if bpm <= 0 {
		bpm = 120
	}
	if len(notes) == 0 {
		return nil, bpm, ErrNoNotes
	}
	// releases sort before starts on the same tick so back to back chords
	// stay separate
	sort.Slice(notes, func(i, j int) bool {
		if notes[i].tick != notes[j].tick {
			return notes[i].tick < notes[j].tick
		}
		if notes[i].on != notes[j].on {
			return !notes[i].on
		}
		return notes[i].order < notes[j].order
	})

	secs := func(tick int64) float64 { return float64(tick) / ppq * 60 / bpm }
	var chords []Chord
	held := map[uint8]int{}
	var cur *Chord
	for _, n := range notes {
		if n.on {
			if cur == nil {
				chords = append(chords, Chord{Start: secs(n.tick)})
				cur = &chords[len(chords)-1]
			}
			if held[n.key] == 0 {
				cur.Keys = append(cur.Keys, n.key)
			}
			held[n.key]++
			continue
		}
		if held[n.key] == 0 {
			continue
		}
		held[n.key]--
		if held[n.key] == 0 {
			delete(held, n.key)
		}
		if len(held) == 0 && cur != nil {
			cur.Length = secs(n.tick) - cur.Start
			cur = nil
		}
	}
	if cur != nil {
		cur.Length = secs(notes[len(notes)-1].tick) - cur.Start
	}
	return chords, bpm, nil
}
