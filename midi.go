package chordvault

import (
	"io"

	"github.com/pkg/errors"

	"github.com/aetrion/chordvault-go/internal/midiio"
	"github.com/aetrion/chordvault-go/internal/vault"
)

// ExportMIDI runs the rig for seconds and writes its gate/pitch outputs as
// a standard MIDI file, one MIDI channel per output channel.
func ExportMIDI(w io.Writer, r *Rig, seconds float64, ppq uint16) error {
	frames := int64(float64(r.SampleRate()) * seconds)
	if frames <= 0 {
		return errors.Errorf("nothing to export in %.3fs", seconds)
	}
	tr := midiio.NewTracker()
	var evs []midiio.Event
	for i := int64(0); i < frames; i++ {
		out := r.Next()
		evs = tr.Step(evs, i, &out.Gates, &out.Pitches, out.Channels)
	}
	evs = tr.Flush(evs, frames)
	return midiio.WriteSMF(w, evs, r.SampleRate(), r.BPM(), ppq)
}

const (
	recordHoldTicks    = 8
	recordReleaseTicks = 8
)

// RecordMIDI plays the chords of a standard MIDI file into the rig's
// inputs with the engine recording, so that each chord lands in its own
// vault step starting at the cursor. Keys beyond the configured channel
// count are dropped, as are chords beyond the vault size. The rig takes
// the file's tempo. It returns the number of steps written.
func RecordMIDI(r *Rig, src io.Reader) (int, error) {
	chords, bpm, err := midiio.ReadChords(src)
	if err != nil {
		return 0, err
	}
	r.SetBPM(bpm)
	e := r.Engine()
	e.SetRecording(true)
	channels := e.Settings().Channels

	if len(chords) > vault.Size {
		chords = chords[:vault.Size]
	}
	for _, c := range chords {
		var gates, pitches [vault.Channels]float64
		for ci, p := range c.Pitches() {
			if ci >= channels {
				break
			}
			gates[ci] = 10
			pitches[ci] = p
		}
		r.Feed(&gates, &pitches)
		for i := 0; i < recordHoldTicks; i++ {
			r.Next()
		}
		r.Release()
		for i := 0; i < recordReleaseTicks; i++ {
			r.Next()
		}
	}
	return len(chords), nil
}
