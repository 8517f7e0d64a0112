package chordvault

import (
	"math"
	"testing"

	"github.com/aetrion/chordvault-go/internal/advance"
	"github.com/aetrion/chordvault-go/internal/engine"
	"github.com/aetrion/chordvault-go/internal/lfo"
	"github.com/aetrion/chordvault-go/internal/vault"
)

const testRate = 1000

func run(r *Rig, n int) engine.Outputs {
	var out engine.Outputs
	for i := 0; i < n; i++ {
		out = r.Next()
	}
	return out
}

func playChord(r *Rig, pitches ...float64) {
	var g, p [vault.Channels]float64
	for i, v := range pitches {
		g[i] = 10
		p[i] = v
	}
	r.Feed(&g, &p)
	run(r, 4)
	r.Release()
	run(r, 4)
}

func TestRigRecordsAndPlaysOnClock(t *testing.T) {
	r := NewRig(testRate, RigOptions{BPM: 60})
	r.SetLengthKnob(2)
	playChord(r, 0, 4.0/12, 7.0/12)
	playChord(r, 2.0/12, 5.0/12, 9.0/12)
	if got := r.Engine().Cursor(); got != 2 {
		t.Fatalf("cursor after two chords: got %d, want 2", got)
	}
	if got := r.StepKnob(); got != 2 {
		t.Fatalf("step knob should follow the cursor, got %v", got)
	}

	r.Press(ButtonRecord, 5)
	out := run(r, 5)
	if r.Engine().Recording() {
		t.Fatalf("record button should switch to playback")
	}
	if r.Engine().Cursor() != 0 || out.Gates[0] != engine.GateHigh || out.Pitches[2] != 7.0/12 {
		t.Fatalf("playback should start on step 0 with the gate open: cursor %d out %+v", r.Engine().Cursor(), out)
	}

	out = run(r, 1100-int(r.Frame()))
	if got := r.Engine().Cursor(); got != 1 {
		t.Fatalf("cursor after one beat: got %d, want 1", got)
	}
	if out.Gates[0] != engine.GateHigh || math.Abs(out.Pitches[1]-5.0/12) > 1e-12 {
		t.Fatalf("second step not playing: %+v", out)
	}

	run(r, 2100-int(r.Frame()))
	if got := r.Engine().Cursor(); got != 0 {
		t.Fatalf("cursor should wrap inside a two step window, got %d", got)
	}
}

func TestRigClockDuty(t *testing.T) {
	r := NewRig(testRate, RigOptions{BPM: 120, GateLength: 0.25})
	high := 0
	for i := 0; i < 500; i++ {
		if r.inputs().Clock > 0 {
			high++
		}
	}
	if high < 124 || high > 126 {
		t.Fatalf("clock high for %d of 500 ticks, want about 125", high)
	}

	r.SetClockRunning(false)
	if r.inputs().Clock != 0 {
		t.Fatalf("stopped clock should stay low")
	}
	r.SetClockRunning(true)
	if r.inputs().Clock == 0 {
		t.Fatalf("restarted clock should begin high")
	}
}

func TestRigDefaults(t *testing.T) {
	r := NewRig(testRate, RigOptions{BPM: -3, GateLength: 2})
	if r.BPM() != DefaultBPM || r.GateLength() != DefaultGateLength {
		t.Fatalf("got bpm %v gate %v", r.BPM(), r.GateLength())
	}
	if r.LengthKnob() != engine.DefaultLength {
		t.Fatalf("length knob: got %v", r.LengthKnob())
	}
	r.SetLengthKnob(40)
	if r.LengthKnob() != vault.Size {
		t.Fatalf("length knob should clamp, got %v", r.LengthKnob())
	}
}

func TestRigModeButton(t *testing.T) {
	r := NewRig(testRate, RigOptions{})
	r.Press(ButtonMode, 3)
	run(r, 4)
	if got := r.Engine().Strategy(); got != advance.Backward {
		t.Fatalf("short press: got %v, want Backward", got)
	}
	r.Press(ButtonMode, testRate+10)
	run(r, testRate+11)
	if got := r.Engine().Strategy(); got != advance.Backward.Alternate() {
		t.Fatalf("long press: got %v, want %v", got, advance.Backward.Alternate())
	}
}

func TestRigStepCVSources(t *testing.T) {
	r := NewRig(testRate, RigOptions{BPM: 60})
	r.SetLengthKnob(16)
	r.Engine().SetStrategy(advance.CV)
	r.Engine().SetRecording(false)
	r.SetStepCV(2.5)
	run(r, 1)
	if got := r.Engine().Cursor(); got != 7 {
		t.Fatalf("constant CV: got step %d, want 7", got)
	}

	r.SetStepLFO(4.9, 0.05, 0.5, lfo.Triangle)
	run(r, testRate+10-int(r.Frame()))
	if got := r.Engine().Cursor(); got != 15 {
		t.Fatalf("LFO CV: got step %d, want 15", got)
	}

	r.DisconnectStepCV()
	if r.inputs().StepCVConnected {
		t.Fatalf("step CV should be disconnected")
	}
}

func TestRigFinished(t *testing.T) {
	r := NewRig(testRate, RigOptions{})
	if r.Finished() {
		t.Fatalf("rig without duration should never finish")
	}
	r.SetDuration(0.01)
	run(r, 9)
	if r.Finished() {
		t.Fatalf("finished early")
	}
	run(r, 1)
	if !r.Finished() {
		t.Fatalf("should be finished after 10 ticks")
	}
}

func TestButtonNames(t *testing.T) {
	for b := ButtonRecord; b < numButtons; b++ {
		got, ok := ParseButton(b.String())
		if !ok || got != b {
			t.Fatalf("ParseButton(%q) = %v, %v", b.String(), got, ok)
		}
	}
	if _, ok := ParseButton("shift"); ok {
		t.Fatalf("unknown button parsed")
	}
}

func TestRigStartPlayback(t *testing.T) {
	r := NewRig(testRate, RigOptions{BPM: 60})
	playChord(r, 0)
	playChord(r, 1)
	r.SetLengthKnob(2)
	r.StartPlayback()
	if r.Engine().Recording() || r.Engine().Cursor() != 0 {
		t.Fatalf("recording %v cursor %d", r.Engine().Recording(), r.Engine().Cursor())
	}
	out := r.Next()
	if r.Engine().Cursor() != 1 || out.Gates[0] != engine.GateHigh || out.Pitches[0] != 1 {
		t.Fatalf("first clock should play step 1: cursor %d out %+v", r.Engine().Cursor(), out)
	}

	// already playing: only the clock restarts
	r.StartPlayback()
	r.Next()
	if r.Engine().Recording() || r.Engine().Cursor() != 0 {
		t.Fatalf("restart: recording %v cursor %d", r.Engine().Recording(), r.Engine().Cursor())
	}
}
