package chordvault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/faiface/beep/wav"
)

func playingRig(t *testing.T) *Rig {
	t.Helper()
	r := NewRig(testRate*8, RigOptions{BPM: 240})
	playChord(r, 0, 4.0/12, 7.0/12)
	playChord(r, 5.0/12, 9.0/12)
	r.SetLengthKnob(2)
	r.StartPlayback()
	return r
}

func TestRenderSamplesProducesAudio(t *testing.T) {
	r := playingRig(t)
	samples := RenderSamples(r, 0.5)
	if len(samples) != 2*4000 {
		t.Fatalf("got %d samples, want %d", len(samples), 2*4000)
	}
	peak := float32(0)
	for _, s := range samples {
		if s > 1 || s < -1 {
			t.Fatalf("sample out of range: %v", s)
		}
		peak = max(peak, s, -s)
	}
	if peak == 0 {
		t.Fatalf("rendered silence")
	}
	if RenderSamples(r, 0) != nil {
		t.Fatalf("zero duration should render nothing")
	}
}

func TestRenderSamplesDeterministic(t *testing.T) {
	a := RenderSamples(playingRig(t), 0.25)
	b := RenderSamples(playingRig(t), 0.25)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("renders differ at sample %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestRenderWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := RenderWAV(f, playingRig(t), 0.5); err != nil {
		t.Fatalf("RenderWAV: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	in, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()
	s, format, err := wav.Decode(in)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if int(format.SampleRate) != testRate*8 || format.NumChannels != 2 || format.Precision != 2 {
		t.Fatalf("format: %+v", format)
	}
	if s.Len() != 4000 {
		t.Fatalf("frames: got %d, want 4000", s.Len())
	}
}

func TestRenderWAVRejectsEmpty(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "empty.wav"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := RenderWAV(f, playingRig(t), 0); err == nil {
		t.Fatalf("expected an error")
	}
}
