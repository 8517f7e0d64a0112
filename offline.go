package chordvault

import (
	"io"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
	"github.com/pkg/errors"
)

// RenderSamples runs the rig for seconds and returns the monitor's
// interleaved stereo output.
func RenderSamples(r *Rig, seconds float64) []float32 {
	frames := int(float64(r.SampleRate()) * seconds)
	if frames <= 0 {
		return nil
	}
	out := make([]float32, frames*2)
	r.Process(out)
	return out
}

// rigStreamer pulls rig audio through beep in fixed blocks.
type rigStreamer struct {
	rig    *Rig
	remain int
	buf    []float32
}

func (s *rigStreamer) Stream(samples [][2]float64) (int, bool) {
	if s.remain <= 0 {
		return 0, false
	}
	n := min(len(samples), s.remain)
	if cap(s.buf) < 2*n {
		s.buf = make([]float32, 2*n)
	}
	buf := s.buf[:2*n]
	s.rig.Process(buf)
	for i := 0; i < n; i++ {
		samples[i][0] = float64(buf[2*i])
		samples[i][1] = float64(buf[2*i+1])
	}
	s.remain -= n
	return n, true
}

func (s *rigStreamer) Err() error { return nil }

// RenderWAV runs the rig for seconds and encodes the result as 16-bit
// stereo WAV.
func RenderWAV(w io.WriteSeeker, r *Rig, seconds float64) error {
	frames := int(float64(r.SampleRate()) * seconds)
	if frames <= 0 {
		return errors.Errorf("nothing to render in %.3fs", seconds)
	}
	format := beep.Format{
		SampleRate:  beep.SampleRate(r.SampleRate()),
		NumChannels: 2,
		Precision:   2,
	}
	if err := wav.Encode(w, &rigStreamer{rig: r, remain: frames}, format); err != nil {
		return errors.Wrap(err, "encode wav")
	}
	return nil
}
