package audio

import (
	"encoding/binary"
	"io"
	"math"
	"sync"
)

// SampleSource fills dst with interleaved stereo float32 frames.
type SampleSource interface {
	Process(dst []float32)
}

// FinishingSource is a SampleSource with a natural end, such as a rig
// rendering for a fixed duration.
type FinishingSource interface {
	SampleSource
	Finished() bool
}

// BlockFrames is how many frames a Stream pulls from its source at once.
const BlockFrames = 256

const bytesPerFrame = 8

// Stream turns a SampleSource into the little-endian float32 byte stream
// ebiten reads. The source always runs in whole blocks, however the driver
// slices its reads, so a rig ticks in the same steps live as offline.
type Stream struct {
	mu      sync.Mutex
	source  SampleSource
	samples []float32
	block   []byte
	pos     int
	frames  int64
	ended   bool
	closed  bool
}

func NewStream(source SampleSource) *Stream {
	return &Stream{
		source:  source,
		samples: make([]float32, BlockFrames*2),
		block:   make([]byte, 0, BlockFrames*bytesPerFrame),
	}
}

func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, io.EOF
	}
	n := 0
	for n < len(p) {
		if s.pos == len(s.block) {
			if s.ended {
				break
			}
			s.render()
		}
		c := copy(p[n:], s.block[s.pos:])
		s.pos += c
		n += c
	}
	if s.ended && s.pos == len(s.block) {
		return n, io.EOF
	}
	return n, nil
}

func (s *Stream) render() {
	s.source.Process(s.samples)
	s.block = s.block[:len(s.samples)*4]
	for i, v := range s.samples {
		binary.LittleEndian.PutUint32(s.block[i*4:], math.Float32bits(v))
	}
	s.pos = 0
	s.frames += BlockFrames
	if fs, ok := s.source.(FinishingSource); ok && fs.Finished() {
		s.ended = true
	}
}

// Frames is the number of frames pulled from the source so far. It runs
// ahead of what is audible by the driver's buffer.
func (s *Stream) Frames() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

func (s *Stream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
