package monitor

import (
	"math"
	"sync/atomic"

	"github.com/viterin/vek/vek32"
)

const twoPi = math.Pi * 2

// Channels is the number of gate/pitch pairs the monitor follows.
const Channels = 8

// GateThreshold is the gate voltage a voice opens at.
const GateThreshold = 1.0

// C4 is the frequency of 0V on a volt-per-octave input.
const C4 = 261.6256

type Wave int

const (
	WavePulse Wave = iota
	WaveTriangle
	WaveSaw
	NumWaves
)

var waveNames = [NumWaves]string{"pulse", "triangle", "saw"}

func (w Wave) String() string {
	if w < 0 || w >= NumWaves {
		return "pulse"
	}
	return waveNames[w]
}

func ParseWave(name string) (Wave, bool) {
	for i, n := range waveNames {
		if n == name {
			return Wave(i), true
		}
	}
	return WavePulse, false
}

type Params struct {
	Wave       Wave
	MasterGain float64
	AttackSec  float64
	DecaySec   float64
	SustainLvl float64
	ReleaseSec float64
	PulseDuty  float64
	LPFCutoff  float64 // Hz, 0 disables the filter

	// Echo repeats the mix after EchoSec; zero time or mix disables it.
	EchoSec      float64
	EchoFeedback float64
	EchoMix      float64
	// Room adds a short reverb; zero size or mix disables it.
	RoomSize float64
	RoomMix  float64
}

func DefaultParams() Params {
	return Params{
		Wave:       WavePulse,
		MasterGain: 0.18,
		AttackSec:  0.004,
		DecaySec:   0.12,
		SustainLvl: 0.6,
		ReleaseSec: 0.18,
		PulseDuty:  0.25,
		LPFCutoff:  9000,
	}
}

type envState int

const (
	envAttack envState = iota
	envDecay
	envSustain
	envRelease
	envOff
)

type voice struct {
	gate     bool
	freq     float64
	phase    float64
	env      float64
	envState envState
	pan      float64 // -1..1
}

// Monitor is a small polyphonic synth with one voice per vault channel.
// Each voice opens on its gate and tracks its pitch continuously.
//
// Rendering is block based: Begin sizes the block, Frame renders one
// sample for every voice, Mix sums the voices into interleaved stereo.
type Monitor struct {
	sampleRate float64
	params     Params
	voices     [Channels]voice
	bufs       [Channels][]float32
	left       []float32
	right      []float32
	tmp        []float32
	masterGain uint64
	lpfAlpha   float64
	lpfL       float64
	lpfR       float64
	dcInL      float64
	dcOutL     float64
	dcInR      float64
	dcOutR     float64
	echo       *echo
	room       *room
}

func New(sampleRate int, params Params) *Monitor {
	if !(params.Wave >= 0 && params.Wave < NumWaves) {
		params.Wave = WavePulse
	}
	if params.PulseDuty <= 0 || params.PulseDuty >= 1 {
		params.PulseDuty = 0.5
	}
	m := &Monitor{
		sampleRate: float64(sampleRate),
		params:     params,
		masterGain: math.Float64bits(params.MasterGain),
		echo:       newEcho(float64(sampleRate), params.EchoSec, params.EchoFeedback, params.EchoMix),
		room:       newRoom(float64(sampleRate), params.RoomSize, params.RoomMix),
	}
	for i := range m.voices {
		m.voices[i].envState = envOff
		// spread channels across the stereo field
		m.voices[i].pan = float64(i)/float64(Channels-1)*1.2 - 0.6
	}
	if params.LPFCutoff > 0 && params.LPFCutoff < float64(sampleRate)/2 {
		rc := 1.0 / (twoPi * params.LPFCutoff)
		dt := 1.0 / float64(sampleRate)
		m.lpfAlpha = dt / (rc + dt)
	}
	return m
}

// Begin prepares buffers for a block of frames.
func (m *Monitor) Begin(frames int) {
	for i := range m.bufs {
		m.bufs[i] = vek32.Zeros_Into(m.bufs[i], frames)
	}
	m.left = vek32.Zeros_Into(m.left, frames)
	m.right = vek32.Zeros_Into(m.right, frames)
	m.tmp = vek32.Zeros_Into(m.tmp, frames)
}

// Frame updates every voice from one tick of gate/pitch outputs and renders
// it into slot i of the block. Voices at or above channels are closed.
func (m *Monitor) Frame(i int, gates, pitches *[Channels]float64, channels int) {
	for ci := range m.voices {
		v := &m.voices[ci]
		m.follow(v, ci < channels && gates[ci] >= GateThreshold, pitches[ci])
		if v.envState == envOff {
			continue
		}
		env := m.advanceEnv(v)
		m.bufs[ci][i] = float32(m.renderWave(v) * env)
	}
}

// Mix sums the rendered voices into dst as interleaved stereo. dst must
// hold two samples per frame of the block.
func (m *Monitor) Mix(dst []float32) {
	frames := len(m.left)
	if frames == 0 {
		return
	}
	gain := m.masterGainValue()
	for ci := range m.bufs {
		if !m.sounding(ci) && vek32.Max(absInto(m.tmp, m.bufs[ci])) == 0 {
			continue
		}
		angle := (m.voices[ci].pan + 1) / 2 * (math.Pi / 2)
		vek32.MulNumber_Into(m.tmp, m.bufs[ci], float32(math.Cos(angle)*gain))
		vek32.Add_Inplace(m.left, m.tmp)
		vek32.MulNumber_Into(m.tmp, m.bufs[ci], float32(math.Sin(angle)*gain))
		vek32.Add_Inplace(m.right, m.tmp)
	}
	for i := 0; i < frames && 2*i+1 < len(dst); i++ {
		l, r := m.filter(float64(m.left[i]), float64(m.right[i]))
		if m.echo != nil {
			l, r = m.echo.process(l, r)
		}
		if m.room != nil {
			l, r = m.room.process(l, r)
		}
		dst[2*i] = float32(clamp(l, -1, 1))
		dst[2*i+1] = float32(clamp(r, -1, 1))
	}
}

// ActiveVoiceCount is the number of voices still producing sound.
func (m *Monitor) ActiveVoiceCount() int {
	n := 0
	for ci := range m.voices {
		if m.sounding(ci) {
			n++
		}
	}
	return n
}

func (m *Monitor) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	atomic.StoreUint64(&m.masterGain, math.Float64bits(gain))
}

func (m *Monitor) masterGainValue() float64 {
	return math.Float64frombits(atomic.LoadUint64(&m.masterGain))
}

func (m *Monitor) sounding(ci int) bool {
	return m.voices[ci].envState != envOff
}

func (m *Monitor) follow(v *voice, gate bool, pitch float64) {
	v.freq = C4 * math.Pow(2, pitch)
	switch {
	case gate && !v.gate:
		v.envState = envAttack
	case !gate && v.gate:
		v.envState = envRelease
	}
	v.gate = gate
}

func (m *Monitor) advanceEnv(v *voice) float64 {
	p := m.params
	switch v.envState {
	case envAttack:
		step := 1.0
		if p.AttackSec > 0 {
			step = 1.0 / (p.AttackSec * m.sampleRate)
		}
		v.env += step
		if v.env >= 1 {
			v.env = 1
			v.envState = envDecay
		}
	case envDecay:
		step := 1.0
		if p.DecaySec > 0 {
			step = (1 - p.SustainLvl) / (p.DecaySec * m.sampleRate)
		}
		v.env -= step
		if v.env <= p.SustainLvl {
			v.env = p.SustainLvl
			v.envState = envSustain
		}
	case envSustain:
	case envRelease:
		step := 1.0
		if p.ReleaseSec > 0 {
			step = math.Max(p.SustainLvl, 0.01) / (p.ReleaseSec * m.sampleRate)
		}
		v.env -= step
		if v.env <= 0.0001 {
			v.env = 0
			v.envState = envOff
		}
	case envOff:
		v.env = 0
	}
	return v.env
}

// polyBLEP smooths a waveform discontinuity at phase t for increment dt.
func polyBLEP(t, dt float64) float64 {
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

func (m *Monitor) renderWave(v *voice) float64 {
	dt := v.freq / m.sampleRate
	v.phase += dt
	if v.phase >= 1 {
		v.phase -= 1
	}
	switch m.params.Wave {
	case WaveTriangle:
		return 2*math.Abs(2*v.phase-1) - 1
	case WaveSaw:
		return 2*v.phase - 1 - polyBLEP(v.phase, dt)
	default:
		duty := m.params.PulseDuty
		out := -1.0
		if v.phase < duty {
			out = 1
		}
		out += polyBLEP(v.phase, dt)
		out -= polyBLEP(math.Mod(v.phase-duty+1, 1), dt)
		return out
	}
}

func (m *Monitor) filter(l, r float64) (float64, float64) {
	const k = 0.995
	yl := l - m.dcInL + k*m.dcOutL
	m.dcInL, m.dcOutL = l, yl
	yr := r - m.dcInR + k*m.dcOutR
	m.dcInR, m.dcOutR = r, yr
	if m.lpfAlpha > 0 {
		m.lpfL += m.lpfAlpha * (yl - m.lpfL)
		m.lpfR += m.lpfAlpha * (yr - m.lpfR)
		return m.lpfL, m.lpfR
	}
	return yl, yr
}

func absInto(dst, src []float32) []float32 {
	copy(dst, src)
	vek32.Abs_Inplace(dst)
	return dst
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
