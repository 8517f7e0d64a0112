package monitor

// echo is a stereo feedback delay whose repeats ping-pong between sides.
type echo struct {
	l, r     []float64
	pos      int
	feedback float64
	mix      float64
}

func newEcho(sampleRate, seconds, feedback, mix float64) *echo {
	n := int(seconds * sampleRate)
	if n < 1 || mix <= 0 {
		return nil
	}
	return &echo{
		l:        make([]float64, n),
		r:        make([]float64, n),
		feedback: clamp(feedback, 0, 0.95),
		mix:      clamp(mix, 0, 1),
	}
}

func (e *echo) process(l, r float64) (float64, float64) {
	dl, dr := e.l[e.pos], e.r[e.pos]
	e.l[e.pos] = l + dr*e.feedback
	e.r[e.pos] = r + dl*e.feedback
	if e.pos++; e.pos == len(e.l) {
		e.pos = 0
	}
	return l + dl*e.mix, r + dr*e.mix
}

// room is a small Schroeder reverb: four parallel combs into two allpasses,
// fed from the mono sum.
type room struct {
	combs   [4]delayLine
	allpass [2]delayLine
	mix     float64
}

type delayLine struct {
	buf []float64
	pos int
	fb  float64
}

func (d *delayLine) comb(in float64) float64 {
	out := d.buf[d.pos]
	d.buf[d.pos] = in + out*d.fb
	if d.pos++; d.pos == len(d.buf) {
		d.pos = 0
	}
	return out
}

func (d *delayLine) pass(in float64) float64 {
	held := d.buf[d.pos]
	d.buf[d.pos] = in + held*d.fb
	if d.pos++; d.pos == len(d.buf) {
		d.pos = 0
	}
	return held - in
}

var (
	combRatios    = [4]float64{1, 1.117, 1.271, 1.437}
	allpassRatios = [2]float64{0.347, 0.213}
)

func newRoom(sampleRate, size, mix float64) *room {
	if size <= 0 || mix <= 0 {
		return nil
	}
	base := max(sampleRate*clamp(size, 0, 1)*0.05, 10)
	fb := 0.7 + 0.25*clamp(size, 0, 1)
	rm := &room{mix: clamp(mix, 0, 1)}
	for i, ratio := range combRatios {
		rm.combs[i] = delayLine{buf: make([]float64, int(base*ratio)), fb: fb}
	}
	for i, ratio := range allpassRatios {
		rm.allpass[i] = delayLine{buf: make([]float64, max(int(base*ratio), 1)), fb: 0.5}
	}
	return rm
}

func (rm *room) process(l, r float64) (float64, float64) {
	mono := (l + r) / 2
	var wet float64
	for i := range rm.combs {
		wet += rm.combs[i].comb(mono)
	}
	wet /= float64(len(rm.combs))
	for i := range rm.allpass {
		wet = rm.allpass[i].pass(wet)
	}
	return l*(1-rm.mix) + wet*rm.mix, r*(1-rm.mix) + wet*rm.mix
}
