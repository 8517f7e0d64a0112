package chordvault

import (
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	intaudio "github.com/aetrion/chordvault-go/internal/audio"
	"github.com/aetrion/chordvault-go/internal/engine"
	"github.com/aetrion/chordvault-go/internal/monitor"
)

type PlayerOption func(*playerConfig)

type playerConfig struct {
	bpm        float64
	gateLength float64
	logger     *slog.Logger
	monitor    monitor.Params
	sampleTap  func([]float32)
	onEvent    func(engine.Event)
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{
		bpm:        DefaultBPM,
		gateLength: DefaultGateLength,
		monitor:    monitor.DefaultParams(),
	}
}

func WithBPM(bpm float64) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.bpm = bpm
	}
}

func WithGateLength(f float64) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.gateLength = f
	}
}

func WithLogger(logger *slog.Logger) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.logger = logger
	}
}

func WithMonitor(params monitor.Params) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.monitor = params
	}
}

// WithSampleTap installs a callback invoked with each generated stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleTap = tap
	}
}

// WithEventHandler receives engine events. It runs on the audio thread.
func WithEventHandler(fn func(engine.Event)) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.onEvent = fn
	}
}

// Player runs a Rig live through the monitor synth. All rig access from
// other goroutines goes through the Player so it is serialized with the
// audio thread.
type Player struct {
	mu        sync.Mutex
	rig       *Rig
	audio     *intaudio.Player
	log       *slog.Logger
	baseGain  float64
	volume    float64
	sampleTap func([]float32)
	done      chan struct{}
}

// source is what the audio thread pulls from.
type source struct {
	p *Player
}

func (s source) Process(dst []float32) {
	s.p.mu.Lock()
	s.p.rig.Process(dst)
	finished := s.p.rig.Finished()
	tap := s.p.sampleTap
	s.p.mu.Unlock()
	if tap != nil {
		tap(dst)
	}
	if finished {
		s.p.signalDone()
	}
}

func (s source) Finished() bool {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	return s.p.rig.Finished()
}

func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	rig := NewRig(sampleRate, RigOptions{
		BPM:        cfg.bpm,
		GateLength: cfg.gateLength,
		Monitor:    cfg.monitor,
		Engine: engine.Options{
			Logger:  cfg.logger,
			OnEvent: cfg.onEvent,
		},
	})
	return &Player{
		rig:       rig,
		log:       cfg.logger,
		baseGain:  cfg.monitor.MasterGain,
		volume:    1,
		sampleTap: cfg.sampleTap,
	}, nil
}

// Play starts the audio stream for seconds, or until Stop when seconds is
// zero. A preset, if given, is applied first.
func (p *Player) Play(preset *Preset, seconds float64) error {
	p.mu.Lock()
	if p.done != nil {
		close(p.done)
	}
	p.done = make(chan struct{})
	if preset != nil {
		p.rig.ApplyPreset(*preset)
	}
	p.rig.SetDuration(seconds)
	rate, bpm := p.rig.SampleRate(), p.rig.BPM()
	p.mu.Unlock()

	backend, err := intaudio.NewPlayer(rate, source{p: p})
	if err != nil {
		return err
	}
	p.mu.Lock()
	previous := p.audio
	p.audio = backend
	p.mu.Unlock()
	// the audio thread takes p.mu, so never close a stream while holding it
	if previous != nil {
		_ = previous.Stop()
	}
	backend.Play()
	p.log.Info("playing", "bpm", bpm, "seconds", seconds)
	return nil
}

func (p *Player) signalDone() {
	p.mu.Lock()
	done := p.done
	p.done = nil
	p.mu.Unlock()
	if done != nil {
		close(done)
	}
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Pause()
	}
}

func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Play()
	}
}

func (p *Player) Stop() error {
	p.mu.Lock()
	a := p.audio
	p.audio = nil
	done := p.done
	p.done = nil
	p.mu.Unlock()
	if done != nil {
		close(done)
	}
	if a == nil {
		return nil
	}
	p.log.Debug("stopping", "rendered", a.Rendered())
	return a.Stop()
}

// Wait blocks until playback reaches its duration or is stopped. With no
// duration it blocks until Stop. Wait returns immediately if nothing is
// playing.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// SetMasterVolume sets runtime volume scalar. 1.0 is default.
func (p *Player) SetMasterVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
	p.rig.Monitor().SetMasterGain(p.baseGain * p.volume)
}

func (p *Player) MasterVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Press holds a panel button for the given number of ticks.
func (p *Player) Press(b Button, ticks int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rig.Press(b, ticks)
}

// Do runs fn with exclusive access to the rig.
func (p *Player) Do(fn func(*Rig)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p.rig)
}

// Snapshot captures the rig as a preset.
func (p *Player) Snapshot() Preset {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rig.Preset()
}

// PlaybackPosition returns the current output position of the audio driver
// in frames. Returns 0 if not playing.
func (p *Player) PlaybackPosition() int64 {
	p.mu.Lock()
	a := p.audio
	rate := p.rig.SampleRate()
	p.mu.Unlock()
	if a == nil {
		return 0
	}
	return int64(a.Position().Seconds() * float64(rate))
}
