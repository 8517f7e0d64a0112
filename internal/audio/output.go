package audio

import (
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/pkg/errors"
)

var contextMu sync.Mutex

// contextFor returns the process-wide ebiten audio context, creating it at
// sampleRate on first use. Only one rate can ever be served.
func contextFor(sampleRate int) (*ebitaudio.Context, error) {
	contextMu.Lock()
	defer contextMu.Unlock()
	ctx := ebitaudio.CurrentContext()
	if ctx == nil {
		ctx = ebitaudio.NewContext(sampleRate)
	}
	if got := ctx.SampleRate(); got != sampleRate {
		return nil, errors.Errorf("audio context already running at %d Hz (requested %d Hz)", got, sampleRate)
	}
	return ctx, nil
}

// Player plays one Stream on the shared context.
type Player struct {
	player *ebitaudio.Player
	stream *Stream
}

func NewPlayer(sampleRate int, source SampleSource) (*Player, error) {
	ctx, err := contextFor(sampleRate)
	if err != nil {
		return nil, err
	}
	stream := NewStream(source)
	pl, err := ctx.NewPlayerF32(stream)
	if err != nil {
		return nil, errors.Wrap(err, "create audio player")
	}
	return &Player{player: pl, stream: stream}, nil
}

func (p *Player) Play()           { p.player.Play() }
func (p *Player) Pause()          { p.player.Pause() }
func (p *Player) IsPlaying() bool { return p.player.IsPlaying() }

// SetVolume sets the output volume in [0, 1].
func (p *Player) SetVolume(v float64) { p.player.SetVolume(v) }

// Position is what the listener hears now.
func (p *Player) Position() time.Duration { return p.player.Position() }

// Rendered is the number of frames the source has produced.
func (p *Player) Rendered() int64 { return p.stream.Frames() }

func (p *Player) Stop() error {
	p.player.Pause()
	if err := p.player.Close(); err != nil {
		return errors.Wrap(err, "close audio player")
	}
	return p.stream.Close()
}
