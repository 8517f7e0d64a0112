package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"

	"github.com/alexflint/go-arg"
	"github.com/pkg/errors"

	"github.com/aetrion/chordvault-go"
	"github.com/aetrion/chordvault-go/internal/advance"
	"github.com/aetrion/chordvault-go/internal/config"
	"github.com/aetrion/chordvault-go/internal/engine"
	"github.com/aetrion/chordvault-go/internal/lfo"
	"github.com/aetrion/chordvault-go/internal/logs"
	"github.com/aetrion/chordvault-go/internal/midiio"
	"github.com/aetrion/chordvault-go/internal/monitor"
	"github.com/aetrion/chordvault-go/internal/report"
)

type renderCmd struct {
	Output  string  `arg:"positional,required" help:"WAV file to write"`
	Seconds float64 `arg:"-s,--seconds" help:"length of the render (default from config)"`
}

type midiCmd struct {
	Output  string  `arg:"positional,required" help:"MIDI file to write"`
	Seconds float64 `arg:"-s,--seconds" help:"length of the export (default from config)"`
	PPQ     uint16  `arg:"--ppq" default:"960" help:"ticks per quarter note"`
}

type playCmd struct {
	Seconds float64 `arg:"-s,--seconds" help:"stop after this many seconds, 0 plays until interrupted"`
	Volume  float64 `arg:"--volume" default:"1" help:"master volume scalar"`
}

type showCmd struct{}

type recordCmd struct {
	Input string `arg:"positional,required" help:"MIDI file whose chords are recorded into the vault"`
}

type transposeCmd struct {
	Semitones int `arg:"positional,required" help:"semitones to shift every recorded note"`
}

type randomizeCmd struct{}

type args struct {
	Render    *renderCmd    `arg:"subcommand:render" help:"render the preset to a WAV file"`
	MIDI      *midiCmd      `arg:"subcommand:midi" help:"export the preset's playback as a MIDI file"`
	Play      *playCmd      `arg:"subcommand:play" help:"play the preset through the monitor synth"`
	Show      *showCmd      `arg:"subcommand:show" help:"print the vault"`
	Record    *recordCmd    `arg:"subcommand:record" help:"record MIDI chords into the preset"`
	Transpose *transposeCmd `arg:"subcommand:transpose" help:"transpose the vault"`
	Randomize *randomizeCmd `arg:"subcommand:randomize" help:"fill the vault with random triads"`

	Config   string `arg:"-c,--config" help:"config file (YAML or CUE)"`
	Preset   string `arg:"-p,--preset" help:"preset file (YAML or CUE)"`
	Strategy string `arg:"--strategy" help:"play strategy, e.g. Forward or \"Ping Pong\""`
	Seed     uint64 `arg:"--seed" help:"seed for random strategies and chords, 0 for a random seed"`
	LogLevel string `arg:"--log-level" help:"debug, info, warn or error"`
}

func (args) Description() string {
	return "chordvault records chords into a 16 step vault and plays them back on a clock"
}

func main() {
	var a args
	p := arg.MustParse(&a)
	if p.Subcommand() == nil {
		p.Fail("missing subcommand")
	}

	cfg, err := config.Load(a.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	level := cfg.LogLevel
	if a.LogLevel != "" {
		level = a.LogLevel
	}
	if err := logs.SetLevel(level); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logs.New(os.Stderr, logs.Options{})

	if err := run(a, cfg, logger); err != nil {
		logger.Error("chordvault failed", "error", err)
		os.Exit(1)
	}
}

func run(a args, cfg config.Config, logger *slog.Logger) error {
	path := a.Preset
	if path == "" {
		path = cfg.Preset
	}
	preset, err := loadPreset(path)
	if err != nil {
		return err
	}

	rig := newRig(a, cfg, logger)
	if preset != nil {
		rig.ApplyPreset(*preset)
	}
	mutated := false
	if a.Strategy != "" {
		s, ok := advance.ParseStrategy(a.Strategy)
		if !ok {
			return errors.Errorf("unknown strategy %q", a.Strategy)
		}
		rig.Engine().SetStrategy(s)
		mutated = true
	}

	seconds := func(s float64) float64 {
		if s > 0 {
			return s
		}
		return cfg.Seconds
	}

	switch {
	case a.Render != nil:
		f, err := os.Create(a.Render.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		rig.StartPlayback()
		if err := chordvault.RenderWAV(f, rig, seconds(a.Render.Seconds)); err != nil {
			return err
		}
		logger.Info("rendered", "file", a.Render.Output)
		return f.Close()

	case a.MIDI != nil:
		f, err := os.Create(a.MIDI.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		rig.StartPlayback()
		if err := chordvault.ExportMIDI(f, rig, seconds(a.MIDI.Seconds), a.MIDI.PPQ); err != nil {
			return err
		}
		logger.Info("exported", "file", a.MIDI.Output)
		return f.Close()

	case a.Play != nil:
		return play(a, cfg, logger, rig.Preset())

	case a.Show != nil:
		return report.Write(os.Stdout, rig.Engine())

	case a.Record != nil:
		f, err := os.Open(a.Record.Input)
		if err != nil {
			return err
		}
		defer f.Close()
		n, err := chordvault.RecordMIDI(rig, f)
		if errors.Is(err, midiio.ErrNoNotes) {
			logger.Warn("no chords to record", "file", a.Record.Input)
			return nil
		}
		if err != nil {
			return err
		}
		logger.Info("recorded", "steps", n, "bpm", rig.BPM())
		mutated = true

	case a.Transpose != nil:
		rig.Engine().Transpose(a.Transpose.Semitones)
		mutated = true

	case a.Randomize != nil:
		rig.Engine().Randomize()
		mutated = true
	}

	if !mutated {
		return nil
	}
	if path == "" {
		return errors.New("a --preset path is needed to save changes")
	}
	if err := chordvault.SavePreset(path, rig.Preset()); err != nil {
		return err
	}
	logger.Info("saved preset", "file", path)
	return report.Write(os.Stdout, rig.Engine())
}

// loadPreset returns nil for an empty path or a file that does not exist yet.
func loadPreset(path string) (*chordvault.Preset, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	p, err := chordvault.LoadPreset(path)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func engineOptions(a args, logger *slog.Logger) engine.Options {
	opts := engine.Options{Logger: logger}
	if a.Seed != 0 {
		opts.Rand = rand.New(rand.NewPCG(a.Seed, a.Seed))
	}
	return opts
}

func monitorParams(cfg config.Config) monitor.Params {
	params := monitor.DefaultParams()
	if w, ok := monitor.ParseWave(cfg.Monitor.Wave); ok {
		params.Wave = w
	}
	if cfg.Monitor.Gain > 0 {
		params.MasterGain = cfg.Monitor.Gain
	}
	if cfg.Monitor.Echo > 0 {
		params.EchoSec = cfg.Monitor.Echo
		params.EchoFeedback = 0.35
		params.EchoMix = 0.3
	}
	if cfg.Monitor.Room > 0 {
		params.RoomSize = 0.5
		params.RoomMix = cfg.Monitor.Room
	}
	return params
}

func newRig(a args, cfg config.Config, logger *slog.Logger) *chordvault.Rig {
	rig := chordvault.NewRig(cfg.SampleRate, chordvault.RigOptions{
		BPM:        cfg.BPM,
		GateLength: cfg.GateLength,
		Engine:     engineOptions(a, logger),
		Monitor:    monitorParams(cfg),
	})
	if cfg.LFO.Depth != 0 && cfg.LFO.Rate != 0 {
		shape, _ := lfo.ParseShape(cfg.LFO.Shape)
		rig.SetStepLFO(cfg.LFO.Offset, cfg.LFO.Depth, cfg.LFO.Rate, shape)
	}
	return rig
}

func play(a args, cfg config.Config, logger *slog.Logger, preset chordvault.Preset) error {
	pl, err := chordvault.NewPlayer(cfg.SampleRate,
		chordvault.WithBPM(preset.BPM),
		chordvault.WithGateLength(preset.GateLength),
		chordvault.WithLogger(logger),
		chordvault.WithMonitor(monitorParams(cfg)),
		chordvault.WithEventHandler(func(ev engine.Event) {
			logger.Debug("engine event", "kind", ev.Kind.String(), "step", ev.Step)
		}),
	)
	if err != nil {
		return err
	}
	pl.SetMasterVolume(a.Play.Volume)
	pl.Do(func(r *chordvault.Rig) {
		r.ApplyPreset(preset)
		r.StartPlayback()
	})
	if err := pl.Play(nil, a.Play.Seconds); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		_ = pl.Stop()
	}()
	pl.Wait()
	return pl.Stop()
}
