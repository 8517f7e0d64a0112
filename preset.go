package chordvault

import (
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/aetrion/chordvault-go/internal/config"
	"github.com/aetrion/chordvault-go/internal/engine"
	"github.com/aetrion/chordvault-go/internal/lfo"
)

//go:embed preset.cue
var presetSchema string

type LFOPreset struct {
	Offset float64 `yaml:"offset" json:"offset"`
	Depth  float64 `yaml:"depth" json:"depth"`
	Rate   float64 `yaml:"rate" json:"rate"`
	Shape  string  `yaml:"shape" json:"shape"`
}

// Preset is a saved rig: the engine's persisted state plus the panel
// around it.
type Preset struct {
	Engine     engine.Snapshot `yaml:"engine" json:"engine"`
	StepKnob   float64         `yaml:"step" json:"step"`
	LengthKnob float64         `yaml:"length" json:"length"`
	BPM        float64         `yaml:"bpm" json:"bpm"`
	GateLength float64         `yaml:"gate_length" json:"gate_length"`
	LFO        *LFOPreset      `yaml:"lfo,omitempty" json:"lfo,omitempty"`
}

// Preset captures the rig. The LFO is included only while it is running.
func (r *Rig) Preset() Preset {
	p := Preset{
		Engine:     r.engine.Snapshot(),
		StepKnob:   r.stepKnob,
		LengthKnob: r.lengthKnob,
		BPM:        r.bpm,
		GateLength: r.gateLength,
	}
	if r.stepLFO.Active() {
		offset, depth, rate, shape := r.stepLFO.Settings()
		p.LFO = &LFOPreset{Offset: offset, Depth: depth, Rate: rate, Shape: shape.String()}
	}
	return p
}

// ApplyPreset restores the engine and the panel. Zero panel values fall
// back to defaults.
func (r *Rig) ApplyPreset(p Preset) {
	r.engine.Restore(p.Engine)
	r.stepKnob = p.StepKnob
	if p.LengthKnob == 0 {
		p.LengthKnob = engine.DefaultLength
	}
	r.SetLengthKnob(p.LengthKnob)
	r.SetBPM(p.BPM)
	r.SetGateLength(p.GateLength)
	if p.LFO != nil {
		shape, _ := lfo.ParseShape(p.LFO.Shape)
		r.SetStepLFO(p.LFO.Offset, p.LFO.Depth, p.LFO.Rate, shape)
	}
}

func isCUE(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".cue")
}

// LoadPreset reads a preset file. Files ending in .cue are checked against
// the preset schema; anything else is read as YAML.
func LoadPreset(path string) (Preset, error) {
	var p Preset
	content, err := os.ReadFile(path)
	if err != nil {
		return p, errors.Wrap(err, "read preset")
	}
	if isCUE(path) {
		err = config.DecodeCUE(content, path, presetSchema, &p)
	} else {
		err = yaml.Unmarshal(content, &p)
	}
	if err != nil {
		return Preset{}, errors.Wrapf(err, "load preset %s", path)
	}
	return p, nil
}

// SavePreset writes p as YAML, or as JSON (which is valid CUE) when path
// ends in .cue.
func SavePreset(path string, p Preset) error {
	var (
		data []byte
		err  error
	)
	if isCUE(path) {
		data, err = json.MarshalIndent(p, "", "\t")
	} else {
		data, err = yaml.Marshal(p)
	}
	if err != nil {
		return errors.Wrap(err, "encode preset")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "write preset")
	}
	return nil
}
