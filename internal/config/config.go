package config

import (
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSrc string

type LFO struct {
	Rate   float64 `yaml:"rate" json:"rate"`
	Depth  float64 `yaml:"depth" json:"depth"`
	Offset float64 `yaml:"offset" json:"offset"`
	Shape  string  `yaml:"shape" json:"shape"`
}

type Monitor struct {
	Wave string  `yaml:"wave" json:"wave"`
	Gain float64 `yaml:"gain" json:"gain"`
	// Echo is the echo time in seconds, 0 for none.
	Echo float64 `yaml:"echo" json:"echo"`
	// Room is the reverb mix, 0 for none.
	Room float64 `yaml:"room" json:"room"`
}

// Config holds the command line defaults that are not part of a preset.
type Config struct {
	SampleRate int     `yaml:"sample_rate" json:"sample_rate"`
	BPM        float64 `yaml:"bpm" json:"bpm"`
	GateLength float64 `yaml:"gate_length" json:"gate_length"`
	Seconds    float64 `yaml:"seconds" json:"seconds"`
	Preset     string  `yaml:"preset" json:"preset"`
	LogLevel   string  `yaml:"log_level" json:"log_level"`
	LFO        LFO     `yaml:"lfo" json:"lfo"`
	Monitor    Monitor `yaml:"monitor" json:"monitor"`
}

func Default() Config {
	return Config{
		SampleRate: 48000,
		BPM:        120,
		GateLength: 0.5,
		Seconds:    8,
		LogLevel:   "info",
		LFO:        LFO{Shape: "triangle"},
		Monitor:    Monitor{Wave: "pulse", Gain: 0.18},
	}
}

// Load reads path over the defaults. A missing file is not an error.
// Files ending in .cue are validated against the embedded schema first;
// anything else is read as YAML.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		err = DecodeCUE(content, path, schemaSrc, &cfg)
	} else {
		err = yaml.Unmarshal(content, &cfg)
	}
	if err != nil {
		return Default(), errors.Wrapf(err, "load config %s", path)
	}
	return cfg, nil
}

// DecodeCUE compiles content, checks it against the closed schema and
// decodes it into target through its JSON export, so target's json tags
// apply. Fields absent from content keep their values.
func DecodeCUE(content []byte, filename, schema string, target any) error {
	ctx := cuecontext.New()
	closed := ctx.CompileString("close({" + schema + "})")
	if err := closed.Err(); err != nil {
		return errors.Wrap(err, "compile schema")
	}
	value := ctx.CompileBytes(content, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return err
	}
	unified := closed.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return err
	}
	data, err := unified.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "export cue")
	}
	return json.Unmarshal(data, target)
}
