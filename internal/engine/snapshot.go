package engine

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/aetrion/chordvault-go/internal/advance"
	"github.com/aetrion/chordvault-go/internal/vault"
)

// ErrUnknownField is returned by Field and SetField for names outside FieldNames.
var ErrUnknownField = errors.New("unknown engine field")

// StepData is the persisted form of one vault step.
type StepData struct {
	CV   [vault.Channels]float64 `yaml:"cv" json:"cv"`
	Gate [vault.Channels]bool    `yaml:"gate" json:"gate"`
}

// Snapshot is the persisted engine state. Missing or out-of-range values
// are repaired by Restore rather than rejected.
type Snapshot struct {
	Cursor           int              `yaml:"vault_pos" json:"vault_pos"`
	Strategy         advance.Strategy `yaml:"playMode" json:"playMode"`
	CVRange          advance.CVRange  `yaml:"cvRange" json:"cvRange"`
	CVOrder          vault.Order      `yaml:"cvOrder" json:"cvOrder"`
	Channels         int              `yaml:"channels" json:"channels"`
	ShuffleIndex     int              `yaml:"shuffle_index" json:"shuffle_index"`
	Recording        bool             `yaml:"recording" json:"recording"`
	DynamicChannels  bool             `yaml:"dynamicChannels" json:"dynamicChannels"`
	StartStepMode    bool             `yaml:"startStepMode" json:"startStepMode"`
	SkipPartialClock bool             `yaml:"skipPartialClock" json:"skipPartialClock"`
	Vault            []StepData       `yaml:"vault" json:"vault"`
	Shuffle          []int            `yaml:"shuffle_arr" json:"shuffle_arr"`
}

func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Cursor:           e.cursor,
		Strategy:         e.strategy,
		CVRange:          e.settings.CVRange,
		CVOrder:          e.settings.CVOrder,
		Channels:         e.settings.Channels,
		ShuffleIndex:     e.state.ShuffleIndex,
		Recording:        e.recording,
		DynamicChannels:  e.settings.DynamicChannels,
		StartStepMode:    e.settings.OffsetMode,
		SkipPartialClock: e.settings.SkipPartialClock,
		Vault: lo.Times(vault.Size, func(i int) StepData {
			st := e.vault.Step(i)
			return StepData{CV: st.Pitch, Gate: st.Active}
		}),
		Shuffle: append([]int(nil), e.state.Shuffle[:]...),
	}
}

// Restore loads a snapshot and rebuilds transient state (edge latches,
// timers, partial clock) from defaults.
func (e *Engine) Restore(s Snapshot) {
	e.apply(s)
	e.resetTransient()
	e.state.Ascending = false
	e.updateActiveChannels()
}

func (e *Engine) apply(s Snapshot) {
	clamped := false
	fix := func(ok bool) {
		if !ok {
			clamped = true
		}
	}

	e.cursor = vault.Wrap(s.Cursor)
	fix(e.cursor == s.Cursor)

	e.strategy = s.Strategy
	if !s.Strategy.Valid() {
		e.strategy = advance.Forward
		clamped = true
	}
	e.settings.CVRange = s.CVRange
	if !s.CVRange.Valid() {
		e.settings.CVRange = advance.ZeroTo5V
		clamped = true
	}
	e.settings.CVOrder = s.CVOrder
	if !s.CVOrder.Valid() {
		e.settings.CVOrder = vault.Sorted
		clamped = true
	}

	switch {
	case s.Channels == 0:
		e.settings.Channels = DefaultChannels
	default:
		e.settings.Channels = lo.Clamp(s.Channels, MinChannels, MaxChannels)
		fix(e.settings.Channels == s.Channels)
	}

	e.recording = s.Recording
	e.settings.DynamicChannels = s.DynamicChannels
	e.settings.OffsetMode = s.StartStepMode
	if !s.StartStepMode {
		e.window.Start = 0
	}
	e.settings.SkipPartialClock = s.SkipPartialClock

	e.vault.Clear()
	for i, sd := range s.Vault {
		if i >= vault.Size {
			clamped = true
			break
		}
		e.vault.SetStep(i, vault.Step{Pitch: sd.CV, Active: sd.Gate})
	}

	e.state.ShuffleIndex = lo.Clamp(s.ShuffleIndex, 0, vault.Size-1)
	fix(e.state.ShuffleIndex == s.ShuffleIndex)
	for i := range e.state.Shuffle {
		e.state.Shuffle[i] = i
		if i < len(s.Shuffle) {
			e.state.Shuffle[i] = vault.Wrap(s.Shuffle[i])
			fix(e.state.Shuffle[i] == s.Shuffle[i])
		}
	}

	if clamped {
		e.log.Debug("snapshot repaired while loading")
	}
}

type field struct {
	get func(*Snapshot) any
	set func(*Snapshot, any) error
}

var fields = map[string]field{
	"vault_pos": {
		get: func(s *Snapshot) any { return s.Cursor },
		set: func(s *Snapshot, v any) (err error) { s.Cursor, err = toInt(v); return },
	},
	"playMode": {
		get: func(s *Snapshot) any { return s.Strategy },
		set: func(s *Snapshot, v any) error {
			if name, ok := v.(string); ok {
				st, ok := advance.ParseStrategy(name)
				if !ok {
					return errors.Errorf("unknown play mode %q", name)
				}
				s.Strategy = st
				return nil
			}
			n, err := toInt(v)
			s.Strategy = advance.Strategy(n)
			return err
		},
	},
	"cvRange": {
		get: func(s *Snapshot) any { return s.CVRange },
		set: func(s *Snapshot, v any) error {
			if name, ok := v.(string); ok {
				r, ok := advance.ParseCVRange(name)
				if !ok {
					return errors.Errorf("unknown cv range %q", name)
				}
				s.CVRange = r
				return nil
			}
			n, err := toInt(v)
			s.CVRange = advance.CVRange(n)
			return err
		},
	},
	"cvOrder": {
		get: func(s *Snapshot) any { return s.CVOrder },
		set: func(s *Snapshot, v any) error {
			if name, ok := v.(string); ok {
				o, ok := vault.ParseOrder(name)
				if !ok {
					return errors.Errorf("unknown cv order %q", name)
				}
				s.CVOrder = o
				return nil
			}
			n, err := toInt(v)
			s.CVOrder = vault.Order(n)
			return err
		},
	},
	"channels": {
		get: func(s *Snapshot) any { return s.Channels },
		set: func(s *Snapshot, v any) (err error) { s.Channels, err = toInt(v); return },
	},
	"shuffle_index": {
		get: func(s *Snapshot) any { return s.ShuffleIndex },
		set: func(s *Snapshot, v any) (err error) { s.ShuffleIndex, err = toInt(v); return },
	},
	"recording": {
		get: func(s *Snapshot) any { return s.Recording },
		set: func(s *Snapshot, v any) (err error) { s.Recording, err = toBool(v); return },
	},
	"dynamicChannels": {
		get: func(s *Snapshot) any { return s.DynamicChannels },
		set: func(s *Snapshot, v any) (err error) { s.DynamicChannels, err = toBool(v); return },
	},
	"startStepMode": {
		get: func(s *Snapshot) any { return s.StartStepMode },
		set: func(s *Snapshot, v any) (err error) { s.StartStepMode, err = toBool(v); return },
	},
	"skipPartialClock": {
		get: func(s *Snapshot) any { return s.SkipPartialClock },
		set: func(s *Snapshot, v any) (err error) { s.SkipPartialClock, err = toBool(v); return },
	},
	"vault": {
		get: func(s *Snapshot) any { return s.Vault },
		set: func(s *Snapshot, v any) error {
			steps, ok := v.([]StepData)
			if !ok {
				return errors.Errorf("vault wants []StepData, got %T", v)
			}
			s.Vault = steps
			return nil
		},
	},
	"shuffle_arr": {
		get: func(s *Snapshot) any { return s.Shuffle },
		set: func(s *Snapshot, v any) error {
			arr, ok := v.([]int)
			if !ok {
				return errors.Errorf("shuffle_arr wants []int, got %T", v)
			}
			s.Shuffle = arr
			return nil
		},
	},
}

// FieldNames lists the persisted field names in sorted order.
func FieldNames() []string {
	names := lo.Keys(fields)
	sort.Strings(names)
	return names
}

// Field reads one persisted value by name.
func (e *Engine) Field(name string) (any, error) {
	f, ok := fields[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownField, "%q", name)
	}
	s := e.Snapshot()
	return f.get(&s), nil
}

// SetField writes one persisted value by name. Numeric values may arrive as
// any integer or float type; enums also accept their display names. Values
// out of range are clamped like Restore does.
func (e *Engine) SetField(name string, v any) error {
	f, ok := fields[name]
	if !ok {
		return errors.Wrapf(ErrUnknownField, "%q", name)
	}
	s := e.Snapshot()
	if err := f.set(&s, v); err != nil {
		return errors.Wrapf(err, "set %s", name)
	}
	e.apply(s)
	e.updateActiveChannels()
	return nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int8:
		return int(n), nil
	case int16:
		return int(n), nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint:
		return int(n), nil
	case uint8:
		return int(n), nil
	case uint16:
		return int(n), nil
	case uint32:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float32:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, errors.Errorf("want a number, got %T", v)
	}
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case int:
		return b != 0, nil
	case int8:
		return b != 0, nil
	case int16:
		return b != 0, nil
	case int32:
		return b != 0, nil
	case int64:
		return b != 0, nil
	case uint:
		return b != 0, nil
	case uint8:
		return b != 0, nil
	case uint16:
		return b != 0, nil
	case uint32:
		return b != 0, nil
	case uint64:
		return b != 0, nil
	case float32:
		return b != 0, nil
	case float64:
		return b != 0, nil
	default:
		return false, errors.Errorf("want a bool, got %T", v)
	}
}
