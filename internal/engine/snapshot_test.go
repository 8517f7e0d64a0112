package engine

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/aetrion/chordvault-go/internal/advance"
	"github.com/aetrion/chordvault-go/internal/vault"
)

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	src := NewWithOptions(testRate, Options{Rand: rand.New(rand.NewSource(4))})
	src.Randomize()
	src.SetStrategy(advance.Shuffle)
	src.SetCVRange(advance.WhiteKeys)
	src.SetCVOrder(vault.Condensed)
	src.SetChannels(7)
	src.SetDynamicChannels(true)
	src.SetSkipPartialClock(true)
	src.SetRecording(false)

	data, err := yaml.Marshal(src.Snapshot())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	dst := New(testRate)
	dst.Restore(snap)

	if !reflect.DeepEqual(dst.Snapshot(), src.Snapshot()) {
		t.Fatalf("restored snapshot differs:\n got %+v\nwant %+v", dst.Snapshot(), src.Snapshot())
	}
	if dst.Vault() != src.Vault() {
		t.Fatalf("vault contents differ")
	}
}

func TestRestoreClampsMalformedState(t *testing.T) {
	e := New(testRate)
	e.Restore(Snapshot{
		Cursor:       -3,
		Strategy:     advance.Strategy(42),
		CVRange:      advance.CVRange(-1),
		CVOrder:      vault.Order(9),
		Channels:     99,
		ShuffleIndex: 40,
		Vault:        make([]StepData, 20),
		Shuffle:      []int{3, 17, -1},
	})
	snap := e.Snapshot()
	if snap.Cursor != 13 {
		t.Fatalf("cursor: got %d, want 13", snap.Cursor)
	}
	if snap.Strategy != advance.Forward || snap.CVRange != advance.ZeroTo5V || snap.CVOrder != vault.Sorted {
		t.Fatalf("enums not defaulted: %v %v %v", snap.Strategy, snap.CVRange, snap.CVOrder)
	}
	if snap.Channels != MaxChannels {
		t.Fatalf("channels: got %d", snap.Channels)
	}
	if snap.ShuffleIndex != vault.Size-1 {
		t.Fatalf("shuffle index: got %d", snap.ShuffleIndex)
	}
	wantShuffle := []int{3, 1, 15, 3}
	for i, w := range wantShuffle {
		if snap.Shuffle[i] != w {
			t.Fatalf("shuffle[%d]: got %d, want %d", i, snap.Shuffle[i], w)
		}
	}
	if len(snap.Vault) != vault.Size {
		t.Fatalf("vault rows: got %d", len(snap.Vault))
	}
}

func TestRestoreMissingFieldsDefaults(t *testing.T) {
	var snap Snapshot
	if err := yaml.Unmarshal([]byte("recording: false\n"), &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	e := New(testRate)
	e.Restore(snap)
	if e.Recording() {
		t.Fatalf("recording flag not applied")
	}
	if got := e.Settings().Channels; got != DefaultChannels {
		t.Fatalf("missing channels: got %d, want %d", got, DefaultChannels)
	}
	for i := 0; i < vault.Size; i++ {
		if e.Step(i).ActiveCount(vault.Channels) != 0 {
			t.Fatalf("step %d should be empty", i)
		}
	}
	// Shuffle still yields a permutation from an identity table.
	if got := e.Snapshot().Shuffle; got[5] != 5 {
		t.Fatalf("shuffle table not reset: %v", got)
	}
}

func TestRestoreZeroesInactivePitches(t *testing.T) {
	e := New(testRate)
	rows := make([]StepData, 1)
	rows[0].CV[0], rows[0].Gate[0] = 1.25, true
	rows[0].CV[1] = 3 // inactive
	e.Restore(Snapshot{Vault: rows})
	st := e.Step(0)
	if st.Pitch[0] != 1.25 || st.Pitch[1] != 0 {
		t.Fatalf("got pitches %v", st.Pitch)
	}
}

func TestFieldAccess(t *testing.T) {
	e := New(testRate)
	cases := []struct {
		name string
		in   any
		want any
	}{
		{"playMode", "Ping Pong", advance.PingPong},
		{"playMode", 2.0, advance.Random},
		{"cvRange", int64(2), advance.ZeroTo10V},
		{"cvOrder", "Pristine", vault.Pristine},
		{"channels", 1, MinChannels},
		{"vault_pos", 18, 2},
		{"dynamicChannels", true, true},
		{"skipPartialClock", 1, true},
		{"recording", false, false},
		{"channels", uint8(6), 6},
		{"channels", int16(7), 7},
		{"vault_pos", uint64(3), 3},
		{"shuffle_index", int8(5), 5},
		{"cvOrder", uint32(1), vault.Condensed},
		{"dynamicChannels", uint16(0), false},
		{"skipPartialClock", float32(0.5), true},
		{"recording", uint32(1), true},
		{"recording", int8(0), false},
	}
	for _, tc := range cases {
		if err := e.SetField(tc.name, tc.in); err != nil {
			t.Fatalf("SetField(%s, %v): %v", tc.name, tc.in, err)
		}
		got, err := e.Field(tc.name)
		if err != nil {
			t.Fatalf("Field(%s): %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %v (%T), want %v (%T)", tc.name, got, got, tc.want, tc.want)
		}
	}
}

func TestRestoreLeavingOffsetModeResetsWindow(t *testing.T) {
	load := map[string]func(e *Engine, snap Snapshot){
		"restore": func(e *Engine, snap Snapshot) { e.Restore(snap) },
		"field": func(e *Engine, snap Snapshot) {
			if err := e.SetField("startStepMode", false); err != nil {
				t.Fatalf("SetField: %v", err)
			}
		},
	}
	for name, fn := range load {
		h := newHarness(t, Options{})
		recordFour(h)
		snap := h.e.Snapshot()
		h.press(&h.in.RecordButton)
		h.press(&h.in.OffsetButton)
		h.in.StepKnob = 6
		h.step(1)
		if got := h.e.Window().Start; got != 6 {
			t.Fatalf("%s: window start before load: got %d, want 6", name, got)
		}

		snap.StartStepMode = false
		snap.Recording = false
		fn(h.e, snap)
		if h.e.Settings().OffsetMode {
			t.Fatalf("%s: offset mode should be off after load", name)
		}
		if got := h.e.Window().Start; got != 0 {
			t.Fatalf("%s: window start after load: got %d, want 0", name, got)
		}
	}
}

func TestRestoreKeepsWindowInOffsetMode(t *testing.T) {
	h := newHarness(t, Options{})
	recordFour(h)
	h.press(&h.in.RecordButton)
	h.press(&h.in.OffsetButton)
	h.in.StepKnob = 6
	h.step(1)

	h.e.Restore(h.e.Snapshot())
	if !h.e.Settings().OffsetMode {
		t.Fatalf("offset mode should survive a reload")
	}
	if got := h.e.Window().Start; got != 6 {
		t.Fatalf("window start: got %d, want 6", got)
	}
}

func TestFieldErrors(t *testing.T) {
	e := New(testRate)
	if _, err := e.Field("tempo"); errors.Cause(err) != ErrUnknownField {
		t.Fatalf("unknown field: got %v", err)
	}
	if err := e.SetField("tempo", 1); errors.Cause(err) != ErrUnknownField {
		t.Fatalf("unknown field: got %v", err)
	}
	if err := e.SetField("channels", "lots"); err == nil {
		t.Fatalf("expected a type error")
	}
	if err := e.SetField("playMode", "Sideways"); err == nil {
		t.Fatalf("expected an unknown mode error")
	}
}

func TestFieldNamesCoverSnapshot(t *testing.T) {
	names := FieldNames()
	typ := reflect.TypeOf(Snapshot{})
	if len(names) != typ.NumField() {
		t.Fatalf("%d field names for %d snapshot fields", len(names), typ.NumField())
	}
	for i := 0; i < typ.NumField(); i++ {
		tag := typ.Field(i).Tag.Get("yaml")
		if _, ok := fields[tag]; !ok {
			t.Fatalf("snapshot field %s (%s) has no accessor", typ.Field(i).Name, tag)
		}
	}
}
