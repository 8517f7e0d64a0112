package report

import (
	"embed"
	"io"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/pkg/errors"

	"github.com/aetrion/chordvault-go/internal/advance"
	"github.com/aetrion/chordvault-go/internal/engine"
	"github.com/aetrion/chordvault-go/internal/midiio"
	"github.com/aetrion/chordvault-go/internal/vault"
)

//go:embed templates
var templateFS embed.FS

var tmpl = template.Must(template.New("base").Funcs(sprig.TxtFuncMap()).ParseFS(templateFS, "templates/*.txt"))

type Row struct {
	Index    int
	Cursor   bool
	InWindow bool
	Notes    []string
}

// View is everything the vault table shows.
type View struct {
	Mode     string
	Strategy string
	CVRange  string
	Order    string
	Window   advance.Window
	Channels int
	Rows     []Row
}

// Build captures the engine's vault with the notes of each step's active
// channels, up to the configured channel count.
func Build(e *engine.Engine) View {
	settings := e.Settings()
	mode := "playing"
	if e.Recording() {
		mode = "recording"
	}
	v := View{
		Mode:     mode,
		Strategy: e.Strategy().String(),
		CVRange:  settings.CVRange.String(),
		Order:    settings.CVOrder.String(),
		Window:   e.Window(),
		Channels: settings.Channels,
		Rows:     make([]Row, vault.Size),
	}
	for i := range v.Rows {
		step := e.Step(i)
		row := Row{Index: i, Cursor: i == e.Cursor(), InWindow: v.Window.Contains(i)}
		for ci := 0; ci < settings.Channels; ci++ {
			if step.Active[ci] {
				row.Notes = append(row.Notes, midiio.KeyName(midiio.VoltsToKey(step.Pitch[ci])))
			}
		}
		v.Rows[i] = row
	}
	return v
}

// Write renders the vault table for e.
func Write(w io.Writer, e *engine.Engine) error {
	if err := tmpl.ExecuteTemplate(w, "vault", Build(e)); err != nil {
		return errors.Wrap(err, "render vault")
	}
	return nil
}
