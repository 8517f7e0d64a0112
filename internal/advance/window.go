package advance

import "github.com/aetrion/chordvault-go/internal/vault"

// Window is the sub-range of the vault that playback is confined to:
// Length steps starting at Start, wrapping around the vault.
type Window struct {
	Start  int
	Length int
}

// Clamp wraps Start onto the vault and forces Length into [1, vault.Size].
func (w Window) Clamp() Window {
	return Window{
		Start:  vault.Wrap(w.Start),
		Length: min(max(w.Length, 1), vault.Size),
	}
}

// Offset is the distance from Start to pos, walking forward around the vault.
func (w Window) Offset(pos int) int {
	return vault.Wrap(pos - w.Start)
}

// Contains reports whether pos lies inside the window.
func (w Window) Contains(pos int) bool {
	return w.Offset(pos) < w.Length
}

// At is the vault index off steps into the window.
func (w Window) At(off int) int {
	return vault.Wrap(w.Start + off)
}

// Last is the vault index of the final step in the window.
func (w Window) Last() int {
	return w.At(w.Length - 1)
}

func wrapTo(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
