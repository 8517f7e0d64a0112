package vault

// Note offsets in volts relative to C4 (0V).
const (
	noteA  = -3.0 / 12
	noteAs = -2.0 / 12
	noteB  = -1.0 / 12
	noteC  = 0.0
	noteCs = 1.0 / 12
	noteD  = 2.0 / 12
	noteDs = 3.0 / 12
	noteE  = 4.0 / 12
	noteF  = 5.0 / 12
	noteFs = 6.0 / 12
	noteG  = 7.0 / 12
	noteGs = 8.0 / 12
)

// Chord is a named triad used by randomization.
type Chord struct {
	Name    string
	Pitches [3]float64
}

// Chords are the triads RandomizeChord picks from.
var Chords = [...]Chord{
	{"A Major", [3]float64{noteA, noteCs, noteE}},
	{"A Minor", [3]float64{noteA, noteC, noteE}},
	{"C Major", [3]float64{noteC, noteE, noteG}},
	{"C Minor", [3]float64{noteC, noteDs, noteG}},
	{"D Major", [3]float64{noteD, noteFs, noteA}},
	{"D Minor", [3]float64{noteD, noteF, noteA}},
	{"E Major", [3]float64{noteE, noteGs, noteB}},
	{"E Minor", [3]float64{noteE, noteG, noteB}},
	{"F Major", [3]float64{noteF, noteAs, noteC}},
	{"F Minor", [3]float64{noteF, noteGs, noteC}},
	{"G Major", [3]float64{noteG, noteB, noteD}},
	{"G Minor", [3]float64{noteG, noteAs, noteD}},
}
