package advance

// Strategy selects how the cursor moves on each clock.
//
// The first four strategies are reachable with short presses of the mode
// button; the last four are reached with a long press and mirror them.
type Strategy int

const (
	Forward Strategy = iota
	Backward
	Random
	CV

	Skip
	PingPong
	Shuffle
	Glide
	NumStrategies
)

// blockSize is the number of strategies a short press cycles through.
const blockSize = 4

var strategyNames = [NumStrategies]string{
	"Forward",
	"Backward",
	"Random",
	"CV Control",
	"Skip",
	"Ping Pong",
	"Shuffle",
	"Glide",
}

func (s Strategy) String() string {
	if !s.Valid() {
		return strategyNames[Forward]
	}
	return strategyNames[s]
}

func (s Strategy) Valid() bool { return s >= 0 && s < NumStrategies }

// ParseStrategy maps a name produced by String back to a Strategy.
func ParseStrategy(name string) (Strategy, bool) {
	for i, n := range strategyNames {
		if n == name {
			return Strategy(i), true
		}
	}
	return Forward, false
}

// Next is the strategy selected by a short press: the following one within
// the same block of four, wrapping inside the block.
func (s Strategy) Next() Strategy {
	if !s.Valid() {
		return Forward
	}
	base := s / blockSize * blockSize
	return base + (s-base+1)%blockSize
}

// Alternate is the strategy selected by a long press: the same slot in the
// other block.
func (s Strategy) Alternate() Strategy {
	if !s.Valid() {
		return Forward
	}
	return (s + blockSize) % NumStrategies
}

// CVAddressed reports whether the step CV input addresses the cursor
// directly under this strategy.
func (s Strategy) CVAddressed() bool { return s == CV || s == Glide }

// CVRange selects how step CV voltage maps onto step numbers. The numeric
// values are persisted and must not be reordered.
type CVRange int

const (
	ZeroTo5V CVRange = iota
	WhiteKeys
	ZeroTo10V
	NumCVRanges
)

var cvRangeNames = [NumCVRanges]string{"0 to 5V", "White Keys", "0 to 10V"}

func (r CVRange) String() string {
	if !r.Valid() {
		return cvRangeNames[ZeroTo5V]
	}
	return cvRangeNames[r]
}

func (r CVRange) Valid() bool { return r >= 0 && r < NumCVRanges }

func ParseCVRange(name string) (CVRange, bool) {
	for i, n := range cvRangeNames {
		if n == name {
			return CVRange(i), true
		}
	}
	return ZeroTo5V, false
}
