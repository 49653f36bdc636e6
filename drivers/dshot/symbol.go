package dshot

// Line levels as the peripheral sees them.
const (
	Low  uint8 = 0
	High uint8 = 1
)

// FrameSymbols is the number of symbols in one command frame.
const FrameSymbols = 16

// MaxCaptureSymbols bounds a reply capture: one symbol per reply bit at most.
const MaxCaptureSymbols = 21

// Symbol is one peripheral item: two (duration, level) halves.
// Durations are in ticks; a zero duration ends the sequence.
type Symbol struct {
	Dur0 uint16
	Lvl0 uint8
	Dur1 uint16
	Lvl1 uint8
}

// PulseTrain is the line signal of one command frame, MSB first.
type PulseTrain [FrameSymbols]Symbol

// levels returns the (active, idle) pair for a line direction.
// Bidirectional lines idle high and pulse low; unidirectional lines the reverse.
func levels(d Direction) (active, idle uint8) {
	switch d {
	case Bidirectional:
		return Low, High
	case Unidirectional:
		return High, Low
	}
	return High, Low
}
