package dshot

import (
	"strings"
	"time"

	"dshot-go/x/conv"
)

// TickNs is the peripheral tick: 80 MHz APB clock divided by 8.
const TickNs = 100

// Inter-frame gaps and slack used by FrameInterval.
const (
	frameGap      = 30 * time.Microsecond
	replyGap      = 30 * time.Microsecond
	intervalSlack = 10 * time.Microsecond
)

// SpeedClass selects a DSHOT bit rate and whether the line carries replies.
type SpeedClass uint8

const (
	DShot150 SpeedClass = iota
	DShot150Bidir
	DShot300
	DShot300Bidir
	DShot600
	DShot600Bidir
	DShot1200
	DShot1200Bidir
)

// DefaultClass is used for unrecognised SpeedClass values.
const DefaultClass = DShot300

// Direction says whether a line is transmit-only or half-duplex.
type Direction uint8

const (
	Unidirectional Direction = iota
	Bidirectional
)

func (d Direction) String() string {
	switch d {
	case Bidirectional:
		return "bidirectional"
	default:
		return "unidirectional"
	}
}

// Timing is the tick-level description of one speed class.
type Timing struct {
	TicksPerBit   uint16
	TicksZeroHigh uint16
	TicksOneHigh  uint16
	BitNs         uint32 // reply bit period, 4/5 of the command bit
	Dir           Direction
}

var timings = [...]Timing{
	DShot150:       {TicksPerBit: 67, TicksZeroHigh: 25, TicksOneHigh: 50, BitNs: 5333, Dir: Unidirectional},
	DShot150Bidir:  {TicksPerBit: 67, TicksZeroHigh: 25, TicksOneHigh: 50, BitNs: 5333, Dir: Bidirectional},
	DShot300:       {TicksPerBit: 33, TicksZeroHigh: 12, TicksOneHigh: 25, BitNs: 2666, Dir: Unidirectional},
	DShot300Bidir:  {TicksPerBit: 33, TicksZeroHigh: 12, TicksOneHigh: 25, BitNs: 2666, Dir: Bidirectional},
	DShot600:       {TicksPerBit: 17, TicksZeroHigh: 6, TicksOneHigh: 12, BitNs: 1333, Dir: Unidirectional},
	DShot600Bidir:  {TicksPerBit: 17, TicksZeroHigh: 6, TicksOneHigh: 12, BitNs: 1333, Dir: Bidirectional},
	DShot1200:      {TicksPerBit: 8, TicksZeroHigh: 3, TicksOneHigh: 6, BitNs: 667, Dir: Unidirectional},
	DShot1200Bidir: {TicksPerBit: 8, TicksZeroHigh: 3, TicksOneHigh: 6, BitNs: 667, Dir: Bidirectional},
}

// Valid reports whether c is one of the defined classes.
func (c SpeedClass) Valid() bool { return int(c) < len(timings) }

// Normalize maps unknown classes to DefaultClass.
func (c SpeedClass) Normalize() SpeedClass {
	if !c.Valid() {
		return DefaultClass
	}
	return c
}

// TimingFor returns the timing tuple for c. Unknown classes get DefaultClass.
func TimingFor(c SpeedClass) Timing { return timings[c.Normalize()] }

// Direction of the class.
func (c SpeedClass) Direction() Direction { return TimingFor(c).Dir }

// Rate returns the nominal kbit/s figure (150, 300, 600, 1200).
func (c SpeedClass) Rate() int {
	switch c.Normalize() {
	case DShot150, DShot150Bidir:
		return 150
	case DShot600, DShot600Bidir:
		return 600
	case DShot1200, DShot1200Bidir:
		return 1200
	default:
		return 300
	}
}

func (c SpeedClass) String() string {
	var b [4]byte
	s := "DSHOT" + string(conv.Utoa(b[:], uint64(c.Rate())))
	if c.Direction() == Bidirectional {
		s += "_BIDIR"
	}
	return s
}

// ParseSpeedClass accepts "600", "600bidir", "dshot600_bidir", "DSHOT300-BIDIR" and similar.
func ParseSpeedClass(s string) (SpeedClass, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "dshot")
	bidir := false
	for _, suf := range []string{"_bidir", "-bidir", "bidir", "_bi", "bi"} {
		if strings.HasSuffix(s, suf) {
			s = strings.TrimSuffix(s, suf)
			bidir = true
			break
		}
	}
	var c SpeedClass
	switch s {
	case "150":
		c = DShot150
	case "300":
		c = DShot300
	case "600":
		c = DShot600
	case "1200":
		c = DShot1200
	default:
		return DefaultClass, false
	}
	if bidir {
		c++
	}
	return c, true
}

// FrameDuration is the on-wire length of the 16 command bits.
func (t Timing) FrameDuration() time.Duration {
	return time.Duration(16*uint32(t.TicksPerBit)*TickNs) * time.Nanosecond
}

// FrameInterval is a conservative minimum spacing between two sends on one
// line: the frame, a fixed gap, and for bidirectional lines the 21-bit reply
// window plus its own gap, truncated to whole microseconds plus slack.
func (t Timing) FrameInterval() time.Duration {
	d := t.FrameDuration() + frameGap
	switch t.Dir {
	case Bidirectional:
		d += time.Duration(21*t.BitNs)*time.Nanosecond + replyGap
	case Unidirectional:
	}
	return d.Truncate(time.Microsecond) + intervalSlack
}
