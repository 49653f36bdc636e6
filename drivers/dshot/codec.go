package dshot

import (
	"errors"

	"dshot-go/x/conv"
	"dshot-go/x/mathx"
)

var (
	ErrPolarity   = errors.New("dshot: symbol polarity does not match line direction")
	ErrBitTiming  = errors.New("dshot: symbol high time matches neither bit")
	ErrTerminator = errors.New("dshot: last symbol does not end the frame")
)

// Frame is the decoded content of one command frame.
type Frame struct {
	Value     uint16 // 0..2047
	Telemetry bool
	CRC       uint8
}

// Payload returns the 12 bits covered by the checksum.
func (f Frame) Payload() uint16 { return payload(f.Value, f.Telemetry) }

// Packet returns the 16-bit word as sent on the wire.
func (f Frame) Packet() uint16 { return f.Payload()<<4 | uint16(f.CRC&0x0F) }

// String renders the wire packet as 0xHHHH.
func (f Frame) String() string {
	var b [4]byte
	return "0x" + string(conv.U16Hex(b[:], f.Packet()))
}

// IsCommand reports whether the value is in the reserved command range.
func (f Frame) IsCommand() bool { return f.Value < ThrottleMin }

// Throttle returns the logical throttle 0..1999 for throttle frames.
func (f Frame) Throttle() (uint16, bool) {
	if f.IsCommand() {
		return 0, false
	}
	return f.Value - ThrottleMin, true
}

func payload(value uint16, telemetry bool) uint16 {
	p := mathx.Min(value, ThrottleMax) << 1
	if telemetry {
		p |= 1
	}
	return p
}

// Checksum folds the 12-bit payload (value<<1 | telemetry) nibble-wise.
// Bidirectional lines use the inverted result.
func Checksum(payload12 uint16, dir Direction) uint8 {
	crc := payload12 ^ payload12>>4 ^ payload12>>8
	switch dir {
	case Bidirectional:
		crc = ^crc
	case Unidirectional:
	}
	return uint8(crc & 0x0F)
}

// Packet builds the 16-bit frame word. Values above 2047 are clamped.
func Packet(value uint16, telemetry bool, dir Direction) uint16 {
	p := payload(value, telemetry)
	return p<<4 | uint16(Checksum(p, dir))
}

// Encode writes the frame for value into dst. Values above 2047 are clamped.
// The last symbol's trailing duration is zero, which ends the transmission.
func Encode(dst *PulseTrain, value uint16, telemetry bool, t Timing) {
	active, idle := levels(t.Dir)
	packet := Packet(value, telemetry, t.Dir)
	for i := range dst {
		high := t.TicksZeroHigh
		if packet&0x8000 != 0 {
			high = t.TicksOneHigh
		}
		dst[i] = Symbol{Dur0: high, Lvl0: active, Dur1: t.TicksPerBit - high, Lvl1: idle}
		packet <<= 1
	}
	dst[FrameSymbols-1].Dur1 = 0
}

// ParseFrame reverses Encode: it classifies each symbol's active time
// against the midpoint of the two bit widths. The checksum is returned as
// received; compare it with Checksum to validate.
func ParseFrame(tr *PulseTrain, t Timing) (Frame, error) {
	active, idle := levels(t.Dir)
	mid := (t.TicksZeroHigh + t.TicksOneHigh) / 2
	var packet uint16
	for i, s := range tr {
		if s.Lvl0 != active || s.Lvl1 != idle {
			return Frame{}, ErrPolarity
		}
		switch {
		case s.Dur0 == 0 || s.Dur0 >= t.TicksPerBit:
			return Frame{}, ErrBitTiming
		case s.Dur0 > mid:
			packet = packet<<1 | 1
		default:
			packet <<= 1
		}
		if i == FrameSymbols-1 && s.Dur1 != 0 {
			return Frame{}, ErrTerminator
		}
	}
	return Frame{
		Value:     packet >> 5,
		Telemetry: packet&0x10 != 0,
		CRC:       uint8(packet & 0x0F),
	}, nil
}
