package dshot

import "dshot-go/x/mathx"

// ReplyBits is the length of a bidirectional reply after the start bit shift.
const ReplyBits = 21

// DecodeStatus classifies a reply capture.
type DecodeStatus uint8

const (
	DecodeOK DecodeStatus = iota
	DecodeNoReply
	DecodeOverrun
	DecodeBadCode
	DecodeBadChecksum
)

// Received reports whether the capture held a reply at all (valid or not).
func (s DecodeStatus) Received() bool { return s != DecodeNoReply }

func (s DecodeStatus) String() string {
	switch s {
	case DecodeOK:
		return "ok"
	case DecodeNoReply:
		return "no_reply"
	case DecodeOverrun:
		return "overrun"
	case DecodeBadCode:
		return "bad_code"
	case DecodeBadChecksum:
		return "bad_checksum"
	}
	return "unknown"
}

const badNibble = 0xFF

// gcrDecode maps a 5-bit line code back to its nibble; 16 of 32 codes are valid.
var gcrDecode = [32]uint8{
	badNibble, badNibble, badNibble, badNibble, badNibble, badNibble, badNibble, badNibble,
	badNibble, 0x9, 0xA, 0xB, badNibble, 0xD, 0xE, 0xF,
	badNibble, badNibble, 0x2, 0x3, badNibble, 0x5, 0x6, 0x7,
	badNibble, 0x0, 0x8, 0x1, badNibble, 0x4, 0xC, badNibble,
}

// gcrEncode is the forward table, nibble to 5-bit code.
var gcrEncode = [16]uint8{
	0x19, 0x1B, 0x12, 0x13, 0x1D, 0x15, 0x16, 0x17,
	0x1A, 0x09, 0x0A, 0x0B, 0x1E, 0x0D, 0x0E, 0x0F,
}

// replyChecksum is the inverted nibble fold of a 12-bit reply value.
func replyChecksum(v uint16) uint16 {
	return ^(v ^ v>>4 ^ v>>8) & 0x0F
}

// Decode turns a reply capture into a telemetry value. bitNs is the reply
// bit period of the line's speed class. Durations are rounded to the
// nearest whole bit; a short capture is padded with idle (1) bits.
func Decode(c []Symbol, bitNs uint32) (Value, DecodeStatus) {
	if len(c) == 0 || c[0].Dur0 == 0 || c[0].Lvl0 != Low {
		return 0, DecodeNoReply
	}
	var raw uint32
	nbits := uint32(0)
	n := mathx.Min(len(c), MaxCaptureSymbols)
	for i := 0; i < n && nbits <= ReplyBits; i++ {
		s := &c[i]
		if s.Dur0 == 0 {
			break
		}
		raw, nbits = appendRun(raw, nbits, s.Lvl0, s.Dur0, bitNs)
		if s.Dur1 == 0 || nbits > ReplyBits {
			break
		}
		raw, nbits = appendRun(raw, nbits, s.Lvl1, s.Dur1, bitNs)
	}
	if nbits > ReplyBits {
		return 0, DecodeOverrun
	}
	for ; nbits < ReplyBits; nbits++ {
		raw = raw<<1 | 1
	}
	return DecodeRaw(raw)
}

// appendRun shifts in at most one bit past ReplyBits, which is enough to
// report an overrun.
func appendRun(raw, nbits uint32, level uint8, ticks uint16, bitNs uint32) (uint32, uint32) {
	run := mathx.Min(mathx.RoundDiv(uint32(ticks)*TickNs, bitNs), ReplyBits+1-nbits)
	bit := uint32(level & 1)
	for j := uint32(0); j < run; j++ {
		raw = raw<<1 | bit
	}
	return raw, nbits + run
}

// DecodeRaw decodes a 21-bit shifted GCR word.
func DecodeRaw(raw uint32) (Value, DecodeStatus) {
	g := raw ^ raw>>1
	var word uint16
	for i := uint(0); i < 20; i += 5 {
		nib := gcrDecode[(g>>i)&0x1F]
		if nib == badNibble {
			return 0, DecodeBadCode
		}
		word |= uint16(nib) << (i / 5 * 4)
	}
	v := word >> 4
	if replyChecksum(v) != word&0x0F {
		return 0, DecodeBadChecksum
	}
	return Value(v), DecodeOK
}

// GCREncode produces the 21-bit shifted word an ESC sends for v.
func GCREncode(v Value) uint32 {
	v &= 0xFFF
	return GCREncodeWord(uint16(v)<<4 | replyChecksum(uint16(v)))
}

// GCREncodeWord line-codes a raw 16-bit word, checksum nibble included.
// Bit 20 is the leading 0 start level.
func GCREncodeWord(word uint16) uint32 {
	var g uint32
	for i := 3; i >= 0; i-- {
		g = g<<5 | uint32(gcrEncode[(word>>(uint(i)*4))&0x0F])
	}
	var raw, prev uint32
	for i := 19; i >= 0; i-- {
		prev ^= (g >> uint(i)) & 1
		raw |= prev << uint(i)
	}
	return raw
}

// AppendReply appends the capture a receiver would record for v at the given
// reply bit period. The trailing idle run is not captured, matching a
// receiver that stops on line idle.
func AppendReply(dst []Symbol, v Value, bitNs uint32) []Symbol {
	return AppendRaw(dst, GCREncode(v), bitNs)
}

// AppendRaw appends the capture of a 21-bit shifted word.
func AppendRaw(dst []Symbol, raw uint32, bitNs uint32) []Symbol {
	var runs [ReplyBits]struct {
		lvl uint8
		n   uint32
	}
	nr := 0
	for i := ReplyBits - 1; i >= 0; i-- {
		lvl := uint8((raw >> uint(i)) & 1)
		if nr > 0 && runs[nr-1].lvl == lvl {
			runs[nr-1].n++
			continue
		}
		runs[nr].lvl, runs[nr].n = lvl, 1
		nr++
	}
	if nr > 0 && runs[nr-1].lvl == High {
		nr--
	}
	ticks := func(n uint32) uint16 { return uint16(mathx.RoundDiv(n*bitNs, TickNs)) }
	for i := 0; i < nr; i += 2 {
		s := Symbol{Dur0: ticks(runs[i].n), Lvl0: runs[i].lvl}
		if i+1 < nr {
			s.Dur1, s.Lvl1 = ticks(runs[i+1].n), runs[i+1].lvl
		}
		dst = append(dst, s)
	}
	if nr%2 == 0 {
		dst = append(dst, Symbol{})
	}
	return dst
}
