package dshot

import (
	"dshot-go/errcode"

	"tinygo.org/x/drivers"
)

// KISSFrameLen is the size of one KISS/BLHeli UART telemetry frame.
const KISSFrameLen = 10

// KISSFrame is the UART telemetry an ESC sends after a frame with the
// telemetry bit set: big-endian fields followed by a CRC8.
type KISSFrame struct {
	TemperatureC   uint8
	VoltageCV      uint16 // 0.01 V
	CurrentCA      uint16 // 0.01 A
	ConsumptionMAh uint16
	ERPMHundreds   uint16 // eRPM / 100
}

// ERPM returns the electrical RPM.
func (k KISSFrame) ERPM() uint32 { return uint32(k.ERPMHundreds) * 100 }

// KISSCRC8 is the CRC8 (poly 0x07, init 0) used by KISS and BLHeli_32.
func KISSCRC8(b []byte) uint8 {
	var crc uint8
	for _, c := range b {
		crc ^= c
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x07
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// ParseKISS decodes one frame. b must hold at least KISSFrameLen bytes.
func ParseKISS(b []byte) (KISSFrame, error) {
	if len(b) < KISSFrameLen {
		return KISSFrame{}, errcode.ShortFrame
	}
	if KISSCRC8(b[:KISSFrameLen-1]) != b[KISSFrameLen-1] {
		return KISSFrame{}, errcode.BadCRC
	}
	be := func(i int) uint16 { return uint16(b[i])<<8 | uint16(b[i+1]) }
	return KISSFrame{
		TemperatureC:   b[0],
		VoltageCV:      be(1),
		CurrentCA:      be(3),
		ConsumptionMAh: be(5),
		ERPMHundreds:   be(7),
	}, nil
}

// AppendKISS appends the wire form of f, CRC included.
func AppendKISS(dst []byte, f KISSFrame) []byte {
	start := len(dst)
	dst = append(dst, f.TemperatureC,
		byte(f.VoltageCV>>8), byte(f.VoltageCV),
		byte(f.CurrentCA>>8), byte(f.CurrentCA),
		byte(f.ConsumptionMAh>>8), byte(f.ConsumptionMAh),
		byte(f.ERPMHundreds>>8), byte(f.ERPMHundreds))
	return append(dst, KISSCRC8(dst[start:]))
}

// KISSAssembler finds frames in a byte stream. The stream has no sync
// marker, so a full window that fails its CRC slides by one byte.
type KISSAssembler struct {
	buf [KISSFrameLen]byte
	n   int

	// OnFrame, if set, is called for every valid frame.
	OnFrame func(KISSFrame)

	last    KISSFrame
	frames  uint32
	crcErrs uint32
}

// Write feeds stream bytes. It never fails.
func (a *KISSAssembler) Write(p []byte) (int, error) {
	for _, c := range p {
		a.buf[a.n] = c
		a.n++
		if a.n < KISSFrameLen {
			continue
		}
		f, err := ParseKISS(a.buf[:])
		if err != nil {
			a.crcErrs++
			copy(a.buf[:], a.buf[1:])
			a.n--
			continue
		}
		a.n = 0
		a.last = f
		a.frames++
		if a.OnFrame != nil {
			a.OnFrame(f)
		}
	}
	return len(p), nil
}

// Reset drops any partial frame, e.g. before a new telemetry request.
func (a *KISSAssembler) Reset() { a.n = 0 }

// Last returns the most recent valid frame and the frame count.
func (a *KISSAssembler) Last() (KISSFrame, uint32) { return a.last, a.frames }

// CRCErrors counts windows rejected while resynchronising.
func (a *KISSAssembler) CRCErrors() uint32 { return a.crcErrs }

// PollUART drains whatever u has buffered without blocking and returns the
// number of bytes consumed.
func (a *KISSAssembler) PollUART(u drivers.UART) (int, error) {
	var tmp [16]byte
	total := 0
	for u.Buffered() > 0 {
		n, err := u.Read(tmp[:])
		if n > 0 {
			a.Write(tmp[:n])
			total += n
		}
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}
