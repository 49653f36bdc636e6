package dshottest

import (
	"io"

	"dshot-go/drivers/dshot"
)

// ReplyWith returns an ESCFunc that parses each frame at class c and
// answers with fn's value. Frames that fail to parse get no reply.
func ReplyWith(c dshot.SpeedClass, fn func(dshot.Frame) dshot.Value) ESCFunc {
	t := dshot.TimingFor(c)
	return func(train *dshot.PulseTrain) []dshot.Symbol {
		f, err := dshot.ParseFrame(train, t)
		if err != nil {
			return nil
		}
		return dshot.AppendReply(nil, fn(f), t.BitNs)
	}
}

// ESC simulates a speed controller: it checks every frame, spins up in
// proportion to throttle and answers bidirectional frames with its eRPM
// period. Once extended telemetry is enabled it interleaves temperature,
// voltage and current readings. Telemetry requests also produce a KISS
// frame on KISS, when set.
type ESC struct {
	Class   dshot.SpeedClass
	MaxERPM uint32 // at full throttle

	TemperatureC uint8
	VoltageMV    uint32
	CurrentMA    uint32
	UsedMAh      uint16

	KISS io.Writer

	Frames  []dshot.Frame
	BadCRC  int
	Silent  bool // drop replies
	Corrupt bool // send replies with a bad checksum

	edt       bool
	edtVotes  int
	erpm      uint32
	replies   int
	nextField int
}

// NewESC returns a simulated ESC for class c.
func NewESC(c dshot.SpeedClass) *ESC {
	return &ESC{
		Class:        c,
		MaxERPM:      200_000,
		TemperatureC: 35,
		VoltageMV:    16_000,
		CurrentMA:    2_000,
	}
}

// ERPM is the current simulated electrical RPM.
func (e *ESC) ERPM() uint32 { return e.erpm }

// EDT reports whether extended telemetry was enabled.
func (e *ESC) EDT() bool { return e.edt }

// Last returns the most recent valid frame.
func (e *ESC) Last() (dshot.Frame, bool) {
	if len(e.Frames) == 0 {
		return dshot.Frame{}, false
	}
	return e.Frames[len(e.Frames)-1], true
}

// Answer implements ESCFunc.
func (e *ESC) Answer(train *dshot.PulseTrain) []dshot.Symbol {
	t := dshot.TimingFor(e.Class)
	f, err := dshot.ParseFrame(train, t)
	if err != nil || dshot.Checksum(f.Payload(), t.Dir) != f.CRC {
		e.BadCRC++
		return nil
	}
	e.Frames = append(e.Frames, f)
	e.apply(f)

	if f.Telemetry && e.KISS != nil {
		e.KISS.Write(dshot.AppendKISS(nil, e.kissFrame()))
	}
	if t.Dir != dshot.Bidirectional || e.Silent {
		return nil
	}
	v := e.reply()
	if e.Corrupt {
		return dshot.AppendRaw(nil, BadChecksumWord(v), t.BitNs)
	}
	return dshot.AppendReply(nil, v, t.BitNs)
}

func (e *ESC) apply(f dshot.Frame) {
	if th, ok := f.Throttle(); ok {
		e.edtVotes = 0
		e.erpm = uint32(uint64(e.MaxERPM) * uint64(th) / uint64(dshot.ThrottleSpan-1))
		return
	}
	e.erpm = 0
	switch dshot.Command(f.Value) {
	case dshot.CmdExtendedTelemetryEnable:
		e.edtVotes++
		if e.edtVotes >= dshot.CmdExtendedTelemetryEnable.RepeatCount() {
			e.edt = true
		}
	case dshot.CmdExtendedTelemetryDisable:
		e.edt = false
		e.edtVotes = 0
	default:
		e.edtVotes = 0
	}
}

func (e *ESC) reply() dshot.Value {
	e.replies++
	if e.edt && e.replies%4 == 0 {
		fields := [...]dshot.Field{dshot.FieldTemperature, dshot.FieldVoltage, dshot.FieldCurrent}
		f := fields[e.nextField%len(fields)]
		e.nextField++
		switch f {
		case dshot.FieldTemperature:
			return dshot.LegacyTelemetry(f, e.TemperatureC)
		case dshot.FieldVoltage:
			return dshot.LegacyTelemetry(f, uint8(e.VoltageMV/250))
		default:
			return dshot.LegacyTelemetry(f, uint8(e.CurrentMA/1000))
		}
	}
	if e.erpm == 0 {
		return dshot.ValueStopped
	}
	return dshot.ExtendedERPM(60_000_000 / e.erpm)
}

func (e *ESC) kissFrame() dshot.KISSFrame {
	return dshot.KISSFrame{
		TemperatureC:   e.TemperatureC,
		VoltageCV:      uint16(e.VoltageMV / 10),
		CurrentCA:      uint16(e.CurrentMA / 10),
		ConsumptionMAh: e.UsedMAh,
		ERPMHundreds:   uint16(e.erpm / 100),
	}
}

// BadChecksumWord line-codes v with a wrong checksum nibble.
func BadChecksumWord(v dshot.Value) uint32 {
	good := dshot.GCREncode(v)
	for crc := uint16(0); crc < 16; crc++ {
		raw := dshot.GCREncodeWord(uint16(v&0xFFF)<<4 | crc)
		if raw != good {
			return raw
		}
	}
	return good
}
