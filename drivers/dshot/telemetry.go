package dshot

// Value is a decoded 12-bit bidirectional reply.
//
// Bit 8 set: eRPM period (extended), eeem mmmm mmmm (period_us = m << e).
// Bit 8 clear: legacy field/value, fff0 vvvv vvvv (field f, byte v).
type Value uint16

// ValueStopped is the reserved eRPM pattern for a stopped or unknown motor.
const ValueStopped Value = 0xFFF

// Field selects one of the eight legacy telemetry slots.
type Field uint8

const (
	FieldNone        Field = 0
	FieldTemperature Field = 1 // degrees Celsius
	FieldVoltage     Field = 2 // 0.25 V steps
	FieldCurrent     Field = 3 // 1 A steps
	FieldDebug1      Field = 4
	FieldDebug2      Field = 5
	FieldStress      Field = 6 // debug 3 on some firmwares
	FieldState       Field = 7 // state / events
	NumFields              = 8
)

var fieldNames = [NumFields]string{
	"none", "temperature", "voltage", "current", "debug1", "debug2", "stress", "state",
}

func (f Field) String() string { return fieldNames[f&0x7] }

// IsExtended reports whether v carries an eRPM period.
func (v Value) IsExtended() bool { return v&0x100 != 0 }

// ERPMPeriodUs returns the electrical revolution period in microseconds,
// or 0 when the ESC reports the motor stopped.
func (v Value) ERPMPeriodUs() uint16 {
	if v == ValueStopped {
		return 0
	}
	return uint16(v&0x1FF) << (v >> 9)
}

// Field returns the legacy slot selector.
func (v Value) Field() Field { return Field((v >> 9) & 0x7) }

// Byte returns the legacy slot payload.
func (v Value) Byte() uint8 { return uint8(v & 0xFF) }

// ExtendedERPM builds the value an ESC sends for an eRPM period.
// The mantissa is normalised into [256, 511] so bit 8 marks the frame;
// periods below 256 us lose that normalisation and are clamped to 256.
// A zero period encodes as ValueStopped. Periods that would collide with
// that pattern, or do not fit at all, encode as the slowest spinning value
// (510 << 7 us).
func ExtendedERPM(periodUs uint32) Value {
	if periodUs == 0 {
		return ValueStopped
	}
	if periodUs < 0x100 {
		periodUs = 0x100
	}
	var e uint32
	for periodUs > 0x1FF && e < 7 {
		periodUs >>= 1
		e++
	}
	if e == 7 && periodUs >= 0x1FF {
		periodUs = 0x1FE
	}
	return Value(e<<9 | periodUs)
}

// LegacyTelemetry builds a bit-8-clear value for field f.
func LegacyTelemetry(f Field, b uint8) Value {
	return Value(uint16(f&0x7)<<9 | uint16(b))
}

// ERPM converts a period to electrical revolutions per minute.
func ERPM(periodUs uint16) uint32 {
	if periodUs == 0 {
		return 0
	}
	return 60_000_000 / uint32(periodUs)
}

// Telemetry is a snapshot of a motor's latest reply data.
// It is assembled word by word and may mix two replies.
type Telemetry struct {
	ERPMPeriodUs uint16
	Slots        [NumFields]uint8
	Last         Value
	Received     uint32 // replies with a valid leading edge
	Valid        uint32 // replies that passed decode and checksum

	KISS      KISSFrame
	KISSCount uint32
}

// ERPM returns the electrical RPM of the snapshot.
func (t Telemetry) ERPM() uint32 { return ERPM(t.ERPMPeriodUs) }

// RPM returns mechanical RPM for a motor with the given pole count.
func (t Telemetry) RPM(poles int) uint32 {
	if poles < 2 {
		return t.ERPM()
	}
	return t.ERPM() * 2 / uint32(poles)
}

// TemperatureC from the legacy temperature slot.
func (t Telemetry) TemperatureC() uint8 { return t.Slots[FieldTemperature] }

// VoltageMV from the legacy voltage slot.
func (t Telemetry) VoltageMV() uint32 { return uint32(t.Slots[FieldVoltage]) * 250 }

// CurrentA from the legacy current slot.
func (t Telemetry) CurrentA() uint8 { return t.Slots[FieldCurrent] }

// SuccessRatio returns Valid/Received in permille, 0 with no replies.
func (t Telemetry) SuccessRatio() uint32 {
	if t.Received == 0 {
		return 0
	}
	return uint32(uint64(t.Valid) * 1000 / uint64(t.Received))
}
