package dshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueERPM(t *testing.T) {
	v := Value(0x12C) // e=0, m=300
	assert.True(t, v.IsExtended())
	assert.Equal(t, uint16(300), v.ERPMPeriodUs())
	assert.Equal(t, uint32(200_000), ERPM(v.ERPMPeriodUs()))

	v = Value(3<<9 | 0x100) // 256 << 3
	assert.Equal(t, uint16(2048), v.ERPMPeriodUs())

	assert.True(t, ValueStopped.IsExtended())
	assert.Zero(t, ValueStopped.ERPMPeriodUs())
	assert.Zero(t, ERPM(0))
}

func TestValueLegacy(t *testing.T) {
	v := LegacyTelemetry(FieldVoltage, 64)
	assert.False(t, v.IsExtended())
	assert.Equal(t, FieldVoltage, v.Field())
	assert.Equal(t, uint8(64), v.Byte())
	assert.Equal(t, "voltage", v.Field().String())
}

func TestExtendedERPM(t *testing.T) {
	for _, p := range []uint32{256, 300, 511, 512, 1000, 4000, 65000} {
		v := ExtendedERPM(p)
		assert.True(t, v.IsExtended(), "period %d", p)
		got := uint32(v.ERPMPeriodUs())
		assert.LessOrEqual(t, got, p)
		assert.Less(t, p-got, got/256+1, "period %d", p)
	}
	assert.Equal(t, ValueStopped, ExtendedERPM(0))
	assert.Equal(t, uint16(256), ExtendedERPM(10).ERPMPeriodUs())
}

func TestExtendedERPMNeverEncodesStopped(t *testing.T) {
	for _, p := range []uint32{65280, 65408, 65535, 65536, 1 << 20} {
		v := ExtendedERPM(p)
		assert.NotEqual(t, ValueStopped, v, "period %d", p)
		assert.True(t, v.IsExtended())
		assert.Equal(t, uint16(510<<7), v.ERPMPeriodUs(), "period %d", p)
	}
}

func TestTelemetryAccessors(t *testing.T) {
	var tm Telemetry
	tm.ERPMPeriodUs = 600
	tm.Slots[FieldTemperature] = 41
	tm.Slots[FieldVoltage] = 64
	tm.Slots[FieldCurrent] = 7
	tm.Received, tm.Valid = 8, 6

	assert.Equal(t, uint32(100_000), tm.ERPM())
	assert.Equal(t, uint32(14_285), tm.RPM(14))
	assert.Equal(t, tm.ERPM(), tm.RPM(0))
	assert.Equal(t, uint8(41), tm.TemperatureC())
	assert.Equal(t, uint32(16_000), tm.VoltageMV())
	assert.Equal(t, uint8(7), tm.CurrentA())
	assert.Equal(t, uint32(750), tm.SuccessRatio())
	assert.Zero(t, Telemetry{}.SuccessRatio())
}
