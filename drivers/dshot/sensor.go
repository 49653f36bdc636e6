package dshot

import "tinygo.org/x/drivers"

// Sensor exposes a motor's telemetry through the TinyGo drivers sensor
// interface. Update copies a snapshot; accessors read that snapshot.
// KISS UART values win over line telemetry when both are present.
type Sensor struct {
	m     *Motor
	poles int
	snap  Telemetry
}

var _ drivers.Sensor = (*Sensor)(nil)

// NewSensor wraps m. poles is the motor's magnet pole count, used by RPM.
func NewSensor(m *Motor, poles int) *Sensor { return &Sensor{m: m, poles: poles} }

// Update refreshes the snapshot if which asks for anything the motor reports.
func (s *Sensor) Update(which drivers.Measurement) error {
	if which&(drivers.Temperature|drivers.Voltage|drivers.Time) == 0 {
		return nil
	}
	s.snap = s.m.Telemetry()
	return nil
}

// Snapshot returns the last copied telemetry.
func (s *Sensor) Snapshot() Telemetry { return s.snap }

// Temperature in milli-degrees Celsius.
func (s *Sensor) Temperature() int32 {
	if s.snap.KISSCount > 0 {
		return int32(s.snap.KISS.TemperatureC) * 1000
	}
	return int32(s.snap.TemperatureC()) * 1000
}

// Voltage in microvolts.
func (s *Sensor) Voltage() int32 {
	if s.snap.KISSCount > 0 {
		return int32(s.snap.KISS.VoltageCV) * 10_000
	}
	return int32(s.snap.VoltageMV()) * 1000
}

// Current in microamps.
func (s *Sensor) Current() int32 {
	if s.snap.KISSCount > 0 {
		return int32(s.snap.KISS.CurrentCA) * 10_000
	}
	return int32(s.snap.CurrentA()) * 1_000_000
}

// ERPM is the electrical RPM; line telemetry wins when it has a period.
func (s *Sensor) ERPM() uint32 {
	if s.snap.ERPMPeriodUs == 0 && s.snap.KISSCount > 0 {
		return s.snap.KISS.ERPM()
	}
	return s.snap.ERPM()
}

// RPM is the mechanical RPM for the configured pole count.
func (s *Sensor) RPM() uint32 {
	if s.poles < 2 {
		return s.ERPM()
	}
	return s.ERPM() * 2 / uint32(s.poles)
}
