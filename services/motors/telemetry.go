package motors

import (
	"dshot-go/drivers/dshot"
	"dshot-go/types"
	"dshot-go/x/timex"
)

func (s *Service) publishTelemetry() {
	now := timex.NowMs()
	for _, e := range s.order {
		s.conn.Publish(s.conn.NewMessage(telemetryTopic(e.name), s.snapshot(e, now), true))
	}
}

func (s *Service) snapshot(e *motor, now int64) types.MotorTelemetry {
	t := e.m.Telemetry()
	out := types.MotorTelemetry{
		Name:         e.name,
		Mode:         e.m.Class().String(),
		State:        e.m.State().String(),
		Link:         linkOf(e, t),
		Throttle:     e.level,
		ERPM:         t.ERPM(),
		RPM:          t.RPM(e.poles),
		TemperatureC: t.TemperatureC(),
		VoltageMV:    t.VoltageMV(),
		CurrentA:     t.CurrentA(),
		Received:     t.Received,
		Valid:        t.Valid,
		Sends:        e.m.Sends(),
		TS:           now,
	}
	if t.KISSCount > 0 {
		out.KISS = &types.KISSTelemetry{
			TemperatureC:   t.KISS.TemperatureC,
			VoltageCV:      t.KISS.VoltageCV,
			CurrentCA:      t.KISS.CurrentCA,
			ConsumptionMAh: t.KISS.ConsumptionMAh,
			ERPM:           t.KISS.ERPM(),
		}
	}
	e.lastReceived, e.lastValid = t.Received, t.Valid
	return out
}

// linkOf grades the reply link over the last publish period.
func linkOf(e *motor, t dshot.Telemetry) types.Link {
	switch e.m.Direction() {
	case dshot.Unidirectional:
		return types.LinkNone
	case dshot.Bidirectional:
	}
	rx := t.Received - e.lastReceived
	ok := t.Valid - e.lastValid
	switch {
	case rx == 0:
		return types.LinkDown
	case ok < rx:
		return types.LinkDegraded
	default:
		return types.LinkUp
	}
}
