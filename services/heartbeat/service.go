package heartbeat

import (
	"context"
	"time"

	"dshot-go/bus"
	"dshot-go/types"
	"dshot-go/x/timex"
)

var (
	topicConfigHeartbeat = bus.T("config", "heartbeat")
	topicMotorTelemetry  = bus.T("motors", "+", "telemetry")
	topicMotorState      = bus.T("motors", "state")
)

const defaultInterval = time.Second

type Service struct {
	latest map[string]types.MotorTelemetry
	state  string
}

// Health is one heartbeat's view of the motors.
type Health struct {
	Motors   int
	Up       int
	Degraded int
	Down     int
	MaxERPM  uint32
	MaxTempC uint8
}

func summarize(latest map[string]types.MotorTelemetry) Health {
	h := Health{Motors: len(latest)}
	for _, t := range latest {
		switch t.Link {
		case types.LinkUp:
			h.Up++
		case types.LinkDegraded:
			h.Degraded++
		case types.LinkDown:
			h.Down++
		case types.LinkNone:
		}
		if t.ERPM > h.MaxERPM {
			h.MaxERPM = t.ERPM
		}
		temp := t.TemperatureC
		if t.KISS != nil && t.KISS.TemperatureC > temp {
			temp = t.KISS.TemperatureC
		}
		if temp > h.MaxTempC {
			h.MaxTempC = temp
		}
	}
	return h
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	telSub := conn.Subscribe(topicMotorTelemetry)
	stSub := conn.Subscribe(topicMotorState)
	defer conn.Unsubscribe(cfgSub)
	defer conn.Unsubscribe(telSub)
	defer conn.Unsubscribe(stSub)

	tick := time.NewTicker(defaultInterval)
	defer tick.Stop()

	// loop until context is cancelled, respond to tick, telemetry and config changes
	for {
		select {
		case <-ctx.Done():
			println("[heartbeat] stopping")
			return
		case t := <-tick.C:
			h := summarize(s.latest)
			println("[heartbeat]", t.Format("15:04:05"), s.state,
				"motors", h.Motors, "up", h.Up, "degraded", h.Degraded, "down", h.Down,
				"max_erpm", h.MaxERPM, "max_temp_c", h.MaxTempC)
		case msg := <-telSub.Channel():
			if t, ok := msg.Payload.(types.MotorTelemetry); ok {
				s.latest[t.Name] = t
			}
		case msg := <-stSub.Channel():
			if st, ok := msg.Payload.(types.ServiceState); ok {
				s.state = st.Level
			}
		case msg := <-cfgSub.Channel():
			if c, ok := msg.Payload.(types.HeartbeatConfig); ok {
				iv := timex.MsOr(c.IntervalMs, defaultInterval, 100*time.Millisecond)
				tick.Reset(iv)
				println("[heartbeat] interval set to", iv.String())
			}
		}
	}
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	s.latest = map[string]types.MotorTelemetry{}
	s.state = "unknown"
	go s.serviceLoop(ctx, conn)
	return nil
}
