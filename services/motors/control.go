package motors

import (
	"context"
	"encoding/json"
	"time"

	"dshot-go/bus"
	"dshot-go/drivers/dshot"
	"dshot-go/errcode"
	"dshot-go/types"
	"dshot-go/x/conv"
	"dshot-go/x/mathx"
	"dshot-go/x/ramp"
)

// handleControl serves motors/<name>/control/<method>.
func (s *Service) handleControl(ctx context.Context, msg *bus.Message) {
	var name, method string
	if len(msg.Topic) == 4 {
		name, _ = msg.Topic[1].(string)
		method, _ = msg.Topic[3].(string)
	}
	if name == "" || method == "" {
		s.replyErr(msg, errcode.InvalidTopic)
		return
	}
	e, ok := s.motors[name]
	if !ok {
		s.replyErr(msg, errcode.UnknownMotor)
		return
	}
	if s.arming != nil {
		s.replyErr(msg, errcode.Busy)
		return
	}

	switch method {
	case "set":
		var p types.ThrottleSet
		if err := decode(msg.Payload, &p); err != nil {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		if !s.requireArmed(msg) {
			return
		}
		s.cancelRamp(e)
		s.setLevel(e, mathx.Min(p.Level, dshot.ThrottleSpan-1), p.Telemetry)
		s.replyOK(msg)

	case "fraction":
		var p types.ThrottleFraction
		if err := decode(msg.Payload, &p); err != nil {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		if !s.requireArmed(msg) {
			return
		}
		s.cancelRamp(e)
		lv := uint16(mathx.ClampUnit(p.Value) * float32(dshot.ThrottleSpan))
		s.setLevel(e, mathx.Min(lv, dshot.ThrottleSpan-1), p.Telemetry)
		s.replyOK(msg)

	case "cmd":
		var p types.MotorCommand
		if err := decode(msg.Payload, &p); err != nil {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		c := dshot.Command(p.Code)
		if !c.Valid() {
			s.replyErr(msg, errcode.InvalidParams)
			return
		}
		if !s.requireArmed(msg) {
			return
		}
		s.cancelRamp(e)
		n := p.Repeat
		if n <= 0 {
			n = c.RepeatCount()
		}
		if c == dshot.CmdMotorStop {
			e.level, e.hasThrottle = 0, false
		}
		e.cmd, e.cmdN, e.cmdTel = c, n, p.Telemetry
		s.replyOK(msg)

	case "ramp":
		var p types.ThrottleRamp
		if err := decode(msg.Payload, &p); err != nil {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		if !s.requireArmed(msg) {
			return
		}
		s.startRamp(ctx, e, p)
		s.replyOK(msg)

	case "stop_ramp":
		s.cancelRamp(e)
		s.replyOK(msg)

	case "telemetry":
		// Next frame carries the telemetry request bit.
		e.wantTelem = true
		s.replyOK(msg)

	default:
		s.replyErr(msg, errcode.Unsupported)
	}
}

func (s *Service) requireArmed(msg *bus.Message) bool {
	if s.armed {
		return true
	}
	s.replyErr(msg, errcode.NotArmed)
	return false
}

// setLevel records the level and sends it at once; the refresh tick keeps
// repeating it.
func (s *Service) setLevel(e *motor, level uint16, telemetry bool) {
	e.level, e.hasThrottle, e.cmdN = level, true, 0
	if telemetry {
		s.takeKISS(e)
	}
	e.m.SetThrottle(level, telemetry)
}

// -----------------------------------------------------------------------------
// Ramps
// -----------------------------------------------------------------------------

func (s *Service) startRamp(ctx context.Context, e *motor, p types.ThrottleRamp) {
	s.cancelRamp(e)
	steps := p.Steps
	if steps == 0 && p.DurationMs > 0 {
		// One step per refresh period, at least one.
		steps = uint16(mathx.Clamp(time.Duration(p.DurationMs)*time.Millisecond/s.refresh, 1, 1000))
	}
	plan := ramp.Linear(e.level, p.Target, dshot.ThrottleSpan-1, time.Duration(p.DurationMs)*time.Millisecond, steps)

	rctx, cancel := context.WithCancel(ctx)
	e.rampGen++
	e.rampCancel = cancel
	gen := e.rampGen

	go func() {
		defer cancel()
		tick := func(d time.Duration) bool {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-rctx.Done():
				return false
			case <-t.C:
				return true
			}
		}
		plan.Run(tick, func(level uint16) {
			select {
			case s.ramps <- rampStep{m: e, gen: gen, level: level}:
			case <-rctx.Done():
			}
		})
	}()
}

func (s *Service) cancelRamp(e *motor) {
	if e.rampCancel != nil {
		e.rampCancel()
		e.rampCancel = nil
	}
	e.rampGen++
}

// -----------------------------------------------------------------------------
// Replies and state
// -----------------------------------------------------------------------------

func (s *Service) replyOK(req *bus.Message) {
	s.conn.Reply(req, types.OKReply{OK: true}, false)
}

func (s *Service) replyErr(req *bus.Message, c errcode.Code) {
	s.conn.Reply(req, types.ErrorReply{OK: false, Error: string(c)}, false)
}

func (s *Service) publishState(level, status string, err error) {
	st := types.ServiceState{Level: level, Status: status, TS: time.Now().UnixMilli()}
	if err != nil {
		st.Error = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(topicState, st, true))
}

// decode accepts the typed payload (value or pointer), JSON text, or any
// JSON-shaped value such as a map.
func decode[T any](src any, dst *T) error {
	switch v := src.(type) {
	case nil:
		return errcode.InvalidPayload
	case T:
		*dst = v
		return nil
	case *T:
		if v == nil {
			return errcode.InvalidPayload
		}
		*dst = *v
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}

func itoa(n int) string {
	if n < 0 {
		return "-" + itoa(-n)
	}
	var b [20]byte
	return string(conv.Utoa(b[:], uint64(n)))
}
